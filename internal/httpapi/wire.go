package httpapi

import (
	"math"
	"time"

	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
)

const (
	birthDateLayout = "2006-01-02"
)

// The wire vocabulary keeps the historical French field names.

type registerRequest struct {
	Nom             string   `json:"nom"`
	Prenom          string   `json:"prenom"`
	DateDeNaissance string   `json:"date_de_naissance"`
	AdresseMail     string   `json:"adresse_mail"`
	NumTelephone    string   `json:"num_telephone"`
	Password        string   `json:"password"`
	DetailCarte     []string `json:"detail_carte"`
}

type loginRequest struct {
	AdresseMail string `json:"adresse_mail"`
	Password    string `json:"password"`
}

type clientPayload struct {
	IDClient    string `json:"id_client"`
	Nom         string `json:"nom"`
	Prenom      string `json:"prenom"`
	AdresseMail string `json:"adresse_mail"`
}

type profilePayload struct {
	IDClient        string `json:"id_client"`
	Nom             string `json:"nom"`
	Prenom          string `json:"prenom"`
	AdresseMail     string `json:"adresse_mail"`
	NumTelephone    string `json:"num_telephone"`
	DateDeNaissance string `json:"date_de_naissance"`
}

type createContractRequest struct {
	TypeContrat  string   `json:"type_contrat"`
	IDVehicule   string   `json:"id_vehicule"`
	IDPlace      string   `json:"id_place"`
	IDParking    string   `json:"id_parking"`
	DateDebut    string   `json:"date_debut"`
	Duree        int64    `json:"duree"`
	TarifMensuel *float64 `json:"tarif_mensuel"`
	TarifHoraire *float64 `json:"tarif_horaire"`
	Renouvelable *bool    `json:"renouvelable"`
}

type contractPayload struct {
	IDContrat   string `json:"id_contrat"`
	IDVehicule  string `json:"id_vehicule"`
	IDPlace     string `json:"id_place"`
	DateDebut   string `json:"date_debut"`
	DateFin     string `json:"date_fin"`
	EtatContrat string `json:"etat_contrat"`
	TypeContrat string `json:"type_contrat"`
}

type payRequest struct {
	IDContrat string `json:"id_contrat"`
}

type paymentPayload struct {
	IDPaiement   string  `json:"id_paiement"`
	IDContrat    string  `json:"id_contrat"`
	IDClient     string  `json:"id_client"`
	Montant      float64 `json:"montant"`
	DatePaiement string  `json:"date_paiement"`
}

type addVehicleRequest struct {
	IDVehicule string `json:"id_vehicule"`
	Type       string `json:"type"`
	Modele     string `json:"modele"`
}

type vehiclePayload struct {
	IDVehicule string `json:"id_vehicule"`
	Type       string `json:"type"`
	Modele     string `json:"modele"`
}

type lotPayload struct {
	IDParking         string `json:"id_parking"`
	Nom               string `json:"nom"`
	Adresse           string `json:"adresse"`
	NbrPlace          int    `json:"nbrplace"`
	PlacesDisponibles int64  `json:"places_disponibles"`
}

type spotPayload struct {
	IDPlace   string `json:"id_place"`
	IDParking string `json:"id_parking"`
	TypePlace string `json:"type_place"`
	EstDispo  bool   `json:"est_dispo"`
}

type recordScanRequest struct {
	IDContrat   string `json:"id_contrat"`
	IDBorne     string `json:"id_borne"`
	HeureScanne string `json:"heure_scanne"`
	EtatValide  string `json:"etat_valide"`
}

type findScanRequest struct {
	IDContrat string `json:"id_contrat"`
	IDBorne   string `json:"id_borne"`
}

type scanPayload struct {
	IDContrat   string `json:"id_contrat"`
	IDBorne     string `json:"id_borne"`
	HeureScanne string `json:"heure_scanne"`
	EtatValide  string `json:"etat_valide"`
}

type addPenaltyRequest struct {
	IDContrat   string  `json:"id_contrat"`
	Montant     float64 `json:"montant"`
	Description string  `json:"description"`
}

type penaltyPayload struct {
	IDPenalite  string  `json:"id_penalite"`
	IDContrat   string  `json:"id_contrat"`
	Montant     float64 `json:"montant"`
	Description string  `json:"description"`
	DateAjout   string  `json:"date_ajout"`
}

func renderClient(client parking.Client) clientPayload {
	return clientPayload{
		IDClient:    client.ID.String(),
		Nom:         client.LastName,
		Prenom:      client.FirstName,
		AdresseMail: client.Email,
	}
}

func renderProfile(client parking.Client) profilePayload {
	return profilePayload{
		IDClient:        client.ID.String(),
		Nom:             client.LastName,
		Prenom:          client.FirstName,
		AdresseMail:     client.Email,
		NumTelephone:    client.Phone,
		DateDeNaissance: client.BirthDate.Format(birthDateLayout),
	}
}

func renderContract(contract parking.Contract) contractPayload {
	return contractPayload{
		IDContrat:   contract.ID.String(),
		IDVehicule:  contract.Vehicle.String(),
		IDPlace:     contract.Spot.String(),
		DateDebut:   contract.Start.Format(time.RFC3339),
		DateFin:     contract.End.Format(time.RFC3339),
		EtatContrat: contract.State.String(),
		TypeContrat: contract.Type.String(),
	}
}

func renderPayment(payment parking.Payment) paymentPayload {
	return paymentPayload{
		IDPaiement:   payment.ID.String(),
		IDContrat:    payment.Contract.String(),
		IDClient:     payment.Client.String(),
		Montant:      centsToMontant(payment.AmountCents),
		DatePaiement: payment.PaidOn.Format(birthDateLayout),
	}
}

func renderVehicle(vehicle parking.Vehicle) vehiclePayload {
	return vehiclePayload{
		IDVehicule: vehicle.Plate.String(),
		Type:       vehicle.Class.String(),
		Modele:     vehicle.Model,
	}
}

func renderSpot(spot parking.Spot) spotPayload {
	return spotPayload{
		IDPlace:   spot.ID.String(),
		IDParking: spot.Lot.String(),
		TypePlace: spot.Class.String(),
		EstDispo:  spot.Available,
	}
}

func renderScan(scan parking.Scan) scanPayload {
	return scanPayload{
		IDContrat:   scan.Contract.String(),
		IDBorne:     scan.Checkpoint.String(),
		HeureScanne: scan.ScannedAt.Format(time.RFC3339),
		EtatValide:  scan.Validity.String(),
	}
}

func renderPenalty(penalty parking.Penalty) penaltyPayload {
	return penaltyPayload{
		IDPenalite:  penalty.ID.String(),
		IDContrat:   penalty.Contract.String(),
		Montant:     centsToMontant(penalty.AmountCents),
		Description: penalty.Description,
		DateAjout:   penalty.CreatedAt.Format(time.RFC3339),
	}
}

// centsToMontant renders integer cents as the decimal amount the wire
// format expects.
func centsToMontant(amount parking.AmountCents) float64 {
	return float64(amount.Int64()) / 100
}

// montantToCents converts a decimal wire amount to integer cents.
func montantToCents(montant float64) int64 {
	return int64(math.Round(montant * 100))
}
