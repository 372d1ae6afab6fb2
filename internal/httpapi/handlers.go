package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/gin-gonic/gin"
)

var spotClasses = []parking.VehicleClass{
	parking.ClassCar,
	parking.ClassMotorcycle,
	parking.ClassBus,
	parking.ClassTruck,
}

func (handler *httpHandler) handleListContracts(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	contracts, err := handler.service.ContractsByClient(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]contractPayload, 0, len(contracts))
	for _, contract := range contracts {
		payloads = append(payloads, renderContract(contract))
	}
	ctx.JSON(http.StatusOK, gin.H{"contrats": payloads, "total": len(payloads)})
}

func (handler *httpHandler) handleCreateContract(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	var request createContractRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}

	plate, err := parking.NewPlateNumber(request.IDVehicule)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	spotID, err := parking.NewSpotID(request.IDPlace)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	lotID, err := parking.NewLotID(request.IDParking)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	contractType, err := parking.ParseContractType(request.TypeContrat)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	start, err := time.Parse(time.RFC3339, request.DateDebut)
	if err != nil {
		handler.respondError(ctx, fmt.Errorf("%w: date_debut", parking.ErrInvalidField))
		return
	}

	input := parking.CreateContractInput{
		Vehicle:       plate,
		Spot:          spotID,
		Lot:           lotID,
		Type:          contractType,
		Start:         start,
		DurationUnits: request.Duree,
		Renewable:     request.Renouvelable,
	}
	if request.TarifMensuel != nil {
		input.MonthlyTariffCents = montantToCents(*request.TarifMensuel)
	}
	if request.TarifHoraire != nil {
		input.HourlyTariffCents = montantToCents(*request.TarifHoraire)
	}

	contract, err := handler.service.CreateContract(ctx.Request.Context(), caller, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "contract created",
		"contrat": renderContract(contract),
	})
}

func (handler *httpHandler) handleTerminateContract(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	contractID, err := parking.NewContractID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.service.TerminateContract(ctx.Request.Context(), caller, contractID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "contract terminated"})
}

func (handler *httpHandler) handleListPayments(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	payments, err := handler.service.PaymentsByClient(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]paymentPayload, 0, len(payments))
	for _, payment := range payments {
		payloads = append(payloads, renderPayment(payment))
	}
	ctx.JSON(http.StatusOK, gin.H{"paiements": payloads, "total": len(payloads)})
}

func (handler *httpHandler) handlePay(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	var request payRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	contractID, err := parking.NewContractID(request.IDContrat)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payment, err := handler.service.Pay(ctx.Request.Context(), caller, contractID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "payment accepted",
		"paiement": renderPayment(payment),
	})
}

func (handler *httpHandler) handleListVehicles(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	vehicles, err := handler.service.VehiclesByClient(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]vehiclePayload, 0, len(vehicles))
	for _, vehicle := range vehicles {
		payloads = append(payloads, renderVehicle(vehicle))
	}
	ctx.JSON(http.StatusOK, gin.H{"vehicules": payloads, "total": len(payloads)})
}

func (handler *httpHandler) handleAddVehicle(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	var request addVehicleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	plate, err := parking.NewPlateNumber(request.IDVehicule)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if request.Type == "" {
		request.Type = parking.ClassCar.String()
	}
	class, err := parking.ParseVehicleClass(request.Type)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	vehicle, err := handler.service.AddVehicle(ctx.Request.Context(), caller, plate, class, request.Modele)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "vehicle added",
		"vehicule": renderVehicle(vehicle),
	})
}

func (handler *httpHandler) handleRemoveVehicle(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	plate, err := parking.NewPlateNumber(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.service.RemoveVehicle(ctx.Request.Context(), caller, plate); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "vehicle removed"})
}

func (handler *httpHandler) handleListLots(ctx *gin.Context) {
	lots, err := handler.service.Lots(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]lotPayload, 0, len(lots))
	for _, lot := range lots {
		lotID := lot.ID
		available, err := handler.service.CountAvailable(ctx.Request.Context(), parking.AvailabilityFilter{Lot: &lotID})
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		payloads = append(payloads, lotPayload{
			IDParking:         lot.ID.String(),
			Nom:               lot.Name,
			Adresse:           lot.Address,
			NbrPlace:          lot.Capacity,
			PlacesDisponibles: available,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"parkings": payloads, "total": len(payloads)})
}

func (handler *httpHandler) handleListSpots(ctx *gin.Context) {
	requestCtx := ctx.Request.Context()
	spots, err := handler.service.Spots(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	lots, err := handler.service.Lots(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}

	payloads := make([]spotPayload, 0, len(spots))
	for _, spot := range spots {
		payloads = append(payloads, renderSpot(spot))
	}

	availableByClass := make(map[string]int64, len(spotClasses))
	for _, class := range spotClasses {
		spotClass := class
		count, err := handler.service.CountAvailable(requestCtx, parking.AvailabilityFilter{Class: &spotClass})
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		availableByClass[class.String()] = count
	}

	availableByLot := make(map[string]gin.H, len(lots))
	for _, lot := range lots {
		lotID := lot.ID
		total, err := handler.service.CountAvailable(requestCtx, parking.AvailabilityFilter{Lot: &lotID})
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		byClass := make(map[string]int64, len(spotClasses))
		for _, class := range spotClasses {
			spotClass := class
			count, err := handler.service.CountAvailable(requestCtx, parking.AvailabilityFilter{Lot: &lotID, Class: &spotClass})
			if err != nil {
				handler.respondError(ctx, err)
				return
			}
			byClass[class.String()] = count
		}
		availableByLot[lot.ID.String()] = gin.H{
			"nom":               lot.Name,
			"total_disponibles": total,
			"par_type":          byClass,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"places":                  payloads,
		"total":                   len(payloads),
		"disponibles_par_type":    availableByClass,
		"disponibles_par_parking": availableByLot,
	})
}

func (handler *httpHandler) handleFindScan(ctx *gin.Context) {
	var request findScanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	contractID, err := parking.NewContractID(request.IDContrat)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	checkpointID, err := parking.NewCheckpointID(request.IDBorne)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	scan, err := handler.service.FindScan(ctx.Request.Context(), contractID, checkpointID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"historique": renderScan(scan)})
}

func (handler *httpHandler) handleRecordScan(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	var request recordScanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	contractID, err := parking.NewContractID(request.IDContrat)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	checkpointID, err := parking.NewCheckpointID(request.IDBorne)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	validity, err := parking.ParseScanValidity(request.EtatValide)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	scannedAt := time.Now().UTC()
	if request.HeureScanne != "" {
		scannedAt, err = time.Parse(time.RFC3339, request.HeureScanne)
		if err != nil {
			handler.respondError(ctx, fmt.Errorf("%w: heure_scanne", parking.ErrInvalidField))
			return
		}
	}

	scan := parking.Scan{
		Contract:   contractID,
		Checkpoint: checkpointID,
		ScannedAt:  scannedAt,
		Validity:   validity,
	}
	if err := handler.service.RecordScan(ctx.Request.Context(), caller, scan); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "scan recorded", "historique": renderScan(scan)})
}

func (handler *httpHandler) handleScanHistory(ctx *gin.Context) {
	contractID, err := parking.NewContractID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	scans, err := handler.service.ScanHistory(ctx.Request.Context(), contractID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]scanPayload, 0, len(scans))
	for _, scan := range scans {
		payloads = append(payloads, renderScan(scan))
	}
	ctx.JSON(http.StatusOK, gin.H{"historique": payloads, "total": len(payloads)})
}

func (handler *httpHandler) handleAddPenalty(ctx *gin.Context) {
	var request addPenaltyRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	contractID, err := parking.NewContractID(request.IDContrat)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	penalty, err := handler.service.AddPenalty(ctx.Request.Context(), contractID, montantToCents(request.Montant), request.Description)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "penalty recorded",
		"penalite": renderPenalty(penalty),
	})
}

func (handler *httpHandler) handleListPenalties(ctx *gin.Context) {
	contractID, err := parking.NewContractID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	penalties, err := handler.service.PenaltiesByContract(ctx.Request.Context(), contractID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]penaltyPayload, 0, len(penalties))
	for _, penalty := range penalties {
		payloads = append(payloads, renderPenalty(penalty))
	}
	ctx.JSON(http.StatusOK, gin.H{"penalites": payloads, "total": len(payloads)})
}
