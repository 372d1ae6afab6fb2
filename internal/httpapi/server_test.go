package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/parking/internal/auth"
	"github.com/MarkoPoloResearchLab/parking/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(test *testing.T) (*httptest.Server, *gorm.DB) {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(test.TempDir()+"/parking.db?_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		test.Fatalf("sqlite open failed: %v", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		test.Fatalf("migrate failed: %v", err)
	}
	store := gormstore.New(db)

	service, err := parking.NewService(store, time.Now)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	credentials, err := auth.NewCredentials("secret-key", store, time.Now)
	if err != nil {
		test.Fatalf("credentials init failed: %v", err)
	}

	cfg := Config{
		ListenAddr:     ":0",
		AllowedOrigins: []string{"http://localhost:3000"},
		SigningKey:     "secret-key",
	}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config validate failed: %v", err)
	}

	handler := &httpHandler{
		logger:      zap.NewNop(),
		service:     service,
		credentials: credentials,
	}
	server := httptest.NewServer(setupRouter(cfg, handler))
	test.Cleanup(server.Close)
	return server, db
}

func seedParking(test *testing.T, db *gorm.DB) {
	test.Helper()
	rows := []any{
		&gormstore.ParkingLot{LotID: "P00001", Name: "Centre Ville", Address: "1 rue de la Gare", Capacity: 2},
		&gormstore.Spot{SpotID: "S001", LotID: "P00001", Available: true, Class: "car"},
		&gormstore.Spot{SpotID: "S002", LotID: "P00001", Available: true, Class: "motorcycle"},
		&gormstore.Checkpoint{CheckpointID: "B0001", LotID: "P00001", Direction: "entry", State: "active"},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			test.Fatalf("seed failed: %v", err)
		}
	}
}

func execJSON(test *testing.T, server *httptest.Server, method string, path string, token string, payload any) (int, map[string]any) {
	test.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			test.Fatalf("marshal failed: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, server.URL+path, body)
	if err != nil {
		test.Fatalf("request init failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		test.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		test.Fatalf("decode failed: %v", err)
	}
	return resp.StatusCode, decoded
}

func registerTestClient(test *testing.T, server *httptest.Server, email string) string {
	test.Helper()
	status, response := execJSON(test, server, http.MethodPost, "/auth/register", "", map[string]any{
		"nom":               "Martin",
		"prenom":            "Claire",
		"date_de_naissance": "1990-05-02",
		"adresse_mail":      email,
		"num_telephone":     "+33612345678",
		"password":          "s3cret",
	})
	if status != http.StatusCreated {
		test.Fatalf("register failed with status %d: %v", status, response)
	}
	token, ok := response["access_token"].(string)
	if !ok || token == "" {
		test.Fatalf("register returned no access token: %v", response)
	}
	return token
}

func TestAuthFlow(test *testing.T) {
	server, _ := newTestServer(test)

	token := registerTestClient(test, server, "claire@example.org")

	status, profile := execJSON(test, server, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusOK {
		test.Fatalf("me failed with status %d: %v", status, profile)
	}
	if profile["adresse_mail"] != "claire@example.org" {
		test.Fatalf("unexpected profile: %v", profile)
	}

	status, response := execJSON(test, server, http.MethodPost, "/auth/login", "", map[string]any{
		"adresse_mail": "claire@example.org",
		"password":     "s3cret",
	})
	if status != http.StatusOK {
		test.Fatalf("login failed with status %d: %v", status, response)
	}
	refreshToken, _ := response["refresh_token"].(string)
	if refreshToken == "" {
		test.Fatalf("login returned no refresh token: %v", response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/auth/login", "", map[string]any{
		"adresse_mail": "claire@example.org",
		"password":     "wrong",
	})
	if status != http.StatusUnauthorized {
		test.Fatalf("expected 401 for bad password, got %d: %v", status, response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/auth/refresh", refreshToken, nil)
	if status != http.StatusOK {
		test.Fatalf("refresh failed with status %d: %v", status, response)
	}
	if response["access_token"] == "" {
		test.Fatalf("refresh returned no access token: %v", response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/auth/refresh", token, nil)
	if status != http.StatusUnauthorized {
		test.Fatalf("access token accepted as refresh token, got %d: %v", status, response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/auth/logout", token, nil)
	if status != http.StatusOK {
		test.Fatalf("logout failed with status %d: %v", status, response)
	}
	status, response = execJSON(test, server, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusUnauthorized {
		test.Fatalf("revoked token still accepted, got %d: %v", status, response)
	}
}

func TestProtectedRoutesRequireToken(test *testing.T) {
	server, _ := newTestServer(test)
	status, response := execJSON(test, server, http.MethodGet, "/contrats/", "", nil)
	if status != http.StatusUnauthorized {
		test.Fatalf("expected 401 without token, got %d: %v", status, response)
	}
	status, response = execJSON(test, server, http.MethodGet, "/vehicules/", "garbage-token", nil)
	if status != http.StatusUnauthorized {
		test.Fatalf("expected 401 with garbage token, got %d: %v", status, response)
	}
}

func TestContractPaymentLifecycle(test *testing.T) {
	server, db := newTestServer(test)
	seedParking(test, db)
	token := registerTestClient(test, server, "claire@example.org")

	status, response := execJSON(test, server, http.MethodPost, "/vehicules/", token, map[string]any{
		"id_vehicule": "AB-123-CD",
		"type":        "car",
		"modele":      "Clio",
	})
	if status != http.StatusCreated {
		test.Fatalf("add vehicle failed with status %d: %v", status, response)
	}

	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	status, response = execJSON(test, server, http.MethodPost, "/contrats/", token, map[string]any{
		"type_contrat": "subscription",
		"id_vehicule":  "AB-123-CD",
		"id_place":     "S001",
		"id_parking":   "P00001",
		"date_debut":   start.Format(time.RFC3339),
		"duree":        30,
	})
	if status != http.StatusCreated {
		test.Fatalf("create contract failed with status %d: %v", status, response)
	}
	contract, _ := response["contrat"].(map[string]any)
	contractID, _ := contract["id_contrat"].(string)
	if contractID == "" {
		test.Fatalf("missing contract id: %v", response)
	}

	// Second booking of the same spot conflicts.
	status, response = execJSON(test, server, http.MethodPost, "/contrats/", token, map[string]any{
		"type_contrat": "subscription",
		"id_vehicule":  "AB-123-CD",
		"id_place":     "S001",
		"id_parking":   "P00001",
		"date_debut":   start.Format(time.RFC3339),
		"duree":        30,
	})
	if status != http.StatusConflict {
		test.Fatalf("expected 409 for taken spot, got %d: %v", status, response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/paiement/", token, map[string]any{
		"id_contrat": contractID,
	})
	if status != http.StatusCreated {
		test.Fatalf("pay failed with status %d: %v", status, response)
	}
	payment, _ := response["paiement"].(map[string]any)
	if montant, _ := payment["montant"].(float64); montant != 50.0 {
		test.Fatalf("expected default monthly tariff 50.00, got %v", payment)
	}

	status, response = execJSON(test, server, http.MethodPost, "/paiement/", token, map[string]any{
		"id_contrat": contractID,
	})
	if status != http.StatusConflict {
		test.Fatalf("expected 409 for second payment, got %d: %v", status, response)
	}

	status, response = execJSON(test, server, http.MethodPost, "/verifie/", token, map[string]any{
		"id_contrat":   contractID,
		"id_borne":     "B0001",
		"heure_scanne": start.Add(time.Hour).Format(time.RFC3339),
		"etat_valide":  "in-progress-entry",
	})
	if status != http.StatusCreated {
		test.Fatalf("record scan failed with status %d: %v", status, response)
	}
	status, response = execJSON(test, server, http.MethodGet, "/verifie/contrat/"+contractID, token, nil)
	if status != http.StatusOK {
		test.Fatalf("scan history failed with status %d: %v", status, response)
	}
	if total, _ := response["total"].(float64); total != 1 {
		test.Fatalf("expected one scan, got %v", response)
	}

	status, response = execJSON(test, server, http.MethodDelete, "/contrats/"+contractID, token, nil)
	if status != http.StatusOK {
		test.Fatalf("terminate failed with status %d: %v", status, response)
	}
	status, response = execJSON(test, server, http.MethodDelete, "/contrats/"+contractID, token, nil)
	if status != http.StatusNotFound {
		test.Fatalf("expected 404 for terminated contract, got %d: %v", status, response)
	}
}

func TestPlacesAndParkingsReporting(test *testing.T) {
	server, db := newTestServer(test)
	seedParking(test, db)
	token := registerTestClient(test, server, "claire@example.org")

	status, response := execJSON(test, server, http.MethodGet, "/parkings/", token, nil)
	if status != http.StatusOK {
		test.Fatalf("parkings failed with status %d: %v", status, response)
	}
	parkings, _ := response["parkings"].([]any)
	if len(parkings) != 1 {
		test.Fatalf("expected one lot, got %v", response)
	}
	lot, _ := parkings[0].(map[string]any)
	if available, _ := lot["places_disponibles"].(float64); available != 2 {
		test.Fatalf("expected 2 available spots, got %v", lot)
	}

	status, response = execJSON(test, server, http.MethodGet, "/places/", token, nil)
	if status != http.StatusOK {
		test.Fatalf("places failed with status %d: %v", status, response)
	}
	if total, _ := response["total"].(float64); total != 2 {
		test.Fatalf("expected 2 spots, got %v", response)
	}
	byType, _ := response["disponibles_par_type"].(map[string]any)
	if count, _ := byType["car"].(float64); count != 1 {
		test.Fatalf("expected 1 available car spot, got %v", byType)
	}
}

func TestPenaltiesEndpoints(test *testing.T) {
	server, db := newTestServer(test)
	seedParking(test, db)
	token := registerTestClient(test, server, "claire@example.org")

	execJSON(test, server, http.MethodPost, "/vehicules/", token, map[string]any{
		"id_vehicule": "AB-123-CD",
		"type":        "car",
	})
	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	_, created := execJSON(test, server, http.MethodPost, "/contrats/", token, map[string]any{
		"type_contrat": "hourly-ticket",
		"id_vehicule":  "AB-123-CD",
		"id_place":     "S001",
		"id_parking":   "P00001",
		"date_debut":   start.Format(time.RFC3339),
		"duree":        3,
	})
	contract, _ := created["contrat"].(map[string]any)
	contractID, _ := contract["id_contrat"].(string)
	if contractID == "" {
		test.Fatalf("missing contract id: %v", created)
	}

	status, response := execJSON(test, server, http.MethodPost, "/penalites/", token, map[string]any{
		"id_contrat":  contractID,
		"montant":     15.50,
		"description": "overstay",
	})
	if status != http.StatusCreated {
		test.Fatalf("add penalty failed with status %d: %v", status, response)
	}

	status, response = execJSON(test, server, http.MethodGet, "/penalites/contrat/"+contractID, token, nil)
	if status != http.StatusOK {
		test.Fatalf("list penalties failed with status %d: %v", status, response)
	}
	penalties, _ := response["penalites"].([]any)
	if len(penalties) != 1 {
		test.Fatalf("expected one penalty, got %v", response)
	}
	penalty, _ := penalties[0].(map[string]any)
	if montant, _ := penalty["montant"].(float64); montant != 15.5 {
		test.Fatalf("expected montant 15.5, got %v", penalty)
	}
}
