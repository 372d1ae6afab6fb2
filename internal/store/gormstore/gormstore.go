package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	// Extended sqlite result codes; the primary constraint code 19 alone
	// also covers foreign key failures, which are not duplicates.
	sqliteUniqueConstraintCode     = 2067
	sqlitePrimaryKeyConstraintCode = 1555

	errorOperationStore   = "store"
	errorSubjectClient    = "client"
	errorSubjectVehicle   = "vehicle"
	errorSubjectLot       = "lot"
	errorSubjectSpot      = "spot"
	errorSubjectContract  = "contract"
	errorSubjectPayment   = "payment"
	errorSubjectPenalty   = "penalty"
	errorSubjectScan      = "scan"
	errorSubjectToken     = "token"
	errorSubjectIdentity  = "identity"
	errorCodeCreate       = "create"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeList         = "list"
	errorCodeCount        = "count"
	errorCodeInvalid      = "invalid"
	errorCodeReserve      = "reserve"
	errorCodeRelease      = "release"
	errorCodeUpsert       = "upsert"
	errorCodeRevoke       = "revoke"
	errorCodeLookup       = "lookup"
)

// Store implements parking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore parking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// IdentityExists reports whether the identifier is already taken in the
// table owning identifiers of the given kind.
func (store *Store) IdentityExists(ctx context.Context, kind parking.IdentityKind, id string) (bool, error) {
	var model interface{}
	var column string
	switch kind {
	case parking.IdentityClient:
		model, column = &Client{}, "client_id"
	case parking.IdentityContract:
		model, column = &Contract{}, "contract_id"
	case parking.IdentityPayment:
		model, column = &Payment{}, "payment_id"
	case parking.IdentityPenalty:
		model, column = &Penalty{}, "penalty_id"
	case parking.IdentityCheckpoint:
		model, column = &Checkpoint{}, "checkpoint_id"
	case parking.IdentityLot:
		model, column = &ParkingLot{}, "lot_id"
	default:
		return false, wrapStoreError(errorSubjectIdentity, errorCodeInvalid, parking.ErrInvalidServiceConfig)
	}
	var count int64
	err := store.db.WithContext(ctx).Model(model).Where(column+" = ?", id).Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectIdentity, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *Store) CreateClient(ctx context.Context, client parking.Client) error {
	cards, err := cardDetailsJSON(client.CardDetails)
	if err != nil {
		return wrapStoreError(errorSubjectClient, errorCodeInvalid, err)
	}
	model := Client{
		ClientID:     client.ID.String(),
		LastName:     client.LastName,
		FirstName:    client.FirstName,
		BirthDate:    client.BirthDate,
		Email:        client.Email,
		Phone:        client.Phone,
		PasswordHash: client.PasswordHash,
		CardDetails:  cards,
		CreatedAt:    time.Now().UTC(),
	}
	err = store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		if violatesConstraint(err, "email") {
			return wrapStoreError(errorSubjectClient, errorCodeDuplicate, parking.ErrDuplicateEmail)
		}
		return wrapStoreError(errorSubjectClient, errorCodeDuplicate, parking.ErrDuplicateIdentity)
	}
	if err != nil {
		return wrapStoreError(errorSubjectClient, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetClient(ctx context.Context, id parking.ClientID) (parking.Client, error) {
	var model Client
	err := store.db.WithContext(ctx).Where("client_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeGet, parking.ErrClientNotFound)
	}
	if err != nil {
		return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeGet, err)
	}
	return mapClient(model)
}

func (store *Store) ClientByEmail(ctx context.Context, email string) (parking.Client, error) {
	var model Client
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeGet, parking.ErrClientNotFound)
	}
	if err != nil {
		return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeGet, err)
	}
	return mapClient(model)
}

func (store *Store) CreateVehicle(ctx context.Context, vehicle parking.Vehicle) error {
	model := Vehicle{
		Plate:     vehicle.Plate.String(),
		ClientID:  vehicle.Owner.String(),
		Class:     vehicle.Class.String(),
		Model:     vehicle.Model,
		CreatedAt: time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectVehicle, errorCodeDuplicate, parking.ErrDuplicateVehicle)
	}
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetVehicle(ctx context.Context, plate parking.PlateNumber) (parking.Vehicle, error) {
	var model Vehicle
	err := store.db.WithContext(ctx).Where("plate = ?", plate.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, parking.ErrVehicleNotFound)
	}
	if err != nil {
		return parking.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, err)
	}
	return mapVehicle(model)
}

func (store *Store) ListVehiclesByClient(ctx context.Context, owner parking.ClientID) ([]parking.Vehicle, error) {
	var rows []Vehicle
	err := store.db.WithContext(ctx).
		Where("client_id = ?", owner.String()).
		Order("plate ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, err)
	}
	vehicles := make([]parking.Vehicle, 0, len(rows))
	for _, row := range rows {
		vehicle, err := mapVehicle(row)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

func (store *Store) DeleteVehicle(ctx context.Context, plate parking.PlateNumber) error {
	result := store.db.WithContext(ctx).Where("plate = ?", plate.String()).Delete(&Vehicle{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, parking.ErrVehicleNotFound)
	}
	return nil
}

func (store *Store) ListLots(ctx context.Context) ([]parking.ParkingLot, error) {
	var rows []ParkingLot
	err := store.db.WithContext(ctx).Order("lot_id ASC").Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectLot, errorCodeList, err)
	}
	lots := make([]parking.ParkingLot, 0, len(rows))
	for _, row := range rows {
		lot, err := mapLot(row)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

func (store *Store) GetLot(ctx context.Context, id parking.LotID) (parking.ParkingLot, error) {
	var model ParkingLot
	err := store.db.WithContext(ctx).Where("lot_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.ParkingLot{}, wrapStoreError(errorSubjectLot, errorCodeGet, parking.ErrLotNotFound)
	}
	if err != nil {
		return parking.ParkingLot{}, wrapStoreError(errorSubjectLot, errorCodeGet, err)
	}
	return mapLot(model)
}

func (store *Store) GetSpot(ctx context.Context, id parking.SpotID) (parking.Spot, error) {
	var model Spot
	err := store.db.WithContext(ctx).Where("spot_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Spot{}, wrapStoreError(errorSubjectSpot, errorCodeGet, parking.ErrSpotNotFound)
	}
	if err != nil {
		return parking.Spot{}, wrapStoreError(errorSubjectSpot, errorCodeGet, err)
	}
	return mapSpot(model)
}

func (store *Store) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	var rows []Spot
	err := store.db.WithContext(ctx).Order("spot_id ASC").Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSpot, errorCodeList, err)
	}
	spots := make([]parking.Spot, 0, len(rows))
	for _, row := range rows {
		spot, err := mapSpot(row)
		if err != nil {
			return nil, err
		}
		spots = append(spots, spot)
	}
	return spots, nil
}

// ReserveSpot flips availability with a conditional update so two
// concurrent contracts cannot take the same spot.
func (store *Store) ReserveSpot(ctx context.Context, id parking.SpotID) error {
	result := store.db.WithContext(ctx).
		Model(&Spot{}).
		Where("spot_id = ? AND available = ?", id.String(), true).
		Update("available", false)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSpot, errorCodeReserve, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&Spot{}).Where("spot_id = ?", id.String()).Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectSpot, errorCodeReserve, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectSpot, errorCodeReserve, parking.ErrSpotNotFound)
		}
		return wrapStoreError(errorSubjectSpot, errorCodeReserve, parking.ErrSpotUnavailable)
	}
	return nil
}

func (store *Store) ReleaseSpot(ctx context.Context, id parking.SpotID) error {
	result := store.db.WithContext(ctx).
		Model(&Spot{}).
		Where("spot_id = ?", id.String()).
		Update("available", true)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSpot, errorCodeRelease, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSpot, errorCodeRelease, parking.ErrSpotNotFound)
	}
	return nil
}

func (store *Store) CountAvailable(ctx context.Context, filter parking.AvailabilityFilter) (int64, error) {
	query := store.db.WithContext(ctx).Model(&Spot{}).Where("available = ?", true)
	if filter.Lot != nil {
		query = query.Where("lot_id = ?", filter.Lot.String())
	}
	if filter.Class != nil {
		query = query.Where("class = ?", filter.Class.String())
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectSpot, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) CreateContract(ctx context.Context, contract parking.Contract) error {
	model := Contract{
		ContractID: contract.ID.String(),
		Plate:      contract.Vehicle.String(),
		SpotID:     contract.Spot.String(),
		StartAt:    contract.Start,
		EndAt:      contract.End,
		State:      contract.State.String(),
		Type:       contract.Type.String(),
		CreatedAt:  time.Now().UTC(),
	}
	if contract.Subscription != nil {
		monthly := contract.Subscription.MonthlyTariffCents.Int64()
		renewable := contract.Subscription.Renewable
		model.MonthlyTariffCents = &monthly
		model.Renewable = &renewable
	}
	if contract.Hourly != nil {
		hours := contract.Hourly.DurationHours
		hourly := contract.Hourly.HourlyTariffCents.Int64()
		model.DurationHours = &hours
		model.HourlyTariffCents = &hourly
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectContract, errorCodeDuplicate, parking.ErrDuplicateIdentity)
	}
	if err != nil {
		return wrapStoreError(errorSubjectContract, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetContract(ctx context.Context, id parking.ContractID) (parking.Contract, error) {
	var model Contract
	err := store.db.WithContext(ctx).Where("contract_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeGet, parking.ErrContractNotFound)
	}
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeGet, err)
	}
	return mapContract(model)
}

func (store *Store) ListContractsByClient(ctx context.Context, owner parking.ClientID) ([]parking.Contract, error) {
	var rows []Contract
	err := store.db.WithContext(ctx).
		Joins("JOIN vehicles ON vehicles.plate = contracts.plate").
		Where("vehicles.client_id = ?", owner.String()).
		Order("contracts.start_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectContract, errorCodeList, err)
	}
	contracts := make([]parking.Contract, 0, len(rows))
	for _, row := range rows {
		contract, err := mapContract(row)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

func (store *Store) ListContractsByVehicle(ctx context.Context, plate parking.PlateNumber) ([]parking.Contract, error) {
	var rows []Contract
	err := store.db.WithContext(ctx).
		Where("plate = ?", plate.String()).
		Order("start_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectContract, errorCodeList, err)
	}
	contracts := make([]parking.Contract, 0, len(rows))
	for _, row := range rows {
		contract, err := mapContract(row)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

func (store *Store) DeleteContract(ctx context.Context, id parking.ContractID) error {
	result := store.db.WithContext(ctx).Where("contract_id = ?", id.String()).Delete(&Contract{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectContract, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectContract, errorCodeDelete, parking.ErrContractNotFound)
	}
	return nil
}

func (store *Store) CreatePayment(ctx context.Context, payment parking.Payment) error {
	model := Payment{
		PaymentID:   payment.ID.String(),
		ContractID:  payment.Contract.String(),
		ClientID:    payment.Client.String(),
		AmountCents: payment.AmountCents.Int64(),
		PaidOn:      payment.PaidOn,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		if violatesConstraint(err, "contract") {
			return wrapStoreError(errorSubjectPayment, errorCodeDuplicate, parking.ErrAlreadyPaid)
		}
		return wrapStoreError(errorSubjectPayment, errorCodeDuplicate, parking.ErrDuplicateIdentity)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) PaymentByContract(ctx context.Context, id parking.ContractID) (parking.Payment, error) {
	var model Payment
	err := store.db.WithContext(ctx).Where("contract_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, parking.ErrPaymentNotFound)
	}
	if err != nil {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	return mapPayment(model)
}

func (store *Store) ListPaymentsByClient(ctx context.Context, payer parking.ClientID) ([]parking.Payment, error) {
	var rows []Payment
	err := store.db.WithContext(ctx).
		Where("client_id = ?", payer.String()).
		Order("paid_on DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	payments := make([]parking.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := mapPayment(row)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (store *Store) CreatePenalty(ctx context.Context, penalty parking.Penalty) error {
	model := Penalty{
		PenaltyID:   penalty.ID.String(),
		ContractID:  penalty.Contract.String(),
		AmountCents: penalty.AmountCents.Int64(),
		Description: penalty.Description,
		CreatedAt:   penalty.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPenalty, errorCodeDuplicate, parking.ErrDuplicateIdentity)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPenalty, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) ListPenaltiesByContract(ctx context.Context, id parking.ContractID) ([]parking.Penalty, error) {
	var rows []Penalty
	err := store.db.WithContext(ctx).
		Where("contract_id = ?", id.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPenalty, errorCodeList, err)
	}
	penalties := make([]parking.Penalty, 0, len(rows))
	for _, row := range rows {
		penalty, err := mapPenalty(row)
		if err != nil {
			return nil, err
		}
		penalties = append(penalties, penalty)
	}
	return penalties, nil
}

func (store *Store) GetCheckpoint(ctx context.Context, id parking.CheckpointID) (parking.Checkpoint, error) {
	var model Checkpoint
	err := store.db.WithContext(ctx).Where("checkpoint_id = ?", id.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeGet, parking.ErrCheckpointNotFound)
	}
	if err != nil {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeGet, err)
	}
	return mapCheckpoint(model)
}

// UpsertScan overwrites the previous scan for the same (contract,
// checkpoint) pair.
func (store *Store) UpsertScan(ctx context.Context, scan parking.Scan) error {
	model := CheckpointScan{
		ContractID:   scan.Contract.String(),
		CheckpointID: scan.Checkpoint.String(),
		ScannedAt:    scan.ScannedAt,
		Validity:     scan.Validity.String(),
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contract_id"}, {Name: "checkpoint_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"scanned_at", "validity"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectScan, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) FindScan(ctx context.Context, contract parking.ContractID, checkpoint parking.CheckpointID) (parking.Scan, error) {
	var model CheckpointScan
	err := store.db.WithContext(ctx).
		Where("contract_id = ? AND checkpoint_id = ?", contract.String(), checkpoint.String()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.Scan{}, wrapStoreError(errorSubjectScan, errorCodeGet, parking.ErrScanNotFound)
	}
	if err != nil {
		return parking.Scan{}, wrapStoreError(errorSubjectScan, errorCodeGet, err)
	}
	return mapScan(model)
}

func (store *Store) ListScansByContract(ctx context.Context, contract parking.ContractID) ([]parking.Scan, error) {
	var rows []CheckpointScan
	err := store.db.WithContext(ctx).
		Where("contract_id = ?", contract.String()).
		Order("scanned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectScan, errorCodeList, err)
	}
	scans := make([]parking.Scan, 0, len(rows))
	for _, row := range rows {
		scan, err := mapScan(row)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, nil
}

// RevokeToken persists a JWT identifier until its natural expiry.
func (store *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	model := RevokedToken{JTI: jti, ExpiresAt: expiresAt}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectToken, errorCodeRevoke, err)
	}
	return nil
}

// TokenRevoked reports whether the JWT identifier has been revoked.
func (store *Store) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectToken, errorCodeLookup, err)
	}
	return count > 0, nil
}

// PurgeExpiredTokens removes revocation rows whose tokens have expired
// anyway.
func (store *Store) PurgeExpiredTokens(ctx context.Context, now time.Time) error {
	err := store.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&RevokedToken{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectToken, errorCodeDelete, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return parking.WrapError(errorOperationStore, subject, code, err)
}

func mapClient(row Client) (parking.Client, error) {
	id, err := parking.NewClientID(row.ClientID)
	if err != nil {
		return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeInvalid, err)
	}
	var cards []string
	if len(row.CardDetails) > 0 {
		if err := json.Unmarshal(row.CardDetails, &cards); err != nil {
			return parking.Client{}, wrapStoreError(errorSubjectClient, errorCodeInvalid, err)
		}
	}
	return parking.Client{
		ID:           id,
		LastName:     row.LastName,
		FirstName:    row.FirstName,
		BirthDate:    row.BirthDate,
		Email:        row.Email,
		Phone:        row.Phone,
		PasswordHash: row.PasswordHash,
		CardDetails:  cards,
	}, nil
}

func mapVehicle(row Vehicle) (parking.Vehicle, error) {
	plate, err := parking.NewPlateNumber(row.Plate)
	if err != nil {
		return parking.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	owner, err := parking.NewClientID(row.ClientID)
	if err != nil {
		return parking.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	class, err := parking.ParseVehicleClass(row.Class)
	if err != nil {
		return parking.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	return parking.Vehicle{Plate: plate, Owner: owner, Class: class, Model: row.Model}, nil
}

func mapLot(row ParkingLot) (parking.ParkingLot, error) {
	id, err := parking.NewLotID(row.LotID)
	if err != nil {
		return parking.ParkingLot{}, wrapStoreError(errorSubjectLot, errorCodeInvalid, err)
	}
	return parking.ParkingLot{ID: id, Name: row.Name, Address: row.Address, Capacity: row.Capacity}, nil
}

func mapSpot(row Spot) (parking.Spot, error) {
	id, err := parking.NewSpotID(row.SpotID)
	if err != nil {
		return parking.Spot{}, wrapStoreError(errorSubjectSpot, errorCodeInvalid, err)
	}
	lot, err := parking.NewLotID(row.LotID)
	if err != nil {
		return parking.Spot{}, wrapStoreError(errorSubjectSpot, errorCodeInvalid, err)
	}
	class, err := parking.ParseVehicleClass(row.Class)
	if err != nil {
		return parking.Spot{}, wrapStoreError(errorSubjectSpot, errorCodeInvalid, err)
	}
	return parking.Spot{ID: id, Lot: lot, Available: row.Available, Class: class}, nil
}

func mapCheckpoint(row Checkpoint) (parking.Checkpoint, error) {
	id, err := parking.NewCheckpointID(row.CheckpointID)
	if err != nil {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	lot, err := parking.NewLotID(row.LotID)
	if err != nil {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	direction, err := parking.ParseCheckpointDirection(row.Direction)
	if err != nil {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	state, err := parking.ParseCheckpointState(row.State)
	if err != nil {
		return parking.Checkpoint{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	return parking.Checkpoint{ID: id, Lot: lot, Direction: direction, State: state}, nil
}

func mapContract(row Contract) (parking.Contract, error) {
	id, err := parking.NewContractID(row.ContractID)
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	plate, err := parking.NewPlateNumber(row.Plate)
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	spot, err := parking.NewSpotID(row.SpotID)
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	state, err := parking.ParseContractState(row.State)
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	contractType, err := parking.ParseContractType(row.Type)
	if err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	contract := parking.Contract{
		ID:      id,
		Vehicle: plate,
		Spot:    spot,
		Start:   row.StartAt,
		End:     row.EndAt,
		State:   state,
		Type:    contractType,
	}
	switch contractType {
	case parking.TypeSubscription:
		if row.MonthlyTariffCents == nil || row.Renewable == nil {
			return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, parking.ErrInvalidContractType)
		}
		monthly, err := parking.NewAmountCents(*row.MonthlyTariffCents)
		if err != nil {
			return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
		}
		contract.Subscription = &parking.SubscriptionTerms{MonthlyTariffCents: monthly, Renewable: *row.Renewable}
	case parking.TypeHourlyTicket:
		if row.DurationHours == nil || row.HourlyTariffCents == nil {
			return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, parking.ErrInvalidContractType)
		}
		hourly, err := parking.NewAmountCents(*row.HourlyTariffCents)
		if err != nil {
			return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
		}
		contract.Hourly = &parking.HourlyTicketTerms{DurationHours: *row.DurationHours, HourlyTariffCents: hourly}
	}
	if err := contract.Validate(); err != nil {
		return parking.Contract{}, wrapStoreError(errorSubjectContract, errorCodeInvalid, err)
	}
	return contract, nil
}

func mapPayment(row Payment) (parking.Payment, error) {
	id, err := parking.NewPaymentID(row.PaymentID)
	if err != nil {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	contract, err := parking.NewContractID(row.ContractID)
	if err != nil {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	client, err := parking.NewClientID(row.ClientID)
	if err != nil {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	amount, err := parking.NewAmountCents(row.AmountCents)
	if err != nil {
		return parking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	return parking.Payment{ID: id, Contract: contract, Client: client, AmountCents: amount, PaidOn: row.PaidOn}, nil
}

func mapPenalty(row Penalty) (parking.Penalty, error) {
	id, err := parking.NewPenaltyID(row.PenaltyID)
	if err != nil {
		return parking.Penalty{}, wrapStoreError(errorSubjectPenalty, errorCodeInvalid, err)
	}
	contract, err := parking.NewContractID(row.ContractID)
	if err != nil {
		return parking.Penalty{}, wrapStoreError(errorSubjectPenalty, errorCodeInvalid, err)
	}
	amount, err := parking.NewAmountCents(row.AmountCents)
	if err != nil {
		return parking.Penalty{}, wrapStoreError(errorSubjectPenalty, errorCodeInvalid, err)
	}
	return parking.Penalty{
		ID:          id,
		Contract:    contract,
		AmountCents: amount,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func mapScan(row CheckpointScan) (parking.Scan, error) {
	contract, err := parking.NewContractID(row.ContractID)
	if err != nil {
		return parking.Scan{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	checkpoint, err := parking.NewCheckpointID(row.CheckpointID)
	if err != nil {
		return parking.Scan{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	validity, err := parking.ParseScanValidity(row.Validity)
	if err != nil {
		return parking.Scan{}, wrapStoreError(errorSubjectScan, errorCodeInvalid, err)
	}
	return parking.Scan{Contract: contract, Checkpoint: checkpoint, ScannedAt: row.ScannedAt, Validity: validity}, nil
}

func cardDetailsJSON(cards []string) (datatypes.JSON, error) {
	if cards == nil {
		cards = []string{}
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqliteUniqueConstraintCode || code == sqlitePrimaryKeyConstraintCode
	}
	return false
}

// violatesConstraint reports whether a unique violation names the given
// column or constraint fragment. Postgres carries the constraint name,
// sqlite spells the column in its message.
func violatesConstraint(err error, fragment string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, fragment)
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), fragment)
	}
	return strings.Contains(err.Error(), fragment)
}
