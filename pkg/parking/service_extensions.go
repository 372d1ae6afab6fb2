package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RegisterClientInput carries validated-on-entry registration fields.
// PasswordHash is produced by the credential service; the domain never sees
// the plaintext password.
type RegisterClientInput struct {
	LastName     string
	FirstName    string
	BirthDate    time.Time
	Email        string
	Phone        string
	PasswordHash string
	CardDetails  []string
}

// RegisterClient creates a client with a fresh CL identifier. The email
// uniqueness pre-check is advisory; the storage constraint decides races.
func (service *Service) RegisterClient(ctx context.Context, input RegisterClientInput) (Client, error) {
	client, operationError := service.registerClient(ctx, input)
	service.logOperation(ctx, OperationLog{
		Operation: operationRegisterClient,
		Client:    client.ID,
		Error:     operationError,
	})
	return client, operationError
}

func (service *Service) registerClient(ctx context.Context, input RegisterClientInput) (Client, error) {
	if strings.TrimSpace(input.LastName) == "" || strings.TrimSpace(input.FirstName) == "" {
		return Client{}, fmt.Errorf("%w: name fields are required", ErrInvalidField)
	}
	if strings.TrimSpace(input.PasswordHash) == "" {
		return Client{}, fmt.Errorf("%w: password hash is required", ErrInvalidField)
	}
	email, err := ValidateEmail(input.Email)
	if err != nil {
		return Client{}, err
	}
	phone, err := ValidatePhone(input.Phone)
	if err != nil {
		return Client{}, err
	}
	if !input.BirthDate.Before(service.nowFn()) {
		return Client{}, ErrInvalidBirthDate
	}

	var created Client
	insert := func(ctx context.Context, tx Store) error {
		_, err := tx.ClientByEmail(ctx, email)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !errors.Is(err, ErrClientNotFound) {
			return err
		}
		rawID, err := service.ids.Generate(ctx, IdentityClient)
		if err != nil {
			return err
		}
		clientID, err := NewClientID(rawID)
		if err != nil {
			return err
		}
		client := Client{
			ID:           clientID,
			LastName:     strings.TrimSpace(input.LastName),
			FirstName:    strings.TrimSpace(input.FirstName),
			BirthDate:    input.BirthDate,
			Email:        email,
			Phone:        phone,
			PasswordHash: input.PasswordHash,
			CardDetails:  input.CardDetails,
		}
		if err := tx.CreateClient(ctx, client); err != nil {
			return err
		}
		created = client
		return nil
	}
	if err := service.retryOnIdentityRace(ctx, insert); err != nil {
		return Client{}, err
	}
	return created, nil
}

// ClientByID fetches a client profile.
func (service *Service) ClientByID(ctx context.Context, id ClientID) (Client, error) {
	return service.store.GetClient(ctx, id)
}

// ClientByEmail fetches a client by normalized email.
func (service *Service) ClientByEmail(ctx context.Context, email string) (Client, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return Client{}, err
	}
	return service.store.ClientByEmail(ctx, normalized)
}

// AddVehicle registers a vehicle under the caller.
func (service *Service) AddVehicle(ctx context.Context, caller ClientID, plate PlateNumber, class VehicleClass, model string) (Vehicle, error) {
	vehicle := Vehicle{Plate: plate, Owner: caller, Class: class, Model: strings.TrimSpace(model)}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		_, err := tx.GetVehicle(ctx, plate)
		if err == nil {
			return ErrDuplicateVehicle
		}
		if !errors.Is(err, ErrVehicleNotFound) {
			return err
		}
		return tx.CreateVehicle(ctx, vehicle)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationAddVehicle,
		Client:    caller,
		Error:     operationError,
	})
	if operationError != nil {
		return Vehicle{}, operationError
	}
	return vehicle, nil
}

// VehiclesByClient lists the caller's vehicles.
func (service *Service) VehiclesByClient(ctx context.Context, caller ClientID) ([]Vehicle, error) {
	return service.store.ListVehiclesByClient(ctx, caller)
}

// RemoveVehicle deletes one of the caller's vehicles. Spots held by the
// vehicle's contracts are released first; the contracts and their dependent
// rows are then removed by the storage cascade.
func (service *Service) RemoveVehicle(ctx context.Context, caller ClientID, plate PlateNumber) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		vehicle, err := tx.GetVehicle(ctx, plate)
		if err != nil {
			return err
		}
		if vehicle.Owner != caller {
			return ErrVehicleNotOwned
		}
		contracts, err := tx.ListContractsByVehicle(ctx, plate)
		if err != nil {
			return err
		}
		for _, contract := range contracts {
			if err := tx.ReleaseSpot(ctx, contract.Spot); err != nil {
				return err
			}
		}
		return tx.DeleteVehicle(ctx, plate)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRemoveVehicle,
		Client:    caller,
		Error:     operationError,
	})
	return operationError
}

// Lots lists all parking lots.
func (service *Service) Lots(ctx context.Context) ([]ParkingLot, error) {
	return service.store.ListLots(ctx)
}

// Spots lists all spots.
func (service *Service) Spots(ctx context.Context) ([]Spot, error) {
	return service.store.ListSpots(ctx)
}

// SpotAvailable reports whether a spot is currently free.
func (service *Service) SpotAvailable(ctx context.Context, id SpotID) (bool, error) {
	spot, err := service.store.GetSpot(ctx, id)
	if err != nil {
		return false, err
	}
	return spot.Available, nil
}

// CountAvailable counts free spots under the given filter. Counts are
// computed at read time against committed rows; nothing is materialized.
func (service *Service) CountAvailable(ctx context.Context, filter AvailabilityFilter) (int64, error) {
	return service.store.CountAvailable(ctx, filter)
}

// RecordScan upserts a checkpoint scan for one of the caller's contracts.
// A repeated scan at the same checkpoint overwrites the previous row.
func (service *Service) RecordScan(ctx context.Context, caller ClientID, scan Scan) error {
	if _, err := ParseScanValidity(scan.Validity.String()); err != nil {
		return err
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		contract, err := tx.GetContract(ctx, scan.Contract)
		if err != nil {
			return err
		}
		vehicle, err := tx.GetVehicle(ctx, contract.Vehicle)
		if err != nil {
			return err
		}
		if vehicle.Owner != caller {
			return ErrContractNotOwned
		}
		checkpoint, err := tx.GetCheckpoint(ctx, scan.Checkpoint)
		if err != nil {
			return err
		}
		if checkpoint.State != CheckpointActive {
			return ErrCheckpointInactive
		}
		return tx.UpsertScan(ctx, scan)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordScan,
		Client:    caller,
		Contract:  scan.Contract,
		Error:     operationError,
	})
	return operationError
}

// ScanHistory lists all scans for a contract, oldest first.
func (service *Service) ScanHistory(ctx context.Context, contractID ContractID) ([]Scan, error) {
	return service.store.ListScansByContract(ctx, contractID)
}

// FindScan fetches the scan recorded for a (contract, checkpoint) pair.
func (service *Service) FindScan(ctx context.Context, contractID ContractID, checkpointID CheckpointID) (Scan, error) {
	return service.store.FindScan(ctx, contractID, checkpointID)
}

// AddPenalty charges a contract with a fresh PNL identifier.
func (service *Service) AddPenalty(ctx context.Context, contractID ContractID, amountCents int64, description string) (Penalty, error) {
	var penalty Penalty
	insert := func(ctx context.Context, tx Store) error {
		if _, err := tx.GetContract(ctx, contractID); err != nil {
			return err
		}
		amount, err := NewAmountCents(amountCents)
		if err != nil {
			return err
		}
		rawID, err := service.ids.Generate(ctx, IdentityPenalty)
		if err != nil {
			return err
		}
		penaltyID, err := NewPenaltyID(rawID)
		if err != nil {
			return err
		}
		penalty = Penalty{
			ID:          penaltyID,
			Contract:    contractID,
			AmountCents: amount,
			Description: strings.TrimSpace(description),
			CreatedAt:   service.nowFn().UTC(),
		}
		return tx.CreatePenalty(ctx, penalty)
	}
	operationError := service.retryOnIdentityRace(ctx, insert)
	service.logOperation(ctx, OperationLog{
		Operation: operationAddPenalty,
		Contract:  contractID,
		Amount:    penalty.AmountCents,
		Error:     operationError,
	})
	if operationError != nil {
		return Penalty{}, operationError
	}
	return penalty, nil
}

// PenaltiesByContract lists penalties charged to a contract.
func (service *Service) PenaltiesByContract(ctx context.Context, contractID ContractID) ([]Penalty, error) {
	return service.store.ListPenaltiesByContract(ctx, contractID)
}
