package parking

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service contains the domain logic over a Store.
type Service struct {
	store  Store
	ids    *IdentityGenerator
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	if service.ids == nil {
		generator, err := NewIdentityGenerator(store)
		if err != nil {
			return nil, err
		}
		service.ids = generator
	}
	return service, nil
}

// CreateContractInput carries the caller-supplied contract parameters.
// DurationUnits is interpreted as days for subscriptions and hours for
// hourly tickets. Zero tariff overrides fall back to the default tariffs.
type CreateContractInput struct {
	Vehicle            PlateNumber
	Spot               SpotID
	Lot                LotID
	Type               ContractType
	Start              time.Time
	DurationUnits      int64
	MonthlyTariffCents int64
	HourlyTariffCents  int64
	Renewable          *bool
}

// CreateContract books an available spot for one of the caller's vehicles.
// The contract row, its terms row, and the spot availability flip commit in
// one transaction or not at all.
func (service *Service) CreateContract(ctx context.Context, caller ClientID, input CreateContractInput) (Contract, error) {
	contract, operationError := service.createContract(ctx, caller, input)
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateContract,
		Client:    caller,
		Contract:  contract.ID,
		Spot:      input.Spot,
		Error:     operationError,
	})
	return contract, operationError
}

func (service *Service) createContract(ctx context.Context, caller ClientID, input CreateContractInput) (Contract, error) {
	if input.DurationUnits <= 0 {
		return Contract{}, fmt.Errorf("%w: %d units", ErrInvalidDuration, input.DurationUnits)
	}
	if _, err := ParseContractType(input.Type.String()); err != nil {
		return Contract{}, err
	}
	terms, err := buildTerms(input)
	if err != nil {
		return Contract{}, err
	}

	var created Contract
	insert := func(ctx context.Context, tx Store) error {
		vehicle, err := tx.GetVehicle(ctx, input.Vehicle)
		if err != nil {
			return err
		}
		if vehicle.Owner != caller {
			return ErrVehicleNotOwned
		}
		if _, err := tx.GetLot(ctx, input.Lot); err != nil {
			return err
		}
		spot, err := tx.GetSpot(ctx, input.Spot)
		if err != nil {
			return err
		}
		if spot.Lot != input.Lot {
			return ErrSpotNotInLot
		}
		if !spot.Available {
			return ErrSpotUnavailable
		}
		rawID, err := service.ids.Generate(ctx, IdentityContract)
		if err != nil {
			return err
		}
		contractID, err := NewContractID(rawID)
		if err != nil {
			return err
		}
		contract := Contract{
			ID:           contractID,
			Vehicle:      input.Vehicle,
			Spot:         input.Spot,
			Start:        input.Start,
			End:          endTime(input),
			State:        StateActive,
			Type:         input.Type,
			Subscription: terms.subscription,
			Hourly:       terms.hourly,
		}
		if err := contract.Validate(); err != nil {
			return err
		}
		if err := tx.ReserveSpot(ctx, input.Spot); err != nil {
			return err
		}
		if err := tx.CreateContract(ctx, contract); err != nil {
			return err
		}
		created = contract
		return nil
	}
	if err := service.retryOnIdentityRace(ctx, insert); err != nil {
		return Contract{}, err
	}
	return created, nil
}

// TerminateContract releases the bound spot and removes the contract with its
// terms row in one transaction. Dependent payments, penalties, and scans are
// removed by the storage cascade.
func (service *Service) TerminateContract(ctx context.Context, caller ClientID, contractID ContractID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		contract, err := tx.GetContract(ctx, contractID)
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
		if err := tx.ReleaseSpot(ctx, contract.Spot); err != nil {
			return err
		}
		return tx.DeleteContract(ctx, contractID)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationTerminateContract,
		Client:    caller,
		Contract:  contractID,
		Error:     operationError,
	})
	return operationError
}

// Pay settles a contract exactly once. Subscriptions pay the flat monthly
// tariff; hourly tickets pay tariff times the contracted duration.
func (service *Service) Pay(ctx context.Context, caller ClientID, contractID ContractID) (Payment, error) {
	var payment Payment
	insert := func(ctx context.Context, tx Store) error {
		contract, err := tx.GetContract(ctx, contractID)
		if err != nil {
			return err
		}
		_, err = tx.PaymentByContract(ctx, contractID)
		if err == nil {
			return ErrAlreadyPaid
		}
		if !errors.Is(err, ErrPaymentNotFound) {
			return err
		}
		amount, err := contract.PriceCents()
		if err != nil {
			return err
		}
		rawID, err := service.ids.Generate(ctx, IdentityPayment)
		if err != nil {
			return err
		}
		paymentID, err := NewPaymentID(rawID)
		if err != nil {
			return err
		}
		payment = Payment{
			ID:          paymentID,
			Contract:    contractID,
			Client:      caller,
			AmountCents: amount,
			PaidOn:      service.nowFn().UTC().Truncate(24 * time.Hour),
		}
		return tx.CreatePayment(ctx, payment)
	}
	operationError := service.retryOnIdentityRace(ctx, insert)
	service.logOperation(ctx, OperationLog{
		Operation: operationPay,
		Client:    caller,
		Contract:  contractID,
		Amount:    payment.AmountCents,
		Error:     operationError,
	})
	if operationError != nil {
		return Payment{}, operationError
	}
	return payment, nil
}

// Contract fetches a single contract.
func (service *Service) Contract(ctx context.Context, contractID ContractID) (Contract, error) {
	return service.store.GetContract(ctx, contractID)
}

// ContractsByClient lists the contracts attached to the caller's vehicles.
func (service *Service) ContractsByClient(ctx context.Context, caller ClientID) ([]Contract, error) {
	return service.store.ListContractsByClient(ctx, caller)
}

// PaymentsByClient lists payments made by the caller.
func (service *Service) PaymentsByClient(ctx context.Context, caller ClientID) ([]Payment, error) {
	return service.store.ListPaymentsByClient(ctx, caller)
}

// retryOnIdentityRace reruns fn in a fresh transaction when an insert lost a
// race on a generated identifier. Each attempt re-generates its identifiers,
// so a bounded number of retries suffices.
func (service *Service) retryOnIdentityRace(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	var lastError error
	for attempt := 0; attempt < maxIdentityInsertAttempts; attempt++ {
		lastError = service.store.WithTx(ctx, fn)
		if !errors.Is(lastError, ErrDuplicateIdentity) {
			return lastError
		}
	}
	return lastError
}

type contractTerms struct {
	subscription *SubscriptionTerms
	hourly       *HourlyTicketTerms
}

func buildTerms(input CreateContractInput) (contractTerms, error) {
	switch input.Type {
	case TypeSubscription:
		tariff := defaultMonthlyTariffCents
		if input.MonthlyTariffCents != 0 {
			validated, err := NewAmountCents(input.MonthlyTariffCents)
			if err != nil {
				return contractTerms{}, err
			}
			tariff = validated
		}
		renewable := true
		if input.Renewable != nil {
			renewable = *input.Renewable
		}
		return contractTerms{subscription: &SubscriptionTerms{
			MonthlyTariffCents: tariff,
			Renewable:          renewable,
		}}, nil
	case TypeHourlyTicket:
		tariff := defaultHourlyTariffCents
		if input.HourlyTariffCents != 0 {
			validated, err := NewAmountCents(input.HourlyTariffCents)
			if err != nil {
				return contractTerms{}, err
			}
			tariff = validated
		}
		return contractTerms{hourly: &HourlyTicketTerms{
			DurationHours:     input.DurationUnits,
			HourlyTariffCents: tariff,
		}}, nil
	}
	return contractTerms{}, fmt.Errorf("%w: %q", ErrInvalidContractType, input.Type)
}

func endTime(input CreateContractInput) time.Time {
	if input.Type == TypeSubscription {
		return input.Start.Add(time.Duration(input.DurationUnits) * 24 * time.Hour)
	}
	return input.Start.Add(time.Duration(input.DurationUnits) * time.Hour)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
