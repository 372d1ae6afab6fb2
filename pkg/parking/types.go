package parking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AmountCents is an integer currency in cents.
type AmountCents int64

// NewAmountCents validates an amount and ensures it is strictly positive.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cent value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// ClientID identifies a registered client (CL + 5 digits).
type ClientID struct {
	value string
}

// ContractID identifies a contract (CT + 5 digits).
type ContractID struct {
	value string
}

// PaymentID identifies a payment (PMT + 4 digits).
type PaymentID struct {
	value string
}

// PenaltyID identifies a penalty (PNL + 4 digits).
type PenaltyID struct {
	value string
}

// LotID identifies a parking lot (P + 5 alphanumerics).
type LotID struct {
	value string
}

// SpotID identifies a parking spot (4 alphanumerics).
type SpotID struct {
	value string
}

// CheckpointID identifies an entry/exit checkpoint (B + 4 digits).
type CheckpointID struct {
	value string
}

// PlateNumber identifies a vehicle by its registration plate (XX-000-XX).
type PlateNumber struct {
	value string
}

var (
	clientIDPattern     = regexp.MustCompile(`^CL[0-9]{5}$`)
	contractIDPattern   = regexp.MustCompile(`^CT[0-9]{5}$`)
	paymentIDPattern    = regexp.MustCompile(`^PMT[0-9]{4}$`)
	penaltyIDPattern    = regexp.MustCompile(`^PNL[0-9]{4}$`)
	lotIDPattern        = regexp.MustCompile(`^P[A-Z0-9]{5}$`)
	spotIDPattern       = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	checkpointIDPattern = regexp.MustCompile(`^B[0-9]{4}$`)
	platePattern        = regexp.MustCompile(`^[A-Z]{2}-[0-9]{3}-[A-Z]{2}$`)
	emailPattern        = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phonePattern        = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// NewClientID validates and normalizes a client id.
// Fixed-width storage may pad identifiers; padding is trimmed first.
func NewClientID(raw string) (ClientID, error) {
	trimmed := strings.TrimSpace(raw)
	if !clientIDPattern.MatchString(trimmed) {
		return ClientID{}, fmt.Errorf("%w: %q", ErrInvalidClientID, raw)
	}
	return ClientID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ClientID) String() string {
	return id.value
}

// NewContractID validates and normalizes a contract id.
func NewContractID(raw string) (ContractID, error) {
	trimmed := strings.TrimSpace(raw)
	if !contractIDPattern.MatchString(trimmed) {
		return ContractID{}, fmt.Errorf("%w: %q", ErrInvalidContractID, raw)
	}
	return ContractID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ContractID) String() string {
	return id.value
}

// NewPaymentID validates and normalizes a payment id.
func NewPaymentID(raw string) (PaymentID, error) {
	trimmed := strings.TrimSpace(raw)
	if !paymentIDPattern.MatchString(trimmed) {
		return PaymentID{}, fmt.Errorf("%w: %q", ErrInvalidPaymentID, raw)
	}
	return PaymentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PaymentID) String() string {
	return id.value
}

// NewPenaltyID validates and normalizes a penalty id.
func NewPenaltyID(raw string) (PenaltyID, error) {
	trimmed := strings.TrimSpace(raw)
	if !penaltyIDPattern.MatchString(trimmed) {
		return PenaltyID{}, fmt.Errorf("%w: %q", ErrInvalidPenaltyID, raw)
	}
	return PenaltyID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PenaltyID) String() string {
	return id.value
}

// NewLotID validates and normalizes a parking lot id.
func NewLotID(raw string) (LotID, error) {
	trimmed := strings.TrimSpace(raw)
	if !lotIDPattern.MatchString(trimmed) {
		return LotID{}, fmt.Errorf("%w: %q", ErrInvalidLotID, raw)
	}
	return LotID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id LotID) String() string {
	return id.value
}

// NewSpotID validates and normalizes a spot id.
func NewSpotID(raw string) (SpotID, error) {
	trimmed := strings.TrimSpace(raw)
	if !spotIDPattern.MatchString(trimmed) {
		return SpotID{}, fmt.Errorf("%w: %q", ErrInvalidSpotID, raw)
	}
	return SpotID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id SpotID) String() string {
	return id.value
}

// NewCheckpointID validates and normalizes a checkpoint id.
func NewCheckpointID(raw string) (CheckpointID, error) {
	trimmed := strings.TrimSpace(raw)
	if !checkpointIDPattern.MatchString(trimmed) {
		return CheckpointID{}, fmt.Errorf("%w: %q", ErrInvalidCheckpointID, raw)
	}
	return CheckpointID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id CheckpointID) String() string {
	return id.value
}

// NewPlateNumber validates and normalizes a plate number.
func NewPlateNumber(raw string) (PlateNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if !platePattern.MatchString(trimmed) {
		return PlateNumber{}, fmt.Errorf("%w: %q", ErrInvalidPlate, raw)
	}
	return PlateNumber{value: trimmed}, nil
}

// String returns the normalized plate.
func (plate PlateNumber) String() string {
	return plate.value
}

// ValidateEmail normalizes and checks an email address.
func ValidateEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !emailPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return trimmed, nil
}

// ValidatePhone normalizes and checks a phone number.
func ValidatePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !phonePattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return trimmed, nil
}

// VehicleClass tags vehicles and spots by size category.
type VehicleClass string

const (
	ClassCar        VehicleClass = "car"
	ClassMotorcycle VehicleClass = "motorcycle"
	ClassBus        VehicleClass = "bus"
	ClassTruck      VehicleClass = "truck"
)

// ParseVehicleClass validates a raw vehicle class.
func ParseVehicleClass(raw string) (VehicleClass, error) {
	switch VehicleClass(raw) {
	case ClassCar, ClassMotorcycle, ClassBus, ClassTruck:
		return VehicleClass(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVehicleClass, raw)
}

// String returns the class tag.
func (class VehicleClass) String() string {
	return string(class)
}

// ContractType discriminates the contract variant.
type ContractType string

const (
	TypeSubscription ContractType = "subscription"
	TypeHourlyTicket ContractType = "hourly-ticket"
)

// ParseContractType validates a raw contract type.
func ParseContractType(raw string) (ContractType, error) {
	switch ContractType(raw) {
	case TypeSubscription, TypeHourlyTicket:
		return ContractType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidContractType, raw)
}

// String returns the type tag.
func (contractType ContractType) String() string {
	return string(contractType)
}

// ContractState defines the contract lifecycle.
type ContractState string

const (
	StateActive     ContractState = "active"
	StateExpired    ContractState = "expired"
	StateTerminated ContractState = "terminated"
)

// ParseContractState validates a raw contract state.
func ParseContractState(raw string) (ContractState, error) {
	switch ContractState(raw) {
	case StateActive, StateExpired, StateTerminated:
		return ContractState(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidContractState, raw)
}

// String returns the state tag.
func (state ContractState) String() string {
	return string(state)
}

// CheckpointDirection distinguishes entry from exit checkpoints.
type CheckpointDirection string

const (
	DirectionEntry CheckpointDirection = "entry"
	DirectionExit  CheckpointDirection = "exit"
)

// ParseCheckpointDirection validates a raw direction.
func ParseCheckpointDirection(raw string) (CheckpointDirection, error) {
	switch CheckpointDirection(raw) {
	case DirectionEntry, DirectionExit:
		return CheckpointDirection(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, raw)
}

// CheckpointState defines checkpoint operational states.
type CheckpointState string

const (
	CheckpointActive       CheckpointState = "active"
	CheckpointMaintenance  CheckpointState = "in-maintenance"
	CheckpointOutOfService CheckpointState = "out-of-service"
)

// ParseCheckpointState validates a raw operational state.
func ParseCheckpointState(raw string) (CheckpointState, error) {
	switch CheckpointState(raw) {
	case CheckpointActive, CheckpointMaintenance, CheckpointOutOfService:
		return CheckpointState(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCheckpoint, raw)
}

// ScanValidity classifies a recorded checkpoint scan.
type ScanValidity string

const (
	ScanInProgressEntry ScanValidity = "in-progress-entry"
	ScanInProgressExit  ScanValidity = "in-progress-exit"
	ScanOverdue         ScanValidity = "overdue"
)

// ParseScanValidity validates a raw validity state.
func ParseScanValidity(raw string) (ScanValidity, error) {
	switch ScanValidity(raw) {
	case ScanInProgressEntry, ScanInProgressExit, ScanOverdue:
		return ScanValidity(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidValidity, raw)
}

// String returns the validity tag.
func (validity ScanValidity) String() string {
	return string(validity)
}

// Client is a registered account owner.
type Client struct {
	ID           ClientID
	LastName     string
	FirstName    string
	BirthDate    time.Time
	Email        string
	Phone        string
	PasswordHash string
	CardDetails  []string
}

// ParkingLot groups spots and checkpoints under one address.
type ParkingLot struct {
	ID       LotID
	Name     string
	Address  string
	Capacity int
}

// Checkpoint is a physical entry or exit scanning point within a lot.
type Checkpoint struct {
	ID        CheckpointID
	Lot       LotID
	Direction CheckpointDirection
	State     CheckpointState
}

// Spot is a single parking space.
// Available is false if and only if exactly one active contract binds it.
type Spot struct {
	ID        SpotID
	Lot       LotID
	Available bool
	Class     VehicleClass
}

// Vehicle belongs to exactly one client.
type Vehicle struct {
	Plate PlateNumber
	Owner ClientID
	Class VehicleClass
	Model string
}

// SubscriptionTerms prices a subscription contract.
type SubscriptionTerms struct {
	MonthlyTariffCents AmountCents
	Renewable          bool
}

// HourlyTicketTerms prices an hourly-ticket contract.
type HourlyTicketTerms struct {
	DurationHours     int64
	HourlyTariffCents AmountCents
}

// Contract books one spot for one vehicle over a priced duration.
// Exactly one of Subscription/Hourly is set, matching Type.
type Contract struct {
	ID           ContractID
	Vehicle      PlateNumber
	Spot         SpotID
	Start        time.Time
	End          time.Time
	State        ContractState
	Type         ContractType
	Subscription *SubscriptionTerms
	Hourly       *HourlyTicketTerms
}

// Validate checks the contract invariants.
func (contract Contract) Validate() error {
	if contract.End.Before(contract.Start) {
		return fmt.Errorf("%w: end precedes start", ErrInvalidDuration)
	}
	switch contract.Type {
	case TypeSubscription:
		if contract.Subscription == nil || contract.Hourly != nil {
			return fmt.Errorf("%w: subscription contract requires subscription terms", ErrInvalidContractType)
		}
	case TypeHourlyTicket:
		if contract.Hourly == nil || contract.Subscription != nil {
			return fmt.Errorf("%w: hourly-ticket contract requires hourly terms", ErrInvalidContractType)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidContractType, contract.Type)
	}
	return nil
}

// PriceCents settles the contract: flat monthly tariff for subscriptions,
// hourly tariff times the contracted duration for hourly tickets.
func (contract Contract) PriceCents() (AmountCents, error) {
	switch contract.Type {
	case TypeSubscription:
		if contract.Subscription == nil {
			return 0, fmt.Errorf("%w: missing subscription terms", ErrInvalidContractType)
		}
		return contract.Subscription.MonthlyTariffCents, nil
	case TypeHourlyTicket:
		if contract.Hourly == nil {
			return 0, fmt.Errorf("%w: missing hourly terms", ErrInvalidContractType)
		}
		return NewAmountCents(contract.Hourly.HourlyTariffCents.Int64() * contract.Hourly.DurationHours)
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidContractType, contract.Type)
}

// Payment settles exactly one contract and is immutable once written.
type Payment struct {
	ID          PaymentID
	Contract    ContractID
	Client      ClientID
	AmountCents AmountCents
	PaidOn      time.Time
}

// Penalty records an infraction charge against a contract.
type Penalty struct {
	ID          PenaltyID
	Contract    ContractID
	AmountCents AmountCents
	Description string
	CreatedAt   time.Time
}

// Scan correlates a contract with a checkpoint; the (contract, checkpoint)
// pair is the key and a repeated scan overwrites the previous one.
type Scan struct {
	Contract   ContractID
	Checkpoint CheckpointID
	ScannedAt  time.Time
	Validity   ScanValidity
}

// AvailabilityFilter narrows available-spot counting queries.
type AvailabilityFilter struct {
	Lot   *LotID
	Class *VehicleClass
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	IdentityExists(ctx context.Context, kind IdentityKind, id string) (bool, error)

	CreateClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id ClientID) (Client, error)
	ClientByEmail(ctx context.Context, email string) (Client, error)

	CreateVehicle(ctx context.Context, vehicle Vehicle) error
	GetVehicle(ctx context.Context, plate PlateNumber) (Vehicle, error)
	ListVehiclesByClient(ctx context.Context, owner ClientID) ([]Vehicle, error)
	DeleteVehicle(ctx context.Context, plate PlateNumber) error

	ListLots(ctx context.Context) ([]ParkingLot, error)
	GetLot(ctx context.Context, id LotID) (ParkingLot, error)

	GetSpot(ctx context.Context, id SpotID) (Spot, error)
	ListSpots(ctx context.Context) ([]Spot, error)
	ReserveSpot(ctx context.Context, id SpotID) error
	ReleaseSpot(ctx context.Context, id SpotID) error
	CountAvailable(ctx context.Context, filter AvailabilityFilter) (int64, error)

	CreateContract(ctx context.Context, contract Contract) error
	GetContract(ctx context.Context, id ContractID) (Contract, error)
	ListContractsByClient(ctx context.Context, owner ClientID) ([]Contract, error)
	ListContractsByVehicle(ctx context.Context, plate PlateNumber) ([]Contract, error)
	DeleteContract(ctx context.Context, id ContractID) error

	CreatePayment(ctx context.Context, payment Payment) error
	PaymentByContract(ctx context.Context, id ContractID) (Payment, error)
	ListPaymentsByClient(ctx context.Context, payer ClientID) ([]Payment, error)

	CreatePenalty(ctx context.Context, penalty Penalty) error
	ListPenaltiesByContract(ctx context.Context, id ContractID) ([]Penalty, error)

	GetCheckpoint(ctx context.Context, id CheckpointID) (Checkpoint, error)
	UpsertScan(ctx context.Context, scan Scan) error
	FindScan(ctx context.Context, contract ContractID, checkpoint CheckpointID) (Scan, error)
	ListScansByContract(ctx context.Context, contract ContractID) ([]Scan, error)
}
