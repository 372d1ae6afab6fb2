package gormstore

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Client mirrors the clients table.
type Client struct {
	ClientID     string         `gorm:"primaryKey"`
	LastName     string         `gorm:"not null"`
	FirstName    string         `gorm:"not null"`
	BirthDate    time.Time      `gorm:"not null"`
	Email        string         `gorm:"not null;uniqueIndex:uniq_clients_email"`
	Phone        string         `gorm:"not null"`
	PasswordHash string         `gorm:"not null"`
	CardDetails  datatypes.JSON `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null"`

	Vehicles []Vehicle `gorm:"foreignKey:ClientID;references:ClientID;constraint:OnDelete:CASCADE"`
}

func (Client) TableName() string { return "clients" }

// Vehicle mirrors the vehicles table.
type Vehicle struct {
	Plate     string    `gorm:"primaryKey"`
	ClientID  string    `gorm:"not null;index:idx_vehicles_client"`
	Class     string    `gorm:"not null"`
	Model     string    `gorm:""`
	CreatedAt time.Time `gorm:"not null"`

	Contracts []Contract `gorm:"foreignKey:Plate;references:Plate;constraint:OnDelete:CASCADE"`
}

func (Vehicle) TableName() string { return "vehicles" }

// ParkingLot mirrors the parking_lots table.
type ParkingLot struct {
	LotID    string `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Address  string `gorm:"not null"`
	Capacity int    `gorm:"not null"`

	Spots       []Spot       `gorm:"foreignKey:LotID;references:LotID;constraint:OnDelete:CASCADE"`
	Checkpoints []Checkpoint `gorm:"foreignKey:LotID;references:LotID;constraint:OnDelete:CASCADE"`
}

func (ParkingLot) TableName() string { return "parking_lots" }

// Checkpoint mirrors the checkpoints table.
type Checkpoint struct {
	CheckpointID string `gorm:"primaryKey"`
	LotID        string `gorm:"not null;index:idx_checkpoints_lot"`
	Direction    string `gorm:"not null"`
	State        string `gorm:"not null"`

	Scans []CheckpointScan `gorm:"foreignKey:CheckpointID;references:CheckpointID;constraint:OnDelete:CASCADE"`
}

func (Checkpoint) TableName() string { return "checkpoints" }

// Spot mirrors the spots table.
type Spot struct {
	SpotID    string `gorm:"primaryKey"`
	LotID     string `gorm:"not null;index:idx_spots_lot"`
	Available bool   `gorm:"not null"`
	Class     string `gorm:"not null"`

	Contracts []Contract `gorm:"foreignKey:SpotID;references:SpotID;constraint:OnDelete:CASCADE"`
}

func (Spot) TableName() string { return "spots" }

// Contract mirrors the contracts table. The subscription and hourly
// tariff columns are nullable; the type column says which set is live.
// Payments, penalties, and scans hang off the contract and are removed
// with it by the cascade.
type Contract struct {
	ContractID         string    `gorm:"primaryKey"`
	Plate              string    `gorm:"not null;index:idx_contracts_plate"`
	SpotID             string    `gorm:"not null;index:idx_contracts_spot"`
	StartAt            time.Time `gorm:"not null"`
	EndAt              time.Time `gorm:"not null"`
	State              string    `gorm:"not null"`
	Type               string    `gorm:"not null"`
	MonthlyTariffCents *int64    `gorm:""`
	Renewable          *bool     `gorm:""`
	DurationHours      *int64    `gorm:""`
	HourlyTariffCents  *int64    `gorm:""`
	CreatedAt          time.Time `gorm:"not null"`

	Payments  []Payment        `gorm:"foreignKey:ContractID;references:ContractID;constraint:OnDelete:CASCADE"`
	Penalties []Penalty        `gorm:"foreignKey:ContractID;references:ContractID;constraint:OnDelete:CASCADE"`
	Scans     []CheckpointScan `gorm:"foreignKey:ContractID;references:ContractID;constraint:OnDelete:CASCADE"`
}

func (Contract) TableName() string { return "contracts" }

// Payment mirrors the payments table. The unique index on contract_id
// keeps a contract settled at most once.
type Payment struct {
	PaymentID   string    `gorm:"primaryKey"`
	ContractID  string    `gorm:"not null;uniqueIndex:uniq_payments_contract"`
	ClientID    string    `gorm:"not null;index:idx_payments_client"`
	AmountCents int64     `gorm:"not null"`
	PaidOn      time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Penalty mirrors the penalties table.
type Penalty struct {
	PenaltyID   string    `gorm:"primaryKey"`
	ContractID  string    `gorm:"not null;index:idx_penalties_contract"`
	AmountCents int64     `gorm:"not null"`
	Description string    `gorm:""`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Penalty) TableName() string { return "penalties" }

// CheckpointScan mirrors the checkpoint_scans table; one row per
// (contract, checkpoint) pair, overwritten on every new scan.
type CheckpointScan struct {
	ContractID   string    `gorm:"primaryKey"`
	CheckpointID string    `gorm:"primaryKey"`
	ScannedAt    time.Time `gorm:"not null"`
	Validity     string    `gorm:"not null"`
}

func (CheckpointScan) TableName() string { return "checkpoint_scans" }

// RevokedToken mirrors the revoked_tokens table backing logout.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;column:jti"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Client{},
		&Vehicle{},
		&ParkingLot{},
		&Checkpoint{},
		&Spot{},
		&Contract{},
		&Payment{},
		&Penalty{},
		&CheckpointScan{},
		&RevokedToken{},
	)
}
