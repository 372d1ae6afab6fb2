package parking

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the parking service.
var (
	ErrClientNotFound       = errors.New("client not found")
	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrLotNotFound          = errors.New("parking lot not found")
	ErrSpotNotFound         = errors.New("spot not found")
	ErrContractNotFound     = errors.New("contract not found")
	ErrCheckpointNotFound   = errors.New("checkpoint not found")
	ErrScanNotFound         = errors.New("scan not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrVehicleNotOwned      = errors.New("vehicle does not belong to caller")
	ErrContractNotOwned     = errors.New("contract does not belong to caller")
	ErrSpotUnavailable      = errors.New("spot is not available")
	ErrSpotNotInLot         = errors.New("spot is not in the named lot")
	ErrAlreadyPaid          = errors.New("contract already paid")
	ErrDuplicateEmail       = errors.New("email address already registered")
	ErrDuplicateVehicle     = errors.New("vehicle already registered")
	ErrDuplicateIdentity    = errors.New("generated identity already exists")
	ErrCheckpointInactive   = errors.New("checkpoint is not active")
	ErrGenerationExhausted  = errors.New("identity generation exhausted")
	ErrInvalidClientID      = errors.New("invalid client id")
	ErrInvalidContractID    = errors.New("invalid contract id")
	ErrInvalidPaymentID     = errors.New("invalid payment id")
	ErrInvalidPenaltyID     = errors.New("invalid penalty id")
	ErrInvalidLotID         = errors.New("invalid parking lot id")
	ErrInvalidSpotID        = errors.New("invalid spot id")
	ErrInvalidCheckpointID  = errors.New("invalid checkpoint id")
	ErrInvalidPlate         = errors.New("invalid plate number")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrInvalidBirthDate     = errors.New("birth date must be in the past")
	ErrInvalidVehicleClass  = errors.New("invalid vehicle class")
	ErrInvalidContractType  = errors.New("invalid contract type")
	ErrInvalidContractState = errors.New("invalid contract state")
	ErrInvalidDirection     = errors.New("invalid checkpoint direction")
	ErrInvalidCheckpoint    = errors.New("invalid checkpoint state")
	ErrInvalidValidity      = errors.New("invalid scan validity state")
	ErrInvalidDuration      = errors.New("duration must be greater than zero")
	ErrInvalidAmountCents   = errors.New("invalid amount cents")
	ErrInvalidField         = errors.New("missing or malformed field")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrBadCredentials       = errors.New("email or password does not match")
	ErrTokenInvalid         = errors.New("token is malformed or expired")
	ErrTokenRevoked         = errors.New("token has been revoked")
)

// Kind buckets every domain failure for the API boundary.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

var kindsByError = map[error]Kind{
	ErrClientNotFound:       KindNotFound,
	ErrVehicleNotFound:      KindNotFound,
	ErrLotNotFound:          KindNotFound,
	ErrSpotNotFound:         KindNotFound,
	ErrContractNotFound:     KindNotFound,
	ErrCheckpointNotFound:   KindNotFound,
	ErrScanNotFound:         KindNotFound,
	ErrPaymentNotFound:      KindNotFound,
	ErrVehicleNotOwned:      KindForbidden,
	ErrContractNotOwned:     KindForbidden,
	ErrSpotUnavailable:      KindConflict,
	ErrAlreadyPaid:          KindConflict,
	ErrDuplicateEmail:       KindConflict,
	ErrDuplicateVehicle:     KindConflict,
	ErrDuplicateIdentity:    KindConflict,
	ErrSpotNotInLot:         KindConflict,
	ErrCheckpointInactive:   KindConflict,
	ErrInvalidClientID:      KindInvalidInput,
	ErrInvalidContractID:    KindInvalidInput,
	ErrInvalidPaymentID:     KindInvalidInput,
	ErrInvalidPenaltyID:     KindInvalidInput,
	ErrInvalidLotID:         KindInvalidInput,
	ErrInvalidSpotID:        KindInvalidInput,
	ErrInvalidCheckpointID:  KindInvalidInput,
	ErrInvalidPlate:         KindInvalidInput,
	ErrInvalidEmail:         KindInvalidInput,
	ErrInvalidPhone:         KindInvalidInput,
	ErrInvalidBirthDate:     KindInvalidInput,
	ErrInvalidVehicleClass:  KindInvalidInput,
	ErrInvalidContractType:  KindInvalidInput,
	ErrInvalidContractState: KindInvalidInput,
	ErrInvalidDirection:     KindInvalidInput,
	ErrInvalidCheckpoint:    KindInvalidInput,
	ErrInvalidValidity:      KindInvalidInput,
	ErrInvalidDuration:      KindInvalidInput,
	ErrInvalidAmountCents:   KindInvalidInput,
	ErrInvalidField:         KindInvalidInput,
	ErrBadCredentials:       KindUnauthenticated,
	ErrTokenInvalid:         KindUnauthenticated,
	ErrTokenRevoked:         KindUnauthenticated,
}

// KindOf classifies err into exactly one Kind. Unknown errors are unexpected.
func KindOf(err error) Kind {
	for sentinel, kind := range kindsByError {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnexpected
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
