package parking

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing parking operation.
type OperationLog struct {
	Operation string
	Client    ClientID
	Contract  ContractID
	Spot      SpotID
	Amount    AmountCents
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithIdentityGenerator overrides the default generator (used by tests to
// inject a deterministic random source).
func WithIdentityGenerator(generator *IdentityGenerator) ServiceOption {
	return func(service *Service) {
		service.ids = generator
	}
}
