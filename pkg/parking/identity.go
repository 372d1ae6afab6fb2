package parking

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// IdentityKind selects the template for a generated identifier.
type IdentityKind int

const (
	IdentityClient IdentityKind = iota
	IdentityContract
	IdentityPayment
	IdentityPenalty
	IdentityCheckpoint
	IdentityLot
)

type identityTemplate struct {
	prefix string
	digits int
}

var identityTemplates = map[IdentityKind]identityTemplate{
	IdentityClient:     {prefix: "CL", digits: 5},
	IdentityContract:   {prefix: "CT", digits: 5},
	IdentityPayment:    {prefix: "PMT", digits: 4},
	IdentityPenalty:    {prefix: "PNL", digits: 4},
	IdentityCheckpoint: {prefix: "B", digits: 4},
	IdentityLot:        {prefix: "P", digits: 5},
}

// maxGenerationAttempts bounds the collision-retry loop; past it the id space
// is considered exhausted for practical purposes.
const maxGenerationAttempts = 32

// ExistenceChecker answers whether an identifier is already taken.
type ExistenceChecker interface {
	IdentityExists(ctx context.Context, kind IdentityKind, id string) (bool, error)
}

// IdentityGenerator produces collision-checked human-readable identifiers.
// The existence pre-check is advisory only; under concurrent creation the
// storage uniqueness constraint remains the final arbiter.
type IdentityGenerator struct {
	checker ExistenceChecker
	intN    func(n int) int
}

// GeneratorOption configures an IdentityGenerator.
type GeneratorOption func(*IdentityGenerator)

// WithRandomSource overrides the random digit source.
func WithRandomSource(intN func(n int) int) GeneratorOption {
	return func(generator *IdentityGenerator) {
		generator.intN = intN
	}
}

// NewIdentityGenerator wires a generator over an existence checker.
func NewIdentityGenerator(checker ExistenceChecker, options ...GeneratorOption) (*IdentityGenerator, error) {
	if checker == nil {
		return nil, fmt.Errorf("%w: existence checker is nil", ErrInvalidServiceConfig)
	}
	generator := &IdentityGenerator{checker: checker, intN: rand.IntN}
	for _, option := range options {
		if option != nil {
			option(generator)
		}
	}
	return generator, nil
}

// Generate returns a fresh identifier for kind, retrying on collisions up to
// maxGenerationAttempts before reporting ErrGenerationExhausted.
func (generator *IdentityGenerator) Generate(ctx context.Context, kind IdentityKind) (string, error) {
	template, known := identityTemplates[kind]
	if !known {
		return "", fmt.Errorf("%w: unknown identity kind %d", ErrInvalidServiceConfig, kind)
	}
	bound := 1
	for range template.digits {
		bound *= 10
	}
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%0*d", template.prefix, template.digits, generator.intN(bound))
		taken, err := generator.checker.IdentityExists(ctx, kind, candidate)
		if err != nil {
			return "", WrapError("identity", "generate", "exists_check", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free identifier after %d attempts", ErrGenerationExhausted, maxGenerationAttempts)
}
