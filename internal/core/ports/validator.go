package ports

import "go.trai.ch/modkit/internal/core/domain"

// Validator inspects a staged module without modifying it.
//
//go:generate mockgen -source=validator.go -destination=mocks/mock_validator.go -package=mocks
type Validator interface {
	// Validate returns the module metadata or a *domain.ValidationError listing every violation.
	Validate(stagedPath string) (*domain.ModuleMetadata, error)
}
