package ports

import "go.trai.ch/modkit/internal/core/domain"

// ConfigLoader defines the interface for loading the installer configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the optional configuration file under root and returns the effective configuration.
	Load(root string) (*domain.Config, error)
}
