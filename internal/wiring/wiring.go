// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/modkit/internal/adapters/archive"
	_ "go.trai.ch/modkit/internal/adapters/backup"
	_ "go.trai.ch/modkit/internal/adapters/composer"
	_ "go.trai.ch/modkit/internal/adapters/config"
	_ "go.trai.ch/modkit/internal/adapters/fs"
	_ "go.trai.ch/modkit/internal/adapters/hooks"
	_ "go.trai.ch/modkit/internal/adapters/linear"
	_ "go.trai.ch/modkit/internal/adapters/lock"
	_ "go.trai.ch/modkit/internal/adapters/logger"
	_ "go.trai.ch/modkit/internal/adapters/prompt"
	_ "go.trai.ch/modkit/internal/adapters/provider"
	_ "go.trai.ch/modkit/internal/adapters/shell"
	_ "go.trai.ch/modkit/internal/adapters/telemetry"
	_ "go.trai.ch/modkit/internal/adapters/tokens"
	_ "go.trai.ch/modkit/internal/adapters/validator"
	// Register app and engine nodes.
	_ "go.trai.ch/modkit/internal/app"
	_ "go.trai.ch/modkit/internal/engine/installer"
)
