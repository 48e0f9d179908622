package localstore

import (
	"fmt"
	"os"
	"path/filepath"

	"studio-go/internal/config"
	"studio-go/internal/studio"
)

// NewFromConfig creates a LocalStore implementation based on the database config type.
func NewFromConfig(cfg config.DatabaseConfig, clock studio.Clock) (studio.LocalStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return Open(filepath.Join(cfg.DataDir, "studio.db"), clock)
	case "memory":
		return Open(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
