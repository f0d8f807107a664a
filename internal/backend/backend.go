// Package backend picks and opens the ledger store named by configuration.
package backend

import (
	"errors"
	"fmt"

	"moneydrain/internal/config"
	"moneydrain/internal/ledger"
)

// BackendType names a ledger store implementation.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

var backendTypes = []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	for _, t := range backendTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// GetBackendTypeStrings lists the accepted DATA_BACKEND values in
// preference order.
func GetBackendTypeStrings() []string {
	out := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		out[i] = t.String()
	}
	return out
}

// Config is the subset of application config a store needs.
type Config struct {
	Type               BackendType
	SQLiteDBPath       string
	DatabaseURL        string
	SeedCategoriesFile string // empty means the built-in categories
}

// FromAppConfig narrows the application config to a backend Config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(app.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q (want one of %v)", app.DataBackend, GetBackendTypeStrings())
	}
	return Config{
		Type:               bt,
		SQLiteDBPath:       app.SQLiteDBPath,
		DatabaseURL:        app.DatabaseURL,
		SeedCategoriesFile: app.SeedCategoriesFile,
	}, nil
}

// Validate checks that the location the chosen store needs is present.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend needs a database path")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend needs a database URL")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("unknown data backend %q", c.Type)
	}
	return nil
}

// CleanupFunc releases whatever a store holds open.
type CleanupFunc func() error

// BackendResult is an opened but uninitialized store; callers run Init.
type BackendResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}
