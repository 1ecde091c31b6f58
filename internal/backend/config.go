package backend

import (
	"errors"
	"fmt"
	"time"

	"finplan/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// memory
	SeedDir string

	// sqlite
	SQLiteDBPath string

	// postgres
	DatabaseURL string

	// sheets
	GoogleSpreadsheetID      string
	GoogleExpensesSheet      string
	GoogleConfigSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// remote
	RemoteAPIURL  string
	RemoteTimeout time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                     backendType,
		SeedDir:                  appConfig.SeedDir,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		DatabaseURL:              appConfig.DatabaseURL,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleExpensesSheet:      appConfig.GoogleExpensesSheet,
		GoogleConfigSheet:        appConfig.GoogleConfigSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		RemoteAPIURL:             appConfig.RemoteAPIURL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return errors.New("service account credentials are required for sheets backend")
		}
	case RemoteBackend:
		if c.RemoteAPIURL == "" {
			return errors.New("remote API URL is required for remote backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend, RemoteBackend}
}
