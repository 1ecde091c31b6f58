package backend

import (
	"context"
	"fmt"
	"net/http"

	"finplan/internal/log"
	gsheet "finplan/internal/records/google"
	"finplan/internal/records/memory"
	"finplan/internal/remote"
	"finplan/internal/storage"
	"finplan/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = f.createMemoryBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case RemoteBackend:
		res = f.createRemoteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized records backend", log.FieldBackend, config.Type.String())
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	if config.SeedDir == "" {
		return &BackendResult{Store: memory.New()}
	}
	f.logger.Info("Seeding memory backend", "seed_dir", config.SeedDir)
	return &BackendResult{Store: memory.NewFromFiles(config.SeedDir)}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Debug("SQLite database ready", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close, Ping: repo.Ping}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}
	return &BackendResult{Store: repo, Cleanup: repo.Close, Ping: repo.Ping}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		ExpensesSheet:   config.GoogleExpensesSheet,
		ConfigSheet:     config.GoogleConfigSheet,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return &BackendResult{Store: cli}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) *BackendResult {
	var hc *http.Client
	if config.RemoteTimeout > 0 {
		hc = &http.Client{Timeout: config.RemoteTimeout}
	}
	return &BackendResult{Store: remote.New(config.RemoteAPIURL, hc)}
}
