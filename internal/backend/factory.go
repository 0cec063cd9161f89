package backend

import (
	"context"
	"fmt"
	"log/slog"

	"moneyflow/internal/auth"
	"moneyflow/internal/client"
	"moneyflow/internal/ledger"
	"moneyflow/internal/notify"
	"moneyflow/internal/remote"
	"moneyflow/internal/storage"
)

// DefaultFactory implements Factory over the shared notification center
// and auth gate.
type DefaultFactory struct {
	logger *slog.Logger
	center *notify.Center
	gate   *auth.Gate
}

func NewFactory(logger *slog.Logger, center *notify.Center, gate *auth.Gate) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		center: center,
		gate:   gate,
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case LocalBackend:
		return f.createLocalBackend(config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocalBackend(config Config) (*BackendResult, error) {
	kv, cleanup, err := f.createStorage(config)
	if err != nil {
		return nil, err
	}

	store := ledger.NewLocalStore(kv, f.center, ledger.LocalStoreConfig{
		DefaultAccountID: config.DefaultAccountID,
		DefaultCurrency:  config.DefaultCurrency,
	})

	f.logger.Info("Initialized local backend", "storage", config.Storage.String())

	return &BackendResult{
		Ledger:  store,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createStorage(config Config) (storage.Store, CleanupFunc, error) {
	switch config.Storage {
	case MemoryStorage:
		return storage.NewMemoryStore(), nil, nil
	case FileStorage:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		kv, err := storage.NewFileStore(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		f.logger.Info("Initialized file storage", "data_directory", dataDir)
		return kv, nil, nil
	case SQLiteStorage:
		if err := storage.RunMigrations(config.SQLitePath); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		kv, err := storage.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		f.logger.Info("Initialized SQLite storage", "db_path", config.SQLitePath)
		return kv, kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid storage backend: %s", config.Storage)
	}
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	if config.RemoteBaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required for the remote backend")
	}

	api := client.NewCoordinator(
		config.RemoteBaseURL,
		client.NewHTTPDoer(config.RequestTimeout),
		f.gate,
		f.center,
	)
	store := remote.NewStore(api, f.center)

	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)

	return &BackendResult{
		Ledger:  store,
		Cleanup: nil,
	}, nil
}
