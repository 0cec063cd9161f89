package backend

import (
	"fmt"

	"moneyflow/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}
	storageType := StorageType(appConfig.StorageBackend)
	if !storageType.IsValid() {
		return Config{}, fmt.Errorf("invalid storage backend in config: %s", appConfig.StorageBackend)
	}

	return Config{
		Type: backendType,

		Storage:    storageType,
		DataDir:    appConfig.DataDir,
		SQLitePath: appConfig.SQLitePath,

		RemoteBaseURL:  appConfig.RemoteBaseURL,
		RequestTimeout: appConfig.RequestTimeout,

		DefaultCurrency:  appConfig.DefaultCurrency,
		DefaultAccountID: appConfig.DefaultAccountID,
	}, nil
}

// Validate checks the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LocalBackend:
		if !c.Storage.IsValid() {
			return fmt.Errorf("invalid storage backend: %s", c.Storage)
		}
		if c.Storage == SQLiteStorage && c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite storage")
		}
	case RemoteBackend:
		if c.RemoteBaseURL == "" {
			return fmt.Errorf("remote base URL is required for the remote backend")
		}
	}
	return nil
}
