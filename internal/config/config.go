package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Ledger backend: local keeps everything on this machine, remote
	// delegates to the backend API.
	LedgerBackend string

	// Remote backend
	RemoteBaseURL  string
	RequestTimeout time.Duration

	// Local persistence
	StorageBackend string
	DataDir        string
	SQLitePath     string

	// Defaults applied to new transactions
	DefaultCurrency  string
	DefaultAccountID string

	// Recurring expansion
	RecurringInterval time.Duration

	// Exchange rates
	FXEndpoint string
	FXRefresh  time.Duration

	// AMQP notification publishing (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleExportInterval     time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		LedgerBackend: getEnv("LEDGER_BACKEND", "local"),

		RemoteBaseURL:  getEnv("REMOTE_BASE_URL", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		SQLitePath:     getEnv("SQLITE_DB_PATH", "./data/moneyflow.db"),

		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "CNY"),
		DefaultAccountID: getEnv("DEFAULT_ACCOUNT_ID", ""),

		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", time.Hour),

		FXEndpoint: getEnv("FX_ENDPOINT", "https://open.er-api.com/v6/latest"),
		FXRefresh:  getEnvDuration("FX_REFRESH_INTERVAL", 12*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneyflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleExportInterval:     getEnvDuration("GOOGLE_EXPORT_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	switch c.LedgerBackend {
	case "local", "remote":
	default:
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be 'local' or 'remote'", c.LedgerBackend))
	}

	if c.LedgerBackend == "remote" {
		if c.RemoteBaseURL == "" {
			errors = append(errors, "REMOTE_BASE_URL is required when using the remote backend")
		} else if parsed, err := url.Parse(c.RemoteBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid remote base URL '%s': %v", c.RemoteBaseURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid remote base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
	}

	validStorage := []string{"memory", "file", "sqlite"}
	isValidStorage := false
	for _, backend := range validStorage {
		if c.StorageBackend == backend {
			isValidStorage = true
			break
		}
	}
	if !isValidStorage {
		errors = append(errors, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.StorageBackend, validStorage))
	}

	if c.StorageBackend == "file" && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using file storage")
	}

	if c.StorageBackend == "sqlite" {
		if c.SQLitePath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite storage")
		} else {
			dir := filepath.Dir(c.SQLitePath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		hasCreds := c.GoogleServiceAccountJSON != "" ||
			c.GoogleServiceAccountFile != "" ||
			os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
		if !hasCreds {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheet export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleExportInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 minute", c.GoogleExportInterval))
		}
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}

	if c.FXRefresh != 0 && c.FXRefresh < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid FX refresh interval %v: must be at least 1 minute", c.FXRefresh))
	}

	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
