// Package backend assembles a Ledger from configuration: the local-first
// store over pluggable persistence, or the remote store over the backend
// API. Which one runs is a configuration choice.
package backend

import (
	"context"
	"time"

	"moneyflow/internal/ledger"
)

// CleanupFunc releases the backend's resources at shutdown.
type CleanupFunc func() error

// BackendResult carries the assembled ledger and its cleanup.
type BackendResult struct {
	Ledger  ledger.Ledger
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds everything backend assembly needs.
type Config struct {
	Type Type

	// Local backend
	Storage    StorageType
	DataDir    string
	SQLitePath string

	// Remote backend
	RemoteBaseURL  string
	RequestTimeout time.Duration

	// Transaction defaults
	DefaultCurrency  string
	DefaultAccountID string
}

type Type string

const (
	LocalBackend  Type = "local"
	RemoteBackend Type = "remote"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case LocalBackend, RemoteBackend:
		return true
	default:
		return false
	}
}

// StorageType selects the persistence collaborator for the local backend.
type StorageType string

const (
	MemoryStorage StorageType = "memory"
	FileStorage   StorageType = "file"
	SQLiteStorage StorageType = "sqlite"
)

func (s StorageType) String() string {
	return string(s)
}

func (s StorageType) IsValid() bool {
	switch s {
	case MemoryStorage, FileStorage, SQLiteStorage:
		return true
	default:
		return false
	}
}
