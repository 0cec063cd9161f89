package backend

import (
	"context"
	"testing"
	"time"

	"moneyflow/internal/auth"
	"moneyflow/internal/notify"
	"moneyflow/internal/storage"
)

func newFactory() Factory {
	return NewFactory(nil, notify.NewCenter(), auth.NewGate(storage.NewMemoryStore()))
}

func TestCreateLocalBackendWithMemoryStorage(t *testing.T) {
	f := newFactory()
	result, err := f.CreateBackend(context.Background(), Config{
		Type:    LocalBackend,
		Storage: MemoryStorage,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Ledger == nil {
		t.Fatal("CreateBackend() returned nil ledger")
	}
	if err := result.Ledger.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	accounts, err := result.Ledger.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if len(accounts) == 0 {
		t.Fatal("local ledger has no seeded accounts")
	}
}

func TestCreateLocalBackendWithFileStorage(t *testing.T) {
	f := newFactory()
	result, err := f.CreateBackend(context.Background(), Config{
		Type:    LocalBackend,
		Storage: FileStorage,
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Ledger == nil {
		t.Fatal("CreateBackend() returned nil ledger")
	}
}

func TestCreateRemoteBackend(t *testing.T) {
	f := newFactory()
	result, err := f.CreateBackend(context.Background(), Config{
		Type:           RemoteBackend,
		RemoteBaseURL:  "https://api.example.com",
		RequestTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Ledger == nil {
		t.Fatal("CreateBackend() returned nil ledger")
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	f := newFactory()
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown type", Config{Type: "cloud"}},
		{"remote without base URL", Config{Type: RemoteBackend}},
		{"local with unknown storage", Config{Type: LocalBackend, Storage: "redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.CreateBackend(context.Background(), tt.config); err == nil {
				t.Fatal("CreateBackend() accepted invalid config")
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid local memory", Config{Type: LocalBackend, Storage: MemoryStorage}, false},
		{"valid remote", Config{Type: RemoteBackend, RemoteBaseURL: "https://x"}, false},
		{"sqlite without path", Config{Type: LocalBackend, Storage: SQLiteStorage}, true},
		{"remote without URL", Config{Type: RemoteBackend}, true},
		{"bad type", Config{Type: "cloud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
