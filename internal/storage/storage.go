// Package storage provides the persistence collaborator for the ledger:
// a key to JSON-blob store with memory, file and SQLite implementations.
package storage

import "context"

// Well-known blob keys.
const (
	KeyTransactions  = "transactions"
	KeyAccounts      = "accounts"
	KeyCategories    = "categories"
	KeyBudgets       = "budgets"
	KeyRecurring     = "recurringTransactions"
	KeyGoals         = "goals"
	KeyExchangeRates = "exchangeRates"
	KeySession       = "session"
	KeySheetsExport  = "sheetsExportWatermark"
)

// Store persists JSON blobs by key. Load reports absence via the second
// return value; malformed blobs are the caller's concern (the ledger falls
// back to documented defaults on decode failure).
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}
