package core

import "errors"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrNotFound         = errors.New("not found")

	// Referential-integrity failures: deletes blocked by live references.
	ErrAccountInUse  = errors.New("account is referenced by transactions")
	ErrCategoryInUse = errors.New("category is referenced by transactions")

	// Auth lifecycle.
	ErrAuthExpired    = errors.New("access token expired")
	ErrSessionExpired = errors.New("session expired, re-authentication required")

	ErrRateFetch = errors.New("exchange rate fetch failed")
)
