// Package ledger implements the local-first ledger store: it owns all
// entity collections, persists them as JSON blobs after every successful
// mutation, and recomputes derived views from current state on every read.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneyflow/internal/core"
	"moneyflow/internal/notify"
	"moneyflow/internal/storage"
)

// LocalStoreConfig tunes the local store. Zero values fall back to the
// documented defaults.
type LocalStoreConfig struct {
	// DefaultAccountID receives income/expense transactions created without
	// an account. Defaults to the first default account.
	DefaultAccountID string

	// DefaultCurrency stamps transactions created without one.
	DefaultCurrency string

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

var _ Ledger = (*LocalStore)(nil)

// LocalStore is the single writer for all ledger entities. Every mutator
// runs to completion under the store lock, so derived-view reads never see
// a half-applied mutation.
type LocalStore struct {
	mu     sync.Mutex
	kv     storage.Store
	center *notify.Center
	ids    *core.IDGenerator
	now    func() time.Time

	defaultAccountID string
	defaultCurrency  string

	transactions []core.Transaction
	accounts     []core.Account
	cats         *categoryIndex
	budgets      map[string]core.Budget
	rules        []core.RecurringRule
	goals        []core.Goal

	filter FilterState
	sort   SortConfig
}

func NewLocalStore(kv storage.Store, center *notify.Center, cfg LocalStoreConfig) *LocalStore {
	if cfg.DefaultAccountID == "" {
		cfg.DefaultAccountID = DefaultAccountID
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultCurrency
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LocalStore{
		kv:               kv,
		center:           center,
		ids:              core.NewIDGeneratorAt(clock),
		now:              clock,
		defaultAccountID: cfg.DefaultAccountID,
		defaultCurrency:  cfg.DefaultCurrency,
		budgets:          make(map[string]core.Budget),
		cats:             newCategoryIndex(nil),
		filter:           FilterState{Type: FilterMonth},
		sort:             SortConfig{Key: SortByDate, Order: SortDesc},
	}
}

// Init loads every collection from the persistence collaborator. Absent or
// malformed blobs fall back to the documented defaults: the fixed account
// and category seed sets, and empty collections for everything else.
func (s *LocalStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loadInto(ctx, s.kv, storage.KeyTransactions, &s.transactions, nil)
	loadInto(ctx, s.kv, storage.KeyAccounts, &s.accounts, DefaultAccounts)

	var flat []core.Category
	loadInto(ctx, s.kv, storage.KeyCategories, &flat, DefaultCategories)
	s.cats = newCategoryIndex(flat)

	loadInto(ctx, s.kv, storage.KeyBudgets, &s.budgets, map[string]core.Budget{})
	loadInto(ctx, s.kv, storage.KeyRecurring, &s.rules, nil)
	loadInto(ctx, s.kv, storage.KeyGoals, &s.goals, nil)

	s.filter.Date = core.DateOf(s.now())

	slog.InfoContext(ctx, "Ledger store initialized",
		"transactions", len(s.transactions),
		"accounts", len(s.accounts),
		"categories", s.cats.size(),
		"rules", len(s.rules),
		"goals", len(s.goals))
	return nil
}

// loadInto decodes a blob into dst, replacing it with fallback when the
// blob is absent or malformed.
func loadInto[T any](ctx context.Context, kv storage.Store, key string, dst *T, fallback T) {
	blob, ok, err := kv.Load(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load blob, using defaults", "key", key, "error", err)
		*dst = fallback
		return
	}
	if !ok {
		*dst = fallback
		return
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		slog.WarnContext(ctx, "Malformed blob, using defaults", "key", key, "error", err)
		*dst = fallback
	}
}

// persist snapshots the named collections. A failed save keeps the
// in-memory state as-is; the next successful persist writes everything,
// so nothing is ever rolled back.
func (s *LocalStore) persist(ctx context.Context, keys ...string) {
	for _, key := range keys {
		var v any
		switch key {
		case storage.KeyTransactions:
			v = s.transactions
		case storage.KeyAccounts:
			v = s.accounts
		case storage.KeyCategories:
			v = s.cats.flat()
		case storage.KeyBudgets:
			v = s.budgets
		case storage.KeyRecurring:
			v = s.rules
		case storage.KeyGoals:
			v = s.goals
		default:
			continue
		}
		blob, err := json.Marshal(v)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to encode collection", "key", key, "error", err)
			continue
		}
		if err := s.kv.Save(ctx, key, blob); err != nil {
			slog.ErrorContext(ctx, "Failed to persist collection", "key", key, "error", err)
			s.center.Error("Saving your data failed, changes are kept in memory")
		}
	}
}

// resolveTransactionDefaults fills optional fields using the documented
// precedence: an explicit value always wins, then the store defaults.
//  1. zero date          -> today
//  2. empty currency     -> store default currency
//  3. empty account on a non-transfer -> configured default account
func (s *LocalStore) resolveTransactionDefaults(t *core.Transaction) {
	if t.Date.IsZero() {
		t.Date = core.DateOf(s.now())
	}
	if t.Currency == "" {
		t.Currency = s.defaultCurrency
	}
	if t.Type != core.Transfer && t.AccountID == "" {
		t.AccountID = s.defaultAccountID
	}
}

// --- transactions ---

func (s *LocalStore) Transactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

// AddTransaction assigns a fresh id, applies default resolution and
// persists. It does not validate: the store accepts whatever the caller
// recorded, matching user expectations for quick entry.
func (s *LocalStore) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.ids.Next()
	s.resolveTransactionDefaults(&t)
	s.transactions = append(s.transactions, t)
	s.persist(ctx, storage.KeyTransactions)
	s.center.Success("Transaction recorded")
	return t, nil
}

func (s *LocalStore) UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findTransaction(id)
	if idx < 0 {
		s.center.Error("Transaction not found")
		return fmt.Errorf("update transaction %s: %w", id, core.ErrNotFound)
	}
	t := &s.transactions[idx]
	applyIf(&t.Date, patch.Date)
	applyIf(&t.Type, patch.Type)
	applyIf(&t.Amount, patch.Amount)
	applyIf(&t.Currency, patch.Currency)
	applyIf(&t.CategoryID, patch.CategoryID)
	applyIf(&t.SubCategoryID, patch.SubCategoryID)
	applyIf(&t.AccountID, patch.AccountID)
	applyIf(&t.FromAccountID, patch.FromAccountID)
	applyIf(&t.ToAccountID, patch.ToAccountID)
	applyIf(&t.Description, patch.Description)
	applyIf(&t.Tags, patch.Tags)

	s.persist(ctx, storage.KeyTransactions)
	s.center.Success("Transaction updated")
	return nil
}

func (s *LocalStore) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findTransaction(id)
	if idx < 0 {
		s.center.Error("Transaction not found")
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	s.transactions = append(s.transactions[:idx], s.transactions[idx+1:]...)
	s.persist(ctx, storage.KeyTransactions)
	s.center.Success("Transaction deleted")
	return nil
}

func (s *LocalStore) findTransaction(id string) int {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

// --- accounts ---

func (s *LocalStore) Accounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

func (s *LocalStore) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.ids.Next()
	if a.Type == "" {
		a.Type = core.AccountOther
	}
	s.accounts = append(s.accounts, a)
	s.persist(ctx, storage.KeyAccounts)
	s.center.Success("Account added")
	return a, nil
}

func (s *LocalStore) UpdateAccount(ctx context.Context, id string, patch AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findAccount(id)
	if idx < 0 {
		s.center.Error("Account not found")
		return fmt.Errorf("update account %s: %w", id, core.ErrNotFound)
	}
	a := &s.accounts[idx]
	applyIf(&a.Name, patch.Name)
	applyIf(&a.Type, patch.Type)
	applyIf(&a.Icon, patch.Icon)
	applyIf(&a.InitialBalance, patch.InitialBalance)

	s.persist(ctx, storage.KeyAccounts)
	s.center.Success("Account updated")
	return nil
}

// DeleteAccount refuses to remove an account any transaction still
// references, whether as its account or as either side of a transfer.
func (s *LocalStore) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findAccount(id)
	if idx < 0 {
		s.center.Error("Account not found")
		return fmt.Errorf("delete account %s: %w", id, core.ErrNotFound)
	}
	for i := range s.transactions {
		if s.transactions[i].References(id) {
			s.center.Error("This account still has transactions and cannot be deleted")
			return fmt.Errorf("delete account %s: %w", id, core.ErrAccountInUse)
		}
	}
	s.accounts = append(s.accounts[:idx], s.accounts[idx+1:]...)
	s.persist(ctx, storage.KeyAccounts)
	s.center.Success("Account deleted")
	return nil
}

func (s *LocalStore) findAccount(id string) int {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

// --- budgets ---

func (s *LocalStore) Budget(_ context.Context, monthKey string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[monthKey]
	if !ok {
		return core.Budget{Categories: map[string]core.Money{}}, nil
	}
	return b, nil
}

// SetBudget installs the month's budget, replacing any previous one for
// the same key.
func (s *LocalStore) SetBudget(ctx context.Context, monthKey string, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Categories == nil {
		b.Categories = map[string]core.Money{}
	}
	s.budgets[monthKey] = b
	s.persist(ctx, storage.KeyBudgets)
	s.center.Success("Budget saved")
	return nil
}

// --- goals ---

func (s *LocalStore) Goals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals...), nil
}

func (s *LocalStore) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = s.ids.Next()
	g.CreatedAt = core.DateOf(s.now())
	if g.CurrentAmount.Cents < 0 {
		g.CurrentAmount = core.Money{}
	}
	s.goals = append(s.goals, g)
	s.persist(ctx, storage.KeyGoals)
	s.center.Success("Goal added")
	return g, nil
}

func (s *LocalStore) UpdateGoal(ctx context.Context, id string, patch GoalPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findGoal(id)
	if idx < 0 {
		s.center.Error("Goal not found")
		return fmt.Errorf("update goal %s: %w", id, core.ErrNotFound)
	}
	g := &s.goals[idx]
	applyIf(&g.Name, patch.Name)
	applyIf(&g.TargetAmount, patch.TargetAmount)
	applyIf(&g.Icon, patch.Icon)
	applyIf(&g.Color, patch.Color)
	applyIf(&g.Deadline, patch.Deadline)

	s.persist(ctx, storage.KeyGoals)
	s.center.Success("Goal updated")
	return nil
}

// UpdateGoalProgress applies a deposit (positive delta) or withdrawal
// (negative delta). The result is clamped at zero: an excess withdrawal
// empties the goal rather than failing.
func (s *LocalStore) UpdateGoalProgress(ctx context.Context, id string, delta core.Money) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findGoal(id)
	if idx < 0 {
		s.center.Error("Goal not found")
		return core.Goal{}, fmt.Errorf("update goal progress %s: %w", id, core.ErrNotFound)
	}
	g := &s.goals[idx]
	g.CurrentAmount = g.CurrentAmount.Add(delta)
	if g.CurrentAmount.Cents < 0 {
		g.CurrentAmount = core.Money{}
	}
	s.persist(ctx, storage.KeyGoals)
	s.center.Success("Goal progress updated")
	return *g, nil
}

func (s *LocalStore) DeleteGoal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findGoal(id)
	if idx < 0 {
		s.center.Error("Goal not found")
		return fmt.Errorf("delete goal %s: %w", id, core.ErrNotFound)
	}
	s.goals = append(s.goals[:idx], s.goals[idx+1:]...)
	s.persist(ctx, storage.KeyGoals)
	s.center.Success("Goal deleted")
	return nil
}

func (s *LocalStore) findGoal(id string) int {
	for i := range s.goals {
		if s.goals[i].ID == id {
			return i
		}
	}
	return -1
}

// --- recurring rules ---

func (s *LocalStore) RecurringRules(_ context.Context) ([]core.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringRule(nil), s.rules...), nil
}

// AddRecurringRule stores the rule and immediately runs a catch-up pass:
// a rule with a past start date materializes its missed occurrences right
// away.
func (s *LocalStore) AddRecurringRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	if err := r.Validate(); err != nil {
		s.center.Error("Invalid recurring rule")
		return core.RecurringRule{}, fmt.Errorf("add recurring rule: %w", err)
	}

	s.mu.Lock()
	r.ID = s.ids.Next()
	// The first occurrence lands one period after the start date; NextDate
	// never precedes StartDate.
	if r.NextDate.IsZero() || r.NextDate.Before(r.StartDate.Time) {
		r.NextDate = r.Frequency.Advance(r.StartDate)
	}
	r.LastGeneratedDate = core.Date{}
	s.rules = append(s.rules, r)
	s.persist(ctx, storage.KeyRecurring)
	s.center.Success("Recurring rule added")
	s.mu.Unlock()

	if _, err := s.ExpandDue(ctx, s.now()); err != nil {
		slog.WarnContext(ctx, "Catch-up expansion after rule creation failed", "rule_id", r.ID, "error", err)
	}
	return r, nil
}

func (s *LocalStore) DeleteRecurringRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			s.persist(ctx, storage.KeyRecurring)
			s.center.Success("Recurring rule deleted")
			return nil
		}
	}
	s.center.Error("Recurring rule not found")
	return fmt.Errorf("delete recurring rule %s: %w", id, core.ErrNotFound)
}

func applyIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
