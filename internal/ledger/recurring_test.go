package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneyflow/internal/core"
)

func TestAddRecurringRuleCatchesUpImmediately(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	// Started five days ago: five daily occurrences are due right away.
	rule, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type:        core.Expense,
		Amount:      core.Money{Cents: 1500},
		Frequency:   core.Daily,
		StartDate:   core.NewDate(2026, 3, 10),
		CategoryID:  "10",
		AccountID:   "1",
		Description: "coffee subscription",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}

	txs, _ := s.Transactions(ctx)
	if len(txs) != 5 {
		t.Fatalf("generated %d transactions, want 5", len(txs))
	}
	for i, tx := range txs {
		want := core.NewDate(2026, 3, 11+i)
		if !tx.Date.SameDay(want) {
			t.Fatalf("tx[%d] date = %s, want %s", i, tx.Date, want)
		}
		if !tx.IsRecurring || tx.RecurringID != rule.ID {
			t.Fatalf("tx[%d] not marked recurring: %+v", i, tx)
		}
		if tx.Amount.Cents != 1500 || tx.CategoryID != "10" || tx.AccountID != "1" {
			t.Fatalf("tx[%d] fields not derived from rule: %+v", i, tx)
		}
	}

	rules, _ := s.RecurringRules(ctx)
	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}
	if !rules[0].NextDate.SameDay(core.NewDate(2026, 3, 16)) {
		t.Fatalf("nextDate = %s, want 2026-03-16", rules[0].NextDate)
	}
	if !rules[0].LastGeneratedDate.SameDay(core.NewDate(2026, 3, 15)) {
		t.Fatalf("lastGeneratedDate = %s, want 2026-03-15", rules[0].LastGeneratedDate)
	}
}

func TestAddRecurringRuleFutureStartGeneratesNothing(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	_, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type:      core.Expense,
		Amount:    core.Money{Cents: 100},
		Frequency: core.Monthly,
		StartDate: core.NewDate(2026, 4, 1),
		AccountID: "1",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}
	txs, _ := s.Transactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("generated %d transactions for a future rule, want 0", len(txs))
	}
}

func TestAddRecurringRuleStartingTodayWaitsOnePeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	_, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type:      core.Income,
		Amount:    core.Money{Cents: 100},
		Frequency: core.Weekly,
		StartDate: core.NewDate(2026, 3, 15),
		AccountID: "1",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}
	// The first occurrence lands one period after the start date.
	txs, _ := s.Transactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("generated %d transactions on creation day, want 0", len(txs))
	}

	if _, err := s.ExpandDue(ctx, now.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("ExpandDue() error = %v", err)
	}
	txs, _ = s.Transactions(ctx)
	if len(txs) != 1 {
		t.Fatalf("generated %d transactions one week later, want 1", len(txs))
	}
}

func TestExpandDueIsIdempotentWithinPeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	_, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type:      core.Expense,
		Amount:    core.Money{Cents: 100},
		Frequency: core.Daily,
		StartDate: core.NewDate(2026, 3, 13),
		AccountID: "1",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}
	txs, _ := s.Transactions(ctx)
	if len(txs) != 2 {
		t.Fatalf("initial catch-up generated %d, want 2", len(txs))
	}

	// A second pass at the same instant must not duplicate anything.
	for i := 0; i < 3; i++ {
		n, err := s.ExpandDue(ctx, now)
		if err != nil {
			t.Fatalf("ExpandDue() error = %v", err)
		}
		if n != 0 {
			t.Fatalf("repeat pass generated %d, want 0", n)
		}
	}
	txs, _ = s.Transactions(ctx)
	if len(txs) != 2 {
		t.Fatalf("after repeat passes len = %d, want 2", len(txs))
	}
}

func TestExpandDueChronologicalAndDistinctIDs(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	_, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type:      core.Expense,
		Amount:    core.Money{Cents: 9900},
		Frequency: core.Monthly,
		StartDate: core.NewDate(2026, 1, 1),
		AccountID: "1",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}

	txs, _ := s.Transactions(ctx)
	if len(txs) != 5 {
		t.Fatalf("generated %d, want 5 (Feb through Jun)", len(txs))
	}
	seen := map[string]bool{}
	for i, tx := range txs {
		if seen[tx.ID] {
			t.Fatalf("duplicate id %q", tx.ID)
		}
		seen[tx.ID] = true
		if i > 0 && tx.Date.Before(txs[i-1].Date.Time) {
			t.Fatalf("tx[%d] dated %s before tx[%d] %s", i, tx.Date, i-1, txs[i-1].Date)
		}
	}
}

func TestExpandDueMixedFrequencies(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	if _, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type: core.Expense, Amount: core.Money{Cents: 100},
		Frequency: core.Weekly, StartDate: core.NewDate(2026, 3, 1), AccountID: "1",
	}); err != nil {
		t.Fatalf("AddRecurringRule(weekly) error = %v", err)
	}
	if _, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type: core.Income, Amount: core.Money{Cents: 200},
		Frequency: core.Yearly, StartDate: core.NewDate(2024, 3, 1), AccountID: "1",
	}); err != nil {
		t.Fatalf("AddRecurringRule(yearly) error = %v", err)
	}

	txs, _ := s.Transactions(ctx)
	// Weekly from Mar 1: Mar 8, Mar 15. Yearly from Mar 2024: Mar 2025, Mar 2026.
	if len(txs) != 4 {
		t.Fatalf("generated %d, want 4", len(txs))
	}
}

func TestDeleteRecurringRuleStopsExpansion(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newStoreAt(t, now)
	ctx := context.Background()

	rule, err := s.AddRecurringRule(ctx, core.RecurringRule{
		Type: core.Expense, Amount: core.Money{Cents: 100},
		Frequency: core.Daily, StartDate: core.NewDate(2026, 3, 14), AccountID: "1",
	})
	if err != nil {
		t.Fatalf("AddRecurringRule() error = %v", err)
	}
	if err := s.DeleteRecurringRule(ctx, rule.ID); err != nil {
		t.Fatalf("DeleteRecurringRule() error = %v", err)
	}

	n, err := s.ExpandDue(ctx, now.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("ExpandDue() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("deleted rule still generated %d transactions", n)
	}

	if err := s.DeleteRecurringRule(ctx, rule.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestAddRecurringRuleRejectsInvalid(t *testing.T) {
	s := newStoreAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	tests := []struct {
		name string
		rule core.RecurringRule
	}{
		{"missing frequency", core.RecurringRule{Type: core.Expense, Amount: core.Money{Cents: 100}, StartDate: core.NewDate(2026, 3, 1)}},
		{"bad type", core.RecurringRule{Type: "loan", Amount: core.Money{Cents: 100}, Frequency: core.Daily, StartDate: core.NewDate(2026, 3, 1)}},
		{"zero start date", core.RecurringRule{Type: core.Expense, Amount: core.Money{Cents: 100}, Frequency: core.Daily}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddRecurringRule(context.Background(), tt.rule); err == nil {
				t.Fatal("AddRecurringRule() accepted an invalid rule")
			}
		})
	}
}
