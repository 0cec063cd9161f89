package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneyflow/internal/core"
	"moneyflow/internal/storage"
)

// ExpandDue runs one catch-up pass over every recurring rule. For each
// rule it materializes a transaction per missed period in chronological
// order, advancing the rule's cursor as it goes. The whole batch persists
// once at the end; a failed save keeps the generated transactions in
// memory until the next successful persist.
func (s *LocalStore) ExpandDue(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := core.DateOf(now)
	generated := 0
	for i := range s.rules {
		generated += s.expandRuleLocked(&s.rules[i], today)
	}
	if generated == 0 {
		return 0, nil
	}

	s.persist(ctx, storage.KeyTransactions, storage.KeyRecurring)
	slog.InfoContext(ctx, "Recurring expansion pass complete",
		"generated", generated,
		"rules", len(s.rules))
	return generated, nil
}

// expandRuleLocked advances one rule's cursor up to and including ref.
// Each iteration strictly moves NextDate forward, so the loop terminates.
func (s *LocalStore) expandRuleLocked(r *core.RecurringRule, ref core.Date) int {
	count := 0
	for !r.NextDate.After(ref.Time) {
		t := core.Transaction{
			ID:            s.ids.Next(),
			Date:          r.NextDate,
			Type:          r.Type,
			Amount:        r.Amount,
			Currency:      s.defaultCurrency,
			CategoryID:    r.CategoryID,
			SubCategoryID: r.SubCategoryID,
			AccountID:     r.AccountID,
			Description:   r.Description,
			IsRecurring:   true,
			RecurringID:   r.ID,
		}
		if t.AccountID == "" && t.Type != core.Transfer {
			t.AccountID = s.defaultAccountID
		}
		s.transactions = append(s.transactions, t)
		s.center.Info(fmt.Sprintf("Recurring transaction added: %s", describeRule(*r)))

		r.LastGeneratedDate = r.NextDate
		r.NextDate = r.Frequency.Advance(r.NextDate)
		count++
	}
	return count
}

func describeRule(r core.RecurringRule) string {
	if r.Description != "" {
		return r.Description
	}
	return fmt.Sprintf("%s %s", r.Frequency, r.Type)
}
