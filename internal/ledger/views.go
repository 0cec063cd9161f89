package ledger

import (
	"context"
	"fmt"
	"sort"

	"moneyflow/internal/core"
)

type (
	// CategoryBudget is the per-category budget view for one month.
	CategoryBudget struct {
		CategoryID string     `json:"categoryId"`
		Name       string     `json:"name"`
		Icon       string     `json:"icon"`
		Limit      core.Money `json:"limit"`
		Spent      core.Money `json:"spent"`
		Remaining  core.Money `json:"remaining"`
		Progress   float64    `json:"progress"`
		IsOver     bool       `json:"isOver"`
	}

	// CategoryRanking aggregates filtered expense spending per category.
	CategoryRanking struct {
		CategoryID string     `json:"categoryId"`
		Name       string     `json:"name"`
		Icon       string     `json:"icon"`
		Amount     core.Money `json:"amount"`
		Count      int        `json:"count"`
		Percentage float64    `json:"percentage"`
	}

	SuggestionLevel string

	// Suggestion is one advisory line from the budget review.
	Suggestion struct {
		Level   SuggestionLevel `json:"level"`
		Message string          `json:"message"`
	}
)

const (
	SuggestionDanger  SuggestionLevel = "danger"
	SuggestionWarning SuggestionLevel = "warning"
	SuggestionInfo    SuggestionLevel = "info"
)

// AccountBalances derives every account's balance from its initial balance
// and all transactions that reference it. Balances are never stored.
func (s *LocalStore) AccountBalances(_ context.Context) (map[string]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]core.Money, len(s.accounts))
	for _, a := range s.accounts {
		out[a.ID] = a.InitialBalance
	}
	for _, t := range s.transactions {
		switch t.Type {
		case core.Income:
			if b, ok := out[t.AccountID]; ok {
				out[t.AccountID] = b.Add(t.Amount)
			}
		case core.Expense:
			if b, ok := out[t.AccountID]; ok {
				out[t.AccountID] = b.Sub(t.Amount)
			}
		case core.Transfer:
			if b, ok := out[t.FromAccountID]; ok {
				out[t.FromAccountID] = b.Sub(t.Amount)
			}
			if b, ok := out[t.ToAccountID]; ok {
				out[t.ToAccountID] = b.Add(t.Amount)
			}
		}
	}
	return out, nil
}

// Balance returns one account's derived balance.
func (s *LocalStore) Balance(ctx context.Context, accountID string) (core.Money, error) {
	balances, err := s.AccountBalances(ctx)
	if err != nil {
		return core.Money{}, err
	}
	b, ok := balances[accountID]
	if !ok {
		return core.Money{}, fmt.Errorf("balance of account %s: %w", accountID, core.ErrNotFound)
	}
	return b, nil
}

// TotalIncome sums income over the filtered transaction set.
func (s *LocalStore) TotalIncome() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumByType(s.filteredLocked(), core.Income)
}

// TotalExpense sums expense over the filtered transaction set.
func (s *LocalStore) TotalExpense() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumByType(s.filteredLocked(), core.Expense)
}

func sumByType(txs []core.Transaction, tt core.TransactionType) core.Money {
	var sum core.Money
	for _, t := range txs {
		if t.Type == tt {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

// SavingsRate is (income - expense) / income over the filtered set, as a
// percentage. Zero income yields zero.
func (s *LocalStore) SavingsRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savingsRate(s.filteredLocked())
}

func savingsRate(txs []core.Transaction) float64 {
	income := sumByType(txs, core.Income)
	expense := sumByType(txs, core.Expense)
	if income.Cents <= 0 {
		return 0
	}
	return float64(income.Cents-expense.Cents) / float64(income.Cents) * 100
}

// CurrentMonthCategoryBudgets builds the per-category budget view for the
// month of the active filter date. Budget entries whose category no longer
// exists are skipped.
func (s *LocalStore) CurrentMonthCategoryBudgets() []CategoryBudget {
	s.mu.Lock()
	defer s.mu.Unlock()

	monthKey := s.filter.Date.MonthKey()
	budget, ok := s.budgets[monthKey]
	if !ok {
		return nil
	}

	ids := sortedKeys(budget.Categories)
	out := make([]CategoryBudget, 0, len(ids))
	for _, id := range ids {
		cat, found := s.cats.find(id)
		if !found {
			continue
		}
		limit := budget.Categories[id]
		spent := s.monthCategorySpentLocked(id, s.filter.Date)
		out = append(out, CategoryBudget{
			CategoryID: id,
			Name:       cat.Name,
			Icon:       cat.Icon,
			Limit:      limit,
			Spent:      spent,
			Remaining:  limit.Sub(spent),
			Progress:   progress(spent, limit),
			IsOver:     spent.Cents > limit.Cents,
		})
	}
	return out
}

// monthCategorySpentLocked sums expenses filed under the category or any
// category in its subtree during the month of ref.
func (s *LocalStore) monthCategorySpentLocked(categoryID string, ref core.Date) core.Money {
	members := map[string]struct{}{}
	for _, id := range s.cats.subtree(categoryID) {
		members[id] = struct{}{}
	}
	var sum core.Money
	for _, t := range s.transactions {
		if t.Type != core.Expense || !t.Date.SameMonth(ref) {
			continue
		}
		if _, ok := members[t.CategoryID]; ok {
			sum = sum.Add(t.Amount)
			continue
		}
		if _, ok := members[t.SubCategoryID]; ok {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func progress(spent, limit core.Money) float64 {
	if limit.Cents == 0 {
		return 0
	}
	return float64(spent.Cents) / float64(limit.Cents) * 100
}

// BudgetProgress is overall spending against the total budget for the
// active month, as a percentage.
func (s *LocalStore) BudgetProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	spent, total := s.monthTotalsLocked()
	return progress(spent, total)
}

// IsOverBudget reports whether the active month's spending exceeds its
// total budget.
func (s *LocalStore) IsOverBudget() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	spent, total := s.monthTotalsLocked()
	return total.Cents > 0 && spent.Cents > total.Cents
}

func (s *LocalStore) monthTotalsLocked() (spent, total core.Money) {
	budget := s.budgets[s.filter.Date.MonthKey()]
	for _, t := range s.transactions {
		if t.Type == core.Expense && t.Date.SameMonth(s.filter.Date) {
			spent = spent.Add(t.Amount)
		}
	}
	return spent, budget.Total
}

// BudgetReviewSuggestions generates the advisory lines for the active
// month, in a fixed order: the total-budget check first, then each
// over-limit or near-limit category by ascending id, then the savings
// rate check. Every triggered threshold appears; none replaces another.
func (s *LocalStore) BudgetReviewSuggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Suggestion
	spent, total := s.monthTotalsLocked()
	if total.Cents > 0 {
		p := progress(spent, total)
		switch {
		case p > 100:
			out = append(out, Suggestion{
				Level:   SuggestionDanger,
				Message: fmt.Sprintf("You are over your total budget by %.1f%%", p-100),
			})
		case p > 80:
			out = append(out, Suggestion{
				Level:   SuggestionWarning,
				Message: fmt.Sprintf("You have used %.1f%% of your total budget", p),
			})
		}
	}

	budget := s.budgets[s.filter.Date.MonthKey()]
	for _, id := range sortedKeys(budget.Categories) {
		cat, found := s.cats.find(id)
		if !found {
			continue
		}
		limit := budget.Categories[id]
		if limit.Cents == 0 {
			continue
		}
		catSpent := s.monthCategorySpentLocked(id, s.filter.Date)
		p := progress(catSpent, limit)
		switch {
		case catSpent.Cents > limit.Cents:
			out = append(out, Suggestion{
				Level:   SuggestionDanger,
				Message: fmt.Sprintf("%s is over its limit by %.1f%%", cat.Name, p-100),
			})
		case p > 90:
			out = append(out, Suggestion{
				Level:   SuggestionWarning,
				Message: fmt.Sprintf("%s is close to its limit (%.1f%%)", cat.Name, p),
			})
		}
	}

	txs := s.filteredLocked()
	income := sumByType(txs, core.Income)
	if income.Cents > 0 && savingsRate(txs) < 10 {
		out = append(out, Suggestion{
			Level:   SuggestionInfo,
			Message: "Your savings rate this period is below 10%, consider trimming discretionary spending",
		})
	}
	return out
}

// CategoryRankings groups the filtered expense transactions by category.
// Transactions without a category are skipped; transactions pointing at a
// deleted category keep their share under a sentinel name and icon.
func (s *LocalStore) CategoryRankings() []CategoryRanking {
	s.mu.Lock()
	defer s.mu.Unlock()

	type bucket struct {
		amount core.Money
		count  int
		first  int
	}
	buckets := map[string]*bucket{}
	order := 0
	for _, t := range s.filteredLocked() {
		if t.Type != core.Expense || t.CategoryID == "" {
			continue
		}
		b, ok := buckets[t.CategoryID]
		if !ok {
			b = &bucket{first: order}
			order++
			buckets[t.CategoryID] = b
		}
		b.amount = b.amount.Add(t.Amount)
		b.count++
	}

	var grandTotal core.Money
	for _, b := range buckets {
		grandTotal = grandTotal.Add(b.amount)
	}

	out := make([]CategoryRanking, 0, len(buckets))
	for id, b := range buckets {
		name, icon := UnknownCategoryName, UnknownCategoryIcon
		if cat, found := s.cats.find(id); found {
			name, icon = cat.Name, cat.Icon
		}
		var pct float64
		if grandTotal.Cents > 0 {
			pct = float64(b.amount.Cents) / float64(grandTotal.Cents) * 100
		}
		out = append(out, CategoryRanking{
			CategoryID: id,
			Name:       name,
			Icon:       icon,
			Amount:     b.amount,
			Count:      b.count,
			Percentage: pct,
		})
	}
	// Descending by amount; ties keep first-seen order so the result is
	// stable across recomputations.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return buckets[out[i].CategoryID].first < buckets[out[j].CategoryID].first
	})
	return out
}

func sortedKeys(m map[string]core.Money) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
