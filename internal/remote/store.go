// Package remote implements the ledger against the backend's REST
// surface. The server is authoritative: balances arrive computed, ids
// are assigned remotely, and referential-integrity failures come back
// as application errors instead of being checked locally.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"moneyflow/internal/cache"
	"moneyflow/internal/client"
	"moneyflow/internal/core"
	"moneyflow/internal/ledger"
	"moneyflow/internal/notify"
)

const budgetCacheTTL = 5 * time.Minute

var _ ledger.Ledger = (*Store)(nil)

// Store is the backend-authoritative Ledger.
type Store struct {
	api     *client.Coordinator
	center  *notify.Center
	budgets *cache.LRU[core.Budget]
}

func NewStore(api *client.Coordinator, center *notify.Center) *Store {
	return &Store{
		api:     api,
		center:  center,
		budgets: cache.NewLRU[core.Budget](24, budgetCacheTTL),
	}
}

// Init probes the collections the app needs at startup, concurrently.
// Any failure aborts the whole initialization.
func (s *Store) Init(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Accounts(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.CategoryTree(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Transactions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initializing remote ledger: %w", err)
	}
	slog.InfoContext(ctx, "Remote ledger initialized")
	return nil
}

// --- transactions ---

func (s *Store) Transactions(ctx context.Context) ([]core.Transaction, error) {
	dtos, err := client.Call[[]transactionDTO](ctx, s.api, client.Get("/transactions", nil))
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	d, err := client.Call[transactionDTO](ctx, s.api, client.Post("/transactions", transactionToDTO(t)))
	if err != nil {
		s.center.Error("Recording the transaction failed")
		return core.Transaction{}, err
	}
	s.center.Success("Transaction recorded")
	return d.toDomain(), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, patch ledger.TransactionPatch) error {
	body := map[string]any{}
	putIf(body, "date", patch.Date)
	putIf(body, "type", patch.Type)
	putIf(body, "amount", patch.Amount)
	putIf(body, "currency", patch.Currency)
	putIf(body, "category_id", patch.CategoryID)
	putIf(body, "sub_category_id", patch.SubCategoryID)
	putIf(body, "account_id", patch.AccountID)
	putIf(body, "from_account_id", patch.FromAccountID)
	putIf(body, "to_account_id", patch.ToAccountID)
	putIf(body, "description", patch.Description)
	if patch.Tags != nil {
		body["tags"] = joinTags(*patch.Tags)
	}
	if _, err := s.api.Do(ctx, client.Put("/transactions/"+id, body)); err != nil {
		s.center.Error("Updating the transaction failed")
		return err
	}
	s.center.Success("Transaction updated")
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, client.Delete("/transactions/"+id)); err != nil {
		s.center.Error("Deleting the transaction failed")
		return err
	}
	s.center.Success("Transaction deleted")
	return nil
}

// --- accounts ---

func (s *Store) Accounts(ctx context.Context) ([]core.Account, error) {
	dtos, err := client.Call[[]accountDTO](ctx, s.api, client.Get("/accounts", nil))
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	d, err := client.Call[accountDTO](ctx, s.api, client.Post("/accounts", accountToDTO(a)))
	if err != nil {
		s.center.Error("Adding the account failed")
		return core.Account{}, err
	}
	s.center.Success("Account added")
	return d.toDomain(), nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch ledger.AccountPatch) error {
	body := map[string]any{}
	putIf(body, "name", patch.Name)
	putIf(body, "type", patch.Type)
	putIf(body, "icon", patch.Icon)
	putIf(body, "initial_balance", patch.InitialBalance)
	if _, err := s.api.Do(ctx, client.Put("/accounts/"+id, body)); err != nil {
		s.center.Error("Updating the account failed")
		return err
	}
	s.center.Success("Account updated")
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, client.Delete("/accounts/"+id)); err != nil {
		s.center.Error("Deleting the account failed")
		return err
	}
	s.center.Success("Account deleted")
	return nil
}

// AccountBalances returns the balances as the server computed them.
func (s *Store) AccountBalances(ctx context.Context) (map[string]core.Money, error) {
	dtos, err := client.Call[[]accountDTO](ctx, s.api, client.Get("/accounts", nil))
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Money, len(dtos))
	for _, d := range dtos {
		out[d.ID] = d.Balance
	}
	return out, nil
}

// --- categories ---

func (s *Store) CategoryTree(ctx context.Context) ([]core.CategoryNode, error) {
	dtos, err := client.Call[[]categoryDTO](ctx, s.api, client.Get("/categories", nil))
	if err != nil {
		return nil, err
	}
	flat := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		flat = append(flat, d.toDomain())
	}
	return assembleTree(flat), nil
}

// assembleTree rebuilds the category forest from flat parent
// back-references, keeping the server's ordering.
func assembleTree(flat []core.Category) []core.CategoryNode {
	children := make(map[string][]core.Category)
	var rootIDs []string
	byID := make(map[string]core.Category, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
		if c.ParentID == "" {
			rootIDs = append(rootIDs, c.ID)
		} else {
			children[c.ParentID] = append(children[c.ParentID], c)
		}
	}
	var build func(c core.Category) core.CategoryNode
	build = func(c core.Category) core.CategoryNode {
		node := core.CategoryNode{Category: c}
		for _, child := range children[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	out := make([]core.CategoryNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		out = append(out, build(byID[id]))
	}
	return out
}

func (s *Store) AddCategory(ctx context.Context, c core.Category, parentID string) (core.Category, error) {
	body := categoryDTO{
		Name:     c.Name,
		Type:     string(c.Type),
		Icon:     c.Icon,
		ParentID: parentID,
	}
	d, err := client.Call[categoryDTO](ctx, s.api, client.Post("/categories", body))
	if err != nil {
		s.center.Error("Adding the category failed")
		return core.Category{}, err
	}
	s.center.Success("Category added")
	return d.toDomain(), nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch ledger.CategoryPatch) error {
	body := map[string]any{}
	putIf(body, "name", patch.Name)
	putIf(body, "icon", patch.Icon)
	if _, err := s.api.Do(ctx, client.Put("/categories/"+id, body)); err != nil {
		s.center.Error("Updating the category failed")
		return err
	}
	s.center.Success("Category updated")
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, client.Delete("/categories/"+id)); err != nil {
		s.center.Error("Deleting the category failed")
		return err
	}
	s.center.Success("Category deleted")
	return nil
}

// --- budgets ---

// Budget serves recently viewed months from a small LRU so month-to-month
// browsing does not refetch.
func (s *Store) Budget(ctx context.Context, monthKey string) (core.Budget, error) {
	if cached, ok := s.budgets.Get(monthKey); ok {
		return cached, nil
	}
	q := url.Values{"month": {monthKey}}
	d, err := client.Call[budgetDTO](ctx, s.api, client.Get("/budgets", q))
	if err != nil {
		return core.Budget{}, err
	}
	b := d.toDomain()
	s.budgets.Set(monthKey, b)
	return b, nil
}

func (s *Store) SetBudget(ctx context.Context, monthKey string, b core.Budget) error {
	body := budgetDTO{Total: b.Total, Categories: b.Categories}
	if _, err := s.api.Do(ctx, client.Put("/budgets/"+monthKey, body)); err != nil {
		s.center.Error("Saving the budget failed")
		return err
	}
	s.budgets.Delete(monthKey)
	s.center.Success("Budget saved")
	return nil
}

// --- goals ---

func (s *Store) Goals(ctx context.Context) ([]core.Goal, error) {
	dtos, err := client.Call[[]goalDTO](ctx, s.api, client.Get("/goals", nil))
	if err != nil {
		return nil, err
	}
	out := make([]core.Goal, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	d, err := client.Call[goalDTO](ctx, s.api, client.Post("/goals", goalToDTO(g)))
	if err != nil {
		s.center.Error("Adding the goal failed")
		return core.Goal{}, err
	}
	s.center.Success("Goal added")
	return d.toDomain(), nil
}

func (s *Store) UpdateGoal(ctx context.Context, id string, patch ledger.GoalPatch) error {
	body := map[string]any{}
	putIf(body, "name", patch.Name)
	putIf(body, "target_amount", patch.TargetAmount)
	putIf(body, "icon", patch.Icon)
	putIf(body, "color", patch.Color)
	putIf(body, "deadline", patch.Deadline)
	if _, err := s.api.Do(ctx, client.Put("/goals/"+id, body)); err != nil {
		s.center.Error("Updating the goal failed")
		return err
	}
	s.center.Success("Goal updated")
	return nil
}

// UpdateGoalProgress posts a progress record; the server applies the
// delta and returns the updated goal, clamped at zero on its side.
func (s *Store) UpdateGoalProgress(ctx context.Context, id string, delta core.Money) (core.Goal, error) {
	body := map[string]any{"amount": delta}
	d, err := client.Call[goalDTO](ctx, s.api, client.Post("/goals/"+id+"/records", body))
	if err != nil {
		s.center.Error("Updating goal progress failed")
		return core.Goal{}, err
	}
	s.center.Success("Goal progress updated")
	return d.toDomain(), nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, client.Delete("/goals/"+id)); err != nil {
		s.center.Error("Deleting the goal failed")
		return err
	}
	s.center.Success("Goal deleted")
	return nil
}

// --- recurring rules ---

func (s *Store) RecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	dtos, err := client.Call[[]recurringRuleDTO](ctx, s.api, client.Get("/recurring-rules", nil))
	if err != nil {
		return nil, err
	}
	out := make([]core.RecurringRule, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) AddRecurringRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	if err := r.Validate(); err != nil {
		s.center.Error("Invalid recurring rule")
		return core.RecurringRule{}, fmt.Errorf("add recurring rule: %w", err)
	}
	d, err := client.Call[recurringRuleDTO](ctx, s.api, client.Post("/recurring-rules", recurringRuleToDTO(r)))
	if err != nil {
		s.center.Error("Adding the recurring rule failed")
		return core.RecurringRule{}, err
	}
	s.center.Success("Recurring rule added")
	return d.toDomain(), nil
}

func (s *Store) DeleteRecurringRule(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, client.Delete("/recurring-rules/"+id)); err != nil {
		s.center.Error("Deleting the recurring rule failed")
		return err
	}
	s.center.Success("Recurring rule deleted")
	return nil
}

// putIf adds a patch field to the body when it was set.
func putIf[T any](body map[string]any, key string, v *T) {
	if v != nil {
		body[key] = *v
	}
}
