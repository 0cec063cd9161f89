package ledger

import (
	"context"

	"moneyflow/internal/core"
)

// Patch types carry explicit optional fields; a nil pointer means
// "leave unchanged". No implicit coalescing happens here.
type (
	TransactionPatch struct {
		Date          *core.Date
		Type          *core.TransactionType
		Amount        *core.Money
		Currency      *string
		CategoryID    *string
		SubCategoryID *string
		AccountID     *string
		FromAccountID *string
		ToAccountID   *string
		Description   *string
		Tags          *[]string
	}

	AccountPatch struct {
		Name           *string
		Type           *core.AccountType
		Icon           *string
		InitialBalance *core.Money
	}

	CategoryPatch struct {
		Name *string
		Icon *string
	}

	GoalPatch struct {
		Name         *string
		TargetAmount *core.Money
		Icon         *string
		Color        *string
		Deadline     *core.Date
	}
)

// Ledger is the operation surface shared by the local-first store and the
// backend-authoritative store. Which one backs the application is a
// configuration choice made by the backend factory.
type Ledger interface {
	Init(ctx context.Context) error

	Transactions(ctx context.Context) ([]core.Transaction, error)
	AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) error
	DeleteTransaction(ctx context.Context, id string) error

	Accounts(ctx context.Context) ([]core.Account, error)
	AddAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) error
	DeleteAccount(ctx context.Context, id string) error
	AccountBalances(ctx context.Context) (map[string]core.Money, error)

	CategoryTree(ctx context.Context) ([]core.CategoryNode, error)
	AddCategory(ctx context.Context, c core.Category, parentID string) (core.Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) error
	DeleteCategory(ctx context.Context, id string) error

	Budget(ctx context.Context, monthKey string) (core.Budget, error)
	SetBudget(ctx context.Context, monthKey string, b core.Budget) error

	Goals(ctx context.Context) ([]core.Goal, error)
	AddGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, id string, patch GoalPatch) error
	UpdateGoalProgress(ctx context.Context, id string, delta core.Money) (core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	RecurringRules(ctx context.Context) ([]core.RecurringRule, error)
	AddRecurringRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, id string) error
}
