package remote

import (
	"strings"

	"moneyflow/internal/core"
)

// The backend speaks snake_case and carries tags as one comma-joined
// string; everything here translates between that and the domain types.

type transactionDTO struct {
	ID            string     `json:"id"`
	Date          core.Date  `json:"date"`
	Type          string     `json:"type"`
	Amount        core.Money `json:"amount"`
	Currency      string     `json:"currency"`
	CategoryID    string     `json:"category_id,omitempty"`
	SubCategoryID string     `json:"sub_category_id,omitempty"`
	AccountID     string     `json:"account_id,omitempty"`
	FromAccountID string     `json:"from_account_id,omitempty"`
	ToAccountID   string     `json:"to_account_id,omitempty"`
	Description   string     `json:"description,omitempty"`
	Tags          string     `json:"tags,omitempty"`
	IsRecurring   bool       `json:"is_recurring,omitempty"`
	RecurringID   string     `json:"recurring_id,omitempty"`
}

func (d transactionDTO) toDomain() core.Transaction {
	return core.Transaction{
		ID:            d.ID,
		Date:          d.Date,
		Type:          core.TransactionType(d.Type),
		Amount:        d.Amount,
		Currency:      d.Currency,
		CategoryID:    d.CategoryID,
		SubCategoryID: d.SubCategoryID,
		AccountID:     d.AccountID,
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		Description:   d.Description,
		Tags:          splitTags(d.Tags),
		IsRecurring:   d.IsRecurring,
		RecurringID:   d.RecurringID,
	}
}

func transactionToDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:            t.ID,
		Date:          t.Date,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Currency:      t.Currency,
		CategoryID:    t.CategoryID,
		SubCategoryID: t.SubCategoryID,
		AccountID:     t.AccountID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Description:   t.Description,
		Tags:          joinTags(t.Tags),
		IsRecurring:   t.IsRecurring,
		RecurringID:   t.RecurringID,
	}
}

func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// accountDTO includes the server-computed balance. The remote store
// trusts it and never recomputes transfers locally.
type accountDTO struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Icon           string     `json:"icon"`
	InitialBalance core.Money `json:"initial_balance"`
	Balance        core.Money `json:"balance"`
}

func (d accountDTO) toDomain() core.Account {
	return core.Account{
		ID:             d.ID,
		Name:           d.Name,
		Type:           core.AccountType(d.Type),
		Icon:           d.Icon,
		InitialBalance: d.InitialBalance,
	}
}

func accountToDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		Name:           a.Name,
		Type:           string(a.Type),
		Icon:           a.Icon,
		InitialBalance: a.InitialBalance,
	}
}

type categoryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Icon     string `json:"icon"`
	ParentID string `json:"parent_id,omitempty"`
}

func (d categoryDTO) toDomain() core.Category {
	return core.Category{
		ID:       d.ID,
		Name:     d.Name,
		Type:     core.CategoryType(d.Type),
		Icon:     d.Icon,
		ParentID: d.ParentID,
	}
}

type budgetDTO struct {
	Total      core.Money            `json:"total"`
	Categories map[string]core.Money `json:"categories,omitempty"`
}

func (d budgetDTO) toDomain() core.Budget {
	b := core.Budget{Total: d.Total, Categories: d.Categories}
	if b.Categories == nil {
		b.Categories = map[string]core.Money{}
	}
	return b
}

type goalDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	TargetAmount  core.Money `json:"target_amount"`
	CurrentAmount core.Money `json:"current_amount"`
	Icon          string     `json:"icon"`
	Color         string     `json:"color"`
	Deadline      core.Date  `json:"deadline,omitempty"`
	CreatedAt     core.Date  `json:"created_at"`
}

func (d goalDTO) toDomain() core.Goal {
	return core.Goal{
		ID:            d.ID,
		Name:          d.Name,
		TargetAmount:  d.TargetAmount,
		CurrentAmount: d.CurrentAmount,
		Icon:          d.Icon,
		Color:         d.Color,
		Deadline:      d.Deadline,
		CreatedAt:     d.CreatedAt,
	}
}

func goalToDTO(g core.Goal) goalDTO {
	return goalDTO{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Icon:          g.Icon,
		Color:         g.Color,
		Deadline:      g.Deadline,
		CreatedAt:     g.CreatedAt,
	}
}

type recurringRuleDTO struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	Amount            core.Money `json:"amount"`
	Frequency         string     `json:"frequency"`
	StartDate         core.Date  `json:"start_date"`
	CategoryID        string     `json:"category_id"`
	SubCategoryID     string     `json:"sub_category_id,omitempty"`
	AccountID         string     `json:"account_id"`
	Description       string     `json:"description,omitempty"`
	LastGeneratedDate core.Date  `json:"last_generated_date,omitempty"`
	NextDate          core.Date  `json:"next_date"`
}

func (d recurringRuleDTO) toDomain() core.RecurringRule {
	return core.RecurringRule{
		ID:                d.ID,
		Type:              core.TransactionType(d.Type),
		Amount:            d.Amount,
		Frequency:         core.Frequency(d.Frequency),
		StartDate:         d.StartDate,
		CategoryID:        d.CategoryID,
		SubCategoryID:     d.SubCategoryID,
		AccountID:         d.AccountID,
		Description:       d.Description,
		LastGeneratedDate: d.LastGeneratedDate,
		NextDate:          d.NextDate,
	}
}

func recurringRuleToDTO(r core.RecurringRule) recurringRuleDTO {
	return recurringRuleDTO{
		ID:                r.ID,
		Type:              string(r.Type),
		Amount:            r.Amount,
		Frequency:         string(r.Frequency),
		StartDate:         r.StartDate,
		CategoryID:        r.CategoryID,
		SubCategoryID:     r.SubCategoryID,
		AccountID:         r.AccountID,
		Description:       r.Description,
		LastGeneratedDate: r.LastGeneratedDate,
		NextDate:          r.NextDate,
	}
}
