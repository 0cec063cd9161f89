package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	AccountCash   AccountType = "cash"
	AccountCard   AccountType = "card"
	AccountAlipay AccountType = "alipay"
	AccountWeChat AccountType = "wechat"
	AccountOther  AccountType = "other"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

type (
	TransactionType string
	Frequency       string
	AccountType     string
	CategoryType    string

	// Date is a calendar day. Time-of-day is always midnight UTC and the
	// JSON representation is ISO (2006-01-02).
	Date struct {
		time.Time
	}

	Transaction struct {
		ID            string          `json:"id"`
		Date          Date            `json:"date"`
		Type          TransactionType `json:"type"`
		Amount        Money           `json:"amount"`
		Currency      string          `json:"currency"`
		CategoryID    string          `json:"categoryId,omitempty"`
		SubCategoryID string          `json:"subCategoryId,omitempty"`
		AccountID     string          `json:"accountId,omitempty"`
		FromAccountID string          `json:"fromAccountId,omitempty"`
		ToAccountID   string          `json:"toAccountId,omitempty"`
		Description   string          `json:"description,omitempty"`
		Tags          []string        `json:"tags,omitempty"`
		IsRecurring   bool            `json:"isRecurring,omitempty"`
		RecurringID   string          `json:"recurringId,omitempty"`
	}

	Account struct {
		ID             string      `json:"id"`
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		Icon           string      `json:"icon"`
		InitialBalance Money       `json:"initialBalance"`
	}

	// Category is a flat record; the tree is rebuilt from ParentID by the
	// ledger's category index rather than stored nested.
	Category struct {
		ID       string       `json:"id"`
		Name     string       `json:"name"`
		Type     CategoryType `json:"type"`
		Icon     string       `json:"icon"`
		ParentID string       `json:"parentId,omitempty"`
	}

	// CategoryNode is a materialized tree view over Category records.
	CategoryNode struct {
		Category
		Children []CategoryNode `json:"children,omitempty"`
	}

	// Budget holds one month's spending plan, keyed externally by YYYY-MM.
	Budget struct {
		Total      Money            `json:"total"`
		Categories map[string]Money `json:"categories,omitempty"`
	}

	RecurringRule struct {
		ID                string          `json:"id"`
		Type              TransactionType `json:"type"`
		Amount            Money           `json:"amount"`
		Frequency         Frequency       `json:"frequency"`
		StartDate         Date            `json:"startDate"`
		CategoryID        string          `json:"categoryId"`
		SubCategoryID     string          `json:"subCategoryId,omitempty"`
		AccountID         string          `json:"accountId"`
		Description       string          `json:"description,omitempty"`
		LastGeneratedDate Date            `json:"lastGeneratedDate,omitempty"`
		NextDate          Date            `json:"nextDate"`
	}

	Goal struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		TargetAmount  Money  `json:"targetAmount"`
		CurrentAmount Money  `json:"currentAmount"`
		Icon          string `json:"icon"`
		Color         string `json:"color"`
		Deadline      Date   `json:"deadline,omitempty"`
		CreatedAt     Date   `json:"createdAt"`
	}

	// RateTable maps currencies to units per one unit of Base.
	RateTable struct {
		Base       string             `json:"base"`
		Rates      map[string]float64 `json:"rates"`
		LastUpdate time.Time          `json:"lastUpdate"`
	}
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Advance moves a date forward by one period of the frequency.
func (f Frequency) Advance(d Date) Date {
	switch f {
	case Daily:
		return Date{Time: d.AddDate(0, 0, 1)}
	case Weekly:
		return Date{Time: d.AddDate(0, 0, 7)}
	case Monthly:
		return Date{Time: d.AddDate(0, 1, 0)}
	case Yearly:
		return Date{Time: d.AddDate(1, 0, 0)}
	default:
		return d
	}
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Tolerate full timestamps from older blobs.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// SameYear reports whether both dates fall in the same calendar year.
func (d Date) SameYear(o Date) bool {
	return d.Year() == o.Year()
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// SameDay reports whether both dates are the same calendar day.
func (d Date) SameDay(o Date) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MonthKey renders the YYYY-MM key used for budgets.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if t.Type == Transfer && (t.FromAccountID == "" || t.ToAccountID == "") {
		return errors.New("transfer requires both from and to accounts")
	}
	return nil
}

// References reports whether the transaction touches the given account.
func (t Transaction) References(accountID string) bool {
	return t.AccountID == accountID || t.FromAccountID == accountID || t.ToAccountID == accountID
}

// UsesCategory reports whether the transaction points at the given category,
// either as its category or sub-category.
func (t Transaction) UsesCategory(categoryID string) bool {
	return t.CategoryID == categoryID || t.SubCategoryID == categoryID
}

// HasAllTags reports whether the transaction's tag set is a superset of want.
// An empty want always passes.
func (t Transaction) HasAllTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(t.Tags))
	for _, tag := range t.Tags {
		have[tag] = struct{}{}
	}
	for _, tag := range want {
		if _, ok := have[tag]; !ok {
			return false
		}
	}
	return true
}

func (r RecurringRule) Validate() error {
	if !r.Type.IsValid() {
		return ErrInvalidType
	}
	if !r.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if r.StartDate.IsZero() {
		return errors.New("recurring rule requires a start date")
	}
	if r.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
