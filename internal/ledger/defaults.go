package ledger

import "moneyflow/internal/core"

// Fixed seed data installed when persistence has no blob for accounts or
// categories. Ids below 100 are reserved for seeds so generated ids
// (millisecond stamps) can never collide with them.
const (
	DefaultAccountID = "1"
	DefaultCurrency  = "CNY"
)

// DefaultAccounts is the fixed default account set.
var DefaultAccounts = []core.Account{
	{ID: "1", Name: "Cash", Type: core.AccountCash, Icon: "Wallet"},
	{ID: "2", Name: "Bank Card", Type: core.AccountCard, Icon: "CreditCard"},
	{ID: "3", Name: "Alipay", Type: core.AccountAlipay, Icon: "Smartphone"},
	{ID: "4", Name: "WeChat Pay", Type: core.AccountWeChat, Icon: "MessageCircle"},
}

// DefaultCategories is the fixed two-level default category set, stored
// flat with parent back-references.
var DefaultCategories = []core.Category{
	{ID: "10", Name: "Food & Drink", Type: core.CategoryExpense, Icon: "Utensils"},
	{ID: "11", Name: "Groceries", Type: core.CategoryExpense, Icon: "ShoppingBasket", ParentID: "10"},
	{ID: "12", Name: "Restaurants", Type: core.CategoryExpense, Icon: "ChefHat", ParentID: "10"},
	{ID: "20", Name: "Transport", Type: core.CategoryExpense, Icon: "Bus"},
	{ID: "21", Name: "Public Transit", Type: core.CategoryExpense, Icon: "TrainFront", ParentID: "20"},
	{ID: "22", Name: "Taxi", Type: core.CategoryExpense, Icon: "CarTaxiFront", ParentID: "20"},
	{ID: "30", Name: "Housing", Type: core.CategoryExpense, Icon: "House"},
	{ID: "31", Name: "Rent", Type: core.CategoryExpense, Icon: "KeyRound", ParentID: "30"},
	{ID: "32", Name: "Utilities", Type: core.CategoryExpense, Icon: "Plug", ParentID: "30"},
	{ID: "40", Name: "Entertainment", Type: core.CategoryExpense, Icon: "Gamepad2"},
	{ID: "50", Name: "Shopping", Type: core.CategoryExpense, Icon: "ShoppingBag"},
	{ID: "60", Name: "Salary", Type: core.CategoryIncome, Icon: "Banknote"},
	{ID: "70", Name: "Investment", Type: core.CategoryIncome, Icon: "TrendingUp"},
	{ID: "80", Name: "Other Income", Type: core.CategoryIncome, Icon: "Coins"},
}

// Sentinel display values for rankings over unknown categories.
const (
	UnknownCategoryName = "Other"
	UnknownCategoryIcon = "HelpCircle"
)
