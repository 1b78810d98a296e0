package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account holder. Password-only users have an
// empty GoogleSub; users created through Google sign-in have an empty
// PasswordHash.
type User struct {
	ID           string `json:"_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	GoogleSub    string `json:"-"`
}

// Account represents a financial account owned by a single user.
type Account struct {
	ID          string          `json:"_id"`
	OwnerID     string          `json:"user_id"`
	Name        string          `json:"account_name"`
	Currency    string          `json:"account_currency"`
	Description string          `json:"account_desc"`
	Balance     decimal.Decimal `json:"account_balance"`
}

// Category classifies incomes and expenses for a single user.
type Category struct {
	ID          string `json:"_id"`
	OwnerID     string `json:"category_owner_id"`
	Name        string `json:"category_name"`
	Type        string `json:"category_type"`
	Description string `json:"category_desc"`
	Color       string `json:"category_color"`
	Symbol      string `json:"category_symbol"`
}

// Expense is a recorded outgoing amount. TargetDay is the day of the month
// the expense recurs on, or -1 for a one-off.
type Expense struct {
	ID          string          `json:"_id"`
	OwnerID     string          `json:"expense_owner_id"`
	AccountID   string          `json:"expense_account_id"`
	CategoryID  string          `json:"expense_category_id"`
	Name        string          `json:"expense_name"`
	Value       decimal.Decimal `json:"expense_value"`
	Description string          `json:"expense_desc"`
	TargetDay   int             `json:"expense_target_day"`
}

// Income is a recorded incoming amount. TargetDay is the day of the month
// the income recurs on, or -1 for a one-off.
type Income struct {
	ID          string          `json:"_id"`
	OwnerID     string          `json:"income_owner_id"`
	AccountID   string          `json:"income_account_id"`
	CategoryID  string          `json:"income_category_id"`
	Name        string          `json:"income_name"`
	Value       decimal.Decimal `json:"income_value"`
	Description string          `json:"income_desc"`
	TargetDay   int             `json:"income_target_day"`
}

// Session binds an issued access token to a user on the server side so that
// tokens can be revoked before they expire.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
