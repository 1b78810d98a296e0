package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"expenseman/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no row matches a query. Compound
	// id+owner filters fold "not yours" into this as well, so callers
	// cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a user with the email exists.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrAccountLimit is returned when a user has reached the maximum
	// number of accounts.
	ErrAccountLimit = errors.New("account limit reached")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			google_sub TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			currency TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			balance TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT 'red',
			symbol TEXT NOT NULL DEFAULT 'Bank Symbol'
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			target_day INTEGER NOT NULL DEFAULT -1
		)`,
		`CREATE TABLE IF NOT EXISTS incomes (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			target_day INTEGER NOT NULL DEFAULT -1
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_owner ON categories(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_owner ON expenses(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incomes_owner ON incomes(owner_id)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ---- Users ----

// CreateUser creates a new password-based user.
func (db *DB) CreateUser(email, passwordHash string) (*models.User, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)",
		id, email, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return db.GetUserByID(id)
}

// CreateGoogleUser creates a user tied to a Google identity, with no
// password set.
func (db *DB) CreateGoogleUser(email, sub string) (*models.User, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO users (id, email, google_sub) VALUES (?, ?, ?)",
		id, email, sub,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return db.GetUserByID(id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		"SELECT id, email, password_hash, google_sub FROM users WHERE id = ?", id,
	))
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		"SELECT id, email, password_hash, google_sub FROM users WHERE email = ?", email,
	))
}

// GetUserByGoogle retrieves a user by email and Google subject ID.
func (db *DB) GetUserByGoogle(email, sub string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRow(
		"SELECT id, email, password_hash, google_sub FROM users WHERE email = ? AND google_sub = ?",
		email, sub,
	))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GoogleSub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// ---- Accounts ----

// CreateAccount inserts a new account for its owner. The per-owner limit is
// checked inside the same transaction as the insert so concurrent requests
// cannot exceed it. Fills in the generated ID on success.
func (db *DB) CreateAccount(a *models.Account, limit int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM accounts WHERE owner_id = ?", a.OwnerID).Scan(&count); err != nil {
		return err
	}
	if count >= limit {
		return ErrAccountLimit
	}

	a.ID = uuid.NewString()
	_, err = tx.Exec(
		"INSERT INTO accounts (id, owner_id, name, currency, description, balance) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.OwnerID, a.Name, a.Currency, a.Description, a.Balance.String(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListAccounts retrieves all accounts owned by the user.
func (db *DB) ListAccounts(ownerID string) ([]models.Account, error) {
	rows, err := db.conn.Query(
		"SELECT id, owner_id, name, currency, description, balance FROM accounts WHERE owner_id = ?",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		var balance string
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Description, &balance); err != nil {
			return nil, err
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("account %s has bad balance: %w", a.ID, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount retrieves a single account by id and owner. A miss on either
// part of the filter yields ErrNotFound.
func (db *DB) GetAccount(id, ownerID string) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, owner_id, name, currency, description, balance FROM accounts WHERE id = ? AND owner_id = ?",
		id, ownerID,
	)
	var a models.Account
	var balance string
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Description, &balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("account %s has bad balance: %w", a.ID, err)
	}
	return &a, nil
}

// AccountUpdate describes a partial account update. Nil fields are left
// unchanged.
type AccountUpdate struct {
	Name        *string
	Currency    *string
	Description *string
	Balance     *decimal.Decimal
}

// UpdateAccount applies a partial update under the compound id+owner filter.
func (db *DB) UpdateAccount(id, ownerID string, upd AccountUpdate) error {
	set := []string{}
	args := []any{}
	if upd.Name != nil {
		set, args = append(set, "name = ?"), append(args, *upd.Name)
	}
	if upd.Currency != nil {
		set, args = append(set, "currency = ?"), append(args, *upd.Currency)
	}
	if upd.Description != nil {
		set, args = append(set, "description = ?"), append(args, *upd.Description)
	}
	if upd.Balance != nil {
		set, args = append(set, "balance = ?"), append(args, upd.Balance.String())
	}
	if len(set) == 0 {
		_, err := db.GetAccount(id, ownerID)
		return err
	}
	args = append(args, id, ownerID)
	return db.execOwned(
		"UPDATE accounts SET "+strings.Join(set, ", ")+" WHERE id = ? AND owner_id = ?", args...,
	)
}

// DeleteAccount removes an account and all expenses and incomes recorded
// against it, in one transaction.
func (db *DB) DeleteAccount(id, ownerID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM accounts WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec("DELETE FROM expenses WHERE account_id = ? AND owner_id = ?", id, ownerID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM incomes WHERE account_id = ? AND owner_id = ?", id, ownerID); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- Categories ----

// CreateCategory inserts a new category. Fills in the generated ID.
func (db *DB) CreateCategory(c *models.Category) error {
	c.ID = uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO categories (id, owner_id, name, type, description, color, symbol) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.OwnerID, c.Name, c.Type, c.Description, c.Color, c.Symbol,
	)
	return err
}

// ListCategories retrieves all categories owned by the user.
func (db *DB) ListCategories(ownerID string) ([]models.Category, error) {
	rows, err := db.conn.Query(
		"SELECT id, owner_id, name, type, description, color, symbol FROM categories WHERE owner_id = ?",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type, &c.Description, &c.Color, &c.Symbol); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a single category by id and owner.
func (db *DB) GetCategory(id, ownerID string) (*models.Category, error) {
	row := db.conn.QueryRow(
		"SELECT id, owner_id, name, type, description, color, symbol FROM categories WHERE id = ? AND owner_id = ?",
		id, ownerID,
	)
	var c models.Category
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type, &c.Description, &c.Color, &c.Symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CategoryUpdate describes a partial category update.
type CategoryUpdate struct {
	Name        *string
	Type        *string
	Description *string
	Color       *string
	Symbol      *string
}

// UpdateCategory applies a partial update under the compound id+owner filter.
func (db *DB) UpdateCategory(id, ownerID string, upd CategoryUpdate) error {
	set := []string{}
	args := []any{}
	if upd.Name != nil {
		set, args = append(set, "name = ?"), append(args, *upd.Name)
	}
	if upd.Type != nil {
		set, args = append(set, "type = ?"), append(args, *upd.Type)
	}
	if upd.Description != nil {
		set, args = append(set, "description = ?"), append(args, *upd.Description)
	}
	if upd.Color != nil {
		set, args = append(set, "color = ?"), append(args, *upd.Color)
	}
	if upd.Symbol != nil {
		set, args = append(set, "symbol = ?"), append(args, *upd.Symbol)
	}
	if len(set) == 0 {
		_, err := db.GetCategory(id, ownerID)
		return err
	}
	args = append(args, id, ownerID)
	return db.execOwned(
		"UPDATE categories SET "+strings.Join(set, ", ")+" WHERE id = ? AND owner_id = ?", args...,
	)
}

// DeleteCategory removes a category under the compound id+owner filter.
// Expenses and incomes referencing it are left in place.
func (db *DB) DeleteCategory(id, ownerID string) error {
	return db.execOwned("DELETE FROM categories WHERE id = ? AND owner_id = ?", id, ownerID)
}

// ---- Expenses ----

// EntryFilter narrows an expense or income listing. The zero value lists
// everything the owner has. At most one field should be set.
type EntryFilter struct {
	ID         string
	AccountID  string
	CategoryID string
}

// EntryUpdate describes a partial expense or income update.
type EntryUpdate struct {
	Name        *string
	Value       *decimal.Decimal
	Description *string
	TargetDay   *int
}

// CreateExpense inserts a new expense. Fills in the generated ID.
func (db *DB) CreateExpense(e *models.Expense) error {
	e.ID = uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO expenses (id, owner_id, account_id, category_id, name, value, description, target_day) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.OwnerID, e.AccountID, e.CategoryID, e.Name, e.Value.String(), e.Description, e.TargetDay,
	)
	return err
}

// ListExpenses retrieves the owner's expenses, optionally narrowed by id,
// account or category.
func (db *DB) ListExpenses(ownerID string, f EntryFilter) ([]models.Expense, error) {
	query, args := entryQuery("expenses", ownerID, f)
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var value string
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.AccountID, &e.CategoryID, &e.Name, &value, &e.Description, &e.TargetDay); err != nil {
			return nil, err
		}
		if e.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("expense %s has bad value: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateExpense applies a partial update under the compound id+owner filter.
func (db *DB) UpdateExpense(id, ownerID string, upd EntryUpdate) error {
	return db.updateEntry("expenses", id, ownerID, upd)
}

// DeleteExpense removes an expense under the compound id+owner filter.
func (db *DB) DeleteExpense(id, ownerID string) error {
	return db.execOwned("DELETE FROM expenses WHERE id = ? AND owner_id = ?", id, ownerID)
}

// ---- Incomes ----

// CreateIncome inserts a new income. Fills in the generated ID.
func (db *DB) CreateIncome(in *models.Income) error {
	in.ID = uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO incomes (id, owner_id, account_id, category_id, name, value, description, target_day) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		in.ID, in.OwnerID, in.AccountID, in.CategoryID, in.Name, in.Value.String(), in.Description, in.TargetDay,
	)
	return err
}

// ListIncomes retrieves the owner's incomes, optionally narrowed by id,
// account or category.
func (db *DB) ListIncomes(ownerID string, f EntryFilter) ([]models.Income, error) {
	query, args := entryQuery("incomes", ownerID, f)
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := []models.Income{}
	for rows.Next() {
		var in models.Income
		var value string
		if err := rows.Scan(&in.ID, &in.OwnerID, &in.AccountID, &in.CategoryID, &in.Name, &value, &in.Description, &in.TargetDay); err != nil {
			return nil, err
		}
		if in.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("income %s has bad value: %w", in.ID, err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// UpdateIncome applies a partial update under the compound id+owner filter.
func (db *DB) UpdateIncome(id, ownerID string, upd EntryUpdate) error {
	return db.updateEntry("incomes", id, ownerID, upd)
}

// DeleteIncome removes an income under the compound id+owner filter.
func (db *DB) DeleteIncome(id, ownerID string) error {
	return db.execOwned("DELETE FROM incomes WHERE id = ? AND owner_id = ?", id, ownerID)
}

func entryQuery(table, ownerID string, f EntryFilter) (string, []any) {
	query := "SELECT id, owner_id, account_id, category_id, name, value, description, target_day FROM " + table + " WHERE owner_id = ?"
	args := []any{ownerID}
	switch {
	case f.ID != "":
		query += " AND id = ?"
		args = append(args, f.ID)
	case f.AccountID != "":
		query += " AND account_id = ?"
		args = append(args, f.AccountID)
	case f.CategoryID != "":
		query += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	return query, args
}

func (db *DB) updateEntry(table, id, ownerID string, upd EntryUpdate) error {
	set := []string{}
	args := []any{}
	if upd.Name != nil {
		set, args = append(set, "name = ?"), append(args, *upd.Name)
	}
	if upd.Value != nil {
		set, args = append(set, "value = ?"), append(args, upd.Value.String())
	}
	if upd.Description != nil {
		set, args = append(set, "description = ?"), append(args, *upd.Description)
	}
	if upd.TargetDay != nil {
		set, args = append(set, "target_day = ?"), append(args, *upd.TargetDay)
	}
	if len(set) == 0 {
		return db.existsOwned(table, id, ownerID)
	}
	args = append(args, id, ownerID)
	return db.execOwned(
		"UPDATE "+table+" SET "+strings.Join(set, ", ")+" WHERE id = ? AND owner_id = ?", args...,
	)
}

// execOwned runs a write constrained by a compound id+owner filter and
// converts a zero-row result into ErrNotFound.
func (db *DB) execOwned(query string, args ...any) error {
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) existsOwned(table, id, ownerID string) error {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM "+table+" WHERE id = ? AND owner_id = ?", id, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---- Sessions ----

// CreateSession records an issued token for a user. Expiry is stored as
// Unix seconds so comparisons do not depend on the process time zone.
func (db *DB) CreateSession(token, userID string, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC().Unix(),
	)
	return err
}

// GetSession retrieves a live session by token. Expired sessions are
// reported as ErrNotFound.
func (db *DB) GetSession(token string) (*models.Session, error) {
	row := db.conn.QueryRow(
		"SELECT token, user_id, expires_at FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now().Unix(),
	)
	var s models.Session
	var expiresAt int64
	if err := row.Scan(&s.Token, &s.UserID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes all expired sessions.
func (db *DB) DeleteExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	return err
}

// ---- Statistics ----

// CategoryTotal aggregates a single category's entries.
type CategoryTotal struct {
	Category     models.Category
	ExpenseTotal decimal.Decimal
	IncomeTotal  decimal.Decimal
	ExpenseCount int
	IncomeCount  int
}

// CategoryTotals sums the owner's expenses and incomes per category.
// Sums are computed in Go with decimal arithmetic; entries whose category
// has been deleted are skipped.
func (db *DB) CategoryTotals(ownerID string) ([]CategoryTotal, error) {
	categories, err := db.ListCategories(ownerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*CategoryTotal, len(categories))
	totals := make([]*CategoryTotal, 0, len(categories))
	for _, c := range categories {
		t := &CategoryTotal{Category: c}
		byID[c.ID] = t
		totals = append(totals, t)
	}

	expenses, err := db.ListExpenses(ownerID, EntryFilter{})
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if t, ok := byID[e.CategoryID]; ok {
			t.ExpenseTotal = t.ExpenseTotal.Add(e.Value)
			t.ExpenseCount++
		}
	}

	incomes, err := db.ListIncomes(ownerID, EntryFilter{})
	if err != nil {
		return nil, err
	}
	for _, in := range incomes {
		if t, ok := byID[in.CategoryID]; ok {
			t.IncomeTotal = t.IncomeTotal.Add(in.Value)
			t.IncomeCount++
		}
	}

	result := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		result = append(result, *t)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
