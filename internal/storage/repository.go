// Package storage implements the sqlite repositories behind the repository
// contracts: users, transactions, categories and the outbound delivery outbox.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"poupapig/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the sqlite-backed persistence layer.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies migrations.
func New(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const userColumns = "id, phone, name, status, goal_cents, goal_currency, created_at"

// UserByPhone looks a user up by normalized phone identity.
func (r *Repository) UserByPhone(ctx context.Context, phone string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE phone = ?", phone)
	return scanUser(row)
}

// UserByID looks a user up by id.
func (r *Repository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// CreateUser inserts a new user and fills in its assigned id.
func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	goalCents, goalCurrency := goalColumns(u.MonthlyGoal)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (phone, name, status, goal_cents, goal_currency, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.Phone, u.Name, string(u.Status), goalCents, goalCurrency, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	u.ID = id
	return nil
}

// UpdateUser persists the mutable user fields (name, status, goal).
func (r *Repository) UpdateUser(ctx context.Context, u core.User) error {
	goalCents, goalCurrency := goalColumns(u.MonthlyGoal)
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET name = ?, status = ?, goal_cents = ?, goal_currency = ? WHERE id = ?",
		u.Name, string(u.Status), goalCents, goalCurrency, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func goalColumns(goal *core.Money) (any, any) {
	if goal == nil {
		return nil, nil
	}
	return goal.Cents, goal.Currency
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u            core.User
		status       string
		goalCents    sql.NullInt64
		goalCurrency sql.NullString
		createdAt    int64
	)
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &status, &goalCents, &goalCurrency, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Status, err = core.ParseUserStatus(status)
	if err != nil {
		return core.User{}, fmt.Errorf("user %d: %w", u.ID, err)
	}
	if goalCents.Valid {
		goal := core.Money{Cents: goalCents.Int64, Currency: goalCurrency.String}
		u.MonthlyGoal = &goal
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// SaveTransaction appends a transaction to the ledger and fills in its id.
func (r *Repository) SaveTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, description, amount_cents, currency, type, category_id, created_at, auto_registered)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Description, t.Amount.Cents, t.Amount.Currency, string(t.Type),
		t.Category.ID, t.Date.Unix(), t.AutoRegistered)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id
	return nil
}

const transactionQuery = `
	SELECT t.id, t.user_id, t.description, t.amount_cents, t.currency, t.type,
	       t.created_at, t.auto_registered,
	       c.id, c.name, c.icon, c.color, c.type, c.user_id
	FROM transactions t
	JOIN categories c ON c.id = t.category_id`

// TransactionByID fetches one transaction with its category.
func (r *Repository) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, transactionQuery+" WHERE t.id = ?", id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("query transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Transaction{}, fmt.Errorf("query transaction: %w", err)
		}
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return scanTransaction(rows)
}

// TransactionsByDateRange returns a user's transactions with created_at in
// [start, end], oldest first.
func (r *Repository) TransactionsByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionQuery+" WHERE t.user_id = ? AND t.created_at BETWEEN ? AND ? ORDER BY t.created_at",
		userID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query transactions by range: %w", err)
	}
	defer rows.Close()

	var result []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

// MonthlySum recomputes a user's current-month total for one transaction type
// from the store. Sums are always recomputed here, never kept as running
// totals, so concurrent writers stay bounded-stale rather than wrong.
func (r *Repository) MonthlySum(ctx context.Context, userID int64, typ core.TransactionType, now time.Time) (int64, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var sum int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE user_id = ? AND type = ? AND created_at BETWEEN ? AND ?",
		userID, string(typ), start.Unix(), now.Unix()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("monthly sum: %w", err)
	}
	return sum, nil
}

// MarkTransactionMirrored records that a transaction reached the ledger mirror.
func (r *Repository) MarkTransactionMirrored(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE transactions SET mirrored = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark transaction mirrored: %w", err)
	}
	return nil
}

// PendingMirrorTransactions returns transactions not yet mirrored, oldest
// first, capped at limit.
func (r *Repository) PendingMirrorTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionQuery+" WHERE t.mirrored = 0 ORDER BY t.created_at LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror transactions: %w", err)
	}
	defer rows.Close()

	var result []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending mirror transactions: %w", err)
	}
	return result, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t         core.Transaction
		tType     string
		createdAt int64
		cType     string
		catUserID sql.NullInt64
	)
	err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &t.Amount.Currency, &tType,
		&createdAt, &t.AutoRegistered,
		&t.Category.ID, &t.Category.Name, &t.Category.Icon, &t.Category.Color, &cType, &catUserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(tType)
	t.Category.Type = core.TransactionType(cType)
	if catUserID.Valid {
		t.Category.UserID = catUserID.Int64
	}
	t.Date = time.Unix(createdAt, 0).UTC()
	return t, nil
}

const categoryColumns = "id, name, icon, color, type, user_id"

// Categories returns every category, global and user-owned.
func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

// CategoryByID fetches one category.
func (r *Repository) CategoryByID(ctx context.Context, id int64) (core.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	if err != nil {
		return core.Category{}, fmt.Errorf("query category: %w", err)
	}
	defer rows.Close()

	cats, err := collectCategories(rows)
	if err != nil {
		return core.Category{}, err
	}
	if len(cats) == 0 {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return cats[0], nil
}

// CategoriesByType returns categories of one type visible to the user: the
// global defaults plus the user's own. userID zero restricts to globals.
func (r *Repository) CategoriesByType(ctx context.Context, typ core.TransactionType, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE type = ? AND (user_id IS NULL OR user_id = ?) ORDER BY id",
		string(typ), userID)
	if err != nil {
		return nil, fmt.Errorf("query categories by type: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func collectCategories(rows *sql.Rows) ([]core.Category, error) {
	var result []core.Category
	for rows.Next() {
		var (
			c      core.Category
			cType  string
			userID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &cType, &userID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(cType)
		if userID.Valid {
			c.UserID = userID.Int64
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return result, nil
}
