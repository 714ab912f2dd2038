package storage

import (
	"context"
)

const expenseColumns = `id, amount, category, merchant, note, date_ms, created_at_ms, updated_at_ms, source`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Amount,
		&i.Category,
		&i.Merchant,
		&i.Note,
		&i.DateMs,
		&i.CreatedAtMs,
		&i.UpdatedAtMs,
		&i.Source,
	)
	return i, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	ID          string
	Amount      float64
	Category    string
	Merchant    string
	Note        string
	DateMs      int64
	CreatedAtMs int64
	UpdatedAtMs int64
	Source      string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID,
		arg.Amount,
		arg.Category,
		arg.Merchant,
		arg.Note,
		arg.DateMs,
		arg.CreatedAtMs,
		arg.UpdatedAtMs,
		arg.Source,
	)
	return scanExpense(row)
}

const updateExpense = `UPDATE expenses
SET amount = ?, category = ?, merchant = ?, note = ?, date_ms = ?, updated_at_ms = ?
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	Amount      float64
	Category    string
	Merchant    string
	Note        string
	DateMs      int64
	UpdatedAtMs int64
	ID          string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.Amount,
		arg.Category,
		arg.Merchant,
		arg.Note,
		arg.DateMs,
		arg.UpdatedAtMs,
		arg.ID,
	)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

// LIMIT -1 means no limit in SQLite.
const listExpensesBetween = `SELECT ` + expenseColumns + ` FROM expenses
WHERE date_ms BETWEEN ? AND ?
ORDER BY date_ms DESC, created_at_ms DESC
LIMIT ?`

type ListExpensesBetweenParams struct {
	StartMs int64
	EndMs   int64
	Limit   int64
}

func (q *Queries) ListExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, arg.StartMs, arg.EndMs, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Expense{}
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `SELECT id, name, icon, color, position FROM categories ORDER BY position, id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Color, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCategories = `DELETE FROM categories`

func (q *Queries) DeleteCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCategories)
	return err
}

const insertCategory = `INSERT INTO categories (id, name, icon, color, position) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, insertCategory, arg.ID, arg.Name, arg.Icon, arg.Color, arg.Position)
	return err
}

const getSettings = `SELECT monthly_limit, billing_day, currency, notifications_enabled, alert_thresholds, updated_at_ms
FROM settings WHERE id = 1`

func (q *Queries) GetSettings(ctx context.Context) (Setting, error) {
	row := q.db.QueryRowContext(ctx, getSettings)
	var i Setting
	err := row.Scan(
		&i.MonthlyLimit,
		&i.BillingDay,
		&i.Currency,
		&i.NotificationsEnabled,
		&i.AlertThresholds,
		&i.UpdatedAtMs,
	)
	return i, err
}

const upsertSettings = `INSERT INTO settings (id, monthly_limit, billing_day, currency, notifications_enabled, alert_thresholds, updated_at_ms)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    monthly_limit = excluded.monthly_limit,
    billing_day = excluded.billing_day,
    currency = excluded.currency,
    notifications_enabled = excluded.notifications_enabled,
    alert_thresholds = excluded.alert_thresholds,
    updated_at_ms = excluded.updated_at_ms`

func (q *Queries) UpsertSettings(ctx context.Context, arg Setting) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		arg.MonthlyLimit,
		arg.BillingDay,
		arg.Currency,
		arg.NotificationsEnabled,
		arg.AlertThresholds,
		arg.UpdatedAtMs,
	)
	return err
}
