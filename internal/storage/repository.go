package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/ports"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an expense id does not exist.
var ErrNotFound = ports.ErrNotFound

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db       *sql.DB
	queries  *Queries
	defaults core.Settings
	now      func() time.Time
}

// NewSQLiteRepository opens dbPath, applies migrations and returns a store
// that falls back to defaults until settings are saved.
func NewSQLiteRepository(dbPath string, defaults core.Settings) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
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

	return &SQLiteRepository{
		db:       db,
		queries:  New(db),
		defaults: defaults,
		now:      time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	now := r.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Merchant:    e.Merchant,
		Note:        e.Note,
		DateMs:      e.Date.UnixMilli(),
		CreatedAtMs: e.CreatedAt.UnixMilli(),
		UpdatedAtMs: e.UpdatedAt.UnixMilli(),
		Source:      string(e.Source),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"amount", row.Amount,
		"category", row.Category)

	return toCoreExpense(row), nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}
	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		Amount:      e.Amount,
		Category:    e.Category,
		Merchant:    e.Merchant,
		Note:        e.Note,
		DateMs:      e.Date.UnixMilli(),
		UpdatedAtMs: r.now().UnixMilli(),
		ID:          e.ID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return toCoreExpense(row), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return toCoreExpense(row), nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, start, end time.Time, limit int) ([]core.Expense, error) {
	lim := int64(limit)
	if lim <= 0 {
		lim = -1
	}
	rows, err := r.queries.ListExpensesBetween(ctx, ListExpensesBetweenParams{
		StartMs: start.UnixMilli(),
		EndMs:   end.UnixMilli(),
		Limit:   lim,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = toCoreExpense(row)
	}
	return expenses, nil
}

// GetSettings returns the saved settings, or the repository defaults with the
// stored category catalog when nothing has been saved yet.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.Settings, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("list categories: %w", err)
	}

	settings := r.defaults
	row, err := r.queries.GetSettings(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	default:
		settings.MonthlyLimit = row.MonthlyLimit
		settings.BillingDay = int(row.BillingDay)
		settings.Currency = row.Currency
		settings.NotificationsEnabled = row.NotificationsEnabled
		settings.AlertThresholds = nil
		if err := json.Unmarshal([]byte(row.AlertThresholds), &settings.AlertThresholds); err != nil {
			return core.Settings{}, fmt.Errorf("decode alert thresholds: %w", err)
		}
	}

	if len(cats) > 0 {
		settings.Categories = make([]core.Category, len(cats))
		for i, c := range cats {
			settings.Categories[i] = core.Category{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
		}
	}
	return settings, nil
}

// SaveSettings validates and stores s, replacing the category catalog when s
// carries one.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	if err := s.Validate(); err != nil {
		return core.Settings{}, err
	}
	thresholds, err := json.Marshal(nonNilFloats(s.AlertThresholds))
	if err != nil {
		return core.Settings{}, fmt.Errorf("encode alert thresholds: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Settings{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertSettings(ctx, Setting{
		MonthlyLimit:         s.MonthlyLimit,
		BillingDay:           int64(s.BillingDay),
		Currency:             s.Currency,
		NotificationsEnabled: s.NotificationsEnabled,
		AlertThresholds:      string(thresholds),
		UpdatedAtMs:          r.now().UnixMilli(),
	}); err != nil {
		return core.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}

	if len(s.Categories) > 0 {
		if err := q.DeleteCategories(ctx); err != nil {
			return core.Settings{}, fmt.Errorf("clear categories: %w", err)
		}
		for i, c := range s.Categories {
			if err := q.InsertCategory(ctx, Category{
				ID:       c.ID,
				Name:     c.Name,
				Icon:     c.Icon,
				Color:    c.Color,
				Position: int64(i),
			}); err != nil {
				return core.Settings{}, fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Settings{}, fmt.Errorf("commit settings: %w", err)
	}

	slog.InfoContext(ctx, "Settings saved",
		"billing_day", s.BillingDay,
		"monthly_limit", s.MonthlyLimit,
		"categories", len(s.Categories))

	return r.GetSettings(ctx)
}

func toCoreExpense(row Expense) core.Expense {
	return core.Expense{
		ID:        row.ID,
		Amount:    row.Amount,
		Category:  row.Category,
		Merchant:  row.Merchant,
		Note:      row.Note,
		Date:      time.UnixMilli(row.DateMs),
		CreatedAt: time.UnixMilli(row.CreatedAtMs),
		UpdatedAt: time.UnixMilli(row.UpdatedAtMs),
		Source:    core.Source(row.Source),
	}
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
