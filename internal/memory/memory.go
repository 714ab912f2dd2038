// Package memory is a process-local store used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	settings core.Settings
	items    map[string]core.Expense
	now      func() time.Time
}

func New(settings core.Settings) *Store {
	if len(settings.Categories) == 0 {
		settings.Categories = core.DefaultCategories()
	}
	return &Store{
		settings: cloneSettings(settings),
		items:    make(map[string]core.Expense),
		now:      time.Now,
	}
}

// NewFromFiles seeds the category catalog from base/seed_categories.txt, one
// "id|name|icon|color" entry per line. Missing or empty files keep the
// default catalog.
func NewFromFiles(base string, settings core.Settings) *Store {
	if cats := readCategories(filepath.Join(base, "seed_categories.txt")); len(cats) > 0 {
		settings.Categories = cats
	}
	return New(settings)
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, exists := s.items[e.ID]; exists {
		return core.Expense{}, fmt.Errorf("expense %s already exists", e.ID)
	}
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[e.ID]
	if !ok {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, ports.ErrNotFound)
	}
	prev.Amount = e.Amount
	prev.Category = e.Category
	prev.Merchant = e.Merchant
	prev.Note = e.Note
	prev.Date = e.Date
	prev.UpdatedAt = s.now()
	s.items[e.ID] = prev
	return prev, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete expense %s: %w", id, ports.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, ports.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, start, end time.Time, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSettings(s.settings), nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) (core.Settings, error) {
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(settings.Categories) == 0 {
		settings.Categories = s.settings.Categories
	}
	s.settings = cloneSettings(settings)
	return cloneSettings(s.settings), nil
}

func (s *Store) Close() error { return nil }

func cloneSettings(in core.Settings) core.Settings {
	out := in
	out.Categories = append([]core.Category(nil), in.Categories...)
	out.AlertThresholds = append([]float64(nil), in.AlertThresholds...)
	return out
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		c := core.Category{
			ID:    strings.TrimSpace(parts[0]),
			Name:  strings.TrimSpace(parts[1]),
			Icon:  strings.TrimSpace(parts[2]),
			Color: strings.TrimSpace(parts[3]),
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		if c.Validate() != nil {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
