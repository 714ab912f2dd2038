package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	valid := Expense{Amount: 10, Category: "groceries", Date: time.Now(), Source: SourceManual}
	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"valid", func(*Expense) {}, nil},
		{"zero amount", func(e *Expense) { e.Amount = 0 }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = -1 }, ErrInvalidAmount},
		{"blank category", func(e *Expense) { e.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(e *Expense) { e.Date = time.Time{} }, ErrZeroDate},
		{"long merchant", func(e *Expense) { e.Merchant = strings.Repeat("x", 201) }, ErrTextTooLong},
		{"long note", func(e *Expense) { e.Note = strings.Repeat("x", 201) }, ErrTextTooLong},
		{"unknown source", func(e *Expense) { e.Source = "import" }, ErrInvalidSource},
		{"empty source", func(e *Expense) { e.Source = "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Settings)
		wantErr   error
		wantField string
	}{
		{"defaults", func(*Settings) {}, nil, ""},
		{"billing day 0", func(s *Settings) { s.BillingDay = 0 }, ErrInvalidBillingDay, "billing_day"},
		{"billing day 29", func(s *Settings) { s.BillingDay = 29 }, ErrInvalidBillingDay, "billing_day"},
		{"billing day 28", func(s *Settings) { s.BillingDay = 28 }, nil, ""},
		{"negative limit", func(s *Settings) { s.MonthlyLimit = -5 }, ErrInvalidLimit, "monthly_limit"},
		{"zero threshold", func(s *Settings) { s.AlertThresholds = []float64{0} }, ErrInvalidThreshold, "alert_thresholds"},
		{"category without name", func(s *Settings) {
			s.Categories = append(s.Categories, Category{ID: "pets"})
		}, ErrEmptyCategoryName, "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %T is not a *ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestCategoryName(t *testing.T) {
	catalog := DefaultCategories()
	if got := CategoryName(catalog, "fuel"); got != "Fuel" {
		t.Errorf("CategoryName(fuel) = %q", got)
	}
	if got := CategoryName(catalog, "nope"); got != UnknownCategoryName {
		t.Errorf("CategoryName(nope) = %q", got)
	}
	if got := CategoryName(nil, "fuel"); got != UnknownCategoryName {
		t.Errorf("CategoryName with nil catalog = %q", got)
	}
	blank := []Category{{ID: "misc", Name: ""}, {ID: "gifts", Name: "  "}}
	for _, id := range []string{"misc", "gifts"} {
		if got := CategoryName(blank, id); got != UnknownCategoryName {
			t.Errorf("CategoryName(%s) with blank name = %q", id, got)
		}
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()
	if len(cats) != 10 {
		t.Fatalf("len = %d, want 10", len(cats))
	}
	seen := make(map[string]bool)
	for _, c := range cats {
		if err := c.Validate(); err != nil {
			t.Errorf("category %q invalid: %v", c.ID, err)
		}
		if seen[c.ID] {
			t.Errorf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrInvalidAmount, true},
		{fmt.Errorf("expense 2: %w", ErrEmptyCategory), true},
		{ValidateBillingDay(40), true},
		{fmt.Errorf("parse: %w", ErrInvalidCycleID), true},
		{errors.New("disk full"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsValidationError(tt.err); got != tt.want {
			t.Errorf("IsValidationError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
