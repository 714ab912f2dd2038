package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SourceManual    Source = "manual"
	SourceAssistant Source = "assistant"
)

const (
	// MinBillingDay and MaxBillingDay bound the anchor day. Days 29-31 do not
	// exist in every month.
	MinBillingDay = 1
	MaxBillingDay = 28

	DefaultBillingDay   = 15
	DefaultMonthlyLimit = 100000
	DefaultCurrency     = "Rs."

	// UnknownCategoryName is shown for category ids missing from the catalog.
	UnknownCategoryName = "Unknown"

	maxTextLength = 200
)

type (
	// Source records how an expense entered the system.
	Source string

	Expense struct {
		ID        string
		Amount    float64
		Category  string // Category ID
		Merchant  string
		Note      string
		Date      time.Time
		CreatedAt time.Time
		UpdatedAt time.Time
		Source    Source
	}

	Category struct {
		ID    string
		Name  string
		Icon  string
		Color string
	}

	// Settings are the per-user knobs fed explicitly into every cycle computation.
	Settings struct {
		MonthlyLimit         float64
		BillingDay           int
		Currency             string
		Categories           []Category
		NotificationsEnabled bool
		AlertThresholds      []float64
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyCategory     = errors.New("empty category")
	ErrZeroDate          = errors.New("date cannot be zero")
	ErrTextTooLong       = errors.New("text too long (max 200 characters)")
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidBillingDay = errors.New("invalid billing day")
	ErrInvalidLimit      = errors.New("invalid monthly limit")
	ErrInvalidThreshold  = errors.New("invalid alert threshold")
	ErrEmptyCategoryName = errors.New("empty category name")
)

// ConfigurationError reports a user setting rejected at the boundary where
// settings are accepted.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceAssistant:
		return true
	default:
		return false
	}
}

func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if len(e.Merchant) > maxTextLength || len(e.Note) > maxTextLength {
		return ErrTextTooLong
	}
	if e.Source != "" && !e.Source.Valid() {
		return ErrInvalidSource
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

// ValidateBillingDay rejects anchor days outside [MinBillingDay, MaxBillingDay].
func ValidateBillingDay(day int) error {
	if day < MinBillingDay || day > MaxBillingDay {
		return &ConfigurationError{
			Field:  "billing_day",
			Reason: fmt.Sprintf("%d is outside %d-%d", day, MinBillingDay, MaxBillingDay),
			Err:    ErrInvalidBillingDay,
		}
	}
	return nil
}

func (s Settings) Validate() error {
	if err := ValidateBillingDay(s.BillingDay); err != nil {
		return err
	}
	if s.MonthlyLimit < 0 {
		return &ConfigurationError{
			Field:  "monthly_limit",
			Reason: fmt.Sprintf("%g must not be negative", s.MonthlyLimit),
			Err:    ErrInvalidLimit,
		}
	}
	for _, t := range s.AlertThresholds {
		if t <= 0 || t > 1000 {
			return &ConfigurationError{
				Field:  "alert_thresholds",
				Reason: fmt.Sprintf("%g must be in (0, 1000]", t),
				Err:    ErrInvalidThreshold,
			}
		}
	}
	for _, c := range s.Categories {
		if err := c.Validate(); err != nil {
			return &ConfigurationError{
				Field:  "categories",
				Reason: fmt.Sprintf("category %q: %v", c.ID, err),
				Err:    err,
			}
		}
	}
	return nil
}

// CategoryName resolves id against the catalog, falling back to
// UnknownCategoryName when the id is missing or its entry has a blank name.
func CategoryName(catalog []Category, id string) string {
	for _, c := range catalog {
		if c.ID == id && strings.TrimSpace(c.Name) != "" {
			return c.Name
		}
	}
	return UnknownCategoryName
}

func DefaultCategories() []Category {
	return []Category{
		{ID: "groceries", Name: "Groceries", Icon: "ShoppingCart", Color: "bg-green-500"},
		{ID: "dining", Name: "Dining", Icon: "Utensils", Color: "bg-orange-500"},
		{ID: "fuel", Name: "Fuel", Icon: "Fuel", Color: "bg-blue-500"},
		{ID: "shopping", Name: "Shopping", Icon: "ShoppingBag", Color: "bg-pink-500"},
		{ID: "subscriptions", Name: "Subscriptions", Icon: "CreditCard", Color: "bg-purple-500"},
		{ID: "health", Name: "Health", Icon: "Heart", Color: "bg-red-500"},
		{ID: "entertainment", Name: "Entertainment", Icon: "Gamepad2", Color: "bg-indigo-500"},
		{ID: "transport", Name: "Transport", Icon: "Car", Color: "bg-cyan-500"},
		{ID: "utilities", Name: "Utilities", Icon: "Zap", Color: "bg-yellow-500"},
		{ID: "other", Name: "Other", Icon: "MoreHorizontal", Color: "bg-gray-500"},
	}
}

func DefaultSettings() Settings {
	return Settings{
		MonthlyLimit:         DefaultMonthlyLimit,
		BillingDay:           DefaultBillingDay,
		Currency:             DefaultCurrency,
		Categories:           DefaultCategories(),
		NotificationsEnabled: true,
		AlertThresholds:      []float64{50, 75, 90, 100},
	}
}

// IsValidationError reports whether err stems from rejected input rather than
// a failure to process valid input.
func IsValidationError(err error) bool {
	var cfg *ConfigurationError
	if errors.As(err, &cfg) {
		return true
	}
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyCategory, ErrZeroDate, ErrTextTooLong, ErrInvalidSource,
		ErrInvalidBillingDay, ErrInvalidLimit, ErrInvalidThreshold, ErrEmptyCategoryName,
		ErrInvalidCycleID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
