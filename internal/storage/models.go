package storage

// Row types mirror the tables in migrations/.

type Expense struct {
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

type Category struct {
	ID       string
	Name     string
	Icon     string
	Color    string
	Position int64
}

type Setting struct {
	MonthlyLimit         float64
	BillingDay           int64
	Currency             string
	NotificationsEnabled bool
	AlertThresholds      string
	UpdatedAtMs          int64
}
