package models

// CategorySpend is the expense total for one category name.
type CategorySpend struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MonthlyFlow is the income/expense totals for one calendar month.
type MonthlyFlow struct {
	Month   string  `json:"month"` // "2006-01"
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// DashboardOverview is the aggregated read model for the dashboard screen.
type DashboardOverview struct {
	Summary       Summary         `json:"summary"`
	CategorySpend []CategorySpend `json:"category_spend"`
	Monthly       []MonthlyFlow   `json:"monthly"`
	Recent        []Transaction   `json:"recent"`
}
