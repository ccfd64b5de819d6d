package models

import "time"

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is one entry of a finance export.
type Transaction struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// DefaultAlertThreshold is the percentage used when a budget has none set.
const DefaultAlertThreshold = 80

// Budget caps spending for a period, optionally limited to one category.
type Budget struct {
	ID             string       `json:"id"`
	CategoryID     string       `json:"category_id,omitempty"`
	Amount         float64      `json:"amount"`
	Period         BudgetPeriod `json:"period"`
	AlertThreshold int          `json:"alert_threshold"`
}
