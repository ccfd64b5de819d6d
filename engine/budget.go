package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"devdeck/models"
)

// AlertLevel grades how close a budget is to its limit.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

// BudgetAlert is raised for a budget whose current period spending crossed
// its alert threshold.
type BudgetAlert struct {
	Budget      models.Budget `json:"budget"`
	Spent       float64       `json:"spent"`
	Percent     float64       `json:"percent"`
	Level       AlertLevel    `json:"level"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
}

// PeriodBounds returns the half-open calendar period [start, end) of the
// given kind that contains now, in now's location. Weeks start on Monday.
func PeriodBounds(period models.BudgetPeriod, now time.Time) (start, end time.Time) {
	loc := now.Location()
	y, m, d := now.Date()
	switch period {
	case models.PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7 // days since Monday
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 7)
	case models.PeriodYearly:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	}
	return start, end
}

// BudgetAlerts computes the alerts for budgets against txns at now. Only
// expense transactions count. Budgets with a non-positive amount are
// skipped.
func BudgetAlerts(budgets []models.Budget, txns []models.Transaction, now time.Time) []BudgetAlert {
	var alerts []BudgetAlert
	for _, b := range budgets {
		if b.Amount <= 0 {
			continue
		}
		threshold := b.AlertThreshold
		if threshold <= 0 {
			threshold = models.DefaultAlertThreshold
		}

		start, end := PeriodBounds(b.Period, now)
		var spent float64
		for _, t := range txns {
			if t.Type != models.TransactionExpense {
				continue
			}
			if b.CategoryID != "" && t.CategoryID != b.CategoryID {
				continue
			}
			at := t.Date.In(now.Location())
			if at.Before(start) || !at.Before(end) {
				continue
			}
			spent += t.Amount
		}

		percent := spent / b.Amount * 100
		var level AlertLevel
		switch {
		case spent > b.Amount:
			level = AlertExceeded
		case percent >= float64(threshold):
			level = AlertWarning
		default:
			continue
		}
		alerts = append(alerts, BudgetAlert{
			Budget:      b,
			Spent:       spent,
			Percent:     percent,
			Level:       level,
			PeriodStart: start,
			PeriodEnd:   end,
		})
	}
	return alerts
}

type financeExport struct {
	Budgets []struct {
		ID             string  `json:"id"`
		CategoryID     string  `json:"categoryId"`
		Amount         float64 `json:"amount"`
		Period         string  `json:"period"`
		AlertThreshold int     `json:"alertThreshold"`
	} `json:"budgets"`
	Transactions []struct {
		ID          string  `json:"id"`
		CategoryID  string  `json:"categoryId"`
		Amount      float64 `json:"amount"`
		Type        string  `json:"type"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
	} `json:"transactions"`
}

// ReadFinanceExport parses {"budgets":[...],"transactions":[...]}.
// Transaction dates may be RFC 3339 or YYYY-MM-DD; date-only values are
// read in loc.
func ReadFinanceExport(r io.Reader, loc *time.Location) ([]models.Budget, []models.Transaction, error) {
	var doc financeExport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse finance export: %w", err)
	}

	budgets := make([]models.Budget, 0, len(doc.Budgets))
	for _, b := range doc.Budgets {
		budgets = append(budgets, models.Budget{
			ID:             b.ID,
			CategoryID:     b.CategoryID,
			Amount:         b.Amount,
			Period:         models.BudgetPeriod(b.Period),
			AlertThreshold: b.AlertThreshold,
		})
	}

	txns := make([]models.Transaction, 0, len(doc.Transactions))
	for _, t := range doc.Transactions {
		date, err := parseFinanceDate(t.Date, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		txns = append(txns, models.Transaction{
			ID:          t.ID,
			CategoryID:  t.CategoryID,
			Amount:      t.Amount,
			Type:        models.TransactionType(t.Type),
			Description: t.Description,
			Date:        date,
		})
	}
	return budgets, txns, nil
}

func parseFinanceDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
