package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdeck/models"
)

func TestPeriodBounds(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC)

	start, end := PeriodBounds(models.PeriodWeekly, now)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), end)

	start, end = PeriodBounds(models.PeriodMonthly, now)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = PeriodBounds(models.PeriodYearly, now)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)

	// Sunday belongs to the week that started the Monday before.
	sunday := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	start, _ = PeriodBounds(models.PeriodWeekly, sunday)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), start)

	start, _ = PeriodBounds("", now)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestBudgetAlerts(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2026, 10, d, 10, 0, 0, 0, time.UTC) }

	budgets := []models.Budget{
		{ID: "food", CategoryID: "food", Amount: 100, Period: models.PeriodMonthly},
		{ID: "fun", CategoryID: "fun", Amount: 100, Period: models.PeriodMonthly, AlertThreshold: 50},
		{ID: "all", Amount: 1000, Period: models.PeriodMonthly},
		{ID: "zero", CategoryID: "food", Amount: 0, Period: models.PeriodMonthly},
		{ID: "week", CategoryID: "food", Amount: 50, Period: models.PeriodWeekly},
	}
	txns := []models.Transaction{
		{ID: "1", CategoryID: "food", Amount: 70, Type: models.TransactionExpense, Date: day(2)},
		{ID: "2", CategoryID: "food", Amount: 15, Type: models.TransactionExpense, Date: day(13)},
		{ID: "3", CategoryID: "food", Amount: 500, Type: models.TransactionIncome, Date: day(3)},
		{ID: "4", CategoryID: "fun", Amount: 55, Type: models.TransactionExpense, Date: day(5)},
		{ID: "5", CategoryID: "food", Amount: 900, Type: models.TransactionExpense, Date: time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC)},
	}

	alerts := BudgetAlerts(budgets, txns, now)
	byID := map[string]BudgetAlert{}
	for _, a := range alerts {
		byID[a.Budget.ID] = a
	}

	require.Contains(t, byID, "food")
	assert.Equal(t, AlertWarning, byID["food"].Level)
	assert.InDelta(t, 85, byID["food"].Spent, 0.001)
	assert.InDelta(t, 85, byID["food"].Percent, 0.001)

	require.Contains(t, byID, "fun")
	assert.Equal(t, AlertWarning, byID["fun"].Level)

	assert.NotContains(t, byID, "all", "140 of 1000 is under the default threshold")
	assert.NotContains(t, byID, "zero")
	assert.NotContains(t, byID, "week", "15 of 50 this week")
}

func TestBudgetAlertsExceeded(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	budgets := []models.Budget{{ID: "b", Amount: 20, Period: models.PeriodWeekly}}
	txns := []models.Transaction{
		{Amount: 15, Type: models.TransactionExpense, Date: now.Add(-time.Hour)},
		{Amount: 10, Type: models.TransactionExpense, Date: now.Add(-2 * time.Hour)},
	}

	alerts := BudgetAlerts(budgets, txns, now)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertExceeded, alerts[0].Level)
	assert.InDelta(t, 125, alerts[0].Percent, 0.001)
}

func TestReadFinanceExport(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	in := `{
		"budgets": [{"id":"b1","categoryId":"food","amount":200,"period":"weekly","alertThreshold":90}],
		"transactions": [
			{"id":"t1","categoryId":"food","amount":12.5,"type":"expense","date":"2026-10-14"},
			{"id":"t2","amount":3000,"type":"income","date":"2026-10-01T08:00:00Z"}
		]
	}`

	budgets, txns, err := ReadFinanceExport(strings.NewReader(in), loc)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, models.PeriodWeekly, budgets[0].Period)
	assert.Equal(t, 90, budgets[0].AlertThreshold)

	require.Len(t, txns, 2)
	assert.True(t, txns[0].Date.Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, loc)))
	assert.Equal(t, models.TransactionIncome, txns[1].Type)

	_, _, err = ReadFinanceExport(strings.NewReader(`{"transactions":[{"id":"x","date":"14/10/2026"}]}`), loc)
	assert.ErrorContains(t, err, "transaction x")

	_, _, err = ReadFinanceExport(strings.NewReader(`not json`), loc)
	assert.Error(t, err)
}
