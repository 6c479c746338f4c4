package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMonthly(t *testing.T) {
	categories := []models.PersonalCategory{
		{ID: 1, Name: "Food", Color: "#ff0000"},
		{ID: 2, Name: "Transport", Color: "#00ff00"},
		{ID: 3, Name: "Rent", Color: "#0000ff"},
	}
	expenses := []models.PersonalExpense{
		{ID: 1, CategoryID: 1, Amount: dec("60"), Date: "2026-08-02"},
		{ID: 2, CategoryID: 1, Amount: dec("15"), Date: "2026-08-20"},
		{ID: 3, CategoryID: 2, Amount: dec("25"), Date: "2026-08-11"},
		{ID: 4, CategoryID: 2, Amount: dec("40"), Date: "2026-07-30"}, // previous month
		{ID: 5, CategoryID: 99, Amount: dec("5"), Date: "2026-08-05"}, // unknown category
	}

	summary := Monthly(2026, time.August, categories, expenses)

	assert.Equal(t, 2026, summary.Year)
	assert.Equal(t, time.August, summary.Month)
	assert.Equal(t, 3, summary.Count)
	assert.True(t, summary.Total.Equal(dec("100")), "total = %s", summary.Total)

	require.Len(t, summary.Categories, 2, "zero-spend categories are omitted")
	assert.Equal(t, "Food", summary.Categories[0].Name)
	assert.True(t, summary.Categories[0].Total.Equal(dec("75")))
	assert.True(t, summary.Categories[0].Percentage.Equal(dec("75")))
	assert.Equal(t, "Transport", summary.Categories[1].Name)
	assert.True(t, summary.Categories[1].Percentage.Equal(dec("25")))
}

func TestMonthlyEmpty(t *testing.T) {
	summary := Monthly(2026, time.January, nil, nil)

	assert.Zero(t, summary.Count)
	assert.True(t, summary.Total.IsZero())
	assert.Empty(t, summary.Categories)
}

func TestMonthlySkipsUnparsableDates(t *testing.T) {
	categories := []models.PersonalCategory{{ID: 1, Name: "Food"}}
	expenses := []models.PersonalExpense{
		{ID: 1, CategoryID: 1, Amount: dec("10"), Date: "not-a-date"},
		{ID: 2, CategoryID: 1, Amount: dec("20"), Date: "2026-03-14"},
	}

	summary := Monthly(2026, time.March, categories, expenses)

	assert.Equal(t, 1, summary.Count)
	assert.True(t, summary.Total.Equal(dec("20")))
}
