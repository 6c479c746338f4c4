// Package report computes the read-only aggregates the personal expense
// screens display. Like the split core it is pure: rows in, numbers out.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"divvy/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

type CategoryTotal struct {
	CategoryID int             `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
}

type MonthlySummary struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}

// Monthly totals a user's expenses for one calendar month and breaks them
// down per category, largest first. Expenses dated outside the month and
// expenses pointing at unknown categories are skipped.
func Monthly(year int, month time.Month, categories []models.PersonalCategory, expenses []models.PersonalExpense) MonthlySummary {
	summary := MonthlySummary{
		Year:  year,
		Month: month,
		Total: decimal.Zero,
	}

	byCategory := make(map[int]*CategoryTotal, len(categories))
	for _, c := range categories {
		byCategory[c.ID] = &CategoryTotal{
			CategoryID: c.ID,
			Name:       c.Name,
			Color:      c.Color,
			Total:      decimal.Zero,
		}
	}

	for _, e := range expenses {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil || date.Year() != year || date.Month() != month {
			continue
		}
		ct, ok := byCategory[e.CategoryID]
		if !ok {
			continue
		}
		ct.Total = ct.Total.Add(e.Amount)
		summary.Total = summary.Total.Add(e.Amount)
		summary.Count++
	}

	for _, ct := range byCategory {
		if ct.Total.IsZero() {
			continue
		}
		if summary.Total.IsPositive() {
			ct.Percentage = ct.Total.Div(summary.Total).Mul(oneHundred)
		}
		summary.Categories = append(summary.Categories, *ct)
	}

	sort.Slice(summary.Categories, func(i, j int) bool {
		if !summary.Categories[i].Total.Equal(summary.Categories[j].Total) {
			return summary.Categories[i].Total.GreaterThan(summary.Categories[j].Total)
		}
		return summary.Categories[i].CategoryID < summary.Categories[j].CategoryID
	})

	return summary
}
