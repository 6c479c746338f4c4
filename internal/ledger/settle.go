package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tolerance is the band within which a net balance counts as zero. It
// keeps sub-cent rounding residue out of settlement suggestions and the
// conservation checks.
var Tolerance = decimal.NewFromFloat(0.01)

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	FromUserID int             `json:"from_user_id"`
	FromName   string          `json:"from_name"`
	ToUserID   int             `json:"to_user_id"`
	ToName     string          `json:"to_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// SuggestSettlements turns a set of net balances into a short list of
// transfers that zero the group out, greedily matching the largest debtor
// against the largest creditor. Balances within Tolerance of zero are
// ignored.
func SuggestSettlements(balances []Balance) []Settlement {
	var creditors, debtors []Balance
	for _, b := range balances {
		switch {
		case b.Net.GreaterThan(Tolerance):
			creditors = append(creditors, b)
		case b.Net.LessThan(Tolerance.Neg()):
			debtors = append(debtors, b)
		}
	}

	// Largest first; ties broken by user id for determinism.
	sort.Slice(creditors, func(i, j int) bool {
		if !creditors[i].Net.Equal(creditors[j].Net) {
			return creditors[i].Net.GreaterThan(creditors[j].Net)
		}
		return creditors[i].UserID < creditors[j].UserID
	})
	sort.Slice(debtors, func(i, j int) bool {
		if !debtors[i].Net.Equal(debtors[j].Net) {
			return debtors[i].Net.LessThan(debtors[j].Net)
		}
		return debtors[i].UserID < debtors[j].UserID
	})

	var settlements []Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		owes := debtors[i].Net.Neg()
		owed := creditors[j].Net

		amount := owes
		if owed.LessThan(amount) {
			amount = owed
		}

		if amount.GreaterThan(Tolerance) {
			settlements = append(settlements, Settlement{
				FromUserID: debtors[i].UserID,
				FromName:   debtors[i].DisplayName,
				ToUserID:   creditors[j].UserID,
				ToName:     creditors[j].DisplayName,
				Amount:     amount,
			})
		}

		debtors[i].Net = debtors[i].Net.Add(amount)
		creditors[j].Net = creditors[j].Net.Sub(amount)

		if debtors[i].Net.Neg().LessThanOrEqual(Tolerance) {
			i++
		}
		if creditors[j].Net.LessThanOrEqual(Tolerance) {
			j++
		}
	}

	return settlements
}
