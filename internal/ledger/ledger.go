package ledger

import (
	"github.com/shopspring/decimal"

	"divvy/internal/split"
)

// ExpenseEntry is the slice of an expense row the aggregator needs.
type ExpenseEntry struct {
	PayerID int
	Amount  decimal.Decimal
}

// ShareEntry is the slice of a persisted expense share the aggregator needs.
type ShareEntry struct {
	UserID int
	Owed   decimal.Decimal
}

// PaymentEntry is a recorded repayment from a debtor to the member who
// fronted the expense.
type PaymentEntry struct {
	FromUserID int
	ToUserID   int
	Amount     decimal.Decimal
}

// Balance is a member's net position within a group. Positive means the
// group owes the member money, negative means the member owes the group.
type Balance struct {
	UserID      int             `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Net         decimal.Decimal `json:"net_amount"`
}

// Aggregate folds a group's full expense, share and payment history into
// one net balance per member: everything a member paid minus everything
// they owe. Owed amounts are taken as written at expense creation; a
// repayment raises the debtor's net and lowers the receiver's by the same
// amount, so the sum across the group stays zero.
//
// Every current member is seeded at zero so inactive members still appear.
// A share or expense referencing an id missing from members gets a fresh
// zero entry rather than being dropped, so departed members keep their
// history and no money silently leaves the ledger.
func Aggregate(members []split.Member, expenses []ExpenseEntry, shares []ShareEntry, payments []PaymentEntry) []Balance {
	balances := make(map[int]*Balance, len(members))
	order := make([]int, 0, len(members))

	seed := func(userID int, name string) *Balance {
		if b, ok := balances[userID]; ok {
			return b
		}
		b := &Balance{UserID: userID, DisplayName: name, Net: decimal.Zero}
		balances[userID] = b
		order = append(order, userID)
		return b
	}

	for _, m := range members {
		seed(m.UserID, m.DisplayName)
	}

	for _, s := range shares {
		b := seed(s.UserID, "")
		b.Net = b.Net.Sub(s.Owed)
	}

	for _, e := range expenses {
		b := seed(e.PayerID, "")
		b.Net = b.Net.Add(e.Amount)
	}

	for _, p := range payments {
		from := seed(p.FromUserID, "")
		from.Net = from.Net.Add(p.Amount)
		to := seed(p.ToUserID, "")
		to.Net = to.Net.Sub(p.Amount)
	}

	out := make([]Balance, 0, len(order))
	for _, id := range order {
		out = append(out, *balances[id])
	}
	return out
}

// Drift returns how far the nets are from summing to zero. Anything
// beyond Tolerance means stored shares no longer reconcile with their
// expense totals; drift within it is cent rounding on persisted rows.
func Drift(balances []Balance) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.Net)
	}
	return sum
}
