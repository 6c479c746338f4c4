package split

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy determines how an expense total is divided among members.
type Policy string

const (
	PolicyEqual       Policy = "equal"
	PolicyPercentage  Policy = "percentage"
	PolicyFixedAmount Policy = "fixed_amount"
)

// Tolerance is the absolute band within which percentage and fixed-amount
// splits are considered reconciled with the expense total.
var Tolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// Member identifies a participant. Identity is externally owned; the
// calculator only carries the display name through to the shares.
type Member struct {
	UserID      int    `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Override is a per-member input. Only the field matching the active
// policy is read; a nil field counts as zero.
type Override struct {
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// Share is one member's computed portion of an expense.
type Share struct {
	UserID      int              `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Policy      Policy           `json:"share_type"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Owed        decimal.Decimal  `json:"amount_owed"`
}

// Result is the outcome of one full recalculation. It is ephemeral:
// callers persist only the shares, and only when IsValid is true.
type Result struct {
	Shares      []Share         `json:"shares"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	IsValid     bool            `json:"is_valid"`
	Errors      []string        `json:"errors"`
}

// Calculator holds the inputs for splitting one expense total. It is not
// safe for concurrent mutation; each expense form gets its own instance.
type Calculator struct {
	total     decimal.Decimal
	members   []Member
	policy    Policy
	overrides map[int]Override
}

// NewCalculator starts with the equal policy and no overrides.
func NewCalculator(total decimal.Decimal, members []Member) *Calculator {
	return &Calculator{
		total:     total,
		members:   members,
		policy:    PolicyEqual,
		overrides: make(map[int]Override),
	}
}

// Policy returns the active split policy.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// SetPolicy switches the active policy. Overrides are kept so a user can
// flip between policies without losing typed values; use ResetToEqual to
// discard them.
func (c *Calculator) SetPolicy(p Policy) {
	c.policy = p
}

// UpdateMemberSplit merges a partial override into the member's existing
// one. Fields not supplied are preserved, not reset.
func (c *Calculator) UpdateMemberSplit(userID int, update Override) {
	existing := c.overrides[userID]
	if update.Percentage != nil {
		existing.Percentage = update.Percentage
	}
	if update.Amount != nil {
		existing.Amount = update.Amount
	}
	c.overrides[userID] = existing
}

// ResetToEqual switches back to the equal policy and discards every
// override, so a later switch to percentage or fixed-amount starts clean.
func (c *Calculator) ResetToEqual() {
	c.policy = PolicyEqual
	c.overrides = make(map[int]Override)
}

// DistributeEqually fills every member's override with an even portion:
// 100/n percent under the percentage policy, total/n under fixed-amount.
// It is a no-op under the equal policy.
func (c *Calculator) DistributeEqually() {
	if len(c.members) == 0 {
		return
	}
	n := decimal.NewFromInt(int64(len(c.members)))

	switch c.policy {
	case PolicyPercentage:
		pct := oneHundred.Div(n)
		for _, m := range c.members {
			p := pct
			c.overrides[m.UserID] = Override{Percentage: &p}
		}
	case PolicyFixedAmount:
		amt := c.total.Div(n)
		for _, m := range c.members {
			a := amt
			c.overrides[m.UserID] = Override{Amount: &a}
		}
	}
}

// Calculate recomputes every member's share from scratch. It never fails:
// out-of-range input surfaces through Result.Errors, and IsValid is
// advisory; blocking persistence of an invalid result is the caller's job.
func (c *Calculator) Calculate() Result {
	result := Result{
		Shares:      make([]Share, 0, len(c.members)),
		TotalAmount: c.total,
	}

	if len(c.members) == 0 {
		result.Errors = append(result.Errors, "no members to split the expense between")
		return result
	}

	memberCount := decimal.NewFromInt(int64(len(c.members)))
	totalCalculated := decimal.Zero

	for _, m := range c.members {
		override := c.overrides[m.UserID]
		var owed decimal.Decimal

		switch c.policy {
		case PolicyEqual:
			owed = c.total.Div(memberCount)
		case PolicyPercentage:
			if override.Percentage != nil {
				owed = c.total.Mul(*override.Percentage).Div(oneHundred)
			}
		case PolicyFixedAmount:
			if override.Amount != nil {
				owed = *override.Amount
			}
		}

		result.Shares = append(result.Shares, Share{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Policy:      c.policy,
			Percentage:  override.Percentage,
			Amount:      override.Amount,
			Owed:        owed,
		})
		totalCalculated = totalCalculated.Add(owed)
	}

	switch c.policy {
	case PolicyPercentage:
		totalPct := decimal.Zero
		for _, s := range result.Shares {
			if s.Percentage != nil {
				totalPct = totalPct.Add(*s.Percentage)
			}
		}
		if totalPct.Sub(oneHundred).Abs().GreaterThan(Tolerance) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("percentages must total 100%% (got %s%%)", totalPct.StringFixed(1)))
		}
	case PolicyFixedAmount:
		if totalCalculated.Sub(c.total).Abs().GreaterThan(Tolerance) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("amounts must total %s (got %s)", c.total.StringFixed(2), totalCalculated.StringFixed(2)))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidPolicy reports whether s names a known split policy.
func ValidPolicy(s string) bool {
	switch Policy(s) {
	case PolicyEqual, PolicyPercentage, PolicyFixedAmount:
		return true
	}
	return false
}
