package split

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func threeMembers() []Member {
	return []Member{
		{UserID: 1, DisplayName: "Alice"},
		{UserID: 2, DisplayName: "Bob"},
		{UserID: 3, DisplayName: "Carla"},
	}
}

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		members  int
		wantEach string
	}{
		{name: "90 between three", total: "90.00", members: 3, wantEach: "30"},
		{name: "100 between two", total: "100.00", members: 2, wantEach: "50"},
		{name: "single member takes all", total: "42.50", members: 1, wantEach: "42.5"},
		{name: "indivisible total keeps full precision", total: "100.00", members: 3, wantEach: "33.3333333333333333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := make([]Member, tt.members)
			for i := range members {
				members[i] = Member{UserID: i + 1, DisplayName: fmt.Sprintf("user-%d", i+1)}
			}

			result := NewCalculator(dec(tt.total), members).Calculate()

			require.True(t, result.IsValid, "equal split must never be invalid")
			require.Empty(t, result.Errors)
			require.Len(t, result.Shares, tt.members)
			for _, s := range result.Shares {
				assert.True(t, s.Owed.Equal(dec(tt.wantEach)), "share = %s, want %s", s.Owed, tt.wantEach)
				assert.Equal(t, PolicyEqual, s.Policy)
			}
		})
	}
}

func TestEmptyMemberList(t *testing.T) {
	result := NewCalculator(dec("50.00"), nil).Calculate()

	assert.False(t, result.IsValid)
	assert.Empty(t, result.Shares)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no members")
}

func TestPercentageSplit(t *testing.T) {
	tests := []struct {
		name        string
		percentages map[int]string
		wantValid   bool
		wantOwed    map[int]string
		wantInError string
	}{
		{
			name:        "60/40 reconciles",
			percentages: map[int]string{1: "60", 2: "40"},
			wantValid:   true,
			wantOwed:    map[int]string{1: "60", 2: "40"},
		},
		{
			name:        "sums to 90 and reports the actual total",
			percentages: map[int]string{1: "60", 2: "30"},
			wantValid:   false,
			wantInError: "90.0%",
		},
		{
			name:        "sums to 105",
			percentages: map[int]string{1: "60", 2: "45"},
			wantValid:   false,
			wantInError: "105.0%",
		},
		{
			name:        "within tolerance of 100",
			percentages: map[int]string{1: "60.005", 2: "40"},
			wantValid:   true,
		},
		{
			name:        "missing override counts as zero",
			percentages: map[int]string{1: "100"},
			wantValid:   true,
			wantOwed:    map[int]string{1: "100", 2: "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := []Member{{UserID: 1, DisplayName: "Alice"}, {UserID: 2, DisplayName: "Bob"}}
			calc := NewCalculator(dec("100.00"), members)
			calc.SetPolicy(PolicyPercentage)
			for id, pct := range tt.percentages {
				calc.UpdateMemberSplit(id, Override{Percentage: decPtr(pct)})
			}

			result := calc.Calculate()

			assert.Equal(t, tt.wantValid, result.IsValid)
			if tt.wantInError != "" {
				require.Len(t, result.Errors, 1)
				assert.Contains(t, result.Errors[0], tt.wantInError)
			}
			for id, want := range tt.wantOwed {
				found := false
				for _, s := range result.Shares {
					if s.UserID == id {
						found = true
						assert.True(t, s.Owed.Equal(dec(want)), "user %d owed = %s, want %s", id, s.Owed, want)
					}
				}
				require.True(t, found, "no share for user %d", id)
			}
		})
	}
}

func TestFixedAmountSplit(t *testing.T) {
	tests := []struct {
		name      string
		amounts   map[int]string
		wantValid bool
	}{
		{name: "exact sum", amounts: map[int]string{1: "70", 2: "30"}, wantValid: true},
		{name: "half a cent under passes", amounts: map[int]string{1: "69.995", 2: "30"}, wantValid: true},
		{name: "two cents over fails", amounts: map[int]string{1: "70.02", 2: "30"}, wantValid: false},
		{name: "nothing entered fails", amounts: map[int]string{}, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := []Member{{UserID: 1, DisplayName: "Alice"}, {UserID: 2, DisplayName: "Bob"}}
			calc := NewCalculator(dec("100.00"), members)
			calc.SetPolicy(PolicyFixedAmount)
			for id, amt := range tt.amounts {
				calc.UpdateMemberSplit(id, Override{Amount: decPtr(amt)})
			}

			result := calc.Calculate()

			assert.Equal(t, tt.wantValid, result.IsValid)
			if !tt.wantValid {
				require.Len(t, result.Errors, 1)
				assert.Contains(t, result.Errors[0], "100.00")
			}
		})
	}
}

func TestNegativeInputsDoNotRaise(t *testing.T) {
	members := []Member{{UserID: 1, DisplayName: "Alice"}, {UserID: 2, DisplayName: "Bob"}}
	calc := NewCalculator(dec("100.00"), members)
	calc.SetPolicy(PolicyPercentage)
	calc.UpdateMemberSplit(1, Override{Percentage: decPtr("-20")})
	calc.UpdateMemberSplit(2, Override{Percentage: decPtr("50")})

	result := calc.Calculate()

	// Imbalance surfaces through errors, never a panic or hard failure.
	assert.False(t, result.IsValid)
	require.Len(t, result.Shares, 2)
	assert.True(t, result.Shares[0].Owed.Equal(dec("-20")))
}

func TestUpdateMemberSplitMerges(t *testing.T) {
	members := []Member{{UserID: 1, DisplayName: "Alice"}, {UserID: 2, DisplayName: "Bob"}}
	calc := NewCalculator(dec("100.00"), members)

	calc.SetPolicy(PolicyPercentage)
	calc.UpdateMemberSplit(1, Override{Percentage: decPtr("30")})

	calc.SetPolicy(PolicyFixedAmount)
	calc.UpdateMemberSplit(1, Override{Amount: decPtr("10")})
	calc.UpdateMemberSplit(2, Override{Amount: decPtr("90")})

	result := calc.Calculate()

	require.True(t, result.IsValid)
	var alice Share
	for _, s := range result.Shares {
		if s.UserID == 1 {
			alice = s
		}
	}
	// The merge kept the earlier percentage field, but it must not leak
	// into the fixed-amount computation.
	assert.True(t, alice.Owed.Equal(dec("10")))
	require.NotNil(t, alice.Percentage)
	assert.True(t, alice.Percentage.Equal(dec("30")))
}

func TestResetToEqualClearsOverrides(t *testing.T) {
	members := threeMembers()
	calc := NewCalculator(dec("90.00"), members)
	calc.SetPolicy(PolicyPercentage)
	calc.UpdateMemberSplit(1, Override{Percentage: decPtr("80")})
	calc.UpdateMemberSplit(2, Override{Percentage: decPtr("20")})

	calc.ResetToEqual()

	assert.Equal(t, PolicyEqual, calc.Policy())
	result := calc.Calculate()
	require.True(t, result.IsValid)

	// Switching back must not resurrect the stale percentages.
	calc.SetPolicy(PolicyPercentage)
	result = calc.Calculate()
	assert.False(t, result.IsValid)
	for _, s := range result.Shares {
		assert.Nil(t, s.Percentage)
		assert.True(t, s.Owed.IsZero())
	}
}

func TestDistributeEqually(t *testing.T) {
	t.Run("percentage policy", func(t *testing.T) {
		calc := NewCalculator(dec("90.00"), threeMembers())
		calc.SetPolicy(PolicyPercentage)
		calc.DistributeEqually()

		result := calc.Calculate()
		require.True(t, result.IsValid)
		for _, s := range result.Shares {
			require.NotNil(t, s.Percentage)
			assert.True(t, s.Owed.Equal(dec("30")), "owed = %s", s.Owed)
		}
	})

	t.Run("fixed amount policy", func(t *testing.T) {
		calc := NewCalculator(dec("90.00"), threeMembers())
		calc.SetPolicy(PolicyFixedAmount)
		calc.DistributeEqually()

		result := calc.Calculate()
		require.True(t, result.IsValid)
		for _, s := range result.Shares {
			require.NotNil(t, s.Amount)
			assert.True(t, s.Owed.Equal(dec("30")))
		}
	})

	t.Run("no-op under equal policy", func(t *testing.T) {
		calc := NewCalculator(dec("90.00"), threeMembers())
		calc.DistributeEqually()

		result := calc.Calculate()
		require.True(t, result.IsValid)
		for _, s := range result.Shares {
			assert.Nil(t, s.Percentage)
			assert.Nil(t, s.Amount)
		}
	})
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := NewCalculator(dec("100.00"), threeMembers())
	calc.SetPolicy(PolicyPercentage)
	calc.UpdateMemberSplit(1, Override{Percentage: decPtr("50")})
	calc.UpdateMemberSplit(2, Override{Percentage: decPtr("25")})
	calc.UpdateMemberSplit(3, Override{Percentage: decPtr("25")})

	first := calc.Calculate()
	second := calc.Calculate()

	require.Equal(t, len(first.Shares), len(second.Shares))
	for i := range first.Shares {
		assert.Equal(t, first.Shares[i].UserID, second.Shares[i].UserID)
		assert.True(t, first.Shares[i].Owed.Equal(second.Shares[i].Owed))
	}
	assert.Equal(t, first.IsValid, second.IsValid)
}
