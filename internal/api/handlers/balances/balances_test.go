package balances

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/internal/ledger"
	"divvy/internal/models"
	"divvy/internal/split"
	"divvy/internal/store/memstore"
	"divvy/pkg/utils"
)

func newRequest(t *testing.T, target string, userID int, groupID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := context.WithValue(r.Context(), utils.ContextKey("userId"), float64(userID))
	r = r.WithContext(ctx)
	r.SetPathValue("id", groupID)
	return r
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedGroup(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	st.SetGroupMembers(1, []split.Member{
		{UserID: 1, DisplayName: "ada"},
		{UserID: 2, DisplayName: "grace"},
		{UserID: 3, DisplayName: "linus"},
	})

	// ada fronts 90, split equally.
	_, err := st.CreateWithShares(context.Background(),
		models.Expense{GroupID: 1, PayerID: 1, Description: "rent", Amount: dec("90"), Date: "2026-08-01"},
		[]models.ExpenseShare{
			{UserID: 1, AmountOwed: dec("30"), ShareType: "equal"},
			{UserID: 2, AmountOwed: dec("30"), ShareType: "equal"},
			{UserID: 3, AmountOwed: dec("30"), ShareType: "equal"},
		})
	require.NoError(t, err)
	return st
}

func TestGroupBalances(t *testing.T) {
	st := seedGroup(t)
	h := NewHandler(st, st, st)

	w := httptest.NewRecorder()
	h.GroupBalancesHandler(w, newRequest(t, "/groups/1/balances", 2, "1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []ledger.Balance `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)

	byUser := map[int]decimal.Decimal{}
	total := decimal.Zero
	for _, b := range resp.Data {
		byUser[b.UserID] = b.Net
		total = total.Add(b.Net)
	}

	assert.True(t, byUser[1].Equal(dec("60")))
	assert.True(t, byUser[2].Equal(dec("-30")))
	assert.True(t, byUser[3].Equal(dec("-30")))
	assert.True(t, total.IsZero(), "net balances always sum to zero")
}

func TestGroupBalancesAfterSettlement(t *testing.T) {
	st := seedGroup(t)
	h := NewHandler(st, st, st)

	shares, err := st.ListSharesByGroup(context.Background(), 1)
	require.NoError(t, err)

	var graceShare int
	for _, s := range shares {
		if s.UserID == 2 {
			graceShare = s.ID
		}
	}
	require.NotZero(t, graceShare)

	// grace pays her 30 back to ada in full.
	remaining, err := st.Settle(context.Background(), graceShare, dec("30"))
	require.NoError(t, err)
	require.True(t, remaining.IsZero())

	w := httptest.NewRecorder()
	h.GroupBalancesHandler(w, newRequest(t, "/groups/1/balances", 1, "1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []ledger.Balance `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)

	byUser := map[int]decimal.Decimal{}
	total := decimal.Zero
	for _, b := range resp.Data {
		byUser[b.UserID] = b.Net
		total = total.Add(b.Net)
	}

	assert.True(t, byUser[1].Equal(dec("30")), "ada's credit shrinks by the repayment, got %s", byUser[1])
	assert.True(t, byUser[2].IsZero(), "grace's debt is cleared, got %s", byUser[2])
	assert.True(t, byUser[3].Equal(dec("-30")), "linus still owes his slice, got %s", byUser[3])
	assert.True(t, total.IsZero(), "repayments keep the nets summing to zero, got %s", total)
}

func TestGroupBalancesNonMemberForbidden(t *testing.T) {
	st := seedGroup(t)
	h := NewHandler(st, st, st)

	w := httptest.NewRecorder()
	h.GroupBalancesHandler(w, newRequest(t, "/groups/1/balances", 42, "1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSuggestSettlements(t *testing.T) {
	st := seedGroup(t)
	h := NewHandler(st, st, st)

	w := httptest.NewRecorder()
	h.SuggestSettlementsHandler(w, newRequest(t, "/groups/1/settlements", 1, "1"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int                 `json:"count"`
		Data  []ledger.Settlement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	for _, s := range resp.Data {
		assert.Equal(t, 1, s.ToUserID, "both debtors pay ada")
		assert.True(t, s.Amount.Equal(dec("30")))
	}
}

func TestSuggestSettlementsEmptyGroup(t *testing.T) {
	st := memstore.New()
	st.SetGroupMembers(2, []split.Member{{UserID: 7, DisplayName: "solo"}})
	h := NewHandler(st, st, st)

	w := httptest.NewRecorder()
	h.SuggestSettlementsHandler(w, newRequest(t, "/groups/2/settlements", 7, "2"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []ledger.Settlement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}
