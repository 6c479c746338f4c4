package expenses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/internal/split"
	"divvy/internal/store/memstore"
	"divvy/pkg/utils"
)

func newRequest(t *testing.T, method, target string, body interface{}, userID int, pathValues map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, target, &buf)
	ctx := context.WithValue(r.Context(), utils.ContextKey("userId"), float64(userID))
	r = r.WithContext(ctx)
	for k, v := range pathValues {
		r.SetPathValue(k, v)
	}
	return r
}

func seededStore() *memstore.Store {
	st := memstore.New()
	st.SetGroupMembers(1, []split.Member{
		{UserID: 1, DisplayName: "ada"},
		{UserID: 2, DisplayName: "grace"},
		{UserID: 3, DisplayName: "linus"},
	})
	return st
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	body := map[string]interface{}{
		"description": "groceries",
		"amount":      "90",
	}
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", body, 1, map[string]string{"id": "1"}))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	expenses, err := st.ListByGroup(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, 1, expenses[0].PayerID)
	assert.True(t, expenses[0].Amount.Equal(decimal.NewFromInt(90)))

	shares, err := st.ListByExpense(context.Background(), expenses[0].ID)
	require.NoError(t, err)
	require.Len(t, shares, 3)
	for _, s := range shares {
		assert.True(t, s.AmountOwed.Equal(decimal.NewFromInt(30)), "share for user %d = %s", s.UserID, s.AmountOwed)
		assert.Equal(t, "equal", s.ShareType)
		assert.Equal(t, s.UserID == 1, s.IsSettled, "only the payer's own share starts settled")
		if s.UserID == 1 {
			assert.True(t, s.AmountPaid.Equal(decimal.NewFromInt(30)), "the payer's own share starts fully paid")
		} else {
			assert.True(t, s.AmountPaid.IsZero())
		}
	}
}

func TestCreateExpenseInvalidPercentagesRejected(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	body := map[string]interface{}{
		"description": "dinner",
		"amount":      "100",
		"split_type":  "percentage",
		"splits": []map[string]interface{}{
			{"user_id": 1, "percentage": "60"},
			{"user_id": 2, "percentage": "30"},
		},
	}
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", body, 1, map[string]string{"id": "1"}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	expenses, err := st.ListByGroup(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, expenses, "invalid split must not persist anything")
}

func TestCreateExpenseRejectsDegenerateInput(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"zero amount", map[string]interface{}{"description": "x", "amount": "0"}},
		{"negative amount", map[string]interface{}{"description": "x", "amount": "-5"}},
		{"unknown split type", map[string]interface{}{"description": "x", "amount": "10", "split_type": "weighted"}},
		{"bad date", map[string]interface{}{"description": "x", "amount": "10", "date": "31-12-2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", tt.body, 1, map[string]string{"id": "1"}))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateExpenseNonMemberForbidden(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	body := map[string]interface{}{"description": "sneaky", "amount": "10"}
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", body, 99, map[string]string{"id": "1"}))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPreviewReportsInvalidWithoutFailing(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	body := map[string]interface{}{
		"description": "hotel",
		"amount":      "100",
		"split_type":  "fixed_amount",
		"splits": []map[string]interface{}{
			{"user_id": 1, "amount": "50"},
			{"user_id": 2, "amount": "30"},
		},
	}
	w := httptest.NewRecorder()
	h.PreviewSplitHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/preview", body, 1, map[string]string{"id": "1"}))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data split.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.IsValid)
	assert.NotEmpty(t, resp.Data.Errors)
	assert.Len(t, resp.Data.Shares, 3)
}

func TestSettleShareFlow(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	create := map[string]interface{}{"description": "rent", "amount": "90"}
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", create, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, w.Code)

	shares, err := st.ListByExpense(context.Background(), 1)
	require.NoError(t, err)

	var shareID int
	for _, s := range shares {
		if s.UserID == 2 {
			shareID = s.ID
		}
	}
	require.NotZero(t, shareID)

	// Someone else cannot settle user 2's share.
	w = httptest.NewRecorder()
	h.SettleShareHandler(w, newRequest(t, http.MethodPost, "/expenses/shares/settle", nil, 3, map[string]string{"shareId": itoa(shareID)}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Partial payment leaves the remainder owing.
	w = httptest.NewRecorder()
	h.SettleShareHandler(w, newRequest(t, http.MethodPost, "/expenses/shares/settle",
		map[string]interface{}{"amount": "10"}, 2, map[string]string{"shareId": itoa(shareID)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	share, err := st.GetShare(context.Background(), shareID)
	require.NoError(t, err)
	assert.True(t, share.AmountOwed.Equal(decimal.NewFromInt(30)), "the owed amount never changes")
	assert.True(t, share.AmountPaid.Equal(decimal.NewFromInt(10)))
	assert.False(t, share.IsSettled)

	// Paying more than the open remainder is rejected.
	w = httptest.NewRecorder()
	h.SettleShareHandler(w, newRequest(t, http.MethodPost, "/expenses/shares/settle",
		map[string]interface{}{"amount": "25"}, 2, map[string]string{"shareId": itoa(shareID)}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Paying the rest settles it.
	w = httptest.NewRecorder()
	h.SettleShareHandler(w, newRequest(t, http.MethodPost, "/expenses/shares/settle", nil, 2, map[string]string{"shareId": itoa(shareID)}))
	require.Equal(t, http.StatusOK, w.Code)

	share, err = st.GetShare(context.Background(), shareID)
	require.NoError(t, err)
	assert.True(t, share.IsSettled)

	// A settled share cannot be settled again.
	w = httptest.NewRecorder()
	h.SettleShareHandler(w, newRequest(t, http.MethodPost, "/expenses/shares/settle", nil, 2, map[string]string{"shareId": itoa(shareID)}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteExpensePayerOnly(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	create := map[string]interface{}{"description": "taxi", "amount": "30"}
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create", create, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.DeleteExpenseHandler(w, newRequest(t, http.MethodDelete, "/expenses/delete/1", nil, 2, map[string]string{"expenseId": "1"}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.DeleteExpenseHandler(w, newRequest(t, http.MethodDelete, "/expenses/delete/1", nil, 1, map[string]string{"expenseId": "1"}))
	require.Equal(t, http.StatusOK, w.Code)

	shares, err := st.ListByExpense(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, shares, "shares cascade with the expense")
}

func TestUserSummary(t *testing.T) {
	st := seededStore()
	h := NewHandler(st, st, st)

	// User 1 pays 90 split three ways.
	w := httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create",
		map[string]interface{}{"description": "rent", "amount": "90"}, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, w.Code)

	// User 2 pays 30 split three ways.
	w = httptest.NewRecorder()
	h.CreateExpenseHandler(w, newRequest(t, http.MethodPost, "/groups/1/expenses/create",
		map[string]interface{}{"description": "pizza", "amount": "30"}, 2, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.UserSummaryHandler(w, newRequest(t, http.MethodGet, "/groups/1/expenses/summary", nil, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			TotalPaid decimal.Decimal `json:"total_paid"`
			YouOwe    decimal.Decimal `json:"you_owe"`
			OwedToYou decimal.Decimal `json:"owed_to_you"`
			Net       decimal.Decimal `json:"net"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Data.TotalPaid.Equal(decimal.NewFromInt(90)))
	assert.True(t, resp.Data.YouOwe.Equal(decimal.NewFromInt(10)), "owes their slice of the pizza")
	assert.True(t, resp.Data.OwedToYou.Equal(decimal.NewFromInt(60)), "users 2 and 3 owe 30 each on the rent")
	assert.True(t, resp.Data.Net.Equal(decimal.NewFromInt(50)))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
