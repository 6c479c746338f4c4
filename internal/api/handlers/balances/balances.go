// Package balances exposes each group's net positions and the suggested
// transfers that would zero them out.
package balances

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"divvy/internal/api/handlers"
	"divvy/internal/ledger"
	"divvy/internal/store"
	"divvy/pkg/utils"
)

type Handler struct {
	members  store.MemberDirectory
	expenses store.ExpenseStore
	shares   store.ShareStore
}

func NewHandler(members store.MemberDirectory, expenses store.ExpenseStore, shares store.ShareStore) *Handler {
	return &Handler{members: members, expenses: expenses, shares: shares}
}

// load pulls everything the aggregator needs for one group and confirms
// the caller is a member.
func (h *Handler) load(ctx context.Context, groupID, userID int) ([]ledger.Balance, int, error) {
	members, err := h.members.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	isMember := false
	for _, m := range members {
		if m.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, http.StatusForbidden, nil
	}

	expenseList, err := h.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	shareList, err := h.shares.ListSharesByGroup(ctx, groupID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	entries := make([]ledger.ExpenseEntry, 0, len(expenseList))
	payerOf := make(map[int]int, len(expenseList))
	for _, e := range expenseList {
		entries = append(entries, ledger.ExpenseEntry{PayerID: e.PayerID, Amount: e.Amount})
		payerOf[e.ID] = e.PayerID
	}
	shareEntries := make([]ledger.ShareEntry, 0, len(shareList))
	var payments []ledger.PaymentEntry
	for _, s := range shareList {
		shareEntries = append(shareEntries, ledger.ShareEntry{UserID: s.UserID, Owed: s.AmountOwed})
		if s.AmountPaid.IsPositive() && payerOf[s.ExpenseID] != s.UserID {
			payments = append(payments, ledger.PaymentEntry{
				FromUserID: s.UserID,
				ToUserID:   payerOf[s.ExpenseID],
				Amount:     s.AmountPaid,
			})
		}
	}

	return ledger.Aggregate(members, entries, shareEntries, payments), http.StatusOK, nil
}

// FUNC TO GET A GROUP'S NET BALANCES
func (h *Handler) GroupBalancesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balances, status, err := h.load(ctx, groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to aggregate balances for group %d: %v", groupID, err)
		utils.WriteError(w, "failed to compute balances", status)
		return
	}
	if status == http.StatusForbidden {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	// Sub-cent drift from rounding persisted shares is expected; more
	// than a cent means stored shares no longer reconcile with totals.
	if drift := ledger.Drift(balances); drift.Abs().GreaterThan(ledger.Tolerance) {
		utils.Logger.Warnf("group %d balances sum to %s, expected 0", groupID, drift)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data":   balances,
	})
}

// FUNC TO SUGGEST SETTLEMENT TRANSFERS FOR A GROUP
func (h *Handler) SuggestSettlementsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balances, status, err := h.load(ctx, groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to aggregate balances for group %d: %v", groupID, err)
		utils.WriteError(w, "failed to compute settlements", status)
		return
	}
	if status == http.StatusForbidden {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	settlements := ledger.SuggestSettlements(balances)
	if settlements == nil {
		settlements = []ledger.Settlement{}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(settlements),
		"data":   settlements,
	})
}
