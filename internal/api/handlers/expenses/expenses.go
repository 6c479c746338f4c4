// Package expenses exposes the expense endpoints. Unlike the rest of the
// handlers it is built over the store contracts instead of raw SQL, so the
// split pipeline can be exercised against the in-memory store in tests.
package expenses

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"divvy/internal/api/handlers"
	"divvy/internal/models"
	"divvy/internal/split"
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

type splitInput struct {
	UserID     int              `json:"user_id"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

type expenseRequest struct {
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date,omitempty"`
	SplitType         string          `json:"split_type,omitempty"`
	Splits            []splitInput    `json:"splits,omitempty"`
	DistributeEqually bool            `json:"distribute_equally,omitempty"`
}

// groupMembers resolves the group's roster and tells whether the caller
// belongs to it.
func (h *Handler) groupMembers(ctx context.Context, groupID, userID int) ([]split.Member, bool, error) {
	members, err := h.members.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, false, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return members, true, nil
		}
	}
	return members, false, nil
}

// compute runs the split calculator over the request. The result is
// advisory; persistence decisions stay with the caller.
func compute(members []split.Member, req expenseRequest) split.Result {
	calc := split.NewCalculator(req.Amount, members)
	if req.SplitType != "" {
		calc.SetPolicy(split.Policy(req.SplitType))
	}
	if req.DistributeEqually {
		calc.DistributeEqually()
	}
	for _, s := range req.Splits {
		calc.UpdateMemberSplit(s.UserID, split.Override{Percentage: s.Percentage, Amount: s.Amount})
	}
	return calc.Calculate()
}

func decodeExpenseRequest(w http.ResponseWriter, r *http.Request) (expenseRequest, bool) {
	var req expenseRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	defer r.Body.Close()

	req.Description = strings.TrimSpace(req.Description)

	if req.SplitType != "" && !split.ValidPolicy(req.SplitType) {
		utils.WriteError(w, "split_type must be equal, percentage or fixed_amount", http.StatusBadRequest)
		return req, false
	}

	if !req.Amount.IsPositive() {
		utils.WriteError(w, "amount must be greater than zero", http.StatusBadRequest)
		return req, false
	}

	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		utils.WriteError(w, "date must be in YYYY-MM-DD format", http.StatusBadRequest)
		return req, false
	}

	return req, true
}

// FUNC TO PREVIEW A SPLIT WITHOUT PERSISTING ANYTHING
func (h *Handler) PreviewSplitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	req, ok := decodeExpenseRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	members, isMember, err := h.groupMembers(ctx, groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to load members for group %d: %v", groupID, err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	// Invalid splits come back 200 with is_valid false so the client can
	// keep showing live feedback while the user types.
	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data":   compute(members, req),
	})
}

// FUNC TO CREATE A GROUP EXPENSE
func (h *Handler) CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	req, ok := decodeExpenseRequest(w, r)
	if !ok {
		return
	}

	if req.Description == "" {
		utils.WriteError(w, "description is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	members, isMember, err := h.groupMembers(ctx, groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to load members for group %d: %v", groupID, err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	result := compute(members, req)
	if !result.IsValid {
		utils.WriteJSONStatus(w, map[string]interface{}{
			"status":  "error",
			"message": "split does not reconcile with the expense total",
			"errors":  result.Errors,
		}, http.StatusUnprocessableEntity)
		return
	}

	expense := models.Expense{
		GroupID:     groupID,
		PayerID:     userID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}

	shareRows := make([]models.ExpenseShare, 0, len(result.Shares))
	for _, s := range result.Shares {
		row := models.ExpenseShare{
			UserID:     s.UserID,
			AmountOwed: s.Owed.Round(2),
			ShareType:  string(s.Policy),
		}
		if s.Percentage != nil {
			row.CustomPercentage = decimal.NewNullDecimal(*s.Percentage)
		}
		if s.Amount != nil {
			row.CustomAmount = decimal.NewNullDecimal(*s.Amount)
		}
		// The payer's own share starts fully paid; nobody owes themselves.
		if s.UserID == userID {
			row.AmountPaid = row.AmountOwed
			row.IsSettled = true
		}
		shareRows = append(shareRows, row)
	}

	created, err := h.expenses.CreateWithShares(ctx, expense, shareRows)
	if err != nil {
		utils.Logger.Errorf("failed to create expense in group %d: %v", groupID, err)
		utils.WriteError(w, "failed to create expense", http.StatusInternalServerError)
		return
	}

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "expense created successfully",
		"data": map[string]interface{}{
			"expense": created,
			"shares":  result.Shares,
		},
	}, http.StatusCreated)
}

// FUNC TO LIST A GROUP'S EXPENSES
func (h *Handler) ListExpensesHandler(w http.ResponseWriter, r *http.Request) {
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

	_, isMember, err := h.groupMembers(ctx, groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to load members for group %d: %v", groupID, err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	expenseList, err := h.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		utils.Logger.Errorf("failed to list expenses for group %d: %v", groupID, err)
		utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(expenseList),
		"data":   expenseList,
	})
}

// FUNC TO GET ONE EXPENSE WITH ITS SHARES
func (h *Handler) GetExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	expenseID, err := strconv.Atoi(r.PathValue("expenseId"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	expense, err := h.expenses.Get(ctx, expenseID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.WriteError(w, "expense not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	_, isMember, err := h.groupMembers(ctx, expense.GroupID, userID)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	shareList, err := h.shares.ListByExpense(ctx, expenseID)
	if err != nil {
		utils.Logger.Errorf("failed to list shares for expense %d: %v", expenseID, err)
		utils.WriteError(w, "failed to fetch expense shares", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"expense": expense,
			"shares":  shareList,
		},
	})
}

// FUNC TO DELETE AN EXPENSE
func (h *Handler) DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	expenseID, err := strconv.Atoi(r.PathValue("expenseId"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	expense, err := h.expenses.Get(ctx, expenseID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.WriteError(w, "expense not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if expense.PayerID != userID {
		utils.WriteError(w, "forbidden: only the payer can delete an expense", http.StatusForbidden)
		return
	}

	if err := h.expenses.Delete(ctx, expenseID); err != nil {
		utils.Logger.Errorf("failed to delete expense %d: %v", expenseID, err)
		utils.WriteError(w, "failed to delete expense", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "expense deleted successfully",
	})
}

// FUNC TO SETTLE A SHARE, FULLY OR PARTIALLY
func (h *Handler) SettleShareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, err := strconv.Atoi(r.PathValue("shareId"))
	if err != nil {
		utils.WriteError(w, "invalid share ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Amount *decimal.Decimal `json:"amount,omitempty"`
	}

	var req request
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			utils.WriteError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	share, err := h.shares.GetShare(ctx, shareID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.WriteError(w, "share not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if share.UserID != userID {
		utils.WriteError(w, "forbidden: you can only settle your own share", http.StatusForbidden)
		return
	}

	if share.IsSettled {
		utils.WriteError(w, "share is already settled", http.StatusConflict)
		return
	}

	open := share.AmountOwed.Sub(share.AmountPaid)
	amount := open
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() {
		utils.WriteError(w, "amount must be greater than zero", http.StatusBadRequest)
		return
	}
	if amount.GreaterThan(open) {
		utils.WriteError(w, "amount exceeds what is left owing on this share", http.StatusBadRequest)
		return
	}

	remaining, err := h.shares.Settle(ctx, shareID, amount)
	if err != nil {
		if err == store.ErrAlreadySettled {
			utils.WriteError(w, "share is already settled", http.StatusConflict)
			return
		}
		if err == store.ErrNotFound {
			utils.WriteError(w, "share not found", http.StatusNotFound)
			return
		}
		utils.Logger.Errorf("failed to settle share %d: %v", shareID, err)
		utils.WriteError(w, "failed to settle share", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "share settled successfully",
		"data": map[string]interface{}{
			"share_id":   shareID,
			"paid":       amount,
			"remaining":  remaining,
			"is_settled": remaining.IsZero(),
		},
	})
}

// FUNC TO SUMMARISE WHAT THE CALLER OWES AND IS OWED IN A GROUP
func (h *Handler) UserSummaryHandler(w http.ResponseWriter, r *http.Request) {
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

	_, isMember, err := h.groupMembers(ctx, groupID, userID)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	expenseList, err := h.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
		return
	}

	shareList, err := h.shares.ListSharesByGroup(ctx, groupID)
	if err != nil {
		utils.WriteError(w, "failed to fetch shares", http.StatusInternalServerError)
		return
	}

	payerOf := make(map[int]int, len(expenseList))
	totalPaid := decimal.Zero
	for _, e := range expenseList {
		payerOf[e.ID] = e.PayerID
		if e.PayerID == userID {
			totalPaid = totalPaid.Add(e.Amount)
		}
	}

	// Only the unpaid remainder of each share counts towards open debt.
	youOwe := decimal.Zero
	owedToYou := decimal.Zero
	for _, s := range shareList {
		if s.IsSettled {
			continue
		}
		open := s.AmountOwed.Sub(s.AmountPaid)
		if s.UserID == userID && payerOf[s.ExpenseID] != userID {
			youOwe = youOwe.Add(open)
		}
		if s.UserID != userID && payerOf[s.ExpenseID] == userID {
			owedToYou = owedToYou.Add(open)
		}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"group_id":    groupID,
			"total_paid":  totalPaid,
			"you_owe":     youOwe,
			"owed_to_you": owedToYou,
			"net":         owedToYou.Sub(youOwe),
		},
	})
}
