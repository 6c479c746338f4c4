package personal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"divvy/internal/api/handlers"
	"divvy/internal/models"
	"divvy/internal/report"
	"divvy/internal/repositories/sqlconnect"
	"divvy/pkg/utils"
)

// FUNC TO RECORD A PERSONAL EXPENSE
func CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		CategoryID  int             `json:"category_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description,omitempty"`
		Date        string          `json:"date,omitempty"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !req.Amount.IsPositive() {
		utils.WriteError(w, "amount must be greater than zero", http.StatusBadRequest)
		return
	}

	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		utils.WriteError(w, "date must be in YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var ownerID int
	err := db.QueryRowContext(ctx, "SELECT user_id FROM personal_categories WHERE id = ?", req.CategoryID).Scan(&ownerID)
	if err != nil || ownerID != userID {
		utils.WriteError(w, "category not found", http.StatusNotFound)
		return
	}

	query := `INSERT INTO personal_expenses (user_id, category_id, amount, description, date) VALUES (?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, userID, req.CategoryID, req.Amount, req.Description, req.Date)
	if err != nil {
		utils.Logger.Errorf("failed to create personal expense: %v", err)
		utils.WriteError(w, "failed to record expense", http.StatusInternalServerError)
		return
	}

	id, _ := res.LastInsertId()
	expense := models.PersonalExpense{
		ID:          int(id),
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	}

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "expense recorded successfully",
		"data":    expense,
	}, http.StatusCreated)
}

// FUNC TO LIST PERSONAL EXPENSES FOR A MONTH
func ListExpensesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id, user_id, category_id, amount, COALESCE(description, ''), DATE_FORMAT(date, '%Y-%m-%d'), created_at
		FROM personal_expenses
		WHERE user_id = ? AND YEAR(date) = ? AND MONTH(date) = ?
		ORDER BY date DESC, id DESC
	`
	rows, err := db.QueryContext(ctx, query, userID, year, int(month))
	if err != nil {
		utils.Logger.Errorf("failed to fetch personal expenses: %v", err)
		utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	expenses := []models.PersonalExpense{}
	for rows.Next() {
		var e models.PersonalExpense
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Description, &e.Date, &e.CreatedAt); err != nil {
			utils.Logger.Errorf("failed to scan personal expense row: %v", err)
			utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
			return
		}
		expenses = append(expenses, e)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(expenses),
		"data":   expenses,
	})
}

// FUNC TO DELETE A PERSONAL EXPENSE
func DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := db.ExecContext(ctx, "DELETE FROM personal_expenses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		utils.Logger.Errorf("failed to delete personal expense %d: %v", id, err)
		utils.WriteError(w, "failed to delete expense", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "expense not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "expense deleted successfully",
	})
}

// FUNC TO GET THE MONTHLY SPENDING SUMMARY
func MonthlySummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userID, ok := handlers.UserID(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	catRows, err := db.QueryContext(ctx, "SELECT id, name, color FROM personal_categories WHERE user_id = ?", userID)
	if err != nil {
		utils.WriteError(w, "failed to fetch categories", http.StatusInternalServerError)
		return
	}
	defer catRows.Close()

	categories := []models.PersonalCategory{}
	for catRows.Next() {
		var c models.PersonalCategory
		if err := catRows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			utils.WriteError(w, "failed to fetch categories", http.StatusInternalServerError)
			return
		}
		categories = append(categories, c)
	}

	expRows, err := db.QueryContext(ctx, `
		SELECT id, category_id, amount, DATE_FORMAT(date, '%Y-%m-%d')
		FROM personal_expenses
		WHERE user_id = ? AND YEAR(date) = ? AND MONTH(date) = ?
	`, userID, year, int(month))
	if err != nil {
		utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
		return
	}
	defer expRows.Close()

	expenses := []models.PersonalExpense{}
	for expRows.Next() {
		var e models.PersonalExpense
		if err := expRows.Scan(&e.ID, &e.CategoryID, &e.Amount, &e.Date); err != nil {
			utils.WriteError(w, "failed to fetch expenses", http.StatusInternalServerError)
			return
		}
		expenses = append(expenses, e)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data":   report.Monthly(year, month, categories, expenses),
	})
}

// parseYearMonth reads ?year= and ?month=, defaulting to the current month.
func parseYearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	now := time.Now()
	year := now.Year()
	month := now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2000 || n > 2200 {
			utils.WriteError(w, "invalid year", http.StatusBadRequest)
			return 0, 0, false
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			utils.WriteError(w, "invalid month", http.StatusBadRequest)
			return 0, 0, false
		}
		month = time.Month(n)
	}

	return year, month, true
}
