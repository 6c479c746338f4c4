// Package personal covers the private budgeting side: spending categories,
// individual expenses and the monthly breakdown. Everything here is scoped
// to the authenticated user; nothing is shared with groups.
package personal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"divvy/internal/api/handlers"
	"divvy/internal/models"
	"divvy/internal/repositories/sqlconnect"
	"divvy/pkg/utils"
)

// FUNC TO CREATE A SPENDING CATEGORY
func CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
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

	var category models.PersonalCategory
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&category); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		utils.WriteError(w, "category name is required", http.StatusBadRequest)
		return
	}
	if len(category.Name) > 100 {
		utils.WriteError(w, "category name too long", http.StatusBadRequest)
		return
	}
	if category.Color == "" {
		category.Color = "#6366f1"
	}
	if category.Icon == "" {
		category.Icon = "tag"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := `INSERT INTO personal_categories (user_id, name, color, icon) VALUES (?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, userID, category.Name, category.Color, category.Icon)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			utils.WriteError(w, "you already have a category with that name", http.StatusConflict)
			return
		}
		utils.Logger.Errorf("failed to create category: %v", err)
		utils.WriteError(w, "failed to create category", http.StatusInternalServerError)
		return
	}

	id, _ := res.LastInsertId()
	category.ID = int(id)
	category.UserID = userID

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "category created successfully",
		"data":    category,
	}, http.StatusCreated)
}

// FUNC TO LIST THE USER'S CATEGORIES
func ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, "SELECT id, user_id, name, color, icon, created_at FROM personal_categories WHERE user_id = ? ORDER BY name ASC", userID)
	if err != nil {
		utils.Logger.Errorf("failed to fetch categories: %v", err)
		utils.WriteError(w, "failed to fetch categories", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	categories := []models.PersonalCategory{}
	for rows.Next() {
		var c models.PersonalCategory
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			utils.Logger.Errorf("failed to scan category row: %v", err)
			utils.WriteError(w, "failed to fetch categories", http.StatusInternalServerError)
			return
		}
		categories = append(categories, c)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(categories),
		"data":   categories,
	})
}

// FUNC TO UPDATE A CATEGORY
func UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid category ID", http.StatusBadRequest)
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
		Name  string `json:"name,omitempty"`
		Color string `json:"color,omitempty"`
		Icon  string `json:"icon,omitempty"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	fields := []string{}
	args := []interface{}{}
	if req.Name != "" {
		fields = append(fields, "name = ?")
		args = append(args, strings.TrimSpace(req.Name))
	}
	if req.Color != "" {
		fields = append(fields, "color = ?")
		args = append(args, req.Color)
	}
	if req.Icon != "" {
		fields = append(fields, "icon = ?")
		args = append(args, req.Icon)
	}
	if len(fields) == 0 {
		utils.WriteError(w, "no updates provided", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	args = append(args, id, userID)
	query := "UPDATE personal_categories SET " + strings.Join(fields, ", ") + " WHERE id = ? AND user_id = ?"
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			utils.WriteError(w, "you already have a category with that name", http.StatusConflict)
			return
		}
		utils.WriteError(w, "failed to update category", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "category not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "category updated successfully",
	})
}

// FUNC TO DELETE A CATEGORY AND ITS EXPENSES
func DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid category ID", http.StatusBadRequest)
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

	res, err := db.ExecContext(ctx, "DELETE FROM personal_categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		utils.Logger.Errorf("failed to delete category %d: %v", id, err)
		utils.WriteError(w, "failed to delete category", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "category not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "category deleted successfully",
	})
}
