package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"divvy/internal/api/handlers"
	"divvy/internal/models"
	"divvy/internal/repositories/sqlconnect"
	"divvy/pkg/utils"
)

// groupRole returns the caller's role inside the group, or sql.ErrNoRows
// when they are not a member.
func groupRole(ctx context.Context, db *sql.DB, groupID, userID int) (string, error) {
	var role string
	err := db.QueryRowContext(ctx, "SELECT role FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID).Scan(&role)
	return role, err
}

// FUNC TO CREATE A GROUP
func CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
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

	var newGroup models.Group
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&newGroup); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	newGroup.Name = strings.TrimSpace(newGroup.Name)
	if newGroup.Name == "" || newGroup.Description == "" {
		utils.WriteError(w, "group name and description is required", http.StatusBadRequest)
		return
	}

	if len(newGroup.Name) > 100 || len(newGroup.Description) > 500 {
		utils.WriteError(w, "name or description too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tx, err := db.Begin()
	if err != nil {
		utils.Logger.Errorf("failed to start transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	query := `INSERT INTO groups (name, description, created_by) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, query, newGroup.Name, newGroup.Description, userID)
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to create group: %v", err)
		utils.WriteError(w, "failed to create group, try again later!", http.StatusInternalServerError)
		return
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to get last inserted ID: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	insertMemberQuery := `INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, 'admin')`
	_, err = tx.ExecContext(ctx, insertMemberQuery, id, userID)
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to assign group admin: %v", err)
		utils.WriteError(w, "failed to assign group admin", http.StatusInternalServerError)
		return
	}

	if err = tx.Commit(); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to commit transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "Group created successfully",
		"data": map[string]interface{}{
			"group_id":   id,
			"group_name": newGroup.Name,
			"role":       "admin",
		},
	}, http.StatusCreated)
}

// FUNC TO GET ALL GROUPS THE LOGGED-IN USER BELONGS TO
func GetMyGroupsHandler(w http.ResponseWriter, r *http.Request) {
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

	query := `
		SELECT g.id, g.name, g.description, g.created_by, g.created_at, gm.role,
		       (SELECT COUNT(*) FROM group_members WHERE group_id = g.id) AS member_count
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at DESC
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		utils.Logger.Errorf("failed to fetch groups: %v", err)
		utils.WriteError(w, "failed to fetch groups", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type groupRow struct {
		models.Group
		Role        string `json:"role"`
		MemberCount int    `json:"member_count"`
	}

	groupList := []groupRow{}
	for rows.Next() {
		var g groupRow
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.Role, &g.MemberCount); err != nil {
			utils.Logger.Errorf("failed to scan group row: %v", err)
			utils.WriteError(w, "failed to fetch groups", http.StatusInternalServerError)
			return
		}
		groupList = append(groupList, g)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(groupList),
		"data":   groupList,
	})
}

// FUNC TO GET A SINGLE GROUP WITH ITS MEMBERS
func GetGroupByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
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

	if _, err := groupRole(ctx, db, id, userID); err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var group models.Group
	err = db.QueryRowContext(ctx, "SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?", id).
		Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy, &group.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	memberQuery := `
		SELECT gm.user_id, u.username, gm.role, gm.joined_at
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at ASC
	`
	rows, err := db.QueryContext(ctx, memberQuery, id)
	if err != nil {
		utils.Logger.Errorf("failed to fetch group members: %v", err)
		utils.WriteError(w, "failed to fetch group members", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type memberRow struct {
		UserID   int            `json:"user_id"`
		Username string         `json:"username"`
		Role     string         `json:"role"`
		JoinedAt sql.NullString `json:"joined_at"`
	}

	members := []memberRow{}
	for rows.Next() {
		var m memberRow
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			utils.Logger.Errorf("failed to scan member row: %v", err)
			utils.WriteError(w, "failed to fetch group members", http.StatusInternalServerError)
			return
		}
		members = append(members, m)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"group":   group,
			"members": members,
		},
	})
}

// FUNC TO UPDATE GROUP NAME/DESCRIPTION
func UpdateGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
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
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Name != "" && strings.TrimSpace(req.Name) == "" {
		utils.WriteError(w, "name cannot be empty or whitespace", http.StatusBadRequest)
		return
	}

	if len(req.Name) > 100 || len(req.Description) > 500 {
		utils.WriteError(w, "name or description too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := groupRole(ctx, db, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if role != "admin" {
		utils.WriteError(w, "forbidden: not group admin", http.StatusForbidden)
		return
	}

	fields := []string{}
	args := []interface{}{}

	if req.Name != "" {
		fields = append(fields, "name = ?")
		args = append(args, req.Name)
	}
	if req.Description != "" {
		fields = append(fields, "description = ?")
		args = append(args, req.Description)
	}

	if len(fields) == 0 {
		utils.WriteError(w, "no updates provided", http.StatusBadRequest)
		return
	}

	args = append(args, id)

	query := fmt.Sprintf("UPDATE groups SET %s WHERE id = ?", strings.Join(fields, ", "))
	_, err = db.ExecContext(ctx, query, args...)
	if err != nil {
		utils.WriteError(w, "failed to update group", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "Group updated successfully",
	})
}

// FUNC TO DELETE A GROUP
func DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
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

	var createdBy int
	err = db.QueryRowContext(ctx, "SELECT created_by FROM groups WHERE id = ?", id).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if createdBy != userID {
		utils.WriteError(w, "forbidden: only the group creator can delete the group", http.StatusForbidden)
		return
	}

	// Members, expenses, shares and messages cascade with the group row.
	_, err = db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		utils.Logger.Errorf("failed to delete group %d: %v", id, err)
		utils.WriteError(w, "failed to delete group", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "Group deleted successfully",
	})
}
