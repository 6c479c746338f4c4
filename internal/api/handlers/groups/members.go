package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"divvy/internal/api/handlers"
	"divvy/internal/repositories/sqlconnect"
	"divvy/pkg/utils"
)

// FUNC TO ADD A MEMBER TO A GROUP BY EMAIL
func AddGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
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
		Email string `json:"email"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		utils.WriteError(w, "email is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := groupRole(ctx, db, groupID, userID)
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

	var newMemberID int
	var newMemberName string
	err = db.QueryRowContext(ctx, "SELECT id, username FROM users WHERE email = ?", req.Email).Scan(&newMemberID, &newMemberName)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "no account found for that email", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	_, err = db.ExecContext(ctx, "INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, 'member')", groupID, newMemberID)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			utils.WriteError(w, "user is already a member of this group", http.StatusConflict)
			return
		}
		utils.Logger.Errorf("failed to add member to group %d: %v", groupID, err)
		utils.WriteError(w, "failed to add member", http.StatusInternalServerError)
		return
	}

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "member added successfully",
		"data": map[string]interface{}{
			"group_id": groupID,
			"user_id":  newMemberID,
			"username": newMemberName,
			"role":     "member",
		},
	}, http.StatusCreated)
}

// FUNC TO REMOVE A MEMBER FROM A GROUP
func RemoveGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	memberID, err := strconv.Atoi(r.PathValue("memberId"))
	if err != nil {
		utils.WriteError(w, "invalid member ID", http.StatusBadRequest)
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

	role, err := groupRole(ctx, db, groupID, userID)
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

	var createdBy int
	err = db.QueryRowContext(ctx, "SELECT created_by FROM groups WHERE id = ?", groupID).Scan(&createdBy)
	if err != nil {
		utils.WriteError(w, "group not found", http.StatusNotFound)
		return
	}
	if memberID == createdBy {
		utils.WriteError(w, "the group creator cannot be removed", http.StatusBadRequest)
		return
	}

	res, err := db.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, memberID)
	if err != nil {
		utils.Logger.Errorf("failed to remove member %d from group %d: %v", memberID, groupID, err)
		utils.WriteError(w, "failed to remove member", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "user is not a member of this group", http.StatusNotFound)
		return
	}

	// Their expense history stays; balances keep a zero-seeded entry for
	// departed members so past shares remain attributable.
	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "member removed successfully",
	})
}

// FUNC TO CHANGE A MEMBER'S ROLE
func ChangeMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	memberID, err := strconv.Atoi(r.PathValue("memberId"))
	if err != nil {
		utils.WriteError(w, "invalid member ID", http.StatusBadRequest)
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
		Role string `json:"role"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Role != "admin" && req.Role != "member" {
		utils.WriteError(w, "role must be admin or member", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := groupRole(ctx, db, groupID, userID)
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

	res, err := db.ExecContext(ctx, "UPDATE group_members SET role = ? WHERE group_id = ? AND user_id = ?", req.Role, groupID, memberID)
	if err != nil {
		utils.WriteError(w, "failed to update member role", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "user is not a member of this group", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "member role updated successfully",
	})
}

// FUNC TO LEAVE A GROUP
func LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
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
	err = db.QueryRowContext(ctx, "SELECT created_by FROM groups WHERE id = ?", groupID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if userID == createdBy {
		utils.WriteError(w, "the group creator cannot leave; delete the group instead", http.StatusBadRequest)
		return
	}

	res, err := db.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to leave group %d: %v", groupID, err)
		utils.WriteError(w, "failed to leave group", http.StatusInternalServerError)
		return
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		utils.WriteError(w, "you are not a member of this group", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "you have left the group",
	})
}
