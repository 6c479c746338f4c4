// Package chat persists group messages and fans them out to live
// subscribers through the feed broker.
package chat

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
	"divvy/internal/feed"
	"divvy/internal/models"
	"divvy/internal/repositories/sqlconnect"
	"divvy/pkg/utils"
)

const maxMessageLength = 2000

type Handler struct {
	pub feed.Publisher
	sub feed.Subscriber
}

// NewHandler wires the chat endpoints to a feed broker. sub may be nil
// when no broker is configured; the stream endpoint then reports
// unavailable while writes and history keep working.
func NewHandler(pub feed.Publisher, sub feed.Subscriber) *Handler {
	if pub == nil {
		pub = feed.NopPublisher{}
	}
	return &Handler{pub: pub, sub: sub}
}

func isGroupMember(ctx context.Context, db *sql.DB, groupID, userID int) (bool, error) {
	var role string
	err := db.QueryRowContext(ctx, "SELECT role FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FUNC TO POST A MESSAGE TO A GROUP
func (h *Handler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
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
		Message   string `json:"message"`
		ReplyToID *int   `json:"reply_to_id,omitempty"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		utils.WriteError(w, "message is required", http.StatusBadRequest)
		return
	}
	if len(req.Message) > maxMessageLength {
		utils.WriteError(w, "message too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	member, err := isGroupMember(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !member {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	if req.ReplyToID != nil {
		var parentGroup int
		err := db.QueryRowContext(ctx, "SELECT group_id FROM group_messages WHERE id = ?", *req.ReplyToID).Scan(&parentGroup)
		if err != nil || parentGroup != groupID {
			utils.WriteError(w, "reply target not found in this group", http.StatusBadRequest)
			return
		}
	}

	var username string
	if err := db.QueryRowContext(ctx, "SELECT username FROM users WHERE id = ?", userID).Scan(&username); err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	query := `INSERT INTO group_messages (group_id, user_id, message, message_type, reply_to_id) VALUES (?, ?, ?, 'text', ?)`
	res, err := db.ExecContext(ctx, query, groupID, userID, req.Message, req.ReplyToID)
	if err != nil {
		utils.Logger.Errorf("failed to insert message in group %d: %v", groupID, err)
		utils.WriteError(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	id, err := res.LastInsertId()
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	event := feed.NewChatEvent(groupID, int(id), userID, username, req.Message)
	if err := h.pub.PublishChatEvent(ctx, event); err != nil {
		// The row is committed; subscribers just miss the live event.
		utils.Logger.Errorf("failed to publish chat event for message %d: %v", id, err)
	}

	msg := models.GroupMessage{
		ID:          int(id),
		GroupID:     groupID,
		UserID:      userID,
		Message:     req.Message,
		MessageType: "text",
	}
	if req.ReplyToID != nil {
		msg.ReplyToID = sql.NullInt64{Int64: int64(*req.ReplyToID), Valid: true}
	}

	utils.WriteJSONStatus(w, map[string]interface{}{
		"status":  "success",
		"message": "message sent",
		"data":    msg,
	}, http.StatusCreated)
}

// FUNC TO FETCH A GROUP'S MESSAGE HISTORY
func (h *Handler) MessageHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
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

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			utils.WriteError(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}

	before := 0
	if v := r.URL.Query().Get("before"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			utils.WriteError(w, "before must be a message ID", http.StatusBadRequest)
			return
		}
		before = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	member, err := isGroupMember(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !member {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	query := `
		SELECT m.id, m.group_id, m.user_id, u.username, m.message, m.message_type, m.reply_to_id, m.created_at
		FROM group_messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = ?
	`
	args := []interface{}{groupID}
	if before > 0 {
		query += " AND m.id < ?"
		args = append(args, before)
	}
	query += " ORDER BY m.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		utils.Logger.Errorf("failed to fetch messages for group %d: %v", groupID, err)
		utils.WriteError(w, "failed to fetch messages", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type messageRow struct {
		models.GroupMessage
		Username string `json:"username"`
	}

	messages := []messageRow{}
	for rows.Next() {
		var m messageRow
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Username, &m.Message, &m.MessageType, &m.ReplyToID, &m.CreatedAt); err != nil {
			utils.Logger.Errorf("failed to scan message row: %v", err)
			utils.WriteError(w, "failed to fetch messages", http.StatusInternalServerError)
			return
		}
		messages = append(messages, m)
	}

	// Oldest first for the client.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(messages),
		"data":   messages,
	})
}

// FUNC TO STREAM LIVE MESSAGES OVER SSE
func (h *Handler) StreamMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
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

	if h.sub == nil {
		utils.WriteError(w, "live message stream is not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	member, err := isGroupMember(checkCtx, db, groupID, userID)
	cancel()
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !member {
		utils.WriteError(w, "forbidden: not a group member", http.StatusForbidden)
		return
	}

	events, err := h.sub.SubscribeGroup(r.Context(), groupID)
	if err != nil {
		utils.Logger.Errorf("failed to subscribe to group %d feed: %v", groupID, err)
		utils.WriteError(w, "failed to open message stream", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := event.ToJSON()
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", event.EventID, payload)
			flusher.Flush()
		}
	}
}
