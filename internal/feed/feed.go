// Package feed is the subscribe-to-changes contract the group chat is
// built on: message writes are published as events, and stream consumers
// subscribe per group.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChatEvent is the envelope fanned out when a group message is created.
type ChatEvent struct {
	EventID   string    `json:"event_id"`
	GroupID   int       `json:"group_id"`
	MessageID int       `json:"message_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatEvent stamps the event with a fresh id and the current time.
func NewChatEvent(groupID, messageID, userID int, username, message string) ChatEvent {
	return ChatEvent{
		EventID:   uuid.NewString(),
		GroupID:   groupID,
		MessageID: messageID,
		UserID:    userID,
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (e ChatEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChatEventFromJSON(data []byte) (ChatEvent, error) {
	var e ChatEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

type Publisher interface {
	PublishChatEvent(ctx context.Context, event ChatEvent) error
	Close() error
}

type Subscriber interface {
	// SubscribeGroup delivers this group's chat events until ctx is
	// cancelled, after which the returned channel is closed.
	SubscribeGroup(ctx context.Context, groupID int) (<-chan ChatEvent, error)
}

// NopPublisher drops every event. Used when no broker is configured so
// message persistence keeps working without the live feed.
type NopPublisher struct{}

func (NopPublisher) PublishChatEvent(context.Context, ChatEvent) error { return nil }
func (NopPublisher) Close() error                                      { return nil }
