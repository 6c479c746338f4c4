package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatEventRoundTrip(t *testing.T) {
	event := NewChatEvent(7, 42, 3, "alice", "who paid for dinner?")

	require.NotEmpty(t, event.EventID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)

	body, err := event.ToJSON()
	require.NoError(t, err)

	decoded, err := ChatEventFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, 7, decoded.GroupID)
	assert.Equal(t, 42, decoded.MessageID)
	assert.Equal(t, "alice", decoded.Username)
	assert.Equal(t, "who paid for dinner?", decoded.Message)
}

func TestChatEventFromJSONRejectsGarbage(t *testing.T) {
	_, err := ChatEventFromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestGroupRoutingKey(t *testing.T) {
	assert.Equal(t, "group.12", groupRoutingKey(12))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishChatEvent(t.Context(), NewChatEvent(1, 1, 1, "a", "b")))
	assert.NoError(t, p.Close())
}
