package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/posthog/posthog-go"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/testhelper"
	"github.com/quizgenius/backend/internal/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []database.Event
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *database.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, *event)
	return h.err
}

type fakePostHog struct {
	messages []posthog.Message
}

func (f *fakePostHog) Enqueue(msg posthog.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func TestTriggerEvent(t *testing.T) {
	db := testhelper.NewSqliteDB(t)
	user := testhelper.CreateUser(t, db, "student@example.com", database.RoleStudent)

	// canceled contexts must not stop the event from being stored
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := &recordingHandler{}
	service := events.NewEventService(db, handler)
	service.TriggerEvent(ctx, events.Event{
		Type:    events.EventTypeAttemptSubmitted,
		UserID:  user.ID,
		Payload: map[string]any{"attempt_id": 3},
	})
	workers.Global.Wait()

	var stored []database.Event
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, string(events.EventTypeAttemptSubmitted), stored[0].Type)
	assert.Equal(t, user.ID, stored[0].UserID)
	assert.EqualValues(t, 3, stored[0].Payload["attempt_id"])
	assert.False(t, stored[0].TriggeredAt.IsZero())

	require.Len(t, handler.events, 1)
	assert.Equal(t, stored[0].ID, handler.events[0].ID)
}

func TestTriggerEvent_HandlerErrorStopsChain(t *testing.T) {
	db := testhelper.NewSqliteDB(t)

	failing := &recordingHandler{err: errors.New("boom")}
	next := &recordingHandler{}
	service := events.NewEventService(db, failing, next)

	service.TriggerEvent(context.Background(), events.Event{Type: events.EventTypeLogin, UserID: 1})
	workers.Global.Wait()

	assert.Len(t, failing.events, 1)
	assert.Empty(t, next.events)
}

func TestPostHogForwarder(t *testing.T) {
	client := &fakePostHog{}
	forwarder := events.NewPostHogForwarder(client)

	err := forwarder.HandleEvent(context.Background(), &database.Event{
		Type:    string(events.EventTypeTestPublished),
		UserID:  42,
		Payload: map[string]any{"test_id": 7},
	})
	require.NoError(t, err)

	require.Len(t, client.messages, 1)
	capture, ok := client.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "42", capture.DistinctId)
	assert.Equal(t, "test_published", capture.Event)
	assert.Equal(t, 7, capture.Properties["test_id"])
}

func TestMetricsRecorder(t *testing.T) {
	err := events.MetricsRecorder{}.HandleEvent(context.Background(), &database.Event{Type: string(events.EventTypeLogin)})
	assert.NoError(t, err)
}
