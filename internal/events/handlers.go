package events

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/posthog/posthog-go"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/metrics"
)

// Enqueuer is the part of posthog.Client used for forwarding.
type Enqueuer interface {
	Enqueue(posthog.Message) error
}

// PostHogForwarder captures every event in PostHog.
type PostHogForwarder struct {
	client Enqueuer
}

func NewPostHogForwarder(client Enqueuer) *PostHogForwarder {
	return &PostHogForwarder{client: client}
}

func (f *PostHogForwarder) HandleEvent(ctx context.Context, event *database.Event) error {
	properties := posthog.NewProperties()
	for key, value := range event.Payload {
		properties.Set(key, value)
	}

	slog.Debug("sending event to PostHog", "event_type", event.Type, "user_id", event.UserID)

	return f.client.Enqueue(posthog.Capture{
		DistinctId: strconv.Itoa(event.UserID),
		Event:      event.Type,
		Timestamp:  event.TriggeredAt,
		Properties: properties,
	})
}

// MetricsRecorder counts events in Prometheus.
type MetricsRecorder struct{}

func (MetricsRecorder) HandleEvent(ctx context.Context, event *database.Event) error {
	metrics.RecordEvent(event.Type)

	if event.Type == string(EventTypeLogin) {
		metrics.RecordLogin()
	}

	return nil
}

var (
	_ EventHandler = (*PostHogForwarder)(nil)
	_ EventHandler = MetricsRecorder{}
)
