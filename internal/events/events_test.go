package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"admithub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	id     string
	events []Event
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) GetHandlerID() string { return h.id }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func newTestBus(t *testing.T) EventBus {
	t.Helper()
	bus := NewInMemoryEventBus(&Config{
		BufferSize:     10,
		WorkerCount:    2,
		HandlerTimeout: time.Second,
	}, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		bus.Stop(ctx)
	})
	return bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishDispatchesToSubscribers(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	handler := &recordingHandler{id: "recorder"}
	require.NoError(t, bus.Subscribe(EventTypeApplicationCreated, handler))

	require.NoError(t, bus.Publish(ctx, NewApplicationCreatedEvent(1, 7)))

	require.Equal(t, 1, handler.count())
	created, ok := handler.events[0].(*ApplicationCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), created.ApplicationID)
	assert.Equal(t, EventTypeApplicationCreated, created.GetEventType())
}

func TestPublishAsyncProcessesThroughWorkers(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	handler := &recordingHandler{id: "recorder"}
	require.NoError(t, bus.Subscribe(EventTypeStatusChanged, handler))
	require.NoError(t, bus.Start(ctx))

	event := NewApplicationStatusChangedEvent(1, 7, "applicant@example.com",
		models.StatusDraft, models.StatusAccepted, 42)
	require.NoError(t, bus.PublishAsync(ctx, event))

	waitFor(t, func() bool { return handler.count() == 1 })

	changed := handler.events[0].(*ApplicationStatusChangedEvent)
	assert.Equal(t, models.StatusAccepted, changed.NewStatus)
	assert.Equal(t, "applicant@example.com", changed.ApplicantEmail)
}

func TestSubscribePattern(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	appHandler := &recordingHandler{id: "app-watcher"}
	allHandler := &recordingHandler{id: "all-watcher"}
	require.NoError(t, bus.SubscribePattern("application.*", appHandler))
	require.NoError(t, bus.SubscribePattern("*", allHandler))

	require.NoError(t, bus.Publish(ctx, NewApplicationSubmittedEvent(1, 7, "a@b.com", true)))
	require.NoError(t, bus.Publish(ctx, NewUserRegisteredEvent(7, "a@b.com")))

	assert.Equal(t, 1, appHandler.count())
	assert.Equal(t, 2, allHandler.count())
}

func TestPublishReportsHandlerFailure(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	failing := &recordingHandler{id: "failing", err: fmt.Errorf("boom")}
	healthy := &recordingHandler{id: "healthy"}
	require.NoError(t, bus.Subscribe(EventTypeVideoDeleted, failing))
	require.NoError(t, bus.Subscribe(EventTypeVideoDeleted, healthy))

	err := bus.Publish(ctx, NewVideoDeletedEvent(1, 7))
	require.Error(t, err)

	// Every handler still ran despite the failure
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
}

func TestSubscribeValidation(t *testing.T) {
	bus := newTestBus(t)

	assert.Error(t, bus.Subscribe("", &recordingHandler{id: "x"}))
	assert.Error(t, bus.Subscribe(EventTypeApplicationCreated, nil))
	assert.Error(t, bus.SubscribePattern("", &recordingHandler{id: "x"}))
}

func TestPublishNilEvent(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	assert.Error(t, bus.Publish(ctx, nil))
	assert.Error(t, bus.PublishAsync(ctx, nil))
}

func TestStats(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	handler := &recordingHandler{id: "recorder"}
	require.NoError(t, bus.Subscribe(EventTypeApplicationCreated, handler))
	require.NoError(t, bus.Publish(ctx, NewApplicationCreatedEvent(1, 7)))

	stats := bus.Stats()
	assert.Equal(t, int64(1), stats.EventsPublished)
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, 1, stats.HandlersCount)
}

func TestHealthAfterStop(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig(), zap.NewNop())
	require.NoError(t, bus.Health())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	assert.Error(t, bus.Health())
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("application.created", "*"))
	assert.True(t, matchesPattern("application.created", "application.*"))
	assert.True(t, matchesPattern("application.created", "application.created"))
	assert.False(t, matchesPattern("user.registered", "application.*"))
	assert.False(t, matchesPattern("application.created", "user.registered"))
}
