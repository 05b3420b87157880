package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/logger"
)

// captureSink records every event it is handed.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Send(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) captured() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// blockingSink parks in Send until released, so tests can hold the
// reporter's worker mid-delivery.
type blockingSink struct {
	captureSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSink) Send(ctx context.Context, event Event) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.captureSink.Send(ctx, event)
}

func TestReporterDeliversToAllSinks(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	reporter := NewReporter(logger.NewSimple(), first, second)

	reporter.Publish(Event{Kind: KindDeploymentStarted, DeploymentID: "deploy-1", Message: "starting"})
	reporter.Publish(Event{Kind: KindStageSettled, DeploymentID: "deploy-1", Message: "stage 1 done"})
	reporter.Publish(Event{Kind: KindDeploymentSucceeded, DeploymentID: "deploy-1", Message: "done"})
	reporter.Close()

	for _, sink := range []*captureSink{first, second} {
		events := sink.captured()
		require.Len(t, events, 3)
		assert.Equal(t, KindDeploymentStarted, events[0].Kind)
		assert.Equal(t, KindStageSettled, events[1].Kind)
		assert.Equal(t, KindDeploymentSucceeded, events[2].Kind)
	}
}

func TestReporterFillsTimestamp(t *testing.T) {
	sink := &captureSink{}
	reporter := NewReporter(logger.NewSimple(), sink)

	reporter.Publish(Event{Kind: KindSnapshotCreated, DeploymentID: "deploy-1"})
	reporter.Close()

	events := sink.captured()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestReporterKeepsExplicitTimestamp(t *testing.T) {
	sink := &captureSink{}
	reporter := NewReporter(logger.NewSimple(), sink)

	stamp := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	reporter.Publish(Event{Kind: KindSnapshotCreated, Timestamp: stamp})
	reporter.Close()

	events := sink.captured()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
}

func TestReporterCloseFlushesQueue(t *testing.T) {
	sink := &captureSink{}
	reporter := NewReporter(logger.NewSimple(), sink)

	for i := 0; i < 10; i++ {
		reporter.Publish(Event{Kind: KindStageSettled, DeploymentID: "deploy-1"})
	}
	reporter.Close()

	assert.Len(t, sink.captured(), 10)
}

func TestReporterCloseIsIdempotent(t *testing.T) {
	reporter := NewReporter(logger.NewSimple(), &captureSink{})
	reporter.Close()
	reporter.Close()
}

func TestReporterDropsWhenQueueFull(t *testing.T) {
	sink := newBlockingSink()
	reporter := NewReporter(logger.NewSimple(), sink)

	// Park the worker inside the first delivery, then fill the queue
	// behind it. One more publish has nowhere to go.
	reporter.Publish(Event{Kind: KindDeploymentStarted})
	<-sink.started
	for i := 0; i < queueSize; i++ {
		reporter.Publish(Event{Kind: KindStageSettled})
	}
	reporter.Publish(Event{Kind: KindDeploymentFailed})

	close(sink.release)
	reporter.Close()

	events := sink.captured()
	assert.Len(t, events, queueSize+1)
	for _, event := range events {
		assert.NotEqual(t, KindDeploymentFailed, event.Kind)
	}
}

func TestReporterSurvivesSinkErrors(t *testing.T) {
	failing := &failingSink{}
	sink := &captureSink{}
	reporter := NewReporter(logger.NewSimple(), failing, sink)

	reporter.Publish(Event{Kind: KindDeploymentStarted, DeploymentID: "deploy-1"})
	reporter.Publish(Event{Kind: KindDeploymentSucceeded, DeploymentID: "deploy-1"})
	reporter.Close()

	assert.Len(t, sink.captured(), 2)
}

type failingSink struct{}

func (s *failingSink) Name() string { return "failing" }

func (s *failingSink) Send(context.Context, Event) error {
	return assert.AnError
}

func TestWebhookSinkPostsJSON(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
		gotType  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		received = append(received, event)
		gotType = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Send(context.Background(), Event{
		Kind:         KindRollbackTriggered,
		DeploymentID: "deploy-7",
		Message:      "rolling back",
		Details:      map[string]string{"trigger": "deployment_failure"},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, KindRollbackTriggered, received[0].Kind)
	assert.Equal(t, "deploy-7", received[0].DeploymentID)
	assert.Equal(t, "deployment_failure", received[0].Details["trigger"])
}

func TestWebhookSinkErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Send(context.Background(), Event{Kind: KindDeploymentFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookSinkUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Send(context.Background(), Event{Kind: KindDeploymentFailed})
	assert.Error(t, err)
}

func TestLogSinkNeverFails(t *testing.T) {
	sink := NewLogSink(logger.NewSimple())
	err := sink.Send(context.Background(), Event{
		Kind:         KindVerificationDone,
		DeploymentID: "deploy-1",
		Component:    "database",
		Message:      "verification finished",
		Details:      map[string]string{"passed": "4"},
	})
	assert.NoError(t, err)
}
