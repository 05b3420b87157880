// Package events publishes deployment lifecycle notifications to
// configured sinks without blocking the deployment path.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/seppo/internal/logger"
)

// Kind names one lifecycle moment.
type Kind string

const (
	KindDeploymentStarted   Kind = "deployment_started"
	KindDeploymentSucceeded Kind = "deployment_succeeded"
	KindDeploymentFailed    Kind = "deployment_failed"
	KindStageSettled        Kind = "stage_settled"
	KindSnapshotCreated     Kind = "snapshot_created"
	KindVerificationDone    Kind = "verification_finished"
	KindRollbackTriggered   Kind = "rollback_triggered"
	KindRollbackFinished    Kind = "rollback_finished"
)

// Event is one deployment lifecycle notification.
type Event struct {
	Timestamp    time.Time         `json:"timestamp"`
	Kind         Kind              `json:"kind"`
	DeploymentID string            `json:"deployment_id"`
	Component    string            `json:"component,omitempty"`
	Message      string            `json:"message"`
	Details      map[string]string `json:"details,omitempty"`
}

// Sink delivers events somewhere. The reporter's worker calls Send
// sequentially; implementations do not need their own locking.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

const (
	queueSize   = 64
	sendTimeout = 30 * time.Second
)

// Reporter fans events out to its sinks from a single worker
// goroutine. Publish never blocks: when the queue is full the event is
// dropped with a warning. Close flushes whatever is queued.
type Reporter struct {
	sinks  []Sink
	queue  chan Event
	done   chan struct{}
	logger logger.Logger
	once   sync.Once
}

func NewReporter(log logger.Logger, sinks ...Sink) *Reporter {
	r := &Reporter{
		sinks:  sinks,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
		logger: log,
	}
	go r.run()
	return r
}

// Publish enqueues an event for delivery.
func (r *Reporter) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn(fmt.Sprintf("event queue full, dropping %s", event.Kind))
	}
}

// Close drains the queue and stops the worker. Safe to call more than
// once.
func (r *Reporter) Close() {
	r.once.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *Reporter) run() {
	defer close(r.done)
	for event := range r.queue {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			if err := sink.Send(ctx, event); err != nil {
				r.logger.WithFields(map[string]interface{}{
					"sink":  sink.Name(),
					"event": string(event.Kind),
				}).Warn(fmt.Sprintf("event delivery failed: %v", err))
			}
			cancel()
		}
	}
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, event Event) error {
	fields := map[string]interface{}{
		"event":      string(event.Kind),
		"deployment": event.DeploymentID,
	}
	if event.Component != "" {
		fields["component"] = event.Component
	}
	for k, v := range event.Details {
		fields[k] = v
	}
	s.logger.WithFields(fields).Info(event.Message)
	return nil
}
