package biz

import (
	"time"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// EventSink receives events emitted by the resilience components. Sinks are
// constructed at the composition root and passed in explicitly; there is no
// global emitter. Delivery is at-least-once within the process.
type EventSink interface {
	Publish(event model.Event)
}

// EventSinkFunc adapts a plain function to the EventSink interface.
type EventSinkFunc func(event model.Event)

// Publish implements EventSink.
func (f EventSinkFunc) Publish(event model.Event) {
	f(event)
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger *log.Helper
}

// NewLogSink creates an event sink backed by the service logger.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: log.NewHelper(logger)}
}

// Publish implements EventSink.
func (s *LogSink) Publish(event model.Event) {
	kvs := []interface{}{
		"event", string(event.Type),
		"provider", event.Provider,
	}
	if event.From != "" || event.To != "" {
		kvs = append(kvs, "from", string(event.From), "to", string(event.To))
	}
	if event.Key != "" {
		kvs = append(kvs, "key", event.Key)
	}
	for k, v := range event.Details {
		kvs = append(kvs, k, v)
	}

	switch event.Type {
	case model.EventTrip, model.EventFailure, model.EventProviderUnhealthy, model.EventError:
		s.logger.Warnw(kvs...)
	default:
		s.logger.Infow(kvs...)
	}
}

// publish fans an event out to every sink. A panicking sink must not take
// down the emitting component.
func publish(sinks []EventSink, event model.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, sink := range sinks {
		func() {
			defer func() {
				_ = recover()
			}()
			sink.Publish(event)
		}()
	}
}
