package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// StatusEvent is published on the status bus whenever a data group
// transitions between dirty and idle.
type StatusEvent struct {
	DataGroup string    `json:"dataGroup"`
	Dirty     bool      `json:"dirty"`
	At        time.Time `json:"at"`
}

// StatusBus publishes and subscribes to dirty/idle transitions on
// subjects "joltsync.status.<group>", grounded on the teacher's
// OperationRegistry publish pattern (subject-per-event on a *nats.Conn).
// A StatusBus is optional: Source works without one, just without
// cross-process status visibility.
type StatusBus struct {
	conn *nats.Conn
}

// NewStatusBus wraps an established NATS connection.
func NewStatusBus(conn *nats.Conn) *StatusBus {
	return &StatusBus{conn: conn}
}

func subjectFor(group string) string {
	return fmt.Sprintf("joltsync.status.%s", group)
}

// Publish emits a StatusEvent for group on its subject.
func (b *StatusBus) Publish(_ context.Context, group string, dirty bool) error {
	data, err := json.Marshal(StatusEvent{DataGroup: group, Dirty: dirty, At: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	if err := b.conn.Publish(subjectFor(group), data); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}
	return nil
}

// Subscription delivers StatusEvents for a wildcard subscription across
// every data group, until Close is called.
type Subscription struct {
	sub    *nats.Subscription
	events chan StatusEvent
}

// Events returns the channel StatusEvents are delivered on.
func (s *Subscription) Events() <-chan StatusEvent {
	return s.events
}

// Close unsubscribes and stops delivery.
func (s *Subscription) Close() error {
	return s.sub.Unsubscribe()
}

// SubscribeAll subscribes to every data group's status subject
// ("joltsync.status.*") and decodes each message into a StatusEvent,
// grounded on the teacher's HandleSSE's buffered ChanSubscribe pattern.
// Malformed payloads are dropped rather than surfaced, since a status
// bus is a best-effort side channel.
func (b *StatusBus) SubscribeAll() (*Subscription, error) {
	raw := make(chan *nats.Msg, 64)
	sub, err := b.conn.ChanSubscribe(subjectFor("*"), raw)
	if err != nil {
		return nil, fmt.Errorf("subscribe status bus: %w", err)
	}

	events := make(chan StatusEvent, 64)
	go func() {
		defer close(events)
		for msg := range raw {
			var evt StatusEvent
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				continue
			}
			if evt.DataGroup == "" {
				evt.DataGroup = groupFromSubject(msg.Subject)
			}
			events <- evt
		}
	}()

	return &Subscription{sub: sub, events: events}, nil
}

func groupFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
