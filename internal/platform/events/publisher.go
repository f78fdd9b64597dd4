// Package events provides a fire-and-forget NATS JetStream publisher for
// anime lifecycle events.
package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream and subject names.
const (
	StreamName = "ANIME_EVENTS"

	SubjectAnimeCreated = "anime.created"
	SubjectAnimeUpdated = "anime.updated"
	SubjectAnimeDeleted = "anime.deleted"
)

// Event is the canonical envelope sent to all anime.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	Actor      string         `json:"actor,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// AsyncPublisher is the subset of nats.JetStreamContext the publisher needs.
type AsyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// Publisher publishes events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js      AsyncPublisher
	log     *zap.Logger
	now     func() time.Time
	ackWait time.Duration
}

// DefaultAckWait bounds how long a publish is watched for its broker ack.
const DefaultAckWait = 30 * time.Second

// New creates a Publisher. Pass js=nil to get a no-op stub (useful in tests
// and when NATS is not configured).
func New(js AsyncPublisher, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now, ackWait: DefaultAckWait}
}

// Publish sends an event asynchronously. Failures, including a negative or
// missing broker ack, are logged as warnings and never surface to the caller.
// Safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName, actor string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		Actor:      actor,
		OccurredAt: p.now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	fut, err := p.js.PublishAsync(subject, data, nats.MsgId(ev.EventID))
	if err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if fut != nil {
		go p.watch(subject, ev.EventID, fut)
	}
}

func (p *Publisher) watch(subject, eventID string, fut nats.PubAckFuture) {
	timer := time.NewTimer(p.ackWait)
	defer timer.Stop()
	select {
	case <-fut.Ok():
	case err := <-fut.Err():
		p.log.Warn("events: publish rejected", zap.String("subject", subject),
			zap.String("event_id", eventID), zap.Error(err))
	case <-timer.C:
		p.log.Warn("events: no ack", zap.String("subject", subject),
			zap.String("event_id", eventID), zap.Duration("waited", p.ackWait))
	}
}

// EnsureStream creates StreamName covering "anime.>" or widens an existing
// stream's subjects to include it.
func EnsureStream(js nats.JetStreamManager) error {
	const subjects = "anime.>"
	info, err := js.StreamInfo(StreamName)
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == subjects {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, subjects)
		_, err := js.UpdateStream(&cfg)
		return err
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjects},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}
