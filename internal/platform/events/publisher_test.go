package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	subject string
	data    []byte
}

type fakeJS struct {
	msgs   []published
	err    error
	future nats.PubAckFuture
}

func (f *fakeJS) PublishAsync(subj string, data []byte, _ ...nats.PubOpt) (nats.PubAckFuture, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subj, data: data})
	return f.future, nil
}

type fakeFuture struct {
	ok  chan *nats.PubAck
	err chan error
}

func newFakeFuture() *fakeFuture {
	return &fakeFuture{ok: make(chan *nats.PubAck, 1), err: make(chan error, 1)}
}

func (f *fakeFuture) Ok() <-chan *nats.PubAck { return f.ok }
func (f *fakeFuture) Err() <-chan error       { return f.err }
func (f *fakeFuture) Msg() *nats.Msg          { return nil }

func waitForLog(t *testing.T, logs *observer.ObservedLogs, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if logs.FilterMessage(msg).Len() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected log %q, got %v", msg, logs.All())
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish(SubjectAnimeCreated, "anime_created", "admin", nil)

	New(nil, nil).Publish(SubjectAnimeCreated, "anime_created", "admin", nil)
}

func TestPublisher_Envelope(t *testing.T) {
	js := &fakeJS{}
	p := New(js, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.Publish(SubjectAnimeUpdated, "anime_updated", "admin", map[string]any{"id": 1, "name": "Hellsing"})

	if len(js.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(js.msgs))
	}
	if js.msgs[0].subject != SubjectAnimeUpdated {
		t.Fatalf("unexpected subject %q", js.msgs[0].subject)
	}
	var ev Event
	if err := json.Unmarshal(js.msgs[0].data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.EventID == "" || ev.EventName != "anime_updated" || ev.Actor != "admin" {
		t.Fatalf("unexpected envelope: %+v", ev)
	}
	if !ev.OccurredAt.Equal(fixed) {
		t.Fatalf("expected occurred_at %s, got %s", fixed, ev.OccurredAt)
	}
	if ev.Properties["name"] != "Hellsing" {
		t.Fatalf("unexpected properties: %v", ev.Properties)
	}
}

func TestPublisher_ErrorIsSwallowed(t *testing.T) {
	p := New(&fakeJS{err: errors.New("nats down")}, nil)
	p.Publish(SubjectAnimeDeleted, "anime_deleted", "", nil)
}

func TestPublisher_LogsRejectedAck(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fut := newFakeFuture()
	fut.err <- errors.New("stream full")
	p := New(&fakeJS{future: fut}, zap.New(core))

	p.Publish(SubjectAnimeCreated, "anime_created", "admin", nil)
	waitForLog(t, logs, "events: publish rejected")
}

func TestPublisher_LogsMissingAck(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(&fakeJS{future: newFakeFuture()}, zap.New(core))
	p.ackWait = 10 * time.Millisecond

	p.Publish(SubjectAnimeCreated, "anime_created", "admin", nil)
	waitForLog(t, logs, "events: no ack")
}

func TestPublisher_AckedIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fut := newFakeFuture()
	fut.ok <- &nats.PubAck{Stream: StreamName, Sequence: 1}
	p := New(&fakeJS{future: fut}, zap.New(core))

	p.Publish(SubjectAnimeCreated, "anime_created", "admin", nil)
	time.Sleep(20 * time.Millisecond)
	if logs.Len() != 0 {
		t.Fatalf("expected no warnings, got %v", logs.All())
	}
}
