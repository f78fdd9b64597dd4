package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/example/anime-crud/internal/platform/auth"
	"github.com/example/anime-crud/internal/platform/events"
	"github.com/example/anime-crud/services/anime/internal/domain"
	"github.com/example/anime-crud/services/anime/internal/store"
)

type publishedEvent struct {
	subject, name, actor string
	props                map[string]any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(subject, eventName, actor string, props map[string]any) {
	p.events = append(p.events, publishedEvent{subject, eventName, actor, props})
}

// failingRepo wraps a repository and fails chosen calls.
type failingRepo struct {
	store.AnimeRepository
	saveAllErr error
	saveAllHit int
}

func (f *failingRepo) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	f.saveAllHit++
	if f.saveAllErr != nil {
		return nil, f.saveAllErr
	}
	return f.AnimeRepository.SaveAll(ctx, list)
}

func all(t *testing.T, seq iter.Seq2[domain.Anime, error]) []domain.Anime {
	t.Helper()
	var out []domain.Anime
	for a, err := range seq {
		if err != nil {
			t.Fatalf("sequence error: %v", err)
		}
		out = append(out, a)
	}
	return out
}

func newService(seed ...domain.Anime) (*AnimeService, *store.InMemoryAnimeRepository, *recordingPublisher) {
	repo := store.NewInMemoryAnimeRepository(seed...)
	pub := &recordingPublisher{}
	return New(repo, pub), repo, pub
}

func TestFindAll_ReturnsRepositorySequence(t *testing.T) {
	svc, _, _ := newService(domain.Anime{Name: "Hellsing"}, domain.Anime{Name: "Berserk"})
	got := all(t, svc.FindAll(context.Background()))
	want := []domain.Anime{{ID: 1, Name: "Hellsing"}, {ID: 2, Name: "Berserk"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFindByID(t *testing.T) {
	svc, _, _ := newService(domain.Anime{Name: "Hellsing"})
	ctx := context.Background()

	got, err := svc.FindByID(ctx, 1)
	if err != nil || got != (domain.Anime{ID: 1, Name: "Hellsing"}) {
		t.Fatalf("FindByID(1) = %+v, %v", got, err)
	}

	_, err = svc.FindByID(ctx, 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "Anime 42 not found." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSave(t *testing.T) {
	svc, _, pub := newService()
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{Username: "admin"})

	saved, err := svc.Save(ctx, domain.Anime{ID: 99, Name: "Hellsing"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID != 1 {
		t.Fatalf("store must assign the id, got %d", saved.ID)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.subject != events.SubjectAnimeCreated || ev.actor != "admin" || ev.props["id"] != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestSave_InvalidName(t *testing.T) {
	svc, repo, pub := newService()
	for _, name := range []string{"", "   "} {
		_, err := svc.Save(context.Background(), domain.Anime{Name: name})
		if !errors.Is(err, ErrBadRequest) || err.Error() != MsgInvalidName {
			t.Fatalf("name %q: expected Invalid Name, got %v", name, err)
		}
	}
	if got := all(t, repo.FindAll(context.Background())); len(got) != 0 {
		t.Fatalf("nothing should be persisted, got %+v", got)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %d", len(pub.events))
	}
}

func TestSaveAll(t *testing.T) {
	svc, _, pub := newService()
	saved, err := svc.SaveAll(context.Background(), []domain.Anime{{Name: "a"}, {Name: "b"}})
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if len(saved) != 2 || saved[0].Name != "a" || saved[1].Name != "b" || saved[0].ID == saved[1].ID {
		t.Fatalf("unexpected result %+v", saved)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected one event per record, got %d", len(pub.events))
	}
}

func TestSaveAll_InvalidNamePersistsNothing(t *testing.T) {
	inner := store.NewInMemoryAnimeRepository()
	repo := &failingRepo{AnimeRepository: inner}
	svc := New(repo, nil)

	_, err := svc.SaveAll(context.Background(), []domain.Anime{{Name: "X"}, {Name: ""}})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if repo.saveAllHit != 0 {
		t.Fatal("store must not be called for an invalid batch")
	}
	if got := all(t, inner.FindAll(context.Background())); len(got) != 0 {
		t.Fatalf("nothing should be persisted, got %+v", got)
	}
}

func TestSaveAll_Empty(t *testing.T) {
	svc, _, _ := newService()
	saved, err := svc.SaveAll(context.Background(), nil)
	if err != nil || saved == nil || len(saved) != 0 {
		t.Fatalf("expected empty non-nil result, got %v, %v", saved, err)
	}
}

func TestSaveAll_StoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name    string
		err     error
		wantBad bool
	}{
		{"constraint", store.ErrConstraint, true},
		{"opaque", boom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&failingRepo{AnimeRepository: store.NewInMemoryAnimeRepository(), saveAllErr: tt.err}, nil)
			_, err := svc.SaveAll(context.Background(), []domain.Anime{{Name: "x"}})
			if got := errors.Is(err, ErrBadRequest); got != tt.wantBad {
				t.Fatalf("BadRequest = %v, want %v (err %v)", got, tt.wantBad, err)
			}
			if !tt.wantBad && !errors.Is(err, boom) {
				t.Fatalf("expected wrapped store error, got %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	svc, repo, pub := newService(domain.Anime{Name: "Old"})
	ctx := context.Background()

	if err := svc.Update(ctx, domain.Anime{ID: 1, Name: "New"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.FindByID(ctx, 1)
	if got.Name != "New" {
		t.Fatalf("expected replacement, got %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].subject != events.SubjectAnimeUpdated {
		t.Fatalf("unexpected events %+v", pub.events)
	}

	err := svc.Update(ctx, domain.Anime{ID: 7, Name: "x"})
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "7") {
		t.Fatalf("expected NotFound for 7, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo, pub := newService(domain.Anime{Name: "a"})
	ctx := context.Background()

	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected record removed, got %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].subject != events.SubjectAnimeDeleted {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if err := svc.Delete(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestEventsPublisherSatisfiesInterface(t *testing.T) {
	var _ EventPublisher = events.New(nil, nil)
}
