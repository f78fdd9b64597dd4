package store

import (
	"context"
	"errors"
	"testing"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

func collect(t *testing.T, repo AnimeRepository) []domain.Anime {
	t.Helper()
	var out []domain.Anime
	for a, err := range repo.FindAll(context.Background()) {
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		out = append(out, a)
	}
	return out
}

func TestInMemory_SaveAssignsIDs(t *testing.T) {
	repo := NewInMemoryAnimeRepository()
	ctx := context.Background()

	a, err := repo.Save(ctx, domain.Anime{Name: "Hellsing"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := repo.Save(ctx, domain.Anime{Name: "Berserk"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", a.ID, b.ID)
	}

	got, err := repo.FindByID(ctx, 2)
	if err != nil || got.Name != "Berserk" {
		t.Fatalf("FindByID(2) = %+v, %v", got, err)
	}
}

func TestInMemory_SaveUnknownIDIsNotFound(t *testing.T) {
	repo := NewInMemoryAnimeRepository()
	if _, err := repo.Save(context.Background(), domain.Anime{ID: 7, Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemory_ReplaceKeepsID(t *testing.T) {
	repo := NewInMemoryAnimeRepository(domain.Anime{ID: 1, Name: "Old"})
	ctx := context.Background()

	if _, err := repo.Save(ctx, domain.Anime{ID: 1, Name: "New"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := collect(t, repo)
	if len(got) != 1 || got[0] != (domain.Anime{ID: 1, Name: "New"}) {
		t.Fatalf("unexpected contents: %+v", got)
	}
}

func TestInMemory_FindAllOrderedByID(t *testing.T) {
	repo := NewInMemoryAnimeRepository(
		domain.Anime{ID: 3, Name: "c"},
		domain.Anime{ID: 1, Name: "a"},
		domain.Anime{ID: 2, Name: "b"},
	)
	got := collect(t, repo)
	for i, a := range got {
		if a.ID != i+1 {
			t.Fatalf("position %d has id %d", i, a.ID)
		}
	}

	// Seeded ids advance the sequence.
	next, err := repo.Save(context.Background(), domain.Anime{Name: "d"})
	if err != nil || next.ID != 4 {
		t.Fatalf("expected id 4, got %+v, %v", next, err)
	}
}

func TestInMemory_FindAllStopsEarly(t *testing.T) {
	repo := NewInMemoryAnimeRepository(domain.Anime{Name: "a"}, domain.Anime{Name: "b"})
	n := 0
	for range repo.FindAll(context.Background()) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected one element, got %d", n)
	}
}

func TestInMemory_SaveAllIsAtomic(t *testing.T) {
	repo := NewInMemoryAnimeRepository(domain.Anime{Name: "keep"})
	ctx := context.Background()

	_, err := repo.SaveAll(ctx, []domain.Anime{{Name: "first"}, {ID: 99, Name: "missing"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got := collect(t, repo)
	if len(got) != 1 || got[0].Name != "keep" {
		t.Fatalf("failed batch must not persist anything: %+v", got)
	}

	saved, err := repo.SaveAll(ctx, []domain.Anime{{Name: "x"}, {Name: "y"}})
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	// The aborted batch must not have consumed ids.
	if saved[0].ID != 2 || saved[1].ID != 3 {
		t.Fatalf("unexpected ids: %+v", saved)
	}
}

func TestInMemory_Delete(t *testing.T) {
	repo := NewInMemoryAnimeRepository(domain.Anime{Name: "a"})
	ctx := context.Background()

	if err := repo.Delete(ctx, domain.Anime{ID: 1}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, domain.Anime{ID: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInMemory_CanceledContext(t *testing.T) {
	repo := NewInMemoryAnimeRepository(domain.Anime{Name: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.FindByID(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, err := range repo.FindAll(ctx) {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
}

func TestPing_NonPingerIsHealthy(t *testing.T) {
	var repo AnimeRepository = struct{ AnimeRepository }{}
	if err := Ping(context.Background(), repo); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
