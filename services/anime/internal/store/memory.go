package store

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

// InMemoryAnimeRepository is a development-only in-memory implementation.
type InMemoryAnimeRepository struct {
	mu     sync.RWMutex
	anime  map[int]domain.Anime
	nextID int
}

func NewInMemoryAnimeRepository(seed ...domain.Anime) *InMemoryAnimeRepository {
	s := &InMemoryAnimeRepository{anime: make(map[int]domain.Anime), nextID: 1}
	for _, a := range seed {
		if a.ID == 0 {
			a.ID = s.nextID
		}
		s.anime[a.ID] = a
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return s
}

// FindAll yields a snapshot taken when iteration starts, ordered by id.
func (s *InMemoryAnimeRepository) FindAll(ctx context.Context) iter.Seq2[domain.Anime, error] {
	return func(yield func(domain.Anime, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Anime{}, err)
			return
		}
		s.mu.RLock()
		snapshot := make([]domain.Anime, 0, len(s.anime))
		for _, a := range s.anime {
			snapshot = append(snapshot, a)
		}
		s.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
		for _, a := range snapshot {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (s *InMemoryAnimeRepository) FindByID(ctx context.Context, id int) (domain.Anime, error) {
	if err := ctx.Err(); err != nil {
		return domain.Anime{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.anime[id]
	if !ok {
		return domain.Anime{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryAnimeRepository) Save(ctx context.Context, a domain.Anime) (domain.Anime, error) {
	if err := ctx.Err(); err != nil {
		return domain.Anime{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(a)
}

func (s *InMemoryAnimeRepository) saveLocked(a domain.Anime) (domain.Anime, error) {
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	} else if _, ok := s.anime[a.ID]; !ok {
		return domain.Anime{}, ErrNotFound
	}
	s.anime[a.ID] = a
	return a, nil
}

// SaveAll is all-or-nothing: on failure the map is restored.
func (s *InMemoryAnimeRepository) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := make(map[int]domain.Anime, len(s.anime))
	for k, v := range s.anime {
		backup[k] = v
	}
	nextID := s.nextID

	out := make([]domain.Anime, 0, len(list))
	for _, a := range list {
		saved, err := s.saveLocked(a)
		if err != nil {
			s.anime, s.nextID = backup, nextID
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (s *InMemoryAnimeRepository) Delete(ctx context.Context, a domain.Anime) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.anime[a.ID]; !ok {
		return ErrNotFound
	}
	delete(s.anime, a.ID)
	return nil
}

func (s *InMemoryAnimeRepository) Ping(context.Context) error { return nil }
