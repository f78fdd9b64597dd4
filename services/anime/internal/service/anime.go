// Package service holds the anime use cases: existence checks, name
// validation and lifecycle events around the repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/example/anime-crud/internal/platform/auth"
	"github.com/example/anime-crud/internal/platform/events"
	"github.com/example/anime-crud/services/anime/internal/domain"
	"github.com/example/anime-crud/services/anime/internal/store"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(subject, eventName, actor string, props map[string]any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, string, map[string]any) {}

// AnimeService implements the anime operations on top of a repository.
type AnimeService struct {
	repo   store.AnimeRepository
	events EventPublisher
}

// New creates the service. A nil publisher disables events.
func New(repo store.AnimeRepository, pub EventPublisher) *AnimeService {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &AnimeService{repo: repo, events: pub}
}

// FindAll returns the repository sequence unchanged.
func (s *AnimeService) FindAll(ctx context.Context) iter.Seq2[domain.Anime, error] {
	return s.repo.FindAll(ctx)
}

func (s *AnimeService) FindByID(ctx context.Context, id int) (domain.Anime, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Anime{}, NotFound(id)
		}
		return domain.Anime{}, fmt.Errorf("find anime %d: %w", id, err)
	}
	return a, nil
}

// Save creates a. Any id set by the caller is ignored.
func (s *AnimeService) Save(ctx context.Context, a domain.Anime) (domain.Anime, error) {
	if !a.HasName() {
		return domain.Anime{}, BadRequest(MsgInvalidName)
	}
	a.ID = 0
	saved, err := s.repo.Save(ctx, a)
	if err != nil {
		return domain.Anime{}, translate(err, "save anime")
	}
	s.publish(ctx, events.SubjectAnimeCreated, "anime_created", saved)
	return saved, nil
}

// SaveAll creates every record in one transaction. Names are checked up
// front so an invalid batch never reaches the store.
func (s *AnimeService) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	batch := make([]domain.Anime, len(list))
	for i, a := range list {
		if !a.HasName() {
			return nil, BadRequest(MsgInvalidName)
		}
		a.ID = 0
		batch[i] = a
	}
	if len(batch) == 0 {
		return []domain.Anime{}, nil
	}
	saved, err := s.repo.SaveAll(ctx, batch)
	if err != nil {
		return nil, translate(err, "save anime batch")
	}
	for _, a := range saved {
		s.publish(ctx, events.SubjectAnimeCreated, "anime_created", a)
	}
	return saved, nil
}

// Update replaces the record with a.ID.
func (s *AnimeService) Update(ctx context.Context, a domain.Anime) error {
	if _, err := s.FindByID(ctx, a.ID); err != nil {
		return err
	}
	if !a.HasName() {
		return BadRequest(MsgInvalidName)
	}
	saved, err := s.repo.Save(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound(a.ID)
		}
		return translate(err, "update anime")
	}
	s.publish(ctx, events.SubjectAnimeUpdated, "anime_updated", saved)
	return nil
}

func (s *AnimeService) Delete(ctx context.Context, id int) error {
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound(id)
		}
		return fmt.Errorf("delete anime %d: %w", id, err)
	}
	s.publish(ctx, events.SubjectAnimeDeleted, "anime_deleted", a)
	return nil
}

func (s *AnimeService) publish(ctx context.Context, subject, name string, a domain.Anime) {
	s.events.Publish(subject, name, auth.UsernameFromContext(ctx), map[string]any{
		"id":   a.ID,
		"name": a.Name,
	})
}

// translate maps store constraint violations to BadRequest and wraps the rest.
func translate(err error, op string) error {
	if errors.Is(err, store.ErrConstraint) {
		return BadRequest(MsgInvalidName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
