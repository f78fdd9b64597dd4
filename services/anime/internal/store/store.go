package store

import (
	"context"
	"errors"
	"iter"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

// Sentinel errors
var ErrNotFound = errors.New("anime not found")

// AnimeRepository defines the contract for anime persistence.
//
// Save inserts when a.ID is zero and the store assigns the id; otherwise it
// replaces the record with that id and fails with ErrNotFound if none exists.
// SaveAll applies Save to every record inside one transaction and returns
// the stored records in input order.
type AnimeRepository interface {
	FindAll(ctx context.Context) iter.Seq2[domain.Anime, error]
	FindByID(ctx context.Context, id int) (domain.Anime, error)
	Save(ctx context.Context, a domain.Anime) (domain.Anime, error)
	SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error)
	Delete(ctx context.Context, a domain.Anime) error
}

// Pinger is implemented by repositories that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks repo health when it supports it.
func Ping(ctx context.Context, repo AnimeRepository) error {
	if p, ok := repo.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
