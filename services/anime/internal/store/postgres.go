package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

// ErrConstraint is returned when the backend rejects a record, e.g. an
// empty name hitting the table's CHECK constraint.
var ErrConstraint = errors.New("anime violates a store constraint")

// id is BIGINT so every Go int a path can carry is a valid parameter.
// Tables created with SERIAL are widened in place.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS anime (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL CHECK (btrim(name) <> '')
);
DO $$
BEGIN
    IF (SELECT data_type FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = 'anime' AND column_name = 'id') = 'integer' THEN
        ALTER TABLE anime ALTER COLUMN id TYPE BIGINT;
        ALTER SEQUENCE IF EXISTS anime_id_seq AS BIGINT;
    END IF;
END $$;`

// pgCheckViolation is SQLSTATE check_violation.
const pgCheckViolation = "23514"

// PostgresAnimeRepository persists anime in Postgres.
type PostgresAnimeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAnimeRepository creates a repository backed by Postgres.
func NewPostgresAnimeRepository(pool *pgxpool.Pool) *PostgresAnimeRepository {
	return &PostgresAnimeRepository{pool: pool}
}

// Migrate creates the anime table if it does not exist.
func (s *PostgresAnimeRepository) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate anime table: %w", err)
	}
	return nil
}

// FindAll streams rows as they arrive; the pooled connection is held until
// iteration ends.
func (s *PostgresAnimeRepository) FindAll(ctx context.Context) iter.Seq2[domain.Anime, error] {
	return func(yield func(domain.Anime, error) bool) {
		rows, err := s.pool.Query(ctx, `SELECT id, name FROM anime ORDER BY id`)
		if err != nil {
			yield(domain.Anime{}, fmt.Errorf("query anime: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var a domain.Anime
			if err := rows.Scan(&a.ID, &a.Name); err != nil {
				yield(domain.Anime{}, fmt.Errorf("scan anime: %w", err))
				return
			}
			if !yield(a, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Anime{}, fmt.Errorf("iterate anime: %w", err))
		}
	}
}

func (s *PostgresAnimeRepository) FindByID(ctx context.Context, id int) (domain.Anime, error) {
	var a domain.Anime
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM anime WHERE id = $1`, id).Scan(&a.ID, &a.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Anime{}, ErrNotFound
		}
		return domain.Anime{}, fmt.Errorf("find anime %d: %w", id, err)
	}
	return a, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresAnimeRepository) Save(ctx context.Context, a domain.Anime) (domain.Anime, error) {
	return savePostgres(ctx, s.pool, a)
}

func (s *PostgresAnimeRepository) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	out := make([]domain.Anime, 0, len(list))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, a := range list {
			saved, err := savePostgres(ctx, tx, a)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func savePostgres(ctx context.Context, q querier, a domain.Anime) (domain.Anime, error) {
	var (
		row pgx.Row
		out domain.Anime
	)
	if a.ID == 0 {
		row = q.QueryRow(ctx, `INSERT INTO anime (name) VALUES ($1) RETURNING id, name`, a.Name)
	} else {
		row = q.QueryRow(ctx, `UPDATE anime SET name = $2 WHERE id = $1 RETURNING id, name`, a.ID, a.Name)
	}
	if err := row.Scan(&out.ID, &out.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Anime{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return domain.Anime{}, fmt.Errorf("%w: %s", ErrConstraint, pgErr.ConstraintName)
		}
		return domain.Anime{}, fmt.Errorf("save anime: %w", err)
	}
	return out, nil
}

func (s *PostgresAnimeRepository) Delete(ctx context.Context, a domain.Anime) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM anime WHERE id = $1`, a.ID)
	if err != nil {
		return fmt.Errorf("delete anime %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresAnimeRepository) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresAnimeRepository) Close() {
	s.pool.Close()
}
