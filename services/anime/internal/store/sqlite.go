package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

const sqliteSchema = `
CREATE TABLE anime (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK (trim(name) <> '')
);`

// sqliteMigrations holds one statement per schema version after the initial
// schema. Index 0 is the initial version and stays empty.
var sqliteMigrations = []string{
	"",
}

// SQLiteAnimeRepository persists anime in a local SQLite file.
type SQLiteAnimeRepository struct {
	db       *sql.DB
	log      *zap.Logger
	squirrel sq.StatementBuilderType
}

// OpenSQLite opens (creating if needed) the database at path and brings the
// schema up to date.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteAnimeRepository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := path + "?_pragma=busy_timeout%3d1000&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &SQLiteAnimeRepository{
		db:       db,
		log:      log.With(zap.String("module", "sqlite")),
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending migrations tracked by PRAGMA user_version.
func (s *SQLiteAnimeRepository) Migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}
	target := len(sqliteMigrations)
	if version == target {
		return nil
	}
	if version > target {
		return fmt.Errorf("sqlite schema version (%d) is newer than supported (%d)", version, target)
	}

	s.log.Info("upgrading schema", zap.Int("from", version), zap.Int("to", target))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if version == 0 {
		if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
	} else {
		for i := version; i < target; i++ {
			if sqliteMigrations[i] == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, sqliteMigrations[i]); err != nil {
				return fmt.Errorf("migration #%d: %w", i, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("bump schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteAnimeRepository) FindAll(ctx context.Context) iter.Seq2[domain.Anime, error] {
	return func(yield func(domain.Anime, error) bool) {
		query, args, err := s.squirrel.Select("id", "name").From("anime").OrderBy("id").ToSql()
		if err != nil {
			yield(domain.Anime{}, fmt.Errorf("build query: %w", err))
			return
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteAnimeRepository) FindByID(ctx context.Context, id int) (domain.Anime, error) {
	query, args, err := s.squirrel.Select("id", "name").From("anime").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Anime{}, fmt.Errorf("build query: %w", err)
	}
	var a domain.Anime
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Anime{}, ErrNotFound
		}
		return domain.Anime{}, fmt.Errorf("find anime %d: %w", id, err)
	}
	return a, nil
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteAnimeRepository) Save(ctx context.Context, a domain.Anime) (domain.Anime, error) {
	return s.save(ctx, s.db, a)
}

func (s *SQLiteAnimeRepository) SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]domain.Anime, 0, len(list))
	for _, a := range list {
		saved, err := s.save(ctx, tx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *SQLiteAnimeRepository) save(ctx context.Context, q rowQuerier, a domain.Anime) (domain.Anime, error) {
	var (
		query string
		args  []any
		err   error
	)
	if a.ID == 0 {
		query, args, err = s.squirrel.Insert("anime").Columns("name").Values(a.Name).
			Suffix("RETURNING id, name").ToSql()
	} else {
		query, args, err = s.squirrel.Update("anime").Set("name", a.Name).Where(sq.Eq{"id": a.ID}).
			Suffix("RETURNING id, name").ToSql()
	}
	if err != nil {
		return domain.Anime{}, fmt.Errorf("build query: %w", err)
	}

	var out domain.Anime
	if err := q.QueryRowContext(ctx, query, args...).Scan(&out.ID, &out.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Anime{}, ErrNotFound
		}
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return domain.Anime{}, fmt.Errorf("%w: %s", ErrConstraint, liteErr.Error())
		}
		return domain.Anime{}, fmt.Errorf("save anime: %w", err)
	}
	return out, nil
}

func (s *SQLiteAnimeRepository) Delete(ctx context.Context, a domain.Anime) error {
	query, args, err := s.squirrel.Delete("anime").Where(sq.Eq{"id": a.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete anime %d: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteAnimeRepository) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close runs the query planner optimizer and closes the database.
func (s *SQLiteAnimeRepository) Close() error {
	if _, err := s.db.Exec(`PRAGMA optimize;`); err != nil {
		s.log.Warn("query planner optimization failed", zap.Error(err))
	}
	return s.db.Close()
}
