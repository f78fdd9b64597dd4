package handlers

import (
	"context"
	"iter"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/api"
	"github.com/example/anime-crud/internal/platform/httpserver"
	"github.com/example/anime-crud/services/anime/internal/domain"
)

// AnimeService is the set of use cases the HTTP layer depends on.
type AnimeService interface {
	FindAll(ctx context.Context) iter.Seq2[domain.Anime, error]
	FindByID(ctx context.Context, id int) (domain.Anime, error)
	Save(ctx context.Context, a domain.Anime) (domain.Anime, error)
	SaveAll(ctx context.Context, list []domain.Anime) ([]domain.Anime, error)
	Update(ctx context.Context, a domain.Anime) error
	Delete(ctx context.Context, id int) error
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	api.BadRequest(w, msg, r.URL.Path, httpserver.RequestIDFromContext(r.Context()))
}

// ListAnime streams every anime as a JSON array.
func ListAnime(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := api.WriteJSONSeq(w, http.StatusOK, svc.FindAll(r.Context()))
		if err == nil {
			return
		}
		if !started {
			writeServiceError(w, r, log, err)
			return
		}
		log.Error("list anime aborted mid-stream",
			zap.String("request_id", httpserver.RequestIDFromContext(r.Context())),
			zap.Error(err))
		panic(http.ErrAbortHandler)
	}
}

// GetAnime returns one anime by id.
func GetAnime(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			badRequest(w, r, "id must be an integer")
			return
		}
		a, err := svc.FindByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, a)
	}
}

// CreateAnime stores a new anime and returns it with its id.
func CreateAnime(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, msg, ok := decodeAnime(w, r)
		if !ok {
			badRequest(w, r, msg)
			return
		}
		saved, err := svc.Save(r.Context(), a)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, saved)
	}
}

// CreateAnimeBatch stores a list of anime atomically.
func CreateAnimeBatch(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var list []domain.Anime
		if err := decodeJSON(w, r, &list); err != nil {
			badRequest(w, r, "Invalid JSON")
			return
		}
		saved, err := svc.SaveAll(r.Context(), list)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, saved)
	}
}

// UpdateAnime replaces the anime at {id}; the body id is ignored.
func UpdateAnime(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			badRequest(w, r, "id must be an integer")
			return
		}
		a, msg, ok := decodeAnime(w, r)
		if !ok {
			badRequest(w, r, msg)
			return
		}
		a.ID = id
		if err := svc.Update(r.Context(), a); err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteAnime removes the anime at {id}.
func DeleteAnime(svc AnimeService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			badRequest(w, r, "id must be an integer")
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
