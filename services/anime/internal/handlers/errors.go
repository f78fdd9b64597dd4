package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/api"
	"github.com/example/anime-crud/internal/platform/httpserver"
	"github.com/example/anime-crud/services/anime/internal/service"
)

// writeServiceError maps service failures to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, service.ErrNotFound):
		api.NotFound(w, message(err), r.URL.Path, rid)
	case errors.Is(err, service.ErrBadRequest):
		api.BadRequest(w, message(err), r.URL.Path, rid)
	default:
		log.Error("anime request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", rid),
			zap.Error(err))
		api.Internal(w, r.URL.Path, rid)
	}
}

func message(err error) string {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
