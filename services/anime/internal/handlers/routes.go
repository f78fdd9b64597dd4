package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/auth"
)

// Mount registers the anime and login routes on r. Access control is applied
// globally by auth.Gate, not per route.
func Mount(r chi.Router, svc AnimeService, users *auth.Directory, tokens *auth.TokenService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	r.Post("/login", Login(users, tokens, log))

	r.Route("/anime", func(r chi.Router) {
		r.Get("/", ListAnime(svc, log))
		r.Post("/", CreateAnime(svc, log))
		r.Post("/batch", CreateAnimeBatch(svc, log))
		r.Get("/{id}", GetAnime(svc, log))
		r.Put("/{id}", UpdateAnime(svc, log))
		r.Delete("/{id}", DeleteAnime(svc, log))
	})
}
