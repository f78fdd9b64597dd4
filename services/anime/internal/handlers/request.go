package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/anime-crud/services/anime/internal/domain"
)

const maxBodyBytes = 1 << 20

// MsgNameRequired is returned when a body lacks a usable name.
const MsgNameRequired = "The anime name cannot be empty"

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSON reads exactly one JSON value from the capped request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// decodeAnime decodes and structurally validates a single anime body.
func decodeAnime(w http.ResponseWriter, r *http.Request) (domain.Anime, string, bool) {
	var a domain.Anime
	if err := decodeJSON(w, r, &a); err != nil {
		return domain.Anime{}, "Invalid JSON", false
	}
	if !a.HasName() {
		return domain.Anime{}, MsgNameRequired, false
	}
	return a, "", true
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		return 0, false
	}
	return id, true
}
