package handlers

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/api"
	"github.com/example/anime-crud/internal/platform/auth"
	"github.com/example/anime-crud/internal/platform/httpserver"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login exchanges a username and password for a bearer token. Credentials
// are read from a JSON body or from form fields.
func Login(users *auth.Directory, tokens *auth.TokenService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req loginRequest
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/json" {
			if err := decodeJSON(w, r, &req); err != nil {
				badRequest(w, r, "Invalid JSON")
				return
			}
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				badRequest(w, r, "Invalid form")
				return
			}
			req.Username = r.PostFormValue("username")
			req.Password = r.PostFormValue("password")
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			badRequest(w, r, "username and password are required")
			return
		}

		p, ok := users.Authenticate(req.Username, req.Password)
		if !ok {
			log.Info("login rejected", zap.String("user", req.Username), zap.String("request_id", rid))
			api.WriteError(w, http.StatusUnauthorized, "Invalid credentials", r.URL.Path, rid, "")
			return
		}
		token, exp, err := tokens.Issue(p, time.Time{})
		if err != nil {
			log.Error("issue token", zap.String("request_id", rid), zap.Error(err))
			api.Internal(w, r.URL.Path, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp})
	}
}
