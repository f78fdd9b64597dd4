package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in both directions and is echoed
// into every error body as "requestId".
const RequestIDHeader = "X-Request-Id"

type ctxKeyRequestID struct{}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return v
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, rid)
}

// acceptRequestID reports whether a client-supplied id may be reused: at most
// 128 bytes of letters, digits and "-_.:".
func acceptRequestID(rid string) bool {
	if rid == "" || len(rid) > 128 {
		return false
	}
	for i := 0; i < len(rid); i++ {
		c := rid[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// RequestIDMiddleware reuses the caller's id from header when acceptable and
// otherwise assigns a random UUID.
func RequestIDMiddleware(header string) func(next http.Handler) http.Handler {
	if header = strings.TrimSpace(header); header == "" {
		header = RequestIDHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(header))
			if !acceptRequestID(rid) {
				rid = uuid.NewString()
			}
			w.Header().Set(header, rid)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), rid)))
		})
	}
}
