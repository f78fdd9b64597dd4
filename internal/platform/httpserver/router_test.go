package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/anime-crud/internal/platform/api"
)

func newTestRouter(cfg ...RouterConfig) chi.Router {
	r := chi.NewRouter()
	SetupRouter(r, cfg...)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(newTestRouter(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		ready    func(context.Context) error
		wantCode int
		wantBody string
	}{
		{"no ready func", nil, http.StatusOK, "ready"},
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ready"},
		{"store down", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, "db down"},
		{"deadline is set", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}, http.StatusOK, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newTestRouter(RouterConfig{ReadyFunc: tt.ready}), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("expected %q in body, got %q", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestPanicRecovery_WritesJSONError(t *testing.T) {
	r := newTestRouter()
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("test panic") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	rr := serve(r, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on panic, got %d", rr.Code)
	}
	var body api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusInternalServerError || body.Path != "/boom" || body.RequestID != "rid-1" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPanicRecovery_AbortHandlerPropagates(t *testing.T) {
	r := newTestRouter()
	r.Get("/abort", func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) })

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	serve(r, httptest.NewRequest(http.MethodGet, "/abort", nil))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    string
	}{
		{"wildcard by default", "", "https://example.com", "*"},
		{"listed origin", "https://anime.example", "https://anime.example", "https://anime.example"},
		{"unlisted origin", "https://anime.example", "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOWED_ORIGINS", tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			rr := serve(newTestRouter(), req)
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("expected allow-origin %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseCORSOrigins(t *testing.T) {
	if got := parseCORSOrigins(" , "); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected ['*'], got %v", got)
	}
	got := parseCORSOrigins("https://anime.example , https://www.anime.example")
	if len(got) != 2 || got[0] != "https://anime.example" || got[1] != "https://www.anime.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		client string
		keep   bool
	}{
		{"absent", "", false},
		{"kept", "abc-123", true},
		{"too long", strings.Repeat("a", 129), false},
		{"unsafe characters", "abc\nforged=1", false},
		{"spaces", "a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter()
			var seen string
			r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/id", nil)
			if tt.client != "" {
				req.Header.Set(RequestIDHeader, tt.client)
			}
			rr := serve(r, req)

			if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
				t.Fatalf("context id %q does not match header %q", seen, rr.Header().Get(RequestIDHeader))
			}
			if kept := seen == tt.client; kept != tt.keep {
				t.Fatalf("client id kept = %v, want %v (got %q)", kept, tt.keep, seen)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(RouterConfig{Metrics: true})
	serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `anime_http_requests_total{method="GET",route="/ping",status="200"}`) {
		t.Fatal("expected labelled request counter in metrics output")
	}
}

func TestMetricsDisabled(t *testing.T) {
	rr := serve(newTestRouter(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", rr.Code)
	}
}

func TestExtraMiddlewaresRunBeforeRoutes(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}
	r := newTestRouter(RouterConfig{Middlewares: []func(http.Handler) http.Handler{deny}})
	if rr := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusTeapot {
		t.Fatalf("expected middleware to run before routes, got %d", rr.Code)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	if got := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Fatalf("expected unmatched, got %q", got)
	}
}
