package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/anime-crud/internal/platform/auth"
	"github.com/example/anime-crud/internal/platform/config"
	"github.com/example/anime-crud/internal/platform/events"
	"github.com/example/anime-crud/internal/platform/httpserver"
	"github.com/example/anime-crud/internal/platform/logging"
	"github.com/example/anime-crud/internal/platform/natsconn"
	"github.com/example/anime-crud/internal/platform/run"
	animeconfig "github.com/example/anime-crud/services/anime/internal/config"
	"github.com/example/anime-crud/services/anime/internal/grpcapi"
	"github.com/example/anime-crud/services/anime/internal/handlers"
	"github.com/example/anime-crud/services/anime/internal/service"
	"github.com/example/anime-crud/services/anime/internal/store"
)

func main() {
	run.Exit(serve())
}

// serve runs the service and returns its exit code once every deferred
// close has run.
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Service: cfg.ServiceName,
		Console: cfg.LogFormat == "console",
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	acfg, err := animeconfig.LoadAnime(cfg.IsProduction())
	if err != nil {
		log.Error("load anime config", zap.Error(err))
		return 1
	}
	if acfg.GeneratedSecret {
		log.Warn("JWT_SECRET not set, using a random per-process secret (development only)")
	}

	repo, closeRepo, err := store.Open(context.Background(), store.Options{
		DatabaseURL: acfg.DatabaseURL,
		SQLitePath:  acfg.SQLitePath,
		RedisURL:    acfg.RedisURL,
		CacheTTL:    acfg.CacheTTL,
		AppName:     cfg.ServiceName,
		Production:  cfg.IsProduction(),
		Logger:      log,
	})
	if err != nil {
		log.Error("open anime store", zap.Error(err))
		return 1
	}
	defer closeRepo()

	users, err := loadUsers(acfg.UsersFile, cfg.IsProduction(), log)
	if err != nil {
		log.Error("load users", zap.Error(err))
		return 1
	}
	tokens := &auth.TokenService{Secret: acfg.JWTSecret, TTL: acfg.TokenTTL, Issuer: cfg.ServiceName}

	// Events are optional: without NATS the publisher is a no-op.
	var publisher *events.Publisher
	nc, js, err := natsconn.ConnectJetStream(natsconn.Options{URL: acfg.NATSURL, Name: cfg.ServiceName, Logger: log})
	if err != nil {
		log.Warn("nats unavailable, anime events disabled", zap.Error(err))
	} else {
		defer closeNATS(nc, js, log)
		if err := events.EnsureStream(js); err != nil {
			log.Warn("ensure anime events stream", zap.Error(err))
		}
		publisher = events.New(js, log)
	}

	svc := service.New(repo, publisher)

	var limiter *httpserver.RateLimiter
	if acfg.RateLimitRPS > 0 {
		limiter = httpserver.NewRateLimiter(acfg.RateLimitRPS, acfg.RateLimitBurst)
		if err := limiter.TrustProxies(acfg.TrustedProxies); err != nil {
			log.Error("parse TRUSTED_PROXIES", zap.Error(err))
			return 1
		}
	}
	authn := auth.Authenticator{Users: users, Tokens: tokens}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger:      log,
		ReadyFunc:   func(ctx context.Context) error { return store.Ping(ctx, repo) },
		Metrics:     true,
		RateLimiter: limiter,
		Middlewares: []func(http.Handler) http.Handler{
			auth.Gate(auth.DefaultPolicy(), authn, "anime", log),
		},
	})
	handlers.Mount(r, svc, users, tokens, log)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Handler: r})
	grpcSrv, health := grpcapi.NewServer()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		lis, err := net.Listen("tcp", acfg.GRPCAddr)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			log.Info("grpc server starting", zap.String("addr", acfg.GRPCAddr))
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			grpcapi.TrackHealth(gctx, health, 5*time.Second, func(ctx context.Context) error {
				return store.Ping(ctx, repo)
			}, log)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return run.Shutdown(run.ShutdownTimeout,
				run.Graceful(grpcSrv.GracefulStop, grpcSrv.Stop),
				srv.Shutdown,
			)
		})
		return g.Wait()
	})

	log.Info("exit", zap.Int("code", code))
	return code
}

// closeNATS waits briefly for outstanding event acks, then closes nc.
func closeNATS(nc *nats.Conn, js nats.JetStreamContext, log *zap.Logger) {
	select {
	case <-js.PublishAsyncComplete():
	case <-time.After(2 * time.Second):
		log.Warn("nats: closing with unacknowledged events", zap.Int("pending", js.PublishAsyncPending()))
	}
	nc.Close()
}

// loadUsers reads USERS_FILE when set and falls back to the built-in
// accounts otherwise.
func loadUsers(path string, isProd bool, log *zap.Logger) (*auth.Directory, error) {
	if path != "" {
		users, err := auth.LoadDirectory(path)
		if err != nil {
			return nil, err
		}
		log.Info("loaded users", zap.String("file", path), zap.Int("count", users.Len()))
		return users, nil
	}
	if isProd {
		log.Warn("USERS_FILE not set in production, using built-in accounts")
	} else {
		log.Warn("USERS_FILE not set, using built-in accounts user/admin (development only)")
	}
	return auth.DefaultDirectory(0)
}
