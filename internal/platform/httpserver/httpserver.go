package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps net/http with the service's timeouts and logger. Serve and
// Start return nil after a graceful Shutdown.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

type Options struct {
	Addr        string
	ServiceName string
	Logger      *zap.Logger
	Handler     http.Handler
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ServiceName != "" {
		log = log.Named(opts.ServiceName)
	}
	h := opts.Handler
	if h == nil {
		h = http.NotFoundHandler()
	}
	// No WriteTimeout: GET /anime streams for as long as the store yields.
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          zap.NewStdLog(log.Named("http")),
		},
		log: log,
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("http server starting", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
