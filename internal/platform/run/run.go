package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

type Runner struct {
	Logger *zap.Logger
	// Timeout overrides ShutdownTimeout when positive.
	Timeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log}
}

// WithSignals runs start with a context cancelled on SIGINT/SIGTERM and
// returns the process exit code. start is expected to return once ctx is
// done; after a signal the runner waits up to the shutdown timeout for it.
func (r *Runner) WithSignals(start func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, start)
}

func (r *Runner) run(ctx context.Context, start func(ctx context.Context) error) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	select {
	case err := <-errCh:
		return r.exitCode(err)
	case <-ctx.Done():
	}

	r.Logger.Info("shutdown signal received", zap.Duration("timeout", r.timeout()))
	select {
	case err := <-errCh:
		return r.exitCode(err)
	case <-time.After(r.timeout()):
		r.Logger.Warn("shutdown timed out")
		return 1
	}
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return ShutdownTimeout
}

func (r *Runner) exitCode(err error) int {
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return 0
	}
	r.Logger.Error("service exited with error", zap.Error(err))
	return 1
}

// Shutdown calls every fn with a shared deadline of timeout and joins
// their errors. All fns run even when an earlier one fails.
func Shutdown(timeout time.Duration, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var errs []error
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Graceful adapts a blocking stop with a forced fallback (grpc.Server's
// GracefulStop/Stop) to the Shutdown signature.
func Graceful(stop, force func()) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			stop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			force()
			<-done
			return ctx.Err()
		}
	}
}

func Exit(code int) {
	os.Exit(code)
}
