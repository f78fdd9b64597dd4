package run

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRun_CleanExit(t *testing.T) {
	r := New(zap.NewNop())
	code := r.run(context.Background(), func(context.Context) error { return http.ErrServerClosed })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRun_Failure(t *testing.T) {
	r := New(zap.NewNop())
	code := r.run(context.Background(), func(context.Context) error { return errors.New("listen failed") })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRun_CancelWaitsForStart(t *testing.T) {
	r := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := false
	code := r.run(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		stopped = true
		return ctx.Err()
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !stopped {
		t.Fatal("expected runner to wait for start to return")
	}
}

func TestRun_ShutdownTimeout(t *testing.T) {
	r := &Runner{Logger: zap.NewNop(), Timeout: 20 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)
	code := r.run(ctx, func(context.Context) error {
		<-release
		return nil
	})
	if code != 1 {
		t.Fatalf("expected exit code 1 after timeout, got %d", code)
	}
}

func TestShutdown_RunsAllAndJoins(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	calls := 0
	err := Shutdown(time.Second,
		func(context.Context) error { calls++; return errA },
		func(ctx context.Context) error {
			calls++
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected a deadline")
			}
			return nil
		},
		func(context.Context) error { calls++; return errB },
	)
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestGraceful_ForcesOnDeadline(t *testing.T) {
	unblock := make(chan struct{})
	forced := false
	stop := func() { <-unblock }
	force := func() {
		forced = true
		close(unblock)
	}
	err := Shutdown(20*time.Millisecond, Graceful(stop, force))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !forced {
		t.Fatal("expected force to be called")
	}
}

func TestGraceful_CleanStop(t *testing.T) {
	err := Shutdown(time.Second, Graceful(func() {}, func() { t.Error("force must not be called") }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
