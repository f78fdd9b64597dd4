// Package natsconn connects to NATS and JetStream for the anime event stream.
package natsconn

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Options configures the connection. Zero values fall back to NATS_URL,
// NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT, NATS_CONNECT_TIMEOUT and then
// built-in defaults.
type Options struct {
	URL            string
	Name           string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	// MaxPendingAcks bounds in-flight PublishAsync calls on the JetStream
	// context.
	MaxPendingAcks int
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.URL = strings.TrimSpace(o.URL); o.URL == "" {
		if o.URL = strings.TrimSpace(os.Getenv("NATS_URL")); o.URL == "" {
			o.URL = nats.DefaultURL
		}
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = envInt("NATS_MAX_RECONNECTS", 5)
	}
	if o.ReconnectWait == 0 {
		o.ReconnectWait = envDuration("NATS_RECONNECT_WAIT", 2*time.Second)
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = envDuration("NATS_CONNECT_TIMEOUT", 2*time.Second)
	}
	if o.MaxPendingAcks <= 0 {
		o.MaxPendingAcks = 256
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Connect dials NATS once and fails fast; reconnects apply only after the
// first successful connection.
func Connect(opts Options) (*nats.Conn, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(opts.ConnectTimeout),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", opts.URL, err)
	}
	return nc, nil
}

// ConnectJetStream connects and returns a JetStream context for async
// publishing. The caller owns the returned connection.
func ConnectJetStream(opts Options) (*nats.Conn, nats.JetStreamContext, error) {
	opts = opts.withDefaults()
	nc, err := Connect(opts)
	if err != nil {
		return nil, nil, err
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(opts.MaxPendingAcks))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	return nc, js, nil
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
