package config

import (
	"crypto/rand"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AnimeConfig struct {
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
	CacheTTL    time.Duration

	UsersFile string
	JWTSecret []byte
	// GeneratedSecret is set when JWT_SECRET was absent and a random
	// per-process secret was used instead.
	GeneratedSecret bool
	TokenTTL        time.Duration

	GRPCAddr string
	NATSURL  string

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies lists CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// LoadAnime reads the anime service settings from the environment.
// Production requires JWT_SECRET.
func LoadAnime(isProd bool) (AnimeConfig, error) {
	cfg := AnimeConfig{
		DatabaseURL:    env("DATABASE_URL"),
		SQLitePath:     env("SQLITE_PATH"),
		RedisURL:       env("REDIS_URL"),
		CacheTTL:       parseDurationWithDefault(os.Getenv("CACHE_TTL"), 5*time.Minute),
		UsersFile:      env("USERS_FILE"),
		TokenTTL:       parseDurationWithDefault(os.Getenv("TOKEN_TTL"), time.Hour),
		GRPCAddr:       env("GRPC_ADDR"),
		NATSURL:        env("NATS_URL"),
		RateLimitRPS:   parseFloatWithDefault(os.Getenv("RATE_LIMIT_RPS"), 20),
		RateLimitBurst: parseIntWithDefault(os.Getenv("RATE_LIMIT_BURST"), 40),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
	}
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = ":9090"
	}

	secret := env("JWT_SECRET")
	switch {
	case secret != "":
		cfg.JWTSecret = []byte(secret)
	case isProd:
		return AnimeConfig{}, errors.New("JWT_SECRET is required in production")
	default:
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return AnimeConfig{}, err
		}
		cfg.GeneratedSecret = true
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDurationWithDefault(v string, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseFloatWithDefault(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func parseIntWithDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}
