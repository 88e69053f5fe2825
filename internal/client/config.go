package client

import (
	"fmt"
	"time"

	"github.com/jingweijiang/annotation-api-test/internal/auth"
	"github.com/jingweijiang/annotation-api-test/internal/config"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetries    = 3
	defaultBackoff    = 300 * time.Millisecond
	defaultMaxBackoff = 20 * time.Second
	defaultVersion    = "1.0.0"
)

// Config holds the client settings. Zero values fall back to defaults in New.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	Retries        int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	VerifySSL      bool
	Headers        map[string]string
	Auth           auth.Handler
	Version        string
	RateLimitRPS   float64
	RateLimitBurst int
}

// ConfigFromResolver reads the api, auth and framework sections.
func ConfigFromResolver(r *config.Resolver) (Config, error) {
	handler, err := auth.FromResolver(r)
	if err != nil {
		return Config{}, fmt.Errorf("configure auth: %w", err)
	}

	return Config{
		BaseURL:        r.String("api.base_url", ""),
		Timeout:        r.Duration("api.timeout", defaultTimeout),
		Retries:        r.Int("api.retries", defaultRetries),
		Backoff:        r.Duration("api.backoff_factor", defaultBackoff),
		MaxBackoff:     r.Duration("api.max_backoff", defaultMaxBackoff),
		VerifySSL:      r.Bool("api.verify_ssl", true),
		Headers:        r.StringMap("api.headers"),
		Auth:           handler,
		Version:        r.String("framework.version", defaultVersion),
		RateLimitRPS:   r.Float("api.rate_limit.rps", 0),
		RateLimitBurst: r.Int("api.rate_limit.burst", 1),
	}, nil
}
