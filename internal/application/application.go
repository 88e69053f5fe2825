package application

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/jingweijiang/annotation-api-test/internal/client"
	"github.com/jingweijiang/annotation-api-test/internal/config"
)

var (
	// ErrMissingBaseURL is returned when api.base_url is empty or not absolute.
	ErrMissingBaseURL = errors.New("api.base_url must be an absolute http(s) URL")
	// ErrProductionGuard is returned when a production session has not been
	// explicitly allowed via safety.allow_production.
	ErrProductionGuard = errors.New("production sessions require safety.allow_production: true")
	// ErrInvalidCredentials is returned when the configured credentials fail
	// validation, e.g. an expired JWT.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Session owns the dependencies shared by the tests of one run.
type Session struct {
	config *config.Resolver
	client *client.Client
	logger *zap.Logger
}

// New validates the configuration and builds the API client.
func New(cfg *config.Resolver, logger *zap.Logger) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("nil configuration")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.IsProduction() && !cfg.Bool("safety.allow_production", false) {
		return nil, ErrProductionGuard
	}

	clientCfg, err := client.ConfigFromResolver(cfg)
	if err != nil {
		return nil, err
	}
	if err := validateBaseURL(clientCfg.BaseURL); err != nil {
		return nil, err
	}
	if clientCfg.Auth != nil {
		if err := clientCfg.Auth.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
	}

	logger = logger.With(zap.String("environment", string(cfg.Environment())))
	logger.Info("configuration loaded",
		zap.String("base_url", clientCfg.BaseURL),
		zap.Duration("timeout", clientCfg.Timeout),
		zap.Int("retries", clientCfg.Retries),
		zap.String("auth", authType(clientCfg)),
	)

	return &Session{
		config: cfg,
		client: client.New(clientCfg, logger.Named("client")),
		logger: logger,
	}, nil
}

func authType(cfg client.Config) string {
	if cfg.Auth == nil {
		return "none"
	}
	return cfg.Auth.Type()
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrMissingBaseURL, raw)
	}
	return nil
}

// Config returns the merged configuration the session was built from.
func (s *Session) Config() *config.Resolver {
	return s.config
}

// Client returns the shared API client.
func (s *Session) Client() *client.Client {
	return s.client
}

// Logger returns the session logger, tagged with the environment.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Close logs the request summary and flushes the logger.
func (s *Session) Close() {
	stats := s.client.Stats()
	s.logger.Info("session finished",
		zap.Int("requests", stats.Requests),
		zap.Duration("total_response_time", stats.TotalResponseTime),
		zap.Duration("average_response_time", stats.AverageResponseTime()),
	)
	_ = s.logger.Sync()
}
