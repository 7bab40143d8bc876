// Package api exposes the simulation over HTTP: state, history, settings
// and lifecycle control.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/kilianp07/hres/infra/logger"
)

// Config holds the HTTP listener settings. An empty Addr disables the API.
type Config struct {
	Addr           string   `json:"addr"`
	Token          string   `json:"token"`
	AllowedOrigins []string `json:"allowed_origins"`
	Release        bool     `json:"release"`
}

// Enabled reports whether the API listens.
func (c Config) Enabled() bool { return c.Addr != "" }

// SetDefaults allows every origin when none is configured.
func (c *Config) SetDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, o := range c.AllowedOrigins {
		if o == "" {
			return errors.New("api allowed_origins must not contain empty entries")
		}
	}
	return nil
}

// Server serves the router until its context ends.
type Server struct {
	cfg Config
	srv *http.Server
	log logger.Logger
}

// NewServer builds the HTTP server for eng.
func NewServer(cfg Config, eng Engine) *Server {
	cfg.SetDefaults()
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logger.New("api")
	router := NewRouter(eng, cfg.Token, log)
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return &Server{
		cfg: cfg,
		srv: &http.Server{Addr: cfg.Addr, Handler: c.Handler(router), ReadHeaderTimeout: 5 * time.Second},
		log: log,
	}
}

// Handler returns the CORS wrapped router.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run listens until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.Addr)
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api listen: %w", err)
	}
}
