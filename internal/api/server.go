// Package api serves the editor over a local HTTP interface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/project"
)

// MediaLibrary resolves media ids to assets. *project.Store implements it.
type MediaLibrary interface {
	Lookup(ctx context.Context, id int) (project.Asset, error)
	ListMedia(ctx context.Context) ([]project.Asset, error)
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

type ServerConfig struct {
	Port      int
	Session   *editor.Session
	Exporter  *pipeline.Exporter
	Media     MediaLibrary
	Config    *config.Config
	Logger    zerolog.Logger
	StartTime time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: logging.Component(cfg.Logger, "api"),
	}
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
