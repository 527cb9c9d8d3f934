package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/diamant-gtfs/internal/common/config"
	"github.com/diamant-gtfs/internal/common/logger"
)

const shutdownTimeout = 10 * time.Second

// Server serves read-only queries over the feed databases found under the
// configured data directory.
type Server struct {
	cfg     config.APIConfig
	logger  logger.Logger
	version string
	stores  *stores
}

func NewServer(cfg config.APIConfig, logger logger.Logger, version string) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		stores:  newStores(cfg.DataDir, logger),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)

	r.Route("/{key}", func(r chi.Router) {
		r.Get("/stop_time_details", s.handleStopTimeDetails)
		r.Get("/stops", s.handleStops)
		r.Get("/trips", s.handleTrips)
		r.Get("/patterns", s.handlePatterns)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("API server starting", "addr", s.cfg.Addr, "data_dir", s.cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := s.stores.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
