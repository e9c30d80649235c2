// Package server exposes the upload, validation and report workflow over
// HTTP. Sessions live in memory; a confirmed report is also persisted to the
// state store so it survives a restart.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trade-report/internal/app"
	"trade-report/internal/ingest"
	"trade-report/internal/interfaces"
	"trade-report/internal/validate"
)

type Deps struct {
	Env *app.Env
	// Source is the broker tradebook. Nil disables the broker import endpoint.
	Source interfaces.TableSource
	// Log receives access lines. Nil discards them.
	Log *zap.Logger
}

type Server struct {
	env    *app.Env
	source interfaces.TableSource
	log    *zap.Logger
	router *gin.Engine

	mu       sync.RWMutex
	sessions map[string]*entry
}

// entry guards one session; validate.Session is not safe for concurrent use.
type entry struct {
	mu      sync.Mutex
	session *validate.Session
	stats   ingest.Stats
	capital float64
	created time.Time
}

func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		env:      d.Env,
		source:   d.Source,
		log:      log,
		sessions: make(map[string]*entry),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(s.log))
	r.MaxMultipartMemory = 32 << 20

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/journal/:day", s.handleJournal)

		api.POST("/sessions", s.handleUpload)
		api.POST("/sessions/broker", s.handleBrokerImport)
		api.POST("/sessions/resume", s.handleResume)
		api.GET("/sessions", s.handleList)
		api.GET("/sessions/:id", s.handleGet)
		api.DELETE("/sessions/:id", s.handleDelete)

		api.POST("/sessions/:id/analyze", s.handleAnalyze)
		api.POST("/sessions/:id/balance", s.handleBalance)
		api.POST("/sessions/:id/groups", s.handleGroup)
		api.POST("/sessions/:id/ungroup", s.handleUngroup)
		api.POST("/sessions/:id/confirm", s.handleConfirm)

		api.GET("/sessions/:id/report", s.handleReport)
		api.GET("/sessions/:id/breakdown", s.handleBreakdown)
		api.GET("/sessions/:id/trades.csv", s.handleTradesCSV)
		api.GET("/sessions/:id/eod/:day", s.handleEOD)

		api.POST("/sessions/:id/insights", s.handleInsights)
		api.POST("/sessions/:id/chat", s.handleChat)
	}
	return r
}

func (s *Server) put(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = e
}

func (s *Server) get(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// withSession runs fn with the session locked, or answers 404.
func (s *Server) withSession(c *gin.Context, fn func(e *entry)) {
	e, ok := s.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}
