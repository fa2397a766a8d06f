package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/store"
)

// Agent is what the bridge dispatches messages to. *agent.Agent satisfies it.
type Agent interface {
	Handle(ctx context.Context, req agent.Request) (*agent.Result, error)
	Skills() []agent.Skill
	Help() string
}

// TaskStore persists tasks. *store.Store satisfies it.
type TaskStore interface {
	SaveTask(ctx context.Context, task store.TaskRecord) error
	GetTask(ctx context.Context, id string) (store.TaskRecord, error)
	CountTasks(ctx context.Context) (int, error)
}

// Options configures the bridge
type Options struct {
	Name           string
	Description    string
	Version        string
	PublicURL      string // Advertised in the agent card
	AllowedOrigins []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration // Bounds one message/send
}

// Server is the HTTP protocol bridge
type Server struct {
	router *chi.Mux
	agent  Agent
	tasks  TaskStore
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates a bridge over an agent and a task store
func NewServer(a Agent, tasks TaskStore, opts Options, logger *zap.Logger) *Server {
	if opts.Name == "" {
		opts.Name = "animequote"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}

	s := &Server{
		router: chi.NewRouter(),
		agent:  a,
		tasks:  tasks,
		opts:   opts,
		logger: logging.Component(logger, "bridge"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/.well-known/agent.json", s.handleAgentCard)
	s.router.Post("/", s.handleRPC)
	s.router.Post("/a2a", s.handleRPC)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("bridge shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
		"skills": len(s.agent.Skills()),
	}
	count, err := s.tasks.CountTasks(r.Context())
	if err != nil {
		s.logger.Warn("health check: task store unavailable", zap.Error(err))
		status["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	status["tasks"] = count
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Card())
}

// Card builds the agent card from the registered skills
func (s *Server) Card() AgentCard {
	skills := make([]AgentSkill, 0)
	for _, sk := range s.agent.Skills() {
		skills = append(skills, AgentSkill{
			ID:          sk.Name,
			Name:        strings.ReplaceAll(sk.Name, "_", " "),
			Description: sk.Description,
			Tags:        strings.Split(sk.Name, "_"),
			Examples:    sk.Examples,
		})
	}

	description := s.opts.Description
	if description == "" {
		description = "Verifies anime quotes, looks up anime metadata and helps study documents."
	}

	return AgentCard{
		Name:               s.opts.Name,
		Description:        description,
		URL:                strings.TrimRight(s.opts.PublicURL, "/") + "/a2a",
		Version:            s.opts.Version,
		ProtocolVersion:    "0.3.0",
		Capabilities:       AgentCapabilities{},
		DefaultInputModes:  []string{"text/plain", "application/json"},
		DefaultOutputModes: []string{"text/plain", "application/json"},
		Skills:             skills,
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
