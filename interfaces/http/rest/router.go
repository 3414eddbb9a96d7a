package rest

import (
	"net/http"
	"strings"

	"engram/interfaces/http/rest/handlers"
	"engram/interfaces/http/rest/middleware"
	v1 "engram/interfaces/http/rest/v1"
	"engram/pkg/auth"
	pkgerrors "engram/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	knowledge     *handlers.KnowledgeHandler
	workingMemory *handlers.WorkingMemoryHandler
	history       *handlers.HistoryHandler
	recall        *handlers.RecallHandler
	writeLimiter  auth.RateLimiter
	logger        *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	knowledge *handlers.KnowledgeHandler,
	workingMemory *handlers.WorkingMemoryHandler,
	history *handlers.HistoryHandler,
	recall *handlers.RecallHandler,
	writeLimiter auth.RateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		knowledge:     knowledge,
		workingMemory: workingMemory,
		history:       history,
		recall:        recall,
		writeLimiter:  writeLimiter,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, false)
	writeLimit := middleware.RateLimitWrites(rt.writeLimiter, rt.logger)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.engram.dev"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Degraded-Read"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes (legacy read-only surface, served until sunset)
	v1Router := v1.NewRouter(rt.knowledge, rt.workingMemory, rt.recall)
	router.Handle("/api/v1/*", v1Router)

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate())

		// Knowledge endpoints
		r.Route("/knowledge", func(r chi.Router) {
			r.With(writeLimit).Post("/", rt.knowledge.WriteKnowledge)
			r.Get("/", rt.knowledge.QueryKnowledge)
		})

		// Fact history
		r.Get("/facts/{factID}/history", rt.history.GetFactHistory)

		// Working memory and recall
		r.Route("/working-memory", func(r chi.Router) {
			r.Get("/", rt.workingMemory.GetWorkingMemory)
			r.With(writeLimit).Post("/", rt.workingMemory.UpdateWorkingMemory)
		})
		r.Get("/recall", rt.recall.RecallEntities)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2025-06-01")
			w.Header().Set("X-API-Sunset-Date", "2025-12-01")
		}

		next.ServeHTTP(w, r)
	})
}
