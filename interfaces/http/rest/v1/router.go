// Package v1 keeps the original read-only API surface alive for
// clients that have not migrated. It serves queries only; writes were
// never part of v1.
package v1

import (
	"net/http"

	"engram/interfaces/http/rest/handlers"
	"engram/interfaces/http/rest/middleware"

	"github.com/gorilla/mux"
)

// NewRouter creates the v1 API router
func NewRouter(
	knowledgeHandler *handlers.KnowledgeHandler,
	workingMemoryHandler *handlers.WorkingMemoryHandler,
	recallHandler *handlers.RecallHandler,
) *mux.Router {
	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.Use(versionHeaders)
	v1.Use(mux.MiddlewareFunc(middleware.Authenticate()))

	// Knowledge endpoints (read only)
	v1.HandleFunc("/knowledge", knowledgeHandler.QueryKnowledge).Methods("GET")
	v1.HandleFunc("/working-memory", workingMemoryHandler.GetWorkingMemory).Methods("GET")
	v1.HandleFunc("/recall", recallHandler.RecallEntities).Methods("GET")

	// Health check
	v1.HandleFunc("/health", healthCheck).Methods("GET")

	return router
}

// versionHeaders adds API version headers to responses
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// healthCheck provides a health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}
