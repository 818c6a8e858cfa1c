package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every endpoint behind logging, panic recovery, and CORS.
func NewRouter(h *Handler, health HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(cors)

	r.Get("/", h.Root)
	r.Head("/", h.RootHead)
	r.Get("/health", NewHealthHandler(health))

	r.Post("/upload", h.Upload)
	r.Post("/query", h.Query)
	r.Post("/analyze", h.Analyze)
	r.Post("/concepts", h.Concepts)
	r.Post("/quiz", h.Quiz)
	r.Post("/flashcards", h.Flashcards)

	r.Get("/materials", h.Materials)
	r.Delete("/materials/{filename}", h.DeleteMaterial)
	r.Delete("/materials", h.ClearMaterials)

	return r
}

// cors allows any origin so a separately hosted frontend can call the API,
// and answers preflight OPTIONS before routing.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
