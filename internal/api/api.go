// Package api exposes the study material service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/calder-ai/studyhall/internal/domain"
	"github.com/calder-ai/studyhall/internal/rag"
	"github.com/calder-ai/studyhall/internal/storage"
)

const (
	// defaultSession keys requests that arrive without an X-Session-ID header.
	defaultSession = "default_user"

	// maxUploadBytes caps multipart upload size.
	maxUploadBytes = 32 << 20
)

// Handler holds the HTTP dependencies.
type Handler struct {
	service *rag.Service
	logger  *slog.Logger
}

// NewHandler creates the endpoint handler set around a service.
func NewHandler(service *rag.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// session extracts the tenant key from the request header.
func session(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return defaultSession
}

// errorBody is the error envelope the frontend expects.
type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, detail string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Detail: detail})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, storage.ErrStoreUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError renders a failed service call. An empty index uses the
// caller's detail string; everything else gets the prefix plus the error
// text.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error, emptyDetail, prefix string) {
	status := statusFor(err)
	detail := fmt.Sprintf("%s: %v", prefix, err)
	if errors.Is(err, domain.ErrEmptyIndex) {
		detail = emptyDetail
	}

	h.logger.Error("request failed",
		"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	respondJSON(w, status, errorBody{Detail: detail})
}
