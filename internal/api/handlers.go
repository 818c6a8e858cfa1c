package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calder-ai/studyhall/internal/markdown"
	"github.com/calder-ai/studyhall/internal/pdf"
)

type queryRequest struct {
	Prompt string `json:"prompt"`
}

type generateRequest struct {
	Count int `json:"count"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Chunks   int    `json:"chunks"`
	Filename string `json:"filename"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Root reports service liveness.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  "online",
		Message: "StudyHall API is running",
	})
}

// RootHead answers uptime probes that only issue HEAD.
func (h *Handler) RootHead(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Upload accepts a multipart study document, extracts its text, and indexes
// it for the request's session.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "A file upload named 'file' is required.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "Error reading upload: "+err.Error())
		return
	}

	text, ok := extractText(header.Filename, data)
	if !ok {
		badRequest(w, "Only PDF, Markdown, and plain text files are supported.")
		return
	}

	chunks, err := h.service.Upload(r.Context(), session(r), header.Filename, text)
	if err != nil {
		h.serviceError(w, r, err, "", "Error processing upload")
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		Message:  fmt.Sprintf("Successfully uploaded %s", header.Filename),
		Chunks:   chunks,
		Filename: header.Filename,
	})
}

// extractText converts an upload to plain text by extension.
func extractText(filename string, data []byte) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdf.Text(data), true
	case ".md", ".markdown":
		return markdown.Text(data), true
	case ".txt":
		return string(data), true
	default:
		return "", false
	}
}

// Query answers a question from the session's materials.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(w, "Prompt must not be empty.")
		return
	}

	answer, err := h.service.Query(r.Context(), session(r), req.Prompt)
	if err != nil {
		h.serviceError(w, r, err, "", "Error querying materials")
		return
	}
	respondJSON(w, http.StatusOK, answer)
}

// Analyze synthesizes the session's materials into a study overview.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analyze(r.Context(), session(r))
	if err != nil {
		h.serviceError(w, r, err, "No materials uploaded for analysis.", "Error performing analysis")
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// Concepts extracts a concept map from the session's materials.
func (h *Handler) Concepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.service.Concepts(r.Context(), session(r))
	if err != nil {
		h.serviceError(w, r, err, "No materials uploaded.", "Error extracting concepts")
		return
	}
	respondJSON(w, http.StatusOK, concepts)
}

// Quiz generates multiple-choice questions from the session's materials.
func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	count, err := decodeCount(r)
	if err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	quiz, err := h.service.Quiz(r.Context(), session(r), count)
	if err != nil {
		h.serviceError(w, r, err, "No materials uploaded.", "Error generating quiz")
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

// Flashcards generates study flashcards from the session's materials.
func (h *Handler) Flashcards(w http.ResponseWriter, r *http.Request) {
	count, err := decodeCount(r)
	if err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	set, err := h.service.Flashcards(r.Context(), session(r), count)
	if err != nil {
		h.serviceError(w, r, err, "No materials uploaded.", "Error generating flashcards")
		return
	}
	respondJSON(w, http.StatusOK, set)
}

// decodeCount reads the optional {"count": n} body. An absent body selects
// the operation default.
func decodeCount(r *http.Request) (int, error) {
	var req generateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return req.Count, nil
}

// Materials lists the session's uploaded files.
func (h *Handler) Materials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.Materials(r.Context(), session(r))
	if err != nil {
		h.serviceError(w, r, err, "", "Error listing materials")
		return
	}
	respondJSON(w, http.StatusOK, materials)
}

// DeleteMaterial removes one uploaded file from the session. The filename
// parameter arrives percent-decoded; unescaping again would corrupt names
// that contain a literal '%'.
func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := h.service.DeleteMaterial(r.Context(), session(r), filename); err != nil {
		h.serviceError(w, r, err, "", "Error deleting material")
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Successfully deleted %s", filename),
	})
}

// ClearMaterials removes everything uploaded for the session.
func (h *Handler) ClearMaterials(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearMaterials(r.Context(), session(r)); err != nil {
		h.serviceError(w, r, err, "", "Error clearing materials")
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "All materials cleared"})
}
