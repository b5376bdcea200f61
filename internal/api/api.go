// Package api exposes the detector over HTTP.
//
//	POST /documents/{id}   body is newline-delimited text
//	GET  /documents/{id}   archived document re-expanded to sentences
//	GET  /stats            tuning statistics
//	POST /stats/reset      clear statistics
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/stats"
)

const (
	// MaxDocumentBytes bounds a submitted document body.
	MaxDocumentBytes = 10 << 20

	headerRequestID = "X-Request-ID"
	pathID          = "id"

	logKeyCorrelation = "correlation_id"
	logKeyDocument    = "document_id"
)

// Detector is the subset of the pipeline the API serves.
type Detector interface {
	ProcessDocument(ctx context.Context, documentID, text string) (domain.Result, error)
	GetStoredDocument(ctx context.Context, documentID string) (domain.StoredDocument, error)
	Stats() *stats.Stats
	ResetStats(ctx context.Context) error
}

// Handler serves the document API.
type Handler struct {
	detector Detector
	logger   *zerolog.Logger
	mux      *http.ServeMux
}

// NewHandler builds the routes.
func NewHandler(detector Detector, logger *zerolog.Logger) *Handler {
	h := &Handler{detector: detector, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /documents/{id}", h.submitDocument)
	h.mux.HandleFunc("GET /documents/{id}", h.getDocument)
	h.mux.HandleFunc("GET /stats", h.getStats)
	h.mux.HandleFunc("POST /stats/reset", h.resetStats)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	w.Header().Set(headerRequestID, requestID)

	logger := h.logger.With().Str(logKeyCorrelation, requestID).Logger()
	h.mux.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
}

func (h *Handler) submitDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue(pathID)
	logger := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	res, err := h.detector.ProcessDocument(r.Context(), id, string(body))
	if err != nil {
		logger.Error().Err(err).Str(logKeyDocument, id).Msg("document submission failed")

		status := statusFor(err)
		if status == http.StatusBadRequest {
			writeError(w, status, err)
			return
		}

		// The body still carries the verdicts so a caller can see it was
		// accepted by content but not committed.
		writeJSON(w, status, NewResultResponse(res, err))

		return
	}

	logger.Info().
		Str(logKeyDocument, id).
		Bool("accepted", res.Accepted).
		Str("reason", string(res.Reason)).
		Msg("document processed")

	writeJSON(w, http.StatusOK, NewResultResponse(res, nil))
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.detector.GetStoredDocument(r.Context(), r.PathValue(pathID))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewStatsResponse(h.detector.Stats()))
}

func (h *Handler) resetStats(w http.ResponseWriter, r *http.Request) {
	if err := h.detector.ResetStats(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidID), errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrStorage), errors.Is(err, apperrors.ErrPersist):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // client disconnects are not actionable
}
