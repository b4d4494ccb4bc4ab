package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/gridline/design-review-service/internal/models"
	"github.com/gridline/design-review-service/internal/prompt"
	"github.com/gridline/design-review-service/internal/reasoning"
	"github.com/gridline/design-review-service/internal/repository"
	"github.com/gridline/design-review-service/internal/review"
	"github.com/gridline/design-review-service/internal/services"
)

type ValidationHandler struct {
	validationService *services.ValidationService
}

func NewValidationHandler(validationService *services.ValidationService) *ValidationHandler {
	return &ValidationHandler{
		validationService: validationService,
	}
}

func (h *ValidationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/design/validate", h.handleValidate)
	mux.HandleFunc("GET /v1/design/history", h.handleListHistory)
	mux.HandleFunc("PATCH /v1/design/history/{id}/name", h.handleRename)
	mux.HandleFunc("DELETE /v1/design/history/{id}", h.handleDelete)
	mux.HandleFunc("GET /logs", h.handleLogs)
}

// RegisterPublicRoutes registers endpoints that bypass authentication.
func (h *ValidationHandler) RegisterPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *ValidationHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type validateRequest struct {
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	FreeText       string                 `json:"free_text,omitempty"`
}

func (h *ValidationHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var httpReq validateRequest
	if err := json.NewDecoder(r.Body).Decode(&httpReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	req := models.ValidationRequest{
		ReqID:     fmt.Sprintf("http-%s", ulid.Make().String()),
		Principal: PrincipalFrom(r.Context()),
		DesignInput: models.DesignInput{
			StructuredData: httpReq.StructuredData,
			FreeText:       httpReq.FreeText,
		},
	}
	if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
		req.TraceID = traceID
	}

	response, err := h.validationService.ProcessValidation(r.Context(), req, "http.validate", "http-worker")
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (h *ValidationHandler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}

	records, err := h.validationService.ListHistory(r.Context(), PrincipalFrom(r.Context()), limit, offset)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list history: %v", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.HistoryRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *ValidationHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var httpReq renameRequest
	if err := json.NewDecoder(r.Body).Decode(&httpReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if httpReq.Name == "" {
		http.Error(w, "Name must not be empty", http.StatusBadRequest)
		return
	}

	if err := h.validationService.RenameRecord(r.Context(), id, PrincipalFrom(r.Context()), httpReq.Name); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "name": httpReq.Name})
}

func (h *ValidationHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.validationService.DeleteRecord(r.Context(), id, PrincipalFrom(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ValidationHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	events, err := h.validationService.RecentEvents(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get logs: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

// writeError maps pipeline and repository errors to HTTP status codes.
func (h *ValidationHandler) writeError(w http.ResponseWriter, err error) {
	var schemaErr *review.SchemaError
	var upstreamErr *reasoning.UpstreamError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, prompt.ErrNoInput):
		status = http.StatusBadRequest
	case errors.As(err, &schemaErr), errors.As(err, &upstreamErr):
		status = http.StatusBadGateway
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrNotOwner):
		status = http.StatusForbidden
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
}
