package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	service ItemService
	pinger  store.Pinger
	logger  *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. pinger may be nil, in
// which case readiness always reports ready.
func NewRESTHandler(service ItemService, pinger store.Pinger, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		service: service,
		pinger:  pinger,
		logger:  logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable,
				model.NewSuccessResponse(ReadyResponse{Status: "unavailable"}))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListItems handles GET /items requests with an optional ?name= filter.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.service.Query(ctx, r.URL.Query().Get("name"))
	if err != nil {
		h.handleServiceError(w, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	item, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.handleServiceError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	item, err := h.service.Create(ctx, draft)
	if err != nil {
		h.handleServiceError(w, err, "create item")
		return
	}

	w.Header().Set("Location", itemLocation(item.ID))
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /items/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Update(ctx, id, draft); err != nil {
		h.handleServiceError(w, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// DeleteItem handles DELETE /items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.service.Delete(ctx, id); err != nil {
		h.handleServiceError(w, err, "delete item")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// decodeDraft reads a draft from the request body, writing a 400 response on failure.
func (h *RESTHandler) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var draft model.Draft

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Draft{}, false
	}

	return draft, true
}

// handleServiceError maps catalog errors onto HTTP responses.
func (h *RESTHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidArgument):
		h.logger.Debug("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}

func itemLocation(id string) string {
	return "/items/" + url.PathEscape(id)
}
