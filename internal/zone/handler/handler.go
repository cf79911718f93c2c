package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"zonegrid/internal/platform/middleware"
	"zonegrid/internal/zone/models"
	dErrors "zonegrid/pkg/domain-errors"
	"zonegrid/pkg/platform/httputil"
)

// Service defines the interface for zone registry operations.
type Service interface {
	Create(ctx context.Context, in models.CreateZoneInput, actorID string) (*models.Zone, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	List(ctx context.Context, filter models.ListFilter, page models.PageRequest) (*models.Page, error)
	Update(ctx context.Context, id uuid.UUID, in models.UpdateZoneInput, actorID string) (*models.Zone, error)
	UpdateGeometry(ctx context.Context, id uuid.UUID, geometry models.MultiPolygon, actorID string) (*models.Zone, error)
	Deactivate(ctx context.Context, id uuid.UUID, actorID string) (*models.Zone, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actorID string) error
}

// Handler wires zone registry endpoints to the zone service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a zone handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts zone endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/zones", h.handleCreate)
	r.Get("/zones", h.handleList)
	r.Get("/zones/{id}", h.handleGet)
	r.Patch("/zones/{id}", h.handleUpdate)
	r.Delete("/zones/{id}", h.handleDelete)
	r.Put("/zones/{id}/geometry", h.handleUpdateGeometry)
	r.Post("/zones/{id}/deactivate", h.handleDeactivate)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	in, ok := httputil.DecodeJSON[models.CreateZoneInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	zone, err := h.service.Create(ctx, in, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "zone creation failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, zone)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	zone, err := h.service.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "zone lookup failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	filter := models.ListFilter{
		Status: models.StatusFilter(q.Get("status")),
		Search: q.Get("search"),
	}
	if err := filter.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	page := models.PageRequest{
		SortBy:    q.Get("sort_by"),
		SortOrder: models.SortOrder(q.Get("sort_order")),
	}
	var err error
	if page.Page, err = intQuery(q.Get("page")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "page must be an integer"))
		return
	}
	if page.Limit, err = intQuery(q.Get("limit")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
		return
	}
	page.Normalize()
	if err := page.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.List(ctx, filter, page)
	if err != nil {
		h.logError(ctx, "zone listing failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	in, ok := httputil.DecodeJSON[models.UpdateZoneInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	zone, err := h.service.Update(ctx, id, in, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "zone update failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) handleUpdateGeometry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	geometry, ok := httputil.DecodeJSON[models.MultiPolygon](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	zone, err := h.service.UpdateGeometry(ctx, id, geometry, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "zone geometry update failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	zone, err := h.service.Deactivate(ctx, id, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "zone deactivation failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.SoftDelete(ctx, id, middleware.GetActorID(ctx)); err != nil {
		h.logError(ctx, "zone deletion failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	return id, nil
}

func intQuery(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
