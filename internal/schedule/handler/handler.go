package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"zonegrid/internal/platform/middleware"
	"zonegrid/internal/schedule/models"
	zonemodels "zonegrid/internal/zone/models"
	dErrors "zonegrid/pkg/domain-errors"
	"zonegrid/pkg/platform/httputil"
)

// Service defines the interface for schedule operations.
type Service interface {
	ReplaceForZone(ctx context.Context, zoneID uuid.UUID, entries []models.ReplaceEntry, actorID string) ([]*models.Schedule, error)
	UpsertForZoneDay(ctx context.Context, zoneID uuid.UUID, weekday int, change models.UpsertChange, actorID string) (*models.Schedule, error)
	FindByZone(ctx context.Context, zoneID uuid.UUID) ([]*models.Schedule, error)
	AvailabilityForDate(ctx context.Context, zoneID uuid.UUID, date string, serviceType string) (*models.Availability, error)
	ZonesByWeekday(ctx context.Context, weekday int, serviceType string) ([]*zonemodels.Zone, error)
}

// Handler wires schedule and availability endpoints to the schedule service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a schedule handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts schedule endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/zones/{id}/schedules", h.handleReplace)
	r.Put("/zones/{id}/schedules/{weekday}", h.handleUpsert)
	r.Get("/zones/{id}/schedules", h.handleListForZone)
	r.Get("/zones/{id}/availability", h.handleAvailability)
	r.Get("/schedules/weekday/{weekday}", h.handleZonesByWeekday)
}

type replaceRequest struct {
	Schedules []models.ReplaceEntry `json:"schedules"`
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	zoneID, err := parseZoneID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[replaceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schedules, err := h.service.ReplaceForZone(ctx, zoneID, req.Schedules, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "schedule replace failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	zoneID, err := parseZoneID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	weekday, err := parseWeekday(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	change, ok := httputil.DecodeJSON[models.UpsertChange](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schedule, err := h.service.UpsertForZoneDay(ctx, zoneID, weekday, change, middleware.GetActorID(ctx))
	if err != nil {
		h.logError(ctx, "schedule upsert failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handleListForZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zoneID, err := parseZoneID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	schedules, err := h.service.FindByZone(ctx, zoneID)
	if err != nil {
		h.logError(ctx, "schedule listing failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zoneID, err := parseZoneID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	q := r.URL.Query()
	availability, err := h.service.AvailabilityForDate(ctx, zoneID, q.Get("date"), q.Get("service"))
	if err != nil {
		h.logError(ctx, "availability resolution failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, availability)
}

func (h *Handler) handleZonesByWeekday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	weekday, err := parseWeekday(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	zones, err := h.service.ZonesByWeekday(ctx, weekday, r.URL.Query().Get("service"))
	if err != nil {
		h.logError(ctx, "weekday zone listing failed", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}

func parseZoneID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	return id, nil
}

func parseWeekday(r *http.Request) (int, error) {
	weekday, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "weekday must be an integer")
	}
	if err := models.ValidateWeekday(weekday); err != nil {
		return 0, err
	}
	return weekday, nil
}
