package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"zonegrid/internal/platform/middleware"
	zonemodels "zonegrid/internal/zone/models"
	dErrors "zonegrid/pkg/domain-errors"
	"zonegrid/pkg/platform/httputil"
)

// Service defines the interface for point-in-zone resolution.
type Service interface {
	ResolveZone(ctx context.Context, lat, lon float64) (*zonemodels.Zone, error)
}

// Handler wires the coverage resolution endpoint to the coverage service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a coverage handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the coverage endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/coverage/resolve", h.handleResolve)
}

type resolveResponse struct {
	Covered bool             `json:"covered"`
	Zone    *zonemodels.Zone `json:"zone,omitempty"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "lat must be a number"))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "lon must be a number"))
		return
	}

	zone, err := h.service.ResolveZone(ctx, lat, lon)
	if err != nil {
		h.logger.WarnContext(ctx, "coverage resolution failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "coverage resolved",
		"request_id", requestID,
		"covered", zone != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resolveResponse{Covered: zone != nil, Zone: zone})
}
