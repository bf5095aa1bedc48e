package updateSync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"sync_service/internal/config"
	resp "sync_service/internal/lib/api/response"
	sl "sync_service/internal/lib/logger"
	"sync_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type Request struct {
	Supplier string `json:"supplier" validate:"omitempty,max=64"`
}

type Response struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message,omitempty"`
	Supplier string             `json:"supplier,omitempty"`
	Error    string             `json:"error,omitempty"`
	Stats    *models.SyncReport `json:"stats,omitempty"`
}

// ReportMessage is published to the report queue after every completed sync.
type ReportMessage struct {
	Supplier string            `json:"supplier"`
	Stats    models.SyncReport `json:"stats"`
}

type Syncer interface {
	Run(ctx context.Context, supplier config.SupplierConfig) (models.SyncReport, error)
}

type ReportCache interface {
	SaveReport(ctx context.Context, supplierID string, report models.SyncReport) error
}

type ReportPublisher interface {
	PublishJSON(ctx context.Context, msg any) error
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	syncer Syncer,
	cache ReportCache,
	publisher ReportPublisher,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sync.update.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		err := render.DecodeJSON(r.Body, &req)
		// An empty body means "sync the default supplier".
		if err != nil && !errors.Is(err, io.EOF) {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, Response{Success: false, Error: "Failed to decode request"})

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, Response{Success: false, Error: resp.ValidationError(validateErr).Error})

			return
		}

		supplier, ok := resolveSupplier(cfg, req.Supplier)
		if !ok {
			log.Error("Unknown supplier requested", slog.String("supplier", req.Supplier))

			render.Status(r, http.StatusBadRequest)
			if req.Supplier == "" {
				render.JSON(w, r, Response{Success: false, Error: "Supplier not specified"})
			} else {
				render.JSON(w, r, Response{Success: false, Error: fmt.Sprintf("Unknown supplier: %s", req.Supplier)})
			}

			return
		}

		report, err := syncer.Run(r.Context(), supplier)
		if err != nil {
			log.Error("Sync failed", slog.String("supplier", supplier.ID), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, Response{
				Success: false,
				Error:   "Failed to update database",
				Message: err.Error(),
			})

			return
		}

		if err := cache.SaveReport(r.Context(), supplier.ID, report); err != nil {
			log.Warn("Failed to cache sync report", sl.Err(err))
		}

		if publisher != nil {
			msg := ReportMessage{Supplier: supplier.ID, Stats: report}
			if err := publisher.PublishJSON(r.Context(), msg); err != nil {
				log.Warn("Failed to publish sync report", sl.Err(err))
			}
		}

		log.Info("Database update completed",
			slog.String("supplier", supplier.ID),
			slog.Int("total", report.TotalProducts),
			slog.Int("errors", report.ErrorCount),
		)

		render.JSON(w, r, Response{
			Success:  true,
			Message:  fmt.Sprintf("Database update completed for %s", supplier.Name),
			Supplier: supplier.Name,
			Stats:    &report,
		})
	}
}

func resolveSupplier(cfg *config.Config, id string) (config.SupplierConfig, bool) {
	if id == "" {
		return cfg.DefaultSupplier()
	}
	return cfg.Supplier(id)
}
