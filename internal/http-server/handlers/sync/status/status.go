package syncStatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"sync_service/internal/config"
	sl "sync_service/internal/lib/logger"
	"sync_service/internal/models"
	"sync_service/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	Success  bool               `json:"success"`
	Supplier string             `json:"supplier,omitempty"`
	Error    string             `json:"error,omitempty"`
	Stats    *models.SyncReport `json:"stats,omitempty"`
}

type ReportProvider interface {
	Report(ctx context.Context, supplierID string) (models.SyncReport, error)
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	reports ReportProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sync.status.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		supplierKey := r.URL.Query().Get("supplier")

		supplier, ok := resolveSupplier(cfg, supplierKey)
		if !ok {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, Response{Success: false, Error: fmt.Sprintf("Unknown supplier: %s", supplierKey)})

			return
		}

		report, err := reports.Report(r.Context(), supplier.ID)
		if err != nil {
			if errors.Is(err, storage.ErrReportNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, Response{
					Success: false,
					Error:   fmt.Sprintf("No sync report for supplier %s", supplier.ID),
				})

				return
			}

			log.Error("Failed to load sync report", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, Response{Success: false, Error: "Internal error"})

			return
		}

		render.JSON(w, r, Response{
			Success:  true,
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
