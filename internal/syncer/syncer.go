package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sync_service/internal/config"
	"sync_service/internal/feed"
	sl "sync_service/internal/lib/logger"
	"sync_service/internal/models"
	"sync_service/internal/storage"
)

// maxReportedErrors caps the error preview carried by a report. Counters
// still reflect every failure.
const maxReportedErrors = 15

type Catalog interface {
	FindByModel(ctx context.Context, model string, supplierID int) (models.CatalogEntry, error)
	Insert(ctx context.Context, p models.NormalizedProduct, supplierID int, categoryID int64) (int64, error)
	Update(ctx context.Context, productID int64, p models.NormalizedProduct) (bool, error)
	DeactivateMissing(ctx context.Context, presentModels []string, supplierID int) (int64, error)
}

type ParserFactory func(parserType string) (feed.Parser, error)

// Syncer reconciles a supplier's feed snapshot with the catalog: insert
// unseen models, update present ones, deactivate vanished ones.
type Syncer struct {
	log     *slog.Logger
	catalog Catalog
	parsers ParserFactory
}

func New(log *slog.Logger, catalog Catalog, parsers ParserFactory) *Syncer {
	if parsers == nil {
		parsers = feed.NewParser
	}

	return &Syncer{
		log:     log,
		catalog: catalog,
		parsers: parsers,
	}
}

// Run executes one sync for one supplier. A fetch or parse failure aborts
// the whole run; a failure on an individual record is counted and never
// stops the batch. Records are processed strictly in feed order.
func (s *Syncer) Run(ctx context.Context, supplier config.SupplierConfig) (models.SyncReport, error) {
	const op = "syncer.Run"

	log := s.log.With(
		slog.String("op", op),
		slog.String("supplier", supplier.ID),
	)

	parser, err := s.parsers(supplier.ParserType)
	if err != nil {
		return models.SyncReport{}, fmt.Errorf("%s: %w", op, err)
	}

	products, err := parser.FetchAndParse(ctx, supplier.XMLURL)
	if err != nil {
		return models.SyncReport{}, fmt.Errorf("%s: %w", op, err)
	}

	presentModels := make([]string, 0, len(products))
	for _, p := range products {
		presentModels = append(presentModels, p.Model)
	}

	report := models.SyncReport{
		TotalProducts: len(products),
		Errors:        []string{},
	}
	errMsgs := []string{}

	for _, p := range products {
		if msg := s.applyRecord(ctx, log, supplier, p, &report); msg != "" {
			report.ErrorCount++
			errMsgs = append(errMsgs, msg)
		}
	}

	disabled, err := s.catalog.DeactivateMissing(ctx, presentModels, supplier.SupplierID)
	if err != nil {
		// The sweep is isolated from per-record results: one error entry,
		// DisabledCount stays at zero.
		log.Error("deactivation sweep failed", sl.Err(err))
		errMsgs = append(errMsgs, "Failed to disable products not in XML feed")
	} else {
		report.DisabledCount = int(disabled)
	}

	if len(errMsgs) > maxReportedErrors {
		errMsgs = errMsgs[:maxReportedErrors]
	}
	report.Errors = errMsgs

	log.Info("sync completed",
		slog.Int("total", report.TotalProducts),
		slog.Int("updated", report.UpdatedCount),
		slog.Int("inserted", report.InsertedCount),
		slog.Int("disabled", report.DisabledCount),
		slog.Int("errors", report.ErrorCount),
	)

	return report, nil
}

// applyRecord processes one feed record and returns an error message for
// the report, or "" on success.
func (s *Syncer) applyRecord(
	ctx context.Context,
	log *slog.Logger,
	supplier config.SupplierConfig,
	p models.NormalizedProduct,
	report *models.SyncReport,
) string {
	entry, err := s.catalog.FindByModel(ctx, p.Model, supplier.SupplierID)
	switch {
	case err == nil:
		ok, err := s.catalog.Update(ctx, entry.ProductID, p)
		if err != nil {
			log.Error("update failed", slog.String("model", p.Model), sl.Err(err))
			return fmt.Sprintf("Error processing %s: %v", p.Model, err)
		}
		if !ok {
			return fmt.Sprintf("Failed to update product %s", p.Model)
		}

		report.UpdatedCount++
		return ""

	case errors.Is(err, storage.ErrProductNotFound):
		if _, err := s.catalog.Insert(ctx, p, supplier.SupplierID, supplier.HiddenCategoryID); err != nil {
			log.Error("insert failed", slog.String("model", p.Model), sl.Err(err))
			return fmt.Sprintf("Failed to insert new product %s", p.Model)
		}

		report.InsertedCount++
		return ""

	default:
		log.Error("lookup failed", slog.String("model", p.Model), sl.Err(err))
		return fmt.Sprintf("Error processing %s: %v", p.Model, err)
	}
}
