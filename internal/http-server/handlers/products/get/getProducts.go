package getProducts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"sync_service/internal/config"
	"sync_service/internal/feed"
	resp "sync_service/internal/lib/api/response"
	sl "sync_service/internal/lib/logger"
	"sync_service/internal/models"
	"sync_service/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit  = 20
	maxLimit      = 100
	defaultOffset = 0
)

type Response struct {
	resp.Response
	Supplier    string                     `json:"supplier"`
	LastUpdated *time.Time                 `json:"last_updated,omitempty"`
	Products    []models.ProductWithStatus `json:"products"`
	Pagination  Pagination                 `json:"pagination"`
}

type Pagination struct {
	Limit      int64 `json:"limit"`
	Offset     int64 `json:"offset"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

type CatalogReader interface {
	CheckExistence(ctx context.Context, modelKeys []string, supplierID int) (map[string]models.ModelStatus, error)
	LastUpdatedTime(ctx context.Context, supplierID int) (time.Time, error)
}

type ParserFactory func(parserType string) (feed.Parser, error)

// New serves the review table: the current feed annotated with each
// record's catalog state, new products first.
func New(
	log *slog.Logger,
	cfg *config.Config,
	catalog CatalogReader,
	parsers ParserFactory,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		supplierKey := r.URL.Query().Get("supplier")

		supplier, ok := resolveSupplier(cfg, supplierKey)
		if !ok {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Unknown supplier"))

			return
		}

		parser, err := parsers(supplier.ParserType)
		if err != nil {
			log.Error("Failed to create parser", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		limit := parseLimit(r)
		offset := parseOffset(r)

		var (
			products    []models.NormalizedProduct
			lastUpdated time.Time
			hasUpdated  bool
		)

		g, gctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			products, err = parser.FetchAndParse(gctx, supplier.XMLURL)
			return err
		})
		g.Go(func() error {
			t, err := catalog.LastUpdatedTime(gctx, supplier.SupplierID)
			if errors.Is(err, storage.ErrNoProducts) {
				return nil
			}
			if err != nil {
				return err
			}

			lastUpdated = t
			hasUpdated = true
			return nil
		})

		if err := g.Wait(); err != nil {
			log.Error("Failed to load feed", slog.String("supplier", supplier.ID), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Failed to load feed"))

			return
		}

		modelKeys := make([]string, 0, len(products))
		for _, p := range products {
			modelKeys = append(modelKeys, p.Model)
		}

		existence, err := catalog.CheckExistence(r.Context(), modelKeys, supplier.SupplierID)
		if err != nil {
			log.Error("Existence check failed", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		rows := make([]models.ProductWithStatus, 0, len(products))
		for _, p := range products {
			st := existence[p.Model]
			rows = append(rows, models.ProductWithStatus{
				NormalizedProduct: p,
				ExistsInCatalog:   st.Exists,
				IsActive:          st.IsActive,
				State:             state(st),
			})
		}

		// New products surface first; otherwise feed order is kept.
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].State == models.StateNew && rows[j].State != models.StateNew
		})

		total := int64(len(rows))
		page := paginate(rows, limit, offset)

		log.Info("Products retrieved successfully",
			slog.String("supplier", supplier.ID),
			slog.Int("count", len(page)),
			slog.Int64("total", total),
		)

		var lastUpdatedPtr *time.Time
		if hasUpdated {
			lastUpdatedPtr = &lastUpdated
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Supplier:    supplier.Name,
			LastUpdated: lastUpdatedPtr,
			Products:    page,
			Pagination: Pagination{
				Limit:      limit,
				Offset:     offset,
				Total:      total,
				TotalPages: (total + limit - 1) / limit,
				HasMore:    offset+int64(len(page)) < total,
			},
		})
	}
}

func state(st models.ModelStatus) models.ProductState {
	switch {
	case !st.Exists:
		return models.StateNew
	case !st.IsActive:
		return models.StateNeedsUpdate
	default:
		return models.StateUpToDate
	}
}

func paginate(rows []models.ProductWithStatus, limit, offset int64) []models.ProductWithStatus {
	if offset >= int64(len(rows)) {
		return []models.ProductWithStatus{}
	}

	end := offset + limit
	if end > int64(len(rows)) {
		end = int64(len(rows))
	}

	return rows[offset:end]
}

func resolveSupplier(cfg *config.Config, id string) (config.SupplierConfig, bool) {
	if id == "" {
		return cfg.DefaultSupplier()
	}
	return cfg.Supplier(id)
}

func parseLimit(r *http.Request) int64 {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseOffset(r *http.Request) int64 {
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil || offset < 0 {
		return defaultOffset
	}
	return offset
}
