package getSuppliers

import (
	"log/slog"
	"net/http"

	"sync_service/internal/config"
	resp "sync_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Response struct {
	resp.Response
	Suppliers []Supplier `json:"suppliers"`
}

func New(log *slog.Logger, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.suppliers.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		suppliers := make([]Supplier, 0, len(cfg.Suppliers))
		for _, s := range cfg.Suppliers {
			suppliers = append(suppliers, Supplier{ID: s.ID, Name: s.Name})
		}

		log.Info("Suppliers listed", slog.Int("count", len(suppliers)))

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			Suppliers: suppliers,
		})
	}
}
