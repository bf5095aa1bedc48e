package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedProduct is the supplier-independent shape every feed parser
// produces. Model is the natural key within one supplier's partition.
type NormalizedProduct struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Model           string          `json:"model"`
	Image           string          `json:"image"`
	Colors          string          `json:"colors"`
	Size            string          `json:"size"`
	Stock           string          `json:"stock"`
	PriceWithVAT    decimal.Decimal `json:"price_with_vat"`
	PriceWithoutVAT decimal.Decimal `json:"price_without_vat"`
	Category        string          `json:"category"`
	Link            string          `json:"link"`
}

const (
	StatusActive   = 1
	StatusInactive = 0
)

type CatalogEntry struct {
	ProductID  int64     `json:"product_id"`
	Model      string    `json:"model"`
	Status     int       `json:"status"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (e CatalogEntry) IsActive() bool {
	return e.Status == StatusActive
}

// ModelStatus is one entry of the batch existence check.
type ModelStatus struct {
	Exists   bool `json:"exists"`
	IsActive bool `json:"is_active"`
}

// SyncReport aggregates the outcome of one sync run. Counters always
// reflect true totals; Errors is a bounded preview of the first messages.
type SyncReport struct {
	TotalProducts int      `json:"totalProducts"`
	UpdatedCount  int      `json:"updatedCount"`
	InsertedCount int      `json:"insertedCount"`
	DisabledCount int      `json:"disabledCount"`
	ErrorCount    int      `json:"errorCount"`
	Errors        []string `json:"errors"`
}

type ProductState string

const (
	StateNew         ProductState = "new"
	StateNeedsUpdate ProductState = "needs-update"
	StateUpToDate    ProductState = "up-to-date"
)

// ProductWithStatus is the read-path table row: a feed record annotated
// with its catalog presence. Never written back to storage.
type ProductWithStatus struct {
	NormalizedProduct
	ExistsInCatalog bool         `json:"exists_in_catalog"`
	IsActive        bool         `json:"is_active"`
	State           ProductState `json:"state"`
}
