package getProducts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sync_service/internal/config"
	"sync_service/internal/feed"
	"sync_service/internal/models"
	"sync_service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	products []models.NormalizedProduct
	err      error
}

func (p *stubParser) FetchAndParse(ctx context.Context, xmlURL string) ([]models.NormalizedProduct, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.products, nil
}

type fakeReader struct {
	existence   map[string]models.ModelStatus
	lastUpdated time.Time
	noProducts  bool
}

func (f *fakeReader) CheckExistence(ctx context.Context, modelKeys []string, supplierID int) (map[string]models.ModelStatus, error) {
	result := make(map[string]models.ModelStatus, len(modelKeys))
	for _, m := range modelKeys {
		result[m] = f.existence[m]
	}
	return result, nil
}

func (f *fakeReader) LastUpdatedTime(ctx context.Context, supplierID int) (time.Time, error) {
	if f.noProducts {
		return time.Time{}, storage.ErrNoProducts
	}
	return f.lastUpdated, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Suppliers: []config.SupplierConfig{
			{ID: "adamhome", Name: "Adam Home", SupplierID: 12, XMLURL: "https://vendor.example/a.xml", ParserType: "adamhome"},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(model string) models.NormalizedProduct {
	return models.NormalizedProduct{Model: model, Title: "Product " + model}
}

func doRequest(t *testing.T, handler http.HandlerFunc, target string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	return rr, resp
}

func TestGetProducts_SortsNewFirst(t *testing.T) {
	parser := &stubParser{products: []models.NormalizedProduct{
		record("M2"), // exists, active
		record("M3"), // exists, inactive
		record("M1"), // absent from catalog
	}}
	reader := &fakeReader{
		existence: map[string]models.ModelStatus{
			"M2": {Exists: true, IsActive: true},
			"M3": {Exists: true, IsActive: false},
		},
		lastUpdated: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	handler := New(testLogger(), testConfig(), reader, func(string) (feed.Parser, error) { return parser, nil })

	rr, resp := doRequest(t, handler, "/products?supplier=adamhome")

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, resp.Products, 3)

	assert.Equal(t, "M1", resp.Products[0].Model, "new products come first")
	assert.Equal(t, models.StateNew, resp.Products[0].State)

	assert.Equal(t, "M2", resp.Products[1].Model, "existing products keep feed order")
	assert.Equal(t, models.StateUpToDate, resp.Products[1].State)

	assert.Equal(t, "M3", resp.Products[2].Model)
	assert.Equal(t, models.StateNeedsUpdate, resp.Products[2].State)

	require.NotNil(t, resp.LastUpdated)
	assert.Equal(t, reader.lastUpdated, resp.LastUpdated.UTC())
}

func TestGetProducts_Pagination(t *testing.T) {
	parser := &stubParser{products: []models.NormalizedProduct{
		record("M1"), record("M2"), record("M3"),
	}}
	reader := &fakeReader{noProducts: true}

	handler := New(testLogger(), testConfig(), reader, func(string) (feed.Parser, error) { return parser, nil })

	rr, resp := doRequest(t, handler, "/products?limit=2&offset=0")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Products, 2)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, int64(2), resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasMore)
	assert.Nil(t, resp.LastUpdated, "an empty catalog has no last-updated time")

	rr, resp = doRequest(t, handler, "/products?limit=2&offset=2")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Products, 1)
	assert.False(t, resp.Pagination.HasMore)
}

func TestGetProducts_UnknownSupplier(t *testing.T) {
	handler := New(testLogger(), testConfig(), &fakeReader{}, feed.NewParser)

	rr, _ := doRequest(t, handler, "/products?supplier=megastore")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetProducts_FeedFailure(t *testing.T) {
	parser := &stubParser{err: &feed.FetchError{StatusCode: 503, Status: "503 Service Unavailable"}}
	reader := &fakeReader{noProducts: true}

	handler := New(testLogger(), testConfig(), reader, func(string) (feed.Parser, error) { return parser, nil })

	rr, _ := doRequest(t, handler, "/products")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
