package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sync_service/internal/config"
	sl "sync_service/internal/lib/logger"
	"sync_service/internal/models"
)

// SyncRequest is the queue message external schedulers publish to trigger
// a sync. An empty supplier falls back to the default one.
type SyncRequest struct {
	Supplier string `json:"supplier"`
}

type ReportCache interface {
	SaveReport(ctx context.Context, supplierID string, report models.SyncReport) error
}

// QueueTrigger runs syncs in response to queue messages.
type QueueTrigger struct {
	log    *slog.Logger
	syncer *Syncer
	cfg    *config.Config
	cache  ReportCache
}

func NewQueueTrigger(log *slog.Logger, s *Syncer, cfg *config.Config, cache ReportCache) *QueueTrigger {
	return &QueueTrigger{
		log:    log,
		syncer: s,
		cfg:    cfg,
		cache:  cache,
	}
}

func (t *QueueTrigger) Handle(ctx context.Context, body []byte) error {
	var msg SyncRequest

	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	supplier, ok := t.resolveSupplier(msg.Supplier)
	if !ok {
		return fmt.Errorf("unknown supplier: %s", msg.Supplier)
	}

	report, err := t.syncer.Run(ctx, supplier)
	if err != nil {
		return err
	}

	if t.cache != nil {
		if err := t.cache.SaveReport(ctx, supplier.ID, report); err != nil {
			t.log.Warn("failed to cache sync report", slog.String("supplier", supplier.ID), sl.Err(err))
		}
	}

	return nil
}

func (t *QueueTrigger) resolveSupplier(id string) (config.SupplierConfig, bool) {
	if id == "" {
		return t.cfg.DefaultSupplier()
	}
	return t.cfg.Supplier(id)
}
