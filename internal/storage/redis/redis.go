package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sync_service/internal/models"
	"sync_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

// RedisRepo keeps the last sync report per supplier so the status endpoint
// does not touch postgres.
type RedisRepo struct {
	client    *redis.Client
	ReportTTL time.Duration
}

func New(ctx context.Context, address string, db int, reportTTL time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client:    rdb,
		ReportTTL: reportTTL,
	}, nil
}

func (r *RedisRepo) SaveReport(ctx context.Context, supplierID string, report models.SyncReport) error {
	const op = "storage.redis.SaveReport"

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := reportKey(supplierID)

	if err := r.client.Set(ctx, key, data, r.ReportTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Report(ctx context.Context, supplierID string) (models.SyncReport, error) {
	const op = "storage.redis.Report"

	var report models.SyncReport

	data, err := r.client.Get(ctx, reportKey(supplierID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return report, storage.ErrReportNotFound
		}
		return report, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}

	return report, nil
}

// Close closes the connection to redis.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func reportKey(supplierID string) string {
	return fmt.Sprintf("sync_report:%s", supplierID)
}
