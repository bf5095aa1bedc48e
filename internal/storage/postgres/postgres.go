package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sync_service/internal/config"
	"sync_service/internal/models"
	"sync_service/internal/storage"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sizeAttributeID is the catalog attribute row that carries the feed's
// size text.
const sizeAttributeID = 17

// CatalogRepo is the catalog reader/writer. It owns the pool: opened once
// at process start, closed at shutdown.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*CatalogRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &CatalogRepo{pool: pool}, nil
}

// FindByModel looks a product up by its natural key within one supplier
// partition. Ordered by product_id so duplicate rows resolve
// deterministically to the oldest one.
func (r *CatalogRepo) FindByModel(ctx context.Context, model string, supplierID int) (models.CatalogEntry, error) {
	const op = "storage.postgres.FindByModel"

	const query = `
		SELECT product_id, model, status, date_modified
		FROM products
		WHERE model = $1 AND supplier_id = $2
		ORDER BY product_id
		LIMIT 1
	`

	var e models.CatalogEntry

	err := r.pool.QueryRow(ctx, query, model, supplierID).Scan(
		&e.ProductID,
		&e.Model,
		&e.Status,
		&e.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CatalogEntry{}, storage.ErrProductNotFound
		}

		return models.CatalogEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

// CheckExistence reports existence and active status for a batch of models
// in one query. An empty batch never touches the database.
func (r *CatalogRepo) CheckExistence(ctx context.Context, modelKeys []string, supplierID int) (map[string]models.ModelStatus, error) {
	const op = "storage.postgres.CheckExistence"

	result := make(map[string]models.ModelStatus, len(modelKeys))
	if len(modelKeys) == 0 {
		return result, nil
	}

	const query = `
		SELECT model, status
		FROM products
		WHERE supplier_id = $1 AND model = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, supplierID, modelKeys)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			model  string
			status int
		)
		if err := rows.Scan(&model, &status); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result[model] = models.ModelStatus{Exists: true, IsActive: status == models.StatusActive}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	for _, m := range modelKeys {
		if _, ok := result[m]; !ok {
			result[m] = models.ModelStatus{}
		}
	}

	return result, nil
}

// LastUpdatedTime returns the newest modification time among the
// supplier's active rows.
func (r *CatalogRepo) LastUpdatedTime(ctx context.Context, supplierID int) (time.Time, error) {
	const op = "storage.postgres.LastUpdatedTime"

	const query = `
		SELECT MAX(date_modified)
		FROM products
		WHERE status = 1 AND supplier_id = $1
	`

	var last *time.Time

	if err := r.pool.QueryRow(ctx, query, supplierID).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if last == nil {
		return time.Time{}, storage.ErrNoProducts
	}

	return *last, nil
}

// Insert creates a catalog entry in the supplier's hidden category with
// status active. The main row, description, special price, optional size
// attribute and category association commit as one transaction.
func (r *CatalogRepo) Insert(ctx context.Context, p models.NormalizedProduct, supplierID int, categoryID int64) (int64, error) {
	const op = "storage.postgres.Insert"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const productQuery = `
		INSERT INTO products (model, supplier_id, image, price, status, xml_flag, date_added, date_modified)
		VALUES ($1, $2, $3, $4, 1, 1, now(), now())
		RETURNING product_id
	`

	var productID int64

	err = tx.QueryRow(ctx, productQuery, p.Model, supplierID, p.Image, p.PriceWithVAT).Scan(&productID)
	if err != nil {
		return 0, fmt.Errorf("%s: insert product: %w", op, err)
	}

	const descQuery = `
		INSERT INTO product_descriptions (product_id, name, description)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.Exec(ctx, descQuery, productID, p.Title, p.Description); err != nil {
		return 0, fmt.Errorf("%s: insert description: %w", op, err)
	}

	const specialQuery = `
		INSERT INTO product_specials (product_id, price)
		VALUES ($1, $2)
	`

	if _, err := tx.Exec(ctx, specialQuery, productID, p.PriceWithoutVAT); err != nil {
		return 0, fmt.Errorf("%s: insert special price: %w", op, err)
	}

	if size := strings.TrimSpace(p.Size); size != "" {
		const attrQuery = `
			INSERT INTO product_attributes (product_id, attribute_id, text)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.Exec(ctx, attrQuery, productID, sizeAttributeID, size); err != nil {
			return 0, fmt.Errorf("%s: insert size attribute: %w", op, err)
		}
	}

	const categoryQuery = `
		INSERT INTO product_to_category (product_id, category_id)
		VALUES ($1, $2)
	`

	if _, err := tx.Exec(ctx, categoryQuery, productID, categoryID); err != nil {
		return 0, fmt.Errorf("%s: insert category link: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return productID, nil
}

// Update overwrites the mutable fields of an existing entry and forces it
// back to active, which is how a deactivated product is revived when it
// reappears in the feed. Returns false when the description row no longer
// exists, signaling a stale id.
func (r *CatalogRepo) Update(ctx context.Context, productID int64, p models.NormalizedProduct) (bool, error) {
	const op = "storage.postgres.Update"

	const descQuery = `
		UPDATE product_descriptions
		SET name = $1,
			description = $2
		WHERE product_id = $3
	`

	cmd, err := r.pool.Exec(ctx, descQuery, p.Title, p.Description, productID)
	if err != nil {
		return false, fmt.Errorf("%s: update description: %w", op, err)
	}

	const productQuery = `
		UPDATE products
		SET price = $1,
			image = $2,
			status = 1,
			date_modified = now()
		WHERE product_id = $3
	`

	if _, err := r.pool.Exec(ctx, productQuery, p.PriceWithVAT, p.Image, productID); err != nil {
		return false, fmt.Errorf("%s: update product: %w", op, err)
	}

	const specialQuery = `
		UPDATE product_specials
		SET price = $1
		WHERE product_id = $2
	`

	if _, err := r.pool.Exec(ctx, specialQuery, p.PriceWithoutVAT, productID); err != nil {
		return false, fmt.Errorf("%s: update special price: %w", op, err)
	}

	const attrQuery = `
		UPDATE product_attributes
		SET text = $1
		WHERE product_id = $2 AND attribute_id = $3
	`

	if _, err := r.pool.Exec(ctx, attrQuery, p.Size, productID, sizeAttributeID); err != nil {
		return false, fmt.Errorf("%s: update size attribute: %w", op, err)
	}

	return cmd.RowsAffected() > 0, nil
}

// DeactivateMissing marks every active entry of the supplier whose model
// is not in presentModels as inactive. An empty feed deactivates the whole
// partition: nothing offered means nothing available.
func (r *CatalogRepo) DeactivateMissing(ctx context.Context, presentModels []string, supplierID int) (int64, error) {
	const op = "storage.postgres.DeactivateMissing"

	if len(presentModels) == 0 {
		const query = `
			UPDATE products
			SET status = 0
			WHERE status = 1 AND supplier_id = $1
		`

		cmd, err := r.pool.Exec(ctx, query, supplierID)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		return cmd.RowsAffected(), nil
	}

	const query = `
		UPDATE products
		SET status = 0
		WHERE status = 1 AND supplier_id = $1 AND model <> ALL($2)
	`

	cmd, err := r.pool.Exec(ctx, query, supplierID, presentModels)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmd.RowsAffected(), nil
}

// Close closes the connection pool.
func (r *CatalogRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
