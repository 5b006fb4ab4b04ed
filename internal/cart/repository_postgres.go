package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	getCartQuery = `
        SELECT items, discount_code, updated_at
        FROM carts
        WHERE owner_id = $1
    `
	saveCartQuery = `
        INSERT INTO carts (owner_id, items, product_ids, discount_code, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (owner_id) DO UPDATE
        SET items = EXCLUDED.items,
            product_ids = EXCLUDED.product_ids,
            discount_code = EXCLUDED.discount_code,
            updated_at = EXCLUDED.updated_at
    `
	deleteCartQuery = `DELETE FROM carts WHERE owner_id = $1`
	ownersQuery     = `SELECT owner_id FROM carts WHERE product_ids && $1 ORDER BY owner_id`
)

// PostgresRepository keeps each cart as one row; items are jsonb and
// product_ids mirrors them for lookups by product.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID int) (Cart, error) {
	c := Cart{OwnerID: ownerID, Items: []Item{}}
	var raw []byte
	err := r.db.QueryRowContext(ctx, getCartQuery, ownerID).Scan(&raw, &c.DiscountCode, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("load cart %d: %w", ownerID, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Items); err != nil {
			return Cart{}, fmt.Errorf("decode cart %d: %w", ownerID, err)
		}
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *PostgresRepository) Save(ctx context.Context, c Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %d: %w", c.OwnerID, err)
	}
	if _, err := r.db.ExecContext(ctx, saveCartQuery,
		c.OwnerID, raw, pq.Array(c.ProductIDs()), c.DiscountCode, c.UpdatedAt); err != nil {
		return fmt.Errorf("save cart %d: %w", c.OwnerID, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID int) error {
	if _, err := r.db.ExecContext(ctx, deleteCartQuery, ownerID); err != nil {
		return fmt.Errorf("delete cart %d: %w", ownerID, err)
	}
	return nil
}

func (r *PostgresRepository) OwnersWithProduct(ctx context.Context, productID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, ownersQuery, pq.Array([]int64{int64(productID)}))
	if err != nil {
		return nil, fmt.Errorf("find carts with product %d: %w", productID, err)
	}
	defer rows.Close()

	var owners []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
