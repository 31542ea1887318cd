package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// fulfilledStatuses are the order states that count as realised demand.
var fulfilledStatuses = []string{"PAID", "PROCESSING", "SHIPPED", "DELIVERED"}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListLines(ctx context.Context, productID string, since, until time.Time) ([]model.OrderLine, error) {
	query, args, err := sqlx.In(`
        SELECT oi.quantity, o.created_at
        FROM order_items oi
        JOIN orders o ON o.id = oi.order_id
        WHERE oi.product_id = ? AND o.created_at >= ? AND o.created_at < ? AND o.status IN (?)
        ORDER BY o.created_at
    `, productID, since, until, fulfilledStatuses)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	lines := []model.OrderLine{}
	if err := r.DB.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *PGRepository) EarliestLine(ctx context.Context, productID string) (*time.Time, error) {
	query, args, err := sqlx.In(`
        SELECT MIN(o.created_at)
        FROM order_items oi
        JOIN orders o ON o.id = oi.order_id
        WHERE oi.product_id = ? AND o.status IN (?)
    `, productID, fulfilledStatuses)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var earliest sql.NullTime
	if err := r.DB.GetContext(ctx, &earliest, query, args...); err != nil {
		return nil, err
	}
	if !earliest.Valid {
		return nil, nil
	}
	return &earliest.Time, nil
}
