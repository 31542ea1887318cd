package repository

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListByProduct(ctx context.Context, productID string) ([]model.SupplierLink, error) {
	query := `
        SELECT ps.supplier_id, ps.lead_time, ps.cost, s.lead_time_default AS supplier_lead_time_default
        FROM product_suppliers ps
        JOIN suppliers s ON s.id = ps.supplier_id
        WHERE ps.product_id = $1
        ORDER BY ps.supplier_id
    `
	links := []model.SupplierLink{}
	if err := r.DB.SelectContext(ctx, &links, query, productID); err != nil {
		return nil, err
	}
	return links, nil
}
