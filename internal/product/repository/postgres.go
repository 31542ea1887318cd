package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, sku, price, stock, in_stock, is_active, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE ORDER BY created_at, id`
	if err := r.DB.SelectContext(ctx, &products, query); err != nil {
		return nil, err
	}
	return products, nil
}
