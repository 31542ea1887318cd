package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByProduct(ctx context.Context, productID string) (*model.SalesVelocity, error) {
	var v model.SalesVelocity
	query := `SELECT * FROM sales_velocities WHERE product_id = $1`
	err := r.DB.GetContext(ctx, &v, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) Insert(ctx context.Context, v *model.SalesVelocity) (bool, error) {
	query := `
        INSERT INTO sales_velocities (
            id, product_id, daily_velocity, weekly_velocity, monthly_velocity,
            variance_daily_demand, last_updated, created_at
        )
        VALUES (
            :id, :product_id, :daily_velocity, :weekly_velocity, :monthly_velocity,
            :variance_daily_demand, :last_updated, :created_at
        )
        ON CONFLICT (product_id) DO NOTHING
    `
	res, err := r.DB.NamedExecContext(ctx, query, v)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Update writes all velocity figures in one statement so they never diverge.
func (r *PGRepository) Update(ctx context.Context, v *model.SalesVelocity) error {
	query := `
        UPDATE sales_velocities
        SET daily_velocity = :daily_velocity,
            weekly_velocity = :weekly_velocity,
            monthly_velocity = :monthly_velocity,
            variance_daily_demand = :variance_daily_demand,
            last_updated = :last_updated
        WHERE product_id = :product_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, v)
	return err
}

func (r *PGRepository) ListTop(ctx context.Context, limit int) ([]model.SalesVelocity, error) {
	items := []model.SalesVelocity{}
	query := `SELECT * FROM sales_velocities ORDER BY daily_velocity DESC, created_at ASC, id ASC LIMIT $1`
	if err := r.DB.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, err
	}
	return items, nil
}
