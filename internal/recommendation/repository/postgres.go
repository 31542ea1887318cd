package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByProduct(ctx context.Context, productID string) (*model.StockRecommendation, error) {
	var rec model.StockRecommendation
	query := `SELECT * FROM stock_recommendations WHERE product_id = $1`
	err := r.DB.GetContext(ctx, &rec, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) Insert(ctx context.Context, rec *model.StockRecommendation) (bool, error) {
	query := `
        INSERT INTO stock_recommendations (
            id, product_id, min_stock, max_stock, safety_stock, reorder_point,
            forecasted_velocity, lead_time_variance, recommended_stock,
            economic_order_quantity, confidence, applied_at, created_at, updated_at
        )
        VALUES (
            :id, :product_id, :min_stock, :max_stock, :safety_stock, :reorder_point,
            :forecasted_velocity, :lead_time_variance, :recommended_stock,
            :economic_order_quantity, :confidence, :applied_at, :created_at, :updated_at
        )
        ON CONFLICT (product_id) DO NOTHING
    `
	res, err := r.DB.NamedExecContext(ctx, query, rec)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepository) Update(ctx context.Context, rec *model.StockRecommendation) error {
	query := `
        UPDATE stock_recommendations
        SET min_stock = :min_stock,
            max_stock = :max_stock,
            safety_stock = :safety_stock,
            reorder_point = :reorder_point,
            forecasted_velocity = :forecasted_velocity,
            lead_time_variance = :lead_time_variance,
            recommended_stock = :recommended_stock,
            economic_order_quantity = :economic_order_quantity,
            confidence = :confidence,
            applied_at = :applied_at,
            updated_at = :updated_at
        WHERE product_id = :product_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, rec)
	return err
}

func (r *PGRepository) ListTop(ctx context.Context, limit int) ([]model.StockRecommendation, error) {
	items := []model.StockRecommendation{}
	query := `SELECT * FROM stock_recommendations ORDER BY reorder_point DESC, created_at ASC, id ASC LIMIT $1`
	if err := r.DB.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RecommendationFilters) ([]model.RecommendationWithStock, int, error) {
	items := []model.RecommendationWithStock{}
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.AppliedOnly {
		conditions = append(conditions, "r.applied_at IS NOT NULL")
	}
	if f.MinGap != nil {
		conditions = append(conditions, "ABS(r.recommended_stock - p.stock) >= :min_gap")
		args["min_gap"] = *f.MinGap
	}

	from := " FROM stock_recommendations r JOIN products p ON p.id = r.product_id"
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*)"+from+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT r.*, p.stock AS current_stock" + from + whereClause + " ORDER BY r.updated_at DESC, r.id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &items, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) ApplyWithLog(ctx context.Context, rec *model.StockRecommendation, entry *model.InventoryLog) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Set stock, guarded by the value the caller read
	res, err := tx.ExecContext(ctx, `
        UPDATE products
        SET stock = $1, in_stock = $2, updated_at = $3
        WHERE id = $4 AND stock = $5
    `, entry.NewStock, entry.NewStock > 0, entry.CreatedAt, entry.ProductID, entry.PreviousStock)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrStockConflict
	}

	// 2. Log the change
	insertLogQuery := `
        INSERT INTO inventory_logs (
            id, product_id, previous_stock, new_stock, change, reason, created_by, created_at
        )
        VALUES (
            :id, :product_id, :previous_stock, :new_stock, :change, :reason, :created_by, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, insertLogQuery, entry); err != nil {
		return fmt.Errorf("failed to log inventory change: %w", err)
	}

	// 3. Mark the recommendation applied, unless it was regenerated meanwhile
	res, err = tx.ExecContext(ctx,
		`UPDATE stock_recommendations SET applied_at = $1 WHERE id = $2 AND recommended_stock = $3`,
		rec.AppliedAt, rec.ID, rec.RecommendedStock,
	)
	if err != nil {
		return fmt.Errorf("failed to mark recommendation applied: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrStockConflict
	}

	return tx.Commit()
}
