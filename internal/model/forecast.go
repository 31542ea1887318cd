package model

import "time"

type SalesVelocity struct {
	ID                  string    `db:"id" json:"id"`
	ProductID           string    `db:"product_id" json:"product_id"`
	DailyVelocity       float64   `db:"daily_velocity" json:"daily_velocity"`
	WeeklyVelocity      float64   `db:"weekly_velocity" json:"weekly_velocity"`
	MonthlyVelocity     float64   `db:"monthly_velocity" json:"monthly_velocity"`
	VarianceDailyDemand float64   `db:"variance_daily_demand" json:"variance_daily_demand"` // std-dev of daily demand
	LastUpdated         time.Time `db:"last_updated" json:"last_updated"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

type StockRecommendation struct {
	ID                    string     `db:"id" json:"id"`
	ProductID             string     `db:"product_id" json:"product_id"`
	MinStock              int        `db:"min_stock" json:"min_stock"`
	MaxStock              int        `db:"max_stock" json:"max_stock"`
	SafetyStock           int        `db:"safety_stock" json:"safety_stock"`
	ReorderPoint          int        `db:"reorder_point" json:"reorder_point"`
	ForecastedVelocity    float64    `db:"forecasted_velocity" json:"forecasted_velocity"`
	LeadTimeVariance      float64    `db:"lead_time_variance" json:"lead_time_variance"`
	RecommendedStock      int        `db:"recommended_stock" json:"recommended_stock"`
	EconomicOrderQuantity float64    `db:"economic_order_quantity" json:"economic_order_quantity"`
	Confidence            float64    `db:"confidence" json:"confidence"`
	AppliedAt             *time.Time `db:"applied_at" json:"applied_at"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// RecommendationWithStock joins a recommendation with the product's live stock.
type RecommendationWithStock struct {
	StockRecommendation
	CurrentStock int `db:"current_stock" json:"current_stock"`
}
