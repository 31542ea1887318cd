package dto

import (
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/shopspring/decimal"
)

type RecommendationBatchResult struct {
	Generated int `json:"generated"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

type ApplyResult struct {
	ProductID     string    `json:"product_id"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Change        int       `json:"change"`
	AppliedAt     time.Time `json:"applied_at"`
}

type RecommendationFilters struct {
	AppliedOnly bool
	MinGap      *int // keep rows where |recommended_stock - stock| >= MinGap
	Page        int
	PageSize    int
}

type VelocityForecast struct {
	Velocity                model.SalesVelocity `json:"velocity"`
	Price                   decimal.Decimal     `json:"price"`
	EstimatedMonthlyRevenue decimal.Decimal     `json:"estimated_monthly_revenue"`
}
