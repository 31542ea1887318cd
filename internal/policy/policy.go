// Package policy implements the classical inventory-control formulas used to turn a
// demand estimate into stock levels. Every function is pure: explicit numeric inputs,
// no clock, no store, no package state.
package policy

import (
	"math"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
)

// Default-recommendation constants for products without a usable velocity.
const (
	DefaultMinStockFloor    = 10
	DefaultMinStockRatio    = 0.2
	DefaultMaxStockRatio    = 1.5
	DefaultSafetyStockRatio = 0.25
)

const DaysPerYear = 365

// epsilon absorbs float noise so 14.000000000000002 does not ceil to 15.
const epsilon = 1e-9

type Params struct {
	ServiceLevelZ       float64
	MinStockMargin      float64
	ReplenishmentCycles float64
}

func (p Params) Validate() error {
	if p.ServiceLevelZ < 0 || math.IsNaN(p.ServiceLevelZ) {
		return apperror.Configuration("service_level_z", "must be >= 0")
	}
	if p.MinStockMargin < 0 || p.MinStockMargin >= 1 {
		return apperror.Configuration("min_stock_margin", "must be in [0, 1)")
	}
	if p.ReplenishmentCycles < 1 {
		return apperror.Configuration("replenishment_cycles", "must be >= 1")
	}
	return nil
}

type Input struct {
	DailyVelocity float64
	DemandStdDev  float64
	LeadTimeDays  float64
}

type Levels struct {
	MinStock         int
	MaxStock         int
	SafetyStock      int
	ReorderPoint     int
	RecommendedStock int
}

// SafetyStock is z × σ × √L, rounded up to whole units.
// Demand level does not enter it, only its spread.
func SafetyStock(demandStdDev, leadTimeDays, serviceLevelZ float64) int {
	return ceilUnits(serviceLevelZ * nonNegative(demandStdDev) * math.Sqrt(nonNegative(leadTimeDays)))
}

// ReorderPoint is expected lead-time demand plus safety stock.
func ReorderPoint(dailyVelocity, leadTimeDays float64, safetyStock int) int {
	return ceilUnits(nonNegative(dailyVelocity)*nonNegative(leadTimeDays) + float64(safetyStock))
}

// MinStock sits margin below the reorder point, never above it.
func MinStock(reorderPoint int, margin float64) int {
	return int(math.Floor(float64(reorderPoint) * (1 - margin)))
}

// MaxStock covers cycles lead times of demand on top of safety stock.
func MaxStock(dailyVelocity, leadTimeDays, cycles float64, safetyStock int) int {
	return ceilUnits(nonNegative(dailyVelocity)*nonNegative(leadTimeDays)*cycles + float64(safetyStock))
}

// RecommendedStock biases toward the upper half of the band but never below the reorder point.
func RecommendedStock(minStock, maxStock, reorderPoint int) int {
	mid := ceilUnits(float64(minStock+maxStock) / 2)
	if reorderPoint > mid {
		return reorderPoint
	}
	return mid
}

// Compute derives all stock levels. For valid params the result satisfies
// MinStock <= ReorderPoint <= MaxStock.
func Compute(in Input, p Params) (Levels, error) {
	if err := p.Validate(); err != nil {
		return Levels{}, err
	}

	safety := SafetyStock(in.DemandStdDev, in.LeadTimeDays, p.ServiceLevelZ)
	reorder := ReorderPoint(in.DailyVelocity, in.LeadTimeDays, safety)
	minStock := MinStock(reorder, p.MinStockMargin)
	maxStock := MaxStock(in.DailyVelocity, in.LeadTimeDays, p.ReplenishmentCycles, safety)

	return Levels{
		MinStock:         minStock,
		MaxStock:         maxStock,
		SafetyStock:      safety,
		ReorderPoint:     reorder,
		RecommendedStock: RecommendedStock(minStock, maxStock, reorder),
	}, nil
}

// DefaultLevels is the conservative policy for products with no sales velocity,
// derived from current stock alone.
func DefaultLevels(currentStock int) Levels {
	stock := float64(currentStock)
	if stock < 0 {
		stock = 0
	}

	minStock := ceilUnits(DefaultMinStockRatio * stock)
	if minStock < DefaultMinStockFloor {
		minStock = DefaultMinStockFloor
	}
	maxStock := ceilUnits(DefaultMaxStockRatio * stock)
	safety := ceilUnits(DefaultSafetyStockRatio * stock)
	reorder := minStock + safety

	return Levels{
		MinStock:         minStock,
		MaxStock:         maxStock,
		SafetyStock:      safety,
		ReorderPoint:     reorder,
		RecommendedStock: RecommendedStock(minStock, maxStock, reorder),
	}
}

// HoldingCost is the yearly cost of carrying one unit.
func HoldingCost(unitCost, holdingCostPercent float64) float64 {
	return unitCost * holdingCostPercent
}

// EconomicOrderQuantity is √(2DS/H). H <= 0 or S <= 0 is a ConfigurationError.
func EconomicOrderQuantity(annualDemand, orderCost, holdingCostPerUnit float64) (float64, error) {
	if holdingCostPerUnit <= 0 || math.IsNaN(holdingCostPerUnit) {
		return 0, apperror.Configuration("holding_cost_per_unit", "must be > 0")
	}
	if orderCost <= 0 || math.IsNaN(orderCost) {
		return 0, apperror.Configuration("order_cost", "must be > 0")
	}
	if annualDemand <= 0 {
		return 0, nil
	}
	return math.Sqrt(2 * annualDemand * orderCost / holdingCostPerUnit), nil
}

func ceilUnits(x float64) int {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	return int(math.Ceil(x - epsilon))
}

func nonNegative(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	return x
}
