package velocity

import (
	"math"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

const Day = 24 * time.Hour

// SumQuantity adds positive quantities of lines in [since, until).
func SumQuantity(lines []model.OrderLine, since, until time.Time) float64 {
	total := 0
	for _, l := range lines {
		if l.Quantity <= 0 || l.CreatedAt.Before(since) || !l.CreatedAt.Before(until) {
			continue
		}
		total += l.Quantity
	}
	return float64(total)
}

// DailySeries buckets lines into exactly days 24h buckets starting at since.
// Buckets are rolling slots aligned to since, not calendar days: with since at
// 12:00, a bucket runs from noon to noon. Days without orders stay 0 so quiet
// days count toward the spread.
func DailySeries(lines []model.OrderLine, since time.Time, days int) []float64 {
	if days <= 0 {
		return []float64{}
	}
	series := make([]float64, days)
	for _, l := range lines {
		if l.Quantity <= 0 || l.CreatedAt.Before(since) {
			continue
		}
		idx := int(l.CreatedAt.Sub(since) / Day)
		if idx >= days {
			continue
		}
		series[idx] += float64(l.Quantity)
	}
	return series
}

// StdDev is the population standard deviation; 0 for an empty series.
func StdDev(series []float64) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, v := range series {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}
