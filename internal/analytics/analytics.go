// Package analytics maintains the running market statistics: an append-only
// time series of trade samples and the derived mean, volatility, and
// liquidity figures.
//
// Monetary values use shopspring/decimal. The volatility computation needs a
// square root, so it bridges through float64 and rounds the result back to
// decimal immediately.
package analytics

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
)

// Scale is the number of decimal places for derived statistics.
const Scale int32 = 8

// DefaultPrice is reported as the average when no samples exist. Callers
// display it as a market default, not an error.
var DefaultPrice = decimal.NewFromFloat(0.15)

// DefaultHistoryPoints bounds history queries when the caller passes zero.
const DefaultHistoryPoints = 20

// Engine records one sample per executed trade and keeps the full series,
// with no eviction. Volatility is the population standard deviation over all
// recorded prices, recomputed in O(n) per sample; history stays small enough
// in this domain that an incremental update is not worth the complexity.
type Engine struct {
	mu         sync.RWMutex
	prices     []decimal.Decimal
	volumes    []decimal.Decimal
	timestamps []time.Time
	volatility decimal.Decimal
	total      decimal.Decimal // running sum of recorded volumes
}

// New creates an empty analytics engine.
func New() *Engine {
	return &Engine{}
}

// RecordSample appends one (timestamp, price, volume) triple and recomputes
// the price volatility once at least two samples exist.
func (e *Engine) RecordSample(amount, price decimal.Decimal, ts time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prices = append(e.prices, price)
	e.volumes = append(e.volumes, amount)
	e.timestamps = append(e.timestamps, ts)
	e.total = e.total.Add(amount)

	if len(e.prices) >= 2 {
		e.volatility = stddev(e.prices)
	}
}

// stddev computes the population standard deviation of prices through a
// float64 bridge, rounded back to decimal at Scale.
func stddev(prices []decimal.Decimal) decimal.Decimal {
	var mean float64
	for _, p := range prices {
		mean += p.InexactFloat64()
	}
	mean /= float64(len(prices))

	var variance float64
	for _, p := range prices {
		d := p.InexactFloat64() - mean
		variance += d * d
	}
	variance /= float64(len(prices))

	return decimal.NewFromFloat(math.Sqrt(variance)).Round(Scale)
}

// AveragePrice returns the arithmetic mean of recorded prices, or
// DefaultPrice when no samples exist.
func (e *Engine) AveragePrice() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.prices) == 0 {
		return DefaultPrice
	}
	sum := decimal.Zero
	for _, p := range e.prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(e.prices))))
}

// TotalVolume returns the running sum of all recorded amounts.
func (e *Engine) TotalVolume() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.total
}

// PriceVolatility returns the last computed standard deviation, zero until
// at least two samples exist.
func (e *Engine) PriceVolatility() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.volatility
}

// PriceHistory returns the most recent maxPoints price samples in
// chronological order, or all of them if fewer exist.
func (e *Engine) PriceHistory(maxPoints int) []model.HistoryPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.historyLocked(e.prices, maxPoints)
}

// VolumeHistory returns the most recent maxPoints volume samples in
// chronological order, or all of them if fewer exist.
func (e *Engine) VolumeHistory(maxPoints int) []model.HistoryPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.historyLocked(e.volumes, maxPoints)
}

func (e *Engine) historyLocked(series []decimal.Decimal, maxPoints int) []model.HistoryPoint {
	if maxPoints <= 0 {
		maxPoints = DefaultHistoryPoints
	}
	start := 0
	if len(series) > maxPoints {
		start = len(series) - maxPoints
	}

	points := make([]model.HistoryPoint, 0, len(series)-start)
	for i := start; i < len(series); i++ {
		points = append(points, model.HistoryPoint{
			Timestamp: e.timestamps[i],
			Value:     series[i],
		})
	}
	return points
}

// Liquidity derives (totalVolume / sampleCount) × 100, zero with no samples.
func (e *Engine) Liquidity() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.prices) == 0 {
		return decimal.Zero
	}
	return e.total.
		Div(decimal.NewFromInt(int64(len(e.prices)))).
		Mul(decimal.NewFromInt(100))
}
