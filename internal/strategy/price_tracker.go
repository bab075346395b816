package strategy

import (
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const (
	takeProfitPercent = 20.0
	stopLossPercent   = 10.0
)

// PriceTracker maintains a bounded history of recent prices per asset.
// Points older than the window, or beyond maxPoints per asset, are dropped
// on every Track call; assets that go quiet are removed by Prune.
type PriceTracker struct {
	history    map[string][]domain.PricePoint
	windowSize time.Duration
	maxPoints  int
	mu         sync.RWMutex
}

// NewPriceTracker creates a PriceTracker. A non-positive windowSize or
// maxPoints disables that bound.
func NewPriceTracker(windowSize time.Duration, maxPoints int) *PriceTracker {
	return &PriceTracker{
		history:    make(map[string][]domain.PricePoint),
		windowSize: windowSize,
		maxPoints:  maxPoints,
	}
}

// Track records a price observation for assetID and trims the history.
func (pt *PriceTracker) Track(assetID string, price float64, ts time.Time) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.history[assetID] = append(pt.history[assetID], domain.PricePoint{
		Price: price,
		Time:  ts,
	})
	pt.trim(assetID, ts)
}

// History returns a copy of the retained price history for assetID.
func (pt *PriceTracker) History(assetID string) []domain.PricePoint {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	src := pt.history[assetID]
	if len(src) == 0 {
		return nil
	}
	out := make([]domain.PricePoint, len(src))
	copy(out, src)
	return out
}

// Latest returns the most recent observation for assetID.
func (pt *PriceTracker) Latest(assetID string) (domain.PricePoint, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pts := pt.history[assetID]
	if len(pts) == 0 {
		return domain.PricePoint{}, false
	}
	return pts[len(pts)-1], true
}

// Average returns the arithmetic mean of the retained prices, or 0.
func (pt *PriceTracker) Average(assetID string) float64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pts := pt.history[assetID]
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.Price
	}
	return sum / float64(len(pts))
}

// Volatility returns the population standard deviation of the retained
// prices. Fewer than two points yields 0.
func (pt *PriceTracker) Volatility(assetID string) float64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pts := pt.history[assetID]
	if len(pts) < 2 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.Price
	}
	mean := sum / float64(len(pts))

	var variance float64
	for _, p := range pts {
		d := p.Price - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(pts)))
}

// Len returns the number of assets currently tracked.
func (pt *PriceTracker) Len() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.history)
}

// Prune drops points older than the window relative to now and forgets
// assets left with no points. It returns the number of assets removed.
func (pt *PriceTracker) Prune(now time.Time) int {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	removed := 0
	for id := range pt.history {
		pt.trim(id, now)
		if len(pt.history[id]) == 0 {
			delete(pt.history, id)
			removed++
		}
	}
	return removed
}

// trim must be called with pt.mu held.
func (pt *PriceTracker) trim(assetID string, now time.Time) {
	pts := pt.history[assetID]
	start := 0
	if pt.windowSize > 0 {
		cutoff := now.Add(-pt.windowSize)
		for start < len(pts) && pts[start].Time.Before(cutoff) {
			start++
		}
	}
	if pt.maxPoints > 0 && len(pts)-start > pt.maxPoints {
		start = len(pts) - pt.maxPoints
	}
	if start > 0 {
		kept := make([]domain.PricePoint, len(pts)-start)
		copy(kept, pts[start:])
		pt.history[assetID] = kept
	}
}

// ShouldSell reports whether current has moved at least 20% above or 10%
// below entry. An unknown (zero) entry price never triggers.
func ShouldSell(current, entry float64) bool {
	if entry == 0 {
		return false
	}
	profit := (current - entry) / entry * 100
	loss := (entry - current) / entry * 100
	return profit >= takeProfitPercent || loss >= stopLossPercent
}
