package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.2, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampConfidence(tt.in), "in=%v", tt.in)
	}
}

func TestRealizedPnL(t *testing.T) {
	assert.InDelta(t, 500.0, RealizedPnL(1.0, 1.5, 1_000_000_000), 1e-9)
	assert.InDelta(t, -0.2, RealizedPnL(2.0, 1.8, 1_000_000), 1e-9)
	assert.Equal(t, 0.0, RealizedPnL(1.0, 2.0, 0))
}

func TestAlertLevelText(t *testing.T) {
	b, err := AlertCritical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Critical", string(b))

	var l AlertLevel
	require.NoError(t, l.UnmarshalText([]byte("warning")))
	assert.Equal(t, AlertWarning, l)
	assert.Error(t, l.UnmarshalText([]byte("fatal")))
	assert.Equal(t, "AlertLevel(9)", AlertLevel(9).String())
}

func TestAssetRatios(t *testing.T) {
	a := Asset{Liquidity: 200, Volume24h: 600, MarketCap: 1000}
	assert.Equal(t, 3.0, a.VolumeToLiquidity())
	assert.Equal(t, 0.2, a.LiquidityToMarketCap())
	assert.Equal(t, 0.0, Asset{}.VolumeToLiquidity())
	assert.Equal(t, 0.0, Asset{}.LiquidityToMarketCap())
}

func TestPositionProfitPercent(t *testing.T) {
	p := Position{EntryPrice: 2}
	assert.InDelta(t, 25.0, p.ProfitPercent(2.5), 1e-9)
	assert.InDelta(t, -10.0, p.ProfitPercent(1.8), 1e-9)
	assert.Equal(t, 0.0, Position{}.ProfitPercent(1))
}
