package strategy

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// Rule evaluates one asset snapshot against its parameters. The returned
// bool is false when the rule does not fire.
type Rule func(asset domain.Asset, params Params) (domain.Signal, bool)

var rules = map[Kind]Rule{
	KindMomentum:      momentum,
	KindMeanReversion: meanReversion,
	KindBreakout:      breakout,
	KindVolumeSpike:   volumeSpike,
	KindHolderGrowth:  holderGrowth,
}

// RuleFor returns the evaluation function for k.
func RuleFor(k Kind) (Rule, bool) {
	r, ok := rules[k]
	return r, ok
}

func buy(k Kind, asset domain.Asset, confidence float64, multiplier float64, reason string) domain.Signal {
	expected := asset.PriceUSD * multiplier
	return domain.NewSignal(k.String(), asset, domain.ActionBuy, confidence, reason, &expected)
}

// clampCount bounds a count parameter to [0, limit] so the unsigned
// conversion is defined. NaN becomes 0.
func clampCount(v, limit float64) float64 {
	switch {
	case !(v > 0):
		return 0
	case v > limit:
		return limit
	}
	return v
}

func momentum(asset domain.Asset, p Params) (domain.Signal, bool) {
	minChange := p.Get("min_price_change", 5.0)
	minRatio := p.Get("min_volume_ratio", 2.0)

	ratio := asset.VolumeToLiquidity()
	if asset.PriceChange24h < minChange || ratio < minRatio {
		return domain.Signal{}, false
	}
	reason := fmt.Sprintf("Momentum: Price up %.2f%%, Volume ratio %.2f", asset.PriceChange24h, ratio)
	return buy(KindMomentum, asset, asset.PriceChange24h/100, 1.1, reason), true
}

func meanReversion(asset domain.Asset, p Params) (domain.Signal, bool) {
	maxChange := p.Get("max_price_change", -10.0)
	minRatio := p.Get("min_liquidity_ratio", 0.1)

	ratio := asset.LiquidityToMarketCap()
	if asset.PriceChange24h > maxChange || ratio < minRatio {
		return domain.Signal{}, false
	}
	reason := fmt.Sprintf("Mean Reversion: Price down %.2f%%, Liquidity ratio %.2f", asset.PriceChange24h, ratio)
	return buy(KindMeanReversion, asset, -asset.PriceChange24h/100, 1.05, reason), true
}

func breakout(asset domain.Asset, p Params) (domain.Signal, bool) {
	minSpike := p.Get("min_volume_spike", 3.0)
	minMomentum := p.Get("min_price_momentum", 2.0)

	spike := asset.VolumeToLiquidity()
	if spike < minSpike || asset.PriceChange24h < minMomentum {
		return domain.Signal{}, false
	}
	reason := fmt.Sprintf("Breakout: Volume spike %.2fx, Price momentum %.2f%%", spike, asset.PriceChange24h)
	return buy(KindBreakout, asset, spike/10, 1.15, reason), true
}

func volumeSpike(asset domain.Asset, p Params) (domain.Signal, bool) {
	minMultiplier := p.Get("min_volume_multiplier", 5.0)
	minHolders := uint32(clampCount(p.Get("min_holders", 50), math.MaxUint32))

	multiplier := asset.VolumeToLiquidity()
	if multiplier < minMultiplier || asset.Holders < minHolders {
		return domain.Signal{}, false
	}
	reason := fmt.Sprintf("Volume Spike: %.2fx volume, %d holders", multiplier, asset.Holders)
	return buy(KindVolumeSpike, asset, multiplier/20, 1.2, reason), true
}

func holderGrowth(asset domain.Asset, p Params) (domain.Signal, bool) {
	minHolders := uint32(clampCount(p.Get("min_holders", 100), math.MaxUint32))
	minCap := uint64(clampCount(p.Get("min_market_cap", 500_000), 1<<63))
	minRatio := p.Get("min_holder_ratio", 0.1)

	if asset.Holders < minHolders || asset.MarketCap < minCap || asset.MarketCap == 0 {
		return domain.Signal{}, false
	}
	capMillions := float64(asset.MarketCap) / 1_000_000
	ratio := float64(asset.Holders) / capMillions
	if ratio < minRatio {
		return domain.Signal{}, false
	}
	reason := fmt.Sprintf("Holder Growth: %d holders, $%.0fM market cap", asset.Holders, capMillions)
	return buy(KindHolderGrowth, asset, ratio/2, 1.08, reason), true
}
