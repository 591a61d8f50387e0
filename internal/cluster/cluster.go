// Package cluster derives the volume-profile summary for a candle. The
// profile is a coarse equal-split of the candle's aggregate buy/sell volumes
// across evenly spaced price levels between low and high; it does not retain
// per-trade prices.
package cluster

import "github.com/serted/cryptocluster/internal/domain"

// DefaultLevels is the number of price levels in a candle's profile.
const DefaultLevels = 10

// Calculate returns the ordered cluster levels for a candle's price range
// and aggregate volumes. A degenerate range (high <= low) yields no levels.
// Level i sits at low + i*step with step = (high-low)/levels. Each level
// receives buyVolume/levels and sellVolume/levels; Volume carries the
// undivided aggregate total and Delta the undivided difference.
func Calculate(low, high, buyVolume, sellVolume float64, levels int) []domain.Cluster {
	if levels <= 0 {
		levels = DefaultLevels
	}
	priceRange := high - low
	if priceRange <= 0 {
		return nil
	}

	step := priceRange / float64(levels)
	aggr := Aggression(buyVolume, sellVolume)

	clusters := make([]domain.Cluster, 0, levels)
	for i := 0; i < levels; i++ {
		clusters = append(clusters, domain.Cluster{
			Price:      low + float64(i)*step,
			Volume:     buyVolume + sellVolume,
			BuyVolume:  buyVolume / float64(levels),
			SellVolume: sellVolume / float64(levels),
			Delta:      buyVolume - sellVolume,
			Aggression: aggr,
		})
	}
	return clusters
}

// Aggression is the normalized buy-vs-sell pressure in [-1, 1], defined as
// zero when no volume traded.
func Aggression(buyVolume, sellVolume float64) float64 {
	total := buyVolume + sellVolume
	if total == 0 {
		return 0
	}
	return (buyVolume - sellVolume) / total
}
