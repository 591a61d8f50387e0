package cluster

import (
	"math"
	"testing"
)

func TestCalculateLevels(t *testing.T) {
	clusters := Calculate(100, 110, 6, 4, 5)

	if len(clusters) != 5 {
		t.Fatalf("got %d clusters, want 5", len(clusters))
	}

	wantPrices := []float64{100, 102, 104, 106, 108}
	for i, c := range clusters {
		if math.Abs(c.Price-wantPrices[i]) > 1e-9 {
			t.Errorf("cluster %d price = %v, want %v", i, c.Price, wantPrices[i])
		}
		if math.Abs(c.BuyVolume-1.2) > 1e-9 {
			t.Errorf("cluster %d buyVolume = %v, want 1.2", i, c.BuyVolume)
		}
		if math.Abs(c.SellVolume-0.8) > 1e-9 {
			t.Errorf("cluster %d sellVolume = %v, want 0.8", i, c.SellVolume)
		}
		if math.Abs(c.Delta-2) > 1e-9 {
			t.Errorf("cluster %d delta = %v, want 2", i, c.Delta)
		}
		if math.Abs(c.Aggression-0.2) > 1e-9 {
			t.Errorf("cluster %d aggression = %v, want 0.2", i, c.Aggression)
		}
		if math.Abs(c.Volume-10) > 1e-9 {
			t.Errorf("cluster %d volume = %v, want 10", i, c.Volume)
		}
	}
}

func TestCalculateEqualSplitSums(t *testing.T) {
	const buy, sell = 7.3, 2.9
	clusters := Calculate(50, 75, buy, sell, 10)

	if len(clusters) != 10 {
		t.Fatalf("got %d clusters, want 10", len(clusters))
	}

	var sumBuy, sumSell float64
	for _, c := range clusters {
		sumBuy += c.BuyVolume
		sumSell += c.SellVolume
	}
	if math.Abs(sumBuy-buy) > 1e-9 {
		t.Errorf("sum of cluster buyVolume = %v, want %v", sumBuy, buy)
	}
	if math.Abs(sumSell-sell) > 1e-9 {
		t.Errorf("sum of cluster sellVolume = %v, want %v", sumSell, sell)
	}
}

func TestCalculateDegenerateRange(t *testing.T) {
	if got := Calculate(100, 100, 5, 3, 10); len(got) != 0 {
		t.Errorf("flat range: got %d clusters, want 0", len(got))
	}
	// A negative range is treated the same way as a flat one.
	if got := Calculate(110, 100, 5, 3, 10); len(got) != 0 {
		t.Errorf("negative range: got %d clusters, want 0", len(got))
	}
}

func TestCalculateDefaultLevels(t *testing.T) {
	if got := Calculate(1, 2, 1, 1, 0); len(got) != DefaultLevels {
		t.Errorf("got %d clusters, want %d", len(got), DefaultLevels)
	}
}

func TestAggression(t *testing.T) {
	tests := []struct {
		name string
		buy  float64
		sell float64
		want float64
	}{
		{"zero volume", 0, 0, 0},
		{"balanced", 5, 5, 0},
		{"all buys", 5, 0, 1},
		{"all sells", 0, 5, -1},
		{"buy pressure", 6, 4, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggression(tt.buy, tt.sell)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Aggression(%v, %v) = %v, want %v", tt.buy, tt.sell, got, tt.want)
			}
			if got < -1 || got > 1 {
				t.Errorf("Aggression(%v, %v) = %v, out of [-1, 1]", tt.buy, tt.sell, got)
			}
		})
	}
}
