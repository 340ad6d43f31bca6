// Package pricing resolves the unit or per-kilogram price for a product and
// customer tier. Pure; no store access.
package pricing

import (
	"math"

	"cremeria/store"
)

// Round2 rounds a money amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func tierLevel(tier string) int {
	switch tier {
	case store.TierWholesale1:
		return 1
	case store.TierWholesale2:
		return 2
	case store.TierWholesale3:
		return 3
	}
	return 0
}

// Resolve returns the applicable price for one unit (by-unit products) or one
// kilogram (by-weight products). Wholesale tiers without an explicit price get
// a 5% discount per tier level off the normal price.
func Resolve(p *store.Product, tier string) float64 {
	n := tierLevel(tier)

	if p.SaleMode == store.SaleModeKg {
		price := p.PricePerKg
		if n > 0 {
			price = price * (1 - 0.05*float64(n))
		}
		return Round2(math.Max(price, 0))
	}

	if n > 0 {
		explicit := [4]float64{0, p.PriceWholesale1, p.PriceWholesale2, p.PriceWholesale3}[n]
		if explicit > 0 {
			return Round2(explicit)
		}
		return Round2(math.Max(p.PriceNormal*(1-0.05*float64(n)), 0))
	}
	return Round2(math.Max(p.PriceNormal, 0))
}
