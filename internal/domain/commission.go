package domain

import "github.com/shopspring/decimal"

// commissionTiers maps inclusive sales thresholds to percentage rates,
// highest threshold first.
var commissionTiers = []struct {
	threshold decimal.Decimal
	rate      decimal.Decimal
}{
	{decimal.NewFromInt(10000), decimal.NewFromInt(4)},
	{decimal.NewFromInt(8500), decimal.NewFromInt(3)},
	{decimal.NewFromInt(7500), decimal.NewFromInt(2)},
	{decimal.NewFromInt(6000), decimal.RequireFromString("1.5")},
}

var baseRate = decimal.NewFromInt(1)

var oneHundred = decimal.NewFromInt(100)

// Commission returns the tiered commission for a sales amount.
// Non-positive sales earn nothing. No rounding is applied; formatting is a
// presentation concern.
func Commission(sales decimal.Decimal) decimal.Decimal {
	if sales.Sign() <= 0 {
		return decimal.Zero
	}
	rate := baseRate
	for _, tier := range commissionTiers {
		if sales.GreaterThanOrEqual(tier.threshold) {
			rate = tier.rate
			break
		}
	}
	return sales.Mul(rate).Div(oneHundred)
}
