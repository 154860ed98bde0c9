// Package profit classifies completed foods by how much their selling price
// clears their rolled-up cost. It owns the only profit-rate threshold table.
package profit

import (
	"github.com/shopspring/decimal"
)

// Tier is a profitability label.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierPoor      Tier = "poor"
	TierLoss      Tier = "loss"
	TierUnset     Tier = "unset"
)

// thresholds are checked in order; the first minimum the rate reaches wins.
// Rates below the last minimum are a loss.
var thresholds = []struct {
	min  float64
	tier Tier
}{
	{30, TierExcellent},
	{15, TierGood},
	{0, TierPoor},
}

// Result is the classification of one price/cost pair.
type Result struct {
	Priced    bool    `json:"priced"`
	Price     float64 `json:"price"`
	TotalCost float64 `json:"total_cost"`
	// Profit is price - cost and may be negative; use it for loss detection.
	Profit float64 `json:"profit"`
	// ProfitClamped is max(0, Profit); use it for profit magnitude labels.
	ProfitClamped float64 `json:"profit_clamped"`
	Rate          float64 `json:"profit_rate"`
	Tier          Tier    `json:"tier"`
}

// Classify derives profit, profit rate and tier. A nil price yields the unset tier
// with zero profit and rate. The tier follows the rate alone, so a zero price
// rates 0 and is poor; IsLoss reports the raw shortfall.
func Classify(price *float64, totalCost float64) Result {
	result := Result{TotalCost: totalCost, Tier: TierUnset}
	if price == nil {
		return result
	}

	result.Priced = true
	result.Price = *price
	result.Profit = Profit(price, totalCost)
	result.ProfitClamped = ClampedProfit(price, totalCost)
	result.Rate = Rate(price, totalCost)
	result.Tier = TierFor(result.Rate)
	return result
}

// Profit returns the raw price - cost delta, or 0 when unpriced.
func Profit(price *float64, totalCost float64) float64 {
	if price == nil {
		return 0
	}
	return *price - totalCost
}

// ClampedProfit returns Profit floored at zero.
func ClampedProfit(price *float64, totalCost float64) float64 {
	return max(0, Profit(price, totalCost))
}

// Rate returns (price - cost) / price * 100, or 0 when the price is absent or
// not positive. The value is not clamped.
func Rate(price *float64, totalCost float64) float64 {
	if price == nil || *price <= 0 {
		return 0
	}
	return (*price - totalCost) / *price * 100
}

// TierFor maps a profit rate onto the threshold table.
func TierFor(rate float64) Tier {
	for _, threshold := range thresholds {
		if rate >= threshold.min {
			return threshold.tier
		}
	}
	return TierLoss
}

// IsLoss reports whether the food sells below its cost.
func (r Result) IsLoss() bool {
	return r.Priced && r.Profit < 0
}

// ProfitLabel formats the clamped profit for display, or "-" when unpriced.
func (r Result) ProfitLabel() string {
	if !r.Priced {
		return "-"
	}
	return FormatMoney(r.ProfitClamped)
}

// RateLabel formats the profit rate with one decimal place, or "-" when unpriced.
func (r Result) RateLabel() string {
	if !r.Priced {
		return "-"
	}
	return decimal.NewFromFloat(r.Rate).StringFixed(1) + "%"
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// RoundMoney rounds an amount half away from zero to two decimal places.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
