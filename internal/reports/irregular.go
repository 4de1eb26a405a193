package reports

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Irregularity reasons.
const (
	ReasonTooLarge  = "too_large"
	ReasonTooSmall  = "too_small"
	ReasonIrregular = "irregular"
)

// IrregularPayment is a payment far from the mean amount.
type IrregularPayment struct {
	Payment   ledger.Payment  `json:"payment"`
	Deviation decimal.Decimal `json:"deviation"`
	Reason    string          `json:"reason"`
}

// IrregularReport lists payments at least Sigma standard deviations from the mean.
type IrregularReport struct {
	Mean     decimal.Decimal    `json:"mean"`
	StdDev   float64            `json:"stdDev"`
	Sigma    float64            `json:"sigma"`
	Payments []IrregularPayment `json:"payments"`
}

// IrregularPaymentReport flags payments with |amount - mean| >= sigma * stddev
// using the population standard deviation. The comparison is done on values
// scaled by the payment count so it stays exact in decimal arithmetic.
func IrregularPaymentReport(s ledger.State, cfg IrregularConfig) IrregularReport {
	report := IrregularReport{Mean: decimal.Zero, Sigma: cfg.Sigma, Payments: []IrregularPayment{}}
	n := len(s.Payments)
	if n == 0 {
		return report
	}
	count := decimal.NewFromInt(int64(n))
	sum, sumSquares := decimal.Zero, decimal.Zero
	for _, p := range s.Payments {
		sum = sum.Add(p.Amount)
		sumSquares = sumSquares.Add(p.Amount.Mul(p.Amount))
	}
	report.Mean = sum.Div(count).Round(2)

	// n^2 * variance
	scaledVariance := count.Mul(sumSquares).Sub(sum.Mul(sum))
	if !scaledVariance.IsPositive() {
		return report
	}
	variance := scaledVariance.Div(count.Mul(count))
	report.StdDev = roundTo(math.Sqrt(variance.InexactFloat64()), 2)

	sigma := decimal.NewFromFloat(cfg.Sigma)
	threshold := sigma.Mul(sigma).Mul(scaledVariance)
	large := decimal.NewFromFloat(cfg.LargeRatio).Mul(sum)
	small := decimal.NewFromFloat(cfg.SmallRatio).Mul(sum)
	for _, p := range s.Payments {
		scaled := p.Amount.Mul(count)
		diff := scaled.Sub(sum)
		if diff.Mul(diff).LessThan(threshold) {
			continue
		}
		reason := ReasonIrregular
		switch {
		case diff.IsPositive() && scaled.GreaterThanOrEqual(large):
			reason = ReasonTooLarge
		case diff.IsNegative() && scaled.LessThanOrEqual(small):
			reason = ReasonTooSmall
		}
		report.Payments = append(report.Payments, IrregularPayment{
			Payment:   p,
			Deviation: diff.Div(count).Abs().Round(2),
			Reason:    reason,
		})
	}
	return report
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
