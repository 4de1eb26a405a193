// Package risk scores customers from their debt and payment history.
package risk

import (
	"math"
	"time"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Risk levels.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// Factors are the sub-scores, each within 0..100.
type Factors struct {
	PaymentHistory float64 `json:"paymentHistory"`
	DebtAmount     float64 `json:"debtAmount"`
	Overdue        float64 `json:"overdue"`
	AccountAge     float64 `json:"accountAge"`
	Frequency      float64 `json:"frequency"`
}

// CreditScore is the weighted score of one customer.
type CreditScore struct {
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Score        float64   `json:"score"`
	Level        string    `json:"level"`
	Factors      Factors   `json:"factors"`
	PaymentCount int       `json:"paymentCount"`
	OverdueDebts int       `json:"overdueDebts"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

// CalculateCreditScore scores customerID as of now.
func CalculateCreditScore(s ledger.State, customerID string, now time.Time, cfg Config) (CreditScore, error) {
	debts := s.CustomerDebts(customerID)
	if len(debts) == 0 {
		return CreditScore{}, errCustomerNotFound
	}
	payments := s.CustomerPayments(customerID)

	first := debts[0].CreatedAt
	overdue := 0
	outstanding := 0.0
	for _, d := range debts {
		if d.CreatedAt.Before(first) {
			first = d.CreatedAt
		}
		if d.IsOverdue(now) {
			overdue++
		}
		outstanding += d.RemainingAmount.InexactFloat64()
	}
	ageDays := math.Max(now.Sub(first).Hours()/24, 0)

	f := Factors{
		PaymentHistory: clamp(float64(len(payments)) * cfg.Scales.PointsPerPayment),
		DebtAmount:     100 - clamp(ratio(outstanding, cfg.Scales.OutstandingCeiling)*100),
		Overdue:        100 - clamp(float64(overdue)*100/float64(len(debts))),
		AccountAge:     clamp(ratio(ageDays, cfg.Scales.MatureAccountDays) * 100),
	}
	if len(payments) > 0 {
		windows := math.Max(ageDays, cfg.Scales.FrequencyWindowDays) / cfg.Scales.FrequencyWindowDays
		perWindow := float64(len(payments)) / windows
		f.Frequency = clamp(ratio(perWindow, cfg.Scales.TargetPayments) * 100)
	}

	w := cfg.Weights
	score := f.PaymentHistory*w.PaymentHistory +
		f.DebtAmount*w.DebtAmount +
		f.Overdue*w.Overdue +
		f.AccountAge*w.AccountAge +
		f.Frequency*w.Frequency
	score = round2(clamp(score))

	return CreditScore{
		CustomerID:   customerID,
		CustomerName: debts[0].CustomerName,
		Score:        score,
		Level:        levelFor(score, cfg.Levels),
		Factors:      roundFactors(f),
		PaymentCount: len(payments),
		OverdueDebts: overdue,
		CalculatedAt: now,
	}, nil
}

func levelFor(score float64, l Levels) string {
	switch {
	case score >= l.Low:
		return LevelLow
	case score >= l.Medium:
		return LevelMedium
	case score >= l.High:
		return LevelHigh
	default:
		return LevelCritical
	}
}

func roundFactors(f Factors) Factors {
	return Factors{
		PaymentHistory: round2(f.PaymentHistory),
		DebtAmount:     round2(f.DebtAmount),
		Overdue:        round2(f.Overdue),
		AccountAge:     round2(f.AccountAge),
		Frequency:      round2(f.Frequency),
	}
}

func ratio(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return v / scale
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
