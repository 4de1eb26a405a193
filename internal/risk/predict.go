package risk

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Prediction estimates the next payment of a customer.
type Prediction struct {
	CustomerID          string          `json:"customerId"`
	NextPaymentDate     time.Time       `json:"nextPaymentDate"`
	AverageIntervalDays float64         `json:"averageIntervalDays"`
	ExpectedAmount      decimal.Decimal `json:"expectedAmount"`
	Confidence          float64         `json:"confidence"`
	BasedOnPayments     int             `json:"basedOnPayments"`
}

// PredictPayment projects the next payment from the mean interval between past
// payments. Confidence drops with the coefficient of variation of the intervals.
func PredictPayment(s ledger.State, customerID string) (Prediction, error) {
	if len(s.CustomerDebts(customerID)) == 0 {
		return Prediction{}, errCustomerNotFound
	}
	payments := s.CustomerPayments(customerID)
	if len(payments) < 2 {
		return Prediction{}, errInsufficientHistory
	}

	intervals := make([]float64, 0, len(payments)-1)
	for i := 1; i < len(payments); i++ {
		intervals = append(intervals, payments[i].PaidAt.Sub(payments[i-1].PaidAt).Hours()/24)
	}
	mean, stddev := meanStdDev(intervals)

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}

	confidence := 0.0
	if mean > 0 {
		confidence = clamp(100 - stddev/mean*100)
	}
	last := payments[len(payments)-1].PaidAt
	return Prediction{
		CustomerID:          customerID,
		NextPaymentDate:     last.Add(time.Duration(mean * float64(24*time.Hour))),
		AverageIntervalDays: round2(mean),
		ExpectedAmount:      total.Div(decimal.NewFromInt(int64(len(payments)))).Round(2),
		Confidence:          round2(confidence),
		BasedOnPayments:     len(payments),
	}, nil
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
