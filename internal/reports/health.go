package reports

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/shared"
)

// Risk levels of the health report.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Recommendation is a canned advice line.
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthReport scores the ledger as a whole. Rates are percentages.
type HealthReport struct {
	Summary         Summary          `json:"summary"`
	CollectionRate  float64          `json:"collectionRate"`
	OverdueRate     float64          `json:"overdueRate"`
	RetentionRate   float64          `json:"retentionRate"`
	OverdueDebts    int              `json:"overdueDebts"`
	RiskLevel       string           `json:"riskLevel"`
	Recommendations []Recommendation `json:"recommendations"`
}

// FinancialHealthReport computes collection, overdue and retention rates and
// classifies the overall risk. An empty ledger counts as fully collected.
func FinancialHealthReport(s ledger.State, now time.Time, cfg HealthConfig) HealthReport {
	summary := Summarize(s)
	report := HealthReport{Summary: summary, CollectionRate: 100}

	if summary.TotalDebt.IsPositive() {
		rate := summary.TotalPaid.Div(summary.TotalDebt).Mul(decimal.NewFromInt(100))
		report.CollectionRate = rate.Round(2).InexactFloat64()
	}
	for _, d := range s.Debts {
		if d.IsOverdue(now) {
			report.OverdueDebts++
		}
	}
	report.OverdueRate = percent(report.OverdueDebts, summary.DebtCount)

	perCustomer := make(map[string]int)
	for _, d := range s.Debts {
		perCustomer[d.CustomerID]++
	}
	returning := 0
	for _, n := range perCustomer {
		if n > 1 {
			returning++
		}
	}
	report.RetentionRate = percent(returning, len(perCustomer))

	switch {
	case report.OverdueRate > cfg.HighOverdueRate || report.CollectionRate < cfg.HighCollectionFloor:
		report.RiskLevel = RiskHigh
	case report.OverdueRate > cfg.MediumOverdueRate || report.CollectionRate < cfg.MediumCollectionFloor:
		report.RiskLevel = RiskMedium
	default:
		report.RiskLevel = RiskLow
	}

	if report.CollectionRate < cfg.MediumCollectionFloor {
		report.Recommendations = append(report.Recommendations, Recommendation{Code: "collection_low", Message: shared.MsgRecCollectionLow})
	}
	if report.OverdueRate > cfg.MediumOverdueRate {
		report.Recommendations = append(report.Recommendations, Recommendation{Code: "overdue_high", Message: shared.MsgRecOverdueHigh})
	}
	if len(perCustomer) > 0 && report.RetentionRate < cfg.RetentionFloor {
		report.Recommendations = append(report.Recommendations, Recommendation{Code: "retention_low", Message: shared.MsgRecRetentionLow})
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = []Recommendation{{Code: "healthy", Message: shared.MsgRecHealthy}}
	}
	return report
}

// Localize translates recommendation messages into tag.
func (r HealthReport) Localize(tag language.Tag) HealthReport {
	recs := make([]Recommendation, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		recs[i] = Recommendation{Code: rec.Code, Message: shared.Translate(tag, rec.Message)}
	}
	r.Recommendations = recs
	return r
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return roundTo(float64(part)*100/float64(whole), 2)
}
