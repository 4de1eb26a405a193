package risk

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/shared"
)

// Note is a coded, localizable remark.
type Note struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RiskAnalysis combines the credit score with lending advice.
type RiskAnalysis struct {
	CreditScore            CreditScore     `json:"creditScore"`
	DefaultProbability     float64         `json:"defaultProbability"`
	RecommendedCreditLimit decimal.Decimal `json:"recommendedCreditLimit"`
	Warnings               []Note          `json:"warnings"`
	Strengths              []Note          `json:"strengths"`
}

// AnalyzeDebtRisk derives lending advice from a credit score.
func AnalyzeDebtRisk(score CreditScore, cfg Config) RiskAnalysis {
	a := cfg.Analysis
	f := score.Factors
	out := RiskAnalysis{
		CreditScore:            score,
		DefaultProbability:     round2(100 - score.Score),
		RecommendedCreditLimit: decimal.NewFromFloat(a.BaseCreditLimit).Mul(decimal.NewFromFloat(score.Score)).Div(decimal.NewFromInt(100)).Round(0),
		Warnings:               []Note{},
		Strengths:              []Note{},
	}

	if score.OverdueDebts > 0 {
		out.Warnings = append(out.Warnings, Note{Code: "overdue", Message: shared.MsgWarnOverdue})
	}
	if f.PaymentHistory < a.LimitedHistoryBelow {
		out.Warnings = append(out.Warnings, Note{Code: "limited_history", Message: shared.MsgWarnLimitedHistory})
	}
	if f.DebtAmount < a.HighBalanceBelow {
		out.Warnings = append(out.Warnings, Note{Code: "high_balance", Message: shared.MsgWarnHighBalance})
	}
	if f.Frequency < a.InfrequentBelow {
		out.Warnings = append(out.Warnings, Note{Code: "infrequent", Message: shared.MsgWarnInfrequent})
	}

	if f.PaymentHistory >= a.StrongHistoryFrom {
		out.Strengths = append(out.Strengths, Note{Code: "history", Message: shared.MsgStrengthHistory})
	}
	if score.OverdueDebts == 0 {
		out.Strengths = append(out.Strengths, Note{Code: "no_overdue", Message: shared.MsgStrengthNoOverdue})
	}
	if f.AccountAge >= a.LongstandingFrom {
		out.Strengths = append(out.Strengths, Note{Code: "longstanding", Message: shared.MsgStrengthLongstanding})
	}
	if f.DebtAmount >= a.LowBalanceFrom {
		out.Strengths = append(out.Strengths, Note{Code: "low_balance", Message: shared.MsgStrengthLowBalance})
	}
	return out
}

// Localize translates the notes into tag.
func (r RiskAnalysis) Localize(tag language.Tag) RiskAnalysis {
	r.Warnings = localizeNotes(tag, r.Warnings)
	r.Strengths = localizeNotes(tag, r.Strengths)
	return r
}

func localizeNotes(tag language.Tag, notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = Note{Code: n.Code, Message: shared.Translate(tag, n.Message)}
	}
	return out
}
