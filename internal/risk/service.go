package risk

import (
	"time"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Source supplies ledger snapshots.
type Source interface {
	Snapshot() ledger.State
}

// Service scores customers of the live ledger.
type Service struct {
	source Source
	cfg    Config
	clock  func() time.Time
}

// NewService builds Service instance.
func NewService(source Source, cfg Config, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{source: source, cfg: cfg, clock: clock}
}

func (s *Service) CalculateCreditScore(customerID string) (CreditScore, error) {
	return CalculateCreditScore(s.source.Snapshot(), customerID, s.clock(), s.cfg)
}

func (s *Service) PredictPayment(customerID string) (Prediction, error) {
	return PredictPayment(s.source.Snapshot(), customerID)
}

func (s *Service) AnalyzeDebtRisk(customerID string) (RiskAnalysis, error) {
	score, err := s.CalculateCreditScore(customerID)
	if err != nil {
		return RiskAnalysis{}, err
	}
	return AnalyzeDebtRisk(score, s.cfg), nil
}
