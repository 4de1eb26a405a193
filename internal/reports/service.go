package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Source supplies ledger snapshots.
type Source interface {
	Snapshot() ledger.State
}

// Service computes reports over the live ledger.
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

// Version identifies the ledger state reports are computed from. Sources that
// cannot report it cheaply are snapshotted.
func (s *Service) Version() int64 {
	if v, ok := s.source.(interface{ Version() int64 }); ok {
		return v.Version()
	}
	return s.source.Snapshot().Version
}

// Config returns the thresholds in use.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) Summary() Summary {
	return Summarize(s.source.Snapshot())
}

func (s *Service) HighDebtCustomers(min decimal.Decimal) []CustomerDebt {
	return HighDebtCustomers(s.source.Snapshot(), min)
}

func (s *Service) BestPayingCustomers(minPayments int) []CustomerPayments {
	return BestPayingCustomers(s.source.Snapshot(), minPayments)
}

func (s *Service) OverdueDebts() []ledger.Debt {
	return nonNil(OverdueDebts(s.source.Snapshot(), s.clock()))
}

func (s *Service) UnpaidDebts() []ledger.Debt {
	return nonNil(UnpaidDebts(s.source.Snapshot()))
}

func (s *Service) MonthlyPayments() []PeriodTotal {
	return MonthlyPaymentReport(s.source.Snapshot())
}

func (s *Service) YearlyPayments() []PeriodTotal {
	return YearlyPaymentReport(s.source.Snapshot())
}

func (s *Service) SearchDebts(f DebtFilter) []ledger.Debt {
	return SearchDebts(s.source.Snapshot(), f)
}

func (s *Service) SearchPayments(f PaymentFilter) []ledger.Payment {
	return SearchPayments(s.source.Snapshot(), f)
}

func (s *Service) IrregularPayments() IrregularReport {
	return IrregularPaymentReport(s.source.Snapshot(), s.cfg.Irregular)
}

func (s *Service) Health() HealthReport {
	return FinancialHealthReport(s.source.Snapshot(), s.clock(), s.cfg.Health)
}

func (s *Service) Discrepancies() []Discrepancy {
	return CheckBalanceDiscrepancies(s.source.Snapshot())
}

// Export renders the current ledger in format.
func (s *Service) Export(format string) ([]byte, error) {
	return ExportFinancialData(s.source.Snapshot(), format, s.clock(), s.cfg)
}
