package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/shared"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrUnsupportedFormat is returned for export formats other than json and csv.
var ErrUnsupportedFormat error = &formatError{}

type formatError struct{}

func (*formatError) Error() string      { return "reports: unsupported export format" }
func (*formatError) MessageKey() string { return shared.MsgUnsupportedFormat }
func (*formatError) MessageArgs() []any { return nil }

// Bundle is the JSON export document.
type Bundle struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Summary     Summary          `json:"summary"`
	Health      HealthReport     `json:"health"`
	Monthly     []PeriodTotal    `json:"monthly"`
	Yearly      []PeriodTotal    `json:"yearly"`
	Overdue     []ledger.Debt    `json:"overdue"`
	Debts       []ledger.Debt    `json:"debts"`
	Payments    []ledger.Payment `json:"payments"`
	Findings    []Discrepancy    `json:"findings"`
}

// BuildBundle assembles the export document.
func BuildBundle(s ledger.State, now time.Time, cfg Config) Bundle {
	snapshot := s.Clone()
	return Bundle{
		GeneratedAt: now,
		Summary:     Summarize(snapshot),
		Health:      FinancialHealthReport(snapshot, now, cfg.Health),
		Monthly:     MonthlyPaymentReport(snapshot),
		Yearly:      YearlyPaymentReport(snapshot),
		Overdue:     nonNil(OverdueDebts(snapshot, now)),
		Debts:       snapshot.Debts,
		Payments:    snapshot.Payments,
		Findings:    CheckBalanceDiscrepancies(snapshot),
	}
}

// ParseFormat normalizes a user supplied format name.
func ParseFormat(name string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(name)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// ExportFinancialData renders the ledger in format.
func ExportFinancialData(s ledger.State, format string, now time.Time, cfg Config) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	bundle := BuildBundle(s, now, cfg)
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = WriteSummaryCSV(&buf, bundle)
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(bundle)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSummaryCSV emits fixed label/value rows.
func WriteSummaryCSV(w io.Writer, b Bundle) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Generated At", b.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Debt", b.Summary.TotalDebt.String()},
		{"Total Paid", b.Summary.TotalPaid.String()},
		{"Total Remaining", b.Summary.TotalRemaining.String()},
		{"Debt Count", strconv.Itoa(b.Summary.DebtCount)},
		{"Payment Count", strconv.Itoa(b.Summary.PaymentCount)},
		{"Customer Count", strconv.Itoa(b.Summary.CustomerCount)},
		{"Active Debts", strconv.Itoa(b.Summary.ActiveDebts)},
		{"Paid Debts", strconv.Itoa(b.Summary.PaidDebts)},
		{"Overdue Debts", strconv.Itoa(b.Health.OverdueDebts)},
		{"Collection Rate", formatFloat(b.Health.CollectionRate)},
		{"Overdue Rate", formatFloat(b.Health.OverdueRate)},
		{"Retention Rate", formatFloat(b.Health.RetentionRate)},
		{"Risk Level", b.Health.RiskLevel},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// IsUnsupportedFormat reports whether err rejects the export format.
func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
