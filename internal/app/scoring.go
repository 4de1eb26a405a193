package app

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/risk"
)

// Scoring groups the tunables that may be overridden from a TOML file.
//
//	[reports.health]
//	high_overdue_rate = 25
//
//	[risk.weights]
//	payment_history = 0.4
type Scoring struct {
	Reports reports.Config `toml:"reports"`
	Risk    risk.Config    `toml:"risk"`
}

// DefaultScoring returns the stock thresholds and weights.
func DefaultScoring() Scoring {
	return Scoring{
		Reports: reports.DefaultConfig(),
		Risk:    risk.DefaultConfig(),
	}
}

// LoadScoring reads path over the defaults. Keys absent from the file keep their
// default; unknown keys are rejected so typos do not go unnoticed. An empty path
// returns the defaults.
func LoadScoring(path string) (Scoring, error) {
	scoring := DefaultScoring()
	if path == "" {
		return scoring, nil
	}
	md, err := toml.DecodeFile(path, &scoring)
	if err != nil {
		return Scoring{}, fmt.Errorf("app: read scoring config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Scoring{}, fmt.Errorf("app: scoring config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := scoring.Validate(); err != nil {
		return Scoring{}, fmt.Errorf("app: scoring config %s: %w", path, err)
	}
	return scoring, nil
}

// Validate rejects weights that do not sum to one and unordered risk levels.
func (s Scoring) Validate() error {
	w := s.Risk.Weights
	for _, v := range []float64{w.PaymentHistory, w.DebtAmount, w.Overdue, w.AccountAge, w.Frequency} {
		if v < 0 {
			return errors.New("risk weights must not be negative")
		}
	}
	sum := w.PaymentHistory + w.DebtAmount + w.Overdue + w.AccountAge + w.Frequency
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("risk weights sum to %.4f, want 1", sum)
	}
	lv := s.Risk.Levels
	if !(lv.Low > lv.Medium && lv.Medium > lv.High) {
		return errors.New("risk levels must satisfy low > medium > high")
	}
	sc := s.Risk.Scales
	if sc.OutstandingCeiling <= 0 || sc.MatureAccountDays <= 0 || sc.FrequencyWindowDays <= 0 || sc.TargetPayments <= 0 {
		return errors.New("risk scales must be positive")
	}
	if s.Reports.Irregular.Sigma <= 0 {
		return errors.New("irregular sigma must be positive")
	}
	return nil
}
