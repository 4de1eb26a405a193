package risk

// Weights of the sub-scores in the credit score. They are expected to sum to 1.
type Weights struct {
	PaymentHistory float64 `toml:"payment_history"`
	DebtAmount     float64 `toml:"debt_amount"`
	Overdue        float64 `toml:"overdue"`
	AccountAge     float64 `toml:"account_age"`
	Frequency      float64 `toml:"frequency"`
}

// Levels are the minimum scores of each risk level; anything below High is
// critical.
type Levels struct {
	Low    float64 `toml:"low"`
	Medium float64 `toml:"medium"`
	High   float64 `toml:"high"`
}

// Scales map raw customer figures onto 0..100.
type Scales struct {
	PointsPerPayment    float64 `toml:"points_per_payment"`
	OutstandingCeiling  float64 `toml:"outstanding_ceiling"`
	MatureAccountDays   float64 `toml:"mature_account_days"`
	FrequencyWindowDays float64 `toml:"frequency_window_days"`
	TargetPayments      float64 `toml:"target_payments"`
}

// Analysis holds the credit limit base and the cutoffs for warnings and
// strengths. Cutoffs refer to sub-scores.
type Analysis struct {
	BaseCreditLimit     float64 `toml:"base_credit_limit"`
	LimitedHistoryBelow float64 `toml:"limited_history_below"`
	HighBalanceBelow    float64 `toml:"high_balance_below"`
	InfrequentBelow     float64 `toml:"infrequent_below"`
	StrongHistoryFrom   float64 `toml:"strong_history_from"`
	LongstandingFrom    float64 `toml:"longstanding_from"`
	LowBalanceFrom      float64 `toml:"low_balance_from"`
}

// Config groups the scoring tunables.
type Config struct {
	Weights  Weights  `toml:"weights"`
	Levels   Levels   `toml:"levels"`
	Scales   Scales   `toml:"scales"`
	Analysis Analysis `toml:"analysis"`
}

// DefaultConfig returns the stock scoring model.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			PaymentHistory: 0.35,
			DebtAmount:     0.25,
			Overdue:        0.25,
			AccountAge:     0.10,
			Frequency:      0.05,
		},
		Levels: Levels{Low: 80, Medium: 60, High: 40},
		Scales: Scales{
			PointsPerPayment:    10,
			OutstandingCeiling:  1_000_000,
			MatureAccountDays:   365,
			FrequencyWindowDays: 30,
			TargetPayments:      2,
		},
		Analysis: Analysis{
			BaseCreditLimit:     1_000_000,
			LimitedHistoryBelow: 30,
			HighBalanceBelow:    50,
			InfrequentBelow:     30,
			StrongHistoryFrom:   80,
			LongstandingFrom:    80,
			LowBalanceFrom:      80,
		},
	}
}
