package reports

// HealthConfig holds the thresholds of the financial health report. Rates are
// percentages.
type HealthConfig struct {
	HighOverdueRate       float64 `toml:"high_overdue_rate"`
	HighCollectionFloor   float64 `toml:"high_collection_floor"`
	MediumOverdueRate     float64 `toml:"medium_overdue_rate"`
	MediumCollectionFloor float64 `toml:"medium_collection_floor"`
	RetentionFloor        float64 `toml:"retention_floor"`
}

// IrregularConfig tunes irregular payment detection.
type IrregularConfig struct {
	Sigma      float64 `toml:"sigma"`
	LargeRatio float64 `toml:"large_ratio"`
	SmallRatio float64 `toml:"small_ratio"`
}

// Config groups report tunables.
type Config struct {
	Health    HealthConfig    `toml:"health"`
	Irregular IrregularConfig `toml:"irregular"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Health: HealthConfig{
			HighOverdueRate:       30,
			HighCollectionFloor:   60,
			MediumOverdueRate:     15,
			MediumCollectionFloor: 80,
			RetentionFloor:        30,
		},
		Irregular: IrregularConfig{
			Sigma:      2,
			LargeRatio: 3,
			SmallRatio: 0.1,
		},
	}
}
