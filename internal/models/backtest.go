package models

import "time"

// BacktestRecord is one historical prediction paired with what happened
type BacktestRecord struct {
	PlayerID             string    `json:"player_id"`
	Date                 time.Time `json:"date"`
	StatKind             StatKind  `json:"stat_kind"`
	Line                 *float64  `json:"line,omitempty"`
	PredictedProbability float64   `json:"predicted_probability"`
	PredictedMean        float64   `json:"predicted_mean"`
	RealizedOutcome      bool      `json:"realized_outcome"`
	RealizedValue        float64   `json:"realized_value"`
	BookPrice            *float64  `json:"book_price,omitempty"`
}

// Realized returns the outcome as 0 or 1
func (r *BacktestRecord) Realized() float64 {
	if r.RealizedOutcome {
		return 1
	}
	return 0
}

// CalibrationBin groups predictions in [BinLow, BinHigh)
type CalibrationBin struct {
	BinLow             float64 `json:"bin_low"`
	BinHigh            float64 `json:"bin_high"`
	MeanPredicted      float64 `json:"mean_predicted"`
	EmpiricalFrequency float64 `json:"empirical_frequency"`
	SampleCount        int     `json:"sample_count"`
}

// ScoreSummary aggregates proper scoring rules over a record set
type ScoreSummary struct {
	SampleCount              int     `json:"sample_count"`
	BrierScore               float64 `json:"brier_score"`
	LogLoss                  float64 `json:"log_loss"`
	MeanPredicted            float64 `json:"mean_predicted"`
	MeanRealized             float64 `json:"mean_realized"`
	ReliabilityBias          float64 `json:"reliability_bias"`
	BaseRateBrier            float64 `json:"base_rate_brier"`
	BrierSkill               float64 `json:"brier_skill"`
	ExpectedCalibrationError float64 `json:"expected_calibration_error"`
}

// Skip kinds
const (
	SkipPlayer = "player"
	SkipMarket = "market"
	SkipStat   = "stat"
	SkipDate   = "date"
	SkipRow    = "row"
)

// SkippedItem records a unit of work dropped from a batch with its reason
type SkippedItem struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}
