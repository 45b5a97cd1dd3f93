package backtest

import (
	"encoding/json"
)

// Recommendations
const (
	RecommendationCalibrated    = "CALIBRATED"
	RecommendationNeedsReview   = "NEEDS_REVIEW"
	RecommendationMiscalibrated = "MISCALIBRATED"
)

// CalculateCompositeScore blends skill, calibration error and rolling
// consistency across the evaluated stats into [0, 1].
func CalculateCompositeScore(stats []StatEvaluation) float64 {
	if len(stats) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range stats {
		skillScore := normalize(s.Summary.BrierSkill, -0.1, 0.2)
		calibrationScore := 1.0 - normalize(s.Summary.ExpectedCalibrationError, 0, 0.1)
		consistency := 0.5
		if s.Rolling != nil && len(s.Rolling.Windows) > 0 {
			consistency = s.Rolling.ConsistencyScore
		}

		weighted := 0.0
		weighted += skillScore * 0.40
		weighted += calibrationScore * 0.40
		weighted += consistency * 0.20
		total += weighted
	}
	return total / float64(len(stats))
}

// GenerateRecommendation classifies the model from its composite score and
// the worst stat's Brier skill
func GenerateRecommendation(score float64, stats []StatEvaluation) string {
	if len(stats) == 0 {
		return RecommendationNeedsReview
	}
	worstSkill := stats[0].Summary.BrierSkill
	for _, s := range stats[1:] {
		if s.Summary.BrierSkill < worstSkill {
			worstSkill = s.Summary.BrierSkill
		}
	}
	if score > 0.7 && worstSkill > 0 {
		return RecommendationCalibrated
	}
	if score < 0.4 || worstSkill < -0.05 {
		return RecommendationMiscalibrated
	}
	return RecommendationNeedsReview
}

// ToJSON exports the result without the raw records
func (r *Result) ToJSON() string {
	data, _ := json.MarshalIndent(r, "", "  ")
	return string(data)
}
