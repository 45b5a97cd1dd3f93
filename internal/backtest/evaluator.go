// Package backtest replays historical slates and scores the projections.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/nhl-picks/internal/models"
)

const (
	// DefaultEpsilon clips probabilities before taking logs
	DefaultEpsilon = 1e-15
	// DefaultMinRecords is the smallest record set worth scoring
	DefaultMinRecords = 20
)

// Evaluator bins predictions and computes proper scoring rules
type Evaluator struct {
	minRecords int
	epsilon    float64
}

// NewEvaluator creates an evaluator. Non-positive arguments take defaults.
func NewEvaluator(minRecords int, epsilon float64) *Evaluator {
	if minRecords <= 0 {
		minRecords = DefaultMinRecords
	}
	if epsilon <= 0 || epsilon >= 0.5 {
		epsilon = DefaultEpsilon
	}
	return &Evaluator{minRecords: minRecords, epsilon: epsilon}
}

// MinRecords returns the minimum record count
func (e *Evaluator) MinRecords() int {
	return e.minRecords
}

// Evaluate produces nBins equal-width calibration bins over [0, 1] and the
// score summary for records. Empty bins are kept with a zero sample count.
func (e *Evaluator) Evaluate(records []models.BacktestRecord, nBins int) ([]models.CalibrationBin, models.ScoreSummary, error) {
	if nBins < 1 {
		return nil, models.ScoreSummary{}, fmt.Errorf("%w: bin count must be at least 1, got %d", models.ErrInvalidInput, nBins)
	}
	for i := range records {
		p := records[i].PredictedProbability
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, models.ScoreSummary{}, fmt.Errorf("%w: record %d has probability %v", models.ErrInvalidInput, i, p)
		}
	}
	if len(records) < e.minRecords {
		return nil, models.ScoreSummary{}, &models.InsufficientDataError{Have: len(records), Need: e.minRecords}
	}

	bins := e.calibrate(records, nBins)
	summary := e.score(records)
	summary.ExpectedCalibrationError = expectedCalibrationError(bins, len(records))
	return bins, summary, nil
}

func (e *Evaluator) calibrate(records []models.BacktestRecord, nBins int) []models.CalibrationBin {
	bins := make([]models.CalibrationBin, nBins)
	predSum := make([]float64, nBins)
	hitSum := make([]float64, nBins)
	width := 1.0 / float64(nBins)

	for i := range bins {
		bins[i].BinLow = float64(i) * width
		bins[i].BinHigh = float64(i+1) * width
	}
	bins[nBins-1].BinHigh = 1.0

	for i := range records {
		idx := binIndex(records[i].PredictedProbability, nBins)
		bins[idx].SampleCount++
		predSum[idx] += records[i].PredictedProbability
		hitSum[idx] += records[i].Realized()
	}

	for i := range bins {
		if bins[i].SampleCount == 0 {
			continue
		}
		n := float64(bins[i].SampleCount)
		bins[i].MeanPredicted = predSum[i] / n
		bins[i].EmpiricalFrequency = hitSum[i] / n
	}
	return bins
}

// binIndex places p in [i/n, (i+1)/n); a probability of exactly 1 lands in the top bin.
func binIndex(p float64, nBins int) int {
	idx := int(p * float64(nBins))
	if idx >= nBins {
		idx = nBins - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func (e *Evaluator) score(records []models.BacktestRecord) models.ScoreSummary {
	n := float64(len(records))
	var brier, logLoss, predSum, hitSum float64
	for i := range records {
		p := records[i].PredictedProbability
		y := records[i].Realized()
		brier += (p - y) * (p - y)

		clipped := math.Min(math.Max(p, e.epsilon), 1-e.epsilon)
		logLoss -= y*math.Log(clipped) + (1-y)*math.Log(1-clipped)

		predSum += p
		hitSum += y
	}

	summary := models.ScoreSummary{
		SampleCount:   len(records),
		BrierScore:    brier / n,
		LogLoss:       logLoss / n,
		MeanPredicted: predSum / n,
		MeanRealized:  hitSum / n,
	}
	summary.ReliabilityBias = summary.MeanPredicted - summary.MeanRealized
	summary.BaseRateBrier = summary.MeanRealized * (1 - summary.MeanRealized)
	if summary.BaseRateBrier > 0 {
		summary.BrierSkill = 1 - summary.BrierScore/summary.BaseRateBrier
	}
	return summary
}

func expectedCalibrationError(bins []models.CalibrationBin, total int) float64 {
	if total == 0 {
		return 0
	}
	var ece float64
	for _, b := range bins {
		if b.SampleCount == 0 {
			continue
		}
		ece += float64(b.SampleCount) / float64(total) * math.Abs(b.MeanPredicted-b.EmpiricalFrequency)
	}
	return ece
}

// StatEvaluation is the calibration result for one stat kind
type StatEvaluation struct {
	Stat      models.StatKind         `json:"stat_kind"`
	Bins      []models.CalibrationBin `json:"bins"`
	Summary   models.ScoreSummary     `json:"summary"`
	Bootstrap *BootstrapResult        `json:"bootstrap,omitempty"`
	Rolling   *RollingResult          `json:"rolling,omitempty"`
}

// EvaluateByStat evaluates each stat kind separately. A stat with too few
// records is reported as skipped instead of failing the batch.
func (e *Evaluator) EvaluateByStat(records []models.BacktestRecord, nBins int) ([]StatEvaluation, []models.SkippedItem, error) {
	byStat := make(map[models.StatKind][]models.BacktestRecord)
	for _, r := range records {
		byStat[r.StatKind] = append(byStat[r.StatKind], r)
	}

	var (
		evals   []StatEvaluation
		skipped []models.SkippedItem
	)
	for _, stat := range models.AllStatKinds {
		recs, ok := byStat[stat]
		if !ok {
			continue
		}
		bins, summary, err := e.Evaluate(recs, nBins)
		if err != nil {
			var insufficient *models.InsufficientDataError
			if errors.As(err, &insufficient) {
				skipped = append(skipped, models.SkippedItem{Kind: models.SkipStat, Key: string(stat), Reason: err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("evaluate %s: %w", stat, err)
		}
		evals = append(evals, StatEvaluation{Stat: stat, Bins: bins, Summary: summary})
	}
	return evals, skipped, nil
}
