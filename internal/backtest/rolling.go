package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/nhl-picks/internal/models"
)

// RollingConfig configures rolling-window evaluation
type RollingConfig struct {
	WindowDays int
	StepDays   int
	Bins       int
}

// RollingWindow is the score summary for one date window
type RollingWindow struct {
	WindowID int                 `json:"window_id"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Summary  models.ScoreSummary `json:"summary"`
}

// RollingResult collects window summaries across the backtest range
type RollingResult struct {
	Windows          []RollingWindow `json:"windows"`
	ConsistencyScore float64         `json:"consistency_score"`
	MeanBrier        float64         `json:"mean_brier"`
	BrierDrift       float64         `json:"brier_drift"`
}

// RunRolling scores records in windows of cfg.WindowDays advancing by
// cfg.StepDays. Windows below the evaluator minimum are left out.
func (e *Evaluator) RunRolling(ctx context.Context, records []models.BacktestRecord, cfg RollingConfig) (RollingResult, error) {
	if cfg.WindowDays <= 0 {
		return RollingResult{}, fmt.Errorf("%w: rolling window must be positive", models.ErrInvalidInput)
	}
	if cfg.StepDays <= 0 {
		cfg.StepDays = cfg.WindowDays
	}
	if cfg.Bins <= 0 {
		cfg.Bins = 10
	}
	if len(records) == 0 {
		return RollingResult{}, nil
	}

	first, last := records[0].Date, records[0].Date
	for _, r := range records {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	first, last = models.DateOnly(first), models.DateOnly(last)

	var windows []RollingWindow
	windowID := 0
	for start := first; !start.After(last); start = start.AddDate(0, 0, cfg.StepDays) {
		if err := ctx.Err(); err != nil {
			return RollingResult{}, err
		}
		end := start.AddDate(0, 0, cfg.WindowDays)
		var inWindow []models.BacktestRecord
		for _, r := range records {
			d := models.DateOnly(r.Date)
			if !d.Before(start) && d.Before(end) {
				inWindow = append(inWindow, r)
			}
		}

		windowID++
		_, summary, err := e.Evaluate(inWindow, cfg.Bins)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) {
				continue
			}
			return RollingResult{}, err
		}
		windows = append(windows, RollingWindow{WindowID: windowID, Start: start, End: end, Summary: summary})
	}

	return RollingResult{
		Windows:          windows,
		ConsistencyScore: CalculateConsistency(windows),
		MeanBrier:        meanBrier(windows),
		BrierDrift:       brierDrift(windows),
	}, nil
}

// CalculateConsistency is the share of windows that beat the base rate
func CalculateConsistency(windows []RollingWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	skilled := 0
	for _, w := range windows {
		if w.Summary.BrierSkill > 0 {
			skilled++
		}
	}
	return float64(skilled) / float64(len(windows))
}

func meanBrier(windows []RollingWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range windows {
		total += w.Summary.BrierScore
	}
	return total / float64(len(windows))
}

// brierDrift is the last window's Brier score minus the first's; positive means getting worse.
func brierDrift(windows []RollingWindow) float64 {
	if len(windows) < 2 {
		return 0
	}
	return windows[len(windows)-1].Summary.BrierScore - windows[0].Summary.BrierScore
}
