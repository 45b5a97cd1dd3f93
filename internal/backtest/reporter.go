package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/nhl-picks/internal/models"
)

// GenerateConsoleReport formats a backtest result for terminal output
func GenerateConsoleReport(result *Result) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", result.RunID))
	builder.WriteString(fmt.Sprintf("Range: %s to %s\n", result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Records: %d (skipped %d)\n", len(result.Records), len(result.Skipped)))
	builder.WriteString(fmt.Sprintf("Composite Score: %.2f\n", result.CompositeScore))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", result.Recommendation))

	for _, s := range result.Stats {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("[%s] n=%d\n", s.Stat, s.Summary.SampleCount))
		builder.WriteString(fmt.Sprintf("  Brier Score: %.4f (base rate %.4f, skill %.3f)\n",
			s.Summary.BrierScore, s.Summary.BaseRateBrier, s.Summary.BrierSkill))
		builder.WriteString(fmt.Sprintf("  Log Loss: %.4f\n", s.Summary.LogLoss))
		builder.WriteString(fmt.Sprintf("  Mean Predicted: %.3f  Mean Realized: %.3f\n",
			s.Summary.MeanPredicted, s.Summary.MeanRealized))
		builder.WriteString(fmt.Sprintf("  Calibration Error: %.4f\n", s.Summary.ExpectedCalibrationError))
		if s.Bootstrap != nil {
			builder.WriteString(fmt.Sprintf("  Brier CI: [%.4f, %.4f]\n", s.Bootstrap.BrierLow, s.Bootstrap.BrierHigh))
		}
		if s.Rolling != nil && len(s.Rolling.Windows) > 0 {
			builder.WriteString(fmt.Sprintf("  Rolling Consistency: %.2f over %d windows\n",
				s.Rolling.ConsistencyScore, len(s.Rolling.Windows)))
		}
	}

	if result.Betting.TotalBets > 0 {
		builder.WriteString("\nFlat Stake\n")
		builder.WriteString(fmt.Sprintf("  Bets: %d\n", result.Betting.TotalBets))
		builder.WriteString(fmt.Sprintf("  ROI: %.2f%%\n", result.Betting.ROI*100))
		builder.WriteString(fmt.Sprintf("  Win Rate: %.2f%%\n", result.Betting.WinRate*100))
		builder.WriteString(fmt.Sprintf("  Max Drawdown: %.2f%%\n", result.Betting.MaxDrawdown*100))
		builder.WriteString(fmt.Sprintf("  Profit Factor: %.2f\n", result.Betting.ProfitFactor))
	}
	return builder.String()
}

// WriteCalibrationCSV writes one row per calibration bin
func WriteCalibrationCSV(w io.Writer, bins []models.CalibrationBin) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"bin_low", "bin_high", "sample_count", "mean_predicted", "empirical_frequency"}); err != nil {
		return err
	}
	for _, b := range bins {
		row := []string{
			formatFloat(b.BinLow),
			formatFloat(b.BinHigh),
			fmt.Sprintf("%d", b.SampleCount),
			formatFloat(b.MeanPredicted),
			formatFloat(b.EmpiricalFrequency),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReports writes backtest.json, equity_curve.csv and one
// calibration_<stat>.csv per evaluated stat into dir
func WriteReports(result *Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var written []string
	jsonPath := filepath.Join(dir, "backtest.json")
	if err := os.WriteFile(jsonPath, []byte(result.ToJSON()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	written = append(written, jsonPath)

	curvePath := filepath.Join(dir, "equity_curve.csv")
	if err := writeCSVFile(curvePath, result.EquityCurve.WriteCSV); err != nil {
		return nil, err
	}
	written = append(written, curvePath)

	for _, s := range result.Stats {
		path := filepath.Join(dir, fmt.Sprintf("calibration_%s.csv", s.Stat))
		bins := s.Bins
		if err := writeCSVFile(path, func(w io.Writer) error { return WriteCalibrationCSV(w, bins) }); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
