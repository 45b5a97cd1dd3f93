package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
	DailyPnL float64   `json:"daily_pnl"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (e[i].Value-prev)/prev)
	}
	return returns
}

// WriteCSV writes the curve as date,value,drawdown,daily_pnl rows
func (e EquityCurve) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "value", "drawdown", "daily_pnl"}); err != nil {
		return err
	}
	for _, point := range e {
		row := []string{
			point.Time.Format(time.DateOnly),
			formatFloat(point.Value),
			formatFloat(point.Drawdown),
			formatFloat(point.DailyPnL),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
