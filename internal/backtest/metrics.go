package backtest

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
)

// Metrics summarises a flat-stake betting simulation over backtest records
type Metrics struct {
	TotalBets    int       `json:"total_bets"`
	WinningBets  int       `json:"winning_bets"`
	LosingBets   int       `json:"losing_bets"`
	WinRate      float64   `json:"win_rate"`
	TotalStaked  float64   `json:"total_staked"`
	NetProfit    float64   `json:"net_profit"`
	ROI          float64   `json:"roi"`
	TotalReturn  float64   `json:"total_return"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	ProfitFactor float64   `json:"profit_factor"`
	AverageEdge  float64   `json:"average_edge"`
	Expectancy   float64   `json:"expectancy"`
	LargestWin   float64   `json:"largest_win"`
	LargestLoss  float64   `json:"largest_loss"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	BettingDays  int       `json:"betting_days"`
}

// SimulateFlatStake bets cfg.Stake on every priced record whose model edge
// against the book is at least cfg.MinEdge. Records are settled in date order.
func SimulateFlatStake(records []models.BacktestRecord, cfg BacktestConfig) *BettingState {
	ordered := make([]models.BacktestRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	state := NewBettingState(cfg.InitialBankroll, models.DateOnly(cfg.StartDate))
	var day time.Time
	for _, r := range ordered {
		if r.BookPrice == nil || *r.BookPrice <= 1 {
			continue
		}
		edge := odds.EdgeVsBook(r.PredictedProbability, *r.BookPrice)
		if edge < cfg.MinEdge {
			continue
		}

		d := models.DateOnly(r.Date)
		if !day.IsZero() && d.After(day) {
			state.RecordEquityPoint(day, state.CurrentBankroll)
		}
		day = d

		pnl := -cfg.Stake
		if r.RealizedOutcome {
			pnl = (*r.BookPrice - 1) * cfg.Stake
		}
		state.UpdateState(SettledBet{
			PlayerID:    r.PlayerID,
			Date:        d,
			StatKind:    r.StatKind,
			Price:       *r.BookPrice,
			Stake:       cfg.Stake,
			Probability: r.PredictedProbability,
			Edge:        edge,
			Won:         r.RealizedOutcome,
			ProfitLoss:  pnl,
		})
	}
	if !day.IsZero() {
		state.RecordEquityPoint(day, state.CurrentBankroll)
	}
	return state
}

// CalculateMetrics calculates metrics from a betting state
func CalculateMetrics(state *BettingState, cfg BacktestConfig) Metrics {
	metrics := Metrics{
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
	}
	if state == nil || len(state.EquityCurve) == 0 {
		return metrics
	}

	initial := state.EquityCurve[0].Value
	final := state.EquityCurve[len(state.EquityCurve)-1].Value
	if initial > 0 {
		metrics.TotalReturn = (final - initial) / initial
	}
	metrics.MaxDrawdown = calculateMaxDrawdown(state.EquityCurve)
	metrics.SharpeRatio = calculateSharpeRatio(state.EquityCurve.GetReturns())
	metrics.BettingDays = len(state.DailyPnL)

	metrics.TotalBets = len(state.Bets)
	metrics.WinningBets, metrics.LosingBets, metrics.LargestWin, metrics.LargestLoss = calculateBetStats(state.Bets)
	metrics.WinRate = calculateWinRate(metrics.WinningBets, metrics.TotalBets)
	metrics.ProfitFactor = calculateProfitFactor(state.Bets)
	metrics.Expectancy = calculateExpectancy(state.Bets)

	edges := make([]float64, 0, len(state.Bets))
	for _, bet := range state.Bets {
		metrics.TotalStaked += bet.Stake
		metrics.NetProfit += bet.ProfitLoss
		edges = append(edges, bet.Edge)
	}
	if metrics.TotalStaked > 0 {
		metrics.ROI = metrics.NetProfit / metrics.TotalStaked
	}
	if len(edges) > 0 {
		metrics.AverageEdge = stat.Mean(edges, nil)
	}
	return metrics
}

// calculateSharpeRatio is the unannualised mean over standard deviation of
// per-day returns.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}
	return mean / std
}

func calculateMaxDrawdown(curve EquityCurve) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak == 0 {
			continue
		}
		drawdown := (peak - p.Value) / peak
		if drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return maxDD
}

func calculateProfitFactor(bets []SettledBet) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, bet := range bets {
		if bet.ProfitLoss > 0 {
			grossProfit += bet.ProfitLoss
		} else {
			grossLoss += math.Abs(bet.ProfitLoss)
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 999
		}
		return 0
	}
	return grossProfit / grossLoss
}

func calculateExpectancy(bets []SettledBet) float64 {
	if len(bets) == 0 {
		return 0
	}
	net := 0.0
	for _, bet := range bets {
		net += bet.ProfitLoss
	}
	return net / float64(len(bets))
}

func calculateBetStats(bets []SettledBet) (int, int, float64, float64) {
	wins := 0
	losses := 0
	largestWin := 0.0
	largestLoss := 0.0
	for _, bet := range bets {
		pl := bet.ProfitLoss
		if pl > 0 {
			wins++
			if pl > largestWin {
				largestWin = pl
			}
		} else if pl < 0 {
			losses++
			if pl < largestLoss {
				largestLoss = pl
			}
		}
	}
	return wins, losses, largestWin, largestLoss
}

func calculateWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// percentile returns the empirical p-quantile of values
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	return stat.Quantile(math.Min(math.Max(p, 0), 1), stat.Empirical, sorted, nil)
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
