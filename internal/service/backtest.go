package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/backtest"
	"github.com/yourusername/nhl-picks/internal/datasource"
	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/metrics"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
)

// BacktestService loads history and odds for a date range and hands them to
// the backtest engine
type BacktestService struct {
	source    datasource.DataSource
	engine    *backtest.Engine
	validator *datasource.RowValidator
	oddsCfg   odds.Config
	log       *logrus.Logger
	logger    *logrus.Entry
}

// NewBacktestService creates a backtest service. oddsCfg configures the
// normalizer built for each replayed date.
func NewBacktestService(source datasource.DataSource, engine *backtest.Engine, oddsCfg odds.Config, log *logrus.Logger) (*BacktestService, error) {
	if source == nil || engine == nil {
		return nil, fmt.Errorf("%w: backtest service needs a source and an engine", models.ErrInvalidInput)
	}
	log = logger.OrDiscard(log)
	return &BacktestService{
		source:    source,
		engine:    engine,
		validator: datasource.NewRowValidator(log),
		oddsCfg:   oddsCfg,
		log:       log,
		logger:    log.WithField("component", "backtest_service"),
	}, nil
}

// Run replays the configured range and evaluates it
func (s *BacktestService) Run(ctx context.Context) (*backtest.Result, error) {
	start := time.Now()
	result, err := s.run(ctx)
	if err != nil {
		metrics.RecordBacktestRun("failure", time.Since(start).Seconds())
		return nil, err
	}

	metrics.RecordBacktestRun("success", time.Since(start).Seconds())
	metrics.RecordCompositeScore(result.CompositeScore)
	for _, st := range result.Stats {
		metrics.RecordStatScores(string(st.Stat), st.Summary.BrierScore, st.Summary.LogLoss)
	}
	return result, nil
}

func (s *BacktestService) run(ctx context.Context) (*backtest.Result, error) {
	cfg := s.engine.Config()
	q := datasource.GameLogQuery{To: cfg.EndDate.AddDate(0, 0, 1)}
	if cfg.LookbackDays > 0 {
		q.From = cfg.StartDate.AddDate(0, 0, -cfg.LookbackDays)
	}

	logs, err := s.source.FetchGameLogs(ctx, q)
	if err != nil {
		metrics.RecordSourceError(s.source.Name(), "game_logs")
		return nil, fmt.Errorf("failed to fetch backtest game logs: %w", err)
	}
	logs, rejected := s.validator.ValidateGameLogs(logs)
	metrics.RecordRowsRejected("game_logs", len(rejected))

	prices, err := s.historicalPrices(ctx, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"start":       cfg.StartDate.Format(time.DateOnly),
		"end":         cfg.EndDate.Format(time.DateOnly),
		"rows":        len(logs),
		"priced_days": len(prices),
	}).Info("Starting backtest")

	return s.engine.Run(ctx, logs, prices)
}

// historicalPrices normalizes each date's quotes with the clock set to the
// latest quote of that date, so staleness is judged as it was at posting
// time. Dates without odds are left out.
func (s *BacktestService) historicalPrices(ctx context.Context, start, end time.Time) (map[time.Time][]models.FairPrice, error) {
	prices := make(map[time.Time][]models.FairPrice)
	for d := models.DateOnly(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quotes, err := s.source.FetchOdds(ctx, d)
		if err != nil {
			if errors.Is(err, datasource.ErrNotSupported) {
				s.logger.WithField("source", s.source.Name()).Info("Source has no odds, backtest runs unpriced")
				return prices, nil
			}
			if !errors.Is(err, datasource.ErrNotFound) {
				metrics.RecordSourceError(s.source.Name(), "odds")
				s.logger.WithError(err).WithField("date", d.Format(time.DateOnly)).Warn("Odds fetch failed, date unpriced")
			}
			continue
		}
		quotes, rejected := s.validator.ValidateQuotes(quotes)
		metrics.RecordRowsRejected("odds", len(rejected))
		if len(quotes) == 0 {
			continue
		}

		latest := quotes[0].Timestamp
		for _, q := range quotes[1:] {
			if q.Timestamp.After(latest) {
				latest = q.Timestamp
			}
		}
		normalizer := odds.NewNormalizer(s.oddsCfg, s.log).WithClock(func() time.Time { return latest })
		res, err := normalizer.NormalizeClosed(ctx, quotes, odds.ClosedOutcomes(quotes))
		if err != nil {
			s.logger.WithError(err).WithField("date", d.Format(time.DateOnly)).Warn("Odds normalization failed, date unpriced")
			continue
		}

		day := make([]models.FairPrice, 0, len(res.Prices))
		for _, fp := range res.Prices {
			day = append(day, fp)
		}
		sort.Slice(day, func(i, j int) bool { return day[i].OutcomeID < day[j].OutcomeID })
		prices[d] = day
	}
	return prices, nil
}
