package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/nhl-picks/internal/features"
	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/projection"
)

// Engine orchestrates backtesting runs
type Engine struct {
	config    BacktestConfig
	projector *projection.Projector
	evaluator *Evaluator
	logger    *logrus.Logger
	engineLog *logger.EngineLogger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg BacktestConfig, projector *projection.Projector, log *logrus.Logger) (*Engine, error) {
	if projector == nil {
		return nil, fmt.Errorf("projector is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	log = logger.OrDiscard(log)

	return &Engine{
		config:    cfg,
		projector: projector,
		evaluator: NewEvaluator(cfg.MinRecords, DefaultEpsilon),
		logger:    log,
		engineLog: logger.NewEngineLogger(log),
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Evaluator returns the engine's evaluator
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// Result is the full output of a backtest run
type Result struct {
	RunID          uuid.UUID               `json:"run_id"`
	StartDate      time.Time               `json:"start_date"`
	EndDate        time.Time               `json:"end_date"`
	Records        []models.BacktestRecord `json:"-"`
	Stats          []StatEvaluation        `json:"stats"`
	Betting        Metrics                 `json:"betting"`
	EquityCurve    EquityCurve             `json:"equity_curve"`
	Skipped        []models.SkippedItem    `json:"skipped"`
	CompositeScore float64                 `json:"composite_score"`
	Recommendation string                  `json:"recommendation"`
}

// Run replays logs over the configured range, attaches any book prices,
// evaluates each stat and simulates flat-stake betting.
func (e *Engine) Run(ctx context.Context, logs []models.GameLogRow, prices map[time.Time][]models.FairPrice) (*Result, error) {
	runID := uuid.New()
	e.logger.WithFields(logrus.Fields{
		"run_id": runID.String(),
		"start":  e.config.StartDate.Format(time.DateOnly),
		"end":    e.config.EndDate.Format(time.DateOnly),
	}).Info("Starting backtest run")

	records, skipped, err := e.Replay(ctx, logs, e.config.StartDate, e.config.EndDate)
	if err != nil {
		return nil, err
	}
	AttachPrices(records, prices)

	stats, statSkips, err := e.evaluator.EvaluateByStat(records, e.config.Bins)
	if err != nil {
		return nil, err
	}
	for _, s := range statSkips {
		e.engineLog.LogSkipped(s)
	}
	skipped = append(skipped, statSkips...)

	byStat := make(map[models.StatKind][]models.BacktestRecord)
	for _, r := range records {
		byStat[r.StatKind] = append(byStat[r.StatKind], r)
	}
	for i := range stats {
		recs := byStat[stats[i].Stat]
		boot, err := e.evaluator.RunBootstrap(ctx, recs, BootstrapConfig{
			Iterations:      e.config.BootstrapIterations,
			ConfidenceLevel: e.config.ConfidenceLevel,
			Seed:            e.config.Seed,
		})
		if err != nil {
			return nil, err
		}
		stats[i].Bootstrap = &boot

		if e.config.RollingWindowDays > 0 {
			rolling, err := e.evaluator.RunRolling(ctx, recs, RollingConfig{
				WindowDays: e.config.RollingWindowDays,
				StepDays:   e.config.RollingStepDays,
				Bins:       e.config.Bins,
			})
			if err != nil {
				return nil, err
			}
			stats[i].Rolling = &rolling
		}
		e.engineLog.LogBacktestSummary(runID.String(), stats[i].Stat, stats[i].Summary)
	}

	state := SimulateFlatStake(records, e.config)
	result := &Result{
		RunID:       runID,
		StartDate:   e.config.StartDate,
		EndDate:     e.config.EndDate,
		Records:     records,
		Stats:       stats,
		Betting:     CalculateMetrics(state, e.config),
		EquityCurve: state.EquityCurve,
		Skipped:     skipped,
	}
	result.CompositeScore = CalculateCompositeScore(stats)
	result.Recommendation = GenerateRecommendation(result.CompositeScore, stats)
	return result, nil
}

// Replay builds one BacktestRecord per player, stat and game date in
// [start, end]. Features for a date only see games strictly before it, and
// outcomes come from that date's rows. Dates run in parallel and are merged
// in date order.
func (e *Engine) Replay(ctx context.Context, logs []models.GameLogRow, start, end time.Time) ([]models.BacktestRecord, []models.SkippedItem, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	byDate := make(map[time.Time][]models.GameLogRow)
	for _, row := range logs {
		d := models.DateOnly(row.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		byDate[d] = append(byDate[d], row)
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	type dayResult struct {
		records []models.BacktestRecord
		skipped []models.SkippedItem
	}
	results := make([]dayResult, len(dates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, d := range dates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, skipped := e.replayDate(d, byDate[d], e.history(logs, d))
			results[i] = dayResult{records: records, skipped: skipped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("backtest replay failed: %w", err)
	}

	var (
		records []models.BacktestRecord
		skipped []models.SkippedItem
	)
	for _, r := range results {
		records = append(records, r.records...)
		skipped = append(skipped, r.skipped...)
	}
	e.logger.WithFields(logrus.Fields{
		"dates":   len(dates),
		"records": len(records),
		"skipped": len(skipped),
	}).Info("Backtest replay completed")
	return records, skipped, nil
}

// history returns the rows strictly before d inside the lookback window
func (e *Engine) history(logs []models.GameLogRow, d time.Time) []models.GameLogRow {
	var from time.Time
	if e.config.LookbackDays > 0 {
		from = d.AddDate(0, 0, -e.config.LookbackDays)
	}
	out := make([]models.GameLogRow, 0, len(logs))
	for _, row := range logs {
		rd := models.DateOnly(row.Date)
		if rd.Before(d) && !rd.Before(from) {
			out = append(out, row)
		}
	}
	return out
}

func (e *Engine) replayDate(d time.Time, rows, history []models.GameLogRow) ([]models.BacktestRecord, []models.SkippedItem) {
	feats := features.BuildFeatures(history, d, e.config.HalfLifeDays)
	factors := features.BuildOpponentFactors(history, d, e.config.HalfLifeDays)

	sorted := make([]models.GameLogRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PlayerID < sorted[j].PlayerID })

	var (
		records []models.BacktestRecord
		skipped []models.SkippedItem
	)
	for _, row := range sorted {
		fv, ok := feats[row.PlayerID]
		if !ok {
			skipped = append(skipped, models.SkippedItem{
				Kind:   models.SkipPlayer,
				Key:    row.PlayerID + "@" + d.Format(time.DateOnly),
				Reason: "no games before date",
			})
			continue
		}
		home := row.Home
		for _, stat := range e.config.Stats {
			if !stat.IsCount() {
				continue
			}
			line := e.config.Line(stat)
			dist, ok := e.projector.Project(&fv, stat, &line, projection.GameContext{
				GameID:         row.GameID,
				Home:           &home,
				Opponent:       row.Opponent,
				OpponentFactor: factors.Factor(row.Opponent, stat),
			})
			if !ok {
				skipped = append(skipped, models.SkippedItem{
					Kind:   models.SkipPlayer,
					Key:    fmt.Sprintf("%s:%s@%s", row.PlayerID, stat, d.Format(time.DateOnly)),
					Reason: "no usable rate",
				})
				continue
			}
			realized := realizedCount(row, stat)
			records = append(records, models.BacktestRecord{
				PlayerID:             row.PlayerID,
				Date:                 d,
				StatKind:             stat,
				Line:                 dist.Line,
				PredictedProbability: *dist.ProbOver,
				PredictedMean:        dist.Mean,
				RealizedOutcome:      realized > line,
				RealizedValue:        realized,
			})
		}
	}

	if e.includesFirstGoal() {
		records = append(records, e.replayFirstGoal(d, sorted, feats)...)
	}
	return records, skipped
}

func (e *Engine) includesFirstGoal() bool {
	for _, s := range e.config.Stats {
		if s == models.StatFirstGoal {
			return true
		}
	}
	return false
}

// replayFirstGoal projects each team's first-goal market from the players
// who dressed for the game and scores it against the recorded scorer.
func (e *Engine) replayFirstGoal(d time.Time, rows []models.GameLogRow, feats map[string]models.FeatureVector) []models.BacktestRecord {
	type side struct {
		team   string
		roster []models.FeatureVector
		scored map[string]bool
	}
	games := make(map[string]map[string]*side)
	var gameIDs []string
	for _, row := range rows {
		if row.GameID == "" || row.Team == "" {
			continue
		}
		teams, ok := games[row.GameID]
		if !ok {
			teams = make(map[string]*side)
			games[row.GameID] = teams
			gameIDs = append(gameIDs, row.GameID)
		}
		s, ok := teams[row.Team]
		if !ok {
			s = &side{team: row.Team, scored: make(map[string]bool)}
			teams[row.Team] = s
		}
		if fv, ok := feats[row.PlayerID]; ok {
			s.roster = append(s.roster, fv)
		}
		s.scored[row.PlayerID] = row.FirstGoal
	}
	sort.Strings(gameIDs)

	var records []models.BacktestRecord
	for _, gameID := range gameIDs {
		teams := games[gameID]
		names := make([]string, 0, len(teams))
		for t := range teams {
			names = append(names, t)
		}
		sort.Strings(names)
		for _, team := range names {
			s := teams[team]
			var oppGoals float64
			for _, other := range names {
				if other == team {
					continue
				}
				for _, fv := range teams[other].roster {
					oppGoals += fv.GoalsRate
				}
			}
			market, ok := e.projector.ProjectFirstGoal(projection.FirstGoalInput{
				GameID:                gameID,
				Team:                  team,
				AsOf:                  d,
				Roster:                s.roster,
				OpponentExpectedGoals: oppGoals,
			})
			if !ok {
				continue
			}
			for _, o := range market.Outcomes {
				realized := 0.0
				if s.scored[o.PlayerID] {
					realized = 1
				}
				records = append(records, models.BacktestRecord{
					PlayerID:             o.PlayerID,
					Date:                 d,
					StatKind:             models.StatFirstGoal,
					Line:                 o.Line,
					PredictedProbability: o.Mean,
					PredictedMean:        o.Mean,
					RealizedOutcome:      s.scored[o.PlayerID],
					RealizedValue:        realized,
				})
			}
		}
	}
	return records
}

func realizedCount(row models.GameLogRow, stat models.StatKind) float64 {
	switch stat {
	case models.StatShots:
		return float64(row.Shots)
	case models.StatPoints:
		return float64(row.Points)
	default:
		return 0
	}
}

// AttachPrices sets BookPrice on records that have a matching over/yes price
// for their date. It returns the number of records priced.
func AttachPrices(records []models.BacktestRecord, prices map[time.Time][]models.FairPrice) int {
	if len(prices) == 0 {
		return 0
	}
	type key struct {
		date   time.Time
		player string
		stat   models.StatKind
		line   float64
	}
	index := make(map[key]float64)
	for d, list := range prices {
		for _, fp := range list {
			if fp.PlayerID == "" || (fp.Side != models.SideOver && fp.Side != models.SideYes) {
				continue
			}
			line := firstGoalLine
			if fp.Line != nil {
				line = *fp.Line
			}
			index[key{models.DateOnly(d), fp.PlayerID, fp.StatKind, line}] = fp.BestPriceFloat()
		}
	}

	priced := 0
	for i := range records {
		r := &records[i]
		line := firstGoalLine
		if r.Line != nil {
			line = *r.Line
		}
		if price, ok := index[key{models.DateOnly(r.Date), r.PlayerID, r.StatKind, line}]; ok {
			p := price
			r.BookPrice = &p
			priced++
		}
	}
	return priced
}
