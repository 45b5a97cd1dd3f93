package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/nhl-picks/internal/datasource"
	"github.com/yourusername/nhl-picks/internal/features"
	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/metrics"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
	"github.com/yourusername/nhl-picks/internal/projection"
)

// DailyConfig holds the settings of a daily projection run
type DailyConfig struct {
	HalfLifeDays float64
	LookbackDays int
	Workers      int
	ShotsLine    float64
	PointsLine   float64
}

// DailyResult is everything a daily run produced for one slate
type DailyResult struct {
	RunID       uuid.UUID                         `json:"run_id"`
	SlateDate   time.Time                         `json:"slate_date"`
	GeneratedAt time.Time                         `json:"generated_at"`
	Source      string                            `json:"source"`
	Games       []models.Game                     `json:"games"`
	Projections []models.ProjectedDistribution    `json:"projections"`
	FirstGoal   []models.FirstGoalMarket          `json:"first_goal"`
	Picks       map[models.StatKind][]models.Pick `json:"picks"`
	Skipped     []models.SkippedItem              `json:"skipped"`
	Notice      string                            `json:"notice"`
	Degraded    bool                              `json:"degraded"`
	Stats       *RunStats                         `json:"stats"`
}

// DailyService runs the fetch, feature, projection, odds and pick pipeline
// for one slate
type DailyService struct {
	source    datasource.DataSource
	validator *datasource.RowValidator
	builder   *features.Builder
	projector *projection.Projector
	odds      *odds.Normalizer
	cfg       DailyConfig
	now       func() time.Time
	logger    *logrus.Entry
	engineLog *logger.EngineLogger
}

// NewDailyService creates a daily service
func NewDailyService(
	source datasource.DataSource,
	cfg DailyConfig,
	projector *projection.Projector,
	normalizer *odds.Normalizer,
	log *logrus.Logger,
) (*DailyService, error) {
	if source == nil || projector == nil || normalizer == nil {
		return nil, fmt.Errorf("%w: daily service needs a source, projector and normalizer", models.ErrInvalidInput)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	builder, err := features.NewBuilder(cfg.HalfLifeDays, cfg.Workers, log)
	if err != nil {
		return nil, err
	}
	return &DailyService{
		source:    source,
		validator: datasource.NewRowValidator(log),
		builder:   builder,
		projector: projector,
		odds:      normalizer,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.OrDiscard(log).WithField("component", "daily_service"),
		engineLog: logger.NewEngineLogger(log),
	}, nil
}

// WithClock overrides the clock used for timestamps
func (s *DailyService) WithClock(now func() time.Time) *DailyService {
	s.now = now
	return s
}

// RunDaily projects the slate on date. A failed slate or game-log fetch
// does not fail the run: the result comes back degraded with empty tables
// and a notice. Only cancellation and structurally invalid input return
// an error.
func (s *DailyService) RunDaily(ctx context.Context, date time.Time) (*DailyResult, error) {
	start := s.now()
	slateDate := models.DateOnly(date)
	res := &DailyResult{
		RunID:       uuid.New(),
		SlateDate:   slateDate,
		GeneratedAt: start.UTC(),
		Source:      s.source.Name(),
		Picks:       make(map[models.StatKind][]models.Pick),
		Stats:       NewRunStats(start),
	}
	log := s.logger.WithFields(logrus.Fields{"run_id": res.RunID.String(), "slate_date": slateDate.Format(time.DateOnly)})
	log.Info("Starting daily run")

	games, err := s.source.FetchSlate(ctx, slateDate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.degrade(res, "slate", err), nil
	}
	games, rejected := s.validator.ValidateGames(games)
	s.reject(res, "slate", rejected)
	res.Games = games
	res.Stats.Games = len(games)
	metrics.UpdateSlateGames(len(games))

	if len(games) == 0 {
		res.Notice = fmt.Sprintf("Slate date: %s • No games scheduled", slateDate.Format(time.DateOnly))
		return s.finish(res, "success"), nil
	}

	logs, err := s.source.FetchGameLogs(ctx, s.historyQuery(games, slateDate))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.degrade(res, "game_logs", err), nil
	}
	logs, rejected = s.validator.ValidateGameLogs(logs)
	s.reject(res, "game_logs", rejected)

	feats, err := s.builder.Build(ctx, logs, slateDate)
	if err != nil {
		return nil, fmt.Errorf("daily run failed: %w", err)
	}
	factors := features.BuildOpponentFactors(logs, slateDate, s.cfg.HalfLifeDays)

	rosters := rostersFor(games, feats)
	if err := s.project(ctx, res, games, rosters, factors); err != nil {
		return nil, fmt.Errorf("daily run failed: %w", err)
	}
	s.projectFirstGoal(res, games, rosters)

	prices := s.fairPrices(ctx, res, slateDate)
	s.buildPicks(res, prices)

	res.Notice = fmt.Sprintf("Slate date: %s • Source: %s", slateDate.Format(time.DateOnly), s.source.Name())
	return s.finish(res, "success"), nil
}

// historyQuery asks for the slate teams' rows before the slate date
func (s *DailyService) historyQuery(games []models.Game, slateDate time.Time) datasource.GameLogQuery {
	var teams []string
	for _, g := range games {
		teams = append(teams, g.Teams()...)
	}
	sort.Strings(teams)
	q := datasource.GameLogQuery{Teams: teams, To: slateDate}
	if s.cfg.LookbackDays > 0 {
		q.From = slateDate.AddDate(0, 0, -s.cfg.LookbackDays)
	}
	return q
}

// slot is one player in one game on the slate
type slot struct {
	game     models.Game
	feature  models.FeatureVector
	opponent string
	home     bool
}

// rostersFor assigns every featured player to the slate game of their most
// recent team, keyed by team and sorted by player id
func rostersFor(games []models.Game, feats map[string]models.FeatureVector) map[string][]slot {
	byTeam := make(map[string]models.Game)
	for _, g := range games {
		byTeam[g.HomeTeam] = g
		byTeam[g.AwayTeam] = g
	}
	rosters := make(map[string][]slot)
	for _, fv := range feats {
		g, ok := byTeam[fv.Team]
		if !ok {
			continue
		}
		opp, _ := g.Opponent(fv.Team)
		rosters[fv.Team] = append(rosters[fv.Team], slot{game: g, feature: fv, opponent: opp, home: fv.Team == g.HomeTeam})
	}
	for team := range rosters {
		r := rosters[team]
		sort.Slice(r, func(i, j int) bool { return r[i].feature.PlayerID < r[j].feature.PlayerID })
	}
	return rosters
}

func (s *DailyService) project(ctx context.Context, res *DailyResult, games []models.Game, rosters map[string][]slot, factors models.OpponentFactors) error {
	var slots []slot
	for _, g := range games {
		for _, team := range g.Teams() {
			slots = append(slots, rosters[team]...)
		}
	}
	res.Stats.Players = len(slots)

	stats := []models.StatKind{models.StatShots, models.StatPoints}
	lines := map[models.StatKind]float64{models.StatShots: s.cfg.ShotsLine, models.StatPoints: s.cfg.PointsLine}

	type playerResult struct {
		dists   []models.ProjectedDistribution
		skipped []models.SkippedItem
	}
	results := make([]playerResult, len(slots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, sl := range slots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, stat := range stats {
				line := lines[stat]
				home := sl.home
				d, ok := s.projector.Project(&sl.feature, stat, &line, projection.GameContext{
					GameID:         sl.game.GameID,
					Home:           &home,
					Opponent:       sl.opponent,
					OpponentFactor: factors.Factor(sl.opponent, stat),
				})
				if !ok {
					results[i].skipped = append(results[i].skipped, models.SkippedItem{
						Kind:   models.SkipPlayer,
						Key:    fmt.Sprintf("%s:%s", sl.feature.PlayerID, stat),
						Reason: "no usable rate",
					})
					continue
				}
				results[i].dists = append(results[i].dists, d)
				res.Stats.RecordProjection()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	counts := make(map[models.StatKind]int)
	for _, r := range results {
		res.Projections = append(res.Projections, r.dists...)
		for _, d := range r.dists {
			counts[d.StatKind]++
		}
		for _, item := range r.skipped {
			s.skip(res, item)
		}
	}
	for _, stat := range stats {
		metrics.RecordProjections(string(stat), counts[stat])
	}
	return nil
}

// projectFirstGoal builds one closed first-goal market per team per game.
// The opponent's expected goals come from its own roster.
func (s *DailyService) projectFirstGoal(res *DailyResult, games []models.Game, rosters map[string][]slot) {
	goals := func(team string) (float64, []models.FeatureVector) {
		var total float64
		fvs := make([]models.FeatureVector, 0, len(rosters[team]))
		for _, sl := range rosters[team] {
			total += sl.feature.GoalsRate
			fvs = append(fvs, sl.feature)
		}
		return total, fvs
	}

	for _, g := range games {
		for _, team := range g.Teams() {
			opp, _ := g.Opponent(team)
			_, roster := goals(team)
			oppGoals, _ := goals(opp)
			market, ok := s.projector.ProjectFirstGoal(projection.FirstGoalInput{
				GameID:                g.GameID,
				Team:                  team,
				AsOf:                  res.SlateDate,
				Roster:                roster,
				OpponentExpectedGoals: oppGoals,
			})
			if !ok {
				s.skip(res, models.SkippedItem{Kind: models.SkipMarket, Key: g.GameID + ":" + team, Reason: "no roster goal rates"})
				continue
			}
			res.FirstGoal = append(res.FirstGoal, market)
		}
	}
	res.Stats.FirstGoalMarkets = len(res.FirstGoal)
	metrics.RecordProjections(string(models.StatFirstGoal), len(res.FirstGoal))
}

// fairPrices fetches and de-vigs the slate's odds. Odds are optional: a
// source without odds or a failed fetch leaves every pick unpriced.
func (s *DailyService) fairPrices(ctx context.Context, res *DailyResult, slateDate time.Time) map[string]models.FairPrice {
	quotes, err := s.source.FetchOdds(ctx, slateDate)
	if err != nil {
		if errors.Is(err, datasource.ErrNotSupported) || errors.Is(err, datasource.ErrNotFound) {
			s.logger.WithField("source", s.source.Name()).Info("No odds for slate, picks are unpriced")
		} else {
			metrics.RecordSourceError(s.source.Name(), "odds")
			s.logger.WithError(err).Warn("Odds fetch failed, picks are unpriced")
		}
		return nil
	}
	quotes, rejected := s.validator.ValidateQuotes(quotes)
	s.reject(res, "odds", rejected)
	if len(quotes) == 0 {
		return nil
	}

	normalized, err := s.odds.NormalizeClosed(ctx, quotes, closedMarkets(quotes, res.Projections))
	if err != nil {
		s.logger.WithError(err).Warn("Odds normalization failed, picks are unpriced")
		return nil
	}
	for _, item := range normalized.Skipped {
		s.skip(res, item)
	}
	res.Stats.MarketsPriced = len(normalized.Markets)
	metrics.RecordMarkets(len(normalized.Markets), len(normalized.Skipped))
	return normalized.Prices
}

// closedMarkets lists the full outcome set of every quoted market and of
// every projected over/under market
func closedMarkets(quotes []models.OddsQuote, projections []models.ProjectedDistribution) map[string][]string {
	required := odds.ClosedOutcomes(quotes)
	for _, d := range projections {
		if d.Line == nil {
			continue
		}
		required[odds.MarketID(d.StatKind, d.PlayerID, *d.Line)] = []string{
			odds.OutcomeID(d.StatKind, d.PlayerID, *d.Line, models.SideOver),
			odds.OutcomeID(d.StatKind, d.PlayerID, *d.Line, models.SideUnder),
		}
	}
	return required
}

// buildPicks pairs every projection with its market, when one was priced,
// and ranks each stat by model probability
func (s *DailyService) buildPicks(res *DailyResult, prices map[string]models.FairPrice) {
	opponents := make(map[string]string)
	for _, g := range res.Games {
		opponents[g.HomeTeam] = g.AwayTeam
		opponents[g.AwayTeam] = g.HomeTeam
	}

	add := func(d models.ProjectedDistribution, side string) {
		if d.Line == nil || d.ProbOver == nil {
			return
		}
		p := *d.ProbOver
		pick := models.Pick{
			PlayerID:         d.PlayerID,
			PlayerName:       d.PlayerName,
			Team:             d.Team,
			Opponent:         opponents[d.Team],
			StatKind:         d.StatKind,
			Line:             d.Line,
			ModelProbability: p,
			FairOdds:         projection.FairOdds(p),
		}
		if fp, ok := prices[odds.OutcomeID(d.StatKind, d.PlayerID, *d.Line, side)]; ok {
			fair := fp.ImpliedProbability
			best := fp.BestPriceFloat()
			edge := odds.EdgeVsBook(p, best)
			ev := odds.ExpectedValue(p, best)
			pick.FairProbability = &fair
			pick.BestPrice = &best
			pick.SourceBook = fp.SourceBook
			pick.Edge = &edge
			pick.ExpectedValue = &ev
			res.Stats.PricedPicks++
		}
		res.Picks[d.StatKind] = append(res.Picks[d.StatKind], pick)
	}

	for _, d := range res.Projections {
		add(d, models.SideOver)
	}
	for _, m := range res.FirstGoal {
		for _, o := range m.Outcomes {
			add(o, models.SideYes)
		}
	}

	for stat, picks := range res.Picks {
		sort.SliceStable(picks, func(i, j int) bool {
			if picks[i].ModelProbability != picks[j].ModelProbability {
				return picks[i].ModelProbability > picks[j].ModelProbability
			}
			return picks[i].PlayerID < picks[j].PlayerID
		})
		metrics.UpdatePicksPublished(string(stat), len(picks))
	}
}

func (s *DailyService) skip(res *DailyResult, item models.SkippedItem) {
	res.Skipped = append(res.Skipped, item)
	res.Stats.RecordSkipped(1)
	s.engineLog.LogSkipped(item)
	metrics.RecordSkipped(item.Kind)
}

func (s *DailyService) reject(res *DailyResult, kind string, rejected []datasource.Rejection) {
	for _, r := range rejected {
		res.Skipped = append(res.Skipped, r.Skipped())
	}
	res.Stats.RecordRejected(len(rejected))
	metrics.RecordRowsRejected(kind, len(rejected))
}

// degrade empties the tables and explains the failed fetch in the notice
func (s *DailyService) degrade(res *DailyResult, operation string, err error) *DailyResult {
	metrics.RecordSourceError(s.source.Name(), operation)
	s.logger.WithError(err).WithField("operation", operation).Error("Live fetch failed, publishing degraded site")

	res.Degraded = true
	res.Games = nil
	res.Projections = nil
	res.FirstGoal = nil
	res.Picks = make(map[models.StatKind][]models.Pick)
	res.Notice = fmt.Sprintf("Slate date: %s • Live %s fetch FAILED (%v). Showing no picks.",
		res.SlateDate.Format(time.DateOnly), s.source.Name(), err)
	return s.finish(res, "degraded")
}

func (s *DailyService) finish(res *DailyResult, status string) *DailyResult {
	res.Stats.Finish(s.now())
	duration := res.Stats.Duration
	s.engineLog.LogProjectionRun(res.RunID.String(), res.SlateDate.Format(time.DateOnly),
		len(res.Games), len(res.Projections), len(res.Skipped), float64(duration.Microseconds())/1000)
	metrics.RecordDailyRun(status, duration.Seconds())
	if !res.Degraded {
		metrics.MarkSuccessfulRun(float64(s.now().Unix()))
	}
	return res
}
