package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
)

const nhlWebSourceName = "nhl_web"

// Public endpoints used when the configuration leaves them empty
const (
	DefaultNHLWebBaseURL = "https://api-web.nhle.com/v1"
	DefaultESPNURL       = "https://site.api.espn.com/apis/site/v2/sports/hockey/nhl"
)

// NHLWebConfig configures the ESPN slate and NHL web stats adapter
type NHLWebConfig struct {
	BaseURL  string
	ESPNURL  string
	CacheTTL time.Duration
	Workers  int
}

// NHLWebSource reads the slate from the ESPN scoreboard and rosters plus
// player game logs from api-web.nhle.com. Odds are not offered.
type NHLWebSource struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	espnURL    string
	workers    int
	cache      *cache.Cache
	logger     *logrus.Entry
}

// espnScoreboard mirrors the subset of the ESPN scoreboard payload we read
type espnScoreboard struct {
	Events []struct {
		ID           string `json:"id"`
		Date         string `json:"date"`
		Competitions []struct {
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Team     struct {
					Abbreviation string `json:"abbreviation"`
				} `json:"team"`
			} `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

type localizedName struct {
	Default string `json:"default"`
}

type nhlRosterPlayer struct {
	ID        int64         `json:"id"`
	FirstName localizedName `json:"firstName"`
	LastName  localizedName `json:"lastName"`
}

type nhlRoster struct {
	Forwards   []nhlRosterPlayer `json:"forwards"`
	Defensemen []nhlRosterPlayer `json:"defensemen"`
}

type nhlGameLog struct {
	GameLog []struct {
		GameID         int64  `json:"gameId"`
		TeamAbbrev     string `json:"teamAbbrev"`
		HomeRoadFlag   string `json:"homeRoadFlag"`
		GameDate       string `json:"gameDate"`
		Goals          int    `json:"goals"`
		Assists        int    `json:"assists"`
		Points         int    `json:"points"`
		Shots          int    `json:"shots"`
		TOI            string `json:"toi"`
		OpponentAbbrev string `json:"opponentAbbrev"`
	} `json:"gameLog"`
}

// NewNHLWebSource creates the adapter over an existing rate-limited client
func NewNHLWebSource(httpClient *RateLimitedHTTPClient, cfg NHLWebConfig, log *logrus.Logger) (*NHLWebSource, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNHLWebBaseURL
	}
	if cfg.ESPNURL == "" {
		cfg.ESPNURL = DefaultESPNURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &NHLWebSource{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		espnURL:    strings.TrimRight(cfg.ESPNURL, "/"),
		workers:    cfg.Workers,
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:     logger.OrDiscard(log).WithField("source", nhlWebSourceName),
	}, nil
}

// Name returns the name of the data source
func (n *NHLWebSource) Name() string {
	return nhlWebSourceName
}

// SeasonCode returns the NHL season id containing date, e.g. 20242025.
// Seasons roll over in July.
func SeasonCode(date time.Time) string {
	y := date.Year()
	if date.Month() < time.July {
		return fmt.Sprintf("%d%d", y-1, y)
	}
	return fmt.Sprintf("%d%d", y, y+1)
}

// FetchSlate returns the games on the ESPN scoreboard for date
func (n *NHLWebSource) FetchSlate(ctx context.Context, date time.Time) ([]models.Game, error) {
	date = models.DateOnly(date)
	url := fmt.Sprintf("%s/scoreboard?dates=%s", n.espnURL, date.Format("20060102"))

	var board espnScoreboard
	if err := n.getJSON(ctx, url, &board); err != nil {
		return nil, err
	}

	var games []models.Game
	for _, ev := range board.Events {
		if len(ev.Competitions) == 0 || len(ev.Competitions[0].Competitors) != 2 {
			continue
		}
		g := models.Game{GameID: ev.ID, Date: date}
		for _, c := range ev.Competitions[0].Competitors {
			abbr := strings.ToUpper(c.Team.Abbreviation)
			if strings.EqualFold(c.HomeAway, "home") {
				g.HomeTeam = abbr
			} else {
				g.AwayTeam = abbr
			}
		}
		if g.HomeTeam == "" || g.AwayTeam == "" {
			continue
		}
		games = append(games, g)
	}
	if len(games) == 0 {
		return nil, NewDataSourceError(nhlWebSourceName, ErrCodeNotFound, "no ESPN slate for "+date.Format(time.DateOnly), nil)
	}
	n.logger.WithFields(logrus.Fields{"date": date.Format(time.DateOnly), "games": len(games)}).Debug("Fetched slate")
	return games, nil
}

// FetchGameLogs pulls regular-season game logs for every skater on the
// query's teams, plus any explicitly listed players
func (n *NHLWebSource) FetchGameLogs(ctx context.Context, query GameLogQuery) ([]models.GameLogRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if len(query.Teams) == 0 && len(query.PlayerIDs) == 0 {
		return nil, fmt.Errorf("%w: nhl_web game log query needs teams or players", models.ErrInvalidInput)
	}
	seasons := seasonsBetween(query.From, query.To.AddDate(0, 0, -1))

	type target struct {
		id   string
		name string
	}
	var targets []target
	seen := make(map[string]bool)
	for _, team := range query.Teams {
		for _, p := range n.roster(ctx, team, seasons[len(seasons)-1]) {
			if !seen[p.id] {
				seen[p.id] = true
				targets = append(targets, target{p.id, p.name})
			}
		}
	}
	for _, id := range query.PlayerIDs {
		if !seen[id] {
			seen[id] = true
			targets = append(targets, target{id: id})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	results := make([][]models.GameLogRow, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for i, t := range targets {
		g.Go(func() error {
			for _, season := range seasons {
				rows, err := n.playerLog(ctx, t.id, t.name, season)
				if err != nil {
					if IsNotFound(err) {
						continue
					}
					return err
				}
				results[i] = append(results[i], rows...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch game logs: %w", err)
	}

	var rows []models.GameLogRow
	for _, rs := range results {
		for _, row := range rs {
			if matchesDates(query, row) {
				rows = append(rows, row)
			}
		}
	}
	n.logger.WithFields(logrus.Fields{"players": len(targets), "rows": len(rows)}).Info("Fetched NHL web game logs")
	return rows, nil
}

// FetchOdds is not offered by the public NHL endpoints
func (n *NHLWebSource) FetchOdds(ctx context.Context, date time.Time) ([]models.OddsQuote, error) {
	return nil, NewDataSourceError(nhlWebSourceName, ErrCodeNotSupported, "odds are not available from NHL web", nil)
}

type rosterEntry struct {
	id   string
	name string
}

// roster returns the team's skaters; a failed fetch yields no players
func (n *NHLWebSource) roster(ctx context.Context, team, season string) []rosterEntry {
	url := fmt.Sprintf("%s/roster/%s/%s", n.baseURL, strings.ToUpper(team), season)
	var r nhlRoster
	if err := n.getJSON(ctx, url, &r); err != nil {
		n.logger.WithError(err).WithField("team", team).Warn("Roster fetch failed")
		return nil
	}
	var out []rosterEntry
	for _, p := range append(r.Forwards, r.Defensemen...) {
		if p.ID == 0 {
			continue
		}
		out = append(out, rosterEntry{
			id:   strconv.FormatInt(p.ID, 10),
			name: strings.TrimSpace(p.FirstName.Default + " " + p.LastName.Default),
		})
	}
	return out
}

func (n *NHLWebSource) playerLog(ctx context.Context, playerID, name, season string) ([]models.GameLogRow, error) {
	url := fmt.Sprintf("%s/player/%s/game-log/%s/2", n.baseURL, playerID, season)
	var gl nhlGameLog
	if err := n.getJSON(ctx, url, &gl); err != nil {
		return nil, err
	}

	rows := make([]models.GameLogRow, 0, len(gl.GameLog))
	for _, g := range gl.GameLog {
		date, err := time.Parse(time.DateOnly, g.GameDate)
		if err != nil {
			n.logger.WithField("player_id", playerID).Debugf("Skipping game with bad date %q", g.GameDate)
			continue
		}
		minutes, err := parseMinutes(g.TOI)
		if err != nil {
			minutes = 0
		}
		points := g.Points
		if points < g.Goals+g.Assists {
			points = g.Goals + g.Assists
		}
		rows = append(rows, models.GameLogRow{
			PlayerID:   playerID,
			PlayerName: name,
			GameID:     strconv.FormatInt(g.GameID, 10),
			Team:       strings.ToUpper(g.TeamAbbrev),
			Date:       date,
			Shots:      g.Shots,
			Points:     points,
			Goals:      g.Goals,
			Assists:    g.Assists,
			Opponent:   strings.ToUpper(g.OpponentAbbrev),
			Home:       strings.EqualFold(g.HomeRoadFlag, "H"),
			Minutes:    minutes,
		})
	}
	return rows, nil
}

// getJSON fetches url through the response cache and decodes it into out
func (n *NHLWebSource) getJSON(ctx context.Context, url string, out interface{}) error {
	body, ok := n.cache.Get(url)
	if !ok {
		data, err := n.httpClient.GetJSON(ctx, nhlWebSourceName, url)
		if err != nil {
			return err
		}
		n.cache.SetDefault(url, data)
		body = data
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return NewDataSourceError(nhlWebSourceName, ErrCodeInvalidData, "failed to decode "+url, err)
	}
	return nil
}

func matchesDates(q GameLogQuery, row models.GameLogRow) bool {
	d := models.DateOnly(row.Date)
	if !q.From.IsZero() && d.Before(models.DateOnly(q.From)) {
		return false
	}
	return d.Before(models.DateOnly(q.To))
}

// seasonsBetween lists season codes from from's season through to's
// season in order. A zero from yields only to's season.
func seasonsBetween(from, to time.Time) []string {
	last := SeasonCode(to)
	if from.IsZero() || !from.Before(to) {
		return []string{last}
	}
	var seasons []string
	for y := from; ; y = y.AddDate(1, 0, 0) {
		code := SeasonCode(y)
		if len(seasons) == 0 || seasons[len(seasons)-1] != code {
			seasons = append(seasons, code)
		}
		if code == last || y.After(to) {
			break
		}
	}
	if seasons[len(seasons)-1] != last {
		seasons = append(seasons, last)
	}
	return seasons
}

// IsNotFound reports whether err is a not-found error from any source
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
