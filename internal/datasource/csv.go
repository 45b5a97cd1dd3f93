package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
)

const csvSourceName = "csv"

// File names read from the CSV source directory
const (
	GameLogsFile = "game_logs.csv"
	SlateFile    = "slate.csv"
	OddsFile     = "odds.csv"
)

// CSVSource reads game logs, slates and quotes from a directory of CSV
// files. Columns are matched by header name, so order does not matter.
type CSVSource struct {
	dir    string
	logger *logrus.Entry
}

// NewCSVSource creates a source rooted at dir
func NewCSVSource(dir string, log *logrus.Logger) (*CSVSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: csv source path %s is not a directory", models.ErrInvalidInput, dir)
	}
	return &CSVSource{
		dir:    dir,
		logger: logger.OrDiscard(log).WithField("source", csvSourceName),
	}, nil
}

// Name returns the name of the data source
func (c *CSVSource) Name() string {
	return csvSourceName
}

// FetchSlate returns games in slate.csv dated on date
func (c *CSVSource) FetchSlate(ctx context.Context, date time.Time) ([]models.Game, error) {
	records, err := c.read(ctx, SlateFile)
	if err != nil {
		return nil, err
	}
	date = models.DateOnly(date)

	var games []models.Game
	for i, r := range records {
		d, err := parseDate(r.get("date"))
		if err != nil {
			return nil, c.rowError(SlateFile, i, err)
		}
		if !d.Equal(date) {
			continue
		}
		games = append(games, models.Game{
			GameID:   r.get("game_id"),
			Date:     d,
			HomeTeam: strings.ToUpper(r.get("home_team")),
			AwayTeam: strings.ToUpper(r.get("away_team")),
		})
	}
	return games, nil
}

// FetchGameLogs returns rows of game_logs.csv matching query
func (c *CSVSource) FetchGameLogs(ctx context.Context, query GameLogQuery) ([]models.GameLogRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	records, err := c.read(ctx, GameLogsFile)
	if err != nil {
		return nil, err
	}

	var rows []models.GameLogRow
	for i, r := range records {
		row, err := parseGameLog(r)
		if err != nil {
			return nil, c.rowError(GameLogsFile, i, err)
		}
		if query.Matches(row) {
			rows = append(rows, row)
		}
	}
	c.logger.WithFields(logrus.Fields{"rows": len(rows), "read": len(records)}).Debug("Loaded game logs")
	return rows, nil
}

// FetchOdds returns quotes in odds.csv for date. A date column selects rows
// when present; otherwise the quote timestamp's calendar day is used.
func (c *CSVSource) FetchOdds(ctx context.Context, date time.Time) ([]models.OddsQuote, error) {
	records, err := c.read(ctx, OddsFile)
	if err != nil {
		return nil, err
	}
	date = models.DateOnly(date)

	var quotes []models.OddsQuote
	for i, r := range records {
		q, err := parseQuote(r)
		if err != nil {
			return nil, c.rowError(OddsFile, i, err)
		}
		day := models.DateOnly(q.Timestamp)
		if s := r.get("date"); s != "" {
			if day, err = parseDate(s); err != nil {
				return nil, c.rowError(OddsFile, i, err)
			}
		}
		if day.Equal(date) {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func (c *CSVSource) rowError(file string, index int, err error) error {
	// +2: header line and 1-based numbering
	return NewDataSourceError(csvSourceName, ErrCodeInvalidData, fmt.Sprintf("%s line %d", file, index+2), err)
}

type csvRecord struct {
	header map[string]int
	fields []string
}

func (r csvRecord) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// read loads every record of file keyed by its header row
func (c *CSVSource) read(ctx context.Context, file string) ([]csvRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(c.dir, file)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDataSourceError(csvSourceName, ErrCodeNotFound, path, err)
		}
		return nil, NewDataSourceError(csvSourceName, ErrCodeUnknown, "failed to open "+path, err)
	}
	defer f.Close()
	return readRecords(f, file)
}

func readRecords(r io.Reader, file string) ([]csvRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, file+" header", err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var records []csvRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, file, err)
		}
		records = append(records, csvRecord{header: header, fields: fields})
	}
	return records, nil
}

func parseGameLog(r csvRecord) (models.GameLogRow, error) {
	date, err := parseDate(r.get("date"))
	if err != nil {
		return models.GameLogRow{}, err
	}
	var ints [4]int
	for i, col := range []string{"shots", "points", "goals", "assists"} {
		if ints[i], err = parseInt(r.get(col)); err != nil {
			return models.GameLogRow{}, fmt.Errorf("%s: %w", col, err)
		}
	}
	minutes, err := parseMinutes(r.get("minutes"))
	if err != nil {
		return models.GameLogRow{}, fmt.Errorf("minutes: %w", err)
	}
	points := ints[1]
	if r.get("points") == "" {
		points = ints[2] + ints[3]
	}
	return models.GameLogRow{
		PlayerID:   r.get("player_id"),
		PlayerName: r.get("player_name"),
		GameID:     r.get("game_id"),
		Team:       strings.ToUpper(r.get("team")),
		Date:       date,
		Shots:      ints[0],
		Points:     points,
		Goals:      ints[2],
		Assists:    ints[3],
		Opponent:   strings.ToUpper(r.get("opponent")),
		Home:       parseFlag(r.get("home")),
		Minutes:    minutes,
		FirstGoal:  parseFlag(r.get("first_goal")),
	}, nil
}

func parseQuote(r csvRecord) (models.OddsQuote, error) {
	ts, err := time.Parse(time.RFC3339, r.get("timestamp"))
	if err != nil {
		return models.OddsQuote{}, fmt.Errorf("timestamp: %w", err)
	}

	var price decimal.Decimal
	switch {
	case r.get("decimal_price") != "":
		if price, err = decimal.NewFromString(r.get("decimal_price")); err != nil {
			return models.OddsQuote{}, fmt.Errorf("decimal_price: %w", err)
		}
	case r.get("american_price") != "":
		american, err := strconv.Atoi(r.get("american_price"))
		if err != nil {
			return models.OddsQuote{}, fmt.Errorf("american_price: %w", err)
		}
		if price, err = odds.AmericanToDecimal(american); err != nil {
			return models.OddsQuote{}, err
		}
	default:
		return models.OddsQuote{}, fmt.Errorf("%w: quote has no price", models.ErrInvalidInput)
	}

	q := models.OddsQuote{
		MarketID:     r.get("market_id"),
		OutcomeID:    r.get("outcome_id"),
		BookName:     r.get("book_name"),
		DecimalPrice: price,
		Timestamp:    ts,
		PlayerID:     r.get("player_id"),
		Side:         strings.ToLower(r.get("side")),
	}
	if s := r.get("stat_kind"); s != "" {
		if q.StatKind, err = models.ParseStatKind(s); err != nil {
			return models.OddsQuote{}, err
		}
	}
	if s := r.get("line"); s != "" {
		line, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.OddsQuote{}, fmt.Errorf("line: %w", err)
		}
		q.Line = &line
	}
	return q, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseMinutes accepts decimal minutes or an mm:ss time-on-ice string
func parseMinutes(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if mm, ss, ok := strings.Cut(s, ":"); ok {
		m, err := strconv.Atoi(mm)
		if err != nil {
			return 0, err
		}
		sec, err := strconv.Atoi(ss)
		if err != nil {
			return 0, err
		}
		return float64(m) + float64(sec)/60, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y", "h", "home":
		return true
	}
	return false
}
