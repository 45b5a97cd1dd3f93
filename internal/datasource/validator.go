package datasource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
)

var one = decimal.NewFromInt(1)

// Rejection explains why one input row was dropped during ingestion
type Rejection struct {
	Index  int
	Key    string
	Reason string
}

// Skipped converts the rejection into the engine's skipped-item form
func (r Rejection) Skipped() models.SkippedItem {
	return models.SkippedItem{Kind: models.SkipRow, Key: r.Key, Reason: r.Reason}
}

// RowValidator checks ingested rows against their struct tags and drops
// duplicates before anything reaches the feature transform
type RowValidator struct {
	validate *validator.Validate
	logger   *logrus.Entry
}

// NewRowValidator creates a validator for game logs, slates and quotes
func NewRowValidator(log *logrus.Logger) *RowValidator {
	return &RowValidator{
		validate: validator.New(),
		logger:   logger.OrDiscard(log).WithField("component", "row_validator"),
	}
}

// ValidateGameLogs returns the valid rows sorted by player then date, and a
// rejection for every row that failed a rule or repeated a (player, date) pair.
func (v *RowValidator) ValidateGameLogs(rows []models.GameLogRow) ([]models.GameLogRow, []Rejection) {
	type key struct {
		player string
		date   time.Time
	}
	seen := make(map[key]bool, len(rows))
	valid := make([]models.GameLogRow, 0, len(rows))
	var rejected []Rejection

	for i, row := range rows {
		k := row.PlayerID + "@" + row.Date.Format(time.DateOnly)
		if err := v.validate.Struct(row); err != nil {
			rejected = append(rejected, Rejection{Index: i, Key: k, Reason: describe(err)})
			continue
		}
		dk := key{row.PlayerID, models.DateOnly(row.Date)}
		if seen[dk] {
			rejected = append(rejected, Rejection{Index: i, Key: k, Reason: models.ErrDuplicateKey.Error()})
			continue
		}
		seen[dk] = true
		valid = append(valid, row)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].PlayerID != valid[j].PlayerID {
			return valid[i].PlayerID < valid[j].PlayerID
		}
		return valid[i].Date.Before(valid[j].Date)
	})
	v.logRejections("game_logs", len(rows), rejected)
	return valid, rejected
}

// ValidateGames drops slate entries with missing fields or a team facing itself
func (v *RowValidator) ValidateGames(games []models.Game) ([]models.Game, []Rejection) {
	seen := make(map[string]bool, len(games))
	valid := make([]models.Game, 0, len(games))
	var rejected []Rejection

	for i, g := range games {
		if err := v.validate.Struct(g); err != nil {
			rejected = append(rejected, Rejection{Index: i, Key: g.GameID, Reason: describe(err)})
			continue
		}
		if seen[g.GameID] {
			rejected = append(rejected, Rejection{Index: i, Key: g.GameID, Reason: models.ErrDuplicateKey.Error()})
			continue
		}
		seen[g.GameID] = true
		valid = append(valid, g)
	}
	v.logRejections("slate", len(games), rejected)
	return valid, rejected
}

// ValidateQuotes drops quotes with missing ids or a decimal price not above 1
func (v *RowValidator) ValidateQuotes(quotes []models.OddsQuote) ([]models.OddsQuote, []Rejection) {
	valid := make([]models.OddsQuote, 0, len(quotes))
	var rejected []Rejection

	for i, q := range quotes {
		k := q.BookName + ":" + q.OutcomeID
		if err := v.validate.Struct(q); err != nil {
			rejected = append(rejected, Rejection{Index: i, Key: k, Reason: describe(err)})
			continue
		}
		if q.DecimalPrice.LessThanOrEqual(one) {
			rejected = append(rejected, Rejection{Index: i, Key: k, Reason: fmt.Sprintf("decimal price %s must be above 1", q.DecimalPrice)})
			continue
		}
		valid = append(valid, q)
	}
	v.logRejections("odds", len(quotes), rejected)
	return valid, rejected
}

func (v *RowValidator) logRejections(kind string, total int, rejected []Rejection) {
	if len(rejected) == 0 {
		return
	}
	v.logger.WithFields(logrus.Fields{
		"kind":     kind,
		"total":    total,
		"rejected": len(rejected),
		"first":    rejected[0].Reason,
	}).Warn("Rows rejected during ingestion")
}

// describe flattens validator errors into "Field failed tag" clauses
func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
