// Package datasource fetches slates, player game logs and odds from
// interchangeable providers.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/nhl-picks/internal/models"
)

// DataSource defines the capabilities a provider offers to the engine
type DataSource interface {
	// FetchSlate returns the games scheduled on date
	FetchSlate(ctx context.Context, date time.Time) ([]models.Game, error)

	// FetchGameLogs returns player box-score rows matching the query
	FetchGameLogs(ctx context.Context, query GameLogQuery) ([]models.GameLogRow, error)

	// FetchOdds returns the book quotes posted for games on date
	FetchOdds(ctx context.Context, date time.Time) ([]models.OddsQuote, error)

	// Name returns the name of the data source
	Name() string
}

// GameLogQuery selects game-log rows. Rows dated in [From, To) are returned;
// a zero From means the start of the provider's history. Empty Teams or
// PlayerIDs do not filter.
type GameLogQuery struct {
	Teams     []string
	PlayerIDs []string
	From      time.Time
	To        time.Time
}

// Validate checks the query bounds
func (q GameLogQuery) Validate() error {
	if q.To.IsZero() {
		return fmt.Errorf("%w: game log query needs an end date", models.ErrInvalidInput)
	}
	if !q.From.IsZero() && !q.From.Before(q.To) {
		return fmt.Errorf("%w: game log query start %s is not before end %s",
			models.ErrInvalidInput, q.From.Format(time.DateOnly), q.To.Format(time.DateOnly))
	}
	return nil
}

// Matches reports whether row falls inside the query
func (q GameLogQuery) Matches(row models.GameLogRow) bool {
	d := models.DateOnly(row.Date)
	if !q.From.IsZero() && d.Before(models.DateOnly(q.From)) {
		return false
	}
	if !d.Before(models.DateOnly(q.To)) {
		return false
	}
	if len(q.Teams) > 0 && !contains(q.Teams, row.Team) {
		return false
	}
	if len(q.PlayerIDs) > 0 && !contains(q.PlayerIDs, row.PlayerID) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error code
func (e DataSourceError) Is(target error) bool {
	switch e.Code {
	case ErrCodeNotSupported:
		return target == ErrNotSupported
	case ErrCodeNotFound:
		return target == ErrNotFound || target == models.ErrNotFound
	case ErrCodeRateLimitExceeded:
		return target == ErrRateLimitExceeded
	case ErrCodeInvalidData:
		return target == ErrInvalidData
	case ErrCodeNetworkError:
		return target == ErrNetworkError
	case ErrCodeServerError:
		return target == ErrServerError
	}
	return false
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeNotSupported      = "not_supported"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeUnknown           = "unknown"
)

// Sentinels matched by DataSourceError.Is
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrNotSupported      = errors.New("operation not supported by data source")
	ErrInvalidData       = errors.New("invalid data format")
	ErrNetworkError      = errors.New("network error")
	ErrServerError       = errors.New("server error")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
