package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMarketIncomplete = errors.New("market incomplete")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
)

// MarketIncompleteError reports a market that cannot be de-vigged because
// outcomes are missing or no single book quotes the full outcome set.
type MarketIncompleteError struct {
	MarketID string
	Missing  []string
	Reason   string
}

func (e *MarketIncompleteError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("market %s incomplete: missing outcomes [%s]", e.MarketID, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("market %s incomplete: %s", e.MarketID, e.Reason)
}

// Is allows errors.Is(err, ErrMarketIncomplete).
func (e *MarketIncompleteError) Is(target error) bool {
	return target == ErrMarketIncomplete
}

// InsufficientDataError is returned when a record set is below the minimum
// size required for a meaningful evaluation.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d records, need at least %d", e.Have, e.Need)
}

// Is allows errors.Is(err, ErrInsufficientData).
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
