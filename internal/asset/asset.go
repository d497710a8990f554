// Package asset handles parsing and validation of tradeable asset symbols,
// prediction directions, trade sides, and prediction timeframe labels.
package asset

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Supported asset symbols.
const (
	BTC Symbol = "BTC"
	ETH Symbol = "ETH"
)

// Symbol identifies a supported asset.
type Symbol string

var supported = map[Symbol]bool{
	BTC: true,
	ETH: true,
}

var (
	ErrUnsupportedAsset = errors.New("asset: unsupported asset symbol")
	ErrInvalidDirection = errors.New("asset: direction must be UP or DOWN")
	ErrInvalidSide      = errors.New("asset: side must be BUY or SELL")
	ErrInvalidTimeframe = errors.New("asset: invalid timeframe label")
)

// ParseSymbol validates an asset symbol string.
func ParseSymbol(s string) (Symbol, error) {
	sym := Symbol(s)
	if !supported[sym] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAsset, s)
	}
	return sym, nil
}

// Symbols returns all supported asset symbols in a stable order.
func Symbols() []Symbol {
	return []Symbol{BTC, ETH}
}

// Direction is the predicted price direction.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// ParseDirection validates a prediction direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDirection, s)
}

// Side is the trade side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide validates a trade side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy, Sell:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidSide, s)
}

// timeframeRegex matches labels like 1H, 4H, 1D, 1W.
var timeframeRegex = regexp.MustCompile(`^(\d+)([HDW])$`)

// Timeframe is a prediction horizon label, e.g. "1H", "4H", "1D", "1W".
type Timeframe string

// ParseTimeframe validates a timeframe label.
func ParseTimeframe(s string) (Timeframe, error) {
	if !timeframeRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %s (expected e.g. 1H, 4H, 1D, 1W)", ErrInvalidTimeframe, s)
	}
	return Timeframe(s), nil
}

// Duration converts the timeframe label to a time.Duration.
func (t Timeframe) Duration() (time.Duration, error) {
	matches := timeframeRegex.FindStringSubmatch(string(t))
	if matches == nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimeframe, t)
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimeframe, t)
	}
	switch matches[2] {
	case "H":
		return time.Duration(n) * time.Hour, nil
	case "D":
		return time.Duration(n) * 24 * time.Hour, nil
	case "W":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidTimeframe, t)
}
