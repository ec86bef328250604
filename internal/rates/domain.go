package rates

import (
	"errors"
	"time"
)

// Currency is a reference row; immutable once referenced.
type Currency struct {
	Code string
	Name string
}

// ExchangeRate is an append-only quote for a currency pair. The latest
// rate for a pair is the one with the greatest CapturedAt.
type ExchangeRate struct {
	ID         int64
	Base       string
	Target     string
	Rate       float64
	CapturedAt time.Time
}

var (
	// ErrNoRateAvailable indicates neither a direct nor a usable inverse
	// rate exists for the requested pair.
	ErrNoRateAvailable = errors.New("rates: no rate available")
	// ErrCurrencyExists indicates the currency code is already registered.
	ErrCurrencyExists = errors.New("rates: currency already exists")
	// ErrInvalidRate indicates a non-positive rate value.
	ErrInvalidRate = errors.New("rates: rate must be positive")
)
