package rates

import (
	"context"
	"strings"
	"time"
)

// Service answers rate lookups and currency conversion.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AddCurrency registers a currency. Codes are stored upper-cased.
func (s *Service) AddCurrency(ctx context.Context, code, name string) (Currency, error) {
	return s.repo.CreateCurrency(ctx, Currency{Code: strings.ToUpper(code), Name: name})
}

// AddRate appends a quote for the pair. Rates are never updated in place.
func (s *Service) AddRate(ctx context.Context, base, target string, rate float64) (ExchangeRate, error) {
	if rate <= 0 {
		return ExchangeRate{}, ErrInvalidRate
	}
	return s.repo.CreateRate(ctx, strings.ToUpper(base), strings.ToUpper(target), rate, s.now().UTC())
}

// LatestRate returns the most recent quote for the exact pair, or nil.
func (s *Service) LatestRate(ctx context.Context, base, target string) (*ExchangeRate, error) {
	return s.repo.LatestRate(ctx, strings.ToUpper(base), strings.ToUpper(target))
}

// ListCurrencies returns all registered currencies ordered by code.
func (s *Service) ListCurrencies(ctx context.Context) ([]Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

// Convert converts amount from one currency to another using the latest
// direct rate, or the latest inverse rate when no direct quote exists.
// Rates are never chained through a third currency. A missing pair yields
// ErrNoRateAvailable rather than passing the amount through unchanged.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	direct, err := s.repo.LatestRate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if direct != nil {
		return amount * direct.Rate, nil
	}
	inverse, err := s.repo.LatestRate(ctx, to, from)
	if err != nil {
		return 0, err
	}
	if inverse == nil || inverse.Rate == 0 {
		return 0, ErrNoRateAvailable
	}
	return amount / inverse.Rate, nil
}
