package reports

import (
	"context"
	"time"
)

// Service exposes period reports over the repository.
type Service struct {
	repo Repository
}

// NewService constructs the reporting service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GSTR1 summarizes invoices dated within [start, end], both inclusive.
func (s *Service) GSTR1(ctx context.Context, start, end time.Time) (GSTR1Summary, error) {
	if end.Before(start) {
		return GSTR1Summary{}, ErrInvalidPeriod
	}
	return s.repo.SummarizeGSTR1(ctx, start, end)
}
