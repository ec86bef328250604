package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/biznooks/biznooks/internal/invoice"
)

type memoryReportRepo struct {
	invoices []invoice.Invoice
}

func (m *memoryReportRepo) SummarizeGSTR1(ctx context.Context, start, end time.Time) (GSTR1Summary, error) {
	var out GSTR1Summary
	for _, inv := range m.invoices {
		if inv.Date.Before(start) || inv.Date.After(end) {
			continue
		}
		out.InvoiceCount++
		for _, line := range inv.Lines {
			out.TotalTaxable += line.Amount
			out.TotalIGST += line.IGST
			out.TotalCGST += line.CGST
			out.TotalSGST += line.SGST
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGSTR1SumsPeriodInvoices(t *testing.T) {
	repo := &memoryReportRepo{invoices: []invoice.Invoice{
		{
			ID: 1, Date: day(2026, time.January, 10),
			Lines: []invoice.Line{
				{Amount: 1000, IGST: 180},
				{Amount: 500, CGST: 45, SGST: 45},
			},
		},
		{
			ID: 2, Date: day(2026, time.January, 28),
			Lines: []invoice.Line{{Amount: 200, IGST: 36}},
		},
		{
			// Outside the period.
			ID: 3, Date: day(2026, time.February, 2),
			Lines: []invoice.Line{{Amount: 9999, IGST: 1799}},
		},
	}}
	svc := NewService(repo)

	sum, err := svc.GSTR1(context.Background(), day(2026, time.January, 1), day(2026, time.January, 31))
	require.NoError(t, err)
	require.Equal(t, 2, sum.InvoiceCount)
	require.InDelta(t, 1700.0, sum.TotalTaxable, 1e-9)
	require.InDelta(t, 216.0, sum.TotalIGST, 1e-9)
	require.InDelta(t, 45.0, sum.TotalCGST, 1e-9)
	require.InDelta(t, 45.0, sum.TotalSGST, 1e-9)
}

func TestGSTR1EmptyPeriod(t *testing.T) {
	svc := NewService(&memoryReportRepo{})
	sum, err := svc.GSTR1(context.Background(), day(2026, time.March, 1), day(2026, time.March, 31))
	require.NoError(t, err)
	require.Zero(t, sum.InvoiceCount)
	require.Zero(t, sum.TotalTaxable)
}

func TestGSTR1RejectsInvertedPeriod(t *testing.T) {
	svc := NewService(&memoryReportRepo{})
	_, err := svc.GSTR1(context.Background(), day(2026, time.January, 31), day(2026, time.January, 1))
	require.ErrorIs(t, err, ErrInvalidPeriod)
}
