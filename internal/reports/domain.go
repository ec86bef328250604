package reports

import "errors"

// GSTR1Summary aggregates outward supplies for one filing period.
type GSTR1Summary struct {
	TotalTaxable float64 `json:"total_taxable"`
	TotalIGST    float64 `json:"total_igst"`
	TotalCGST    float64 `json:"total_cgst"`
	TotalSGST    float64 `json:"total_sgst"`
	InvoiceCount int     `json:"invoice_count"`
}

// ErrInvalidPeriod indicates the period end precedes its start.
var ErrInvalidPeriod = errors.New("reports: period end before start")
