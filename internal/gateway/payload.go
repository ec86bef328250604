package gateway

import "encoding/json"

// Payload is the outbound e-invoice document. Field order is fixed so the
// serialized bytes are stable; the exact bytes produced by Marshal are
// what gets signed and what gets sent.
type Payload struct {
	SupplierName  string        `json:"supplier_name"`
	SupplierGSTIN string        `json:"supplier_gstin"`
	InvoiceNumber string        `json:"invoice_number"`
	Date          string        `json:"date"`
	CustomerName  string        `json:"customer_name"`
	CustomerGSTIN string        `json:"customer_gstin"`
	PlaceOfSupply string        `json:"place_of_supply"`
	IsExport      bool          `json:"is_export"`
	LUTApplicable bool          `json:"lut_applicable"`
	IEC           string        `json:"iec"`
	Currency      string        `json:"currency"`
	TotalAmount   float64       `json:"total_amount"`
	Lines         []PayloadLine `json:"lines"`
}

// PayloadLine is one invoice line in the outbound document.
type PayloadLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitRate    float64 `json:"unit_rate"`
	Amount      float64 `json:"amount"`
	IGST        float64 `json:"igst"`
	CGST        float64 `json:"cgst"`
	SGST        float64 `json:"sgst"`
}

// Marshal serializes the payload deterministically with compact
// separators.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
