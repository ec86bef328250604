package fx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/platform/httpx"
	"github.com/biznooks/biznooks/internal/rates"
)

// Handler exposes the realization endpoint.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers fx routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/realize", h.realize)
	r.Get("/invoices/{id}", h.history)
}

func (h *Handler) realize(w http.ResponseWriter, r *http.Request) {
	var in struct {
		InvoiceID       int64   `json:"invoice_id"`
		PaymentAmount   float64 `json:"payment_amount"`
		PaymentCurrency string  `json:"payment_currency"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	res, err := h.engine.Realize(r.Context(), in.InvoiceID, in.PaymentAmount, in.PaymentCurrency)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrInvoiceNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrMissingPaymentCurrency), errors.Is(err, ErrInvalidPaymentAmount):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, rates.ErrNoRateAvailable):
			httpx.Problem(w, http.StatusUnprocessableEntity, "No Rate Available", err.Error())
		default:
			h.logger.Error("fx realize", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"fx_id":          res.ID,
		"gain_loss":      res.GainLoss,
		"posting_booked": res.Posting.Ok(),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}

	rows, err := h.engine.History(r.Context(), id)
	if err != nil {
		h.logger.Error("fx history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, rec := range rows {
		out = append(out, map[string]any{
			"fx_id":             rec.ID,
			"base_currency":     rec.BaseCurrency,
			"realized_currency": rec.RealizedCurrency,
			"original_amount":   rec.OriginalAmount,
			"realized_amount":   rec.RealizedAmount,
			"gain_loss":         rec.GainLoss,
			"created_at":        rec.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"realizations": out})
}
