package webhook

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/platform/httpx"
)

// Handler exposes the authority callback endpoint.
type Handler struct {
	logger *slog.Logger
	guard  *Guard
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, guard *Guard) *Handler {
	return &Handler{logger: logger, guard: guard}
}

// MountRoutes registers webhook routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/gstn", h.receive)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	inv, err := h.guard.Process(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, ErrReplayedNonce):
			httpx.Problem(w, http.StatusConflict, "Replayed Nonce", err.Error())
		case errors.Is(err, ErrMissingNonce),
			errors.Is(err, ErrInvalidTimestamp),
			errors.Is(err, ErrTimestampOutOfWindow),
			errors.Is(err, ErrInvalidSignature):
			httpx.Problem(w, http.StatusBadRequest, "Rejected", err.Error())
		case errors.Is(err, invoice.ErrInvoiceNotFoundForIRN):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, invoice.ErrInvalidTransition), errors.Is(err, invoice.ErrUnknownStatus):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
		default:
			h.logger.Error("webhook processing", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice_id": inv.ID,
		"irn":        ev.IRN,
		"status":     inv.Status,
	})
}
