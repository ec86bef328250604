package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/biznooks/biznooks/internal/platform/httpx"
	"github.com/biznooks/biznooks/internal/rates"
)

// Handler exposes chart-of-accounts and journal endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	adminOnly func(http.Handler) http.Handler
}

// NewHandler builds a Handler instance. adminOnly gates account creation.
func NewHandler(logger *slog.Logger, service *Service, adminOnly func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, adminOnly: adminOnly}
}

// MountRoutes registers ledger routes. Account creation is restricted to
// the admin role; postings and reads are open to any caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.adminOnly).Post("/accounts", h.createAccount)
	r.Get("/accounts/{id}/balance", h.accountBalance)
	r.Post("/journals", h.postJournal)
	r.Get("/trial_balance", h.trialBalance)
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in createAccountRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	acct, err := h.service.CreateAccount(r.Context(), in.Name, AccountType(in.Type), in.Currency)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":       acct.ID,
		"name":     acct.Name,
		"type":     acct.Type,
		"currency": acct.Currency,
	})
}

type postJournalRequest struct {
	Date      string `json:"date"`
	Narration string `json:"narration"`
	Lines     []struct {
		AccountID int64   `json:"account_id"`
		Debit     float64 `json:"debit"`
		Credit    float64 `json:"credit"`
	} `json:"lines"`
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	var in postJournalRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	date := time.Now().UTC()
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	input := PostingInput{Date: date, Narration: in.Narration}
	for _, line := range in.Lines {
		input.Lines = append(input.Lines, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}

	journalID, err := h.service.PostJournal(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"journal_id": journalID})
}

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}

	row, err := h.service.AccountBalance(r.Context(), id, r.URL.Query().Get("target_currency"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceRowResponse(row))
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.TrialBalance(r.Context(), r.URL.Query().Get("target_currency"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, balanceRowResponse(row))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": out})
}

func balanceRowResponse(row BalanceRow) map[string]any {
	out := map[string]any{
		"account_id": row.AccountID,
		"account":    row.AccountName,
		"currency":   row.Currency,
		"balance":    row.Balance,
	}
	if row.TargetCurrency != "" {
		out["target_currency"] = row.TargetCurrency
		out["converted"] = row.Converted
		out["rate_missing"] = row.RateMissing
	}
	return out
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnbalancedJournal), errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrInvalidAccountType), errors.Is(err, ErrAccountNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, rates.ErrNoRateAvailable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Rate Available", err.Error())
	default:
		h.logger.Error("ledger request", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
