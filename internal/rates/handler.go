package rates

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biznooks/biznooks/internal/platform/httpx"
)

// Handler exposes currency and exchange rate endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	adminOnly func(http.Handler) http.Handler
}

// NewHandler builds a Handler instance. adminOnly gates currency creation.
func NewHandler(logger *slog.Logger, service *Service, adminOnly func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, adminOnly: adminOnly}
}

// MountRoutes registers rate store routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.adminOnly).Post("/currencies", h.addCurrency)
	r.Get("/currencies", h.listCurrencies)
	r.Post("/rates", h.addRate)
	r.Get("/rates/latest", h.latestRate)
}

func (h *Handler) addCurrency(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if len(in.Code) != 3 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "three-letter currency code required")
		return
	}

	cur, err := h.service.AddCurrency(r.Context(), in.Code, in.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"code": cur.Code, "name": cur.Name})
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.service.ListCurrencies(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(currencies))
	for _, cur := range currencies {
		out = append(out, map[string]any{"code": cur.Code, "name": cur.Name})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"currencies": out})
}

func (h *Handler) addRate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Base   string  `json:"base"`
		Target string  `json:"target"`
		Rate   float64 `json:"rate"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	rate, err := h.service.AddRate(r.Context(), in.Base, in.Target, in.Rate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":          rate.ID,
		"base":        rate.Base,
		"target":      rate.Target,
		"rate":        rate.Rate,
		"captured_at": rate.CapturedAt,
	})
}

func (h *Handler) latestRate(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	target := r.URL.Query().Get("target")
	if base == "" || target == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "base and target query parameters required")
		return
	}

	rate, err := h.service.LatestRate(r.Context(), base, target)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rate == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no rate recorded for pair")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"base":        rate.Base,
		"target":      rate.Target,
		"rate":        rate.Rate,
		"captured_at": rate.CapturedAt,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCurrencyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidRate):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("rates request", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
