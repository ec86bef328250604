package invoice

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/biznooks/biznooks/internal/gateway"
	"github.com/biznooks/biznooks/internal/platform/httpx"
	"github.com/biznooks/biznooks/internal/storage"
)

const maxUploadBytes = 20 << 20

// Handler exposes invoice and e-invoice lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	submitter *Submitter
	store     storage.Storage
	validate  *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, submitter *Submitter, store storage.Storage) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		submitter: submitter,
		store:     store,
		validate:  validator.New(),
	}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/einvoice_payload", h.payload)
	r.Post("/{id}/submit_einvoice", h.submit)
	r.Get("/{id}/status", h.status)
	r.Post("/{id}/attach_signed", h.attachSigned)
	r.Post("/{id}/upload_signed", h.uploadSigned)
	r.Post("/{id}/presign_signed", h.presignSigned)
	r.Post("/{id}/apply_lut", h.applyLUT)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	inv, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoiceResponse(inv))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceResponse(inv))
}

func (h *Handler) payload(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	payload, err := h.service.BuildPayload(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	useSandbox := r.URL.Query().Get("sandbox") == "true"

	receipt, err := h.submitter.Submit(r.Context(), id, useSandbox)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if receipt.Queued {
		httpx.JSON(w, http.StatusAccepted, map[string]any{
			"invoice_id": receipt.InvoiceID,
			"queued":     true,
			"job_id":     receipt.JobID,
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice_id": receipt.InvoiceID,
		"irn":        receipt.IRN,
		"status":     receipt.Status,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	snap, err := h.service.StatusSnapshot(r.Context(), id, DefaultSnapshotEvents)
	if err != nil {
		h.respondError(w, err)
		return
	}

	events := make([]map[string]any, 0, len(snap.Events))
	for _, ev := range snap.Events {
		events = append(events, map[string]any{
			"event":     ev.Event,
			"details":   ev.Details,
			"timestamp": ev.Timestamp,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice_id":      snap.InvoiceID,
		"einvoice_irn":    snap.IRN,
		"einvoice_status": snap.Status,
		"recent_events":   events,
	})
}

func (h *Handler) attachSigned(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var in struct {
		Filename string `json:"filename" validate:"required"`
		Path     string `json:"path" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	doc, err := h.service.AttachSignedDocument(r.Context(), id, in.Filename, in.Path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"doc_id": doc.ID, "path": doc.Locator})
}

func (h *Handler) uploadSigned(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file field required")
		return
	}
	defer file.Close()

	locator, err := h.store.Put(r.Context(), storage.SignedKey(id, header.Filename), file, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("signed document upload", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Storage Failure", "")
		return
	}

	doc, err := h.service.AttachSignedDocument(r.Context(), id, header.Filename, locator)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"doc_id": doc.ID, "path": doc.Locator})
}

func (h *Handler) presignSigned(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "filename query parameter required")
		return
	}

	key := storage.SignedKey(id, filename)
	upload, err := h.store.PresignPut(r.Context(), key, time.Hour)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			httpx.Problem(w, http.StatusNotImplemented, "Not Supported", err.Error())
			return
		}
		h.logger.Error("presign signed upload", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Storage Failure", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"upload":       upload.URL,
		"headers":      upload.Headers,
		"storage_path": key,
	})
}

func (h *Handler) applyLUT(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	ref := r.URL.Query().Get("lut_ref")
	if ref == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lut_ref query parameter required")
		return
	}

	inv, err := h.service.ApplyLUT(r.Context(), id, ref)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice_id":     inv.ID,
		"lut_applicable": inv.LUTApplicable,
		"lut_reference":  inv.LUTReference,
	})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrInvoiceNotFoundForIRN):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateInvoiceNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrUnknownStatus):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.Is(err, gateway.ErrGatewaySubmissionFailed):
		httpx.Problem(w, http.StatusBadGateway, "Gateway Failure", err.Error())
	default:
		h.logger.Error("invoice request", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func invoiceResponse(inv Invoice) map[string]any {
	lines := make([]map[string]any, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		lines = append(lines, map[string]any{
			"description": line.Description,
			"quantity":    line.Quantity,
			"unit_rate":   line.UnitRate,
			"amount":      line.Amount,
			"igst":        line.IGST,
			"cgst":        line.CGST,
			"sgst":        line.SGST,
		})
	}
	return map[string]any{
		"id":              inv.ID,
		"invoice_number":  inv.InvoiceNumber,
		"date":            inv.Date,
		"customer_name":   inv.CustomerName,
		"customer_gstin":  inv.CustomerGSTIN,
		"place_of_supply": inv.PlaceOfSupply,
		"is_export":       inv.IsExport,
		"lut_applicable":  inv.LUTApplicable,
		"lut_reference":   inv.LUTReference,
		"iec":             inv.IEC,
		"currency":        inv.Currency,
		"einvoice_irn":    inv.EInvoiceIRN,
		"einvoice_status": inv.Status,
		"lines":           lines,
	}
}
