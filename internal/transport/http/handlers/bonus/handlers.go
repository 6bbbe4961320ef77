package bonushandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bonussim/internal/domain/bonus"
	"bonussim/internal/transport/http/api"
	"bonussim/internal/transport/http/middleware"
	"bonussim/internal/transport/http/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	Service *bonus.Service
	// Store backs the read endpoints; nil disables them.
	Store  bonus.StoreAPI
	Bounds adjustmentBounds
	// Async makes POST /evaluations return before sinks are written.
	Async bool

	log      *zap.Logger
	validate *validator.Validate
}

func NewHandler(svc *bonus.Service, store bonus.StoreAPI, bounds adjustmentBounds, async bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		Store:    store,
		Bounds:   bounds,
		Async:    async,
		log:      log,
		validate: shared.NewStructValidator(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bonus", func(r chi.Router) {
		r.Get("/scales", h.handleScales)
		r.Get("/defaults", h.handleDefaults)
		r.Post("/calculate", h.handleCalculate)
		r.Post("/evaluations", h.handleSave)
		r.Get("/evaluations", h.handleList)
		r.Get("/evaluations/{entryID}", h.handleGet)
		r.Get("/evaluations/{entryID}/statement", h.handleStatement)
	})
}

func (h *Handler) handleScales(w http.ResponseWriter, r *http.Request) {
	policy := h.Service.Calculator().Policy()
	adjustment := map[string]string{"default": "1.00", "step": "0.01"}
	if h.Bounds != nil {
		lo, hi := h.Bounds()
		adjustment["min"] = lo.StringFixed(2)
		adjustment["max"] = hi.StringFixed(2)
	}
	api.Success(w, map[string]any{
		"activity":   newScaleView(bonus.ActivityScale),
		"posture":    newScaleView(bonus.PostureScale),
		"weights":    policy,
		"adjustment": adjustment,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	record := bonus.DefaultRecord()
	api.Success(w, map[string]any{
		"record":    record,
		"breakdown": newDisplayView(h.Service.Calculator().Calculate(record)),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	breakdown, err := h.Service.Calculate(r.Context(), record)
	if err != nil {
		h.failRecord(w, r, err)
		return
	}
	api.Success(w, calculationView{Breakdown: breakdown, Display: newDisplayView(breakdown)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	if h.Async {
		entry, err := h.Service.SaveAsync(r.Context(), record)
		if err != nil {
			h.failRecord(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusAccepted, api.Envelope{Success: true, RequestID: requestID, Data: savedView{
			Entry:     entry,
			Display:   newDisplayView(entry.Breakdown),
			Persisted: []string{},
			Pending:   h.Service.Sinks(),
			Warnings:  []bonus.SinkWarning{},
		}})
		return
	}

	result, err := h.Service.Save(r.Context(), record)
	if err != nil {
		h.failRecord(w, r, err)
		return
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []bonus.SinkWarning{}
	}
	api.Created(w, savedView{
		Entry:     result.Entry,
		Display:   newDisplayView(result.Entry.Breakdown),
		Persisted: result.Persisted,
		Warnings:  warnings,
	}, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	v := shared.NewValidator()
	page := shared.ParsePagination(r, v, defaultPageSize, maxPageSize)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	items, total, err := h.Store.ListEntries(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.log.Error("list evaluations failed", zap.Error(err), zap.String("requestId", middleware.GetRequestID(r.Context())))
		api.Fail(w, http.StatusInternalServerError, "evaluations_list_failed", "failed to list evaluations", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []bonus.Entry{}
	}
	api.Success(w, entryList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	api.Success(w, map[string]any{
		"entry":   entry,
		"display": newDisplayView(entry.Breakdown),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := bonus.WriteStatementPDF(&buf, entry); err != nil {
		h.log.Error("statement pdf generation failed", zap.String("entryId", entry.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "statement_failed", "failed to render statement", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"bonus-statement-%s.pdf\"", entry.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) loadEntry(w http.ResponseWriter, r *http.Request) (bonus.Entry, bool) {
	if !h.requireStore(w, r) {
		return bonus.Entry{}, false
	}
	entry, err := h.Store.GetEntry(r.Context(), chi.URLParam(r, "entryID"))
	if errors.Is(err, bonus.ErrEntryNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", middleware.GetRequestID(r.Context()))
		return bonus.Entry{}, false
	}
	if err != nil {
		h.log.Error("load evaluation failed", zap.Error(err), zap.String("requestId", middleware.GetRequestID(r.Context())))
		api.Fail(w, http.StatusInternalServerError, "evaluation_load_failed", "failed to load evaluation", middleware.GetRequestID(r.Context()))
		return bonus.Entry{}, false
	}
	return entry, true
}

func (h *Handler) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if h.Store != nil {
		return true
	}
	api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "evaluation history requires a database", middleware.GetRequestID(r.Context()))
	return false
}

// decodeRecord writes the 4xx response itself and reports whether the
// handler should continue.
func (h *Handler) decodeRecord(w http.ResponseWriter, r *http.Request) (bonus.EvaluationRecord, bool) {
	requestID := middleware.GetRequestID(r.Context())
	var payload evaluationPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request payload too large", requestID)
			return bonus.EvaluationRecord{}, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return bonus.EvaluationRecord{}, false
	}

	v := shared.NewValidator()
	if err := h.validate.Struct(payload); err != nil && !v.AddStructErrors(err) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return bonus.EvaluationRecord{}, false
	}
	if v.Reject(w, requestID) {
		return bonus.EvaluationRecord{}, false
	}
	record := payload.toRecord(v, h.Bounds)
	if err := record.Validate(); err != nil {
		var verr *bonus.ValidationError
		if errors.As(err, &verr) {
			v.AddFieldErrors("", verr.Fields)
		}
	}
	if v.Reject(w, requestID) {
		return bonus.EvaluationRecord{}, false
	}
	return record, true
}

func (h *Handler) failRecord(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var verr *bonus.ValidationError
	switch {
	case errors.As(err, &verr):
		v := shared.NewValidator()
		v.AddFieldErrors("", verr.Fields)
		shared.FailValidation(w, requestID, v.Issues())
	case errors.Is(err, bonus.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_input", err.Error(), requestID)
	default:
		h.log.Error("bonus calculation failed", zap.Error(err), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "calculation_failed", "failed to calculate bonus", requestID)
	}
}
