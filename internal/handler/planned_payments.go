package handler

import (
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

type plannedPaymentBody struct {
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	FrequencyID int64           `json:"frequency_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

func (b plannedPaymentBody) request() (models.PlannedPaymentRequest, error) {
	req := models.PlannedPaymentRequest{
		AccountID:   b.AccountID,
		CategoryID:  b.CategoryID,
		FrequencyID: b.FrequencyID,
		Description: b.Description,
		Amount:      b.Amount,
	}
	if b.Date == "" {
		return req, nil
	}
	date, err := parseDate(b.Date)
	if err != nil {
		return req, err
	}
	req.Date = date
	return req, nil
}

func (h *Handler) decodePlannedPayment(w http.ResponseWriter, r *http.Request) (models.PlannedPaymentRequest, bool) {
	var body plannedPaymentBody
	if !h.decode(w, r, &body) {
		return models.PlannedPaymentRequest{}, false
	}
	req, err := body.request()
	if err != nil {
		h.fail(w, r, err)
		return req, false
	}
	return req, true
}

func (h *Handler) CreatePlannedPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decodePlannedPayment(w, r)
	if !ok {
		return
	}
	pp, err := h.svc.CreatePlannedPayment(r.Context(), req, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, pp)
}

func (h *Handler) EditPlannedPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, ok := h.decodePlannedPayment(w, r)
	if !ok {
		return
	}
	pp, err := h.svc.EditPlannedPayment(r.Context(), id, req, userID)
	h.respond(w, r, pp, err)
}

func (h *Handler) GetPlannedPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pp, err := h.svc.GetPlannedPayment(r.Context(), id, userID)
	h.respond(w, r, pp, err)
}

func (h *Handler) DeletePlannedPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeletePlannedPayment(r.Context(), id, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPlannedPaymentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.ListPlannedPaymentTransactions(r.Context(), id, page, userID)
	h.respond(w, r, result, err)
}
