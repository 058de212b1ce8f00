package handler

import (
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

type transactionBody struct {
	AccountID        int64                  `json:"account_id"`
	CategoryID       int64                  `json:"category_id"`
	CurrencyID       int64                  `json:"currency_id"`
	PlannedPaymentID *int64                 `json:"planned_payment_id,omitempty"`
	Kind             models.TransactionKind `json:"kind"`
	Amount           decimal.Decimal        `json:"amount"`
	Description      string                 `json:"description"`
	Date             string                 `json:"date"`
}

func (b transactionBody) request() (models.TransactionRequest, error) {
	req := models.TransactionRequest{
		AccountID:        b.AccountID,
		CategoryID:       b.CategoryID,
		CurrencyID:       b.CurrencyID,
		PlannedPaymentID: b.PlannedPaymentID,
		Kind:             b.Kind,
		Amount:           b.Amount,
		Description:      b.Description,
	}
	if b.Date != "" {
		date, err := parseDate(b.Date)
		if err != nil {
			return req, err
		}
		req.Date = date
	}
	return req, nil
}

func (h *Handler) decodeTransaction(w http.ResponseWriter, r *http.Request) (models.TransactionRequest, bool) {
	var body transactionBody
	if !h.decode(w, r, &body) {
		return models.TransactionRequest{}, false
	}
	req, err := body.request()
	if err != nil {
		h.fail(w, r, err)
		return req, false
	}
	return req, true
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	txn, err := h.svc.CreateTransaction(r.Context(), req, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, txn)
}

func (h *Handler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	txn, err := h.svc.EditTransaction(r.Context(), id, req, userID)
	h.respond(w, r, txn, err)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	txn, err := h.svc.GetTransaction(r.Context(), id, userID)
	h.respond(w, r, txn, err)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteTransaction(r.Context(), id, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.ListUserTransactions(r.Context(), page, userID)
	h.respond(w, r, result, err)
}
