package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/statement"
	"github.com/Dan9191/finance-tracker/internal/utils"
)

// SignatureHeader carries the HMAC-SHA256 of a statement body
const SignatureHeader = "X-Statement-Signature"

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	var req models.AccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), req, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) EditAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req models.AccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.svc.EditAccount(r.Context(), id, req, userID)
	h.respond(w, r, account, err)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.svc.GetAccount(r.Context(), id, userID)
	h.respond(w, r, account, err)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), userID)
	h.respond(w, r, accounts, err)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), id, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statement renders an account statement as JSON or XML and signs the body
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	exporter, err := statement.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, apperrors.BadRequest("%v", err))
		return
	}

	st, err := h.svc.AccountStatement(r.Context(), id, from, to, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := exporter.Export(&buf, st); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set(SignatureHeader, utils.GenerateHMAC(buf.Bytes(), h.cfg.HMACSecret))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="statement-%d-%s-%s"`,
		id, from.Format("20060102"), to.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) ListAccountPlannedPayments(w http.ResponseWriter, r *http.Request) {
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
	result, err := h.svc.ListPlannedPayments(r.Context(), id, page, userID)
	h.respond(w, r, result, err)
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	categoryID, err := queryID(r, "category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter := models.TransactionFilter{AccountID: id, CategoryID: categoryID, From: from, To: to}
	result, err := h.svc.ListAccountTransactions(r.Context(), filter, page, userID)
	h.respond(w, r, result, err)
}
