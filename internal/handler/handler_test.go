package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/clock"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/Dan9191/finance-tracker/internal/utils"
	"github.com/beevik/etree"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type api struct {
	t      *testing.T
	router *mux.Router
	cfg    *config.Config
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "test-secret", HMACSecret: "hmac-secret", TokenTTL: time.Hour}
	// real clock: tokens are validated against the wall clock
	svc := service.NewService(repository.NewMemoryRepository(), log, cfg, nil, clock.Real{})
	return &api{t: t, router: NewRouter(NewHandler(svc, cfg, log)), cfg: cfg}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				a.t.Fatal(err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *api) expect(rec *httptest.ResponseRecorder, status int, dst interface{}) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
	if dst != nil {
		if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
			a.t.Fatalf("decode: %v", err)
		}
	}
}

func (a *api) signup(name string) string {
	a.t.Helper()
	a.expect(a.do("POST", "/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "password1",
	}), http.StatusCreated, nil)

	var out map[string]string
	a.expect(a.do("POST", "/login", "", map[string]string{
		"email": name + "@example.com", "password": "password1",
	}), http.StatusOK, &out)
	return out["token"]
}

func TestPublicRoutes(t *testing.T) {
	a := newAPI(t)

	var frequencies []models.Frequency
	a.expect(a.do("GET", "/frequencies", "", nil), http.StatusOK, &frequencies)
	if len(frequencies) != 4 {
		t.Errorf("frequencies = %v", frequencies)
	}

	var currencies []models.Currency
	a.expect(a.do("GET", "/currencies", "", nil), http.StatusOK, &currencies)
	if len(currencies) == 0 {
		t.Error("no currencies")
	}

	var errBody middleware.ErrorResponse
	a.expect(a.do("POST", "/login", "", map[string]string{"email": "ghost@example.com", "password": "x"}), http.StatusUnauthorized, &errBody)
	if errBody.Status != http.StatusUnauthorized || errBody.Time.IsZero() {
		t.Errorf("error body = %+v", errBody)
	}

	a.expect(a.do("GET", "/accounts", "", nil), http.StatusUnauthorized, nil)
	a.expect(a.do("POST", "/register", "", `{"username":`), http.StatusBadRequest, nil)
	a.expect(a.do("GET", "/nowhere", "", nil), http.StatusNotFound, nil)
}

func TestLedgerFlow(t *testing.T) {
	a := newAPI(t)
	alice := a.signup("alice")
	bob := a.signup("bob")

	var me models.User
	a.expect(a.do("GET", "/me", alice, nil), http.StatusOK, &me)
	if me.Username != "alice" {
		t.Errorf("me = %+v", me)
	}

	var account models.Account
	a.expect(a.do("POST", "/accounts", alice, map[string]interface{}{
		"name": "main", "balance": "100", "currency_id": 1,
	}), http.StatusCreated, &account)
	accountPath := fmt.Sprintf("/accounts/%d", account.ID)

	a.expect(a.do("GET", accountPath, bob, nil), http.StatusForbidden, nil)
	a.expect(a.do("GET", "/accounts/999", alice, nil), http.StatusNotFound, nil)

	var txn models.Transaction
	a.expect(a.do("POST", "/transactions", alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 1, "currency_id": 1,
		"kind": "CREDIT", "amount": "50", "date": "2024-03-01",
	}), http.StatusCreated, &txn)

	a.expect(a.do("POST", "/transactions", alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 2, "currency_id": 1,
		"kind": "DEBIT", "amount": "150.01", "date": "2024-03-02",
	}), http.StatusUnprocessableEntity, nil)
	a.expect(a.do("POST", "/transactions", alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 2, "currency_id": 2,
		"kind": "DEBIT", "amount": "5",
	}), http.StatusBadRequest, nil)
	a.expect(a.do("POST", "/transactions", bob, map[string]interface{}{
		"account_id": account.ID, "category_id": 2, "currency_id": 1,
		"kind": "DEBIT", "amount": "5",
	}), http.StatusForbidden, nil)

	a.expect(a.do("GET", accountPath, alice, nil), http.StatusOK, &account)
	if account.Balance.String() != "150" {
		t.Errorf("balance = %s, want 150", account.Balance)
	}

	var pp models.PlannedPayment
	a.expect(a.do("POST", "/planned-payments", alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 4, "frequency_id": 3,
		"description": "rent", "amount": "120", "date": "2024-03-31",
	}), http.StatusCreated, &pp)
	if pp.Frequency != models.Monthly {
		t.Errorf("planned payment = %+v", pp)
	}
	a.expect(a.do("POST", "/planned-payments", alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 4, "frequency_id": 3,
		"amount": "1000", "date": "2024-03-31",
	}), http.StatusUnprocessableEntity, nil)

	var pps models.Page[models.PlannedPayment]
	a.expect(a.do("GET", accountPath+"/planned-payments?size=5", alice, nil), http.StatusOK, &pps)
	if pps.TotalRows != 1 || pps.PageSize != 5 {
		t.Errorf("planned payments page = %+v", pps)
	}

	var txns models.Page[models.Transaction]
	a.expect(a.do("GET", accountPath+"/transactions?from=2024-03-01&to=2024-03-01", alice, nil), http.StatusOK, &txns)
	if txns.TotalRows != 1 {
		t.Errorf("transactions page = %+v", txns)
	}
	a.expect(a.do("GET", accountPath+"/transactions?page=0", alice, nil), http.StatusBadRequest, nil)
	a.expect(a.do("GET", accountPath+"/transactions?from=yesterday", alice, nil), http.StatusBadRequest, nil)

	ppPath := fmt.Sprintf("/planned-payments/%d", pp.ID)
	var spawned models.Page[models.Transaction]
	a.expect(a.do("GET", ppPath+"/transactions", alice, nil), http.StatusOK, &spawned)
	if spawned.TotalRows != 0 || spawned.Items == nil {
		t.Errorf("spawned = %+v", spawned)
	}
	a.expect(a.do("DELETE", ppPath, bob, nil), http.StatusForbidden, nil)
	a.expect(a.do("DELETE", ppPath, alice, nil), http.StatusNoContent, nil)
	a.expect(a.do("GET", ppPath, alice, nil), http.StatusNotFound, nil)

	txnPath := fmt.Sprintf("/transactions/%d", txn.ID)
	a.expect(a.do("PUT", txnPath, alice, map[string]interface{}{
		"account_id": account.ID, "category_id": 1, "currency_id": 1,
		"kind": "CREDIT", "amount": "60", "date": "2024-03-01",
	}), http.StatusOK, &txn)
	a.expect(a.do("GET", accountPath, alice, nil), http.StatusOK, &account)
	if account.Balance.String() != "160" {
		t.Errorf("balance after edit = %s, want 160", account.Balance)
	}

	var all models.Page[models.Transaction]
	a.expect(a.do("GET", "/transactions", bob, nil), http.StatusOK, &all)
	if all.TotalRows != 0 {
		t.Errorf("bob sees %d transactions", all.TotalRows)
	}

	a.expect(a.do("DELETE", txnPath, alice, nil), http.StatusNoContent, nil)
	a.expect(a.do("DELETE", accountPath, alice, nil), http.StatusNoContent, nil)
	a.expect(a.do("GET", accountPath, alice, nil), http.StatusNotFound, nil)
}

func TestStatement(t *testing.T) {
	a := newAPI(t)
	alice := a.signup("alice")

	var account models.Account
	a.expect(a.do("POST", "/accounts", alice, map[string]interface{}{
		"name": "main", "balance": "100", "currency_id": 3,
	}), http.StatusCreated, &account)
	for _, date := range []string{"2024-04-01", "2024-04-30", "2024-05-01"} {
		a.expect(a.do("POST", "/transactions", alice, map[string]interface{}{
			"account_id": account.ID, "category_id": 2, "currency_id": 3,
			"kind": "DEBIT", "amount": "10", "date": date,
		}), http.StatusCreated, nil)
	}
	path := fmt.Sprintf("/accounts/%d/statement?from=2024-04-01&to=2024-04-30", account.ID)

	rec := a.do("GET", path+"&format=xml", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.Bytes()
	if !utils.VerifyHMAC(body, rec.Header().Get(SignatureHeader), a.cfg.HMACSecret) {
		t.Error("statement signature does not verify")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		t.Fatalf("statement is not XML: %v", err)
	}
	if n := len(doc.FindElements("//Transaction")); n != 2 {
		t.Errorf("statement has %d transactions, want 2", n)
	}

	var st models.Statement
	a.expect(a.do("GET", path, alice, nil), http.StatusOK, &st)
	if st.Currency.Code != "USD" || st.TotalDebit.String() != "20" {
		t.Errorf("statement = %+v", st)
	}

	a.expect(a.do("GET", path+"&format=pdf", alice, nil), http.StatusBadRequest, nil)
	a.expect(a.do("GET", fmt.Sprintf("/accounts/%d/statement", account.ID), alice, nil), http.StatusBadRequest, nil)
}
