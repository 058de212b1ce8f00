package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	foreign := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noExpiry := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{Subject: "42"})
	badSubject := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"no expiry", "Bearer " + noExpiry, http.StatusUnauthorized},
		{"bad subject", "Bearer " + badSubject, http.StatusUnauthorized},
	}

	var seen int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(&config.Config{JWTSecret: secret})(next)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && seen != 42 {
				t.Errorf("user id = %d, want 42", seen)
			}
			if tt.wantStatus != http.StatusOK {
				var body ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Status != tt.wantStatus || body.Message == "" {
					t.Errorf("error body = %+v, %v", body, err)
				}
			}
		})
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	var id string
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = RequestIDFrom(r.Context())
		panic("boom")
	})
	handler := RequestID(Logger(log)(Recovery(log)(panicking)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if id == "" || rec.Header().Get("X-Request-ID") != id {
		t.Errorf("request id = %q, header = %q", id, rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if id != "abc" {
		t.Errorf("propagated request id = %q, want abc", id)
	}
}
