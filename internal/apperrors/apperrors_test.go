package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "not found", err: NotFound("account %d not found", 1), want: http.StatusNotFound},
		{name: "forbidden", err: Forbidden("account does not belong to user"), want: http.StatusForbidden},
		{name: "unauthorized", err: Unauthorized("you have to login"), want: http.StatusUnauthorized},
		{name: "insufficient funds", err: InsufficientFunds("balance too low"), want: http.StatusUnprocessableEntity},
		{name: "bad request", err: BadRequest("amount must be positive"), want: http.StatusBadRequest},
		{name: "wrapped not found", err: fmt.Errorf("failed to get account: %w", NotFound("account not found")), want: http.StatusNotFound},
		{name: "internal", err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInsufficientFundsIsBadRequest(t *testing.T) {
	err := InsufficientFunds("balance 20 is lower than 30")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("expected ErrInsufficientFunds")
	}
	if !errors.Is(err, ErrBadRequest) {
		t.Error("expected InsufficientFunds to also match ErrBadRequest")
	}
	if err.Error() != "balance 20 is lower than 30" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsInternal(t *testing.T) {
	if IsInternal(nil) {
		t.Error("nil must not be internal")
	}
	if IsInternal(NotFound("x")) {
		t.Error("NotFound must not be internal")
	}
	if !IsInternal(errors.New("boom")) {
		t.Error("plain error must be internal")
	}
}
