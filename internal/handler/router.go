package handler

import (
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires every route of the API
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(h.log), middleware.Recovery(h.log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/currencies", h.ListCurrencies).Methods("GET")
	r.HandleFunc("/categories", h.ListCategories).Methods("GET")
	r.HandleFunc("/frequencies", h.ListFrequencies).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(h.cfg))
	authRouter.HandleFunc("/me", h.Me).Methods("GET")

	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods("GET")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.EditAccount).Methods("PUT")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.DeleteAccount).Methods("DELETE")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/transactions", h.ListAccountTransactions).Methods("GET")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/planned-payments", h.ListAccountPlannedPayments).Methods("GET")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/statement", h.Statement).Methods("GET")

	authRouter.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods("GET")
	authRouter.HandleFunc("/transactions/{id:[0-9]+}", h.EditTransaction).Methods("PUT")
	authRouter.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods("DELETE")

	authRouter.HandleFunc("/planned-payments", h.CreatePlannedPayment).Methods("POST")
	authRouter.HandleFunc("/planned-payments/{id:[0-9]+}", h.GetPlannedPayment).Methods("GET")
	authRouter.HandleFunc("/planned-payments/{id:[0-9]+}", h.EditPlannedPayment).Methods("PUT")
	authRouter.HandleFunc("/planned-payments/{id:[0-9]+}", h.DeletePlannedPayment).Methods("DELETE")
	authRouter.HandleFunc("/planned-payments/{id:[0-9]+}/transactions", h.ListPlannedPaymentTransactions).Methods("GET")

	return r
}
