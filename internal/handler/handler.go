package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc *service.Service
	cfg *config.Config
	log *logrus.Logger
}

func NewHandler(svc *service.Service, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.svc.ListCurrencies(r.Context())
	h.respond(w, r, currencies, err)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	h.respond(w, r, categories, err)
}

func (h *Handler) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	frequencies, err := h.svc.ListFrequencies(r.Context())
	h.respond(w, r, frequencies, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data)
}

// fail renders err without leaking internal details
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFrom(r.Context()),
		}).Errorf("Request failed: %v", err)
		middleware.WriteError(w, status, "Internal server error")
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) actingUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
	}
	return userID, ok
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid %s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid %s", name)
	}
	return id, nil
}

func pageRequest(r *http.Request) (models.PageRequest, error) {
	var page models.PageRequest
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page": &page.Page, "size": &page.Size} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return page, apperrors.BadRequest("invalid %s", name)
		}
		*dst = v
	}
	return page.Normalize(), nil
}

// parseDate accepts a calendar day or an RFC 3339 timestamp
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("invalid date %q, expected YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

// dateRange reads optional from/to query values. A bare day as upper bound covers the whole day.
func dateRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			return
		}
		if _, dayErr := time.Parse(time.DateOnly, raw); dayErr == nil {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return
}
