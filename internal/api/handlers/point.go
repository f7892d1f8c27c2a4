package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/point-ledger/internal/api/httpx"
	"github.com/baharkarakas/point-ledger/internal/api/validate"
	"github.com/baharkarakas/point-ledger/internal/middleware"
	"github.com/baharkarakas/point-ledger/internal/models"
	"github.com/baharkarakas/point-ledger/internal/services"
	"github.com/go-chi/chi/v5"
)

// Ledger is the part of services.PointService the handlers need.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (models.Balance, error)
	GetHistory(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
	Charge(ctx context.Context, userID, amount int64) (models.Balance, error)
	Use(ctx context.Context, userID, amount int64) (models.Balance, error)
}

type PointHandler struct {
	svc Ledger
	log *slog.Logger
}

func NewPointHandler(svc Ledger, log *slog.Logger) *PointHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PointHandler{svc: svc, log: log}
}

// GET /point/{id}
func (h *PointHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBalance(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// GET /point/{id}/histories
func (h *PointHandler) Histories(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	hist, err := h.svc.GetHistory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hist)
}

// PATCH /point/{id}/charge
func (h *PointHandler) Charge(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Charge)
}

// PATCH /point/{id}/use
func (h *PointHandler) Use(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Use)
}

func (h *PointHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64) (models.Balance, error)) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	amount, ef := validate.Amount(r.Body)
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid request body", validate.Errs{*ef})
		return
	}

	b, err := op(r.Context(), id, amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *PointHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ef := validate.UserID(chi.URLParam(r, "id"))
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidUserID, "invalid user id", validate.Errs{*ef})
		return 0, false
	}
	return id, true
}

func (h *PointHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidAmount, err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInsufficientBalance, err.Error(), nil)
	default:
		h.log.Error("point request failed",
			"err", err,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFrom(r.Context()),
		)
		httpx.WriteInternal(w)
	}
}
