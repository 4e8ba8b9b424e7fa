package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/app"
	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const HeaderTraceID = "X-Trace-Id"

// Service is the ledger surface the facades drive.
type Service interface {
	Debit(ctx context.Context, p app.DebitParams) (app.Outcome, error)
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	OpenAccount(ctx context.Context, accountID int64, balance decimal.Decimal) (repo.Account, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPOptions struct {
	RequestTimeout time.Duration
	// DevRoutes enables POST /accounts for seeding balances.
	DevRoutes bool
}

type httpHandler struct {
	svc      Service
	pinger   Pinger
	log      *logging.Logger
	validate *validator.Validate
}

func NewRouter(svc Service, pinger Pinger, log *logging.Logger, opts HTTPOptions) http.Handler {
	h := &httpHandler{
		svc:      svc,
		pinger:   pinger,
		log:      log,
		validate: validator.New(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(traceID)
	r.Use(requestLogger(log))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.healthz)
	r.Post("/withdraw", h.withdraw)
	r.Get("/accounts/{id}/balance", h.balance)
	if opts.DevRoutes {
		r.Post("/accounts", h.openAccount)
	}

	return r
}

type withdrawRequest struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
}

type withdrawResponse struct {
	Status           string `json:"status"`
	Balance          string `json:"balance,omitempty"`
	IdempotencyToken string `json:"idempotencyToken,omitempty"`
}

func (h *httpHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("withdraw: bad body", "err", err)
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.log.Warn("withdraw: validation failed", "err", err)
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
		return
	}

	out, err := h.svc.Debit(r.Context(), app.DebitParams{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		TraceID:   traceIDFrom(r),
	})

	status, body := withdrawStatus(err)
	if err == nil {
		body.Balance = out.Balance.StringFixed(ledger.AmountScale)
		body.IdempotencyToken = out.IdempotencyToken
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("withdraw failed", "account_id", req.AccountID, "err", err)
	}

	writeJSON(w, status, body)
}

// withdrawStatus maps an engine result onto the HTTP contract. Storage detail never reaches the
// response body.
func withdrawStatus(err error) (int, withdrawResponse) {
	switch {
	case err == nil:
		return http.StatusOK, withdrawResponse{Status: "ok"}
	case errors.Is(err, app.ErrInsufficientFunds):
		return http.StatusBadRequest, withdrawResponse{Status: "insufficient_funds"}
	case errors.Is(err, app.ErrInvalidRequest):
		return http.StatusBadRequest, withdrawResponse{Status: "invalid_request"}
	case errors.Is(err, app.ErrAccountNotFound):
		return http.StatusNotFound, withdrawResponse{Status: "account_not_found"}
	default:
		return http.StatusInternalServerError, withdrawResponse{Status: "error"}
	}
}

type balanceResponse struct {
	AccountID int64  `json:"accountId"`
	Balance   string `json:"balance"`
}

func (h *httpHandler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
		return
	}

	bal, err := h.svc.GetBalance(r.Context(), id)
	if err != nil {
		status, body := withdrawStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("balance lookup failed", "account_id", id, "err", err)
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: bal.StringFixed(ledger.AmountScale)})
}

type openAccountRequest struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Balance   decimal.Decimal `json:"balance"`
}

func (h *httpHandler) openAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
		return
	}

	acc, err := h.svc.OpenAccount(r.Context(), req.AccountID, req.Balance)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, balanceResponse{AccountID: acc.ID, Balance: acc.Balance.StringFixed(ledger.AmountScale)})
	case errors.Is(err, app.ErrAccountExists):
		writeJSON(w, http.StatusConflict, withdrawResponse{Status: "account_exists"})
	case errors.Is(err, app.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, withdrawResponse{Status: "invalid_request"})
	default:
		h.log.Error("open account failed", "account_id", req.AccountID, "err", err)
		writeJSON(w, http.StatusInternalServerError, withdrawResponse{Status: "error"})
	}
}

func (h *httpHandler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.log.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, withdrawResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
