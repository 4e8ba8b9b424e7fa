package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cicconee/cbledger/internal/ledger/app"
	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	debit       func(ctx context.Context, p app.DebitParams) (app.Outcome, error)
	balance     func(ctx context.Context, id int64) (decimal.Decimal, error)
	openAccount func(ctx context.Context, id int64, bal decimal.Decimal) (repo.Account, error)
	lastDebit   app.DebitParams
}

func (f *fakeService) Debit(ctx context.Context, p app.DebitParams) (app.Outcome, error) {
	f.lastDebit = p
	return f.debit(ctx, p)
}

func (f *fakeService) GetBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	return f.balance(ctx, id)
}

func (f *fakeService) OpenAccount(ctx context.Context, id int64, bal decimal.Decimal) (repo.Account, error) {
	return f.openAccount(ctx, id, bal)
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func debitReturning(out app.Outcome, err error) *fakeService {
	return &fakeService{
		debit: func(context.Context, app.DebitParams) (app.Outcome, error) { return out, err },
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestWithdraw_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   int
		status string
	}{
		{"ok", nil, http.StatusOK, "ok"},
		{"insufficient", app.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
		{"invalid", app.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"not found", app.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
		{"storage", errors.Join(app.ErrStorage, errors.New("pq: connection refused")), http.StatusInternalServerError, "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := debitReturning(app.Outcome{Status: app.OutcomeSuccess, Balance: decimal.RequireFromString("60")}, tc.err)
			h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})

			rec := do(t, h, http.MethodPost, "/withdraw", `{"accountId":1,"amount":"40.00"}`)
			assert.Equal(t, tc.code, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, tc.status, body["status"])
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestWithdraw_PassesAmountAndTrace(t *testing.T) {
	svc := debitReturning(app.Outcome{Balance: decimal.RequireFromString("60")}, nil)
	h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})

	rec := do(t, h, http.MethodPost, "/withdraw", `{"accountId":1,"amount":40.5}`, HeaderTraceID, "trace-abc")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(1), svc.lastDebit.AccountID)
	assert.True(t, svc.lastDebit.Amount.Equal(decimal.RequireFromString("40.50")))
	assert.Equal(t, "trace-abc", svc.lastDebit.TraceID)
	assert.Equal(t, "trace-abc", rec.Header().Get(HeaderTraceID))
	assert.Equal(t, "60.00", decodeBody(t, rec)["balance"])
}

func TestWithdraw_MintsTraceID(t *testing.T) {
	svc := debitReturning(app.Outcome{}, nil)
	h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})

	rec := do(t, h, http.MethodPost, "/withdraw", `{"accountId":1,"amount":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, svc.lastDebit.TraceID)
	assert.Equal(t, svc.lastDebit.TraceID, rec.Header().Get(HeaderTraceID))
}

func TestWithdraw_BadBodies(t *testing.T) {
	svc := debitReturning(app.Outcome{}, nil)
	h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})

	for _, body := range []string{
		`not json`,
		`{"accountId":0,"amount":"1"}`,
		`{"amount":"1"}`,
		`{"accountId":1,"amount":"abc"}`,
	} {
		rec := do(t, h, http.MethodPost, "/withdraw", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid_request", decodeBody(t, rec)["status"], body)
	}
	assert.Zero(t, svc.lastDebit.AccountID)
}

func TestBalance(t *testing.T) {
	svc := &fakeService{
		balance: func(_ context.Context, id int64) (decimal.Decimal, error) {
			if id == 1 {
				return decimal.RequireFromString("60"), nil
			}
			return decimal.Zero, app.ErrAccountNotFound
		},
	}
	h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})

	rec := do(t, h, http.MethodGet, "/accounts/1/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accountId":1,"balance":"60.00"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/accounts/2/balance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/accounts/x/balance", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenAccount_DevRoutesOnly(t *testing.T) {
	svc := &fakeService{
		openAccount: func(_ context.Context, id int64, bal decimal.Decimal) (repo.Account, error) {
			if id == 2 {
				return repo.Account{}, app.ErrAccountExists
			}
			return repo.Account{ID: id, Balance: bal}, nil
		},
	}

	h := NewRouter(svc, nil, logging.NewNop(), HTTPOptions{})
	rec := do(t, h, http.MethodPost, "/accounts", `{"accountId":1,"balance":"100"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = NewRouter(svc, nil, logging.NewNop(), HTTPOptions{DevRoutes: true})
	rec = do(t, h, http.MethodPost, "/accounts", `{"accountId":1,"balance":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"accountId":1,"balance":"100.00"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/accounts", `{"accountId":2,"balance":"100"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	healthy := NewRouter(&fakeService{}, pingFunc(func(context.Context) error { return nil }), logging.NewNop(), HTTPOptions{})
	assert.Equal(t, http.StatusOK, do(t, healthy, http.MethodGet, "/healthz", "").Code)

	down := NewRouter(&fakeService{}, pingFunc(func(context.Context) error { return errors.New("down") }), logging.NewNop(), HTTPOptions{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, http.MethodGet, "/healthz", "").Code)
}
