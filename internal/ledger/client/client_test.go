package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/api"
	"github.com/cicconee/cbledger/internal/ledger/app"
	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *Client {
	t.Helper()

	store, err := repo.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := app.NewService(store, nil, logging.NewNop(), app.Options{})
	srv := httptest.NewServer(api.NewRouter(svc, store, logging.NewNop(), api.HTTPOptions{DevRoutes: true}))
	t.Cleanup(srv.Close)

	return New(srv.URL, 5*time.Second)
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newLedger(t)

	seeded, err := c.Seed(ctx, 1, "100.00")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, seeded.HTTPStatus)
	assert.Equal(t, "100.00", seeded.Balance)

	res, err := c.Withdraw(ctx, 1, "40.00", "trace-cli")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "60.00", res.Balance)
	assert.NotEmpty(t, res.IdempotencyToken)

	res, err = c.Withdraw(ctx, 1, "75", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "insufficient_funds", res.Status)

	res, err = c.Withdraw(ctx, 2, "1", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
	assert.Equal(t, "account_not_found", res.Status)

	bal, err := c.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, bal.HTTPStatus)
	assert.Equal(t, "60.00", bal.Balance)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Withdraw(context.Background(), 1, "1", "")
	assert.Error(t, err)
}
