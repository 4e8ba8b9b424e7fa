package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/api"
	"github.com/go-resty/resty/v2"
)

// Client talks to the ledger HTTP facade.
type Client struct {
	r *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		r: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type WithdrawResult struct {
	HTTPStatus       int    `json:"-"`
	Status           string `json:"status"`
	Balance          string `json:"balance,omitempty"`
	IdempotencyToken string `json:"idempotencyToken,omitempty"`
}

type BalanceResult struct {
	HTTPStatus int    `json:"-"`
	Status     string `json:"status,omitempty"`
	AccountID  int64  `json:"accountId"`
	Balance    string `json:"balance"`
}

// Withdraw returns an error only when no ledger response was received. Business outcomes such as
// insufficient_funds come back in WithdrawResult.Status.
func (c *Client) Withdraw(ctx context.Context, accountID int64, amount string, traceID string) (WithdrawResult, error) {
	var out WithdrawResult

	req := c.r.R().
		SetContext(ctx).
		SetBody(map[string]any{"accountId": accountID, "amount": amount}).
		SetResult(&out).
		SetError(&out)
	if traceID != "" {
		req.SetHeader(api.HeaderTraceID, traceID)
	}

	resp, err := req.Post("/withdraw")
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("withdraw request: %w", err)
	}

	out.HTTPStatus = resp.StatusCode()
	if out.Status == "" {
		return out, fmt.Errorf("unexpected response %d: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}

func (c *Client) Balance(ctx context.Context, accountID int64) (BalanceResult, error) {
	var out BalanceResult

	resp, err := c.r.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(accountID, 10)).
		SetResult(&out).
		SetError(&out).
		Get("/accounts/{id}/balance")
	if err != nil {
		return BalanceResult{}, fmt.Errorf("balance request: %w", err)
	}

	out.HTTPStatus = resp.StatusCode()
	return out, nil
}

// Seed opens an account; the ledger only serves this route in dev.
func (c *Client) Seed(ctx context.Context, accountID int64, balance string) (BalanceResult, error) {
	var out BalanceResult

	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(map[string]any{"accountId": accountID, "balance": balance}).
		SetResult(&out).
		SetError(&out).
		Post("/accounts")
	if err != nil {
		return BalanceResult{}, fmt.Errorf("seed request: %w", err)
	}

	out.HTTPStatus = resp.StatusCode()
	return out, nil
}
