// Package ledger is the HTTP client for the external double-entry ledger.
// The ledger is a black box: it owns accounts and balances and enforces
// double-entry invariants; the back office only sends instructions and
// consumes its change-event stream.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInsufficientFunds is returned when the ledger rejects a transfer
	// for lack of funds on the debit account.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotFound is returned when the ledger does not know an
	// account id.
	ErrAccountNotFound = errors.New("ledger account not found")
)

// Account is the ledger's view of an account.
type Account struct {
	ID      string `json:"id"`
	Ledger  int    `json:"ledger"`
	Code    int    `json:"code"`
	Debits  int64  `json:"debits"`
	Credits int64  `json:"credits"`
}

// Balance is the debit/credit breakdown for a single account.
type Balance struct {
	AccountID string `json:"account_id"`
	Debits    int64  `json:"debits"`
	Credits   int64  `json:"credits"`
	Balance   int64  `json:"balance"`
}

// Client talks to the ledger over HTTP with a bounded per-call timeout. A
// timed-out call is indistinguishable from any other transport failure;
// callers must never treat it as success.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a ledger client.
func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// CreateAccount opens a new ledger account with the given code and returns
// its id.
func (c *Client) CreateAccount(ctx context.Context, ledgerCode, accountCode int) (string, error) {
	body := map[string]int{"ledger": ledgerCode, "code": accountCode}
	var resp struct {
		AccountID string `json:"account_id"`
	}
	if err := c.post(ctx, "/accounts", body, &resp); err != nil {
		return "", fmt.Errorf("failed to create ledger account: %w", err)
	}
	return resp.AccountID, nil
}

// CreateTransfer instructs the ledger to move amount from one account to
// another and returns the ledger-assigned transfer id.
func (c *Client) CreateTransfer(ctx context.Context, from, to string, amount int64, currency string, code int) (string, error) {
	body := map[string]any{
		"debit_account_id":  from,
		"credit_account_id": to,
		"amount":            amount,
		"currency":          currency,
		"code":              code,
	}
	var resp struct {
		TransferID string `json:"transfer_id"`
	}
	if err := c.post(ctx, "/transfers", body, &resp); err != nil {
		return "", fmt.Errorf("failed to create transfer: %w", err)
	}
	return resp.TransferID, nil
}

// GetAccountBalance fetches the debit/credit totals for an account.
func (c *Client) GetAccountBalance(ctx context.Context, accountID string) (*Balance, error) {
	balance := &Balance{}
	if err := c.get(ctx, "/accounts/"+accountID+"/balance", balance); err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}
	return balance, nil
}

// LookupAccounts fetches ledger accounts by id. Unknown ids are omitted from
// the result rather than failing the lookup.
func (c *Client) LookupAccounts(ctx context.Context, ids []string) ([]Account, error) {
	body := map[string][]string{"account_ids": ids}
	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/lookup", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to lookup accounts: %w", err)
	}
	return resp.Accounts, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("ledger %s %s -> %d: %s", req.Method, req.URL.Path, resp.StatusCode, raw)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNotFound:
		return ErrAccountNotFound
	case http.StatusUnprocessableEntity:
		return ErrInsufficientFunds
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
