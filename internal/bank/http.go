package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/config"
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bank API error (%d): %s", e.Status, e.Body)
}

// HTTPGateway speaks to an acquirer over its REST API. The wire contract
// matches Mock: create returns the ref and QR payload, status reads by ref,
// settle acks a redeemed token.
type HTTPGateway struct {
	base       string
	httpClient *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

func NewHTTPGateway(httpClient *http.Client, cfg config.BankConfig) *HTTPGateway {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPGateway{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

type wireTransaction struct {
	Ref       string          `json:"ref"`
	Token     string          `json:"token"`
	AuctionID uint64          `json:"auction_id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	QRCode    string          `json:"qr_code"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (w wireTransaction) transaction() *Transaction {
	return &Transaction{
		Ref:       w.Ref,
		Token:     w.Token,
		AuctionID: w.AuctionID,
		Kind:      w.Kind,
		Amount:    w.Amount,
		QRCode:    w.QRCode,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
	}
}

func (g *HTTPGateway) CreateTransaction(ctx context.Context, kind string, auctionID uint64, token string, amount decimal.Decimal) (*Transaction, error) {
	payload := wireTransaction{
		Token:     token,
		AuctionID: auctionID,
		Kind:      kind,
		Amount:    amount,
	}
	body, err := g.doRequest(ctx, http.MethodPost, "/transactions", payload)
	if err != nil {
		return nil, err
	}
	var out wireTransaction
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return out.transaction(), nil
}

func (g *HTTPGateway) Status(ctx context.Context, ref string) (*Transaction, error) {
	if ref == "" {
		return nil, fmt.Errorf("ref is required")
	}
	body, err := g.doRequest(ctx, http.MethodGet, "/transactions/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	var out wireTransaction
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return out.transaction(), nil
}

func (g *HTTPGateway) Settle(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := g.doRequest(ctx, http.MethodPost, "/transactions/settle", map[string]string{"token": token})
	return err
}

func (g *HTTPGateway) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
