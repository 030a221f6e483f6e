// Package jupiter is a client for the Jupiter Ultra swap API and the
// Trigger (limit order) API.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const (
	UltraBaseURL   = "https://api.jup.ag/ultra/v1"
	TriggerBaseURL = "https://api.jup.ag/trigger/v1"

	// ExecuteTimeout covers /execute, which waits for on-chain confirmation.
	ExecuteTimeout = 120 * time.Second
)

func newClients(baseURL, apiKey string) (api, exec *httpx.Client) {
	hdr := httpx.WithHeader("x-api-key", apiKey)
	return httpx.New(baseURL, 0, hdr), httpx.New(baseURL, ExecuteTimeout, hdr)
}

// Ultra is a Jupiter Ultra API client.
type Ultra struct {
	api  *httpx.Client
	exec *httpx.Client
}

// NewUltra creates an Ultra client authenticated with apiKey.
func NewUltra(apiKey string) *Ultra {
	api, exec := newClients(UltraBaseURL, apiKey)
	return &Ultra{api: api, exec: exec}
}

// SetBaseURL points the client elsewhere (tests).
func (u *Ultra) SetBaseURL(base string) {
	u.api.SetBaseURL(base)
	u.exec.SetBaseURL(base)
}

// OrderRequest are the /order query parameters. Payer and CloseAuthority
// enable gasless swaps where an integrator pays fees.
type OrderRequest struct {
	InputMint       string
	OutputMint      string
	Amount          uint64
	Taker           string
	ReferralAccount string
	ReferralFee     int
	Payer           string
	CloseAuthority  string
}

// Order is the /order response.
type Order struct {
	RequestID   string          `json:"requestId"`
	Transaction string          `json:"transaction"`
	InAmount    string          `json:"inAmount"`
	OutAmount   string          `json:"outAmount"`
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	SlippageBps int             `json:"slippageBps"`
	SwapType    string          `json:"swapType"`
	FeeBps      int             `json:"feeBps"`
	Gasless     bool            `json:"gasless"`
	PriceImpact *float64        `json:"priceImpact"`
	InUSDValue  float64         `json:"inUsdValue"`
	OutUSDValue float64         `json:"outUsdValue"`
	Raw         json.RawMessage `json:"-"`
}

// Order requests an unsigned swap transaction.
func (u *Ultra) Order(ctx context.Context, req OrderRequest) (*Order, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("taker", req.Taker)
	if req.ReferralAccount != "" {
		q.Set("referralAccount", req.ReferralAccount)
	}
	if req.ReferralFee > 0 {
		q.Set("referralFee", strconv.Itoa(req.ReferralFee))
	}
	if req.Payer != "" {
		q.Set("payer", req.Payer)
	}
	if req.CloseAuthority != "" {
		q.Set("closeAuthority", req.CloseAuthority)
	}

	var raw json.RawMessage
	if err := u.api.Get(ctx, "/order", q, &raw); err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o.Raw = raw
	return &o, nil
}

// ExecuteResult is the /execute response.
type ExecuteResult struct {
	Status             string          `json:"status"`
	Signature          string          `json:"signature"`
	InputAmountResult  string          `json:"inputAmountResult"`
	OutputAmountResult string          `json:"outputAmountResult"`
	Error              string          `json:"error"`
	Code               int             `json:"code"`
	Raw                json.RawMessage `json:"-"`
}

// Succeeded reports status "Success" (any case).
func (r *ExecuteResult) Succeeded() bool { return strings.EqualFold(r.Status, "success") }

func execute(ctx context.Context, c *httpx.Client, signedTx, requestID string) (*ExecuteResult, error) {
	body := map[string]string{"signedTransaction": signedTx, "requestId": requestID}
	var raw json.RawMessage
	if err := c.Post(ctx, "/execute", nil, body, &raw); err != nil {
		return nil, err
	}
	var r ExecuteResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode execute response: %w", err)
	}
	r.Raw = raw
	return &r, nil
}

// Execute submits a signed order transaction; Jupiter lands it.
func (u *Ultra) Execute(ctx context.Context, signedTx, requestID string) (*ExecuteResult, error) {
	r, err := execute(ctx, u.exec, signedTx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute order: %w", err)
	}
	return r, nil
}

// Holdings returns every balance held by wallet.
func (u *Ultra) Holdings(ctx context.Context, wallet string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := u.api.Get(ctx, "/holdings/"+url.PathEscape(wallet), nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	return raw, nil
}

// NativeHoldings returns only the SOL balance of wallet.
func (u *Ultra) NativeHoldings(ctx context.Context, wallet string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := u.api.Get(ctx, "/holdings/"+url.PathEscape(wallet)+"/native", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get native holdings: %w", err)
	}
	return raw, nil
}

// ShieldWarning is one token risk flag.
type ShieldWarning struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ShieldResult maps mint to its warnings.
type ShieldResult struct {
	Warnings map[string][]ShieldWarning `json:"warnings"`
	Raw      json.RawMessage            `json:"-"`
}

// Shield fetches security warnings for mints.
func (u *Ultra) Shield(ctx context.Context, mints []string) (*ShieldResult, error) {
	q := url.Values{"mints": {strings.Join(mints, ",")}}
	var raw json.RawMessage
	if err := u.api.Get(ctx, "/shield", q, &raw); err != nil {
		return nil, fmt.Errorf("failed to get shield: %w", err)
	}
	var s ShieldResult
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode shield response: %w", err)
	}
	s.Raw = raw
	return &s, nil
}

// Search finds tokens by symbol, name or mint; query may be
// comma-separated. Results are returned raw for the caller to shape.
func (u *Ultra) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	var tokens []json.RawMessage
	if err := u.api.Get(ctx, "/search", url.Values{"query": {query}}, &tokens); err != nil {
		return nil, fmt.Errorf("failed to search tokens: %w", err)
	}
	return tokens, nil
}
