package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

// Trigger is a Jupiter Trigger (limit order) API client.
type Trigger struct {
	api  *httpx.Client
	exec *httpx.Client
	now  func() time.Time
}

// NewTrigger creates a Trigger client authenticated with apiKey.
func NewTrigger(apiKey string) *Trigger {
	api, exec := newClients(TriggerBaseURL, apiKey)
	return &Trigger{api: api, exec: exec, now: time.Now}
}

// SetBaseURL points the client elsewhere (tests).
func (t *Trigger) SetBaseURL(base string) {
	t.api.SetBaseURL(base)
	t.exec.SetBaseURL(base)
}

// CreateOrderRequest describes a limit order. Amounts are base units.
// ExpiredAt is an optional unix timestamp in seconds.
type CreateOrderRequest struct {
	InputMint    string
	OutputMint   string
	Maker        string
	Payer        string
	MakingAmount string
	TakingAmount string
	ExpiredAt    string
	FeeBps       int
	FeeAccount   string
}

// OrderTx is an unsigned transaction returned by create/cancel.
type OrderTx struct {
	Order       string          `json:"order"`
	Transaction string          `json:"transaction"`
	RequestID   string          `json:"requestId"`
	Raw         json.RawMessage `json:"-"`
}

// CreateOrder builds a limit order transaction. Payer defaults to the maker.
func (t *Trigger) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderTx, error) {
	params := map[string]string{
		"makingAmount": req.MakingAmount,
		"takingAmount": req.TakingAmount,
	}
	if req.ExpiredAt != "" {
		exp, err := strconv.ParseInt(req.ExpiredAt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expired_at value: %s. Must be a unix timestamp", req.ExpiredAt)
		}
		if now := t.now().Unix(); exp <= now {
			return nil, fmt.Errorf("expired_at timestamp (%d) must be in the future. Current time is %d", exp, now)
		}
		params["expiredAt"] = req.ExpiredAt
	}
	if req.FeeBps > 0 {
		params["feeBps"] = strconv.Itoa(req.FeeBps)
	}

	payer := req.Payer
	if payer == "" {
		payer = req.Maker
	}
	body := map[string]any{
		"inputMint":        req.InputMint,
		"outputMint":       req.OutputMint,
		"maker":            req.Maker,
		"payer":            payer,
		"params":           params,
		"computeUnitPrice": "auto",
	}
	if req.FeeAccount != "" {
		body["feeAccount"] = req.FeeAccount
	}

	var out OrderTx
	if err := t.post(ctx, "/createOrder", body, &out); err != nil {
		return nil, fmt.Errorf("failed to create trigger order: %w", err)
	}
	return &out, nil
}

// CancelOrder builds a transaction cancelling one order.
func (t *Trigger) CancelOrder(ctx context.Context, maker, order, payer string) (*OrderTx, error) {
	body := map[string]any{"maker": maker, "order": order, "computeUnitPrice": "auto"}
	if payer != "" {
		body["payer"] = payer
	}
	var out OrderTx
	if err := t.post(ctx, "/cancelOrder", body, &out); err != nil {
		return nil, fmt.Errorf("failed to cancel trigger order: %w", err)
	}
	return &out, nil
}

// CancelTxs is the /cancelOrders response; transactions come in batches.
type CancelTxs struct {
	Transactions []string `json:"transactions"`
	RequestID    string   `json:"requestId"`
}

// CancelOrders cancels orders, or every open order of maker when orders is
// empty.
func (t *Trigger) CancelOrders(ctx context.Context, maker string, orders []string, payer string) (*CancelTxs, error) {
	body := map[string]any{"maker": maker, "computeUnitPrice": "auto"}
	if len(orders) > 0 {
		body["orders"] = orders
	}
	if payer != "" {
		body["payer"] = payer
	}
	var out CancelTxs
	if err := t.api.Post(ctx, "/cancelOrders", nil, body, &out); err != nil {
		return nil, fmt.Errorf("failed to cancel trigger orders: %w", err)
	}
	return &out, nil
}

// Execute submits a signed trigger transaction.
func (t *Trigger) Execute(ctx context.Context, signedTx, requestID string) (*ExecuteResult, error) {
	r, err := execute(ctx, t.exec, signedTx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute trigger order: %w", err)
	}
	return r, nil
}

// OrdersPage is one page of /getTriggerOrders.
type OrdersPage struct {
	Orders []json.RawMessage `json:"orders"`
	Total  int               `json:"total"`
	Page   int               `json:"page"`
}

// GetOrders lists a user's orders. status is "active" or "history".
func (t *Trigger) GetOrders(ctx context.Context, user, status string, page int, inputMint, outputMint string) (*OrdersPage, error) {
	if status == "" {
		status = "active"
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("user", user)
	q.Set("orderStatus", status)
	q.Set("page", strconv.Itoa(page))
	if inputMint != "" {
		q.Set("inputMint", inputMint)
	}
	if outputMint != "" {
		q.Set("outputMint", outputMint)
	}
	out := OrdersPage{Page: 1}
	if err := t.api.Get(ctx, "/getTriggerOrders", q, &out); err != nil {
		return nil, fmt.Errorf("failed to get trigger orders: %w", err)
	}
	if out.Orders == nil {
		out.Orders = []json.RawMessage{}
	}
	return &out, nil
}

func (t *Trigger) post(ctx context.Context, path string, body any, out *OrderTx) error {
	var raw json.RawMessage
	if err := t.api.Post(ctx, path, nil, body, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	out.Raw = raw
	return nil
}
