// Package dflow is a client for the DFlow swap API and the DFlow
// prediction-market metadata and trade APIs.
package dflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const (
	TradeBaseURL    = "https://quote-api.dflow.net"
	MetadataBaseURL = "https://prediction-markets-api.dflow.net/api/v1"
)

// ErrOrderNotFound is returned by OrderStatus on 404.
var ErrOrderNotFound = errors.New("order not found")

// Amount is a base-unit quantity the API sends as either a string or a
// number.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(b)
	return nil
}

// apiError formats a non-2xx answer, preferring the body's "error" field.
func apiError(resp *httpx.Response) error {
	msg := string(resp.Body)
	if e := gjson.GetBytes(resp.Body, "error"); e.Exists() && e.String() != "" {
		msg = e.String()
	}
	return fmt.Errorf("DFlow API error: %d - %s", resp.Status, msg)
}

// Swap is a DFlow swap API client.
type Swap struct {
	api *httpx.Client
}

// NewSwap creates a Swap client.
func NewSwap() *Swap {
	return &Swap{api: httpx.New(TradeBaseURL, 0)}
}

// SetBaseURL points the client elsewhere (tests).
func (s *Swap) SetBaseURL(base string) { s.api.SetBaseURL(base) }

// OrderRequest are the /order parameters. A zero SlippageBps means "auto";
// fee parameters are only sent when PlatformFeeBps > 0.
type OrderRequest struct {
	InputMint         string
	OutputMint        string
	Amount            uint64
	UserPublicKey     string
	SlippageBps       int
	PlatformFeeBps    int
	PlatformFeeMode   string
	FeeAccount        string
	ReferralAccount   string
	Sponsor           string
	DestinationWallet string
	PriorityFee       string
	OnlyDirectRoutes  bool
	MaxRouteLength    int
}

func (r OrderRequest) query() url.Values {
	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", strconv.FormatUint(r.Amount, 10))
	q.Set("userPublicKey", r.UserPublicKey)
	q.Set("wrapAndUnwrapSol", "true")
	q.Set("dynamicComputeUnitLimit", "true")

	if r.SlippageBps > 0 {
		q.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	} else {
		q.Set("slippageBps", "auto")
	}
	if r.PlatformFeeBps > 0 {
		q.Set("platformFeeBps", strconv.Itoa(r.PlatformFeeBps))
		if r.FeeAccount != "" {
			q.Set("feeAccount", r.FeeAccount)
		}
		if r.PlatformFeeMode != "" {
			q.Set("platformFeeMode", r.PlatformFeeMode)
		}
		if r.ReferralAccount != "" {
			q.Set("referralAccount", r.ReferralAccount)
		}
	}
	if r.Sponsor != "" {
		q.Set("sponsor", r.Sponsor)
	}
	if r.DestinationWallet != "" {
		q.Set("destinationWallet", r.DestinationWallet)
	}
	if r.PriorityFee != "" {
		q.Set("prioritizationFeeLamports", r.PriorityFee)
	} else {
		q.Set("prioritizationFeeLamports", "auto")
	}
	if r.OnlyDirectRoutes {
		q.Set("onlyDirectRoutes", "true")
	}
	if r.MaxRouteLength > 0 {
		q.Set("maxRouteLength", strconv.Itoa(r.MaxRouteLength))
	}
	return q
}

// Order is the /order response: a quote plus the transaction to sign.
type Order struct {
	Transaction          string          `json:"transaction"`
	InAmount             Amount          `json:"inAmount"`
	OutAmount            Amount          `json:"outAmount"`
	MinOutAmount         Amount          `json:"minOutAmount"`
	OtherAmountThreshold Amount          `json:"otherAmountThreshold"`
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	SlippageBps          int             `json:"slippageBps"`
	ExecutionMode        string          `json:"executionMode"`
	PriceImpactPct       Amount          `json:"priceImpactPct"`
	PlatformFee          json.RawMessage `json:"platformFee"`
	ContextSlot          uint64          `json:"contextSlot"`
	LastValidBlockHeight uint64          `json:"lastValidBlockHeight"`
	ComputeUnitLimit     uint64          `json:"computeUnitLimit"`
	PrioritizationFee    Amount          `json:"prioritizationFeeLamports"`
}

// MinOut is minOutAmount, falling back to otherAmountThreshold.
func (o *Order) MinOut() Amount {
	if o.MinOutAmount != "" {
		return o.MinOutAmount
	}
	return o.OtherAmountThreshold
}

// Order fetches a swap quote and transaction.
func (s *Swap) Order(ctx context.Context, req OrderRequest) (*Order, error) {
	resp, err := s.api.Do(ctx, http.MethodGet, "/order", req.query(), nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apiError(resp)
	}
	var o Order
	if err := json.Unmarshal(resp.Body, &o); err != nil {
		return nil, fmt.Errorf("decode dflow order: %w", err)
	}
	return &o, nil
}

// OrderStatus is the /order-status response. Status is one of pending,
// expired, failed, open, pendingClose, closed.
type OrderStatus struct {
	Status    string            `json:"status"`
	InAmount  Amount            `json:"inAmount"`
	OutAmount Amount            `json:"outAmount"`
	Fills     []json.RawMessage `json:"fills"`
	Reverts   []json.RawMessage `json:"reverts"`
}

// OrderStatus looks an order up by transaction signature.
func (s *Swap) OrderStatus(ctx context.Context, signature string, lastValidBlockHeight uint64) (*OrderStatus, error) {
	q := url.Values{"signature": {signature}}
	if lastValidBlockHeight > 0 {
		q.Set("lastValidBlockHeight", strconv.FormatUint(lastValidBlockHeight, 10))
	}
	resp, err := s.api.Do(ctx, http.MethodGet, "/order-status", q, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, ErrOrderNotFound
	}
	if !resp.OK() {
		return nil, apiError(resp)
	}
	var st OrderStatus
	if err := json.Unmarshal(resp.Body, &st); err != nil {
		return nil, fmt.Errorf("decode dflow order status: %w", err)
	}
	return &st, nil
}
