package dflow

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

// USDCMint settles every prediction market order; amounts use 6 decimals.
const USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// Filters are the default quality thresholds for discovery results.
type Filters struct {
	MinVolumeUSD    float64
	MinLiquidityUSD float64
	IncludeRisky    bool
}

// Prediction is a prediction-market client. Discovery results are
// filtered by Filters and every market/event is annotated with Safety.
type Prediction struct {
	meta    *httpx.Client
	trade   *httpx.Client
	filters Filters
	now     func() time.Time

	pollInterval time.Duration
	maxWait      time.Duration
}

// NewPrediction creates a client with the given filters.
func NewPrediction(f Filters) *Prediction {
	return &Prediction{
		meta:         httpx.New(MetadataBaseURL, 0),
		trade:        httpx.New(TradeBaseURL, 0),
		filters:      f,
		now:          time.Now,
		pollInterval: 2 * time.Second,
		maxWait:      90 * time.Second,
	}
}

// SetBaseURLs points both APIs elsewhere (tests).
func (p *Prediction) SetBaseURLs(metadata, trade string) {
	p.meta.SetBaseURL(metadata)
	p.trade.SetBaseURL(trade)
}

// WithIncludeRisky returns a copy that skips (or applies) quality filters.
func (p *Prediction) WithIncludeRisky(v bool) *Prediction {
	cp := *p
	cp.filters.IncludeRisky = v
	return &cp
}

func (p *Prediction) filter(items []Item) []Item {
	if p.filters.IncludeRisky {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Num("volume") >= p.filters.MinVolumeUSD && it.Liquidity() >= p.filters.MinLiquidityUSD {
			out = append(out, it)
		}
	}
	return out
}

func (p *Prediction) annotate(items []Item) []Item {
	now := p.now()
	for _, it := range items {
		it.Annotate(ScoreMarket(it, nil, now))
	}
	return items
}

func (p *Prediction) getRaw(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	var raw json.RawMessage
	if err := p.meta.Get(ctx, path, q, &raw); err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return raw, nil
}

// Listing is a filtered page of events or markets.
type Listing struct {
	Items  []Item
	Count  int
	Cursor string
}

func (p *Prediction) list(ctx context.Context, op, path, key string, q url.Values) (*Listing, error) {
	raw, err := p.getRaw(ctx, op, path, q)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(raw, key)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	items = p.annotate(p.filter(items))
	var cursor string
	var page struct {
		Cursor any `json:"cursor"`
	}
	if json.Unmarshal(raw, &page) == nil && page.Cursor != nil {
		cursor = fmt.Sprint(page.Cursor)
	}
	return &Listing{Items: items, Count: len(items), Cursor: cursor}, nil
}

// Search finds events by free text.
func (p *Prediction) Search(ctx context.Context, query string, limit int) (*Listing, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("withNestedMarkets", "true")
	return p.list(ctx, "search", "/search", "events", q)
}

// ListOptions page and sort event/market listings.
type ListOptions struct {
	Limit         int
	Cursor        string
	Status        string
	Sort          string
	SeriesTickers []string
}

func (o ListOptions) query() url.Values {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Status == "" {
		o.Status = "active"
	}
	if o.Sort == "" {
		o.Sort = "volume"
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(o.Limit))
	q.Set("status", o.Status)
	q.Set("sort", o.Sort)
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return q
}

// ListEvents lists events with nested markets.
func (p *Prediction) ListEvents(ctx context.Context, o ListOptions) (*Listing, error) {
	q := o.query()
	q.Set("withNestedMarkets", "true")
	if len(o.SeriesTickers) > 0 {
		st := o.SeriesTickers
		if len(st) > 25 {
			st = st[:25]
		}
		q.Set("seriesTickers", strings.Join(st, ","))
	}
	return p.list(ctx, "list events", "/events", "events", q)
}

// ListMarkets lists markets.
func (p *Prediction) ListMarkets(ctx context.Context, o ListOptions) (*Listing, error) {
	return p.list(ctx, "list markets", "/markets", "markets", o.query())
}

func (p *Prediction) one(ctx context.Context, op, path string) (Item, error) {
	raw, err := p.getRaw(ctx, op, path, nil)
	if err != nil {
		return nil, err
	}
	var it Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if it == nil {
		it = Item{}
	}
	it["safety"] = ScoreMarket(it, nil, p.now()).asMap()
	return it, nil
}

// Event fetches one event by ticker.
func (p *Prediction) Event(ctx context.Context, eventID string) (Item, error) {
	return p.one(ctx, "get event", "/event/"+url.PathEscape(eventID))
}

// Market fetches a market by ticker or, when mint is set, by outcome mint.
// The YES/NO outcome mints of the first settlement account are lifted to
// yes_mint, no_mint and settlement_mint.
func (p *Prediction) Market(ctx context.Context, ticker, mint string) (Item, error) {
	if ticker == "" && mint == "" {
		return nil, fmt.Errorf("either market_id or mint_address must be provided")
	}
	path := "/market/" + url.PathEscape(ticker)
	if mint != "" {
		path = "/market/by-mint/" + url.PathEscape(mint)
	}
	m, err := p.one(ctx, "get market", path)
	if err != nil {
		return nil, err
	}
	if accounts, ok := m["accounts"].(map[string]any); ok {
		for settlement, v := range accounts {
			acct, _ := v.(map[string]any)
			m["yes_mint"] = acct["yesMint"]
			m["no_mint"] = acct["noMint"]
			m["settlement_mint"] = settlement
			break
		}
	}
	return m, nil
}

// Series lists event templates.
func (p *Prediction) Series(ctx context.Context, category, status string) (json.RawMessage, error) {
	if status == "" {
		status = "active"
	}
	q := url.Values{"status": {status}}
	if category != "" {
		q.Set("category", category)
	}
	return p.getRaw(ctx, "list series", "/series", q)
}

// Categories returns tags grouped by category.
func (p *Prediction) Categories(ctx context.Context) (json.RawMessage, error) {
	return p.getRaw(ctx, "get categories", "/tags_by_categories", nil)
}

// Trades returns recent trades for a market ticker or outcome mint.
func (p *Prediction) Trades(ctx context.Context, ticker, mint string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	path := "/trades"
	if mint != "" {
		path = "/trades/by-mint/" + url.PathEscape(mint)
	} else if ticker != "" {
		q.Set("ticker", ticker)
	}
	raw, err := p.getRaw(ctx, "get trades", path, q)
	if err != nil {
		return nil, err
	}
	return decodeItems(raw, "trades")
}

// OutcomeMints maps each outcome token mint to its market info.
func (p *Prediction) OutcomeMints(ctx context.Context) (map[string]Item, error) {
	raw, err := p.getRaw(ctx, "get outcome mints", "/outcome_mints", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]Item
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode outcome mints: %w", err)
	}
	return out, nil
}

// TradeRequest is a prediction-market order.
type TradeRequest struct {
	InputMint        string
	OutputMint       string
	Amount           uint64
	UserPublicKey    string
	SlippageBps      int
	PlatformFeeBps   int
	PlatformFeeScale int
	FeeAccount       string
}

// TradeOrder fetches a quote and transaction for buying or selling outcome
// tokens. The response is kept loose; ExecuteBlocking reads it.
func (p *Prediction) TradeOrder(ctx context.Context, r TradeRequest) (Item, error) {
	if r.SlippageBps <= 0 {
		r.SlippageBps = 100
	}
	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", strconv.FormatUint(r.Amount, 10))
	q.Set("userPublicKey", r.UserPublicKey)
	q.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	if r.PlatformFeeBps > 0 {
		q.Set("platformFeeBps", strconv.Itoa(r.PlatformFeeBps))
	}
	if r.PlatformFeeScale > 0 {
		q.Set("platformFeeScale", strconv.Itoa(r.PlatformFeeScale))
	}
	if r.FeeAccount != "" {
		q.Set("feeAccount", r.FeeAccount)
	}
	var out Item
	if err := p.trade.Get(ctx, "/order", q, &out); err != nil {
		return nil, fmt.Errorf("get order failed: %w", err)
	}
	return out, nil
}

// TradeStatus polls an async order by request id.
func (p *Prediction) TradeStatus(ctx context.Context, requestID string) (Item, error) {
	var out Item
	if err := p.trade.Get(ctx, "/order-status", url.Values{"requestId": {requestID}}, &out); err != nil {
		return nil, fmt.Errorf("get order status failed: %w", err)
	}
	return out, nil
}
