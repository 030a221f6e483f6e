// Package vybe wraps the Vybe Network API: the known-accounts label table
// and wallet token balances.
package vybe

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const (
	BaseURL    = "https://api.vybenetwork.xyz"
	DefaultTTL = time.Hour
)

// Account is the label info for one known address.
type Account struct {
	Name       string   `json:"name,omitempty"`
	Labels     []string `json:"labels"`
	EntityID   any      `json:"entity_id,omitempty"`
	EntityName string   `json:"entity_name,omitempty"`
	Type       string   `json:"type,omitempty"`
}

// Client talks to Vybe. The known-accounts table is cached for ttl and
// shared by every caller of the same Client.
type Client struct {
	key     string
	api     *httpx.Client
	balance *httpx.Client
	ttl     time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	accounts  map[string]Account
	fetchedAt time.Time
	group     singleflight.Group
}

// New creates a Client. ttl <= 0 means DefaultTTL.
func New(apiKey string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		key: apiKey,
		api: httpx.New(BaseURL, 30*time.Second, httpx.WithHeader("X-API-Key", apiKey)),
		balance: httpx.New(BaseURL, 15*time.Second,
			httpx.WithHeader("X-API-KEY", apiKey),
			httpx.WithRetry(httpx.Retry5xx)),
		ttl: ttl,
		now: time.Now,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.key != "" }

// SetBaseURL points both endpoints elsewhere (tests).
func (c *Client) SetBaseURL(u string) {
	c.api.SetBaseURL(u)
	c.balance.SetBaseURL(u)
}

// SetClock replaces the time source used for TTL checks.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

// KnownAccounts returns the cached address table, fetching it when the
// cache is empty, older than the TTL, or refresh is set. Concurrent
// fetches are collapsed into one request.
func (c *Client) KnownAccounts(ctx context.Context, refresh bool) (map[string]Account, error) {
	if !refresh {
		c.mu.RLock()
		accounts, at := c.accounts, c.fetchedAt
		c.mu.RUnlock()
		if len(accounts) > 0 && c.now().Sub(at) <= c.ttl {
			return accounts, nil
		}
	}

	v, err, _ := c.group.Do("known-accounts", func() (any, error) {
		return c.fetchKnownAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]Account), nil
}

// CacheAge reports how long ago the table was fetched.
func (c *Client) CacheAge() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() {
		return 0
	}
	return c.now().Sub(c.fetchedAt)
}

func (c *Client) fetchKnownAccounts(ctx context.Context) (map[string]Account, error) {
	resp, err := c.api.Do(ctx, "GET", "/account/known-accounts", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		slog.Error("vybe: known-accounts request failed", "status", resp.Status, "body", string(resp.Body))
		return nil, fmt.Errorf("Vybe API error: %d", resp.Status)
	}

	list := gjson.ParseBytes(resp.Body)
	if !list.IsArray() {
		list = list.Get("data")
	}
	accounts := make(map[string]Account)
	list.ForEach(func(_, v gjson.Result) bool {
		addr := firstString(v, "ownerAddress", "address")
		if addr == "" {
			return true
		}
		labels := []string{}
		v.Get("labels").ForEach(func(_, l gjson.Result) bool {
			labels = append(labels, l.String())
			return true
		})
		acct := Account{
			Name:       firstString(v, "name", "entityName"),
			Labels:     labels,
			EntityName: v.Get("entityName").String(),
			Type:       v.Get("type").String(),
		}
		if id := v.Get("entityId"); id.Exists() && id.Type != gjson.Null {
			acct.EntityID = id.Value()
		}
		accounts[addr] = acct
		return true
	})

	c.mu.Lock()
	c.accounts = accounts
	c.fetchedAt = c.now()
	c.mu.Unlock()
	slog.Debug("vybe: known accounts refreshed", "count", len(accounts))
	return accounts, nil
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

// TokenBalance fetches the top ten token balances of wallet by USD value.
// 5xx responses are retried.
func (c *Client) TokenBalance(ctx context.Context, wallet string) ([]byte, error) {
	q := url.Values{"limit": {"10"}, "sortByDesc": {"valueUsd"}}
	resp, err := c.balance.Do(ctx, "GET", "/account/token-balance/"+url.PathEscape(wallet), q, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &httpx.StatusError{Code: resp.Status, Body: string(resp.Body)}
	}
	return resp.Body, nil
}

// SummarizeBalances renders a token-balance response as text lines.
func SummarizeBalances(body []byte) string {
	r := gjson.ParseBytes(body)
	var lines []string
	lines = append(lines, "Wallet: "+r.Get("ownerAddress").String())
	if v := r.Get("solBalance"); v.Exists() {
		lines = append(lines, fmt.Sprintf("SOL balance: %s (~$%s)", v.String(), r.Get("solBalanceUsd").String()))
	}
	if v := r.Get("stakedSolBalance"); v.Exists() {
		lines = append(lines, fmt.Sprintf("Staked SOL: %s (~$%s)", v.String(), r.Get("stakedSolBalanceUsd").String()))
	}
	if v := r.Get("activeStakedSolBalance"); v.Exists() {
		lines = append(lines, fmt.Sprintf("Active Staked SOL: %s (~$%s)", v.String(), r.Get("activeStakedSolBalanceUsd").String()))
	}
	if v := r.Get("totalTokenValueUsd"); v.Exists() {
		lines = append(lines, fmt.Sprintf("Total wallet value: $%s (24h change: %s)", v.String(), r.Get("totalTokenValueUsd1dChange").String()))
	}

	tokens := r.Get("data").Array()
	if len(tokens) == 0 {
		lines = append(lines, "No SPL tokens found.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "Top tokens:")
	if len(tokens) > 10 {
		tokens = tokens[:10]
	}
	for _, t := range tokens {
		name := firstString(t, "name", "symbol", "mintAddress")
		verified := "❌"
		if t.Get("verified").Bool() {
			verified = "✅"
		}
		lines = append(lines, fmt.Sprintf("  - %s (%s): %s ($%s) %s",
			name, t.Get("symbol").String(), t.Get("amount").String(), t.Get("valueUsd").String(), verified))
	}
	return strings.Join(lines, "\n")
}
