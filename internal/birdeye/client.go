// Package birdeye is a table-driven client for the Birdeye public API.
package birdeye

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const (
	BaseURL      = "https://public-api.birdeye.so"
	DefaultChain = "solana"
)

// ErrNoAPIKey is returned for every action when no key is configured.
var ErrNoAPIKey = errors.New("Birdeye API key not configured. Set birdeye.api_key in config.")

// Client calls Birdeye actions by name.
type Client struct {
	api   *httpx.Client
	key   string
	chain string
}

// New creates a client. rps > 0 throttles outgoing requests.
func New(apiKey, chain string, rps float64) *Client {
	if chain == "" {
		chain = DefaultChain
	}
	return &Client{
		api:   httpx.New(BaseURL, 0, httpx.WithHeader("X-API-KEY", apiKey), httpx.WithRateLimit(rps)),
		key:   apiKey,
		chain: chain,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.key != "" }

// SetBaseURL points the client elsewhere (tests).
func (c *Client) SetBaseURL(u string) { c.api.SetBaseURL(u) }

// Result is the normalized action outcome:
// {"success":true,"data":...} or {"success":false,"error":...[,"details":...]}.
type Result map[string]any

func failure(msg string) Result { return Result{"success": false, "error": msg} }

// Raw runs action and returns the response whatever its status. The chain
// param, when set, overrides the configured chain for this call. Validation
// errors are returned without touching the network.
func (c *Client) Raw(ctx context.Context, name string, params map[string]any) (*httpx.Response, error) {
	a, ok := actionsByName[name]
	if !ok {
		return nil, errors.New("Unknown action: " + name)
	}
	if msg := a.missing(params); msg != "" {
		return nil, errors.New(msg)
	}
	if c.key == "" {
		return nil, ErrNoAPIKey
	}

	chain := c.chain
	if s, _ := params["chain"].(string); s != "" {
		chain = s
	}

	query, body := a.build(params)
	hdr := http.Header{}
	hdr.Set("x-chain", chain)

	var payload any
	if body != nil {
		payload = body
	}
	return c.api.Do(ctx, a.method, a.path, query, payload, hdr)
}

// Call runs action and normalizes the response into a Result.
func (c *Client) Call(ctx context.Context, name string, params map[string]any) Result {
	resp, err := c.Raw(ctx, name, params)
	if err != nil {
		return failure(err.Error())
	}
	if resp.Status != http.StatusOK {
		return Result{
			"success": false,
			"error":   fmt.Sprintf("API error: %d", resp.Status),
			"details": string(resp.Body),
		}
	}
	if !json.Valid(resp.Body) {
		return failure("invalid JSON in Birdeye response")
	}
	data := json.RawMessage(resp.Body)
	if d := gjson.GetBytes(resp.Body, "data"); d.Exists() {
		data = json.RawMessage(d.Raw)
	}
	return Result{"success": true, "data": data}
}

// Price fetches /defi/price with liquidity for the price summary tool.
func (c *Client) Price(ctx context.Context, address string) Result {
	return c.Call(ctx, "price", map[string]any{"address": address, "include_liquidity": true})
}

func (a *action) missing(params map[string]any) string {
	var absent []string
	for _, p := range a.required {
		if !present(params[p]) {
			absent = append(absent, p)
		}
	}
	switch {
	case len(absent) == 0:
		return ""
	case len(a.required) == 1 && a.required[0] == "wallets":
		return "wallets list is required"
	case len(a.required) == 1:
		return a.required[0] + " is required"
	default:
		return strings.Join(a.required, " and ") + " are required"
	}
}

func (a *action) build(params map[string]any) (url.Values, map[string]any) {
	q := url.Values{}
	var body map[string]any
	if len(a.body) > 0 {
		body = map[string]any{}
	}
	for _, p := range opts(a.required, a.optional) {
		v, ok := params[p]
		if !ok || !present(v) {
			if d, ok := a.defaults[p]; ok {
				q.Set(p, d)
			}
			continue
		}
		if contains(a.body, p) {
			body[p] = v
			continue
		}
		q.Set(p, queryValue(v))
	}
	return q, body
}

// present mirrors truthiness: zero, false, "" and empty lists are absent.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		return t.String() != "0"
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}

// queryValue renders a param; lists are comma-joined.
func queryValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = queryValue(e)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
