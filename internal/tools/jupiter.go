package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
)

// ---------------------------------------------------------------------------
// JupiterHoldingsTool
// ---------------------------------------------------------------------------

type JupiterHoldingsTool struct {
	ultra *jupiter.Ultra
}

func NewJupiterHoldingsTool(u *jupiter.Ultra) *JupiterHoldingsTool {
	return &JupiterHoldingsTool{ultra: u}
}

func (t *JupiterHoldingsTool) Name() string { return string(ToolJupiterHoldings) }
func (t *JupiterHoldingsTool) Description() string {
	return "Get detailed token holdings for a Solana wallet address, including native SOL balance and all token balances with metadata."
}
func (t *JupiterHoldingsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"wallet_address": {
				"type": "string",
				"description": "The Solana wallet address to get holdings for."
			},
			"native_only": {
				"type": "boolean",
				"description": "If true, only returns native SOL balance (faster).",
				"default": false
			}
		},
		"required": ["wallet_address", "native_only"],
		"additionalProperties": false
	}`)
}

func (t *JupiterHoldingsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	wallet := stringParam(params, "wallet_address")
	if wallet == "" {
		return failure("wallet_address is required")
	}
	var (
		holdings json.RawMessage
		err      error
	)
	if boolParam(params, "native_only") {
		holdings, err = t.ultra.NativeHoldings(ctx, wallet)
	} else {
		holdings, err = t.ultra.Holdings(ctx, wallet)
	}
	if err != nil {
		slog.Error("jupiter_holdings failed", "wallet", wallet, "err", err)
		return failureErr(err)
	}
	return success(result{"holdings": holdings})
}

// ---------------------------------------------------------------------------
// JupiterShieldTool
// ---------------------------------------------------------------------------

type JupiterShieldTool struct {
	ultra *jupiter.Ultra
}

func NewJupiterShieldTool(u *jupiter.Ultra) *JupiterShieldTool {
	return &JupiterShieldTool{ultra: u}
}

func (t *JupiterShieldTool) Name() string { return string(ToolJupiterShield) }
func (t *JupiterShieldTool) Description() string {
	return "Check token security by getting warnings for token mint addresses. Useful for detecting potentially malicious tokens before trading."
}
func (t *JupiterShieldTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"mints": {
				"type": "array",
				"items": {"type": "string"},
				"description": "List of token mint addresses to check for security warnings."
			}
		},
		"required": ["mints"],
		"additionalProperties": false
	}`)
}

type shieldSummary struct {
	HasWarnings  bool                    `json:"has_warnings"`
	WarningCount int                     `json:"warning_count"`
	Warnings     []jupiter.ShieldWarning `json:"warnings"`
}

func (t *JupiterShieldTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	mints := stringsParam(params, "mints")
	if len(mints) == 0 {
		return failure("No mints provided.")
	}
	res, err := t.ultra.Shield(ctx, mints)
	if err != nil {
		slog.Error("jupiter_shield failed", "err", err)
		return failureErr(err)
	}

	summary := make(map[string]shieldSummary, len(res.Warnings))
	for mint, ws := range res.Warnings {
		if ws == nil {
			ws = []jupiter.ShieldWarning{}
		}
		summary[mint] = shieldSummary{HasWarnings: len(ws) > 0, WarningCount: len(ws), Warnings: ws}
	}
	return success(result{"shield": summary, "raw_response": res.Raw})
}

// ---------------------------------------------------------------------------
// JupiterTokenSearchTool
// ---------------------------------------------------------------------------

type JupiterTokenSearchTool struct {
	ultra *jupiter.Ultra
}

func NewJupiterTokenSearchTool(u *jupiter.Ultra) *JupiterTokenSearchTool {
	return &JupiterTokenSearchTool{ultra: u}
}

func (t *JupiterTokenSearchTool) Name() string { return string(ToolJupiterTokenSearch) }
func (t *JupiterTokenSearchTool) Description() string {
	return "Search for Solana tokens by symbol, name, or mint address. Returns detailed token information including price, market cap, liquidity, and trading stats."
}
func (t *JupiterTokenSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Token symbol (e.g. 'SOL'), name (e.g. 'Jupiter') or mint address. Comma-separate for multiple searches."
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *JupiterTokenSearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := stringParam(params, "query")
	if query == "" {
		return failure("No query provided.")
	}
	tokens, err := t.ultra.Search(ctx, query)
	if err != nil {
		slog.Error("jupiter_token_search failed", "query", query, "err", err)
		return failureErr(err)
	}
	out := make([]result, 0, len(tokens))
	for _, raw := range tokens {
		out = append(out, formatToken(gjson.ParseBytes(raw)))
	}
	return success(result{"count": len(out), "tokens": out})
}

func formatToken(tok gjson.Result) result {
	listOr := func(path string) any {
		if v := tok.Get(path); v.IsArray() {
			return v.Value()
		}
		return []any{}
	}
	r := result{
		"mint":                tok.Get("id").Value(),
		"name":                tok.Get("name").Value(),
		"symbol":              tok.Get("symbol").Value(),
		"decimals":            tok.Get("decimals").Value(),
		"icon":                tok.Get("icon").Value(),
		"is_verified":         tok.Get("isVerified").Bool(),
		"price_usd":           tok.Get("usdPrice").Value(),
		"market_cap":          tok.Get("mcap").Value(),
		"fdv":                 tok.Get("fdv").Value(),
		"liquidity":           tok.Get("liquidity").Value(),
		"holder_count":        tok.Get("holderCount").Value(),
		"organic_score":       tok.Get("organicScore").Value(),
		"organic_score_label": tok.Get("organicScoreLabel").Value(),
		"tags":                listOr("tags"),
		"cexes":               listOr("cexes"),
	}
	if a := tok.Get("audit"); a.IsObject() && len(a.Map()) > 0 {
		r["audit"] = result{
			"mint_authority_disabled":   a.Get("mintAuthorityDisabled").Value(),
			"freeze_authority_disabled": a.Get("freezeAuthorityDisabled").Value(),
			"top_holders_percentage":    a.Get("topHoldersPercentage").Value(),
		}
	}
	if s := tok.Get("stats24h"); s.IsObject() && len(s.Map()) > 0 {
		r["stats_24h"] = result{
			"price_change":  s.Get("priceChange").Value(),
			"volume_change": s.Get("volumeChange").Value(),
			"buy_volume":    s.Get("buyVolume").Value(),
			"sell_volume":   s.Get("sellVolume").Value(),
			"num_buys":      s.Get("numBuys").Value(),
			"num_sells":     s.Get("numSells").Value(),
			"num_traders":   s.Get("numTraders").Value(),
		}
	}
	return r
}
