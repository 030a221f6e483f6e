package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/birdeye"
)

// ---------------------------------------------------------------------------
// BirdeyeTool
// ---------------------------------------------------------------------------

var (
	birdeyeNumberParams = map[string]bool{
		"offset": true, "limit": true, "time_from": true, "time_to": true, "unixtime": true,
		"before_time": true, "after_time": true, "min_liquidity": true, "min_volume_24h_usd": true,
		"min_market_cap": true, "count": true,
	}
	birdeyeBoolParams  = map[string]bool{"check_liquidity": true, "include_liquidity": true, "meme_platform_enabled": true, "verify_token": true}
	birdeyeArrayParams = map[string]bool{"wallets": true, "tokens": true}
)

// BirdeyeTool exposes the whole Birdeye action table behind one "action"
// parameter.
type BirdeyeTool struct {
	client *birdeye.Client
	params json.RawMessage
}

func NewBirdeyeTool(c *birdeye.Client) *BirdeyeTool {
	return &BirdeyeTool{client: c, params: birdeyeSchema()}
}

func (t *BirdeyeTool) Name() string { return string(ToolBirdeye) }
func (t *BirdeyeTool) Description() string {
	return "Birdeye API for Solana token analytics and wallet data. " +
		"Price, OHLCV, trades, token lists and overviews, security, holders, pairs, " +
		"top traders, wallet balances, PnL and net worth, and search. " +
		"Choose an action and pass only the parameters it needs."
}
func (t *BirdeyeTool) Parameters() json.RawMessage { return t.params }

func (t *BirdeyeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	action, _ := params["action"].(string)
	args := make(map[string]any, len(params))
	for k, v := range params {
		if k != "action" {
			args[k] = v
		}
	}
	return encode(t.client.Call(ctx, strings.TrimSpace(action), args))
}

func birdeyeSchema() json.RawMessage {
	props := map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        birdeye.Actions(),
			"description": "Birdeye action to perform",
		},
		"chain": map[string]any{
			"type":        "string",
			"description": "Chain override for this call (default from config, usually solana)",
		},
	}
	for _, p := range birdeye.Params() {
		switch {
		case birdeyeNumberParams[p]:
			props[p] = map[string]any{"type": "number"}
		case birdeyeBoolParams[p]:
			props[p] = map[string]any{"type": "boolean"}
		case birdeyeArrayParams[p]:
			props[p] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		default:
			props[p] = map[string]any{"type": "string"}
		}
	}
	raw, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"action"},
	})
	return raw
}

// ---------------------------------------------------------------------------
// SolanaPriceTool
// ---------------------------------------------------------------------------

// SolanaPriceTool summarizes a token's Birdeye price as text.
type SolanaPriceTool struct {
	client *birdeye.Client
}

func NewSolanaPriceTool(c *birdeye.Client) *SolanaPriceTool { return &SolanaPriceTool{client: c} }

func (t *SolanaPriceTool) Name() string { return string(ToolSolanaPrice) }
func (t *SolanaPriceTool) Description() string {
	return "Get the current price and liquidity for a Solana token using Birdeye API."
}
func (t *SolanaPriceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"address": {
				"type": "string",
				"description": "The token mint address"
			}
		},
		"required": ["address"],
		"additionalProperties": false
	}`)
}

func (t *SolanaPriceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.client.Configured() {
		return failure("Birdeye API key not configured.")
	}
	address := stringParam(params, "address")
	if address == "" {
		return failure("address is required")
	}

	res := t.client.Price(ctx, address)
	if ok, _ := res["success"].(bool); !ok {
		return failure(fmt.Sprintf("Failed to fetch price for %s.", address), result{"details": res["error"]})
	}
	data, _ := res["data"].(json.RawMessage)
	return success(result{"result": summarizePrice(gjson.ParseBytes(data), address)})
}

func summarizePrice(data gjson.Result, address string) string {
	return strings.Join([]string{
		"Token address: " + address,
		"Current price: " + data.Get("value").String(),
		"24h price change: " + data.Get("priceChange24h").String() + "%",
		"Liquidity: " + data.Get("liquidity").String(),
		"Last updated: " + data.Get("updateHumanTime").String(),
	}, "\n")
}
