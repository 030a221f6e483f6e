package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/dflow"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

const predictionWarning = "⚠️ WARNING: Prediction markets carry risks including insider trading, " +
	"resolution manipulation, and liquidity traps. Safety scores are provided " +
	"but cannot guarantee market legitimacy."

const predictionParams = `
			"action": {
				"type": "string",
				"enum": ["search", "list_events", "get_event", "list_markets", "get_market", "buy", "sell", "positions"],
				"description": "Action to perform: 'search' - Search markets by text query. 'list_events' - List active prediction events. 'get_event' - Get specific event details. 'list_markets' - List active markets. 'get_market' - Get specific market details. 'buy' - Buy outcome tokens (YES/NO). 'sell' - Sell outcome tokens. 'positions' - Get user's prediction market positions."
			},
			"query": {
				"type": ["string", "null"],
				"description": "Search query text (for 'search' action). Pass null if not needed."
			},
			"event_id": {
				"type": ["string", "null"],
				"description": "Event ticker/ID (for 'get_event' action). Pass null if not needed."
			},
			"market_id": {
				"type": ["string", "null"],
				"description": "Market ticker (for 'get_market', 'buy', 'sell' actions). Pass null if not needed."
			},
			"mint_address": {
				"type": ["string", "null"],
				"description": "Outcome token mint address (alternative to market_id). Pass null if not needed."
			},
			"side": {
				"type": ["string", "null"],
				"enum": ["YES", "NO", null],
				"description": "Which side to buy/sell (for 'buy', 'sell' actions). Pass null if not needed."
			},
			"amount": {
				"type": ["number", "null"],
				"description": "Amount in USDC to spend (for 'buy') or tokens to sell (for 'sell'). Pass null if not needed."
			},
			"limit": {
				"type": "integer",
				"description": "Max results to return (default 20)."
			},
			"status": {
				"type": "string",
				"enum": ["active", "closed", "determined"],
				"description": "Filter by market status (default 'active')."
			},
			"sort": {
				"type": "string",
				"enum": ["volume", "volume24h", "liquidity", "openInterest"],
				"description": "Sort field (default 'volume')."
			},
			"include_risky": {
				"type": ["boolean", "null"],
				"description": "Include low-quality markets (with warnings). Default false. Pass null to use default."
			}`

// outcomeScale converts USDC and outcome-token amounts to base units.
const outcomeScale = 1_000_000

// predictionMarkets implements the prediction-market actions. signer
// resolves the trading wallet for buy/sell/positions.
type predictionMarkets struct {
	client *dflow.Prediction
	relay  *solana.Relay
	keys   LocalKeys
	cfg    tool.DFlowConfig
	signer func(ctx context.Context, params map[string]any, action string) (solana.Signer, error)
}

func (p *predictionMarkets) run(ctx context.Context, params map[string]any) (string, error) {
	action := stringParam(params, "action")
	includeRisky := p.cfg.IncludeRisky
	if v, ok := params["include_risky"].(bool); ok {
		includeRisky = v
	}
	client := p.client.WithIncludeRisky(includeRisky)

	limit := 20
	if n, ok := intParam(params, "limit"); ok && n > 0 {
		limit = int(n)
	}
	opts := dflow.ListOptions{Limit: limit, Status: stringParam(params, "status"), Sort: stringParam(params, "sort")}

	switch action {
	case "search":
		query := stringParam(params, "query")
		if query == "" {
			return failure("query is required for search action")
		}
		l, err := client.Search(ctx, query, limit)
		if err != nil {
			return failureErr(err)
		}
		return success(result{"events": l.Items, "count": l.Count})

	case "list_events":
		l, err := client.ListEvents(ctx, opts)
		if err != nil {
			return failureErr(err)
		}
		return success(result{"events": l.Items, "count": l.Count, "cursor": optString(l.Cursor)})

	case "get_event":
		id := stringParam(params, "event_id")
		if id == "" {
			return failure("event_id is required for get_event action")
		}
		ev, err := client.Event(ctx, id)
		if err != nil {
			return failureErr(err)
		}
		return success(result{"event": ev})

	case "list_markets":
		l, err := client.ListMarkets(ctx, opts)
		if err != nil {
			return failureErr(err)
		}
		return success(result{"markets": l.Items, "count": l.Count, "cursor": optString(l.Cursor)})

	case "get_market":
		ticker, mint := stringParam(params, "market_id"), stringParam(params, "mint_address")
		if ticker == "" && mint == "" {
			return failure("market_id or mint_address is required for get_market action")
		}
		m, err := client.Market(ctx, ticker, mint)
		if err != nil {
			return failureErr(err)
		}
		return success(result{"market": m})

	case "buy", "sell":
		return p.trade(ctx, client, params, action, includeRisky)

	case "positions":
		return p.positions(ctx, client, params)
	}
	return failure("Unknown action: " + action)
}

func (p *predictionMarkets) trade(ctx context.Context, client *dflow.Prediction, params map[string]any, action string, includeRisky bool) (string, error) {
	if p.relay == nil {
		return failureErr(errRPCURL)
	}
	ticker, mint := stringParam(params, "market_id"), stringParam(params, "mint_address")
	if ticker == "" && mint == "" {
		return failure("market_id or mint_address required for " + action)
	}
	side := strings.ToUpper(stringParam(params, "side"))
	if side == "" {
		return failure("side (YES/NO) required for " + action)
	}
	amount, _ := floatParam(params, "amount")
	if amount <= 0 {
		return failure("amount required for " + action)
	}
	payer, err := p.keys.Payer()
	if err != nil {
		return failureErr(err)
	}
	signer, err := p.signer(ctx, params, action)
	if err != nil {
		return failureErr(err)
	}

	market, err := client.Market(ctx, ticker, mint)
	if err != nil {
		return failureErr(err)
	}
	safety := market.SafetyOf()
	if action == "buy" && safety.Recommendation == "AVOID" && !includeRisky {
		return failure("Market safety score is LOW. Use include_risky=true to proceed.", result{"safety": market["safety"]})
	}

	outcome := market.Str("no_mint")
	if side == "YES" {
		outcome = market.Str("yes_mint")
	}
	if outcome == "" {
		return failure(fmt.Sprintf("Could not find %s outcome mint for market", stringParam(params, "side")))
	}

	req := dflow.TradeRequest{
		Amount:           uint64(math.Round(amount * outcomeScale)),
		UserPublicKey:    signer.PublicKey().String(),
		PlatformFeeBps:   p.cfg.PlatformFeeBps,
		PlatformFeeScale: p.cfg.PlatformFeeScale,
		FeeAccount:       p.cfg.FeeAccount,
	}
	if action == "buy" {
		req.InputMint, req.OutputMint = dflow.USDCMint, outcome
	} else {
		req.InputMint, req.OutputMint = outcome, dflow.USDCMint
	}
	order, err := client.TradeOrder(ctx, req)
	if err != nil {
		slog.Error("dflow prediction: order failed", "action", action, "market", market.Str("ticker"), "err", err)
		return failureErr(err)
	}

	send := func(ctx context.Context, tx string) (string, error) {
		return p.relay.SignAndSend(ctx, tx, solana.Optional(payer), signer)
	}
	res := client.ExecuteBlocking(ctx, order, send)
	if !res.Success {
		return failure(res.Error, result{"signature": res.Signature})
	}

	amt := strconv.FormatFloat(amount, 'f', -1, 64)
	out := result{
		"action":         action,
		"market":         market["ticker"],
		"side":           side,
		"signature":      res.Signature,
		"tx_signature":   res.Signature,
		"execution_mode": res.ExecutionMode,
	}
	if action == "buy" {
		out["amount_in"] = amt + " USDC"
		out["tokens_received"] = res.OutAmount
		out["safety"] = market["safety"]
	} else {
		out["tokens_sold"] = amt + " " + side
		out["usdc_received"] = res.OutAmount
	}
	return success(out)
}

func (p *predictionMarkets) positions(ctx context.Context, client *dflow.Prediction, params map[string]any) (string, error) {
	if p.relay == nil {
		return failure("rpc_url must be configured to query positions")
	}
	signer, err := p.signer(ctx, params, "positions")
	if err != nil {
		return failureErr(err)
	}
	wallet := signer.PublicKey().String()
	pos, err := client.Positions(ctx, wallet, p.relay.RPC())
	if err != nil {
		return failureErr(err)
	}
	hint := "No prediction market positions found."
	if len(pos) > 0 {
		hint = "Each position represents outcome tokens. Sell to exit or hold until resolution."
	}
	return success(result{
		"wallet":         wallet,
		"position_count": len(pos),
		"positions":      pos,
		"hint":           hint,
	})
}

// ---------------------------------------------------------------------------
// DFlowPredictionTool
// ---------------------------------------------------------------------------

type DFlowPredictionTool struct {
	markets *predictionMarkets
}

func NewDFlowPredictionTool(c *dflow.Prediction, relay *solana.Relay, keys LocalKeys, cfg tool.DFlowConfig) *DFlowPredictionTool {
	m := &predictionMarkets{client: c, relay: relay, keys: keys, cfg: cfg}
	m.signer = func(context.Context, map[string]any, string) (solana.Signer, error) {
		kp, err := keys.Wallet()
		if err != nil {
			return nil, err
		}
		return kp, nil
	}
	return &DFlowPredictionTool{markets: m}
}

func (t *DFlowPredictionTool) Name() string { return string(ToolDFlowPrediction) }
func (t *DFlowPredictionTool) Description() string {
	return "Trade prediction markets on Solana. Search for markets, check safety scores, " +
		"and buy/sell outcome tokens (YES/NO). " + predictionWarning
}
func (t *DFlowPredictionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {` + predictionParams + `
		},
		"required": ["action"],
		"additionalProperties": false
	}`)
}

func (t *DFlowPredictionTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.markets.run(ctx, params)
}

// ---------------------------------------------------------------------------
// PrivyDFlowPredictionTool
// ---------------------------------------------------------------------------

type PrivyDFlowPredictionTool struct {
	markets *predictionMarkets
}

func NewPrivyDFlowPredictionTool(c *dflow.Prediction, relay *solana.Relay, w *PrivyWallets, keys LocalKeys, cfg tool.DFlowConfig) *PrivyDFlowPredictionTool {
	m := &predictionMarkets{client: c, relay: relay, keys: keys, cfg: cfg}
	m.signer = func(ctx context.Context, params map[string]any, action string) (solana.Signer, error) {
		user := stringParam(params, "privy_user_id")
		if user == "" {
			return nil, errors.New("privy_user_id is required for " + action + " action")
		}
		return w.Signer(ctx, user)
	}
	return &PrivyDFlowPredictionTool{markets: m}
}

func (t *PrivyDFlowPredictionTool) Name() string { return string(ToolPrivyDFlowPrediction) }
func (t *PrivyDFlowPredictionTool) Description() string {
	return "Trade prediction markets on Solana using Privy embedded wallet. " +
		"Search for markets, check safety scores, and buy/sell outcome tokens (YES/NO). " + predictionWarning
}
func (t *PrivyDFlowPredictionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"privy_user_id": {
				"type": ["string", "null"],
				"description": "Privy user ID (did:privy:xxx format). Required for trading actions. Pass null for discovery actions."
			},` + predictionParams + `
		},
		"required": ["action"],
		"additionalProperties": false
	}`)
}

func (t *PrivyDFlowPredictionTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.markets.run(ctx, params)
}
