package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// fracDigits bounds the fractional digits of non-terminating quotients
// such as $10 at $140 per token.
const fracDigits = 20

// TokenMathTool converts between USD values, human token amounts and
// smallest units using exact rational arithmetic.
type TokenMathTool struct{}

func NewTokenMathTool() *TokenMathTool { return &TokenMathTool{} }

func (t *TokenMathTool) Name() string { return string(ToolTokenMath) }
func (t *TokenMathTool) Description() string {
	return "Calculate token amounts reliably for swaps, transfers, and limit orders. " +
		"Use this BEFORE calling privy_ultra or privy_trigger to get the correct amounts. " +
		"Actions: 'swap' (returns smallest_units), 'transfer' (returns a human-readable amount), " +
		"'limit_order' (returns making_amount and taking_amount), " +
		"'limit_order_info' (trigger price and USD values of an existing order), " +
		"'to_smallest_units', 'to_human', 'usd_to_tokens'. Never do token math yourself."
}
func (t *TokenMathTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["swap", "transfer", "limit_order", "limit_order_info", "to_smallest_units", "to_human", "usd_to_tokens"],
				"description": "Calculation to perform."
			},
			"usd_amount": {"type": "string", "description": "USD amount, e.g. '10' (swap, transfer, limit_order, usd_to_tokens)."},
			"token_price_usd": {"type": "string", "description": "Token price in USD, e.g. '140.50' (swap, transfer, usd_to_tokens)."},
			"decimals": {"type": "integer", "description": "Token decimals, e.g. 9 for SOL, 6 for USDC (swap, to_smallest_units, to_human)."},
			"human_amount": {"type": "string", "description": "Human-readable amount, e.g. '0.07' (to_smallest_units)."},
			"smallest_units": {"type": "string", "description": "Amount in smallest units, e.g. '70000000' (to_human)."},
			"input_price_usd": {"type": "string", "description": "Input token price in USD (limit_order, limit_order_info)."},
			"input_decimals": {"type": "integer", "description": "Input token decimals (limit_order, limit_order_info)."},
			"output_price_usd": {"type": "string", "description": "Output token price in USD (limit_order, limit_order_info)."},
			"output_decimals": {"type": "integer", "description": "Output token decimals (limit_order, limit_order_info)."},
			"price_change_percentage": {"type": "string", "description": "How much MORE output than market to ask for, e.g. '0.5' (limit_order). '0' fills at market."},
			"making_amount": {"type": "string", "description": "Order's raw making amount in smallest units (limit_order_info)."},
			"taking_amount": {"type": "string", "description": "Order's raw taking amount in smallest units (limit_order_info)."}
		},
		"required": ["action"],
		"additionalProperties": false
	}`)
}

func (t *TokenMathTool) Execute(_ context.Context, params map[string]any) (string, error) {
	action := strings.ToLower(stringParam(params, "action"))
	p := mathArgs{params}

	var (
		out result
		err error
	)
	switch action {
	case "swap":
		out, err = p.swap()
	case "transfer":
		out, err = p.transfer()
	case "limit_order":
		out, err = p.limitOrder()
	case "limit_order_info":
		out, err = p.limitOrderInfo()
	case "to_smallest_units":
		out, err = p.toSmallestUnits()
	case "to_human":
		out, err = p.toHuman()
	case "usd_to_tokens":
		out, err = p.usdToTokens()
	default:
		return failure(fmt.Sprintf("Unknown action: %s. Valid: swap, transfer, limit_order, limit_order_info, to_smallest_units, to_human, usd_to_tokens", action))
	}
	if err != nil {
		return failureErr(err)
	}
	out["action"] = action
	return success(out)
}

type mathArgs struct{ params map[string]any }

func (p mathArgs) str(key string) string { return stringParam(p.params, key) }

func (p mathArgs) num(key string) int {
	n, _ := intParam(p.params, key)
	return int(n)
}

// missing reports an error naming keys when any of them is empty or zero.
func (p mathArgs) missing(action string, keys ...string) error {
	for _, k := range keys {
		if v := p.str(k); v == "" || v == "0" && strings.HasSuffix(k, "decimals") {
			return fmt.Errorf("Missing required params for '%s': %s", action, strings.Join(keys, ", "))
		}
	}
	return nil
}

func (p mathArgs) swap() (result, error) {
	if err := p.missing("swap", "usd_amount", "token_price_usd", "decimals"); err != nil {
		return nil, err
	}
	tokens, err := usdToTokens(p.str("usd_amount"), p.str("token_price_usd"))
	if err != nil {
		return nil, err
	}
	human, units := formatDecimal(tokens), toUnits(tokens, p.num("decimals"))
	return result{
		"human_amount":   human,
		"smallest_units": units,
		"message": fmt.Sprintf("For $%s, you get %s tokens (%s smallest units). Use smallest_units for privy_ultra amount.",
			p.str("usd_amount"), human, units),
	}, nil
}

func (p mathArgs) transfer() (result, error) {
	if err := p.missing("transfer", "usd_amount", "token_price_usd"); err != nil {
		return nil, err
	}
	tokens, err := usdToTokens(p.str("usd_amount"), p.str("token_price_usd"))
	if err != nil {
		return nil, err
	}
	amount := formatDecimal(tokens)
	return result{
		"amount": amount,
		"message": fmt.Sprintf("For $%s at price $%s, transfer %s tokens.",
			p.str("usd_amount"), p.str("token_price_usd"), amount),
	}, nil
}

func (p mathArgs) usdToTokens() (result, error) {
	if err := p.missing("usd_to_tokens", "usd_amount", "token_price_usd"); err != nil {
		return nil, err
	}
	tokens, err := usdToTokens(p.str("usd_amount"), p.str("token_price_usd"))
	if err != nil {
		return nil, err
	}
	amount := formatDecimal(tokens)
	return result{
		"token_amount": amount,
		"message":      fmt.Sprintf("$%s at price $%s = %s tokens", p.str("usd_amount"), p.str("token_price_usd"), amount),
	}, nil
}

func (p mathArgs) toSmallestUnits() (result, error) {
	if err := p.missing("to_smallest_units", "human_amount", "decimals"); err != nil {
		return nil, err
	}
	amount, err := parseDecimal(p.str("human_amount"), "amount")
	if err != nil {
		return nil, err
	}
	units := toUnits(amount, p.num("decimals"))
	return result{
		"smallest_units": units,
		"message": fmt.Sprintf("%s tokens with %d decimals = %s smallest units",
			p.str("human_amount"), p.num("decimals"), units),
	}, nil
}

func (p mathArgs) toHuman() (result, error) {
	if err := p.missing("to_human", "smallest_units", "decimals"); err != nil {
		return nil, err
	}
	units, err := parseDecimal(p.str("smallest_units"), "smallest_units")
	if err != nil {
		return nil, err
	}
	human := formatDecimal(fromUnits(units, p.num("decimals")))
	return result{
		"human_amount": human,
		"message": fmt.Sprintf("%s smallest units with %d decimals = %s tokens",
			p.str("smallest_units"), p.num("decimals"), human),
	}, nil
}

// limitOrder sizes a Trigger order: making_amount spends usd_amount of the
// input token, taking_amount asks for price_change_percentage more output
// than the market gives today.
func (p mathArgs) limitOrder() (result, error) {
	if err := p.missing("limit_order", "usd_amount", "input_price_usd", "input_decimals", "output_price_usd", "output_decimals"); err != nil {
		return nil, err
	}
	usd, err := parseDecimal(p.str("usd_amount"), "amount")
	if err != nil {
		return nil, err
	}
	inHuman, err := usdToTokens(p.str("usd_amount"), p.str("input_price_usd"))
	if err != nil {
		return nil, err
	}
	pctStr := p.str("price_change_percentage")
	if pctStr == "" {
		pctStr = "0"
	}
	pct, err := parseDecimal(pctStr, "percentage")
	if err != nil {
		return nil, err
	}
	factor := new(big.Rat).Add(big.NewRat(1, 1), new(big.Rat).Quo(pct, big.NewRat(100, 1)))
	adjusted := new(big.Rat).Mul(usd, factor)
	outHuman, err := usdToTokens(formatDecimal(adjusted), p.str("output_price_usd"))
	if err != nil {
		return nil, err
	}
	if outHuman.Sign() == 0 {
		return nil, errors.New("output amount is zero")
	}
	target := new(big.Rat).Quo(usd, outHuman)

	making := toUnits(inHuman, p.num("input_decimals"))
	taking := toUnits(outHuman, p.num("output_decimals"))
	return result{
		"making_amount":           making,
		"taking_amount":           taking,
		"input_human_amount":      formatDecimal(inHuman),
		"output_human_amount":     formatDecimal(outHuman),
		"target_output_price_usd": formatDecimal(target),
		"message": fmt.Sprintf("Limit order: sell %s input tokens (making_amount=%s) for %s output tokens (taking_amount=%s) at target price $%s",
			formatDecimal(inHuman), making, formatDecimal(outHuman), taking, formatDecimal(target)),
	}, nil
}

// limitOrderInfo prices an existing order. It fills when the market price
// of the output token is at or below the order's trigger price.
func (p mathArgs) limitOrderInfo() (result, error) {
	if err := p.missing("limit_order_info", "making_amount", "taking_amount", "input_price_usd", "output_price_usd"); err != nil {
		return nil, err
	}
	if p.num("input_decimals") <= 0 || p.num("output_decimals") <= 0 {
		return nil, errors.New("Missing required params for 'limit_order_info': input_decimals and output_decimals must be > 0. Get these from Birdeye. SOL=9, USDC=6, BONK=5.")
	}
	var vals [4]*big.Rat
	for i, k := range []string{"making_amount", "taking_amount", "input_price_usd", "output_price_usd"} {
		v, err := parseDecimal(p.str(k), k)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	making := fromUnits(vals[0], p.num("input_decimals"))
	taking := fromUnits(vals[1], p.num("output_decimals"))
	inPrice, outPrice := vals[2], vals[3]

	makingUSD := new(big.Rat).Mul(making, inPrice)
	takingUSD := new(big.Rat).Mul(taking, outPrice)
	trigger := new(big.Rat)
	if taking.Sign() > 0 {
		trigger.Quo(makingUSD, taking)
	}
	diff := new(big.Rat)
	if outPrice.Sign() > 0 {
		diff.Sub(trigger, outPrice).Quo(diff, outPrice).Mul(diff, big.NewRat(100, 1))
	}
	fill := outPrice.Cmp(trigger) <= 0

	return result{
		"making_amount":            formatDecimal(making),
		"taking_amount":            formatDecimal(taking),
		"making_usd":               formatDecimal(makingUSD),
		"taking_usd_at_current":    formatDecimal(takingUSD),
		"trigger_price_usd":        formatDecimal(trigger),
		"current_output_price_usd": formatDecimal(outPrice),
		"price_difference_percent": formatDecimal(diff),
		"should_fill_now":          fill,
		"message": fmt.Sprintf("Order: sell %s ($%s) for %s tokens. Trigger price: $%s, Current price: $%s (%s%% diff). Will fill now: %t",
			formatDecimal(making), formatDecimal(makingUSD), formatDecimal(taking),
			formatDecimal(trigger), formatDecimal(outPrice), formatDecimal(diff), fill),
	}, nil
}

func parseDecimal(s, what string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("Invalid %s '%s'", what, s)
	}
	return r, nil
}

func usdToTokens(usd, price string) (*big.Rat, error) {
	u, err := parseDecimal(usd, "amount")
	if err != nil {
		return nil, err
	}
	pr, err := parseDecimal(price, "price")
	if err != nil {
		return nil, err
	}
	if pr.Sign() <= 0 {
		return nil, fmt.Errorf("Token price must be positive, got %s", price)
	}
	return new(big.Rat).Quo(u, pr), nil
}

func pow10(d int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
}

// toUnits scales a human amount by 10^decimals, truncating any fraction
// of the smallest unit.
func toUnits(amount *big.Rat, decimals int) string {
	scaled := new(big.Rat).Mul(amount, new(big.Rat).SetInt(pow10(decimals)))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()).String()
}

func fromUnits(units *big.Rat, decimals int) *big.Rat {
	return new(big.Rat).Quo(units, new(big.Rat).SetInt(pow10(decimals)))
}

// formatDecimal renders r without trailing zeros.
func formatDecimal(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(fracDigits)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
