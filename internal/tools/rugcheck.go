package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const rugcheckBaseURL = "https://api.rugcheck.xyz/v1"

// RugcheckTool fetches a token risk report from rugcheck.xyz.
type RugcheckTool struct {
	api *httpx.Client
}

func NewRugcheckTool() *RugcheckTool {
	return &RugcheckTool{api: httpx.New(rugcheckBaseURL, 15*time.Second)}
}

// SetBaseURL points the tool at another server.
func (t *RugcheckTool) SetBaseURL(u string) { t.api.SetBaseURL(u) }

func (t *RugcheckTool) Name() string { return string(ToolRugcheck) }
func (t *RugcheckTool) Description() string {
	return "Check Solana token risk and liquidity using rugcheck.xyz."
}
func (t *RugcheckTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"mint": {
				"type": "string",
				"description": "The SPL token mint address to check."
			}
		},
		"required": ["mint"],
		"additionalProperties": false
	}`)
}

func (t *RugcheckTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	mint := stringParam(params, "mint")
	if mint == "" {
		return failure("mint is required")
	}

	resp, err := t.api.Do(ctx, http.MethodGet, "/tokens/"+url.PathEscape(mint)+"/report", nil, nil, nil)
	if err != nil {
		slog.Error("rugcheck request failed", "mint", mint, "err", err)
		return failureErr(err)
	}
	if resp.Status != http.StatusOK {
		slog.Error("rugcheck api error", "status", resp.Status)
		return failure(fmt.Sprintf("Rugcheck API error: %d", resp.Status), result{"details": string(resp.Body)})
	}
	if !gjson.ValidBytes(resp.Body) {
		return failure("Rugcheck returned invalid JSON")
	}
	return success(result{"result": summarizeRugcheck(gjson.ParseBytes(resp.Body))})
}

func summarizeRugcheck(d gjson.Result) string {
	meta := func(field string) string {
		if v := d.Get("tokenMeta." + field); v.String() != "" {
			return v.String()
		}
		return orNone(d.Get("fileMeta." + field))
	}

	var b strings.Builder
	line := func(format string, a ...any) {
		fmt.Fprintf(&b, format, a...)
		b.WriteByte('\n')
	}
	line("Token Name: %s", meta("name"))
	line("Symbol: %s", meta("symbol"))
	line("Mint: %s", orNone(d.Get("mint")))
	line("Score: %s (normalized: %s)", orNone(d.Get("score")), orNone(d.Get("score_normalised")))
	line("Rugged: %s", orNone(d.Get("rugged")))
	line("Total Holders: %s", orNone(d.Get("totalHolders")))
	line("Total Market Liquidity (USD): %s", orNone(d.Get("totalMarketLiquidity")))
	line("Price: %s", orNone(d.Get("price")))
	line("Verified on Jupiter: %s", orNone(d.Get("verification.jup_verified")))
	line("Creator: %s", orNone(d.Get("creator")))

	line("Top 3 Holders:")
	for i, h := range d.Get("topHolders").Array() {
		if i == 3 {
			break
		}
		line("  %d. Address: %s - %.2f%% - Insider: %s",
			i+1, h.Get("address").String(), h.Get("pct").Float(), orNone(h.Get("insider")))
	}

	if risks := d.Get("risks").Array(); len(risks) > 0 {
		line("Risks:")
		for _, r := range risks {
			line("  - %s", r.Raw)
		}
	} else {
		line("Risks: None detected.")
	}

	if markets := d.Get("markets").Array(); len(markets) > 0 {
		line("Markets:")
		for _, m := range markets {
			line("  - %s (pubkey: %s)", orNone(m.Get("marketType")), orNone(m.Get("pubkey")))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// orNone renders a missing JSON value as "None".
func orNone(v gjson.Result) string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return "None"
	case v.Type == gjson.True:
		return "True"
	case v.Type == gjson.False:
		return "False"
	}
	return v.String()
}
