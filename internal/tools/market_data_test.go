package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/birdeye"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/search"
)

func birdeyeServer(t *testing.T, h http.HandlerFunc) *birdeye.Client {
	t.Helper()
	c := birdeye.New("key", "solana", 0)
	c.SetBaseURL(serve(t, h))
	return c
}

func TestSolanaPrice_Summary(t *testing.T) {
	c := birdeyeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/price", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"value":150.5,"priceChange24h":-2.5,"liquidity":1000,"updateHumanTime":"2024-01-01T00:00:00"}}`))
	})
	res := decode(t)(NewSolanaPriceTool(c).Execute(context.Background(), map[string]any{"address": "So1"}))
	require.Equal(t, "success", res["status"], res)
	assert.Equal(t, "Token address: So1\nCurrent price: 150.5\n24h price change: -2.5%\nLiquidity: 1000\nLast updated: 2024-01-01T00:00:00",
		res["result"])
}

func TestSolanaPrice_NoKey(t *testing.T) {
	res := decode(t)(NewSolanaPriceTool(birdeye.New("", "", 0)).Execute(context.Background(), map[string]any{"address": "So1"}))
	assert.Equal(t, "Birdeye API key not configured.", res["message"])
}

func candleItems(n int, start int64) string {
	items := make([]string, n)
	for i := range items {
		p := 10 + math.Sin(float64(i)/5) + float64(i)*0.01
		items[i] = fmt.Sprintf(`{"unix_time":%d,"o":%f,"h":%f,"l":%f,"c":%f,"v":%d}`,
			start+int64(i)*3600, p, p+0.2, p-0.2, p+0.05, 1000+i)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func taClient(t *testing.T, ohlcvStatus int, items string) *TechnicalAnalysisTool {
	t.Helper()
	c := birdeyeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/defi/v3/ohlcv":
			w.WriteHeader(ohlcvStatus)
			_, _ = w.Write([]byte(`{"success":true,"data":{"items":` + items + `}}`))
		case "/defi/token_overview":
			_, _ = w.Write([]byte(`{"success":true,"data":{"symbol":"TKN","name":"Token","decimals":6,"marketCap":5}}`))
		}
	})
	tl := NewTechnicalAnalysisTool(c)
	tl.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return tl
}

func TestTechnicalAnalysis_InvalidTimeframe(t *testing.T) {
	res := decode(t)(taClient(t, 200, "[]").Execute(context.Background(), map[string]any{"address": "A", "timeframe": "3h"}))
	assert.Equal(t, "invalid_timeframe", res["error"])
	assert.Contains(t, res["message"], "Invalid timeframe '3h'")
}

func TestTechnicalAnalysis_StatusMapping(t *testing.T) {
	res := decode(t)(taClient(t, http.StatusNotFound, "[]").Execute(context.Background(), map[string]any{"address": "A"}))
	assert.Equal(t, "token_not_found", res["error"])
	assert.Equal(t, "A", res["address"])

	res = decode(t)(taClient(t, http.StatusUnauthorized, "[]").Execute(context.Background(), map[string]any{"address": "A"}))
	assert.Equal(t, "unauthorized", res["error"])

	res = decode(t)(taClient(t, 200, "[]").Execute(context.Background(), map[string]any{"address": "A"}))
	assert.Equal(t, "no_data", res["error"])
}

func TestTechnicalAnalysis_InsufficientData(t *testing.T) {
	res := decode(t)(taClient(t, 200, candleItems(50, 1_600_000_000)).Execute(context.Background(), map[string]any{"address": "A"}))
	assert.Equal(t, "insufficient_data", res["error"])
	assert.Equal(t, float64(50), res["candles_available"])
	assert.Equal(t, float64(200), res["candles_required"])
}

func TestTechnicalAnalysis_Report(t *testing.T) {
	res := decode(t)(taClient(t, 200, candleItems(250, 1_600_000_000)).Execute(context.Background(), map[string]any{"address": "A", "timeframe": "1h"}))
	require.Equal(t, "success", res["status"], res)

	token := res["token"].(map[string]any)
	assert.Equal(t, "TKN", token["symbol"])
	analysis := res["analysis"].(map[string]any)
	assert.Equal(t, "1h", analysis["timeframe"])
	assert.Equal(t, float64(250), analysis["candles_analyzed"])
	assert.Equal(t, "2020-09-13T12:26:40+00:00", analysis["data_start"])
	for _, k := range []string{"trend", "momentum", "volatility", "volume", "price_vs_indicators"} {
		assert.Contains(t, res, k)
	}
}

func TestRugcheck_Summary(t *testing.T) {
	tl := NewRugcheckTool()
	tl.SetBaseURL(serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/Mint1/report", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"mint":"Mint1","tokenMeta":{"name":"Tok","symbol":""},"fileMeta":{"symbol":"TK"},
			"score":12,"score_normalised":3,"rugged":false,"totalHolders":40,
			"verification":{"jup_verified":true},
			"topHolders":[{"address":"H1","pct":12.345,"insider":false},{"address":"H2","pct":1,"insider":true},
				{"address":"H3","pct":1,"insider":false},{"address":"H4","pct":1,"insider":false}],
			"risks":[],
			"markets":[{"marketType":"raydium","pubkey":"P1"}]}`))
	}))

	res := decode(t)(tl.Execute(context.Background(), map[string]any{"mint": "Mint1"}))
	require.Equal(t, "success", res["status"], res)
	out := res["result"].(string)
	assert.Contains(t, out, "Token Name: Tok\nSymbol: TK\nMint: Mint1\n")
	assert.Contains(t, out, "Score: 12 (normalized: 3)")
	assert.Contains(t, out, "Rugged: False")
	assert.Contains(t, out, "Price: None")
	assert.Contains(t, out, "Verified on Jupiter: True")
	assert.Contains(t, out, "  1. Address: H1 - 12.35% - Insider: False")
	assert.NotContains(t, out, "H4")
	assert.Contains(t, out, "Risks: None detected.")
	assert.True(t, strings.HasSuffix(out, "Markets:\n  - raydium (pubkey: P1)"))
}

func TestRugcheck_APIError(t *testing.T) {
	tl := NewRugcheckTool()
	tl.SetBaseURL(serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	res := decode(t)(tl.Execute(context.Background(), map[string]any{"mint": "M"}))
	assert.Equal(t, "Rugcheck API error: 502", res["message"])
	assert.Equal(t, "upstream down", res["details"])
}

type stubSearch struct {
	out string
	err error
}

func (s stubSearch) Search(context.Context, string) (string, error) { return s.out, s.err }
func (s stubSearch) Model() string                                  { return "sonar" }

func TestSearchInternet(t *testing.T) {
	ctx := context.Background()
	q := map[string]any{"query": "sol price"}

	res := decode(t)(NewSearchInternetTool(stubSearch{}, false).Execute(ctx, q))
	assert.Equal(t, "API key not configured", res["message"])

	res = decode(t)(NewSearchInternetTool(stubSearch{out: "about $150"}, true).Execute(ctx, q))
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "about $150", res["result"])
	assert.Equal(t, "sonar", res["model_used"])

	res = decode(t)(NewSearchInternetTool(stubSearch{err: &search.APIError{Message: "Failed to search: 429", Details: "slow down"}}, true).Execute(ctx, q))
	assert.Equal(t, "Failed to search: 429", res["message"])
	assert.Equal(t, "slow down", res["details"])

	res = decode(t)(NewSearchInternetTool(stubSearch{err: errors.New("boom")}, true).Execute(ctx, q))
	assert.Equal(t, "Error: boom", res["message"])
}
