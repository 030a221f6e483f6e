package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/birdeye"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/indicators"
)

const isoSeconds = "2006-01-02T15:04:05-07:00"

// TechnicalAnalysisTool fetches candles from Birdeye and reports the latest
// trend, momentum, volatility and volume indicators.
type TechnicalAnalysisTool struct {
	client *birdeye.Client
	now    func() time.Time
}

func NewTechnicalAnalysisTool(c *birdeye.Client) *TechnicalAnalysisTool {
	return &TechnicalAnalysisTool{client: c, now: time.Now}
}

func (t *TechnicalAnalysisTool) Name() string { return string(ToolTechnicalAnalysis) }
func (t *TechnicalAnalysisTool) Description() string {
	return "Run technical analysis on a Solana token: EMA/SMA, MACD, ADX, RSI, Stochastic, CCI, " +
		"Williams %R, ROC, MFI, Bollinger and Keltner bands, ATR, OBV and VWAP from Birdeye OHLCV candles."
}
func (t *TechnicalAnalysisTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"address": {
				"type": "string",
				"description": "Token mint address"
			},
			"timeframe": {
				"type": "string",
				"enum": ["1m", "5m", "15m", "30m", "1h", "2h", "4h", "8h", "1d"],
				"description": "Candle interval",
				"default": "4h"
			}
		},
		"required": ["address", "timeframe"],
		"additionalProperties": false
	}`)
}

func taError(code, msg string, extra ...result) (string, error) {
	return failure(msg, append([]result{{"error": code}}, extra...)...)
}

func (t *TechnicalAnalysisTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	address := stringParam(params, "address")
	name := stringParam(params, "timeframe")
	if name == "" {
		name = "4h"
	}
	tf, ok := indicators.LookupTimeframe(name)
	if !ok {
		return taError("invalid_timeframe",
			fmt.Sprintf("Invalid timeframe '%s'. Valid options: %v", name, indicators.TimeframeNames()))
	}
	if address == "" {
		return taError("internal_error", "address is required")
	}

	now := t.now().Unix()
	from := now - int64(indicators.RequestCandles)*int64(tf.Interval/time.Second)

	var (
		candles  []byte
		status   int
		overview gjson.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := t.client.Raw(gctx, "ohlcv_v3", map[string]any{
			"address":   address,
			"type":      tf.BirdeyeType,
			"time_from": strconv.FormatInt(from, 10),
			"time_to":   strconv.FormatInt(now, 10),
			"currency":  "usd",
		})
		if err != nil {
			return err
		}
		candles, status = resp.Body, resp.Status
		return nil
	})
	g.Go(func() error {
		resp, err := t.client.Raw(gctx, "token_overview", map[string]any{"address": address})
		switch {
		case err != nil:
			slog.Warn("technical_analysis: token overview failed", "err", err)
		case !resp.OK():
			slog.Warn("technical_analysis: token overview failed", "status", resp.Status)
		case gjson.GetBytes(resp.Body, "success").Bool():
			overview = gjson.GetBytes(resp.Body, "data")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, birdeye.ErrNoAPIKey) {
			return taError("unauthorized", "Invalid or missing Birdeye API key")
		}
		slog.Error("technical_analysis: ohlcv request failed", "err", err)
		return taError("internal_error", err.Error())
	}

	switch {
	case status == http.StatusUnauthorized:
		return taError("unauthorized", "Invalid or missing Birdeye API key")
	case status == http.StatusNotFound:
		return taError("token_not_found", "Token not found", result{"address": address})
	case status < 200 || status >= 300:
		return taError("api_error", fmt.Sprintf("API error: %d", status))
	}

	body := gjson.ParseBytes(candles)
	if !body.Get("success").Bool() {
		msg := body.Get("message").String()
		if msg == "" {
			msg = "OHLCV request failed"
		}
		return taError("api_error", msg)
	}
	cs := indicators.ParseCandles(body.Get("data.items"))
	if len(cs) == 0 {
		return taError("no_data", "No OHLCV data available for this token")
	}
	if len(cs) < indicators.MinCandles {
		return taError("insufficient_data",
			fmt.Sprintf("Insufficient data: %d candles available, %d required for reliable technical analysis",
				len(cs), indicators.MinCandles),
			result{"candles_available": len(cs), "candles_required": indicators.MinCandles})
	}

	report, err := indicators.Compute(cs)
	if err != nil {
		return taError("internal_error", err.Error())
	}

	token := result{"address": address, "symbol": nil, "name": nil, "decimals": nil}
	current := result{"price": cs[len(cs)-1].Close}
	if overview.Exists() {
		token["symbol"] = overview.Get("symbol").Value()
		token["name"] = overview.Get("name").Value()
		token["decimals"] = overview.Get("decimals").Value()
		current["price_24h_ago"] = overview.Get("history24hPrice").Value()
		current["price_change_24h_percent"] = overview.Get("priceChange24hPercent").Value()
		current["market_cap"] = overview.Get("marketCap").Value()
		current["liquidity"] = overview.Get("liquidity").Value()
	}

	return success(result{
		"token": token,
		"analysis": result{
			"timeframe":        tf.Name,
			"candles_analyzed": len(cs),
			"data_start":       time.Unix(cs[0].Time, 0).UTC().Format(isoSeconds),
			"data_end":         time.Unix(cs[len(cs)-1].Time, 0).UTC().Format(isoSeconds),
		},
		"current":             current,
		"trend":               report.Trend,
		"momentum":            report.Momentum,
		"volatility":          report.Volatility,
		"volume":              report.Volume,
		"price_vs_indicators": report.PriceVsIndicators,
	})
}
