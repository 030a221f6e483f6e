package dflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

var now = time.Unix(1_700_000_000, 0)

func TestScoreMarket(t *testing.T) {
	longRules := strings.Repeat("r", 60)
	tests := []struct {
		name     string
		market   Item
		trades   []Item
		score    string
		rec      string
		warnings []string
	}{
		{
			name:   "kalshi with close time",
			market: Item{"ticker": "KXBTC-25", "closeTime": float64(now.Unix() + 3600)},
			score:  ScoreHigh, rec: Proceed, warnings: []string{},
		},
		{
			name:   "known series with close time",
			market: Item{"seriesTicker": "NFL-2025", "endDate": "2025-02-09"},
			score:  ScoreHigh, rec: Proceed, warnings: []string{},
		},
		{
			name: "healthy unknown market",
			market: Item{
				"volume": float64(50000), "liquidity": float64(9000),
				"createdAt": float64(now.Unix() - 30*86400), "rulesPrimary": longRules,
			},
			score: ScoreHigh, rec: Proceed, warnings: []string{},
		},
		{
			name: "new thin market",
			market: Item{
				"seriesTicker": "MEME", "volume": float64(1234.4), "openInterest": float64(100),
				"createdAt": float64(now.Unix() - 3600),
			},
			trades: []Item{{"createdTime": float64(now.Unix() - 2*86400)}},
			score:  ScoreLow, rec: Avoid,
			warnings: []string{
				"New market (< 24 hours old)",
				"Moderate volume ($1,234)",
				"Low liquidity - may be hard to exit",
				"No trades in 24 hours",
				"Unknown/unverified series",
				"Unclear resolution criteria",
			},
		},
		{
			name: "objective category boost",
			market: Item{
				"category": "Sports", "volume": float64(5000), "liquidity": float64(1000),
				"closeTime": float64(now.Unix() + 86400),
			},
			// 100 -10 -10 -20 +15
			score: ScoreHigh, rec: Proceed,
			warnings: []string{"Moderate volume ($5,000)", "Moderate liquidity", "Unclear resolution criteria"},
		},
		{
			name:   "low volume only",
			market: Item{"volume": float64(500), "liquidity": float64(5000), "rulesPrimary": longRules},
			score:  ScoreHigh, rec: Proceed, warnings: []string{"Low volume ($500)"},
		},
		{
			name:   "caution",
			market: Item{"volume": float64(500), "liquidity": float64(1000)},
			// 100 -25 -10 -20
			score: ScoreMedium, rec: Caution,
			warnings: []string{"Low volume ($500)", "Moderate liquidity", "Unclear resolution criteria"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreMarket(tt.market, tt.trades, now)
			assert.Equal(t, tt.score, s.Score)
			assert.Equal(t, tt.rec, s.Recommendation)
			assert.Equal(t, tt.warnings, s.Warnings)
		})
	}
}

func TestResolutionDate(t *testing.T) {
	assert.Equal(t, "2023-11-14 22:13 UTC", ResolutionDate(float64(now.Unix())))
	assert.Equal(t, "soon", ResolutionDate("soon"))
}

func newPrediction(t *testing.T, h http.Handler) *Prediction {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p := NewPrediction(Filters{MinVolumeUSD: 1000, MinLiquidityUSD: 500})
	p.SetBaseURLs(srv.URL, srv.URL)
	p.now = func() time.Time { return now }
	p.pollInterval = time.Millisecond
	p.maxWait = time.Second
	return p
}

func TestPrediction_ListMarketsFiltersAndAnnotates(t *testing.T) {
	p := newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "volume", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`{"cursor":"next","markets":[
			{"ticker":"A","volume":5000,"openInterest":900,"closeTime":1700003600},
			{"ticker":"B","volume":10,"liquidity":10}
		]}`))
	}))

	l, err := p.ListMarkets(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, l.Count)
	assert.Equal(t, "next", l.Cursor)
	assert.Equal(t, "A", l.Items[0].Str("ticker"))
	assert.Equal(t, "2023-11-14 23:13 UTC", l.Items[0]["resolution_date"])
	assert.NotNil(t, l.Items[0]["safety"])

	l, err = p.WithIncludeRisky(true).ListMarkets(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count)
}

func TestPrediction_MarketLiftsMints(t *testing.T) {
	p := newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/by-mint/M1", r.URL.Path)
		_, _ = w.Write([]byte(`{"ticker":"T","accounts":{"USDC":{"yesMint":"Y","noMint":"N"}}}`))
	}))

	m, err := p.Market(context.Background(), "", "M1")
	require.NoError(t, err)
	assert.Equal(t, "Y", m["yes_mint"])
	assert.Equal(t, "N", m["no_mint"])
	assert.Equal(t, "USDC", m["settlement_mint"])

	_, err = p.Market(context.Background(), "", "")
	assert.Error(t, err)
}

func TestExecuteBlocking_Sync(t *testing.T) {
	p := newPrediction(t, http.NotFoundHandler())
	res := p.ExecuteBlocking(context.Background(),
		Item{"transaction": "dHg=", "outAmount": "42"},
		func(context.Context, string) (string, error) { return "sig1", nil })
	assert.True(t, res.Success)
	assert.Equal(t, "sync", res.ExecutionMode)
	assert.Equal(t, "sig1", res.Signature)
	assert.Equal(t, "42", res.OutAmount)
}

func TestExecuteBlocking_AsyncFollowsNextTransaction(t *testing.T) {
	var polls atomic.Int32
	p := newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order-status", r.URL.Path)
		assert.Equal(t, "req", r.URL.Query().Get("requestId"))
		switch polls.Add(1) {
		case 1:
			_, _ = w.Write([]byte(`{"status":"open","nextTransaction":"bmV4dA=="}`))
		case 2:
			_, _ = w.Write([]byte(`{"status":"pendingClose"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"closed","outAmount":"7","fills":[{"qty":1}]}`))
		}
	}))

	var sent []string
	res := p.ExecuteBlocking(context.Background(),
		Item{"transaction": "dHg=", "executionMode": "async", "requestId": "req"},
		func(_ context.Context, tx string) (string, error) {
			sent = append(sent, tx)
			return "sig" + string(rune('0'+len(sent))), nil
		})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"dHg=", "bmV4dA=="}, sent)
	assert.Equal(t, "sig2", res.Signature)
	assert.Equal(t, "7", res.OutAmount)
}

func TestExecuteBlocking_AsyncFailedAndTimeout(t *testing.T) {
	p := newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"expired"}`))
	}))
	send := func(context.Context, string) (string, error) { return "s", nil }
	res := p.ExecuteBlocking(context.Background(), Item{"transaction": "x", "executionMode": "async"}, send)
	assert.False(t, res.Success)
	assert.Equal(t, "Order expired", res.Error)

	p = newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	}))
	p.maxWait = 20 * time.Millisecond
	res = p.ExecuteBlocking(context.Background(), Item{"transaction": "x", "executionMode": "async"}, send)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "waiting for order completion")

	res = p.ExecuteBlocking(context.Background(), Item{}, send)
	assert.Equal(t, "No transaction in order response", res.Error)
}

func TestSwap_OrderQueryAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("amount") == "0" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"amount must be positive"}`))
			return
		}
		assert.Equal(t, "auto", q.Get("slippageBps"))
		assert.Equal(t, "auto", q.Get("prioritizationFeeLamports"))
		assert.Equal(t, "Sponsor", q.Get("sponsor"))
		assert.False(t, q.Has("feeAccount"), "fee params only with platformFeeBps")
		_, _ = w.Write([]byte(`{"transaction":"dHg=","inAmount":"10","outAmount":20,"otherAmountThreshold":"19","executionMode":"sync","lastValidBlockHeight":99}`))
	}))
	defer srv.Close()

	s := NewSwap()
	s.SetBaseURL(srv.URL)
	o, err := s.Order(context.Background(), OrderRequest{
		InputMint: "A", OutputMint: "B", Amount: 10, UserPublicKey: "U",
		Sponsor: "Sponsor", FeeAccount: "F",
	})
	require.NoError(t, err)
	assert.Equal(t, Amount("10"), o.InAmount)
	assert.Equal(t, Amount("20"), o.OutAmount)
	assert.Equal(t, Amount("19"), o.MinOut())
	assert.Equal(t, uint64(99), o.LastValidBlockHeight)

	_, err = s.Order(context.Background(), OrderRequest{Amount: 0})
	require.Error(t, err)
	assert.Equal(t, "DFlow API error: 400 - amount must be positive", err.Error())
}

func TestPositions(t *testing.T) {
	p := newPrediction(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/outcome_mints", r.URL.Path)
		_, _ = w.Write([]byte(`{"YesMint":{"market":"KX-1","side":"yes"},"NoMint":{"ticker":"KX-1","side":"no"}}`))
	}))

	rpcSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getTokenAccountsByOwner", req.Method)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"result": map[string]any{"value": []any{
				tokenAccount("YesMint", "5000000", 5),
				tokenAccount("NoMint", "0", 0),
				tokenAccount("Other", "1", 1),
			}},
		})
	}))
	defer rpcSrv.Close()

	positions, err := p.Positions(context.Background(), "Wallet", solana.NewRPCClient(rpcSrv.URL, ""))
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, Position{Mint: "YesMint", Ticker: "KX-1", Side: "YES", Amount: "5000000", UIAmount: 5, Decimals: 6}, positions[0])
}

func tokenAccount(mint, amount string, ui float64) map[string]any {
	return map[string]any{
		"pubkey": "acct-" + mint,
		"account": map[string]any{"data": map[string]any{"parsed": map[string]any{"info": map[string]any{
			"mint":        mint,
			"tokenAmount": map[string]any{"amount": amount, "decimals": 6, "uiAmount": ui},
		}}}},
	}
}
