package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/dflow"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

func dflowSwapServer(t *testing.T, txB64 string, check func(q url.Values)) *dflow.Swap {
	t.Helper()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		check(r.URL.Query())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transaction": txB64, "inAmount": "1000", "outAmount": 150, "otherAmountThreshold": "140",
			"inputMint": "So11", "outputMint": "EPjF", "executionMode": "sync", "priceImpactPct": "0.01",
		})
	})
	s := dflow.NewSwap()
	s.SetBaseURL(srv)
	return s
}

func TestSolanaDFlowSwap_SponsoredSwapLands(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(1))
	payer := solana.NewKeypairFromSeed(seed(2))
	s := dflowSwapServer(t, unsignedTx(t, payer.PublicKey(), user.PublicKey()), func(q url.Values) {
		assert.Equal(t, user.PublicKey().String(), q.Get("userPublicKey"))
		assert.Equal(t, payer.PublicKey().String(), q.Get("sponsor"))
		assert.Equal(t, "auto", q.Get("slippageBps"))
		assert.Equal(t, "1000", q.Get("amount"))
	})
	c, relay := newCluster(t)

	keys := LocalKeys{Secret: secret(1), PayerSecret: secret(2)}
	res := decode(t)(NewSolanaDFlowSwapTool(s, relay, keys, tool.DFlowConfig{}).Execute(context.Background(), swapParams()))
	require.Equal(t, "success", res["status"], res)
	assert.Equal(t, "150", res["output_amount"])
	assert.Equal(t, "140", res["min_output_amount"])
	assert.Equal(t, "sync", res["execution_mode"])

	sent := c.landed()
	require.Len(t, sent, 1)
	assert.Equal(t, sent[0].ID(), res["signature"])
	msg := sent[0].Message.Bytes()
	assert.True(t, solana.Verify(payer.PublicKey(), msg, sent[0].Signatures[0]))
	assert.True(t, solana.Verify(user.PublicKey(), msg, sent[0].Signatures[1]))
}

func TestSolanaDFlowSwap_Preconditions(t *testing.T) {
	ctx := context.Background()
	_, relay := newCluster(t)

	res := decode(t)(NewSolanaDFlowSwapTool(dflow.NewSwap(), relay, LocalKeys{}, tool.DFlowConfig{}).Execute(ctx, swapParams()))
	assert.Equal(t, "Private key not configured.", res["message"])

	res = decode(t)(NewSolanaDFlowSwapTool(dflow.NewSwap(), nil, LocalKeys{Secret: secret(1)}, tool.DFlowConfig{}).Execute(ctx, swapParams()))
	assert.Equal(t, errRPCURL.Error(), res["message"])
}

func TestSolanaDFlowSwap_ExplicitSlippage(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(1))
	s := dflowSwapServer(t, unsignedTx(t, user.PublicKey()), func(q url.Values) {
		assert.Equal(t, "75", q.Get("slippageBps"))
		assert.Empty(t, q.Get("sponsor"))
	})
	_, relay := newCluster(t)

	p := swapParams()
	p["slippage_bps"] = float64(75)
	res := decode(t)(NewSolanaDFlowSwapTool(s, relay, LocalKeys{Secret: secret(1)}, tool.DFlowConfig{}).Execute(context.Background(), p))
	assert.Equal(t, "success", res["status"], res)
}

func TestPrivyDFlowSwap_SignsThroughPrivy(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(4))
	w, app := newPrivyApp(t, user)
	s := dflowSwapServer(t, unsignedTx(t, user.PublicKey()), func(q url.Values) {
		assert.Equal(t, user.PublicKey().String(), q.Get("userPublicKey"))
	})
	c, relay := newCluster(t)

	p := swapParams()
	p["user_id"] = privyUserID
	res := decode(t)(NewPrivyDFlowSwapTool(s, relay, w, LocalKeys{}, tool.DFlowConfig{}).Execute(context.Background(), p))
	require.Equal(t, "success", res["status"], res)
	assert.EqualValues(t, 1, app.signs.Load())

	sent := c.landed()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].FullySigned())
	assert.True(t, solana.Verify(user.PublicKey(), sent[0].Message.Bytes(), sent[0].Signatures[0]))
}

// riskyMarket scores AVOID: unknown series, thin volume, no liquidity and
// no resolution rules.
const riskyMarket = `{"ticker":"MEME-1","seriesTicker":"MEME","volume":10,"liquidity":0,
	"accounts":{"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v":{"yesMint":"YesMint1","noMint":"NoMint1"}}}`

type predictionAPI struct {
	requests atomic.Int32
	orders   atomic.Int32
	query    atomic.Pointer[url.Values]
}

func newPredictionAPI(t *testing.T, txB64 string) (*dflow.Prediction, *predictionAPI) {
	t.Helper()
	api := &predictionAPI{}
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		switch r.URL.Path {
		case "/market/MEME-1":
			_, _ = w.Write([]byte(riskyMarket))
		case "/order":
			api.orders.Add(1)
			q := r.URL.Query()
			api.query.Store(&q)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"transaction": txB64, "executionMode": "sync", "inAmount": q.Get("amount"), "outAmount": "1000000",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	c := dflow.NewPrediction(dflow.Filters{})
	c.SetBaseURLs(srv, srv)
	return c, api
}

func buyParams(amount float64) map[string]any {
	return map[string]any{"action": "buy", "market_id": "MEME-1", "side": "YES", "amount": amount}
}

func TestDFlowPrediction_RefusesAvoidMarket(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(1))
	c, api := newPredictionAPI(t, unsignedTx(t, user.PublicKey()))
	_, relay := newCluster(t)
	tl := NewDFlowPredictionTool(c, relay, LocalKeys{Secret: secret(1)}, tool.DFlowConfig{})

	res := decode(t)(tl.Execute(context.Background(), buyParams(1)))
	assert.Equal(t, "error", res["status"])
	assert.Equal(t, "Market safety score is LOW. Use include_risky=true to proceed.", res["message"])
	assert.Equal(t, "AVOID", res["safety"].(map[string]any)["recommendation"])
	assert.Zero(t, api.orders.Load())
}

func TestDFlowPrediction_BuyScalesUSDC(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(1))
	c, api := newPredictionAPI(t, unsignedTx(t, user.PublicKey()))
	cl, relay := newCluster(t)
	tl := NewDFlowPredictionTool(c, relay, LocalKeys{Secret: secret(1)}, tool.DFlowConfig{})

	p := buyParams(0.29)
	p["include_risky"] = true
	res := decode(t)(tl.Execute(context.Background(), p))
	require.Equal(t, "success", res["status"], res)
	assert.Equal(t, "0.29 USDC", res["amount_in"])
	assert.Equal(t, "1000000", res["tokens_received"])

	q := api.query.Load()
	require.NotNil(t, q)
	assert.Equal(t, "290000", q.Get("amount"))
	assert.Equal(t, dflow.USDCMint, q.Get("inputMint"))
	assert.Equal(t, "YesMint1", q.Get("outputMint"))
	assert.Equal(t, user.PublicKey().String(), q.Get("userPublicKey"))
	require.Len(t, cl.landed(), 1)
}

func TestDFlowPrediction_PositionsNeedRPC(t *testing.T) {
	c, api := newPredictionAPI(t, "")
	tl := NewDFlowPredictionTool(c, nil, LocalKeys{Secret: secret(1)}, tool.DFlowConfig{})

	res := decode(t)(tl.Execute(context.Background(), map[string]any{"action": "positions"}))
	assert.Equal(t, "rpc_url must be configured to query positions", res["message"])
	assert.Zero(t, api.requests.Load())
}

func TestPrivyDFlowPrediction_RequiresUserForTrading(t *testing.T) {
	c, api := newPredictionAPI(t, "")
	w, app := newPrivyApp(t, solana.NewKeypairFromSeed(seed(1)))
	_, relay := newCluster(t)
	tl := NewPrivyDFlowPredictionTool(c, relay, w, LocalKeys{}, tool.DFlowConfig{})

	res := decode(t)(tl.Execute(context.Background(), buyParams(1)))
	assert.Equal(t, "privy_user_id is required for buy action", res["message"])
	res = decode(t)(tl.Execute(context.Background(), map[string]any{"action": "positions"}))
	assert.Equal(t, "privy_user_id is required for positions action", res["message"])

	assert.Zero(t, api.requests.Load())
	assert.Zero(t, app.requests.Load())
}
