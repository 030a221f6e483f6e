package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

func quoteServer(t *testing.T, check func(r *http.Request)) *jupiter.Ultra {
	t.Helper()
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path, "a quote must never execute")
		check(r)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"requestId": "q1", "transaction": "AAAA", "inputMint": "So11", "outputMint": "EPjF",
			"inAmount": "1000", "outAmount": "150", "slippageBps": 50, "priceImpact": -0.0123,
			"inUsdValue": 0.15, "outUsdValue": 0.149, "swapType": "aggregator", "gasless": false,
		})
	})
	u := jupiter.NewUltra("key")
	u.SetBaseURL(url)
	return u
}

func TestSolanaUltraQuote_PreviewOnly(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(1))
	payer := solana.NewKeypairFromSeed(seed(2))
	u := quoteServer(t, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, user.PublicKey().String(), q.Get("taker"))
		assert.Equal(t, payer.PublicKey().String(), q.Get("payer"))
		assert.Equal(t, "1000", q.Get("amount"))
	})

	keys := LocalKeys{Secret: secret(1), PayerSecret: secret(2)}
	res := decode(t)(NewSolanaUltraQuoteTool(u, keys, tool.JupiterConfig{}).Execute(context.Background(), swapParams()))
	require.Equal(t, "success", res["status"], res)
	assert.Equal(t, "1000", res["in_amount"])
	assert.Equal(t, "150", res["out_amount"])
	assert.Equal(t, "$0.15", res["in_usd_value"])
	assert.Equal(t, "$0.15", res["out_usd_value"])
	assert.Equal(t, "-0.01%", res["price_impact_pct"])
	assert.EqualValues(t, 50, res["slippage_bps"])
	assert.Equal(t, "Preview only - no transaction executed. Call solana_ultra to execute the swap.", res["message"])
	assert.NotContains(t, res, "transaction")
}

func TestSolanaUltraQuote_Preconditions(t *testing.T) {
	u := jupiter.NewUltra("key")
	res := decode(t)(NewSolanaUltraQuoteTool(u, LocalKeys{}, tool.JupiterConfig{}).Execute(context.Background(), swapParams()))
	assert.Equal(t, "Private key not configured.", res["message"])

	p := swapParams()
	delete(p, "output_mint")
	res = decode(t)(NewSolanaUltraQuoteTool(u, LocalKeys{Secret: secret(1)}, tool.JupiterConfig{}).Execute(context.Background(), p))
	assert.Equal(t, "input_mint and output_mint are required", res["message"])
}

func TestPrivyUltraQuote_UsesDelegatedWalletWithoutSigning(t *testing.T) {
	user := solana.NewKeypairFromSeed(seed(3))
	w, app := newPrivyApp(t, user)
	u := quoteServer(t, func(r *http.Request) {
		assert.Equal(t, user.PublicKey().String(), r.URL.Query().Get("taker"))
		assert.Empty(t, r.URL.Query().Get("payer"))
	})

	p := swapParams()
	p["user_id"] = privyUserID
	res := decode(t)(NewPrivyUltraQuoteTool(u, w, LocalKeys{}, tool.JupiterConfig{}).Execute(context.Background(), p))
	require.Equal(t, "success", res["status"], res)
	assert.Equal(t, "Preview only - no transaction executed. Call privy_ultra to execute the swap.", res["message"])
	assert.Zero(t, app.signs.Load())
}

func TestUltraQuote_MissingUSDValuesAreNull(t *testing.T) {
	res := quoteFields(&jupiter.Order{InAmount: "1"}, "solana_ultra")
	assert.Nil(t, res["in_usd_value"])
	assert.Nil(t, res["out_usd_value"])
	assert.Equal(t, "", res["price_impact_pct"])
}
