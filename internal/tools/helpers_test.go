package tools

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

// decode returns a func that takes a tool's (result, error) pair directly:
// decode(t)(tool.Execute(ctx, params)).
func decode(t *testing.T) func(string, error) map[string]any {
	t.Helper()
	return func(out string, err error) map[string]any {
		t.Helper()
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &m), out)
		return m
	}
}

func seed(b byte) []byte {
	s := make([]byte, 32)
	s[0] = b
	return s
}

// secret returns the base58 seed of a deterministic test keypair.
func secret(b byte) string { return base58.Encode(seed(b)) }

// unsignedTx builds a one-instruction transaction whose required signers
// are signers, in order.
func unsignedTx(t *testing.T, signers ...solana.PublicKey) string {
	t.Helper()
	var raw []byte
	raw = append(raw, byte(len(signers)))
	raw = append(raw, make([]byte, 64*len(signers))...)
	raw = append(raw, byte(len(signers)), 0, 1)
	raw = append(raw, byte(len(signers)+1))
	for _, s := range signers {
		raw = append(raw, s[:]...)
	}
	raw = append(raw, make([]byte, 32)...)
	raw = append(raw, make([]byte, 32)...)
	raw = append(raw, 1, byte(len(signers)), 0, 0)
	tx, err := solana.ParseTransaction(raw)
	require.NoError(t, err)
	return tx.Encode()
}

// cluster is a minimal JSON-RPC endpoint that accepts every transaction.
type cluster struct {
	mu   sync.Mutex
	sent []*solana.Transaction
}

func newCluster(t *testing.T) (*cluster, *solana.Relay) {
	t.Helper()
	c := &cluster{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reply := func(result any) {
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
		}
		switch req.Method {
		case "getLatestBlockhash":
			h := make([]byte, 32)
			h[0] = 7
			reply(map[string]any{"value": map[string]any{"blockhash": base58.Encode(h), "lastValidBlockHeight": 100}})
		case "sendTransaction":
			var b64 string
			require.NoError(t, json.Unmarshal(req.Params[0], &b64))
			tx, err := solana.DecodeTransaction(b64)
			require.NoError(t, err)
			c.mu.Lock()
			c.sent = append(c.sent, tx)
			c.mu.Unlock()
			reply(tx.ID())
		case "getSignatureStatuses":
			reply(map[string]any{"value": []any{map[string]any{"slot": 1, "confirmationStatus": "confirmed", "err": nil}}})
		case "getBlockHeight":
			reply(1)
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
	}))
	t.Cleanup(srv.Close)
	relay := solana.NewRelay(solana.NewRPCClient(srv.URL, "confirmed"), solana.RelayOptions{
		ConfirmTimeout: 2 * time.Second,
		PollInterval:   10 * time.Millisecond,
	})
	return c, relay
}

func (c *cluster) landed() []*solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*solana.Transaction(nil), c.sent...)
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

const privyUserID = "did:privy:1"

// privyApp fakes the Privy API for one user whose delegated wallet is
// backed by a local keypair. Every request is counted; inspect, when set,
// sees each transaction before the wallet signs it.
type privyApp struct {
	requests atomic.Int32
	signs    atomic.Int32
	inspect  func(tx *solana.Transaction)
}

func newPrivyApp(t *testing.T, user *solana.Keypair) (*PrivyWallets, *privyApp) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	app := &privyApp{}
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		app.requests.Add(1)
		switch r.URL.Path {
		case "/api/v1/users/" + privyUserID:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": privyUserID,
				"linked_accounts": []any{map[string]any{
					"type": "wallet", "id": "w1", "address": user.PublicKey().String(),
					"chain_type": "solana", "connector_type": "embedded", "delegated": true,
				}},
			})
		case "/v1/wallets/w1/rpc":
			var body struct {
				Params struct {
					Transaction string `json:"transaction"`
				} `json:"params"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			tx, err := solana.DecodeTransaction(body.Params.Transaction)
			require.NoError(t, err)
			if app.inspect != nil {
				app.inspect(tx)
			}
			require.NoError(t, user.SignTransaction(r.Context(), tx))
			app.signs.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"method": "signTransaction",
				"data":   map[string]any{"signed_transaction": tx.Encode(), "encoding": "base64"},
			})
		default:
			t.Errorf("unexpected privy path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	wallets := NewPrivyWallets(tool.PrivyConfig{
		AppID:      "app",
		AppSecret:  "secret",
		SigningKey: "wallet-auth:" + base64.StdEncoding.EncodeToString(der),
	})
	wallets.SetBaseURLs(url, url)
	return wallets, app
}
