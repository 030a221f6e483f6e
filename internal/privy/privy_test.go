package privy

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

func newAuthKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, "wallet-auth:" + base64.StdEncoding.EncodeToString(der)
}

func TestParseAuthorizationKey_Formats(t *testing.T) {
	key, pkcs8 := newAuthKey(t)

	got, err := ParseAuthorizationKey(pkcs8)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	sec1, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	got, err = ParseAuthorizationKey(base64.StdEncoding.EncodeToString(sec1))
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	_, err = ParseAuthorizationKey("wallet-auth:!!!")
	assert.Error(t, err)
}

func TestCanonicalJSON_SortedCompactUnescaped(t *testing.T) {
	out, err := canonicalJSON(map[string]any{
		"b":   1,
		"a":   map[string]any{"z": "<x>", "y": true},
		"url": "https://api.privy.io/v1/wallets/w&1/rpc",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":true,"z":"<x>"},"b":1,"url":"https://api.privy.io/v1/wallets/w&1/rpc"}`, string(out))
}

func TestAuthorizationSignature_Verifies(t *testing.T) {
	key, _ := newAuthKey(t)
	body := map[string]any{"method": "signTransaction"}

	sigB64, err := authorizationSignature(key, "POST", "https://api.privy.io/v1/wallets/w1/rpc", "app", body)
	require.NoError(t, err)

	payload, err := signaturePayload("POST", "https://api.privy.io/v1/wallets/w1/rpc", "app", body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), `{"body":{"method":"signTransaction"},"headers":{"privy-app-id":"app"}`))

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	digest := sha256.Sum256(payload)
	assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], sig))
}

func TestFindDelegatedWallet(t *testing.T) {
	tests := []struct {
		name     string
		accounts []LinkedAccount
		want     DelegatedWallet
		found    bool
	}{
		{
			name: "delegated embedded wins",
			accounts: []LinkedAccount{
				{ID: "w-api", Type: "wallet", ChainType: "solana", Address: "Api111"},
				{ID: "w-emb", ConnectorType: "embedded", Delegated: true, PublicKey: "Emb111"},
			},
			want:  DelegatedWallet{WalletID: "w-emb", PublicKey: "Emb111"},
			found: true,
		},
		{
			name: "api-created solana wallet",
			accounts: []LinkedAccount{
				{ID: "w-emb", ConnectorType: "embedded", Delegated: false, Address: "Emb111"},
				{ID: "w-api", Type: "wallet", ChainType: "solana", Address: "Api111"},
			},
			want:  DelegatedWallet{WalletID: "w-api", PublicKey: "Api111"},
			found: true,
		},
		{
			name:     "solana embedded type",
			accounts: []LinkedAccount{{ID: "w", Type: "solana_embedded_wallet", Address: "S111"}},
			want:     DelegatedWallet{WalletID: "w", PublicKey: "S111"},
			found:    true,
		},
		{
			name:     "none",
			accounts: []LinkedAccount{{Type: "telegram"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindDelegatedWallet(tt.accounts)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddedWallets(t *testing.T) {
	ws := EmbeddedWallets([]LinkedAccount{
		{Type: "telegram"},
		{ID: "w1", Type: "wallet", ConnectorType: "embedded", ChainType: "solana", Address: "A", Delegated: true},
		{ID: "w2", Type: "solana_embedded_wallet", PublicKey: "B"},
	})
	require.Len(t, ws, 2)
	assert.Equal(t, WalletInfo{WalletID: "w1", Address: "A", ChainType: "solana", Delegated: true}, ws[0])
	assert.Equal(t, "solana_embedded_wallet", ws[1].ChainType)
}

func TestClient_FindUserByTelegram_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/telegram/telegram_user_id", r.URL.Path)
		assert.Equal(t, "app", r.Header.Get("privy-app-id"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient("app", "secret", "")
	require.NoError(t, err)
	c.SetBaseURLs(srv.URL, srv.URL)

	_, err = c.FindUserByTelegram(context.Background(), "42")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_CreateWalletBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = nil
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"w1","address":"Addr","chain_type":"solana"}`))
	}))
	defer srv.Close()

	c, err := NewClient("app", "secret", "")
	require.NoError(t, err)
	c.SetBaseURLs(srv.URL, srv.URL)

	w, err := c.CreateWallet(context.Background(), "did:privy:u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "solana", got["chain_type"])
	assert.Equal(t, map[string]any{"user_id": "did:privy:u1"}, got["owner"])

	_, err = c.CreateWallet(context.Background(), "did:privy:u1", "solana", "quorum-1")
	require.NoError(t, err)
	assert.Equal(t, "quorum-1", got["owner_id"])
	assert.NotContains(t, got, "owner")
}

func TestWalletSigner_SignsViaRPC(t *testing.T) {
	key, signingKey := newAuthKey(t)
	wallet := solana.NewKeypairFromSeed([]byte(strings.Repeat("w", 32)))
	payer := solana.NewKeypairFromSeed([]byte(strings.Repeat("p", 32)))

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/wallets/wid/rpc", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("privy-idempotency-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "signTransaction", body["method"])
		assert.Equal(t, SolanaMainnetCAIP2, body["caip2"])

		payload, err := signaturePayload("POST", srvURL+"/v1/wallets/wid/rpc", "app", body)
		require.NoError(t, err)
		sig, _ := base64.StdEncoding.DecodeString(r.Header.Get("privy-authorization-signature"))
		digest := sha256.Sum256(payload)
		assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], sig), "authorization signature must verify")

		params := body["params"].(map[string]any)
		tx, err := solana.DecodeTransaction(params["transaction"].(string))
		require.NoError(t, err)
		require.NoError(t, wallet.SignTransaction(r.Context(), tx))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method": "signTransaction",
			"data":   map[string]any{"signed_transaction": tx.Encode(), "encoding": "base64"},
		})
	}))
	defer srv.Close()
	srvURL = srv.URL

	c, err := NewClient("app", "secret", signingKey)
	require.NoError(t, err)
	c.SetBaseURLs(srv.URL, srv.URL)

	signer, err := NewWalletSigner(c, DelegatedWallet{WalletID: "wid", PublicKey: wallet.PublicKey().String()})
	require.NoError(t, err)

	tx := testTransaction(payer.PublicKey(), wallet.PublicKey())
	require.NoError(t, solana.SignAll(context.Background(), tx, payer, signer))
	assert.True(t, tx.FullySigned())
	assert.True(t, solana.Verify(wallet.PublicKey(), tx.Message.Bytes(), tx.Signatures[1]))
	assert.True(t, solana.Verify(payer.PublicKey(), tx.Message.Bytes(), tx.Signatures[0]))
}

// testTransaction builds a minimal legacy transaction with the given signers.
func testTransaction(signers ...solana.PublicKey) *solana.Transaction {
	var raw []byte
	raw = append(raw, byte(len(signers)))
	raw = append(raw, make([]byte, 64*len(signers))...)
	raw = append(raw, byte(len(signers)), 0, 1)
	raw = append(raw, byte(len(signers)+1))
	for _, s := range signers {
		raw = append(raw, s[:]...)
	}
	raw = append(raw, make([]byte, 32)...) // program id
	raw = append(raw, make([]byte, 32)...) // blockhash
	raw = append(raw, 1, byte(len(signers)), 0, 0)
	tx, err := solana.ParseTransaction(raw)
	if err != nil {
		panic(err)
	}
	return tx
}
