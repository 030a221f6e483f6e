package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pubsub is a signatureSubscribe endpoint. notify, when set, is sent after
// the subscription is acknowledged; otherwise the socket stays silent.
type pubsub struct {
	notify map[string]any

	mu   sync.Mutex
	subs []string
}

func (p *pubsub) serve(t *testing.T) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		var sig string
		_ = json.Unmarshal(req.Params[0], &sig)
		p.mu.Lock()
		p.subs = append(p.subs, sig)
		p.mu.Unlock()

		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 7})
		if p.notify != nil {
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  "signatureNotification",
				"params":  map[string]any{"subscription": 7, "result": map[string]any{"value": p.notify}},
			})
		}
		// Hold the socket open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (p *pubsub) subscriptions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subs...)
}

func TestRelay_ConfirmsThroughSubscription(t *testing.T) {
	ps := &pubsub{notify: map[string]any{"err": nil}}
	f := &fakeCluster{unseenSends: 10}
	relay := newFakeClusterWS(t, f, ps.serve(t))

	kp := NewKeypairFromSeed(seed(1))
	sig, err := relay.SignAndSend(context.Background(), buildTx(t, false, kp.PublicKey()).Encode(), kp)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("sendTransaction"))
	assert.Equal(t, []string{sig}, ps.subscriptions())
}

func TestRelay_SubscriptionReportsTransactionError(t *testing.T) {
	ps := &pubsub{notify: map[string]any{"err": map[string]any{"InstructionError": []any{0, "Custom"}}}}
	f := &fakeCluster{unseenSends: 10}
	relay := newFakeClusterWS(t, f, ps.serve(t))

	kp := NewKeypairFromSeed(seed(1))
	_, err := relay.SignAndSend(context.Background(), buildTx(t, false, kp.PublicKey()).Encode(), kp)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Contains(t, string(txErr.Err), "InstructionError")
	assert.Equal(t, 1, f.count("sendTransaction"))
}

func TestRelay_SilentSubscriptionStillRetriesExpiry(t *testing.T) {
	ps := &pubsub{}
	f := &fakeCluster{unseenSends: 1, height: 2000}
	relay := newFakeClusterWS(t, f, ps.serve(t))

	kp := NewKeypairFromSeed(seed(1))
	_, err := relay.SignAndSend(context.Background(), buildTx(t, false, kp.PublicKey()).Encode(), kp)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("sendTransaction"))
	assert.Equal(t, 2, f.count("getLatestBlockhash"))
}

func TestRelay_UnreachableSocketFallsBackToPolling(t *testing.T) {
	f := &fakeCluster{}
	relay := newFakeClusterWS(t, f, "ws://127.0.0.1:1")

	kp := NewKeypairFromSeed(seed(1))
	_, err := relay.SignAndSend(context.Background(), buildTx(t, false, kp.PublicKey()).Encode(), kp)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("sendTransaction"))
}
