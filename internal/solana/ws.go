package solana

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// TransactionError is an on-chain execution failure for a landed transaction.
type TransactionError struct {
	Signature string
	Err       json.RawMessage
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, string(e.Err))
}

// waitSignatureWS subscribes to sig on the cluster's PubSub endpoint and
// blocks until the notification arrives or ctx ends.
func waitSignatureWS(ctx context.Context, wsURL, sig, commitment string) error {
	dialer := websocket.Dialer{HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sub := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "signatureSubscribe",
		"params":  []any{sig, map[string]any{"commitment": commitment}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("signatureSubscribe: %w", err)
	}

	for {
		var msg struct {
			Method string    `json:"method"`
			Error  *RPCError `json:"error"`
			Params struct {
				Result struct {
					Value struct {
						Err json.RawMessage `json:"err"`
					} `json:"value"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read signature notification: %w", err)
		}
		if msg.Error != nil {
			return msg.Error
		}
		if msg.Method != "signatureNotification" {
			continue
		}
		if e := msg.Params.Result.Value.Err; len(e) > 0 && string(e) != "null" {
			return &TransactionError{Signature: sig, Err: e}
		}
		return nil
	}
}
