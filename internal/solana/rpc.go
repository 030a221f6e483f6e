package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

// TokenProgramID is the SPL Token program.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// ErrBlockhashExpired means the transaction can no longer land and must be
// re-signed against a fresh blockhash.
var ErrBlockhashExpired = errors.New("blockhash expired")

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Is matches ErrBlockhashExpired for the cluster's expiry messages.
func (e *RPCError) Is(target error) bool {
	if target != ErrBlockhashExpired {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "blockhash not found") || strings.Contains(msg, "block height exceeded")
}

// RPCClient talks JSON-RPC 2.0 to a Solana cluster.
type RPCClient struct {
	http       *httpx.Client
	commitment string
}

// NewRPCClient creates a client for endpoint. commitment defaults to "confirmed".
func NewRPCClient(endpoint, commitment string) *RPCClient {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &RPCClient{
		http:       httpx.New(endpoint, 30*time.Second),
		commitment: commitment,
	}
}

// Commitment returns the configured commitment level.
func (c *RPCClient) Commitment() string { return c.commitment }

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	}
	var env struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := c.http.Post(ctx, "", nil, req, &env); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: %w", method, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// BlockhashInfo is a blockhash with the last block height it is valid for.
type BlockhashInfo struct {
	Blockhash            Hash
	LastValidBlockHeight uint64
}

// LatestBlockhash returns the newest blockhash at the client commitment.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (BlockhashInfo, error) {
	var res struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": c.commitment}}, &res); err != nil {
		return BlockhashInfo{}, err
	}
	h, err := ParseHash(res.Value.Blockhash)
	if err != nil {
		return BlockhashInfo{}, err
	}
	return BlockhashInfo{Blockhash: h, LastValidBlockHeight: res.Value.LastValidBlockHeight}, nil
}

// BlockHeight returns the current block height.
func (c *RPCClient) BlockHeight(ctx context.Context) (uint64, error) {
	var h uint64
	err := c.call(ctx, "getBlockHeight", []any{map[string]any{"commitment": c.commitment}}, &h)
	return h, err
}

// SendOptions mirrors sendTransaction's config object.
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    int
}

// SendTransaction submits wire bytes and returns the signature.
func (c *RPCClient) SendTransaction(ctx context.Context, raw []byte, opts SendOptions) (string, error) {
	cfg := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       opts.SkipPreflight,
		"preflightCommitment": c.commitment,
	}
	if opts.MaxRetries > 0 {
		cfg["maxRetries"] = opts.MaxRetries
	}
	var sig string
	err := c.call(ctx, "sendTransaction", []any{base64.StdEncoding.EncodeToString(raw), cfg}, &sig)
	return sig, err
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports a non-null transaction error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// SignatureStatuses returns one entry per signature; nil for unknown ones.
func (c *RPCClient) SignatureStatuses(ctx context.Context, sigs ...string) ([]*SignatureStatus, error) {
	var res struct {
		Value []*SignatureStatus `json:"value"`
	}
	err := c.call(ctx, "getSignatureStatuses", []any{sigs, map[string]any{"searchTransactionHistory": false}}, &res)
	return res.Value, err
}

// TokenAccount is a parsed SPL token account balance.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Amount   string
	Decimals int
	UIAmount float64
}

// TokenAccountsByOwner lists owner's accounts under programID (jsonParsed).
func (c *RPCClient) TokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error) {
	if programID == "" {
		programID = TokenProgramID
	}
	var raw json.RawMessage
	params := []any{
		owner,
		map[string]any{"programId": programID},
		map[string]any{"encoding": "jsonParsed", "commitment": c.commitment},
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &raw); err != nil {
		return nil, err
	}

	var out []TokenAccount
	gjson.GetBytes(raw, "value").ForEach(func(_, v gjson.Result) bool {
		info := v.Get("account.data.parsed.info")
		out = append(out, TokenAccount{
			Pubkey:   v.Get("pubkey").String(),
			Mint:     info.Get("mint").String(),
			Amount:   info.Get("tokenAmount.amount").String(),
			Decimals: int(info.Get("tokenAmount.decimals").Int()),
			UIAmount: info.Get("tokenAmount.uiAmount").Float(),
		})
		return true
	})
	return out, nil
}
