// Package privy wraps the Privy server API: user and wallet management and
// remote transaction signing for delegated embedded wallets.
package privy

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
)

const (
	DefaultAPIURL  = "https://api.privy.io"
	DefaultAuthURL = "https://auth.privy.io"

	// SolanaMainnetCAIP2 identifies Solana mainnet in wallet RPC calls.
	SolanaMainnetCAIP2 = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
)

// ErrNotFound is returned by lookups that got a 404.
var ErrNotFound = errors.New("privy: not found")

// Client talks to the Privy REST API with app credentials.
type Client struct {
	api     *httpx.Client
	authURL string
	appID   string
	key     *ecdsa.PrivateKey
}

// NewClient creates a Client. signingKey may be empty for tools that never
// sign wallet RPC requests; SignTransaction then fails.
func NewClient(appID, appSecret, signingKey string) (*Client, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(appID + ":" + appSecret))
	c := &Client{
		api: httpx.New(DefaultAPIURL, 0,
			httpx.WithHeader("Authorization", "Basic "+basic),
			httpx.WithHeader("privy-app-id", appID),
		),
		authURL: DefaultAuthURL,
		appID:   appID,
	}
	if signingKey != "" {
		key, err := ParseAuthorizationKey(signingKey)
		if err != nil {
			return nil, err
		}
		c.key = key
	}
	return c, nil
}

// SetBaseURLs redirects both API hosts (tests).
func (c *Client) SetBaseURLs(apiURL, authURL string) {
	c.api.SetBaseURL(apiURL)
	c.authURL = authURL
}

// User is the subset of a Privy user object the tools read. Raw keeps the
// full document for callers that echo linked accounts back.
type User struct {
	ID             string          `json:"id"`
	CreatedAt      any             `json:"created_at"`
	LinkedAccounts []LinkedAccount `json:"linked_accounts"`
	Raw            json.RawMessage `json:"-"`
}

// LinkedAccount is one entry of a user's linked_accounts.
type LinkedAccount struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Address       string `json:"address"`
	PublicKey     string `json:"public_key"`
	ChainType     string `json:"chain_type"`
	ConnectorType string `json:"connector_type"`
	Delegated     bool   `json:"delegated"`
}

// Addr prefers address, falling back to public_key.
func (a LinkedAccount) Addr() string {
	if a.Address != "" {
		return a.Address
	}
	return a.PublicKey
}

func decodeUser(raw []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode privy user: %w", err)
	}
	u.Raw = append(json.RawMessage(nil), raw...)
	return &u, nil
}

// GetUser fetches a user by Privy DID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	resp, err := c.api.Do(ctx, http.MethodGet, c.authURL+"/api/v1/users/"+url.PathEscape(userID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		return nil, &httpx.StatusError{Code: resp.Status, Body: string(resp.Body)}
	}
	return decodeUser(resp.Body)
}

// CreateUser creates a user with a linked Telegram account.
func (c *Client) CreateUser(ctx context.Context, telegramUserID string) (*User, error) {
	body := map[string]any{
		"linked_accounts": []map[string]any{
			{"type": "telegram", "telegram_user_id": telegramUserID},
		},
	}
	var raw json.RawMessage
	if err := c.api.Post(ctx, "/v1/users", nil, body, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// FindUserByTelegram looks a user up by Telegram ID; ErrNotFound on 404.
func (c *Client) FindUserByTelegram(ctx context.Context, telegramUserID string) (*User, error) {
	resp, err := c.api.Do(ctx, http.MethodPost, "/v1/users/telegram/telegram_user_id", nil,
		map[string]any{"telegram_user_id": telegramUserID}, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		return nil, &httpx.StatusError{Code: resp.Status, Body: string(resp.Body)}
	}
	return decodeUser(resp.Body)
}

// Wallet is a server-created wallet.
type Wallet struct {
	ID                string          `json:"id"`
	Address           string          `json:"address"`
	ChainType         string          `json:"chain_type"`
	CreatedAt         any             `json:"created_at"`
	OwnerID           string          `json:"owner_id"`
	AdditionalSigners json.RawMessage `json:"additional_signers"`
}

// CreateWallet creates a wallet owned by userID, or by ownerID (a key
// quorum) when set.
func (c *Client) CreateWallet(ctx context.Context, userID, chainType, ownerID string) (*Wallet, error) {
	if chainType == "" {
		chainType = "solana"
	}
	body := map[string]any{"chain_type": chainType}
	if ownerID != "" {
		body["owner_id"] = ownerID
	} else {
		body["owner"] = map[string]any{"user_id": userID}
	}
	var w Wallet
	if err := c.api.Post(ctx, "/v1/wallets", nil, body, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// SignTransaction asks Privy to sign a base64 Solana transaction with
// walletID and returns the signed base64 transaction.
func (c *Client) SignTransaction(ctx context.Context, walletID, txB64 string) (string, error) {
	if c.key == nil {
		return "", errors.New("privy signing key not configured")
	}
	path := "/v1/wallets/" + url.PathEscape(walletID) + "/rpc"
	body := map[string]any{
		"method": "signTransaction",
		"caip2":  SolanaMainnetCAIP2,
		"params": map[string]any{
			"transaction": txB64,
			"encoding":    "base64",
		},
	}

	sig, err := authorizationSignature(c.key, http.MethodPost, c.api.BaseURL+path, c.appID, body)
	if err != nil {
		return "", err
	}
	hdr := http.Header{}
	hdr.Set("privy-authorization-signature", sig)
	hdr.Set("privy-idempotency-key", uuid.NewString())

	var raw json.RawMessage
	if err := c.api.PostWithHeaders(ctx, path, body, hdr, &raw); err != nil {
		return "", fmt.Errorf("privy signTransaction: %w", err)
	}
	signed := gjson.GetBytes(raw, "data.signed_transaction").String()
	if signed == "" {
		signed = gjson.GetBytes(raw, "data.signedTransaction").String()
	}
	if signed == "" {
		return "", errors.New("privy signTransaction: no signed transaction in response")
	}
	return signed, nil
}
