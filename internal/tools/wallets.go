package tools

import (
	"context"
	"errors"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/privy"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

var (
	errPrivateKey     = errors.New("Private key not configured.")
	errRPCURL         = errors.New("rpc_url not configured")
	errPrivyConfig    = errors.New("Privy config missing.")
	errPrivyAppConfig = errors.New("Privy config missing (app_id, app_secret).")
	errNoDelegated    = errors.New("No delegated embedded wallet found for user.")
	errUserID         = errors.New("user_id is required")
)

// LocalKeys holds the configured base58 secrets. They are parsed on use so
// a bad key surfaces as a tool error rather than a startup failure.
type LocalKeys struct {
	Secret      string
	PayerSecret string
}

func NewLocalKeys(cfg config.SolanaConfig) LocalKeys {
	return LocalKeys{Secret: cfg.PrivateKey, PayerSecret: cfg.PayerPrivateKey}
}

// Wallet returns the trading keypair.
func (k LocalKeys) Wallet() (*solana.Keypair, error) {
	if k.Secret == "" {
		return nil, errPrivateKey
	}
	return solana.KeypairFromSecret(k.Secret)
}

// Payer returns the gasless fee payer, or nil when none is configured.
func (k LocalKeys) Payer() (*solana.Keypair, error) {
	if k.PayerSecret == "" {
		return nil, nil
	}
	return solana.KeypairFromSecret(k.PayerSecret)
}

// PrivyWallets resolves Privy users to their delegated wallets.
type PrivyWallets struct {
	client  *privy.Client
	cfg     tool.PrivyConfig
	signErr error
}

// NewPrivyWallets builds the Privy client when app credentials are set. An
// unusable signing key only disables signing.
func NewPrivyWallets(cfg tool.PrivyConfig) *PrivyWallets {
	w := &PrivyWallets{cfg: cfg}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return w
	}
	c, err := privy.NewClient(cfg.AppID, cfg.AppSecret, cfg.SigningKey)
	if err != nil {
		w.signErr = err
		c, _ = privy.NewClient(cfg.AppID, cfg.AppSecret, "")
	}
	w.client = c
	return w
}

// SetBaseURLs redirects the Privy client (tests).
func (w *PrivyWallets) SetBaseURLs(apiURL, authURL string) {
	if w.client != nil {
		w.client.SetBaseURLs(apiURL, authURL)
	}
}

// App returns the client for calls that need only app credentials.
func (w *PrivyWallets) App() (*privy.Client, error) {
	if w.client == nil {
		return nil, errPrivyAppConfig
	}
	return w.client, nil
}

// Signer resolves userID's delegated wallet into a transaction signer.
func (w *PrivyWallets) Signer(ctx context.Context, userID string) (*privy.WalletSigner, error) {
	if w.client == nil || !w.cfg.Configured() {
		return nil, errPrivyConfig
	}
	if w.signErr != nil {
		return nil, w.signErr
	}
	dw, err := w.delegated(ctx, userID)
	if err != nil {
		return nil, err
	}
	return privy.NewWalletSigner(w.client, dw)
}

// Taker returns the address of the wallet Signer would sign with. It needs
// only app credentials, so quotes work without a signing key.
func (w *PrivyWallets) Taker(ctx context.Context, userID string) (string, error) {
	if w.client == nil {
		return "", errPrivyConfig
	}
	dw, err := w.delegated(ctx, userID)
	if err != nil {
		return "", err
	}
	return dw.PublicKey, nil
}

func (w *PrivyWallets) delegated(ctx context.Context, userID string) (privy.DelegatedWallet, error) {
	if userID == "" {
		return privy.DelegatedWallet{}, errUserID
	}
	dw, ok, err := w.client.DelegatedWalletFor(ctx, userID)
	if errors.Is(err, privy.ErrNotFound) {
		return privy.DelegatedWallet{}, errNoDelegated
	}
	if err != nil {
		return privy.DelegatedWallet{}, err
	}
	if !ok {
		return privy.DelegatedWallet{}, errNoDelegated
	}
	return dw, nil
}

// Address returns userID's delegated embedded wallet address.
func (w *PrivyWallets) Address(ctx context.Context, userID string) (string, error) {
	if w.client == nil {
		return "", errPrivyConfig
	}
	if userID == "" {
		return "", errUserID
	}
	u, err := w.client.GetUser(ctx, userID)
	if errors.Is(err, privy.ErrNotFound) {
		return "", errNoDelegated
	}
	if err != nil {
		return "", err
	}
	addr := privy.EmbeddedWalletAddress(u.LinkedAccounts)
	if addr == "" {
		return "", errNoDelegated
	}
	return addr, nil
}
