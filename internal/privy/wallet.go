package privy

import (
	"context"
	"strings"
)

// DelegatedWallet is the wallet a bot may sign for on the user's behalf.
type DelegatedWallet struct {
	WalletID  string
	PublicKey string
}

// FindDelegatedWallet picks the signing wallet from linked accounts: an
// embedded wallet with delegation first, then an API-created Solana wallet.
func FindDelegatedWallet(accounts []LinkedAccount) (DelegatedWallet, bool) {
	for _, a := range accounts {
		if a.ConnectorType == "embedded" && a.Delegated && a.ID != "" && a.Addr() != "" {
			return DelegatedWallet{WalletID: a.ID, PublicKey: a.Addr()}, true
		}
	}
	for _, a := range accounts {
		if a.ID == "" || a.Addr() == "" {
			continue
		}
		t := strings.ToLower(a.Type)
		if t == "wallet" && a.ChainType == "solana" {
			return DelegatedWallet{WalletID: a.ID, PublicKey: a.Addr()}, true
		}
		if strings.Contains(t, "solana") && strings.Contains(t, "embedded") {
			return DelegatedWallet{WalletID: a.ID, PublicKey: a.Addr()}, true
		}
	}
	return DelegatedWallet{}, false
}

// DelegatedWalletFor fetches userID and resolves its delegated wallet.
func (c *Client) DelegatedWalletFor(ctx context.Context, userID string) (DelegatedWallet, bool, error) {
	u, err := c.GetUser(ctx, userID)
	if err != nil {
		return DelegatedWallet{}, false, err
	}
	w, ok := FindDelegatedWallet(u.LinkedAccounts)
	return w, ok, nil
}

// EmbeddedWalletAddress returns the public key of the delegated embedded
// wallet only (no API-created fallback).
func EmbeddedWalletAddress(accounts []LinkedAccount) string {
	for _, a := range accounts {
		if a.ConnectorType == "embedded" && a.Delegated {
			return a.Addr()
		}
	}
	return ""
}

// WalletInfo summarizes an embedded wallet for lookup results.
type WalletInfo struct {
	WalletID  string `json:"wallet_id"`
	Address   string `json:"address"`
	ChainType string `json:"chain_type"`
	Delegated bool   `json:"delegated"`
}

// EmbeddedWallets lists every embedded wallet on the user.
func EmbeddedWallets(accounts []LinkedAccount) []WalletInfo {
	out := []WalletInfo{}
	for _, a := range accounts {
		if !strings.Contains(strings.ToLower(a.Type), "embedded_wallet") && a.ConnectorType != "embedded" {
			continue
		}
		chain := a.ChainType
		if chain == "" {
			chain = a.Type
		}
		out = append(out, WalletInfo{
			WalletID:  a.ID,
			Address:   a.Addr(),
			ChainType: chain,
			Delegated: a.Delegated,
		})
	}
	return out
}
