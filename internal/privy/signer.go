package privy

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

// WalletSigner signs for a delegated wallet through Privy.
type WalletSigner struct {
	client *Client
	wallet DelegatedWallet
	pub    solana.PublicKey
}

// NewWalletSigner binds a delegated wallet to c.
func NewWalletSigner(c *Client, w DelegatedWallet) (*WalletSigner, error) {
	pub, err := solana.ParsePublicKey(w.PublicKey)
	if err != nil {
		return nil, err
	}
	return &WalletSigner{client: c, wallet: w, pub: pub}, nil
}

func (s *WalletSigner) PublicKey() solana.PublicKey { return s.pub }

// SignTransaction round-trips tx through Privy and copies the wallet's
// signature into its slot. Signatures already present are kept.
func (s *WalletSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	idx, err := tx.SignerIndex(s.pub)
	if err != nil {
		return err
	}
	signedB64, err := s.client.SignTransaction(ctx, s.wallet.WalletID, tx.Encode())
	if err != nil {
		return err
	}
	signed, err := solana.DecodeTransaction(signedB64)
	if err != nil {
		return fmt.Errorf("decode privy-signed transaction: %w", err)
	}
	if !bytes.Equal(signed.Message.Bytes(), tx.Message.Bytes()) {
		return errors.New("privy returned a transaction with a different message")
	}
	if signed.Signatures[idx].IsZero() {
		return fmt.Errorf("privy returned no signature for %s", s.pub)
	}
	tx.Signatures[idx] = signed.Signatures[idx]
	return nil
}
