package solana

import "context"

// Signer fills its own signature slot in a transaction. Local keypairs sign
// in-process; custodial wallets (Privy) sign remotely.
type Signer interface {
	PublicKey() PublicKey
	SignTransaction(ctx context.Context, tx *Transaction) error
}

// SignTransaction signs tx's current message into the keypair's slot.
func (k *Keypair) SignTransaction(_ context.Context, tx *Transaction) error {
	return tx.SetSignature(k.pub, k.Sign(tx.Message.Bytes()))
}

// SignAll applies signers in order. Nil signers are skipped so optional
// payers can be passed unconditionally.
func SignAll(ctx context.Context, tx *Transaction, signers ...Signer) error {
	for _, s := range signers {
		if s == nil || isNilKeypair(s) {
			continue
		}
		if err := s.SignTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func isNilKeypair(s Signer) bool {
	kp, ok := s.(*Keypair)
	return ok && kp == nil
}

// Optional wraps s so it signs only when its key is one of tx's required
// signers. Used for integrator payers the upstream API may have left out.
func Optional(s Signer) Signer {
	if s == nil || isNilKeypair(s) {
		return nil
	}
	return optionalSigner{s}
}

type optionalSigner struct{ Signer }

func (o optionalSigner) SignTransaction(ctx context.Context, tx *Transaction) error {
	if _, err := tx.SignerIndex(o.PublicKey()); err != nil {
		return nil
	}
	return o.Signer.SignTransaction(ctx, tx)
}

// SignEncoded decodes a base64 transaction, applies signers and re-encodes
// it. The blockhash is left as the upstream API built it.
func SignEncoded(ctx context.Context, txB64 string, signers ...Signer) (string, error) {
	tx, err := DecodeTransaction(txB64)
	if err != nil {
		return "", err
	}
	if err := SignAll(ctx, tx, signers...); err != nil {
		return "", err
	}
	return tx.Encode(), nil
}
