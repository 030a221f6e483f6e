// Package solana holds the minimal Solana plumbing the trading tools need:
// a wire codec for already-built transactions, keys and signers, a JSON-RPC
// client and the Relay that signs, submits and confirms.
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte ed25519 public key / account address.
type PublicKey [32]byte

// Hash is a 32-byte blockhash.
type Hash [32]byte

// Signature is a 64-byte ed25519 signature.
type Signature [64]byte

func (p PublicKey) String() string { return base58.Encode(p[:]) }
func (h Hash) String() string      { return base58.Encode(h[:]) }
func (s Signature) String() string { return base58.Encode(s[:]) }

// IsZero reports an all-zero (unsigned) slot.
func (s Signature) IsZero() bool { return s == Signature{} }

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return pk, fmt.Errorf("invalid public key %q: %w", s, err)
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("invalid public key %q: %d bytes", s, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// ParseHash decodes a base58 blockhash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid blockhash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid blockhash %q: %d bytes", s, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Keypair is a local ed25519 signing key.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// KeypairFromSecret accepts a base58 64-byte secret key, a base58 32-byte
// seed, or the JSON byte-array format written by solana-keygen.
func KeypairFromSecret(secret string) (*Keypair, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("empty private key")
	}

	var raw []byte
	if strings.HasPrefix(secret, "[") {
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, fmt.Errorf("parse keypair array: %w", err)
		}
	} else {
		b, err := base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		raw = b
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("private key must be 32 or 64 bytes, got %d", len(raw))
	}

	kp := &Keypair{priv: priv}
	copy(kp.pub[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// NewKeypairFromSeed is used by tests and tooling.
func NewKeypairFromSeed(seed []byte) *Keypair {
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{priv: priv}
	copy(kp.pub[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// PublicKey returns the keypair's address.
func (k *Keypair) PublicKey() PublicKey { return k.pub }

// Sign signs an arbitrary message.
func (k *Keypair) Sign(msg []byte) Signature {
	var s Signature
	copy(s[:], ed25519.Sign(k.priv, msg))
	return s
}

// Verify checks sig against pub over msg.
func Verify(pub PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:])
}
