package privy

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseAuthorizationKey loads a P-256 authorization key. Accepted forms are
// base64 PKCS#8 or SEC1 DER, each optionally prefixed with "wallet-auth:".
func ParseAuthorizationKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "wallet-auth:"))
	if s == "" {
		return nil, errors.New("empty authorization key")
	}
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode authorization key: %w", err)
	}

	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("authorization key is %T, want ECDSA", k)
		}
		return ec, nil
	}
	ec, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("could not load private key: %w", err)
	}
	return ec, nil
}

// signaturePayload is the canonical JSON Privy verifies: sorted keys, no
// insignificant whitespace, no HTML escaping.
func signaturePayload(method, url, appID string, body any) ([]byte, error) {
	payload := map[string]any{
		"version": 1,
		"method":  method,
		"url":     url,
		"body":    body,
		"headers": map[string]any{"privy-app-id": appID},
	}
	return canonicalJSON(payload)
}

func canonicalJSON(v any) ([]byte, error) {
	// Round-trip through any so struct bodies get sorted keys too.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// authorizationSignature returns the base64 ECDSA-SHA256 (ASN.1) signature
// for the privy-authorization-signature header.
func authorizationSignature(key *ecdsa.PrivateKey, method, url, appID string, body any) (string, error) {
	payload, err := signaturePayload(method, url, appID, body)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign authorization payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
