package solana

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrSignerNotFound means the key is not one of the message's required signers.
	ErrSignerNotFound = errors.New("signer not found in transaction")
	errShortBuffer    = errors.New("transaction truncated")
)

// MessageHeader is the three-byte signer/readonly account summary.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// Message keeps the parts of a message this package edits (header, static
// account keys, blockhash) and carries the rest verbatim.
type Message struct {
	Versioned       bool
	Version         uint8
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash

	// Compiled instructions and, for v0, address-table lookups.
	tail []byte
}

// Transaction is a wire transaction: signatures followed by a message.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// DecodeTransaction parses a base64 wire transaction.
func DecodeTransaction(b64 string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	return ParseTransaction(raw)
}

// ParseTransaction parses wire bytes.
func ParseTransaction(raw []byte) (*Transaction, error) {
	r := &reader{buf: raw}

	n, err := r.compactU16()
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}
	tx := &Transaction{Signatures: make([]Signature, n)}
	for i := range tx.Signatures {
		b, err := r.take(64)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		copy(tx.Signatures[i][:], b)
	}

	if err := tx.Message.decode(r); err != nil {
		return nil, err
	}
	if int(tx.Message.Header.NumRequiredSignatures) != len(tx.Signatures) {
		return nil, fmt.Errorf("transaction has %d signature slots but message requires %d",
			len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}
	return tx, nil
}

func (m *Message) decode(r *reader) error {
	first, err := r.readByte()
	if err != nil {
		return fmt.Errorf("message prefix: %w", err)
	}
	if first&0x80 != 0 {
		m.Versioned = true
		m.Version = first & 0x7f
		if m.Version != 0 {
			return fmt.Errorf("unsupported transaction version %d", m.Version)
		}
		if first, err = r.readByte(); err != nil {
			return fmt.Errorf("message header: %w", err)
		}
	}
	hdr, err := r.take(2)
	if err != nil {
		return fmt.Errorf("message header: %w", err)
	}
	m.Header = MessageHeader{
		NumRequiredSignatures:       first,
		NumReadonlySignedAccounts:   hdr[0],
		NumReadonlyUnsignedAccounts: hdr[1],
	}

	nkeys, err := r.compactU16()
	if err != nil {
		return fmt.Errorf("account key count: %w", err)
	}
	m.AccountKeys = make([]PublicKey, nkeys)
	for i := range m.AccountKeys {
		b, err := r.take(32)
		if err != nil {
			return fmt.Errorf("account key %d: %w", i, err)
		}
		copy(m.AccountKeys[i][:], b)
	}
	if int(m.Header.NumRequiredSignatures) > nkeys {
		return fmt.Errorf("message requires %d signers but has %d keys", m.Header.NumRequiredSignatures, nkeys)
	}

	bh, err := r.take(32)
	if err != nil {
		return fmt.Errorf("recent blockhash: %w", err)
	}
	copy(m.RecentBlockhash[:], bh)

	m.tail = append([]byte(nil), r.rest()...)
	return nil
}

// Bytes serializes the message; this is the payload signers sign.
func (m *Message) Bytes() []byte {
	var b bytes.Buffer
	if m.Versioned {
		b.WriteByte(0x80 | m.Version)
	}
	b.WriteByte(m.Header.NumRequiredSignatures)
	b.WriteByte(m.Header.NumReadonlySignedAccounts)
	b.WriteByte(m.Header.NumReadonlyUnsignedAccounts)
	b.Write(encodeCompactU16(len(m.AccountKeys)))
	for _, k := range m.AccountKeys {
		b.Write(k[:])
	}
	b.Write(m.RecentBlockhash[:])
	b.Write(m.tail)
	return b.Bytes()
}

// Bytes serializes the full transaction.
func (tx *Transaction) Bytes() []byte {
	var b bytes.Buffer
	b.Write(encodeCompactU16(len(tx.Signatures)))
	for _, s := range tx.Signatures {
		b.Write(s[:])
	}
	b.Write(tx.Message.Bytes())
	return b.Bytes()
}

// Encode returns the base64 wire form.
func (tx *Transaction) Encode() string {
	return base64.StdEncoding.EncodeToString(tx.Bytes())
}

// SignerIndex returns the signature slot for pub.
func (tx *Transaction) SignerIndex(pub PublicKey) (int, error) {
	for i := 0; i < int(tx.Message.Header.NumRequiredSignatures); i++ {
		if tx.Message.AccountKeys[i] == pub {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrSignerNotFound, pub)
}

// SetSignature stores sig in pub's slot.
func (tx *Transaction) SetSignature(pub PublicKey, sig Signature) error {
	i, err := tx.SignerIndex(pub)
	if err != nil {
		return err
	}
	tx.Signatures[i] = sig
	return nil
}

// SetBlockhash replaces the recent blockhash and clears every signature,
// since all of them covered the old message.
func (tx *Transaction) SetBlockhash(h Hash) {
	tx.Message.RecentBlockhash = h
	for i := range tx.Signatures {
		tx.Signatures[i] = Signature{}
	}
}

// ID is the transaction signature (fee payer's signature), base58.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return tx.Signatures[0].String()
}

// FullySigned reports whether every required slot carries a signature.
func (tx *Transaction) FullySigned() bool {
	for _, s := range tx.Signatures {
		if s.IsZero() {
			return false
		}
	}
	return true
}

// ---- compact-u16 -----------------------------------------------------------

func encodeCompactU16(n int) []byte {
	var out []byte
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) rest() []byte { return r.buf[r.pos:] }

func (r *reader) compactU16() (int, error) {
	var v int
	for i := 0; i < 3; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		v |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("compact-u16 overflow")
}
