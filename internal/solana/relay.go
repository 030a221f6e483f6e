package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RelayOptions tunes Relay.
type RelayOptions struct {
	WSURL          string
	ConfirmTimeout time.Duration
	MaxAttempts    int
	PollInterval   time.Duration
	SkipPreflight  bool
}

// Relay owns the submit path shared by every trading tool:
//
//	decode → fresh blockhash → sign each slot → send → confirm
//
// restarting from the blockhash step while the cluster reports expiry.
type Relay struct {
	rpc  *RPCClient
	opts RelayOptions
}

// NewRelay creates a Relay over rpc.
func NewRelay(rpc *RPCClient, opts RelayOptions) *Relay {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &Relay{rpc: rpc, opts: opts}
}

// RPC exposes the underlying client for read-only queries.
func (r *Relay) RPC() *RPCClient { return r.rpc }

// Sign decodes txB64, applies signers without touching the blockhash and
// returns the re-encoded transaction. Used when a remote /execute endpoint
// lands the transaction.
func (r *Relay) Sign(ctx context.Context, txB64 string, signers ...Signer) (string, error) {
	return SignEncoded(ctx, txB64, signers...)
}

// SignAndSend lands txB64 and returns its signature once confirmed.
func (r *Relay) SignAndSend(ctx context.Context, txB64 string, signers ...Signer) (string, error) {
	tx, err := DecodeTransaction(txB64)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		sig, err := r.attempt(ctx, tx, signers)
		if err == nil {
			return sig, nil
		}
		if !errors.Is(err, ErrBlockhashExpired) {
			return sig, err
		}
		lastErr = err
		slog.Warn("relay: blockhash expired, retrying", "attempt", attempt, "err", err)
	}
	return "", fmt.Errorf("transaction not confirmed after %d attempts: %w", r.opts.MaxAttempts, lastErr)
}

func (r *Relay) attempt(ctx context.Context, tx *Transaction, signers []Signer) (string, error) {
	bh, err := r.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}
	tx.SetBlockhash(bh.Blockhash)

	if err := SignAll(ctx, tx, signers...); err != nil {
		return "", err
	}

	sig, err := r.rpc.SendTransaction(ctx, tx.Bytes(), SendOptions{SkipPreflight: r.opts.SkipPreflight})
	if err != nil {
		return "", err
	}
	if sig == "" {
		sig = tx.ID()
	}
	slog.Info("relay: sent transaction", "sig", sig)

	return sig, r.confirm(ctx, sig, bh.LastValidBlockHeight)
}

func (r *Relay) confirm(ctx context.Context, sig string, lastValid uint64) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ConfirmTimeout)
	defer cancel()

	if r.opts.WSURL == "" {
		return r.poll(ctx, sig, lastValid)
	}

	// The subscription races the status poll. Only the poll watches the
	// block height, so expiry is still reported while the socket is silent.
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	type outcome struct {
		err      error
		decisive bool
	}
	results := make(chan outcome, 2)
	go func() {
		err := waitSignatureWS(ctx, r.opts.WSURL, sig, r.rpc.Commitment())
		var txErr *TransactionError
		if err == nil || errors.As(err, &txErr) {
			results <- outcome{err: err, decisive: true}
			return
		}
		if ctx.Err() == nil {
			slog.Debug("relay: websocket confirmation unavailable, polling", "err", err)
		}
		results <- outcome{err: err}
	}()
	go func() {
		results <- outcome{err: r.poll(ctx, sig, lastValid), decisive: true}
	}()

	var last error
	for i := 0; i < 2; i++ {
		res := <-results
		if res.decisive {
			return res.err
		}
		last = res.err
	}
	return last
}

func (r *Relay) poll(ctx context.Context, sig string, lastValid uint64) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := r.rpc.SignatureStatuses(ctx, sig)
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Failed() {
				return &TransactionError{Signature: sig, Err: st.Err}
			}
			if reached(st.ConfirmationStatus, r.rpc.Commitment()) {
				return nil
			}
		} else if err != nil {
			slog.Debug("relay: status poll failed", "sig", sig, "err", err)
		} else if lastValid > 0 {
			if h, herr := r.rpc.BlockHeight(ctx); herr == nil && h > lastValid {
				return fmt.Errorf("%w: block height %d > %d", ErrBlockhashExpired, h, lastValid)
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

var commitmentRank = map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}

func reached(status, want string) bool {
	return commitmentRank[status] >= commitmentRank[want] && commitmentRank[status] > 0
}
