package dflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

// SendFunc signs and submits a base64 transaction, returning its signature.
type SendFunc func(ctx context.Context, txB64 string) (string, error)

// TradeResult is the outcome of ExecuteBlocking.
type TradeResult struct {
	Success        bool
	Signature      string
	ExecutionMode  string
	InAmount       any
	OutAmount      any
	MinOutAmount   any
	PriceImpactPct any
	Error          string
	Fills          any
}

// ExecuteBlocking sends the order transaction and, for async orders, polls
// order status until it closes, fails, expires or maxWait elapses. Any
// nextTransaction returned while polling is sent as well.
func (p *Prediction) ExecuteBlocking(ctx context.Context, order Item, send SendFunc) *TradeResult {
	mode := order.Str("executionMode")
	if mode == "" {
		mode = "sync"
	}
	res := &TradeResult{ExecutionMode: mode}

	tx := order.Str("transaction")
	if tx == "" {
		res.Error = "No transaction in order response"
		return res
	}

	sig, err := send(ctx, tx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Signature = sig

	if mode == "sync" {
		res.Success = true
		res.InAmount = order["inAmount"]
		res.OutAmount = order["outAmount"]
		res.MinOutAmount = order["minOutAmount"]
		res.PriceImpactPct = order["priceImpactPct"]
		return res
	}

	res.ExecutionMode = "async"
	requestID := order.Str("requestId")
	deadline := time.NewTimer(p.maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(p.pollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			res.Error = ctx.Err().Error()
			return res
		case <-deadline.C:
			res.Error = fmt.Sprintf("Timeout (%ds) waiting for order completion", int(p.maxWait.Seconds()))
			return res
		case <-tick.C:
		}

		st, err := p.TradeStatus(ctx, requestID)
		if err != nil {
			slog.Warn("dflow: order status check failed", "request_id", requestID, "err", err)
			continue
		}

		switch status := st.Str("status"); status {
		case "closed":
			res.Success = true
			res.InAmount = st["inAmount"]
			res.OutAmount = st["outAmount"]
			res.MinOutAmount = order["minOutAmount"]
			res.PriceImpactPct = order["priceImpactPct"]
			res.Fills = st["fills"]
			return res
		case "failed", "expired":
			res.Error = "Order " + status
			return res
		default:
			if next := st.Str("nextTransaction"); next != "" {
				if res.Signature, err = send(ctx, next); err != nil {
					res.Error = err.Error()
					return res
				}
			}
		}
	}
}

// Position is an outcome-token balance held by a wallet.
type Position struct {
	Mint     string  `json:"mint"`
	Ticker   string  `json:"ticker"`
	Side     string  `json:"side"`
	Amount   string  `json:"amount"`
	UIAmount float64 `json:"ui_amount"`
	Decimals int     `json:"decimals"`
}

// Positions cross-references wallet's SPL token accounts with the known
// outcome mints and returns the non-zero ones.
func (p *Prediction) Positions(ctx context.Context, wallet string, rpc *solana.RPCClient) ([]Position, error) {
	mints, err := p.OutcomeMints(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := rpc.TokenAccountsByOwner(ctx, wallet, solana.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to query token accounts: %w", err)
	}

	positions := []Position{}
	for _, a := range accounts {
		info, ok := mints[a.Mint]
		if !ok || a.UIAmount <= 0 {
			continue
		}
		ticker := info.Str("market")
		if ticker == "" {
			ticker = info.Str("ticker")
		}
		if ticker == "" {
			ticker = "unknown"
		}
		side := info.Str("side")
		if side == "" {
			side = "unknown"
		}
		positions = append(positions, Position{
			Mint:     a.Mint,
			Ticker:   ticker,
			Side:     strings.ToUpper(side),
			Amount:   a.Amount,
			UIAmount: a.UIAmount,
			Decimals: a.Decimals,
		})
	}
	return positions, nil
}
