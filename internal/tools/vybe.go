package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/vybe"
)

// ---------------------------------------------------------------------------
// VybeTool
// ---------------------------------------------------------------------------

// VybeTool labels wallet addresses from Vybe's known-accounts table.
type VybeTool struct {
	client *vybe.Client
}

func NewVybeTool(c *vybe.Client) *VybeTool { return &VybeTool{client: c} }

func (t *VybeTool) Name() string { return string(ToolVybe) }
func (t *VybeTool) Description() string {
	return "Look up labels for Solana wallet addresses. Identifies CEX wallets, " +
		"market makers, AMM pools, project treasuries, and influencers. " +
		"Use this to understand who owns wallets when analyzing top holders or traders."
}
func (t *VybeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"addresses": {
				"type": "string",
				"description": "Comma-separated list of Solana wallet addresses to look up. Example: 'addr1,addr2,addr3'."
			},
			"refresh_cache": {
				"type": "boolean",
				"description": "Force refresh the known accounts cache. Only set to true if you need fresh data.",
				"default": false
			}
		},
		"required": ["addresses", "refresh_cache"],
		"additionalProperties": false
	}`)
}

type labelResult struct {
	Address    string   `json:"address"`
	Known      bool     `json:"known"`
	Name       *string  `json:"name"`
	Labels     []string `json:"labels"`
	EntityName *string  `json:"entity_name"`
	Type       *string  `json:"type"`
}

func (t *VybeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.client.Configured() {
		return encode(result{"success": false, "error": "Vybe API key is required. Configure tools.vybe.api_key"})
	}
	addrs := stringsParam(params, "addresses")
	if len(addrs) == 0 {
		return encode(result{"success": false, "error": "No valid addresses provided"})
	}

	known, err := t.client.KnownAccounts(ctx, boolParam(params, "refresh_cache"))
	if err != nil {
		slog.Error("vybe: lookup failed", "err", err)
		return encode(result{"success": false, "error": err.Error()})
	}

	results := make([]labelResult, 0, len(addrs))
	lines := make([]string, 0, len(addrs)+1)
	knownCount := 0
	for _, a := range addrs {
		acct, ok := known[a]
		if !ok {
			results = append(results, labelResult{Address: a, Labels: []string{}})
			lines = append(lines, fmt.Sprintf("  %s: Unknown wallet", shortAddress(a)))
			continue
		}
		knownCount++
		labels := acct.Labels
		if labels == nil {
			labels = []string{}
		}
		results = append(results, labelResult{
			Address:    a,
			Known:      true,
			Name:       optString(acct.Name),
			Labels:     labels,
			EntityName: optString(acct.EntityName),
			Type:       optString(acct.Type),
		})
		labelText := "no labels"
		if len(labels) > 0 {
			labelText = strings.Join(labels, ", ")
		}
		name := acct.Name
		if name == "" {
			name = acct.EntityName
		}
		if name == "" {
			name = "Unknown name"
		}
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)", shortAddress(a), name, labelText))
	}

	header := fmt.Sprintf("Looked up %d addresses: %d known, %d unknown.", len(addrs), knownCount, len(addrs)-knownCount)
	return encode(result{
		"success":           true,
		"summary":           strings.Join(append([]string{header}, lines...), "\n"),
		"results":           results,
		"known_count":       knownCount,
		"unknown_count":     len(addrs) - knownCount,
		"cache_age_seconds": int(t.client.CacheAge().Seconds()),
	})
}

func shortAddress(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:8] + "..." + a[len(a)-4:]
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ---------------------------------------------------------------------------
// SolanaBalanceTool
// ---------------------------------------------------------------------------

// SolanaBalanceTool summarizes a wallet's SOL and token balances.
type SolanaBalanceTool struct {
	client *vybe.Client
}

func NewSolanaBalanceTool(c *vybe.Client) *SolanaBalanceTool { return &SolanaBalanceTool{client: c} }

func (t *SolanaBalanceTool) Name() string { return string(ToolSolanaBalance) }
func (t *SolanaBalanceTool) Description() string {
	return "Check SOL and SPL token balances for a wallet using AlphaVybe API."
}
func (t *SolanaBalanceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"wallet_address": {
				"type": "string",
				"description": "The wallet public key (base58 address) to check."
			}
		},
		"required": ["wallet_address"],
		"additionalProperties": false
	}`)
}

func (t *SolanaBalanceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.client.Configured() {
		return failure("AlphaVybe API key not configured.")
	}
	wallet := stringParam(params, "wallet_address")
	if wallet == "" {
		return failure("wallet_address is required")
	}
	return balanceSummary(ctx, t.client, wallet)
}

func balanceSummary(ctx context.Context, c *vybe.Client, wallet string) (string, error) {
	body, err := c.TokenBalance(ctx, wallet)
	if err != nil {
		slog.Error("balance check failed", "wallet", wallet, "err", err)
		return failureErr(err)
	}
	return success(result{"result": vybe.SummarizeBalances(body)})
}

// ---------------------------------------------------------------------------
// PrivyBalanceTool
// ---------------------------------------------------------------------------

// PrivyBalanceTool is SolanaBalanceTool for a Privy user's delegated wallet.
type PrivyBalanceTool struct {
	client  *vybe.Client
	wallets *PrivyWallets
}

func NewPrivyBalanceTool(c *vybe.Client, w *PrivyWallets) *PrivyBalanceTool {
	return &PrivyBalanceTool{client: c, wallets: w}
}

func (t *PrivyBalanceTool) Name() string { return string(ToolPrivyBalance) }
func (t *PrivyBalanceTool) Description() string {
	return "Check SOL and SPL token balances for a Privy delegated embedded wallet using AlphaVybe API."
}
func (t *PrivyBalanceTool) Parameters() json.RawMessage {
	return userIDSchema("Privy user id (did) to check delegated embedded wallet balance.")
}

func (t *PrivyBalanceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if _, err := t.wallets.App(); err != nil || !t.client.Configured() {
		return failure("Privy or AlphaVybe config missing.")
	}
	userID := stringParam(params, "user_id")
	if userID == "" {
		return failureErr(errUserID)
	}
	wallet, err := t.wallets.Address(ctx, userID)
	if err != nil {
		return failureErr(err)
	}
	return balanceSummary(ctx, t.client, wallet)
}

func userIDSchema(desc string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{"type": "string", "description": desc},
		},
		"required":             []string{"user_id"},
		"additionalProperties": false,
	})
	return raw
}
