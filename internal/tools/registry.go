package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolBirdeye              ToolName = "birdeye"
	ToolSolanaPrice          ToolName = "solana_price"
	ToolTechnicalAnalysis    ToolName = "technical_analysis"
	ToolVybe                 ToolName = "vybe"
	ToolSolanaBalance        ToolName = "solana_balance"
	ToolPrivyBalance         ToolName = "privy_balance"
	ToolJupiterHoldings      ToolName = "jupiter_holdings"
	ToolJupiterShield        ToolName = "jupiter_shield"
	ToolJupiterTokenSearch   ToolName = "jupiter_token_search"
	ToolSolanaUltra          ToolName = "solana_ultra"
	ToolPrivyUltra           ToolName = "privy_ultra"
	ToolSolanaUltraQuote     ToolName = "solana_ultra_quote"
	ToolPrivyUltraQuote      ToolName = "privy_ultra_quote"
	ToolJupiterTrigger       ToolName = "jupiter_trigger"
	ToolPrivyTrigger         ToolName = "privy_trigger"
	ToolSolanaDFlowSwap      ToolName = "solana_dflow_swap"
	ToolPrivyDFlowSwap       ToolName = "privy_dflow_swap"
	ToolDFlowPrediction      ToolName = "dflow_prediction"
	ToolPrivyDFlowPrediction ToolName = "privy_dflow_prediction"
	ToolPrivyCreateUser      ToolName = "privy_create_user"
	ToolPrivyCreateWallet    ToolName = "privy_create_wallet"
	ToolPrivyUserByTelegram  ToolName = "privy_get_user_by_telegram"
	ToolPrivyWalletAddress   ToolName = "privy_wallet_address"
	ToolSearchInternet       ToolName = "search_internet"
	ToolRugcheck             ToolName = "rugcheck"
	ToolTokenMath            ToolName = "token_math"
)

// Registry holds a set of named tools and exposes them for execution.
type Registry struct {
	tools map[string]schema.Tool
}

// GetTool returns the tool with the given name, or nil.
func (r *Registry) GetTool(name ToolName) schema.Tool {
	return r.tools[string(name)]
}

func (r *Registry) AllTools() ToolList {
	list := ToolList{tools: make(map[string]schema.Tool, len(r.tools))}
	for k, t := range r.tools {
		list.tools[k] = t
	}
	return list
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for k := range r.tools {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named tool and logs the call.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	t := r.tools[name]
	if t == nil {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	if params == nil {
		params = map[string]any{}
	}

	call := CallCtx(ctx)
	start := time.Now()
	out, err := t.Execute(ctx, params)
	slog.Info("tool call",
		"tool", name,
		"source", call.Source,
		"job", call.JobID,
		"took", time.Since(start).Round(time.Millisecond),
		"err", err,
	)
	return out, err
}
