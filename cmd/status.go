package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sakit configuration status",
	RunE:  runStatus,
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	missMark = color.New(color.FgRed).Sprint("✗")
	dim      = color.New(color.Faint).SprintFunc()
)

func mark(ok bool) string {
	if ok {
		return okMark
	}
	return missMark
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	fmt.Printf("%s sakit Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:      %s %s\n", cfgPath, mark(statErr == nil))

	_, credPath, credErr := config.LoadCredentials()
	switch {
	case credErr != nil:
		fmt.Printf("Credentials: %s %s %s\n", credPath, missMark, dim(credErr.Error()))
	case credPath == "":
		fmt.Printf("Credentials: %s\n", dim("(none found)"))
	default:
		fmt.Printf("Credentials: %s %s\n", credPath, okMark)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	rpc := cfg.Solana.RPCURL
	if rpc == "" {
		rpc = dim("(not set)")
	}
	fmt.Printf("RPC:         %s\n\n", rpc)

	t := cfg.Tools
	rows := []struct {
		label string
		ok    bool
		note  string
	}{
		{"Birdeye", t.Birdeye.APIKey != "", "birdeye, solana_price, technical_analysis"},
		{"Vybe", t.Vybe.APIKey != "", "vybe, solana_balance, privy_balance"},
		{"Jupiter", t.Jupiter.APIKey != "", "holdings, shield, token search, ultra, trigger"},
		{"Solana wallet", cfg.Solana.PrivateKey != "", "solana_* trading tools"},
		{"Gasless payer", cfg.Solana.PayerPrivateKey != "", "optional fee payer"},
		{"Privy app", t.Privy.AppID != "" && t.Privy.AppSecret != "", "privy_* account tools"},
		{"Privy signing", t.Privy.Configured(), "privy_* trading tools"},
		{"Search", t.Search.APIKey != "", "search_internet (" + t.Search.Provider + ")"},
	}
	fmt.Println("APIs:")
	for _, r := range rows {
		fmt.Printf("  %-16s %s %s\n", r.label, mark(r.ok), dim(r.note))
	}

	if len(t.Disabled) > 0 {
		fmt.Printf("\nDisabled tools: %v\n", t.Disabled)
	}
	return nil
}
