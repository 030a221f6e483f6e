package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create or refresh the sakit configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

		// Re-read without credentials so secrets stay out of config.json.
		existing, loadErr := config.LoadFile(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	fmt.Printf("\n%s sakit is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Println("  1. Put API keys and wallet secrets in ~/.sakit/credentials.toml (mode 0600):")
	fmt.Println(`       [birdeye]
       api_key = "..."
       [solana]
       rpc_url = "https://..."
       private_key = "..."`)
	fmt.Println("  2. Check what is configured: sakit status")
	fmt.Println(`  3. Try a tool: sakit tools run solana_price '{"address":"So11111111111111111111111111111111111111112"}'`)
	return nil
}
