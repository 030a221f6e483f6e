package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and run tools",
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsRunCmd)
}

// ---- list ------------------------------------------------------------------

var toolsListSchema bool

var toolsListCmd = &cobra.Command{
	Use:   "list [tool...]",
	Short: "List registered tools",
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := buildContainer()
		if err != nil {
			return err
		}
		reg := c.Registry()

		if toolsListSchema {
			return writeJSON(reg.AllTools().Only(args...).Definitions())
		}

		name := color.New(color.FgCyan, color.Bold).SprintFunc()
		for _, n := range reg.Names() {
			if len(args) > 0 && !contains(args, n) {
				continue
			}
			t := reg.GetTool(tools.ToolName(n))
			fmt.Printf("%s\n  %s\n", name(n), t.Description())
		}
		return nil
	},
}

func init() {
	toolsListCmd.Flags().BoolVar(&toolsListSchema, "schema", false, "Print OpenAI function-calling definitions")
}

// ---- run -------------------------------------------------------------------

var (
	toolsRunArgsFile string
	toolsRunFormat   string
)

var toolsRunCmd = &cobra.Command{
	Use:   "run <tool> [json-args]",
	Short: "Execute a tool and print its result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		params, err := toolArgs(args[1:], toolsRunArgsFile)
		if err != nil {
			return err
		}
		c, err := buildContainer()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx = tools.WithCall(ctx, tools.CallContext{Source: "cli"})

		out, err := c.Registry().Execute(ctx, args[0], params)
		if err != nil {
			return err
		}
		return printResult(out, toolsRunFormat)
	},
}

func init() {
	toolsRunCmd.Flags().StringVarP(&toolsRunArgsFile, "args-file", "f", "", "Read arguments from a JSON or YAML file")
	toolsRunCmd.Flags().StringVarP(&toolsRunFormat, "format", "o", "json", "Output format: json or yaml")
}

// toolArgs decodes the positional JSON object or the args file.
func toolArgs(positional []string, file string) (map[string]any, error) {
	params := map[string]any{}
	switch {
	case file != "" && len(positional) > 0:
		return nil, fmt.Errorf("pass arguments either inline or with --args-file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		ext := strings.ToLower(filepath.Ext(file))
		if ext == ".yaml" || ext == ".yml" {
			if err := yaml.Unmarshal(data, &params); err != nil {
				return nil, fmt.Errorf("parse %s: %w", file, err)
			}
			return params, nil
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	case len(positional) > 0:
		if err := json.Unmarshal([]byte(positional[0]), &params); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	return params, nil
}

func printResult(out, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		var v any
		if json.Unmarshal([]byte(out), &v) != nil {
			fmt.Println(out)
			return nil
		}
		return writeJSON(v)
	case "yaml", "yml":
		var v any
		if err := json.Unmarshal([]byte(out), &v); err != nil {
			fmt.Println(out)
			return nil
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (json or yaml)", format)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
