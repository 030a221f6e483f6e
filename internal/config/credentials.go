package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// ErrInsecurePermissions is returned when the credentials file is readable
// by group or others.
var ErrInsecurePermissions = errors.New("credentials file has insecure permissions")

// Credentials holds secrets loaded from credentials.toml, keyed by section
// then field:
//
//	[birdeye]
//	api_key = "..."
//
//	[privy]
//	app_id = "..."
//	app_secret = "..."
//	signing_key = "wallet-auth:..."
type Credentials struct {
	sections map[string]map[string]string
}

// CredentialPaths returns the credential file locations in priority order.
func CredentialPaths() []string {
	paths := []string{"credentials.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "sakit", "credentials.toml"),
			filepath.Join(home, ".sakit", "credentials.toml"),
		)
	}
	return paths
}

// LoadCredentials loads the first credentials file found in CredentialPaths.
// A missing file is not an error; it returns (nil, "", nil).
func LoadCredentials() (*Credentials, string, error) {
	for _, path := range CredentialPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadCredentialsFile(path)
			return creds, path, err
		}
	}
	return nil, "", nil
}

// LoadCredentialsFile parses path. On Unix the file must be 0600 or 0400.
func LoadCredentialsFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0600 or 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	creds := &Credentials{sections: make(map[string]map[string]string, len(raw))}
	for name, v := range raw {
		section, ok := v.(map[string]any)
		if !ok {
			continue
		}
		fields := make(map[string]string, len(section))
		for k, fv := range section {
			if s, ok := fv.(string); ok && s != "" {
				fields[k] = s
			}
		}
		creds.sections[name] = fields
	}
	return creds, nil
}

// Get returns section.field, or "" when absent. Safe on a nil receiver.
func (c *Credentials) Get(section, field string) string {
	if c == nil {
		return ""
	}
	return c.sections[section][field]
}

// ApplyCredentials fills empty secrets from creds, then from the
// environment. Values already present in config.json win.
func (c *Config) ApplyCredentials(creds *Credentials) {
	fill := func(dst *string, section, field, env string) {
		if *dst != "" {
			return
		}
		if v := creds.Get(section, field); v != "" {
			*dst = v
			return
		}
		*dst = os.Getenv(env)
	}

	t := &c.Tools
	fill(&t.Birdeye.APIKey, "birdeye", "api_key", "BIRDEYE_API_KEY")
	fill(&t.Vybe.APIKey, "vybe", "api_key", "VYBE_API_KEY")
	fill(&t.Jupiter.APIKey, "jupiter", "api_key", "JUPITER_API_KEY")
	fill(&t.Privy.AppID, "privy", "app_id", "PRIVY_APP_ID")
	fill(&t.Privy.AppSecret, "privy", "app_secret", "PRIVY_APP_SECRET")
	fill(&t.Privy.SigningKey, "privy", "signing_key", "PRIVY_SIGNING_KEY")

	switch t.Search.Provider {
	case "openai":
		fill(&t.Search.APIKey, "openai", "api_key", "OPENAI_API_KEY")
	default:
		fill(&t.Search.APIKey, "perplexity", "api_key", "PERPLEXITY_API_KEY")
	}

	fill(&c.Solana.RPCURL, "solana", "rpc_url", "SOLANA_RPC_URL")
	fill(&c.Solana.PrivateKey, "solana", "private_key", "SOLANA_PRIVATE_KEY")
	fill(&c.Solana.PayerPrivateKey, "solana", "payer_private_key", "SOLANA_PAYER_PRIVATE_KEY")
}
