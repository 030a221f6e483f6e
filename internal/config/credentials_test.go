package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeCredentials(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

const sampleCredentials = `
[birdeye]
api_key = "be-from-file"

[privy]
app_id = "app-1"
app_secret = "secret-1"

[solana]
rpc_url = "https://rpc.from.file"
`

func TestLoadCredentialsFile_Sections(t *testing.T) {
	path := writeCredentials(t, sampleCredentials, 0o600)

	creds, err := LoadCredentialsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := creds.Get("birdeye", "api_key"); got != "be-from-file" {
		t.Errorf("birdeye api_key = %q", got)
	}
	if got := creds.Get("privy", "app_secret"); got != "secret-1" {
		t.Errorf("privy app_secret = %q", got)
	}
	if got := creds.Get("vybe", "api_key"); got != "" {
		t.Errorf("expected empty vybe key, got %q", got)
	}
}

func TestLoadCredentialsFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission check is Unix-only")
	}
	path := writeCredentials(t, sampleCredentials, 0o644)

	_, err := LoadCredentialsFile(path)
	if !errors.Is(err, ErrInsecurePermissions) {
		t.Fatalf("expected ErrInsecurePermissions, got %v", err)
	}
}

func TestCredentials_NilReceiver(t *testing.T) {
	var c *Credentials
	if got := c.Get("birdeye", "api_key"); got != "" {
		t.Errorf("expected empty string from nil credentials, got %q", got)
	}
}

func TestApplyCredentials_Precedence(t *testing.T) {
	path := writeCredentials(t, sampleCredentials, 0o600)
	creds, err := LoadCredentialsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("BIRDEYE_API_KEY", "be-from-env")
	t.Setenv("VYBE_API_KEY", "vybe-from-env")
	t.Setenv("JUPITER_API_KEY", "")

	cfg := DefaultConfig()
	cfg.Tools.Privy.AppID = "app-from-config"
	cfg.ApplyCredentials(creds)

	if cfg.Tools.Privy.AppID != "app-from-config" {
		t.Errorf("config value should win, got %q", cfg.Tools.Privy.AppID)
	}
	if cfg.Tools.Birdeye.APIKey != "be-from-file" {
		t.Errorf("credentials file should beat env, got %q", cfg.Tools.Birdeye.APIKey)
	}
	if cfg.Tools.Vybe.APIKey != "vybe-from-env" {
		t.Errorf("env should fill remaining secrets, got %q", cfg.Tools.Vybe.APIKey)
	}
	if cfg.Solana.RPCURL != "https://rpc.from.file" {
		t.Errorf("rpc url = %q", cfg.Solana.RPCURL)
	}
	if cfg.Tools.Jupiter.APIKey != "" {
		t.Errorf("expected empty jupiter key, got %q", cfg.Tools.Jupiter.APIKey)
	}
}
