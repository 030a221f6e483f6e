package tool

// PrivyConfig holds Privy app credentials and the authorization key used
// to sign wallet RPC requests.
type PrivyConfig struct {
	AppID      string `json:"appId"`
	AppSecret  string `json:"appSecret"`
	SigningKey string `json:"signingKey"` // "wallet-auth:<base64 PKCS#8>"
	OwnerID    string `json:"ownerId,omitempty"`
}

// Configured reports whether the app credentials and signing key are all set.
func (c PrivyConfig) Configured() bool {
	return c.AppID != "" && c.AppSecret != "" && c.SigningKey != ""
}
