package credentials

// Credentials represents the stored platform API keys in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Platforms map[string]PlatformCredential `toml:"platforms"`
}

// PlatformCredential holds the API key for a single platform.
type PlatformCredential struct {
	APIKey string `toml:"api_key"`
}
