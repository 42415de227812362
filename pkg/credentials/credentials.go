// Package credentials stores LLM platform API keys in credentials.toml so
// the chat backend can run without exporting them in every shell.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/consolechat/pkg/dotdir"
	"github.com/papercomputeco/consolechat/pkg/llm"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Manager manages reading and writing credentials.toml in the .consolechat/
// directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it
// is used as the .consolechat/ directory; otherwise the standard dotdir
// resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{ddm: dotdir.NewManager()}

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)
	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Platforms: make(map[string]PlatformCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Platforms == nil {
		creds.Platforms = make(map[string]PlatformCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given platform.
func (m *Manager) SetKey(platform, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Platforms[platform] = PlatformCredential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given platform, or "" when none
// is stored.
func (m *Manager) GetKey(platform string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Platforms[platform].APIKey, nil
}

// RemoveKey deletes the stored credential for a platform.
func (m *Manager) RemoveKey(platform string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Platforms, platform)

	return m.Save(creds)
}

// ListPlatforms returns the names of platforms that have stored credentials.
func (m *Manager) ListPlatforms() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	platforms := make([]string, 0, len(creds.Platforms))
	for name := range creds.Platforms {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)

	return platforms, nil
}

// ExportEnv sets each stored key as its platform's API key variable. Keys
// already present in the environment win. It returns the variables it set.
func (m *Manager) ExportEnv() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	var exported []string
	for name, pc := range creds.Platforms {
		envVar := EnvVarForPlatform(name)
		if envVar == "" || pc.APIKey == "" {
			continue
		}
		if _, ok := os.LookupEnv(envVar); ok {
			continue
		}
		if err := os.Setenv(envVar, pc.APIKey); err != nil {
			return exported, fmt.Errorf("setting %s: %w", envVar, err)
		}
		exported = append(exported, envVar)
	}
	sort.Strings(exported)

	return exported, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForPlatform returns the environment variable holding the API key of
// the given platform. Returns "" for unknown platforms and for platforms
// that take no key.
func EnvVarForPlatform(platform string) string {
	if !IsSupportedPlatform(platform) {
		return ""
	}
	return llm.Platform(platform).APIKeyEnv()
}

// SupportedPlatforms returns the platforms that require API keys.
func SupportedPlatforms() []string {
	var names []string
	for _, p := range llm.Platforms() {
		if p.APIKeyEnv() != "" {
			names = append(names, p.String())
		}
	}
	return names
}

// IsSupportedPlatform returns true if the given platform takes an API key.
func IsSupportedPlatform(platform string) bool {
	return slices.Contains(SupportedPlatforms(), platform)
}
