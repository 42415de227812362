// Package dotdir manages the .consolechat/ and ~/.consolechat directories
// that hold config.toml and the chat session state.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the consolechat state directory.
const DirName = ".consolechat"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .consolechat/ directory, creating it
// when missing. Precedence:
//  1. overrideDir, when non-empty
//  2. ./.consolechat/ in the working directory, when it exists
//  3. ~/.consolechat/
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s directory %s: %w", DirName, dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
