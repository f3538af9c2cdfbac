// Package theme stores the display theme preference. The preference is
// device-local under the key "preferredTheme" and is deliberately never
// written to the account store, so two devices on the same account can
// disagree.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	Light = "light"
	Dark  = "dark"

	// Key is the name of the device-local preference and of the file it
	// is stored in.
	Key = "preferredTheme"
)

// Store reads and writes the preference under dir.
type Store struct {
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, Key)}
}

// DefaultDir places the preference under the user's config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "bilancio"), nil
}

// Load returns the saved theme. A missing or unrecognized value falls back
// to Light rather than erroring: the preference is cosmetic.
func (s *Store) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Light
	}
	switch strings.TrimSpace(string(data)) {
	case Dark:
		return Dark
	default:
		return Light
	}
}

// Save persists the theme, creating the directory on first use.
func (s *Store) Save(theme string) error {
	if theme != Light && theme != Dark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(theme+"\n"), 0o644); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	return nil
}

// Toggle flips the saved theme and returns the new value.
func (s *Store) Toggle() (string, error) {
	next := Light
	if s.Load() == Light {
		next = Dark
	}
	if err := s.Save(next); err != nil {
		return "", err
	}
	return next, nil
}
