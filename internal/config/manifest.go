package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Manifest describes a wallet for `rw init --manifest`. The window is kept
// as text ("3d", "86400", "in 2 weeks") and resolved by the caller.
type Manifest struct {
	Owner             string   `toml:"owner" yaml:"owner"`
	RecoveryAddresses []string `toml:"recovery_addresses" yaml:"recovery_addresses"`
	RecoveryThreshold uint32   `toml:"recovery_threshold" yaml:"recovery_threshold"`
	RecoveryWindow    string   `toml:"recovery_window" yaml:"recovery_window"`
	Asset             string   `toml:"asset,omitempty" yaml:"asset,omitempty"`
}

// LoadManifest reads a manifest, choosing the decoder by file extension:
// .toml for TOML, .yaml/.yml/.json for YAML (JSON being a YAML subset).
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied manifest path
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, strings.ToLower(filepath.Ext(path)))
}

// ParseManifest decodes data in the format named by ext.
func ParseManifest(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch ext {
	case ".toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse manifest: unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml", ".json":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .toml, .yaml, .yml or .json)", ext)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate checks presence only; addresses and the threshold are validated
// by the wallet itself.
func (m *Manifest) validate() error {
	switch {
	case strings.TrimSpace(m.Owner) == "":
		return fmt.Errorf("manifest: owner is required")
	case strings.TrimSpace(m.RecoveryWindow) == "":
		return fmt.Errorf("manifest: recovery_window is required")
	}
	return nil
}

// EncodeTOML renders m as TOML.
func (m *Manifest) EncodeTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeYAML renders m as YAML.
func (m *Manifest) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(m)
}
