package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// KnownKeys lists every key `rw config set` accepts.
var KnownKeys = map[string]bool{
	"db":                      true,
	"backend":                 true,
	"key":                     true,
	"json":                    true,
	"lock-timeout":            true,
	"dolt.server-mode":        true,
	"dolt.host":               true,
	"dolt.port":               true,
	"dolt.user":               true,
	"dolt.database":           true,
	"dolt.auto-commit":        true,
	"wallet.address":          true,
	"wallet.asset":            true,
	"auth.tolerance":          true,
	"auth.verify":             true,
	"nats.url":                true,
	"telemetry.enabled":       true,
	"telemetry.stdout":        true,
	"telemetry.otlp-endpoint": true,
}

// keyAliases maps accepted spellings to their canonical key.
var keyAliases = map[string]string{
	"lock_timeout":    "lock-timeout",
	"wallet":          "wallet.address",
	"dolt.autocommit": "dolt.auto-commit",
}

// normalizeYamlKey converts a key alias to its canonical form.
func normalizeYamlKey(key string) string {
	if canonical, ok := keyAliases[key]; ok {
		return canonical
	}
	return key
}

// IsKnownKey reports whether key (after alias normalization) is a
// recognized setting.
func IsKnownKey(key string) bool {
	return KnownKeys[normalizeYamlKey(key)]
}

// SortedKnownKeys returns KnownKeys in lexical order.
func SortedKnownKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetYamlConfig sets a configuration value in the wallet's config.yaml,
// creating the file when the wallet directory has none yet.
func SetYamlConfig(key, value string) error {
	key = normalizeYamlKey(key)
	if !KnownKeys[key] {
		return fmt.Errorf("unknown config key %q", key)
	}

	configPath, err := findProjectConfigYaml()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // configPath is from findProjectConfigYaml
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	newContent, err := updateYamlKey(string(content), key, value)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(newContent+"\n"), 0600); err != nil { //nolint:gosec // configPath is validated
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return nil
}

// findProjectConfigYaml returns the config.yaml path of the nearest wallet
// directory. The file itself may not exist yet.
func findProjectConfigYaml() (string, error) {
	dir := FindWalletDir()
	if dir == "" {
		return "", fmt.Errorf("no %s directory found (run 'rw init' first)", DirName)
	}
	return filepath.Join(dir, FileName), nil
}

// updateYamlKey updates a key in yaml content, handling commented-out keys.
// If the key exists (commented or not), it updates it in place.
// If the key doesn't exist, it appends it at the end.
//
//nolint:unparam // error return kept for future validation
func updateYamlKey(content, key, value string) (string, error) {
	newLine := fmt.Sprintf("%s: %s", key, formatYamlValue(value))

	// Matches "key: value" or "# key: value" with optional leading whitespace.
	keyPattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	found := false
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(strings.TrimRight(content, "\n")))
	for scanner.Scan() {
		line := scanner.Text()
		if m := keyPattern.FindStringSubmatch(line); m != nil && !found {
			result = append(result, m[1]+newLine)
			found = true
			continue
		}
		result = append(result, line)
	}

	if !found {
		if len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, newLine)
	}

	return strings.Join(result, "\n"), nil
}

// formatYamlValue formats a value appropriately for YAML. Booleans, numbers
// and durations are written bare; everything else is quoted so hex
// addresses stay strings.
func formatYamlValue(value string) string {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower
	}
	if isNumeric(value) || isDuration(value) {
		return value
	}
	return fmt.Sprintf("%q", value)
}

func isNumeric(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	dots := 0
	for i, c := range s {
		switch {
		case c == '-' && i == 0:
		case c == '.':
			dots++
		case c < '0' || c > '9':
			return false
		}
	}
	return dots <= 1
}

func isDuration(s string) bool {
	if len(s) < 2 {
		return false
	}
	suffix := s[len(s)-1]
	if suffix != 's' && suffix != 'm' && suffix != 'h' {
		return false
	}
	return isNumeric(s[:len(s)-1])
}
