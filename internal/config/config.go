// Package config holds rw's layered configuration: defaults, then
// .rwallet/config.yaml (or the user config), then RW_* environment
// variables, then flags bound by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DirName is the per-wallet directory discovered by walking up from CWD.
	DirName = ".rwallet"
	// FileName is the config file inside DirName.
	FileName = "config.yaml"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
	}

	// RW_DOLT_SERVER_MODE -> dolt.server-mode, RW_LOCK_TIMEOUT -> lock-timeout
	v.SetEnvPrefix("RW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("backend", "sqlite")
	v.SetDefault("key", "")
	v.SetDefault("json", false)
	v.SetDefault("lock-timeout", 30*time.Second)

	v.SetDefault("dolt.server-mode", false)
	v.SetDefault("dolt.host", "127.0.0.1")
	v.SetDefault("dolt.port", 3307)
	v.SetDefault("dolt.user", "root")
	v.SetDefault("dolt.database", "rwallet")
	v.SetDefault("dolt.auto-commit", true)

	v.SetDefault("wallet.address", "")
	v.SetDefault("wallet.asset", "")
	v.SetDefault("auth.tolerance", 5*time.Minute)
	v.SetDefault("auth.verify", true)

	v.SetDefault("nats.url", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.otlp-endpoint", "")
}

// findConfigFile returns the nearest .rwallet/config.yaml walking up from
// CWD, falling back to the user config directory.
func findConfigFile() string {
	if dir := FindWalletDir(); dir != "" {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(userDir, "rwallet", FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindWalletDir walks up from CWD looking for a .rwallet directory.
// Returns "" if none exists.
func FindWalletDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// WalletDir returns the discovered .rwallet directory, or CWD/.rwallet when
// none exists yet (as for a first `rw init`).
func WalletDir() string {
	if dir := FindWalletDir(); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return DirName
	}
	return filepath.Join(cwd, DirName)
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a string slice configuration value
func GetStringSlice(key string) []string {
	if v == nil {
		return []string{}
	}
	return v.GetStringSlice(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ResetForTesting drops the singleton so the next Initialize starts clean.
func ResetForTesting() {
	v = nil
}
