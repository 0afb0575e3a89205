package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeWalletConfig creates dir/.rwallet/config.yaml with content and chdirs
// into dir for the rest of the test.
func writeWalletConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	walletDir := filepath.Join(tmpDir, DirName)
	if err := os.MkdirAll(walletDir, 0750); err != nil {
		t.Fatalf("failed to create %s directory: %v", DirName, err)
	}
	if content != "" {
		if err := os.WriteFile(filepath.Join(walletDir, FileName), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
	}
	t.Chdir(tmpDir)
	return walletDir
}

func TestInitialize(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed() = %q, want empty outside a wallet", got)
	}
}

func TestDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"db", "", func(k string) interface{} { return GetString(k) }},
		{"backend", "sqlite", func(k string) interface{} { return GetString(k) }},
		{"lock-timeout", 30 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"dolt.port", 3307, func(k string) interface{} { return GetInt(k) }},
		{"dolt.database", "rwallet", func(k string) interface{} { return GetString(k) }},
		{"dolt.auto-commit", true, func(k string) interface{} { return GetBool(k) }},
		{"auth.tolerance", 5 * time.Minute, func(k string) interface{} { return GetDuration(k) }},
		{"auth.verify", true, func(k string) interface{} { return GetBool(k) }},
		{"nats.url", "", func(k string) interface{} { return GetString(k) }},
		{"telemetry.enabled", false, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"RW_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"RW_DB", "db", "/tmp/test.db", "/tmp/test.db", func(k string) interface{} { return GetString(k) }},
		{"RW_LOCK_TIMEOUT", "lock-timeout", "10s", 10 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"RW_DOLT_SERVER_MODE", "dolt.server-mode", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"RW_WALLET_ADDRESS", "wallet.address", "0xabc", "0xabc", func(k string) interface{} { return GetString(k) }},
		{"RW_TELEMETRY_OTLP_ENDPOINT", "telemetry.otlp-endpoint", "localhost:4318", "localhost:4318", func(k string) interface{} { return GetString(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	walletDir := writeWalletConfig(t, `
json: true
backend: dolt
lock-timeout: 15s
dolt:
  server-mode: true
  port: 3310
wallet:
  address: "0x00000000000000000000000000000000000000aa"
`)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got, want := ConfigFileUsed(), filepath.Join(walletDir, FileName); !sameFile(t, got, want) {
		t.Errorf("ConfigFileUsed() = %q, want %q", got, want)
	}
	if got := GetBool("json"); !got {
		t.Errorf("GetBool(json) = %v, want true", got)
	}
	if got := GetString("backend"); got != "dolt" {
		t.Errorf("GetString(backend) = %q, want dolt", got)
	}
	if got := GetDuration("lock-timeout"); got != 15*time.Second {
		t.Errorf("GetDuration(lock-timeout) = %v, want 15s", got)
	}
	if got := GetBool("dolt.server-mode"); !got {
		t.Errorf("GetBool(dolt.server-mode) = %v, want true", got)
	}
	if got := GetInt("dolt.port"); got != 3310 {
		t.Errorf("GetInt(dolt.port) = %d, want 3310", got)
	}
	if got := GetString("dolt.host"); got != "127.0.0.1" {
		t.Errorf("GetString(dolt.host) = %q, want default", got)
	}
	if got := GetString("wallet.address"); got != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("GetString(wallet.address) = %q", got)
	}
}

func TestConfigFileFoundFromSubdirectory(t *testing.T) {
	writeWalletConfig(t, "backend: memory\n")
	cwd, _ := os.Getwd()
	sub := filepath.Join(cwd, "a", "b")
	if err := os.MkdirAll(sub, 0750); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("backend"); got != "memory" {
		t.Errorf("GetString(backend) = %q, want memory", got)
	}
	if got := WalletDir(); !sameFile(t, got, filepath.Join(cwd, DirName)) {
		t.Errorf("WalletDir() = %q", got)
	}
}

func TestUserConfigFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "rwallet"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "rwallet", FileName), []byte("nats.url: nats://example:4222\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("nats.url"); got != "nats://example:4222" {
		t.Errorf("GetString(nats.url) = %q", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	writeWalletConfig(t, "json: false\n")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBool("json"); got {
		t.Errorf("GetBool(json) from config file = %v, want false", got)
	}

	t.Setenv("RW_JSON", "true")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBool("json"); !got {
		t.Errorf("GetBool(json) with env var = %v, want true (env should override config)", got)
	}
}

func TestInvalidConfigFile(t *testing.T) {
	writeWalletConfig(t, "json: [unterminated\n")
	if err := Initialize(); err == nil {
		t.Fatal("Initialize() should fail on malformed YAML")
	}
}

func TestWalletDirWithoutWallet(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if got := FindWalletDir(); got != "" {
		t.Errorf("FindWalletDir() = %q, want empty", got)
	}
	if got := WalletDir(); !sameFile(t, filepath.Dir(got), dir) || filepath.Base(got) != DirName {
		t.Errorf("WalletDir() = %q, want %s under %s", got, DirName, dir)
	}
}

func TestSetAndGet(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("test-key", "test-value")
	if got := GetString("test-key"); got != "test-value" {
		t.Errorf("GetString(test-key) = %q, want \"test-value\"", got)
	}
	Set("test-slice", []string{"a", "b"})
	if got := GetStringSlice("test-slice"); len(got) != 2 || got[1] != "b" {
		t.Errorf("GetStringSlice(test-slice) = %v", got)
	}
	if val, ok := AllSettings()["test-key"]; !ok || val != "test-value" {
		t.Errorf("AllSettings() missing or incorrect test-key: got %v", val)
	}
}

func TestNilViperBehavior(t *testing.T) {
	savedV := v
	v = nil
	defer func() { v = savedV }()

	if got := GetString("any-key"); got != "" {
		t.Errorf("GetString with nil viper = %q, want \"\"", got)
	}
	if got := GetBool("any-key"); got {
		t.Errorf("GetBool with nil viper = %v, want false", got)
	}
	if got := GetInt("any-key"); got != 0 {
		t.Errorf("GetInt with nil viper = %d, want 0", got)
	}
	if got := GetDuration("any-key"); got != 0 {
		t.Errorf("GetDuration with nil viper = %v, want 0", got)
	}
	if got := GetStringSlice("any-key"); got == nil || len(got) != 0 {
		t.Errorf("GetStringSlice with nil viper = %v, want empty slice", got)
	}
	if got := AllSettings(); got == nil || len(got) != 0 {
		t.Errorf("AllSettings with nil viper = %v, want empty map", got)
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed with nil viper = %q", got)
	}
	Set("any-key", "any-value") // no-op
}

// sameFile compares paths after resolving symlinks (macOS /var -> /private/var).
func sameFile(t *testing.T, a, b string) bool {
	t.Helper()
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ra == rb
}
