package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain runs the package tests in a scratch HOME and working directory,
// with every RW_* variable removed, so defaults are what the tests see.
func TestMain(m *testing.M) {
	scratch, err := os.MkdirTemp("", "rwallet-config-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config tests: %v\n", err)
		os.Exit(1)
	}

	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "RW_") {
			_ = os.Unsetenv(name)
		}
	}
	wd, _ := os.Getwd()
	_ = os.Chdir(scratch)
	_ = os.Setenv("HOME", scratch)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(scratch, ".config"))
	ResetForTesting()

	code := m.Run()

	_ = os.Chdir(wd)
	_ = os.RemoveAll(scratch)
	os.Exit(code)
}
