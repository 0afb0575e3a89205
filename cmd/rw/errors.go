package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/lockfile"
	"github.com/steveyegge/rwallet/internal/wallet"
)

// FatalError writes an error message to stderr and exits with code 1.
// Use this for fatal errors that prevent the command from completing.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
//
// Example:
//
//	FatalErrorWithHint("no .rwallet directory found", "Run 'rw init' to create a wallet")
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for optional operations that enhance functionality but aren't required.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// exitWithError reports err and exits. In JSON mode the error goes to
// stderr as {"error", "code"}, where code is the wallet error code.
func exitWithError(err error) {
	if jsonOutput {
		outputJSONError(err, wallet.Code(err))
	}
	if hint := hintFor(err); hint != "" {
		FatalErrorWithHint(err.Error(), hint)
	}
	FatalError("%v", err)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, errNoWalletDir), errors.Is(err, wallet.ErrNotInitialized):
		return "Run 'rw init' to create a wallet"
	case errors.Is(err, errNoWalletAddress):
		return "Run 'rw init', or set one with 'rw config set wallet.address <addr>'"
	case errors.Is(err, wallet.ErrRecoveryInProgress):
		return "Run 'rw status' to see when the open recovery window closes"
	case errors.Is(err, wallet.ErrSignatureThresholdAlreadyReached):
		return "Run 'rw state' to apply the finished recovery"
	case errors.Is(err, auth.ErrSignatureExpired), errors.Is(err, auth.ErrSignatureFuture):
		return "Check the local clock; proofs must be within auth.tolerance of ledger time"
	case errors.Is(err, lockfile.ErrLockBusy):
		return "Another rw process holds the wallet; retry or raise --lock-timeout"
	}
	return ""
}
