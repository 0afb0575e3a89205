package wallet

import "errors"

// Error is a wallet domain error. Code is stable across releases and is
// reported by the CLI in JSON mode.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Sentinel errors. Callers match with errors.Is; details are added by
// wrapping with %w.
var (
	ErrNotInitialized                   = &Error{Code: 1, Msg: "wallet not initialized"}
	ErrInvalidRecoveryAddress           = &Error{Code: 2, Msg: "invalid recovery address"}
	ErrInvalidRecoveryThreshold         = &Error{Code: 3, Msg: "invalid recovery threshold"}
	ErrRecoveryNotInProgress            = &Error{Code: 4, Msg: "recovery not in progress"}
	ErrInvalidNewOwnerAddress           = &Error{Code: 5, Msg: "invalid new owner address"}
	ErrAlreadySigned                    = &Error{Code: 6, Msg: "already signed"}
	ErrRecoveryInProgress               = &Error{Code: 7, Msg: "recovery in progress"}
	ErrInsufficientFunds                = &Error{Code: 8, Msg: "insufficient funds"}
	ErrSignatureThresholdAlreadyReached = &Error{Code: 9, Msg: "signature threshold already reached"}
	ErrAlreadyInitialized               = &Error{Code: 10, Msg: "wallet already initialized"}
	ErrInvalidAmount                    = &Error{Code: 11, Msg: "invalid amount"}
	ErrAssetMismatch                    = &Error{Code: 12, Msg: "asset does not match custody asset"}
	ErrInvalidOwnerAddress              = &Error{Code: 13, Msg: "invalid owner address"}
)

// Code returns the wallet error code carried by err, or 0 if err is nil or
// not a wallet error.
func Code(err error) int {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return 0
}
