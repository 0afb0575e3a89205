package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// validKeyRe validates logical key names. Path segments are separated by "/"
// so parameterized keys like "recovery_address/0xabc" stay readable in SQL dumps.
var validKeyRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*(/[a-zA-Z0-9_.:-]+)*$`)

// ValidateKey returns an error if key is not a well-formed logical key.
func ValidateKey(key Key) error {
	if !validKeyRe.MatchString(string(key)) {
		return fmt.Errorf("invalid storage key: %q", key)
	}
	return nil
}

// GetJSON reads key and decodes its JSON value into v.
// Returns ErrNotFound (wrapped) when the key is absent.
func GetJSON(ctx context.Context, r Reader, key Key, v any) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// GetJSONOr is GetJSON with a fallback: when key is absent v is left unchanged
// and no error is returned.
func GetJSONOr(ctx context.Context, r Reader, key Key, v any) error {
	err := GetJSON(ctx, r, key, v)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// SetJSON encodes v as JSON and stores it at key.
func SetJSON(ctx context.Context, w Writer, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := w.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
