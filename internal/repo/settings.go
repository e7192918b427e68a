package repo

import (
	"context"
	"encoding/json"
	"fmt"
)

// SettingsStore is a small key/value store for user settings. Values are
// JSON documents; absence of a key is not an error.
type SettingsStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]json.RawMessage, error)
}

// GetBool reads key as a boolean. An absent key reads as false.
func GetBool(ctx context.Context, s SettingsStore, key string) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
