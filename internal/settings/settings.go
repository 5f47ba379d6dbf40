// Package settings persists the few key/value strings that survive restarts.
// Today that is only the API key entered in the settings dialog.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// APIKeyName is the namespaced key under which the API key is stored.
const APIKeyName = "sparky_api_key"

var ErrNotFound = errors.New("setting not found")

// Store abstracts key/value persistence. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// LoadAPIKey returns the stored API key or "" when none was saved.
func LoadAPIKey(ctx context.Context, s Store) (string, error) {
	v, err := s.Get(ctx, APIKeyName)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load api key: %w", err)
	}
	return v, nil
}

// SaveAPIKey stores key; a blank key removes the entry.
func SaveAPIKey(ctx context.Context, s Store, key string) error {
	if strings.TrimSpace(key) == "" {
		if err := s.Delete(ctx, APIKeyName); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete api key: %w", err)
		}
		return nil
	}
	if err := s.Set(ctx, APIKeyName, key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	r := []rune(secret)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
