package store

import (
	"context"
	"encoding/json"
)

// Collection keys. The serialized layout is part of the external interface
// and must stay stable across backends.
const (
	KeyUsers       = "tp_users"
	KeyTeams       = "tp_teams"
	KeySubmissions = "tp_submissions"
	KeyRedirects   = "tp_redirects"
	KeyCurrentUser = "tp_current_user"
)

// Store persists named collections as opaque serialized blobs. Every mutation
// in the services is a full load-modify-save cycle; the store offers no
// partial updates and no locking. Load returns (nil, nil) when the key is
// absent.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadList reads a collection as an ordered slice. Absent keys and content
// that fails to parse both load as an empty collection.
func LoadList[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil
	}
	return items, nil
}

// SaveList overwrites a collection with the given slice.
func SaveList[T any](ctx context.Context, s Store, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, raw)
}

// LoadValue reads a single-value key such as the session slot. Returns
// (nil, nil) when the key is absent or unparsable.
func LoadValue[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, nil
	}
	return &value, nil
}

// SaveValue overwrites a single-value key.
func SaveValue[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, raw)
}
