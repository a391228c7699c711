// Package kvstore is the local key-value store for user progress: detector
// badges, quiz history and user-authored learning content. Values are JSON.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("kvstore: key not found")

// UpdateFunc receives the current value (nil when absent) and returns the
// value to store.
type UpdateFunc func(cur json.RawMessage) (json.RawMessage, error)

type Store interface {
	GetRaw(ctx context.Context, key string) (json.RawMessage, error)
	SetRaw(ctx context.Context, key string, value json.RawMessage) error
	// Update runs fn atomically with respect to other writers of key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Get decodes key into v. A missing key leaves v untouched and reports false.
func Get(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.GetRaw(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return true, nil
}

func Set(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	return s.SetRaw(ctx, key, raw)
}

// Append adds item to the JSON array stored at key, creating it if needed.
func Append(ctx context.Context, s Store, key string, item any) error {
	enc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	return s.Update(ctx, key, func(cur json.RawMessage) (json.RawMessage, error) {
		var list []json.RawMessage
		if len(cur) > 0 {
			if err := json.Unmarshal(cur, &list); err != nil {
				return nil, fmt.Errorf("kvstore: %q is not a list: %w", key, err)
			}
		}
		return json.Marshal(append(list, enc))
	})
}

// Modify decodes key into a T (zero when absent), applies fn and stores the
// result. It returns the stored value.
func Modify[T any](ctx context.Context, s Store, key string, fn func(*T) error) (T, error) {
	var out T
	err := s.Update(ctx, key, func(cur json.RawMessage) (json.RawMessage, error) {
		var v T
		if len(cur) > 0 {
			if err := json.Unmarshal(cur, &v); err != nil {
				return nil, fmt.Errorf("kvstore: decode %q: %w", key, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		out = v
		return json.Marshal(v)
	})
	return out, err
}
