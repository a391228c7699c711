// Package report stores exported incident reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists exported reports by file name.
type Store interface {
	Put(ctx context.Context, name string, content []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// URL returns a download link when the backend has one, or "".
	URL(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]string, error)
}

var (
	ErrNotFound    = errors.New("report not found")
	ErrInvalidName = errors.New("invalid report name")
)

// cleanName accepts flat file names only.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}
