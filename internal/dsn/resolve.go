// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"errors"
	"os"
	"strings"
)

// Source names where a DSN was found.
type Source string

const (
	SourceEnv         Source = "CORTEXQ_DSN environment variable"
	SourceDatabaseURL Source = "DATABASE_URL environment variable"
	SourceKeychain    Source = "OS keychain"
)

// ErrNotConfigured is returned when no source holds a DSN.
var ErrNotConfigured = errors.New("no database connection configured; run 'cortexq connect'")

// Store is the keychain view Resolve needs.
type Store interface {
	LoadDBDSN() (string, error)
}

// Resolve finds the raw DSN: CORTEXQ_DSN first, then DATABASE_URL, then store.
// store may be nil when secure storage is unavailable.
func Resolve(store Store) (string, Source, error) {
	if v := strings.TrimSpace(os.Getenv("CORTEXQ_DSN")); v != "" {
		return v, SourceEnv, nil
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v, SourceDatabaseURL, nil
	}
	if store != nil {
		if v, err := store.LoadDBDSN(); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), SourceKeychain, nil
		}
	}
	return "", "", ErrNotConfigured
}
