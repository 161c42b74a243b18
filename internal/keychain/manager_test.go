// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestManagerDSNLifecycle(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil))

	if _, err := m.LoadDBDSN(); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("empty keyring: expected ErrNoDSN, got %v", err)
	}

	const dsn = "postgresql://u:p@localhost:5432/db"
	if err := m.SaveDBDSN(dsn); err != nil {
		t.Fatalf("SaveDBDSN() error: %v", err)
	}
	got, err := m.LoadDBDSN()
	if err != nil {
		t.Fatalf("LoadDBDSN() error: %v", err)
	}
	if got != dsn {
		t.Errorf("LoadDBDSN() = %q, want %q", got, dsn)
	}

	if err := m.ClearDB(); err != nil {
		t.Fatalf("ClearDB() error: %v", err)
	}
	if _, err := m.LoadDBDSN(); !errors.Is(err, ErrNoDSN) {
		t.Errorf("after ClearDB: expected ErrNoDSN, got %v", err)
	}
	if err := m.ClearDB(); err != nil {
		t.Errorf("ClearDB() on empty keyring should succeed, got %v", err)
	}
}

func TestManagerBlankDSN(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: KeyDBDSN, Data: []byte("  \n")}})
	if _, err := NewManagerWithRing(ring).LoadDBDSN(); !errors.Is(err, ErrNoDSN) {
		t.Errorf("blank entry: expected ErrNoDSN, got %v", err)
	}
}
