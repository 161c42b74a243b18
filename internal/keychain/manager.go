// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the backend DSN in the OS credential store.
// The DSN carries the database password, so it never touches the config file.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "cortexq"

// KeyDBDSN is the item key holding the backend DSN.
const KeyDBDSN = "db_dsn"

// ErrNoDSN is returned when the keychain holds no DSN.
var ErrNoDSN = errors.New("no DSN stored in keychain")

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// Manager provides thread-safe access to the stored DSN.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the process-wide manager, opening the keyring on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the native credential store for the current platform.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          allowed,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return ring, nil
}

// SaveDBDSN stores the database DSN.
func (m *Manager) SaveDBDSN(dsn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: KeyDBDSN, Data: []byte(dsn), Label: "cortexq database connection"})
}

// LoadDBDSN retrieves the database DSN.
func (m *Manager) LoadDBDSN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(KeyDBDSN)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoDSN
	}
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(it.Data))
	if v == "" {
		return "", ErrNoDSN
	}
	return v, nil
}

// ClearDB removes the stored DSN. A missing entry is not an error.
func (m *Manager) ClearDB() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ring.Remove(KeyDBDSN); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
