// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain remembers basic-auth passwords for cluster accounts in the
// OS credential store, so `connect -u user` can run without a prompt.
//
// Accounts are keyed "user@host:port". An index item lists every saved
// account so they can be cleared together. On macOS the security command is
// used directly; everywhere else the 99designs/keyring backends are.
package keychain

import (
	stderrors "errors"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = stderrors.New("credential not found")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "opensearchsql"

const (
	passwordPrefix = "password:"
	keyAccounts    = "accounts"
)

// Manager provides thread-safe password storage on top of a backend.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	// Get returns ErrNotFound for a missing key.
	Get(key string) (string, error)
	// Delete succeeds for a missing key.
	Delete(key string) error
}

// Account builds the account key for user on host:port.
func Account(user, hostPort string) string {
	return user + "@" + hostPort
}

// NewManager creates a keychain manager on the native credential store.
func NewManager() (*Manager, error) {
	if backend, err := nativeBackend(); err == nil {
		return &Manager{backend: backend}, nil
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{backend: ringBackend{ring: ring}}, nil
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// Encrypted file fallback is never used.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	default:
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	}

	cfg := keyring.Config{
		ServiceName:             ServiceName,
		AllowedBackends:         allowedBackends,
		PassPrefix:              ServiceName,
		LibSecretCollectionName: "login",
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, stderrors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// SavePassword stores password for account and records the account in the index.
func (m *Manager) SavePassword(account, password string) error {
	if account == "" || password == "" {
		return stderrors.New("account and password are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Set(passwordPrefix+account, password); err != nil {
		return err
	}
	accounts, err := m.accountsLocked()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a == account {
			return nil
		}
	}
	return m.writeAccountsLocked(append(accounts, account))
}

// LoadPassword returns the stored password for account, or ErrNotFound.
func (m *Manager) LoadPassword(account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pw, err := m.backend.Get(passwordPrefix + account)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", ErrNotFound
	}
	return pw, nil
}

// DeletePassword forgets account. Unknown accounts are not an error.
func (m *Manager) DeletePassword(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Delete(passwordPrefix + account); err != nil {
		return err
	}
	accounts, err := m.accountsLocked()
	if err != nil {
		return err
	}
	kept := accounts[:0]
	for _, a := range accounts {
		if a != account {
			kept = append(kept, a)
		}
	}
	return m.writeAccountsLocked(kept)
}

// Accounts lists saved accounts in sorted order.
func (m *Manager) Accounts() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountsLocked()
}

// ClearAll removes every saved password and the index.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts, err := m.accountsLocked()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		_ = m.backend.Delete(passwordPrefix + a)
	}
	return m.backend.Delete(keyAccounts)
}

func (m *Manager) accountsLocked() ([]string, error) {
	raw, err := m.backend.Get(keyAccounts)
	if stderrors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			accounts = append(accounts, line)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

func (m *Manager) writeAccountsLocked(accounts []string) error {
	if len(accounts) == 0 {
		return m.backend.Delete(keyAccounts)
	}
	sort.Strings(accounts)
	return m.backend.Set(keyAccounts, strings.Join(accounts, "\n"))
}

// ringBackend adapts a keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if stderrors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if err != nil && !stderrors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
