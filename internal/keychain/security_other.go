// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import (
	"errors"
	"runtime"
)

var errNoNativeBackend = errors.New("no keychain command on " + runtime.GOOS)

// nativeBackend has nothing to offer outside macOS; Secret Service, KWallet,
// pass and WinCred are reached through the keyring backend instead.
func nativeBackend() (keychainBackend, error) {
	return nil, errNoNativeBackend
}
