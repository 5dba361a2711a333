// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/charmbracelet/log"
)

// ErrMasterKeyRequired is returned when a data directory holds an encrypted
// master key but no passphrase was given.
var ErrMasterKeyRequired = errors.New("master key exists but no passphrase was provided")

// LoadMasterKey reads the master key in dataDir with passphrase, creating
// it on first use. An empty passphrase selects unencrypted storage and
// returns a nil key, unless the directory was already set up encrypted.
func LoadMasterKey(dataDir, passphrase string) (crypto.MasterKey, error) {
	keyFile := filepath.Join(dataDir, "master.key")
	if passphrase == "" {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s: %w", keyFile, ErrMasterKeyRequired)
		}
		log.Warn("No master key passphrase provided. Data will be stored UNENCRYPTED.")
		return nil, nil
	}

	// Ensure data dir exists for key file
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	mk, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
	if err == nil {
		log.Info("Loaded master encryption key.")
		return mk, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}
	log.Info("Initializing new master encryption key...")
	if mk, err = crypto.CreateMasterKey(); err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	if err := mk.Save([]byte(passphrase), keyFile); err != nil {
		return nil, fmt.Errorf("failed to save master key: %w", err)
	}
	return mk, nil
}

// OpenStorage returns the (optionally encrypted) file storage for dataDir.
func OpenStorage(dataDir, passphrase string) (*storage.Storage, error) {
	mk, err := LoadMasterKey(dataDir, passphrase)
	if err != nil {
		return nil, err
	}
	s := storage.New(dataDir, mk)
	s.EnableCompression(true)
	return s, nil
}
