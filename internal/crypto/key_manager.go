// Package crypto seals secrets kept in the local store (saved API keys and
// connection strings) with AES-256-GCM.
package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
)

// DataKeyKey is the local store key holding the data key.
const DataKeyKey = "aide_settings_data_key"

var (
	ErrInvalidMasterKey     = errors.New("invalid master key: must be base64 of 32 bytes")
	ErrDataKeyDecryptFailed = errors.New("failed to decrypt data key")
)

// KV is where the data key lives.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// KeyManager owns the data key used to seal secrets. With a master key the
// stored data key is itself encrypted; without one it is stored encoded only.
type KeyManager struct {
	masterKey []byte
	kv        KV

	mu      sync.Mutex
	dataKey []byte
}

// NewKeyManager takes the base64 master key from configuration. Empty is
// allowed.
func NewKeyManager(masterKeyB64 string, kv KV) (*KeyManager, error) {
	km := &KeyManager{kv: kv}
	if masterKeyB64 == "" {
		return km, nil
	}
	masterKey, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil || len(masterKey) != 32 {
		return nil, ErrInvalidMasterKey
	}
	km.masterKey = masterKey
	return km, nil
}

// HasMasterKey reports whether the data key is wrapped.
func (km *KeyManager) HasMasterKey() bool {
	return km.masterKey != nil
}

// Seal encrypts a secret for storage.
func (km *KeyManager) Seal(plaintext string) (string, error) {
	key, err := km.loadDataKey()
	if err != nil {
		return "", err
	}
	return Encrypt(plaintext, key)
}

// Open decrypts a value produced by Seal.
func (km *KeyManager) Open(ciphertext string) (string, error) {
	key, err := km.loadDataKey()
	if err != nil {
		return "", err
	}
	return Decrypt(ciphertext, key)
}

// loadDataKey returns the cached data key, reading or generating it on
// first use.
func (km *KeyManager) loadDataKey() ([]byte, error) {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.dataKey != nil {
		return km.dataKey, nil
	}

	stored, ok, err := km.kv.Get(DataKeyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read data key: %w", err)
	}
	if ok {
		key, err := km.unwrap(stored)
		if err != nil {
			return nil, err
		}
		km.dataKey = key
		return key, nil
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	wrapped, err := km.wrap(key)
	if err != nil {
		return nil, err
	}
	if err := km.kv.Set(DataKeyKey, wrapped); err != nil {
		return nil, fmt.Errorf("failed to store data key: %w", err)
	}
	km.dataKey = key
	return key, nil
}

func (km *KeyManager) wrap(dataKey []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(dataKey)
	if km.masterKey == nil {
		return encoded, nil
	}
	return Encrypt(encoded, km.masterKey)
}

func (km *KeyManager) unwrap(stored string) ([]byte, error) {
	encoded := stored
	if km.masterKey != nil {
		var err error
		encoded, err = Decrypt(stored, km.masterKey)
		if err != nil {
			return nil, ErrDataKeyDecryptFailed
		}
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != 32 {
		return nil, ErrDataKeyDecryptFailed
	}
	return key, nil
}
