package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV map[string]string

func (m memKV) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memKV) Set(key, value string) error {
	m[key] = value
	return nil
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	ct, err := Encrypt("sk-test-123", key)
	require.NoError(t, err)
	assert.NotContains(t, ct, "sk-test")

	pt, err := Decrypt(ct, key)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", pt)

	other, err := GenerateKey()
	require.NoError(t, err)
	_, err = Decrypt(ct, other)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Encrypt("x", []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = Decrypt(base64.StdEncoding.EncodeToString([]byte("abc")), key)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestKeyManagerWithoutMasterKey(t *testing.T) {
	kv := memKV{}
	km, err := NewKeyManager("", kv)
	require.NoError(t, err)
	assert.False(t, km.HasMasterKey())

	sealed, err := km.Seal("postgres://u:p@db/reggenie")
	require.NoError(t, err)
	require.Contains(t, kv, DataKeyKey)

	// a fresh manager over the same store reads the persisted data key
	again, err := NewKeyManager("", kv)
	require.NoError(t, err)
	opened, err := again.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/reggenie", opened)
}

func TestKeyManagerWithMasterKey(t *testing.T) {
	master, err := GenerateKey()
	require.NoError(t, err)
	masterB64 := base64.StdEncoding.EncodeToString(master)

	kv := memKV{}
	km, err := NewKeyManager(masterB64, kv)
	require.NoError(t, err)
	assert.True(t, km.HasMasterKey())

	sealed, err := km.Seal("sk-abc")
	require.NoError(t, err)

	// the stored data key is wrapped, so it is not a bare 32-byte key
	raw, err := base64.StdEncoding.DecodeString(kv[DataKeyKey])
	require.NoError(t, err)
	assert.NotEqual(t, 32, len(raw))

	again, err := NewKeyManager(masterB64, kv)
	require.NoError(t, err)
	opened, err := again.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", opened)

	wrong, err := GenerateKey()
	require.NoError(t, err)
	bad, err := NewKeyManager(base64.StdEncoding.EncodeToString(wrong), kv)
	require.NoError(t, err)
	_, err = bad.Open(sealed)
	assert.ErrorIs(t, err, ErrDataKeyDecryptFailed)
}

func TestNewKeyManagerRejectsBadMasterKey(t *testing.T) {
	_, err := NewKeyManager("not base64!", memKV{})
	assert.ErrorIs(t, err, ErrInvalidMasterKey)

	_, err = NewKeyManager(base64.StdEncoding.EncodeToString([]byte("too short")), memKV{})
	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}
