package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func newTestService(t *testing.T) (*Service, *memKV) {
	t.Helper()
	kv := &memKV{data: map[string]string{}}
	svc, err := NewService(kv, "test-secret", time.Hour, zap.NewNop())
	require.NoError(t, err)
	return svc, kv
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		confirm string
		wantErr error
	}{
		{name: "too short", code: "abc", confirm: "abc", wantErr: ErrCodeTooShort},
		{name: "whitespace does not count", code: "  ab  ", confirm: "  ab  ", wantErr: ErrCodeTooShort},
		{name: "mismatch", code: "abcd", confirm: "abce", wantErr: ErrCodeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.Register(tt.code, tt.confirm)
			assert.ErrorIs(t, err, tt.wantErr)

			registered, err := svc.IsRegistered()
			require.NoError(t, err)
			assert.False(t, registered)
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	svc, kv := newTestService(t)

	sess, err := svc.Register("s3cure", "s3cure")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, sess.Role)
	assert.NotContains(t, kv.data[AdminCodeKey], "s3cure")

	_, err = svc.Register("other1", "other1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = svc.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Login("admin")
	assert.ErrorIs(t, err, ErrInvalidCode)

	sess, err = svc.Login(" s3cure ")
	require.NoError(t, err)

	claims, err := svc.ParseToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLogin_FallbackRegistersAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login("letmein")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Login("admin")
	require.NoError(t, err)

	registered, err := svc.IsRegistered()
	require.NoError(t, err)
	assert.True(t, registered)

	_, err = svc.Login("admin")
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register("abcd", "abcd")
	require.NoError(t, err)

	require.NoError(t, svc.Reset())
	registered, err := svc.IsRegistered()
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = svc.Register("wxyz", "wxyz")
	assert.NoError(t, err)
}

func TestGuestToken(t *testing.T) {
	svc, _ := newTestService(t)
	sess, err := svc.Guest()
	require.NoError(t, err)

	claims, err := svc.ParseToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	svc, _ := newTestService(t)

	other, err := NewService(&memKV{data: map[string]string{}}, "another-secret", time.Hour, zap.NewNop())
	require.NoError(t, err)
	foreign, err := other.Guest()
	require.NoError(t, err)

	_, err = svc.ParseToken(foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewService(&memKV{data: map[string]string{}}, "test-secret", time.Nanosecond, zap.NewNop())
	require.NoError(t, err)
	sess, err := expired.Guest()
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = svc.ParseToken(sess.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyCode(t *testing.T) {
	hash, err := hashCode("pa55")
	require.NoError(t, err)
	assert.True(t, verifyCode(hash, "pa55"))
	assert.False(t, verifyCode(hash, "pa56"))
	assert.False(t, verifyCode("plain-text", "plain-text"))
}
