// Package auth implements the entry gate: a single admin access code kept in
// the local store, plus guest access. Both hand out signed session tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

// AdminCodeKey is the local store key holding the hashed admin code.
const AdminCodeKey = "aide_admin_code"

// fallbackCode is accepted, and registered, when no code has been set yet.
const fallbackCode = "admin"

const minCodeLength = 4

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

var (
	ErrInvalidCode       = errors.New("invalid access code")
	ErrCodeTooShort      = errors.New("code must be at least 4 characters")
	ErrCodeMismatch      = errors.New("codes do not match")
	ErrAlreadyRegistered = errors.New("admin access code already registered")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

// KV is the slice of the local store the gate needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is an issued token.
type Session struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	kv     KV
	secret []byte
	ttl    time.Duration
	logger *zap.Logger

	// serialises check-then-set on the stored code
	mu sync.Mutex
}

// NewService creates the gate. An empty secret gets a random per-process key,
// so sessions do not survive a restart.
func NewService(kv KV, secret string, ttl time.Duration, logger *zap.Logger) (*Service, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		logger.Warn("No JWT secret configured, using a random per-process key")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{kv: kv, secret: key, ttl: ttl, logger: logger}, nil
}

// IsRegistered reports whether an admin code has been set.
func (s *Service) IsRegistered() (bool, error) {
	_, ok, err := s.kv.Get(AdminCodeKey)
	if err != nil {
		return false, fmt.Errorf("failed to read admin code: %w", err)
	}
	return ok, nil
}

// Register sets the admin code and logs the admin in.
func (s *Service) Register(code, confirm string) (*Session, error) {
	code = strings.TrimSpace(code)
	if len(code) < minCodeLength {
		return nil, ErrCodeTooShort
	}
	if code != strings.TrimSpace(confirm) {
		return nil, ErrCodeMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registered, err := s.IsRegistered()
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}
	if err := s.storeCode(code); err != nil {
		return nil, err
	}

	s.logger.Info("Admin access code registered")
	return s.issue(RoleAdmin)
}

// Login checks the admin code. Before any code is registered the fallback
// code "admin" is accepted and becomes the registered code.
func (s *Service) Login(code string) (*Session, error) {
	code = strings.TrimSpace(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.kv.Get(AdminCodeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin code: %w", err)
	}

	switch {
	case ok && verifyCode(stored, code):
	case !ok && code == fallbackCode:
		if err := s.storeCode(code); err != nil {
			return nil, err
		}
		s.logger.Warn("Admin logged in with the fallback code, which is now registered")
	default:
		return nil, ErrInvalidCode
	}

	s.logger.Info("Admin logged in")
	return s.issue(RoleAdmin)
}

// Reset forgets the admin code.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(AdminCodeKey); err != nil {
		return fmt.Errorf("failed to reset admin code: %w", err)
	}
	s.logger.Info("Admin access code reset")
	return nil
}

// Guest issues a guest session.
func (s *Service) Guest() (*Session, error) {
	return s.issue(RoleGuest)
}

// ParseToken validates a token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || (claims.Role != RoleAdmin && claims.Role != RoleGuest) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) issue(role string) (*Session, error) {
	now := time.Now()
	expirationTime := now.Add(s.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   role,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Token: tokenString, Role: role, ExpiresAt: expirationTime}, nil
}

func (s *Service) storeCode(code string) error {
	hash, err := hashCode(code)
	if err != nil {
		return fmt.Errorf("failed to hash access code: %w", err)
	}
	if err := s.kv.Set(AdminCodeKey, hash); err != nil {
		return fmt.Errorf("failed to store access code: %w", err)
	}
	return nil
}

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// hashCode encodes as $argon2id$v=19$m=65536,t=1,p=4$SALT$HASH
func hashCode(code string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(code), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

func verifyCode(encoded, code string) bool {
	sections := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(code), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
