// Package settings keeps the admin-editable runtime settings: the OpenAI
// key used by chat and the remote store connection string.
package settings

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"reggenie/internal/audit"
	"reggenie/internal/config"
	"reggenie/internal/models"

	"go.uber.org/zap"
)

// Local store keys.
const (
	OpenAIKeyKey = "openai_api_key"
	StoreDSNKey  = "remote_store_settings"
)

const (
	StatusConnected = "Cloud DB Connected"
	StatusLocal     = "Local Mode"
)

type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Sealer encrypts values at rest. *crypto.KeyManager implements it.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// Store reads and writes sealed settings.
type Store struct {
	kv     KV
	sealer Sealer
	logger *zap.Logger
}

func NewStore(kv KV, sealer Sealer, logger *zap.Logger) *Store {
	return &Store{kv: kv, sealer: sealer, logger: logger}
}

// OpenAIKey is the saved key, or "" when none is saved or it cannot be read.
func (s *Store) OpenAIKey() string { return s.get(OpenAIKeyKey) }

// StoreDSN is the saved remote store DSN, or "".
func (s *Store) StoreDSN() string { return s.get(StoreDSNKey) }

func (s *Store) get(key string) string {
	stored, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("Failed to read setting", zap.String("key", key), zap.Error(err))
		return ""
	}
	if !ok || stored == "" {
		return ""
	}
	value, err := s.sealer.Open(stored)
	if err != nil {
		s.logger.Warn("Failed to decrypt setting", zap.String("key", key), zap.Error(err))
		return ""
	}
	return value
}

// set stores value sealed; an empty value removes the key.
func (s *Store) set(key, value string) error {
	if value == "" {
		if err := s.kv.Delete(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
		return nil
	}
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	if err := s.kv.Set(key, sealed); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Status is what the settings screen shows. Secrets are never returned.
type Status struct {
	OpenAIKeyConfigured bool   `json:"openaiKeyConfigured"`
	OpenAIKeySource     string `json:"openaiKeySource"`
	OpenAIKeyHint       string `json:"openaiKeyHint,omitempty"`
	StoreDSNSaved       bool   `json:"storeDsnSaved"`
	StoreDSNHint        string `json:"storeDsnHint,omitempty"`
	Database            string `json:"database"`
	RestartRequired     bool   `json:"restartRequired"`
}

// Update carries the fields to change; nil leaves a field alone and an
// empty string clears it.
type Update struct {
	OpenAIKey *string `json:"openaiApiKey"`
	StoreDSN  *string `json:"storeDsn"`
}

type Service struct {
	store       *Store
	fallbackKey string
	connected   bool
	rec         audit.Recorder
	logger      *zap.Logger

	mu      sync.Mutex
	restart bool
}

// NewService wraps store. fallbackKey is the configured OpenAI key, used when
// none is saved. connected tells whether a remote store is in use.
func NewService(store *Store, fallbackKey string, connected bool, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		fallbackKey: strings.TrimSpace(fallbackKey),
		connected:   connected,
		rec:         rec,
		logger:      logger,
	}
}

// OpenAIKey resolves the key chat uses: saved settings first, then config.
func (s *Service) OpenAIKey() string {
	if key := s.store.OpenAIKey(); key != "" {
		return key
	}
	return s.fallbackKey
}

func (s *Service) Status() Status {
	s.mu.Lock()
	restart := s.restart
	s.mu.Unlock()

	st := Status{OpenAIKeySource: "none", Database: StatusLocal, RestartRequired: restart}
	if s.connected {
		st.Database = StatusConnected
	}
	if key := s.store.OpenAIKey(); key != "" {
		st.OpenAIKeyConfigured, st.OpenAIKeySource, st.OpenAIKeyHint = true, "settings", hint(key)
	} else if s.fallbackKey != "" {
		st.OpenAIKeyConfigured, st.OpenAIKeySource, st.OpenAIKeyHint = true, "config", hint(s.fallbackKey)
	}
	if dsn := s.store.StoreDSN(); dsn != "" {
		st.StoreDSNSaved, st.StoreDSNHint = true, redact(dsn)
	}
	return st
}

// Apply saves the changed settings. A new DSN takes effect on restart.
func (s *Service) Apply(ctx context.Context, upd Update, user string) (Status, error) {
	var changed []string

	if upd.OpenAIKey != nil {
		key := strings.TrimSpace(*upd.OpenAIKey)
		if key != s.store.OpenAIKey() {
			if err := s.store.set(OpenAIKeyKey, key); err != nil {
				return Status{}, err
			}
			changed = append(changed, "openai_api_key")
		}
	}
	if upd.StoreDSN != nil {
		dsn := config.CleanDSN(*upd.StoreDSN)
		if dsn != "" {
			if _, err := url.Parse(dsn); err != nil {
				return Status{}, fmt.Errorf("invalid store DSN: %w", err)
			}
		}
		if dsn != s.store.StoreDSN() {
			if err := s.store.set(StoreDSNKey, dsn); err != nil {
				return Status{}, err
			}
			s.mu.Lock()
			s.restart = true
			s.mu.Unlock()
			changed = append(changed, "remote_store")
		}
	}

	if len(changed) > 0 {
		s.rec.Record(ctx, audit.ActionSettingsUpdated, user, models.ModuleSettings,
			"Updated settings: "+strings.Join(changed, ", "))
		s.logger.Info("Settings updated", zap.Strings("fields", changed))
	}
	return s.Status(), nil
}

func hint(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "****"
	}
	return u.Redacted()
}
