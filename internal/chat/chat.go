// Package chat runs assistant conversations. Each session keeps an ordered,
// in-memory message list; replies are streamed chunk by chunk into a
// placeholder model message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reggenie/internal/llm"
	"reggenie/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Greeting = "Hello! I am your Regulatory Intelligence Assistant. I can help you navigate GMP, GCP, PV, and other healthcare regulations. Ask me about specific guidelines, comparison of regional requirements, or compliance strategies."

const SystemInstruction = "You are AIDE Reg Genie, an expert AI assistant for Regulatory Affairs professionals. You specialize in GMP, GCP, PV, Medical Device, Information Security (InfoSec), and Data Governance regulations."

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSessionBusy     = errors.New("a reply is still streaming for this session")
)

// StreamerFactory builds an OpenAI streamer for an API key.
type StreamerFactory func(apiKey string) (llm.ChatStreamer, error)

type session struct {
	mu       sync.Mutex
	id       string
	messages []models.ChatMessage
	busy     bool
	touched  time.Time
}

// Session is a snapshot of a conversation.
type Session struct {
	ID       string               `json:"id"`
	Messages []models.ChatMessage `json:"messages"`
}

type Service struct {
	gemini    llm.ChatStreamer
	newOpenAI StreamerFactory
	openAIKey func() string
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates the chat service. openAIKey returns the key currently in
// effect (settings first, then config); an empty key disables OpenAI.
func NewService(gemini llm.ChatStreamer, newOpenAI StreamerFactory, openAIKey func() string, logger *zap.Logger) *Service {
	if openAIKey == nil {
		openAIKey = func() string { return "" }
	}
	return &Service{
		gemini:    gemini,
		newOpenAI: newOpenAI,
		openAIKey: openAIKey,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Providers lists the selectable providers.
func (s *Service) Providers() []Provider {
	if s.newOpenAI != nil && s.openAIKey() != "" {
		return []Provider{ProviderGemini, ProviderOpenAI}
	}
	return []Provider{ProviderGemini}
}

// NewSession starts a conversation holding only the greeting.
func (s *Service) NewSession() Session {
	now := s.now()
	sess := &session{
		id:      uuid.NewString(),
		touched: now,
		messages: []models.ChatMessage{{
			ID:        "init",
			Role:      models.RoleModel,
			Text:      Greeting,
			Timestamp: now.UnixMilli(),
		}},
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Debug("Chat session started", zap.String("session_id", sess.id))
	return sess.snapshot()
}

func (s *Service) Session(id string) (Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Prune drops sessions idle for longer than maxIdle.
func (s *Service) Prune(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := !sess.busy && sess.touched.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Send appends the user message and streams the reply. onChunk, when set,
// receives every chunk as it arrives. On failure the placeholder reply is
// replaced with a provider-specific error text, which is returned together
// with the error.
func (s *Service) Send(ctx context.Context, id, text string, provider Provider, onChunk func(string)) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	sess, err := s.lookup(id)
	if err != nil {
		return models.ChatMessage{}, err
	}

	streamer, label := s.pick(provider)

	sess.mu.Lock()
	if sess.busy {
		sess.mu.Unlock()
		return models.ChatMessage{}, ErrSessionBusy
	}
	sess.busy = true
	history := make([]llm.Turn, 0, len(sess.messages))
	for _, m := range sess.messages {
		history = append(history, llm.Turn{Role: m.Role, Text: m.Text})
	}
	now := s.now()
	sess.messages = append(sess.messages, models.ChatMessage{
		ID: uuid.NewString(), Role: models.RoleUser, Text: text, Timestamp: now.UnixMilli(),
	})
	replyID := uuid.NewString()
	sess.messages = append(sess.messages, models.ChatMessage{
		ID: replyID, Role: models.RoleModel, Timestamp: now.UnixMilli(),
	})
	sess.touched = now
	sess.mu.Unlock()

	var full strings.Builder
	streamErr := streamer.StreamChat(ctx, SystemInstruction, history, text, func(chunk string) {
		full.WriteString(chunk)
		sess.mu.Lock()
		sess.setText(replyID, full.String())
		sess.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.busy = false
	sess.touched = s.now()

	if streamErr != nil {
		s.logger.Error("Chat error",
			zap.String("session_id", id),
			zap.String("provider", label),
			zap.Error(streamErr))
		sess.setText(replyID, ErrorText(label))
		return sess.find(replyID), fmt.Errorf("chat reply failed: %w", streamErr)
	}
	return sess.find(replyID), nil
}

// ErrorText is shown in place of a failed reply.
func ErrorText(providerLabel string) string {
	return fmt.Sprintf("I encountered an error processing your request with %s. Please check your API key configuration.", providerLabel)
}

// pick uses OpenAI only when selected and a key is configured.
func (s *Service) pick(p Provider) (llm.ChatStreamer, string) {
	if p == ProviderOpenAI && s.newOpenAI != nil {
		if key := s.openAIKey(); key != "" {
			streamer, err := s.newOpenAI(key)
			if err == nil {
				return streamer, "ChatGPT"
			}
			s.logger.Warn("OpenAI unavailable, falling back to Gemini", zap.Error(err))
		}
	}
	return s.gemini, "AIDE-RegGenie_1.0"
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// snapshot, setText and find must be called with mu held.
func (s *session) snapshot() Session {
	msgs := make([]models.ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	return Session{ID: s.id, Messages: msgs}
}

func (s *session) setText(id, text string) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Text = text
			return
		}
	}
}

func (s *session) find(id string) models.ChatMessage {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return models.ChatMessage{}
}
