package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/llm"
	"reggenie/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client
type Client struct {
	client     *genai.Client
	search     *Searcher
	logger     *zap.Logger
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// Config for Gemini client
type Config struct {
	APIKey     string
	ModelName  string // Default: "gemini-2.5-flash"
	MaxRetries int
	RetryDelay time.Duration
	BaseURL    string // REST base for search grounding
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.5-flash"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		search:     NewSearcher(cfg, logger),
		logger:     logger,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) model(system string) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	return model
}

// Generate runs a single prompt, optionally in JSON mode and with inline files.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := c.model(req.System)
	if req.JSON || req.Schema != nil {
		model.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		model.ResponseSchema = toSchema(req.Schema)
	}

	parts := make([]genai.Part, 0, len(req.Blobs)+1)
	for _, b := range req.Blobs {
		parts = append(parts, genai.Blob{MIMEType: b.MIMEType, Data: b.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Gemini request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("gemini request cancelled: %w", ctx.Err())
			}
		}

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("gemini request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("gemini API error: %w", err)
			c.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		text := responseText(resp)
		if text == "" {
			lastErr = llm.ErrEmptyResponse
			c.logger.Error("Empty response from Gemini", zap.Int("attempt", attempt+1))
			continue
		}

		c.logger.Debug("Gemini request succeeded",
			zap.Int("attempt", attempt+1),
			zap.Int("chars", len(text)))
		return text, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// Search runs a search-grounded prompt.
func (c *Client) Search(ctx context.Context, prompt string) (*llm.SearchResult, error) {
	return c.search.Search(ctx, prompt)
}

// StreamChat replays history into a chat session and streams the reply.
func (c *Client) StreamChat(ctx context.Context, system string, history []llm.Turn, message string, onChunk func(string)) error {
	cs := c.model(system).StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == models.RoleModel {
			role = "model"
		}
		// history must open with a user turn
		if len(cs.History) == 0 && role == "model" {
			continue
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	iter := cs.SendMessageStream(ctx, genai.Text(message))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream error: %w", err)
		}
		if chunk := responseText(resp); chunk != "" {
			onChunk(chunk)
		}
	}
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "gemini",
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     schemaType(s.Type),
		Required: s.Required,
		Items:    toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func schemaType(t llm.SchemaType) genai.Type {
	switch t {
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
