package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reggenie/internal/llm"
	"reggenie/internal/models"

	"go.uber.org/zap"
)

// Searcher calls generateContent over REST with the google_search tool and
// returns the answer together with its grounding sources.
type Searcher struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
}

type searchRequest struct {
	Contents []searchContent  `json:"contents"`
	Tools    []map[string]any `json:"tools"`
}

type searchContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []searchPart `json:"parts"`
}

type searchPart struct {
	Text string `json:"text,omitempty"`
}

type searchResponse struct {
	Candidates []struct {
		Content           searchContent `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewSearcher creates a search grounding client.
func NewSearcher(cfg Config, logger *zap.Logger) *Searcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.5-flash"
	}
	return &Searcher{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     logger,
	}
}

// Search runs prompt with web search grounding.
func (s *Searcher) Search(ctx context.Context, prompt string) (*llm.SearchResult, error) {
	reqBody := searchRequest{
		Contents: []searchContent{{Role: "user", Parts: []searchPart{{Text: prompt}}}},
		Tools:    []map[string]any{{"google_search": map[string]any{}}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("gemini search error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("gemini search returned status %d", resp.StatusCode)
	}

	result := &llm.SearchResult{}
	if len(parsed.Candidates) == 0 {
		return result, nil
	}

	cand := parsed.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	result.Text = sb.String()

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			result.Sources = append(result.Sources, models.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}

	s.logger.Debug("Search grounding completed",
		zap.Int("chars", len(result.Text)),
		zap.Int("sources", len(result.Sources)))

	return result, nil
}
