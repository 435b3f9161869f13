package intel

import (
	"context"
	"fmt"
	"strings"

	"reggenie/internal/llm"
	"reggenie/internal/models"

	"go.uber.org/zap"
)

var webEntrySchema = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
	"title":    llm.String(),
	"agency":   llm.String(),
	"region":   llm.String(),
	"country":  llm.String(),
	"date":     llm.String(),
	"category": llm.String(),
	"summary":  llm.String(),
	"impact":   llm.String(),
	"status":   llm.String(),
	"url":      llm.String(),
}))

// SearchWeb runs a grounded search for regulations matching query within a
// jurisdiction ("" or "Global" for all authorities).
func (s *Service) SearchWeb(ctx context.Context, query, jurisdiction string) (*llm.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", ErrInputRequired)
	}
	res, err := s.gen.Search(ctx, webSearchPrompt(query, jurisdiction))
	if err != nil {
		s.logger.Error("Web search error", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	return res, nil
}

// ParseWebResults turns a search answer into candidate entries. Failures
// yield an empty list.
func (s *Service) ParseWebResults(ctx context.Context, res *llm.SearchResult) []models.RegulationEntry {
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return []models.RegulationEntry{}
	}

	var parsed []extracted
	req := llm.Request{Prompt: webParsePrompt(res.Text, res.Sources), Schema: webEntrySchema}
	if err := llm.GenerateJSON(ctx, s.gen, req, &parsed); err != nil {
		s.logger.Error("Parsing error", zap.Error(err))
		return []models.RegulationEntry{}
	}

	ms := s.now().UnixMilli()
	out := make([]models.RegulationEntry, 0, len(parsed))
	for i, p := range parsed {
		entry := p.toEntry()
		if entry.Title == "" {
			continue
		}
		entry.ID = fmt.Sprintf("web-%d-%d", ms, i)
		entry.Content = entry.Summary
		entry.EffectiveDate = "TBD"
		entry.AdminApproved = false
		out = append(out, entry)
	}
	return out
}

// SearchResults is a web-search preview: candidate entries plus citations.
type SearchResults struct {
	Text    string                   `json:"text"`
	Sources []models.Source          `json:"sources"`
	Entries []models.RegulationEntry `json:"entries"`
}

// SearchRegulations searches and parses in one step.
func (s *Service) SearchRegulations(ctx context.Context, query, jurisdiction string) (*SearchResults, error) {
	res, err := s.SearchWeb(ctx, query, jurisdiction)
	if err != nil {
		return nil, err
	}
	sources := res.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	return &SearchResults{
		Text:    res.Text,
		Sources: sources,
		Entries: s.ParseWebResults(ctx, res),
	}, nil
}

// ImportEntries saves selected search results.
func (s *Service) ImportEntries(ctx context.Context, entries []models.RegulationEntry, user string) ([]models.RegulationEntry, error) {
	saved := make([]models.RegulationEntry, 0, len(entries))
	for _, e := range entries {
		e.AdminApproved = false
		added, err := s.regs.Add(ctx, e, user)
		if err != nil {
			return saved, fmt.Errorf("failed to import %q: %w", e.Title, err)
		}
		saved = append(saved, added)
	}
	s.logger.Info("Web search results imported", zap.Int("count", len(saved)))
	return saved, nil
}
