package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"reggenie/internal/llm"
	"reggenie/internal/models"

	"go.uber.org/zap"
)

// Local cache keys.
const (
	NewsDataKey    = "regNewsData"
	NewsTimeKey    = "regNewsTime"
	ArchiveDataKey = "regArchiveData"
)

const (
	newsCacheTTL  = 30 * time.Minute
	newsDisplayed = 7 * 24 * time.Hour
)

var newsSchema = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
	"title":   llm.String(),
	"date":    llm.String(),
	"source":  llm.String(),
	"summary": llm.String(),
	"content": llm.String(),
	"url":     llm.String(),
}))

// RecentNews returns the latest regulatory news, newest first. A cached list
// younger than 30 minutes is served without calling the model; when a fresh
// fetch finds nothing the stale cache is served instead.
func (s *Service) RecentNews(ctx context.Context) []models.NewsItem {
	now := s.now()
	cached, fetchedAt, ok := s.cachedNews()
	if ok && now.Sub(fetchedAt) < newsCacheTTL {
		return sortNews(cached)
	}

	items := sortNews(s.fetchNews(ctx, recentNewsPrompt))
	if len(items) == 0 {
		if ok {
			s.logger.Warn("News refresh returned nothing, serving stale cache")
			return sortNews(cached)
		}
		return []models.NewsItem{}
	}

	s.storeJSON(NewsDataKey, items)
	if err := s.local.Set(NewsTimeKey, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		s.logger.Error("Failed to cache news timestamp", zap.Error(err))
	}
	return items
}

// DisplayedNews keeps the items published within the last 7 days.
func DisplayedNews(items []models.NewsItem, now time.Time) []models.NewsItem {
	cutoff := now.Add(-newsDisplayed)
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if d, ok := newsDate(it.Date); ok && !d.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// Archive returns older news: recent items past the display window merged
// with a 12-month search, newest first, one item per title. The archive is
// cached without expiry.
func (s *Service) Archive(ctx context.Context) []models.NewsItem {
	if raw, ok, err := s.local.Get(ArchiveDataKey); err == nil && ok {
		var items []models.NewsItem
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return items
		}
		s.logger.Warn("Archive cache malformed, refetching")
	}

	history := s.fetchNews(ctx, archiveNewsPrompt)

	cutoff := s.now().Add(-newsDisplayed)
	var older []models.NewsItem
	if recent, _, ok := s.cachedNews(); ok {
		for _, it := range recent {
			if d, ok := newsDate(it.Date); ok && d.Before(cutoff) {
				older = append(older, it)
			}
		}
	}

	combined := sortNews(append(older, history...))
	unique := dedupeByTitle(combined)
	if len(unique) > 0 {
		s.storeJSON(ArchiveDataKey, unique)
	}
	return unique
}

// Triage runs a news item through extraction and saves it as a draft
// regulation. Extracted fields win over the news fields.
func (s *Service) Triage(ctx context.Context, n models.NewsItem, user string) (models.RegulationEntry, error) {
	if strings.TrimSpace(n.Title) == "" {
		return models.RegulationEntry{}, fmt.Errorf("%w: news title", ErrInputRequired)
	}

	var out extracted
	if err := llm.GenerateJSON(ctx, s.gen, llm.Request{Prompt: extractionPrompt(triageText(n))}, &out); err != nil {
		s.logger.Error("Failed to triage news item", zap.String("title", n.Title), zap.Error(err))
		return models.RegulationEntry{}, fmt.Errorf("failed to process news item: %w", err)
	}

	entry := out.toEntry()
	entry.ID = fmt.Sprintf("news-%d", s.now().UnixMilli())
	entry.Title = or(entry.Title, n.Title)
	entry.Agency = or(entry.Agency, n.Source)
	entry.Date = or(entry.Date, n.Date)
	entry.Summary = or(entry.Summary, n.Summary)
	entry.Status = models.StatusDraft
	entry.Content = n.Content
	entry.URL = n.URL
	entry.AdminApproved = false

	return s.regs.Add(ctx, entry, user)
}

// fetchNews runs a grounded search and parses it into verified items.
func (s *Service) fetchNews(ctx context.Context, prompt string) []models.NewsItem {
	res, err := s.gen.Search(ctx, prompt)
	if err != nil {
		s.logger.Error("Error fetching news", zap.Error(err))
		return nil
	}

	var items []models.NewsItem
	req := llm.Request{Prompt: newsParsePrompt(res.Text, res.Sources), Schema: newsSchema}
	if err := llm.GenerateJSON(ctx, s.gen, req, &items); err != nil {
		s.logger.Error("Error parsing news", zap.Error(err))
		return nil
	}

	out := items[:0]
	for _, it := range items {
		if it.Title != "" && it.Summary != "" && strings.TrimSpace(it.URL) != "" {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) cachedNews() ([]models.NewsItem, time.Time, bool) {
	rawTime, okTime, errTime := s.local.Get(NewsTimeKey)
	rawData, okData, errData := s.local.Get(NewsDataKey)
	if errTime != nil || errData != nil || !okTime || !okData {
		return nil, time.Time{}, false
	}
	ms, err := strconv.ParseInt(rawTime, 10, 64)
	if err != nil {
		return nil, time.Time{}, false
	}
	var items []models.NewsItem
	if err := json.Unmarshal([]byte(rawData), &items); err != nil {
		s.logger.Warn("News cache malformed", zap.Error(err))
		return nil, time.Time{}, false
	}
	return items, time.UnixMilli(ms), true
}

func (s *Service) storeJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.local.Set(key, string(data)); err != nil {
		s.logger.Error("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

func sortNews(items []models.NewsItem) []models.NewsItem {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date > items[j].Date })
	return items
}

// dedupeByTitle keeps the slot of the first occurrence of a title and the
// value of the last one.
func dedupeByTitle(items []models.NewsItem) []models.NewsItem {
	index := make(map[string]int, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.Title]; ok {
			out[i] = it
			continue
		}
		index[it.Title] = len(out)
		out = append(out, it)
	}
	return out
}

func newsDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
