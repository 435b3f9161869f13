package intel

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reggenie/internal/localstore"
	"reggenie/internal/llm"
	"reggenie/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGen struct {
	mu       sync.Mutex
	generate func(req llm.Request) (string, error)
	search   func(prompt string) (*llm.SearchResult, error)
	searches int
	requests []llm.Request
}

func (f *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.generate == nil {
		return "", errors.New("not configured")
	}
	return f.generate(req)
}

func (f *fakeGen) Search(_ context.Context, prompt string) (*llm.SearchResult, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	if f.search == nil {
		return nil, errors.New("not configured")
	}
	return f.search(prompt)
}

type fakeRegs struct {
	added []models.RegulationEntry
}

func (f *fakeRegs) Add(_ context.Context, e models.RegulationEntry, _ string) (models.RegulationEntry, error) {
	f.added = append(f.added, e)
	return e, nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, gen *fakeGen) (*Service, *localstore.Store, *fakeRegs) {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "intel.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	regs := &fakeRegs{}
	svc := NewService(gen, local, regs, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, local, regs
}

func TestAnalyze(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gen := &fakeGen{generate: func(req llm.Request) (string, error) {
			return "```json\n{\"summary\":\"s\",\"riskLevel\":\"High\",\"keyChanges\":[\"a\"]}\n```", nil
		}}
		svc, _, _ := newTestService(t, gen)

		res := svc.Analyze(context.Background(), models.RegulationEntry{ID: "1", Title: "Annex 11"})
		assert.Equal(t, "High", res.RiskLevel)
		assert.Equal(t, []string{"a"}, res.KeyChanges)
		assert.NotNil(t, res.ActionItems)
		require.Len(t, gen.requests, 1)
		assert.NotNil(t, gen.requests[0].Schema)
		assert.Contains(t, gen.requests[0].Prompt, "Annex 11")
	})

	t.Run("failure returns fallback", func(t *testing.T) {
		gen := &fakeGen{generate: func(llm.Request) (string, error) { return "", errors.New("quota") }}
		svc, _, _ := newTestService(t, gen)

		res := svc.Analyze(context.Background(), models.RegulationEntry{ID: "1"})
		assert.Equal(t, FallbackAnalysis(), res)
		assert.Equal(t, "Unknown", res.RiskLevel)
	})
}

func TestExtract_AppliesDefaults(t *testing.T) {
	gen := &fakeGen{generate: func(llm.Request) (string, error) {
		return `{"title":"Draft guidance on DCTs","agency":"FDA","region":"nowhere","country":"United States",
			"date":"2025-05-01","effectiveDate":"","category":"Knitting","summary":"Decentralized trials","impact":"HIGH"}`, nil
	}}
	svc, _, _ := newTestService(t, gen)

	entry, err := svc.Extract(context.Background(), "  FDA published a draft guidance...  ")
	require.NoError(t, err)

	assert.Equal(t, "Draft guidance on DCTs", entry.Title)
	assert.Equal(t, models.RegionUS, entry.Region)
	assert.Equal(t, "TBD", entry.EffectiveDate)
	assert.Equal(t, models.CategoryClinicalResearch, entry.Category)
	assert.Equal(t, models.ImpactHigh, entry.Impact)
	assert.False(t, entry.AdminApproved)
	assert.Equal(t, "FDA published a draft guidance...", entry.Content)
}

func TestExtract_Errors(t *testing.T) {
	gen := &fakeGen{generate: func(llm.Request) (string, error) { return "nope", nil }}
	svc, _, _ := newTestService(t, gen)

	_, err := svc.Extract(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInputRequired)

	_, err = svc.Extract(context.Background(), "text")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestExtractDefaults_Empty(t *testing.T) {
	entry := extracted{Title: "T", Impact: "Unknown", Country: "Unknown"}.toEntry()
	assert.Equal(t, "Global", entry.Country)
	assert.Equal(t, models.RegionGlobal, entry.Region)
	assert.Equal(t, models.ImpactUnknown, entry.Impact)
	assert.Equal(t, models.StatusDraft, entry.Status)
}

func TestSearchRegulations(t *testing.T) {
	gen := &fakeGen{
		search: func(prompt string) (*llm.SearchResult, error) {
			assert.Contains(t, prompt, "the regulatory authority for Japan")
			return &llm.SearchResult{
				Text:    "PMDA released ...",
				Sources: []models.Source{{URI: "https://pmda.go.jp/x", Title: "pmda"}},
			}, nil
		},
		generate: func(req llm.Request) (string, error) {
			assert.Contains(t, req.Prompt, "https://pmda.go.jp/x")
			return `[{"title":"AI SaMD guidance","agency":"PMDA","country":"Japan","summary":"sum","status":"Final","url":"https://pmda.go.jp/x"},
				{"title":"","summary":"dropped"},
				{"title":"Second","country":"Japan","summary":"two"}]`, nil
		},
	}
	svc, _, regs := newTestService(t, gen)

	res, err := svc.SearchRegulations(context.Background(), "AI software", "Japan")
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)

	first := res.Entries[0]
	assert.Equal(t, "web-1749988800000-0", first.ID)
	assert.Equal(t, "sum", first.Content)
	assert.Equal(t, "TBD", first.EffectiveDate)
	assert.Equal(t, models.RegionAPAC, first.Region)
	assert.Equal(t, models.StatusFinal, first.Status)
	assert.Equal(t, "web-1749988800000-2", res.Entries[1].ID)

	saved, err := svc.ImportEntries(context.Background(), res.Entries, "Guest User")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Len(t, regs.added, 2)
}

func TestSearchWeb_Errors(t *testing.T) {
	gen := &fakeGen{search: func(string) (*llm.SearchResult, error) { return nil, errors.New("down") }}
	svc, _, _ := newTestService(t, gen)

	_, err := svc.SearchWeb(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInputRequired)
	_, err = svc.SearchRegulations(context.Background(), "q", "")
	assert.ErrorContains(t, err, "web search failed")

	assert.Empty(t, svc.ParseWebResults(context.Background(), &llm.SearchResult{}))
}

func newsGen(body string) *fakeGen {
	return &fakeGen{
		search: func(string) (*llm.SearchResult, error) {
			return &llm.SearchResult{Text: "news", Sources: []models.Source{{URI: "https://fda.gov"}}}, nil
		},
		generate: func(llm.Request) (string, error) { return body, nil },
	}
}

func TestRecentNews_CachesForThirtyMinutes(t *testing.T) {
	gen := newsGen(`[
		{"title":"A","summary":"a","date":"2025-06-14","source":"FDA","url":"https://fda.gov/a"},
		{"title":"B","summary":"b","date":"2025-06-15","source":"EMA","url":"https://ema.eu/b"},
		{"title":"No URL","summary":"c","date":"2025-06-15","url":"  "},
		{"title":"","summary":"d","date":"2025-06-15","url":"https://x"}
	]`)
	svc, _, _ := newTestService(t, gen)
	ctx := context.Background()

	items := svc.RecentNews(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Title)
	assert.Equal(t, 1, gen.searches)

	svc.now = func() time.Time { return testNow.Add(29 * time.Minute) }
	assert.Len(t, svc.RecentNews(ctx), 2)
	assert.Equal(t, 1, gen.searches)

	svc.now = func() time.Time { return testNow.Add(31 * time.Minute) }
	svc.RecentNews(ctx)
	assert.Equal(t, 2, gen.searches)
}

func TestRecentNews_StaleCacheWhenRefreshEmpty(t *testing.T) {
	gen := newsGen(`[{"title":"A","summary":"a","date":"2025-06-14","url":"https://fda.gov/a"}]`)
	svc, _, _ := newTestService(t, gen)
	ctx := context.Background()
	require.Len(t, svc.RecentNews(ctx), 1)

	gen.search = func(string) (*llm.SearchResult, error) { return nil, errors.New("offline") }
	svc.now = func() time.Time { return testNow.Add(time.Hour) }

	items := svc.RecentNews(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Title)
}

func TestDisplayedNews(t *testing.T) {
	items := []models.NewsItem{
		{Title: "today", Date: "2025-06-15"},
		{Title: "6 days", Date: "2025-06-09"},
		{Title: "8 days", Date: "2025-06-07"},
		{Title: "garbage", Date: "soon"},
	}
	got := DisplayedNews(items, testNow)
	require.Len(t, got, 2)
	assert.Equal(t, "today", got[0].Title)
	assert.Equal(t, "6 days", got[1].Title)
}

func TestArchive_MergesDedupesAndCaches(t *testing.T) {
	gen := newsGen(`[{"title":"Old","summary":"recent list","date":"2025-05-01","url":"https://a"}]`)
	svc, _, _ := newTestService(t, gen)
	ctx := context.Background()
	svc.RecentNews(ctx)

	gen.generate = func(llm.Request) (string, error) {
		return `[
			{"title":"Annex 1","summary":"x","date":"2024-09-01","url":"https://b"},
			{"title":"Old","summary":"archive copy","date":"2025-04-01","url":"https://c"},
			{"title":"AI Act","summary":"y","date":"2024-08-01","url":"https://d"}
		]`, nil
	}

	archive := svc.Archive(ctx)
	titles := make([]string, 0, len(archive))
	for _, it := range archive {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Old", "Annex 1", "AI Act"}, titles)
	// the later occurrence of a title wins its slot
	assert.Equal(t, "archive copy", archive[0].Summary)

	searches := gen.searches
	assert.Len(t, svc.Archive(ctx), 3)
	assert.Equal(t, searches, gen.searches, "archive is served from cache")
}

func TestTriage(t *testing.T) {
	gen := &fakeGen{generate: func(req llm.Request) (string, error) {
		assert.True(t, strings.HasPrefix(req.Prompt, "Extract regulatory metadata"))
		return `{"title":"","agency":"EMA","country":"European Union","impact":"Medium","status":"Final"}`, nil
	}}
	svc, _, regs := newTestService(t, gen)

	news := models.NewsItem{Title: "EMA reflection paper", Source: "EMA", Date: "2025-06-14",
		Summary: "AI lifecycle", Content: "Full text", URL: "https://ema.eu/p"}
	entry, err := svc.Triage(context.Background(), news, "Guest User")
	require.NoError(t, err)

	assert.Equal(t, "news-1749988800000", entry.ID)
	assert.Equal(t, "EMA reflection paper", entry.Title)
	assert.Equal(t, "2025-06-14", entry.Date)
	assert.Equal(t, models.ImpactMedium, entry.Impact)
	assert.Equal(t, models.StatusDraft, entry.Status)
	assert.Equal(t, models.RegionEU, entry.Region)
	assert.Equal(t, "Full text", entry.Content)
	assert.Equal(t, "https://ema.eu/p", entry.URL)
	require.Len(t, regs.added, 1)

	_, err = svc.Triage(context.Background(), models.NewsItem{Title: " "}, "Guest User")
	assert.ErrorIs(t, err, ErrInputRequired)
	assert.Len(t, regs.added, 1)
}

func TestTMFChecklist(t *testing.T) {
	gen := &fakeGen{generate: func(req llm.Request) (string, error) {
		assert.Contains(t, req.Prompt, "Brazil")
		return `[{"zone":"Zone 01: Trial Management","documentName":"Trial Master File Plan","mandatory":true}]`, nil
	}}
	svc, _, _ := newTestService(t, gen)

	docs := svc.TMFChecklist(context.Background(), "Brazil")
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Mandatory)

	gen.generate = func(llm.Request) (string, error) { return "", errors.New("down") }
	assert.Empty(t, svc.TMFChecklist(context.Background(), "Brazil"))
	assert.NotNil(t, svc.TMFChecklist(context.Background(), "Brazil"))
}
