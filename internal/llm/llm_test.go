package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
	last  Request
}

func (s *stubGenerator) Generate(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req
	return s.text, s.err
}

func (s *stubGenerator) Search(_ context.Context, _ string) (*SearchResult, error) {
	s.calls++
	return &SearchResult{Text: s.text}, s.err
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSON(tt.in))
	}
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "<p>x</p>", CleanHTML("```html\n<p>x</p>\n```"))
	assert.Equal(t, "<p>x</p>", CleanHTML(" <p>x</p> "))
}

func TestGenerateJSON(t *testing.T) {
	t.Run("decodes fenced json", func(t *testing.T) {
		g := &stubGenerator{text: "```json\n{\"riskLevel\":\"High\"}\n```"}
		var out struct {
			RiskLevel string `json:"riskLevel"`
		}
		require.NoError(t, GenerateJSON(context.Background(), g, Request{Prompt: "p"}, &out))
		assert.Equal(t, "High", out.RiskLevel)
		assert.True(t, g.last.JSON)
	})

	t.Run("empty", func(t *testing.T) {
		var out map[string]any
		err := GenerateJSON(context.Background(), &stubGenerator{text: "  "}, Request{}, &out)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("malformed", func(t *testing.T) {
		var out map[string]any
		err := GenerateJSON(context.Background(), &stubGenerator{text: "not json"}, Request{}, &out)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("transport error passes through", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		var out map[string]any
		err := GenerateJSON(context.Background(), &stubGenerator{err: boom}, Request{}, &out)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestRateLimited(t *testing.T) {
	g := &stubGenerator{text: "ok"}
	p := NewRateLimited(g, nil, 600, zap.NewNop())

	text, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	_, err = p.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, g.calls)

	err = p.StreamChat(context.Background(), "", nil, "hi", func(string) {})
	assert.Error(t, err)
}

func TestRateLimited_CancelledContext(t *testing.T) {
	g := &stubGenerator{text: "ok"}
	p := NewRateLimited(g, nil, 1, zap.NewNop())

	// drain the single burst token
	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Generate(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, 1, g.calls)
}

func TestSchemaHelpers(t *testing.T) {
	s := ArrayOf(Object(map[string]*Schema{"keyChanges": StringList()}))
	assert.Equal(t, TypeArray, s.Type)
	assert.Equal(t, TypeObject, s.Items.Type)
	assert.Equal(t, TypeString, s.Items.Properties["keyChanges"].Items.Type)
}
