package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics([]string{"The subject  signed\nthe form.", "", "  Page three "})
	assert.Equal(t, 7, m.Words)
	assert.Equal(t, 9, m.Tokens)
	assert.InDelta(t, 9.0/1e6*0.75, m.EstimatedCost, 1e-12)

	empty := ComputeMetrics(nil)
	assert.Zero(t, empty.Words)
	assert.Zero(t, empty.Tokens)
}

func TestWordIndexAtChar(t *testing.T) {
	page := "Hola  mundo del ensayo"
	assert.Equal(t, 0, WordIndexAtChar(page, 0))
	assert.Equal(t, 0, WordIndexAtChar(page, 3))
	assert.Equal(t, 1, WordIndexAtChar(page, 4))
	assert.Equal(t, 1, WordIndexAtChar(page, 6))
	assert.Equal(t, 3, WordIndexAtChar(page, 16))
	assert.Equal(t, -1, WordIndexAtChar(page, 100))
}

func TestLocaleAndVoice(t *testing.T) {
	assert.Equal(t, "es-ES", Locale("Spanish"))
	assert.Equal(t, "zh-TW", Locale("Traditional Chinese"))
	assert.Equal(t, "en-US", Locale("Klingon"))
	assert.Len(t, Languages, len(locales))

	voices := []Voice{
		{Name: "Google Deutsch", Lang: "de-DE"},
		{Name: "Jorge", Lang: "es-MX"},
		{Name: "Monica", Lang: "es-ES"},
	}
	v, ok := PickVoice(voices, "Spanish")
	assert.True(t, ok)
	assert.Equal(t, "Monica", v.Name)

	v, ok = PickVoice(voices, "German")
	assert.True(t, ok)
	assert.Equal(t, "Google Deutsch", v.Name)

	_, ok = PickVoice(voices, "Japanese")
	assert.False(t, ok)
}

func TestPlanSpeech(t *testing.T) {
	page := "Uno dos tres"
	plan := PlanSpeech(page, "Spanish", 4, nil)
	assert.Equal(t, "dos tres", plan.Text)
	assert.Equal(t, "es-ES", plan.Locale)
	assert.Nil(t, plan.Voice)
	assert.Equal(t, []Cue{{WordIndex: 1, CharIndex: 4, Word: "dos"}, {WordIndex: 2, CharIndex: 8, Word: "tres"}}, plan.Cues)

	plan = PlanSpeech(page, "Spanish", 99, nil)
	assert.Equal(t, page, plan.Text)
	assert.Len(t, plan.Cues, 3)
}
