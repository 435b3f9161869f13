package translation

import (
	"strings"
)

// Languages are the supported target languages.
var Languages = []string{
	"English", "Spanish", "French", "German", "Chinese", "Traditional Chinese", "Japanese", "Tamil",
	"Hindi", "Portuguese", "Italian", "Russian", "Korean", "Arabic", "Thai",
	"Vietnamese", "Turkish", "Polish", "Dutch", "Greek", "Czech",
}

var locales = map[string]string{
	"English": "en-US", "Spanish": "es-ES", "French": "fr-FR", "German": "de-DE",
	"Chinese": "zh-CN", "Traditional Chinese": "zh-TW", "Japanese": "ja-JP", "Tamil": "ta-IN", "Hindi": "hi-IN",
	"Portuguese": "pt-PT", "Italian": "it-IT", "Russian": "ru-RU", "Korean": "ko-KR",
	"Arabic": "ar-SA", "Thai": "th-TH", "Vietnamese": "vi-VN", "Turkish": "tr-TR",
	"Polish": "pl-PL", "Dutch": "nl-NL", "Greek": "el-GR", "Czech": "cs-CZ",
}

const defaultLocale = "en-US"

// preferred voice name fragments, matched case-insensitively
var preferredVoices = []string{"female", "samantha", "zira", "victoria", "monica"}

// SupportedLanguage reports whether lang is in Languages.
func SupportedLanguage(lang string) bool {
	_, ok := locales[lang]
	return ok
}

// Locale returns the speech locale for a language, en-US when unknown.
func Locale(lang string) string {
	if l, ok := locales[lang]; ok {
		return l
	}
	return defaultLocale
}

// Voice is a speech synthesis voice offered by the client.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// PickVoice chooses a voice for the language: a preferred voice when one
// exists, else the first voice of the language. ok is false when no voice
// matches.
func PickVoice(voices []Voice, lang string) (Voice, bool) {
	prefix := strings.SplitN(Locale(lang), "-", 2)[0]

	var matching []Voice
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, prefix) {
			matching = append(matching, v)
		}
	}
	for _, v := range matching {
		name := strings.ToLower(v.Name)
		for _, p := range preferredVoices {
			if strings.Contains(name, p) {
				return v, true
			}
		}
	}
	if len(matching) > 0 {
		return matching[0], true
	}
	return Voice{}, false
}

// Cue ties a word to its character offset for highlighting during playback.
type Cue struct {
	WordIndex int    `json:"wordIndex"`
	CharIndex int    `json:"charIndex"`
	Word      string `json:"word"`
}

// SpeechPlan is everything a client needs to read a page aloud from an
// offset.
type SpeechPlan struct {
	Locale string `json:"locale"`
	Voice  *Voice `json:"voice,omitempty"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Cues   []Cue  `json:"cues"`
}

// PlanSpeech prepares playback of page starting at byte offset start, used
// to resume a paused reading. Cue offsets are absolute.
func PlanSpeech(page, lang string, start int, voices []Voice) SpeechPlan {
	if start < 0 || start > len(page) {
		start = 0
	}
	plan := SpeechPlan{Locale: Locale(lang), Text: page[start:], Offset: start, Cues: []Cue{}}
	if v, ok := PickVoice(voices, lang); ok {
		plan.Voice = &v
	}
	for i, loc := range wordPattern.FindAllStringIndex(page, -1) {
		if loc[0] < start {
			continue
		}
		plan.Cues = append(plan.Cues, Cue{WordIndex: i, CharIndex: loc[0], Word: page[loc[0]:loc[1]]})
	}
	return plan
}
