package translation

import (
	"fmt"

	"reggenie/internal/models"
)

func detectPrompt(text string) string {
	return fmt.Sprintf("Identify the primary language of this text. Return ONLY the language name (e.g., \"English\", \"Spanish\", \"French\"). \n\n%s", text)
}

func structuralPrompt(dim models.TranslationDimension, nuances bool, target string) string {
	d := string(dim)
	if nuances {
		d += " + Cultural Nuance"
	}
	return fmt.Sprintf(`Task: Regulatory Document Mirroring.
Dimension: %s.
STRUCTURAL RULES:
1. Preserve paragraph density and breaks exactly.
2. Match bullet-point hierarchies and symbols.
3. Maintain identical sentence sequence.
4. Target language: %s.`, d, target)
}

func translatePrompt(page, target string, n, total int) string {
	return fmt.Sprintf(`Translate page %d of %d of a clinical regulatory document into %s.
Return ONLY the translated text, without commentary or markdown fences.

%s`, n, total, target, page)
}

func backTranslatePrompt(page, source string) string {
	return fmt.Sprintf(`Translate the following text back into %s as literally as possible so a reviewer can verify meaning.
Return ONLY the translated text.

%s`, source, page)
}

func alternativesPrompt(word, context, target string) string {
	return fmt.Sprintf(`You are a clinical translation reviewer. In the %s text below, suggest up to %d alternative single-word replacements for the word %q that fit the context and regulatory register.
Return a JSON array of strings.

Context:
%s`, target, maxAlternatives, word, context)
}
