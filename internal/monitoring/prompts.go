package monitoring

import (
	"fmt"
	"strings"

	"reggenie/internal/models"
)

const transcribePrompt = "Transcribe this clinical monitoring audio recording verbatim. Return only the transcript text."

func reportPrompt(r Request) string {
	template := r.TemplateText
	if strings.TrimSpace(template) == "" {
		template = "Standard Structure: " + r.TemplateReference
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior Clinical Research Associate writing a %s (%s) report.\n", visitNames[r.VisitType], r.VisitType)
	fmt.Fprintf(&b, "Project: %s\nVisit date: %s\nTemplate: %s\n\n", r.ProjectNumber, r.VisitDate, r.TemplateReference)
	b.WriteString("Follow this template structure:\n")
	b.WriteString(template)
	b.WriteString("\n\nINPUTS\n")
	section(&b, "Monitor notes", r.Notes)
	section(&b, "Meeting minutes", r.Minutes)
	section(&b, "Voice transcript", r.Transcript)
	section(&b, "Linked context", r.LinkedContext)
	b.WriteString(`
Produce ICH E6(R3) compliant report content as semantic HTML (headings, tables, lists; no <html> or <body>).
Also return an audit object: explainability (how inputs map to findings), traceability (which input supports each finding) and modelAccuracy (0-100 confidence).`)
	return b.String()
}

func section(b *strings.Builder, name, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "--- %s ---\n%s\n", name, body)
}

func followUpPrompt(r models.MonitoringReportLog) string {
	return fmt.Sprintf(`Draft a formal follow-up letter to the site after the %s visit for project %s on %s.
Summarize findings and action items with owners and due dates, based on the report below.
Return the letter as HTML only.

REPORT:
%s`, r.VisitType, r.ProjectNumber, r.VisitDate, r.ContentHTML)
}

func confirmationPrompt(r models.MonitoringReportLog, next string) string {
	return fmt.Sprintf(`Draft a visit confirmation letter for project %s confirming the next monitoring visit on %s.
List the documents and staff the site should have available, considering open items from the report below.
Return the letter as HTML only.

REPORT:
%s`, r.ProjectNumber, next, r.ContentHTML)
}
