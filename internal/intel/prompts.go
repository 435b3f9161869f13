package intel

import (
	"encoding/json"
	"fmt"
	"strings"

	"reggenie/internal/models"
)

func categoryList() string {
	names := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func regionList() string {
	names := make([]string, 0, len(models.Regions))
	for _, r := range models.Regions {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

func sourcesJSON(sources []models.Source) string {
	if len(sources) == 0 {
		return "[]"
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func analysisPrompt(r models.RegulationEntry) string {
	return fmt.Sprintf(`You are a senior Regulatory Affairs expert and Risk Manager. Analyze the following regulatory document.

Title: %s
Agency: %s
Category: %s
Content: %s

Provide an Impact Assessment and Risk Management Plan as JSON. If only a summary is available, infer the likely
operational impact and risks from the title and agency.
- summary: executive summary, max 50 words
- operationalImpact: how operations are affected (manufacturing, clinical data, safety reporting, IT security, data governance)
- complianceRisk: risks of non-compliance (enforcement, fines, delays)
- riskRationale: why the risk level was assigned
- keyChanges: 3-5 specific changes or new requirements
- riskLevel: one of Low, Medium, High, Critical
- mitigationStrategies: 3-5 mitigation strategies
- actionItems: 3-5 immediate action items`, r.Title, r.Agency, r.Category, r.Content)
}

func extractionPrompt(raw string) string {
	return fmt.Sprintf(`Extract regulatory metadata from the following text to populate a database entry.
Text: %q

Return JSON with:
- title
- agency
- region (one of: %s)
- country (specific country name, or Global)
- date (YYYY-MM-DD, publication date)
- effectiveDate (YYYY-MM-DD, or "Pending" / "TBD" if not found)
- category (the best match from: %s)
- summary (brief)
- impact (High, Medium, Low)

If information is missing, infer it or use "Unknown".`, raw, regionList(), categoryList())
}

func webSearchPrompt(query, jurisdiction string) string {
	scope := "global regulatory authorities including FDA, EMA, MHRA, PMDA, NMPA, ANVISA, TGA, Health Canada, CDSCO, WHO, ICH"
	if jurisdiction != "" && jurisdiction != "Global" {
		scope = fmt.Sprintf("the regulatory authority for %s (official government sources)", jurisdiction)
	}
	return fmt.Sprintf(`Find the most recent regulatory guidelines, draft guidances, regulations, or consultation papers related to %q issued by %s.
Focus on specific documents with clear titles and publication dates. Prioritize official government sources.`, query, scope)
}

func webParsePrompt(text string, sources []models.Source) string {
	return fmt.Sprintf(`Extract distinct regulatory entries from these search results into a JSON array.

Search Result Text: %q
Available Source URLs: %s

For each entry extract title, agency, region (one of: %s), country, date (YYYY-MM-DD or approximate),
category (best match from: %s), summary, impact (High, Medium, Low), status (Draft, Final, Consultation)
and url (the most relevant Available Source URL, empty if none matches).`,
		text, sourcesJSON(sources), regionList(), categoryList())
}

const recentNewsPrompt = `Find 8 recent regulatory news updates from official government health agency websites (FDA, EMA, MHRA, PMDA, NMPA).
Strictly prioritize news published within the last 12 hours, then the last 24 hours, and fill remaining slots with
significant updates from the last 14 days only if necessary.
Only official press releases, guidance documents or safety communications on Clinical Trials, GMP, AI in Healthcare,
Medical Devices or Drug Safety. Every item must have a direct, verifiable source URL.
For each item give the Title, Date, Source Agency, Summary and the direct URL.`

const archiveNewsPrompt = `Find significant regulatory news, major approvals and key guidance documents released by major health
authorities (FDA, EMA, MHRA, PMDA, NMPA) over the past 12 months, excluding the most recent 2 weeks.
Focus on high impact updates: new laws or acts, major guideline revisions, key first-in-class approvals.
Every item must have a direct source URL. Return 12-15 items.`

func newsParsePrompt(text string, sources []models.Source) string {
	return fmt.Sprintf(`You are a regulatory intelligence analyst. Extract distinct regulatory news items from the text and map each
to the most relevant verified source URL.

Search Result Text: %q
Verified Source URLs: %s

The url field must be an exact match from the verified list; drop any item without one. Dates must be YYYY-MM-DD.
Return a JSON array of objects with title, date, source (agency name), summary, content and url.`,
		text, sourcesJSON(sources))
}

func tmfPrompt(country string) string {
	return fmt.Sprintf(`Generate a comprehensive Trial Master File checklist aligned with the latest DIA TMF Reference Model for a
clinical trial in %[1]s.
Structure the output strictly by DIA zones (Zone 01 to Zone 11); the zone field must start with the exact zone string,
for example "Zone 01: Trial Management". Include artifacts for study startup, conduct and closeout, with the local
requirements of %[1]s (ethics committee forms, health authority submissions, translation requirements).
Return a JSON array of objects with zone, documentName, description, mandatory (boolean) and localRequirement.`, country)
}

func triageText(n models.NewsItem) string {
	return fmt.Sprintf("Title: %s\nSource: %s\nDate: %s\nSummary: %s\nContent: %s",
		n.Title, n.Source, n.Date, n.Summary, n.Content)
}
