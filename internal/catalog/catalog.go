// Package catalog holds the static reference data shipped with the service:
// jurisdictions, health authorities, seed regulations and the build history.
package catalog

import (
	"sort"

	"reggenie/internal/models"
)

// Authority is the health authority responsible for a country.
type Authority struct {
	Agency  string `json:"agency"`
	Acronym string `json:"acronym"`
	URL     string `json:"url"`
}

var RegionCountries = map[models.Region][]string{
	models.RegionUS: {"United States", "Canada", "Mexico"},
	models.RegionEU: {"European Union", "Germany", "France", "Italy", "Spain", "Netherlands", "Switzerland",
		"Belgium", "Austria", "Sweden", "Norway", "Denmark", "Finland", "Ireland", "Poland", "Portugal", "Greece",
		"Czech Republic", "Hungary", "Romania", "Bulgaria", "Croatia", "Slovakia", "Slovenia", "Estonia", "Latvia",
		"Lithuania"},
	models.RegionAPAC: {"Japan", "China", "India", "Australia", "Singapore", "South Korea", "New Zealand", "Taiwan",
		"Thailand", "Vietnam", "Malaysia", "Indonesia", "Philippines", "Hong Kong", "Pakistan", "Bangladesh"},
	models.RegionUK: {"United Kingdom"},
	models.RegionGlobal: {"Global", "WHO", "ICH", "Brazil", "Argentina", "Chile", "Colombia", "Peru", "Venezuela",
		"South Africa", "Egypt", "Saudi Arabia", "UAE", "Turkey", "Israel", "Russia", "Nigeria", "Kenya"},
}

var CountryAuthorities = map[string]Authority{
	"Global":         {Agency: "World Health Organization / ICH", Acronym: "WHO/ICH", URL: "https://www.who.int/news"},
	"United States":  {Agency: "Food and Drug Administration", Acronym: "FDA", URL: "https://www.fda.gov/news-events"},
	"Canada":         {Agency: "Health Canada", Acronym: "HC", URL: "https://www.canada.ca/en/health-canada.html"},
	"Mexico":         {Agency: "COFEPRIS", Acronym: "COFEPRIS", URL: "https://www.gob.mx/cofepris/archivo/prensa"},
	"European Union": {Agency: "European Medicines Agency", Acronym: "EMA", URL: "https://www.ema.europa.eu/en/news"},
	"United Kingdom": {Agency: "Medicines and Healthcare products Regulatory Agency", Acronym: "MHRA", URL: "https://www.gov.uk/government/organisations/medicines-and-healthcare-products-regulatory-agency"},
	"Germany":        {Agency: "BfArM / PEI", Acronym: "BfArM", URL: "https://www.bfarm.de/EN/News/_node.html"},
	"France":         {Agency: "Agence Nationale de Sécurité du Médicament", Acronym: "ANSM", URL: "https://ansm.sante.fr/actualites"},
	"Spain":          {Agency: "Agencia Española de Medicamentos y Productos Sanitarios", Acronym: "AEMPS", URL: "https://www.aemps.gob.es/en/informa/notasInformativas/home.htm"},
	"Italy":          {Agency: "Agenzia Italiana del Farmaco", Acronym: "AIFA", URL: "https://www.aifa.gov.it/en/news"},
	"Switzerland":    {Agency: "Swissmedic", Acronym: "Swissmedic", URL: "https://www.swissmedic.ch/swissmedic/en/home/news.html"},
	"Ireland":        {Agency: "Health Products Regulatory Authority", Acronym: "HPRA", URL: "https://www.hpra.ie/homepage/medicines/safety-information"},
	"Netherlands":    {Agency: "Medicines Evaluation Board", Acronym: "CBG-MEB", URL: "https://english.cbg-meb.nl/news"},
	"Australia":      {Agency: "Therapeutic Goods Administration", Acronym: "TGA", URL: "https://www.tga.gov.au/news"},
	"New Zealand":    {Agency: "Medsafe", Acronym: "Medsafe", URL: "https://www.medsafe.govt.nz/safety/safety.asp"},
	"Singapore":      {Agency: "Health Sciences Authority", Acronym: "HSA", URL: "https://www.hsa.gov.sg/announcements/news"},
	"Taiwan":         {Agency: "Taiwan Food and Drug Administration", Acronym: "TFDA", URL: "https://www.fda.gov.tw/ENG/list.aspx?code=5001"},
	"China":          {Agency: "National Medical Products Administration", Acronym: "NMPA", URL: "https://english.nmpa.gov.cn/news.html"},
	"Japan":          {Agency: "Pharmaceuticals and Medical Devices Agency", Acronym: "PMDA", URL: "https://www.pmda.go.jp/english/index.html"},
	"South Korea":    {Agency: "Ministry of Food and Drug Safety", Acronym: "MFDS", URL: "https://www.mfds.go.kr/eng/brd/m_11/list.do"},
	"India":          {Agency: "Central Drugs Standard Control Organisation", Acronym: "CDSCO", URL: "https://cdsco.gov.in/opencms/opencms/en/Notifications/Public-Notices/"},
	"Brazil":         {Agency: "Agência Nacional de Vigilância Sanitária", Acronym: "ANVISA", URL: "https://www.gov.br/anvisa/pt-br"},
	"South Africa":   {Agency: "South African Health Products Regulatory Authority", Acronym: "SAHPRA", URL: "https://www.sahpra.org.za/news-and-updates/"},
	"Saudi Arabia":   {Agency: "Saudi Food and Drug Authority", Acronym: "SFDA", URL: "https://sfda.gov.sa/en/news-list"},
}

// Countries returns every country of every region, sorted and de-duplicated.
func Countries() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range RegionCountries {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// RegionOf returns the region a country belongs to, or Global when unknown.
func RegionOf(country string) models.Region {
	for region, list := range RegionCountries {
		for _, c := range list {
			if c == country {
				return region
			}
		}
	}
	return models.RegionGlobal
}

// InitialRegulations is the seed list used when neither store holds data.
func InitialRegulations() []models.RegulationEntry {
	return []models.RegulationEntry{
		{
			ID:            "15",
			TrackingID:    "REG-2024-015",
			Title:         "MHRA AI Airlock: Regulatory Sandbox for AI Medical Devices",
			Agency:        "MHRA",
			Region:        models.RegionUK,
			Country:       "United Kingdom",
			Date:          "2024-05-09",
			EffectiveDate: "2024-05-09",
			Category:      models.CategoryMedicalDevices,
			Summary:       "Launch of the AI Airlock, a regulatory sandbox to assist in the safe development and deployment of AI as a Medical Device (AIaMD).",
			Impact:        models.ImpactHigh,
			Status:        models.StatusFinal,
			Content:       "The AI Airlock is a collaborative regulatory sandbox designed to test and support AIaMD products in the NHS. It aims to identify and address regulatory challenges for AI devices early in the development process, fostering innovation while ensuring patient safety.",
			URL:           "https://www.gov.uk/government/news/mhra-launches-ai-airlock-to-address-challenges-for-regulating-medical-devices-that-use-artificial-intelligence",
		},
	}
}

// BuildHistory is the requirement traceability seed.
func BuildHistory() []models.BuildRequirement {
	return []models.BuildRequirement{
		{ID: "BR-001", Version: "1.0.0", Timestamp: 1738150000000, Status: "Implemented",
			Prompt: "built a regulatory intelligence data base to evaluate the regulatory changes for Health care, focusing GMP, GCP, PV an",
			Scope:  []string{"Core Platform", "Regulatory Intelligence Module", "Database Schema"}},
		{ID: "BR-002", Version: "1.1.0", Timestamp: 1738160000000, Status: "Implemented",
			Prompt: "Requirement Tracking should include all the prompt provided to built this application as of now",
			Scope:  []string{"Audit Trail Interface", "Requirement Traceability Matrix"}},
		{ID: "BR-003", Version: "1.2.0", Timestamp: 1738165000000, Status: "Implemented",
			Prompt: "Remove Regulatory Intelligence",
			Scope:  []string{"UI Refactoring", "Requirement Tracking Simplification"}},
		{ID: "BR-004", Version: "1.3.0", Timestamp: 1738170000000, Status: "Implemented",
			Prompt: "Add Traditional Chinese",
			Scope:  []string{"Translation Engine Localization", "Voice Synthesis Locale Mapping"}},
		{ID: "BR-005", Version: "1.3.1", Timestamp: 1738175000000, Status: "Implemented",
			Prompt: "track the requirement from the start of building this platform",
			Scope:  []string{"Lifecycle Audit Logging", "Version Control History"}},
		{ID: "BR-006", Version: "1.4.0", Timestamp: 1738180000000, Status: "Implemented",
			Prompt: "list all the requirements and prompts in requirement tracking",
			Scope:  []string{"Comprehensive Audit View", "Requirement Inventory Update"}},
		{ID: "BR-007", Version: "1.5.0", Timestamp: 1738185000000, Status: "Implemented",
			Prompt: "Enhance the application by adding features related to data integrity, such as input validation and audit trails for user actions",
			Scope:  []string{"Data Integrity Framework", "User Action Audit Log", "Real-time Input Validation"}},
		{ID: "BR-008", Version: "1.6.0", Timestamp: 1738190000000, Status: "Implemented",
			Prompt: "For report builder include Digital Notes, Link to Digital Notes fetching and adding contextually, Voice upload option, integrating with meeting minutes field to generate Report",
			Scope:  []string{"Multi-modal Input Pipeline", "Neural Audio Transcription", "Correlated Data Synthesis"}},
		{ID: "BR-009", Version: "1.7.0", Timestamp: 1738195000000, Status: "Implemented",
			Prompt: "In the Clinical Visit Context, incorporate Template upon which report needs to be generated as reference. Also create include option to create confirmation letter for upcoming visit based on key follow up items and Create option for generating the follow up letter from the follow up item identified in the Monitoring Visit Report Summary",
			Scope:  []string{"Correspondence Engine", "Follow-up Letter Automation", "Confirmation Letter Integration", "Template Contextualization"}},
		{ID: "BR-010", Version: "1.8.0", Timestamp: 1738200000000, Status: "Implemented",
			Prompt: "Final deployment of clinical surveillance engine with template file upload and summary-based PI correspondence automation.",
			Scope:  []string{"Template Docx Support", "PI Correspondence AI", "Microphone Permissions", "UI Synchronization"}},
	}
}
