package regulation

import (
	"sort"
	"strings"

	"reggenie/internal/models"
)

type SortField string

const (
	SortDate          SortField = "date"
	SortEffectiveDate SortField = "effectiveDate"
	SortTitle         SortField = "title"
	SortAgency        SortField = "agency"
	SortImpact        SortField = "impact"
	SortCountry       SortField = "country"
)

// Sort orders a result list. The zero value sorts by date, newest first.
type Sort struct {
	Field     SortField `form:"sort"`
	Ascending bool      `form:"asc"`
}

var impactRank = map[models.ImpactLevel]int{
	models.ImpactHigh:    3,
	models.ImpactMedium:  2,
	models.ImpactLow:     1,
	models.ImpactUnknown: 0,
}

// Apply filters and sorts list without touching it. The result depends only
// on its arguments.
func Apply(list []models.RegulationEntry, f models.DatabaseFilters, s Sort) []models.RegulationEntry {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.RegulationEntry, 0, len(list))
	for _, r := range list {
		if !matches(r, f, search) {
			continue
		}
		out = append(out, r)
	}

	field := s.Field
	if field == "" {
		field = SortDate
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], field)
		if s.Ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

func matches(r models.RegulationEntry, f models.DatabaseFilters, search string) bool {
	if !oneOf(f.Status, string(r.Status)) ||
		!oneOf(f.Impact, string(r.Impact)) ||
		!oneOf(f.Category, string(r.Category)) ||
		!oneOf(f.Region, string(r.Region)) ||
		!oneOf(f.Country, r.Country) {
		return false
	}
	if search == "" {
		return true
	}
	for _, field := range []string{r.Title, r.Agency, r.Summary, r.Country, r.TrackingID} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// oneOf is true for an empty selection.
func oneOf(selected []string, value string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == value {
			return true
		}
	}
	return false
}

func compare(a, b models.RegulationEntry, field SortField) int {
	switch field {
	case SortImpact:
		return impactRank[a.Impact] - impactRank[b.Impact]
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortAgency:
		return strings.Compare(strings.ToLower(a.Agency), strings.ToLower(b.Agency))
	case SortCountry:
		return strings.Compare(a.Country, b.Country)
	case SortEffectiveDate:
		return strings.Compare(a.EffectiveDate, b.EffectiveDate)
	default:
		return strings.Compare(a.Date, b.Date)
	}
}
