package regulation

import (
	"sort"
	"strconv"
	"time"

	"reggenie/internal/models"
)

const topRegions = 6

type TrendPoint struct {
	Month string `json:"month"` // YYYY-MM
	Name  string `json:"name"`  // "Jan 24"
	Count int    `json:"count"`
}

type ImpactSlice struct {
	Name  models.ImpactLevel `json:"name"`
	Value int                `json:"value"`
	Color string             `json:"color"`
}

type RegionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary of the regulation list.
type Stats struct {
	Total      int            `json:"total"`
	HighImpact int            `json:"highImpact"`
	Drafts     int            `json:"drafts"`
	Trend      []TrendPoint   `json:"trend"`
	Impact     []ImpactSlice  `json:"impact"`
	Regions    []RegionCount  `json:"regions"`
	Countries  map[string]int `json:"countries"`
}

var impactColors = []ImpactSlice{
	{Name: models.ImpactHigh, Color: "#ef4444"},
	{Name: models.ImpactMedium, Color: "#f59e0b"},
	{Name: models.ImpactLow, Color: "#10b981"},
	{Name: models.ImpactUnknown, Color: "#94a3b8"},
}

// ComputeStats derives every dashboard aggregate from list.
func ComputeStats(list []models.RegulationEntry) Stats {
	st := Stats{
		Total:     len(list),
		Trend:     trend(list),
		Impact:    impact(list),
		Regions:   regions(list),
		Countries: make(map[string]int),
	}
	for _, r := range list {
		if r.Impact == models.ImpactHigh {
			st.HighImpact++
		}
		if r.Status == models.StatusDraft || r.Status == models.StatusConsultation {
			st.Drafts++
		}
		st.Countries[r.Country]++
	}
	return st
}

// trend counts entries per publication month, oldest month first.
func trend(list []models.RegulationEntry) []TrendPoint {
	counts := make(map[string]int)
	for _, r := range list {
		if len(r.Date) < 7 {
			continue
		}
		counts[r.Date[:7]]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]TrendPoint, 0, len(months))
	for _, m := range months {
		out = append(out, TrendPoint{Month: m, Name: monthLabel(m), Count: counts[m]})
	}
	return out
}

func monthLabel(month string) string {
	y, errY := strconv.Atoi(month[:4])
	m, errM := strconv.Atoi(month[5:7])
	if errY != nil || errM != nil || m < 1 || m > 12 {
		return month
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("Jan 06")
}

// impact counts entries per level; levels outside the enum count as Unknown
// and empty levels are dropped.
func impact(list []models.RegulationEntry) []ImpactSlice {
	counts := make(map[models.ImpactLevel]int)
	for _, r := range list {
		if _, ok := impactRank[r.Impact]; ok {
			counts[r.Impact]++
		} else {
			counts[models.ImpactUnknown]++
		}
	}

	out := make([]ImpactSlice, 0, len(impactColors))
	for _, slice := range impactColors {
		if n := counts[slice.Name]; n > 0 {
			slice.Value = n
			out = append(out, slice)
		}
	}
	return out
}

// regions returns the six busiest regions by short name.
func regions(list []models.RegulationEntry) []RegionCount {
	counts := make(map[string]int)
	for _, r := range list {
		name, ok := models.RegionShortNames[r.Region]
		switch {
		case ok:
		case r.Region != "":
			name = string(r.Region)
		default:
			name = "Other"
		}
		counts[name]++
	}

	out := make([]RegionCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, RegionCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topRegions {
		out = out[:topRegions]
	}
	return out
}
