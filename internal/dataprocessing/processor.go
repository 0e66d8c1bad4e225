package dataprocessing

import (
	"cmp"
	"slices"

	"householdrisk/internal/estimation"
)

// PanelCleaner turns raw person-month rows into one chronological income
// series per household.
type PanelCleaner struct{}

// NewPanelCleaner creates a panel cleaner
func NewPanelCleaner() *PanelCleaner {
	return &PanelCleaner{}
}

// SortByHouseholdTime orders records by household, year, month and wave
func (c *PanelCleaner) SortByHouseholdTime(records []Record) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Or(
			cmp.Compare(a.SSUID, b.SSUID),
			cmp.Compare(a.SHHADID, b.SHHADID),
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.MonthCode, b.MonthCode),
			cmp.Compare(a.SWave, b.SWave),
		)
	})
	return out
}

type panelKey struct {
	household string
	panel     int
}

// FilterPrimaryPanel keeps, for each household, only the survey panel with
// the most rows. Ties go to the lowest panel number. Households appearing in
// several panels would otherwise produce spliced, artificially long series.
func (c *PanelCleaner) FilterPrimaryPanel(records []Record) []Record {
	counts := make(map[panelKey]int)
	for _, r := range records {
		counts[panelKey{r.HouseholdKey(), r.SPanel}]++
	}

	primary := make(map[string]int)
	best := make(map[string]int)
	for k, n := range counts {
		cur, seen := primary[k.household]
		if !seen || n > best[k.household] || (n == best[k.household] && k.panel < cur) {
			primary[k.household] = k.panel
			best[k.household] = n
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if primary[r.HouseholdKey()] == r.SPanel {
			out = append(out, r)
		}
	}
	return out
}

// DeduplicateMonths keeps one record per household-month, the one from the
// earliest wave. The survey stores one row per person, so a household month
// appears once for every member.
func (c *PanelCleaner) DeduplicateMonths(records []Record) []Record {
	sorted := c.SortByHouseholdTime(records)
	return slices.CompactFunc(sorted, func(a, b Record) bool {
		return a.SSUID == b.SSUID && a.SHHADID == b.SHHADID &&
			a.Year == b.Year && a.MonthCode == b.MonthCode
	})
}

// Clean applies the primary-panel filter then month deduplication and
// returns rows sorted by household and time.
func (c *PanelCleaner) Clean(records []Record) ([]Record, CleaningStatistics) {
	stats := CleaningStatistics{InputRecords: len(records)}

	filtered := c.FilterPrimaryPanel(records)
	stats.DroppedOtherPanels = len(records) - len(filtered)

	deduped := c.DeduplicateMonths(filtered)
	stats.DroppedDuplicates = len(filtered) - len(deduped)
	stats.OutputRecords = len(deduped)

	households := make(map[string]struct{})
	for _, r := range deduped {
		households[r.HouseholdKey()] = struct{}{}
	}
	stats.Households = len(households)

	return deduped, stats
}

// BuildPanel groups cleaned, sorted records into income series
func (c *PanelCleaner) BuildPanel(records []Record) estimation.Panel {
	panel := make(estimation.Panel)
	for _, r := range records {
		key := r.HouseholdKey()
		panel[key] = append(panel[key], r.Income)
	}
	return panel
}
