package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
)

// SortOrder represents the available sorting options for cut-off dates
type SortOrder string

const (
	SortByPage     SortOrder = "page"
	SortByCategory SortOrder = "category"
	SortByArea     SortOrder = "area"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByPage, SortByCategory, SortByArea:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'page', 'category' or 'area')", s)
	}
}

// sortDates orders cut-off dates in place. Page order is left untouched; the
// other orders are stable and keep page order among equal keys.
func sortDates(dates []bulletin.CutOffDate, order SortOrder) {
	switch order {
	case SortByCategory:
		sort.SliceStable(dates, func(i, j int) bool {
			if dates[i].VisaType != dates[j].VisaType {
				return dates[i].VisaType < dates[j].VisaType
			}
			// Same category: final action before filing
			return dates[i].DateType == bulletin.DateFinal && dates[j].DateType != bulletin.DateFinal
		})
	case SortByArea:
		sort.SliceStable(dates, func(i, j int) bool {
			ai, aj := strings.ToLower(dates[i].VisaArea), strings.ToLower(dates[j].VisaArea)
			if ai != aj {
				return ai < aj
			}
			return dates[i].VisaType < dates[j].VisaType
		})
	}
}
