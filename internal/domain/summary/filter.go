package summary

import (
	"sort"
	"strings"
	"time"
)

// Sort keys accepted by Filter.SortBy.
const (
	SortByCreatedAt      = "created_at"
	SortByName           = "name"
	SortByNomenclature   = "nomenclature"
	SortByCounterparties = "counterparties"
)

// Filter narrows the upload details of a summary for display.
type Filter struct {
	Status        []string
	Search        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SortBy        string
	SortDesc      bool
	Limit         int
}

// IsZero reports whether the filter would leave a summary untouched.
func (f Filter) IsZero() bool {
	return len(f.Status) == 0 && f.Search == "" && f.CreatedAfter == nil &&
		f.CreatedBefore == nil && f.SortBy == "" && f.Limit <= 0
}

// Apply returns a copy of s whose UploadDetails match the filter.
// Aggregate counters are copied as is; they still describe the scan.
func (f Filter) Apply(s *SystemSummary) *SystemSummary {
	if s == nil {
		return nil
	}
	out := *s
	if f.IsZero() {
		return &out
	}

	statuses := make(map[string]struct{}, len(f.Status))
	for _, st := range f.Status {
		statuses[strings.ToLower(strings.TrimSpace(st))] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	details := make([]UploadSummary, 0, len(s.UploadDetails))
	for _, u := range s.UploadDetails {
		if len(statuses) > 0 {
			if _, ok := statuses[strings.ToLower(u.Status)]; !ok {
				continue
			}
		}
		if search != "" && !matchesSearch(u, search) {
			continue
		}
		if f.CreatedAfter != nil && u.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && u.CreatedAt.After(*f.CreatedBefore) {
			continue
		}
		details = append(details, u)
	}

	if less := f.lessFunc(details); less != nil {
		sort.SliceStable(details, less)
	}
	if f.Limit > 0 && len(details) > f.Limit {
		details = details[:f.Limit]
	}

	out.UploadDetails = details
	return &out
}

func (f Filter) lessFunc(d []UploadSummary) func(i, j int) bool {
	var less func(i, j int) bool
	switch f.SortBy {
	case SortByCreatedAt:
		less = func(i, j int) bool { return d[i].CreatedAt.Before(d[j].CreatedAt) }
	case SortByName:
		less = func(i, j int) bool { return d[i].Name < d[j].Name }
	case SortByNomenclature:
		less = func(i, j int) bool { return d[i].NomenclatureCount < d[j].NomenclatureCount }
	case SortByCounterparties:
		less = func(i, j int) bool { return d[i].CounterpartyCount < d[j].CounterpartyCount }
	default:
		return nil
	}
	if f.SortDesc {
		return func(i, j int) bool { return less(j, i) }
	}
	return less
}

func matchesSearch(u UploadSummary, needle string) bool {
	return strings.Contains(strings.ToLower(u.Name), needle) ||
		strings.Contains(strings.ToLower(u.UploadUUID), needle) ||
		strings.Contains(strings.ToLower(u.DatabaseFile), needle)
}
