package ledger

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"moneyflow/internal/core"
)

const (
	FilterAll   FilterType = "all"
	FilterYear  FilterType = "year"
	FilterMonth FilterType = "month"
	FilterDay   FilterType = "day"
)

const (
	SortByDate     SortKey = "date"
	SortByAmount   SortKey = "amount"
	SortByCategory SortKey = "category"
)

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type (
	FilterType string
	SortKey    string
	SortOrder  string

	// FilterState is the active window and tag selection. A transaction
	// passes when its date falls in the window and its tags are a
	// superset of the selected set.
	FilterState struct {
		Type FilterType
		Date core.Date
		Tags []string
	}

	SortConfig struct {
		Key   SortKey
		Order SortOrder
	}
)

// passes applies the date-window and tag-intersection filter.
func (f FilterState) passes(t core.Transaction) bool {
	switch f.Type {
	case FilterYear:
		if !t.Date.SameYear(f.Date) {
			return false
		}
	case FilterMonth:
		if !t.Date.SameMonth(f.Date) {
			return false
		}
	case FilterDay:
		if !t.Date.SameDay(f.Date) {
			return false
		}
	}
	return t.HasAllTags(f.Tags)
}

// applyFilterSort runs the pipeline: filter, then a stable multi-key sort.
// categoryName resolves ids to display names for category ordering.
func applyFilterSort(txs []core.Transaction, f FilterState, sc SortConfig, categoryName func(string) string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if f.passes(t) {
			out = append(out, t)
		}
	}

	// Category names compare under Unicode collation, so accented and
	// mixed-case names land where a user expects rather than in byte order.
	var coll *collate.Collator
	if sc.Key == SortByCategory {
		coll = collate.New(language.Und)
	}

	sort.SliceStable(out, func(i, j int) bool {
		var cmp int
		switch sc.Key {
		case SortByAmount:
			cmp = compareInt64(out[i].Amount.Cents, out[j].Amount.Cents)
		case SortByCategory:
			cmp = coll.CompareString(categoryName(out[i].CategoryID), categoryName(out[j].CategoryID))
		default:
			cmp = compareDates(out[i].Date, out[j].Date)
		}
		if sc.Order == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareDates(a, b core.Date) int {
	switch {
	case a.Before(b.Time):
		return -1
	case a.After(b.Time):
		return 1
	default:
		return 0
	}
}

// --- LocalStore filter/sort state ---

// SetFilter switches the active window.
func (s *LocalStore) SetFilter(ft FilterType, date core.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Type = ft
	if !date.IsZero() {
		s.filter.Date = date
	}
}

// ToggleTagFilter adds the tag to the selection, or removes it when
// already selected.
func (s *LocalStore) ToggleTagFilter(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.filter.Tags {
		if v == tag {
			s.filter.Tags = append(s.filter.Tags[:i], s.filter.Tags[i+1:]...)
			return
		}
	}
	s.filter.Tags = append(s.filter.Tags, tag)
}

func (s *LocalStore) ClearTagFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Tags = nil
}

// SetSort picks the sort key. Re-picking the current key flips the
// direction; a new key resets to descending.
func (s *LocalStore) SetSort(key SortKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sort.Key == key {
		if s.sort.Order == SortAsc {
			s.sort.Order = SortDesc
		} else {
			s.sort.Order = SortAsc
		}
		return
	}
	s.sort.Key = key
	s.sort.Order = SortDesc
}

// SortConfig returns the active sort configuration.
func (s *LocalStore) SortConfig() SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// FilteredTransactions returns the transaction view under the active
// filter and sort configuration.
func (s *LocalStore) FilteredTransactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

func (s *LocalStore) filteredLocked() []core.Transaction {
	return applyFilterSort(s.transactions, s.filter, s.sort, s.categoryName)
}

// AllTags aggregates the distinct tags across all transactions, sorted.
func (s *LocalStore) AllTags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, t := range s.transactions {
		for _, tag := range t.Tags {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
