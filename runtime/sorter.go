package sruntime

import (
	"sort"
	"strings"
)

// SortDataset sorts rows in place by the BY variables, ascending and
// stable.
func SortDataset(ds *Dataset, by []string) {
	keys := canonicalKeys(ds, by)
	sort.SliceStable(ds.Rows, func(i, j int) bool {
		return compareRows(ds, ds.Rows[i], ds.Rows[j], keys) < 0
	})
}

// IsSorted reports whether rows are already ordered by the BY variables.
func IsSorted(ds *Dataset, by []string) bool {
	keys := canonicalKeys(ds, by)
	for i := 1; i < len(ds.Rows); i++ {
		if compareRows(ds, ds.Rows[i-1], ds.Rows[i], keys) > 0 {
			return false
		}
	}
	return true
}

// Dedup removes all but the first row of each group of equal BY keys,
// assuming the dataset is already sorted. It returns the number of rows
// removed.
func Dedup(ds *Dataset, by []string) int {
	if len(ds.Rows) == 0 {
		return 0
	}
	keys := canonicalKeys(ds, by)
	kept := ds.Rows[:1]
	removed := 0
	for _, row := range ds.Rows[1:] {
		if compareRows(ds, kept[len(kept)-1], row, keys) == 0 {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	ds.Rows = kept
	return removed
}

func canonicalKeys(ds *Dataset, by []string) []string {
	keys := make([]string, len(by))
	for i, name := range by {
		keys[i] = ds.CanonicalName(name)
	}
	return keys
}

func compareRows(ds *Dataset, a, b Row, keys []string) int {
	for _, key := range keys {
		if c := Compare(ds.Value(a, key), ds.Value(b, key)); c != 0 {
			return c
		}
	}
	return 0
}

// byKeyString renders a row's BY-key for duplicate logging.
func byKeyString(ds *Dataset, row Row, by []string) string {
	parts := make([]string, len(by))
	for i, name := range by {
		parts[i] = ds.Value(row, ds.CanonicalName(name)).Format()
	}
	return strings.Join(parts, " ")
}
