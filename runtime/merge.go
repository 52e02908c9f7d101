package sruntime

import "strings"

// mergeDatasets implements "merge A B ...; by k ...;": a k-way match
// merge over the BY key. Inputs are sorted first when needed (on working
// copies; the source datasets stay untouched). When several inputs
// contribute the same non-BY variable to one output row, the later
// dataset in the MERGE list wins.
func (vm *VM) mergeDatasets(names []string, by []string) (*Dataset, error) {
	inputs := make([]*Dataset, len(names))
	for i, name := range names {
		ds, ok := vm.catalog.Dataset(name)
		if !ok {
			return nil, stepErrorf(ErrUndefinedName, "merge dataset %s does not exist", strings.ToUpper(name))
		}
		for _, key := range by {
			if ds.ColumnIndex(key) < 0 {
				return nil, stepErrorf(ErrUndefinedName, "by variable %s not present in %s", key, ds.Name)
			}
		}
		if IsSorted(ds, by) {
			inputs[i] = ds
			continue
		}
		copyDS := &Dataset{Name: ds.Name, Columns: ds.Columns, Rows: append([]Row(nil), ds.Rows...)}
		SortDataset(copyDS, by)
		vm.log.Infof("NOTE: Dataset %s was sorted by %s for the merge.", ds.Name, strings.Join(by, " "))
		inputs[i] = copyDS
	}

	merged := &Dataset{Name: "MERGE"}
	for _, ds := range inputs {
		for _, col := range ds.Columns {
			merged.AddColumn(col)
		}
	}

	byKey := func(ds *Dataset, row Row) []Value {
		key := make([]Value, len(by))
		for i, name := range by {
			key[i] = ds.Value(row, name)
		}
		return key
	}
	compareKeys := func(a, b []Value) int {
		for i := range a {
			if c := Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
		return 0
	}

	cursors := make([]int, len(inputs))
	for {
		// Lowest BY key among the current rows across all inputs.
		var minKey []Value
		for i, ds := range inputs {
			if cursors[i] >= len(ds.Rows) {
				continue
			}
			key := byKey(ds, ds.Rows[cursors[i]])
			if minKey == nil || compareKeys(key, minKey) < 0 {
				minKey = key
			}
		}
		if minKey == nil {
			return merged, nil
		}

		row := Row{}
		for i, ds := range inputs {
			if cursors[i] >= len(ds.Rows) {
				continue
			}
			current := ds.Rows[cursors[i]]
			if compareKeys(byKey(ds, current), minKey) != 0 {
				continue
			}
			for _, col := range ds.Columns {
				row[merged.CanonicalName(col.Name)] = ds.Value(current, col.Name)
			}
			cursors[i]++
		}
		merged.Rows = append(merged.Rows, row)
	}
}
