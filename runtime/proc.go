package sruntime

import (
	"math"
	"sort"
	"strings"

	"github.com/gosas/gosas/ast"
)

func (vm *VM) resolveProcInput(name string) (*Dataset, error) {
	if name == "" {
		return nil, stepErrorf(ErrUndefinedName, "no input dataset given (use data=)")
	}
	ds, ok := vm.catalog.Dataset(name)
	if !ok {
		return nil, stepErrorf(ErrUndefinedName, "dataset %s does not exist", strings.ToUpper(name))
	}
	return ds, nil
}

// listingTitle emits the current TITLE above a listing block.
func (vm *VM) listingTitle() {
	if vm.title != "" {
		vm.lst.Infof("Title: %s", vm.title)
	}
}

func (vm *VM) execProcSort(node ast.ProcSort) error {
	input, err := vm.resolveProcInput(node.Data)
	if err != nil {
		return err
	}

	working := &Dataset{Name: input.Name, Columns: input.Columns, Rows: input.Rows}
	if node.Where != nil {
		filtered, err := vm.filterRows(input, node.Where)
		if err != nil {
			return err
		}
		working = &Dataset{Name: input.Name, Columns: input.Columns, Rows: filtered}
		vm.log.Infof("NOTE: WHERE clause kept %d of %d observations.", len(filtered), len(input.Rows))
	}

	sorted := &Dataset{Name: working.Name, Columns: working.Columns, Rows: append([]Row(nil), working.Rows...)}
	SortDataset(sorted, node.By)

	if node.NoDupKey {
		removed := Dedup(sorted, node.By)
		vm.log.Infof("NOTE: %d observations with duplicate key values were deleted.", removed)
	}
	if node.Duplicates {
		vm.logDuplicateKeys(sorted, node.By)
	}

	outName := node.Out
	if outName == "" {
		outName = node.Data
	}
	output, err := vm.catalog.GetOrCreateDataset(outName)
	if err != nil {
		return stepErrorf(ErrUndefinedName, "%s", err.Error())
	}
	output.Columns = append([]ColumnMeta(nil), sorted.Columns...)
	output.Rows = sorted.Rows

	vm.log.Infof("NOTE: The data set %s has %d observations and %d variables.", output.Name, len(output.Rows), len(output.Columns))
	libref, _ := splitDatasetName(outName)
	if lib, ok := vm.catalog.Library(libref); ok {
		persistDataset(lib, output, vm.codec, vm.log)
	}
	return nil
}

// filterRows evaluates a WHERE expression per row against a scratch PDV.
func (vm *VM) filterRows(ds *Dataset, where ast.Expr) ([]Row, error) {
	sc := &stepContext{vm: vm, pdv: NewPDV(), arrays: map[string][]string{}}
	for _, col := range ds.Columns {
		sc.pdv.Add(col, false)
	}
	var kept []Row
	for _, row := range ds.Rows {
		sc.pdv.LoadRow(ds, row)
		v, err := sc.evalExpr(where)
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func (vm *VM) logDuplicateKeys(ds *Dataset, by []string) {
	keys := canonicalKeys(ds, by)
	for i := 1; i < len(ds.Rows); i++ {
		if compareRows(ds, ds.Rows[i-1], ds.Rows[i], keys) == 0 {
			vm.log.Infof("NOTE: Duplicate key %s.", byKeyString(ds, ds.Rows[i], by))
		}
	}
}

func (vm *VM) execProcPrint(node ast.ProcPrint) error {
	ds, err := vm.resolveProcInput(node.Data)
	if err != nil {
		return err
	}

	columns := ds.Columns
	if len(node.Vars) > 0 {
		columns = nil
		for _, name := range node.Vars {
			col, ok := ds.Column(name)
			if !ok {
				return stepErrorf(ErrUndefinedName, "variable %s not found in %s", name, ds.Name)
			}
			columns = append(columns, col)
		}
	}

	vm.lst.Infof("Observations of %s:", ds.Name)
	vm.listingTitle()

	header := make([]string, 0, len(columns)+1)
	if !node.NoObs {
		header = append(header, "Obs")
	}
	for _, col := range columns {
		name := col.Name
		if node.Label && col.Label != "" {
			name = col.Label
		}
		header = append(header, name)
	}
	vm.lst.Infof("%s", strings.Join(header, "\t"))

	limit := len(ds.Rows)
	if node.Obs > 0 && node.Obs < limit {
		limit = node.Obs
	}
	for i := 0; i < limit; i++ {
		fields := make([]string, 0, len(columns)+1)
		if !node.NoObs {
			fields = append(fields, Num(float64(i+1)).Format())
		}
		for _, col := range columns {
			fields = append(fields, ds.Value(ds.Rows[i], col.Name).Format())
		}
		vm.lst.Infof("%s", strings.Join(fields, "\t"))
	}
	vm.log.Infof("NOTE: There were %d observations read from the data set %s.", limit, ds.Name)
	return nil
}

var defaultMeansStats = []string{"n", "mean", "std", "min", "max"}

func (vm *VM) execProcMeans(node ast.ProcMeans) error {
	ds, err := vm.resolveProcInput(node.Data)
	if err != nil {
		return err
	}

	vars := node.Vars
	if len(vars) == 0 {
		for _, col := range ds.Columns {
			if col.Numeric {
				vars = append(vars, col.Name)
			}
		}
	}
	stats := node.Stats
	if len(stats) == 0 {
		stats = defaultMeansStats
	}

	vm.lst.Infof("The MEANS Procedure (%s):", ds.Name)
	vm.listingTitle()

	header := []string{"Variable"}
	for _, stat := range stats {
		header = append(header, strings.ToUpper(stat[:1])+stat[1:])
	}
	vm.lst.Infof("%s", strings.Join(header, "\t"))

	for _, name := range vars {
		col, ok := ds.Column(name)
		if !ok {
			return stepErrorf(ErrUndefinedName, "variable %s not found in %s", name, ds.Name)
		}
		values := numericColumn(ds, col.Name)
		fields := []string{col.Name}
		for _, stat := range stats {
			fields = append(fields, statValue(stat, values).Format())
		}
		vm.lst.Infof("%s", strings.Join(fields, "\t"))
	}
	return nil
}

// numericColumn collects the non-missing numeric readings of a column.
func numericColumn(ds *Dataset, name string) []float64 {
	var out []float64
	for _, row := range ds.Rows {
		if f, ok := ds.Value(row, name).Number(); ok {
			out = append(out, f)
		}
	}
	return out
}

func statValue(stat string, values []float64) Value {
	n := len(values)
	switch strings.ToLower(stat) {
	case "n":
		return Num(float64(n))
	case "mean":
		if n == 0 {
			return MissingNum()
		}
		return Num(sum(values) / float64(n))
	case "min":
		if n == 0 {
			return MissingNum()
		}
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return Num(m)
	case "max":
		if n == 0 {
			return MissingNum()
		}
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return Num(m)
	case "std":
		if n < 2 {
			return MissingNum()
		}
		mean := sum(values) / float64(n)
		ss := 0.0
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		return Num(math.Sqrt(ss / float64(n-1)))
	case "median":
		if n == 0 {
			return MissingNum()
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		if n%2 == 1 {
			return Num(sorted[n/2])
		}
		return Num((sorted[n/2-1] + sorted[n/2]) / 2)
	}
	return MissingNum()
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func (vm *VM) execProcFreq(node ast.ProcFreq) error {
	ds, err := vm.resolveProcInput(node.Data)
	if err != nil {
		return err
	}

	vm.lst.Infof("The FREQ Procedure (%s):", ds.Name)
	vm.listingTitle()

	for _, name := range node.Tables {
		col, ok := ds.Column(name)
		if !ok {
			return stepErrorf(ErrUndefinedName, "variable %s not found in %s", name, ds.Name)
		}
		type group struct {
			value Value
			count int
		}
		var groups []group
		index := map[string]int{}
		for _, row := range ds.Rows {
			v := ds.Value(row, col.Name)
			if v.IsMissing() || (v.IsStr() && v.String() == "") {
				continue
			}
			key := v.Format()
			if i, ok := index[key]; ok {
				groups[i].count++
				continue
			}
			index[key] = len(groups)
			groups = append(groups, group{value: v, count: 1})
		}
		// Descending count; ties break on ascending value.
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].count != groups[j].count {
				return groups[i].count > groups[j].count
			}
			return Compare(groups[i].value, groups[j].value) < 0
		})

		vm.lst.Infof("%s\tFrequency", col.Name)
		for _, g := range groups {
			vm.lst.Infof("%s\t%d", g.value.Format(), g.count)
		}
	}
	return nil
}
