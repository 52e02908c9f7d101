package sruntime

import (
	"strings"

	"github.com/gosas/gosas/ast"
)

// defaultLoopCap bounds every DO loop invocation; exceeding it is treated
// as a runaway loop and aborts the step.
const defaultLoopCap = 1000000

// VM executes a parsed program against a catalog, writing notes to the
// log sink and tabular results to the listing sink.
type VM struct {
	catalog *Catalog
	log     *logger
	lst     *logger
	codec   DatasetCodec

	title    string
	options  map[string]string
	loopCap  int
	warnings int
	errors   int
}

type VMOption func(*VM)

// WithLoopCap overrides the runaway-loop bound.
func WithLoopCap(limit int) VMOption {
	return func(vm *VM) {
		if limit > 0 {
			vm.loopCap = limit
		}
	}
}

// WithCodec swaps the dataset file codec used by LIBNAME libraries.
func WithCodec(codec DatasetCodec) VMOption {
	return func(vm *VM) {
		vm.codec = codec
	}
}

func NewVM(catalog *Catalog, logSink, lstSink Sink, opts ...VMOption) *VM {
	vm := &VM{
		catalog: catalog,
		log:     &logger{sink: logSink},
		lst:     &logger{sink: lstSink},
		codec:   CSVCodec{},
		options: map[string]string{},
		loopCap: defaultLoopCap,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *VM) Catalog() *Catalog {
	return vm.catalog
}

func (vm *VM) Warnings() int {
	return vm.warnings
}

func (vm *VM) Errors() int {
	return vm.errors
}

func (vm *VM) Title() string {
	return vm.title
}

// Option returns the value of a session option set via OPTIONS.
func (vm *VM) Option(key string) (string, bool) {
	v, ok := vm.options[strings.ToLower(key)]
	return v, ok
}

func (vm *VM) warnf(format string, args ...interface{}) {
	vm.warnings++
	vm.log.Warnf(format, args...)
}

func (vm *VM) errorf(format string, args ...interface{}) {
	vm.errors++
	vm.log.Errorf(format, args...)
}

// ExecProgram runs every top-level statement in order. A failing step is
// logged and execution resumes with the next statement.
func (vm *VM) ExecProgram(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		vm.execTopLevel(stmt)
	}
}

func (vm *VM) execTopLevel(stmt ast.Statement) {
	switch s := stmt.(type) {
	case ast.DataStep:
		timer := StartStepTimer()
		if err := vm.execDataStep(s); err != nil {
			vm.errorf("%s", err.Error())
		}
		timer.Report(vm.log)
	case ast.Libname:
		vm.execLibname(s)
	case ast.Options:
		for _, pair := range s.Pairs {
			vm.options[pair.Key] = pair.Value
			vm.log.Infof("NOTE: Option %s set to %q.", strings.ToUpper(pair.Key), pair.Value)
		}
	case ast.Title:
		vm.title = s.Text
	case ast.ProcSort:
		vm.runProc("SORT", func() error { return vm.execProcSort(s) })
	case ast.ProcPrint:
		vm.runProc("PRINT", func() error { return vm.execProcPrint(s) })
	case ast.ProcMeans:
		vm.runProc("MEANS", func() error { return vm.execProcMeans(s) })
	case ast.ProcFreq:
		vm.runProc("FREQ", func() error { return vm.execProcFreq(s) })
	default:
		vm.errorf("unsupported top-level statement %T", stmt)
	}
}

func (vm *VM) runProc(name string, run func() error) {
	timer := StartStepTimer()
	if err := run(); err != nil {
		vm.errorf("PROC %s: %s", name, err.Error())
	} else {
		vm.log.Infof("NOTE: PROCEDURE %s used:", name)
	}
	timer.Report(vm.log)
}

func (vm *VM) execLibname(node ast.Libname) {
	vm.AttachLibrary(node.Libref, node.Path, AccessReadWrite)
}

// AttachLibrary defines a library and loads its datasets, exactly as a
// LIBNAME statement does. Frontends use it to apply configured library
// manifests before the first statement runs.
func (vm *VM) AttachLibrary(ref, path string, access AccessMode) *Library {
	lib := vm.catalog.DefineLibrary(ref, path, access)
	vm.log.Infof("NOTE: Libref %s was successfully assigned as follows:", lib.Ref)
	vm.log.Infof("      Physical Name: %s", path)
	loadLibraryDatasets(lib, vm.codec, vm.log)
	return lib
}

// stepContext carries the per-step state of one DATA step execution.
type stepContext struct {
	vm     *VM
	pdv    *PDV
	output *Dataset

	keep   []string
	drop   []string
	arrays map[string][]string

	hasExplicitOutput bool
	emitted           int
	loopDepth         int
}

func (vm *VM) execDataStep(node ast.DataStep) error {
	output, err := vm.catalog.GetOrCreateDataset(node.Output)
	if err != nil {
		return err
	}

	sc := &stepContext{
		vm:     vm,
		pdv:    NewPDV(),
		output: output,
		arrays: map[string][]string{},
	}

	// One pre-pass over the body collects the statements whose effect is
	// step-scoped rather than per-iteration: DROP/KEEP lists, RETAIN
	// declarations, MERGE/BY, INPUT/DATALINES and OUTPUT presence.
	shape := collectStepShape(node.Body)
	sc.keep = shape.keep
	sc.drop = shape.drop
	sc.hasExplicitOutput = shape.hasOutput

	// Resolve the input row source before clearing the output: the step
	// may read the dataset it replaces ("data a; set a;").
	var input *Dataset
	switch {
	case shape.merge != nil:
		if len(shape.by) == 0 {
			return stepErrorf(ErrRuntimeFatal, "MERGE requires a BY statement")
		}
		merged, err := vm.mergeDatasets(shape.merge.Datasets, shape.by)
		if err != nil {
			return err
		}
		input = merged
	case shape.input != nil:
		input = buildDatalinesInput(shape.input, shape.datalines)
		vm.log.Infof("NOTE: %d records were read from datalines.", len(input.Rows))
	case node.Input != "":
		ds, ok := vm.catalog.Dataset(node.Input)
		if !ok {
			return stepErrorf(ErrUndefinedName, "input dataset %s does not exist", strings.ToUpper(node.Input))
		}
		input = ds
	}
	if input == output {
		input = &Dataset{
			Name:    output.Name,
			Columns: append([]ColumnMeta(nil), output.Columns...),
			Rows:    append([]Row(nil), output.Rows...),
		}
	}
	output.Clear()

	// Seed the PDV from the input columns, then from RETAIN declarations.
	if input != nil {
		for _, col := range input.Columns {
			sc.pdv.Add(col, false)
		}
	}
	for _, retain := range shape.retains {
		if err := sc.applyRetain(retain); err != nil {
			return err
		}
	}

	body := pruneStepShape(node.Body)

	if input == nil {
		// No SET/MERGE/INPUT: the body runs for a single iteration.
		if err := sc.execBody(body); err != nil {
			return err
		}
		if !sc.hasExplicitOutput {
			sc.emit()
		}
	} else {
		vm.log.Infof("NOTE: There were %d observations read from the data set %s.", len(input.Rows), input.Name)
		for _, row := range input.Rows {
			sc.pdv.LoadRow(input, row)
			if err := sc.execBody(body); err != nil {
				return err
			}
			if !sc.hasExplicitOutput {
				sc.emit()
			}
			sc.pdv.Reset()
		}
	}

	vm.log.Infof("NOTE: The data set %s has %d observations and %d variables.", output.Name, len(output.Rows), len(output.Columns))

	libref, _ := splitDatasetName(node.Output)
	if lib, ok := vm.catalog.Library(libref); ok {
		persistDataset(lib, output, vm.codec, vm.log)
	}
	return nil
}

// stepShape is what the pre-pass extracts from a DATA step body.
type stepShape struct {
	keep      []string
	drop      []string
	retains   []ast.Retain
	merge     *ast.Merge
	by        []string
	input     *ast.Input
	datalines *ast.Datalines
	hasOutput bool
}

func collectStepShape(body []ast.Statement) stepShape {
	shape := stepShape{}
	var walk func(stmts []ast.Statement)
	walk = func(stmts []ast.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case ast.Keep:
				shape.keep = append(shape.keep, s.Vars...)
			case ast.Drop:
				shape.drop = append(shape.drop, s.Vars...)
			case ast.Retain:
				shape.retains = append(shape.retains, s)
			case ast.Merge:
				merge := s
				shape.merge = &merge
			case ast.By:
				shape.by = append(shape.by, s.Vars...)
			case ast.Input:
				input := s
				shape.input = &input
			case ast.Datalines:
				lines := s
				shape.datalines = &lines
			case ast.Output:
				shape.hasOutput = true
			case ast.IfThenElse:
				walk(s.Then)
				for _, branch := range s.ElseIfs {
					walk(branch.Body)
				}
				walk(s.Else)
			case ast.DoLoop:
				walk(s.Body)
			}
		}
	}
	walk(body)
	return shape
}

// pruneStepShape removes the step-scoped statements handled by the
// pre-pass; what remains executes per iteration.
func pruneStepShape(body []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(body))
	for _, stmt := range body {
		switch stmt.(type) {
		case ast.Keep, ast.Drop, ast.Retain, ast.Merge, ast.By, ast.Input, ast.Datalines:
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// buildDatalinesInput turns INPUT/DATALINES into an in-memory dataset of
// whitespace-delimited fields.
func buildDatalinesInput(input *ast.Input, datalines *ast.Datalines) *Dataset {
	ds := &Dataset{Name: "DATALINES"}
	for _, v := range input.Vars {
		ds.AddColumn(ColumnMeta{Name: v.Name, Numeric: !v.Char, Length: 8})
	}
	if datalines == nil {
		return ds
	}
	for _, line := range datalines.Lines {
		fields := strings.Fields(line)
		row := Row{}
		for i, col := range ds.Columns {
			if i >= len(fields) {
				row[col.Name] = MissingFor(col.Numeric)
				continue
			}
			if col.Numeric {
				v := Str(fields[i])
				if f, ok := v.Number(); ok {
					row[col.Name] = Num(f)
				} else {
					row[col.Name] = MissingNum()
				}
				continue
			}
			row[col.Name] = Str(fields[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func (sc *stepContext) applyRetain(node ast.Retain) error {
	for i, name := range node.Vars {
		var init Value
		numeric := true
		hasInit := i < len(node.Inits) && node.Inits[i] != nil
		if hasInit {
			v, err := sc.evalExpr(node.Inits[i])
			if err != nil {
				return err
			}
			init = v
			numeric = !v.IsStr()
		}
		slot := sc.pdv.Add(ColumnMeta{Name: name, Numeric: numeric, Length: 8}, true)
		sc.pdv.SetRetained(name, true)
		if hasInit {
			sc.pdv.Set(slot, init)
		}
	}
	return nil
}

// emit appends one output row from the current PDV, honoring KEEP/DROP.
func (sc *stepContext) emit() {
	sc.ensureOutputColumns()
	row := Row{}
	for _, col := range sc.output.Columns {
		i := sc.pdv.Find(col.Name)
		if i < 0 {
			continue
		}
		row[col.Name] = sc.pdv.Get(i)
	}
	sc.output.Rows = append(sc.output.Rows, row)
	sc.emitted++
}

// ensureOutputColumns projects the current PDV variable set into the
// output column order. KEEP fixes both membership and order; DROP keeps
// first-seen order minus the dropped names.
func (sc *stepContext) ensureOutputColumns() {
	if len(sc.keep) > 0 {
		for _, name := range sc.keep {
			if i := sc.pdv.Find(name); i >= 0 {
				sc.output.AddColumn(sc.pdv.Var(i).ColumnMeta)
			}
		}
		return
	}
	for _, v := range sc.pdv.Vars() {
		if nameInList(v.Name, sc.drop) {
			continue
		}
		sc.output.AddColumn(v.ColumnMeta)
	}
}

func nameInList(name string, list []string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

func (sc *stepContext) execBody(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := sc.execStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (sc *stepContext) execStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case ast.Assignment:
		return sc.execAssignment(s)
	case ast.IfThenElse:
		return sc.execIf(s)
	case ast.DoLoop:
		return sc.execDo(s)
	case ast.Output:
		sc.emit()
		return nil
	case ast.ArrayDecl:
		names := make([]string, len(s.Vars))
		for i, name := range s.Vars {
			sc.pdv.Add(ColumnMeta{Name: name, Numeric: true, Length: 8}, false)
			names[i] = name
		}
		sc.arrays[strings.ToUpper(s.Name)] = names
		return nil
	case ast.Keep, ast.Drop, ast.Retain, ast.Merge, ast.By, ast.Input, ast.Datalines:
		// Step-scoped; handled by the pre-pass when nested in a branch.
		return nil
	}
	return stepErrorf(ErrRuntimeFatal, "unsupported statement %T in data step", stmt)
}

func (sc *stepContext) execAssignment(node ast.Assignment) error {
	val, err := sc.evalExpr(node.Expr)
	if err != nil {
		return err
	}
	if node.Index != nil {
		return sc.setArrayElem(node.Name, node.Index, val)
	}
	slot := sc.pdv.Find(node.Name)
	if slot < 0 {
		slot = sc.pdv.Add(ColumnMeta{Name: node.Name, Numeric: !val.IsStr(), Length: 8}, false)
	}
	sc.pdv.Set(slot, val)
	return nil
}

func (sc *stepContext) execIf(node ast.IfThenElse) error {
	cond, err := sc.evalExpr(node.Cond)
	if err != nil {
		return err
	}
	if cond.Truthy() {
		return sc.execBody(node.Then)
	}
	for _, branch := range node.ElseIfs {
		cond, err := sc.evalExpr(branch.Cond)
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return sc.execBody(branch.Body)
		}
	}
	return sc.execBody(node.Else)
}

func (sc *stepContext) execDo(node ast.DoLoop) error {
	switch {
	case node.Var != "":
		return sc.execIterativeDo(node)
	case node.While != nil:
		iterations := 0
		for {
			cond, err := sc.evalExpr(node.While)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
			if iterations++; iterations > sc.vm.loopCap {
				return stepErrorf(ErrRange, "possible infinite loop: do while exceeded %d iterations", sc.vm.loopCap)
			}
			if err := sc.execBody(node.Body); err != nil {
				return err
			}
		}
	case node.Until != nil:
		iterations := 0
		for {
			if iterations++; iterations > sc.vm.loopCap {
				return stepErrorf(ErrRange, "possible infinite loop: do until exceeded %d iterations", sc.vm.loopCap)
			}
			if err := sc.execBody(node.Body); err != nil {
				return err
			}
			cond, err := sc.evalExpr(node.Until)
			if err != nil {
				return err
			}
			if cond.Truthy() {
				return nil
			}
		}
	}
	return sc.execBody(node.Body)
}

func (sc *stepContext) execIterativeDo(node ast.DoLoop) error {
	start, err := sc.evalNumber(node.Start)
	if err != nil {
		return err
	}
	end, err := sc.evalNumber(node.End)
	if err != nil {
		return err
	}
	step := 1.0
	if node.By != nil {
		step, err = sc.evalNumber(node.By)
		if err != nil {
			return err
		}
	}
	if step == 0 {
		return stepErrorf(ErrRange, "do loop increment cannot be zero")
	}

	slot := sc.pdv.Find(node.Var)
	if slot < 0 {
		slot = sc.pdv.Add(ColumnMeta{Name: node.Var, Numeric: true, Length: 8}, false)
	}
	iterations := 0
	for v := start; (step > 0 && v <= end) || (step < 0 && v >= end); v += step {
		if iterations++; iterations > sc.vm.loopCap {
			return stepErrorf(ErrRange, "possible infinite loop: do loop exceeded %d iterations", sc.vm.loopCap)
		}
		sc.pdv.Set(slot, Num(v))
		if err := sc.execBody(node.Body); err != nil {
			return err
		}
	}
	return nil
}

// evalNumber evaluates an expression and converts to a number; missing
// converts to 0 for loop bounds, matching the original's behavior.
func (sc *stepContext) evalNumber(expr ast.Expr) (float64, error) {
	v, err := sc.evalExpr(expr)
	if err != nil {
		return 0, err
	}
	f, _ := v.Number()
	return f, nil
}

func (sc *stepContext) setArrayElem(name string, indexExpr ast.Expr, val Value) error {
	varName, err := sc.resolveArrayElem(name, indexExpr)
	if err != nil {
		return err
	}
	slot := sc.pdv.Find(varName)
	if slot < 0 {
		slot = sc.pdv.Add(ColumnMeta{Name: varName, Numeric: !val.IsStr(), Length: 8}, false)
	}
	sc.pdv.Set(slot, val)
	return nil
}

// resolveArrayElem maps array[index] to the underlying variable name.
// Indexing is 1-based; out-of-range is a range error aborting the step.
func (sc *stepContext) resolveArrayElem(name string, indexExpr ast.Expr) (string, error) {
	vars, ok := sc.arrays[strings.ToUpper(name)]
	if !ok {
		return "", stepErrorf(ErrUndefinedName, "array %s is not declared", name)
	}
	idxVal, err := sc.evalExpr(indexExpr)
	if err != nil {
		return "", err
	}
	f, ok2 := idxVal.Number()
	index := int(f)
	if !ok2 || index < 1 || index > len(vars) {
		return "", stepErrorf(ErrRange, "array index %s out of bounds for array %s (size %d)", idxVal.Format(), name, len(vars))
	}
	return vars[index-1], nil
}
