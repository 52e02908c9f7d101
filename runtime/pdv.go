package sruntime

import "strings"

// PdvVar is one slot of the program data vector: column metadata plus the
// flags controlling the per-iteration reset.
type PdvVar struct {
	ColumnMeta
	Retained bool
	// FromInput marks variables loaded from the current input row; they
	// keep their value until the next row overwrites them.
	FromInput bool
}

// PDV is the program data vector of one DATA step: the ordered variable
// table whose values become an output row on OUTPUT. It is created at
// step entry and discarded at step exit.
type PDV struct {
	vars   []PdvVar
	values []Value
	index  map[string]int
}

func NewPDV() *PDV {
	return &PDV{index: map[string]int{}}
}

// Add registers a variable and returns its slot index. Adding an existing
// name (case-insensitive) is a no-op returning the existing slot.
func (p *PDV) Add(meta ColumnMeta, retained bool) int {
	key := strings.ToUpper(meta.Name)
	if i, ok := p.index[key]; ok {
		return i
	}
	p.vars = append(p.vars, PdvVar{ColumnMeta: meta, Retained: retained})
	p.values = append(p.values, MissingFor(meta.Numeric))
	i := len(p.vars) - 1
	p.index[key] = i
	return i
}

// Find returns the slot index for a name, or -1.
func (p *PDV) Find(name string) int {
	if i, ok := p.index[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

func (p *PDV) Len() int {
	return len(p.vars)
}

func (p *PDV) Var(i int) *PdvVar {
	return &p.vars[i]
}

func (p *PDV) Get(i int) Value {
	return p.values[i]
}

func (p *PDV) Set(i int, v Value) {
	p.values[i] = v
	p.vars[i].FromInput = false
}

// SetRetained flips the retention flag of an existing variable.
func (p *PDV) SetRetained(name string, retained bool) {
	if i := p.Find(name); i >= 0 {
		p.vars[i].Retained = retained
	}
}

// LoadRow copies the input row into the slots backing the dataset's
// columns and marks them as input-loaded. Cells absent from the row load
// as typed missing.
func (p *PDV) LoadRow(ds *Dataset, row Row) {
	for _, col := range ds.Columns {
		i := p.Find(col.Name)
		if i < 0 {
			continue
		}
		if v, ok := row[col.Name]; ok {
			p.values[i] = v
		} else {
			p.values[i] = MissingFor(col.Numeric)
		}
		p.vars[i].FromInput = true
	}
}

// Reset clears non-retained, non-input variables to their typed missing
// value. It runs between iterations.
func (p *PDV) Reset() {
	for i := range p.vars {
		if p.vars[i].Retained || p.vars[i].FromInput {
			continue
		}
		p.values[i] = MissingFor(p.vars[i].Numeric)
	}
}

// Snapshot projects the current values into a Row keyed by the given
// column order. Columns missing from the PDV are omitted so they read as
// typed missing.
func (p *PDV) Snapshot(columns []ColumnMeta) Row {
	row := Row{}
	for _, col := range columns {
		i := p.Find(col.Name)
		if i < 0 {
			continue
		}
		row[col.Name] = p.values[i]
	}
	return row
}

// Vars returns the slots in declaration order.
func (p *PDV) Vars() []PdvVar {
	out := make([]PdvVar, len(p.vars))
	copy(out, p.vars)
	return out
}
