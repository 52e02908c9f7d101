package sruntime

import (
	"fmt"
	"strings"
	"time"
)

type AccessMode int

const (
	AccessReadWrite AccessMode = iota
	AccessReadOnly
	AccessTemp
)

func (m AccessMode) String() string {
	switch m {
	case AccessReadWrite:
		return "readwrite"
	case AccessReadOnly:
		return "readonly"
	case AccessTemp:
		return "temp"
	}
	return "unknown"
}

type ColumnMeta struct {
	Name     string
	Numeric  bool
	Length   int
	Label    string
	Format   string
	Decimals int
}

// MissingFor returns the typed missing value for a column.
func MissingFor(numeric bool) Value {
	if numeric {
		return MissingNum()
	}
	return Str("")
}

// Row maps canonical column names to values. Absent keys read as typed
// missing through Dataset.Value.
type Row map[string]Value

// Dataset is an ordered set of columns plus rows. Column order is the
// order of first observation; names match case-insensitively but keep
// their first-declared spelling for display.
type Dataset struct {
	Name    string
	Columns []ColumnMeta
	Rows    []Row
}

func (ds *Dataset) ColumnIndex(name string) int {
	for i := range ds.Columns {
		if strings.EqualFold(ds.Columns[i].Name, name) {
			return i
		}
	}
	return -1
}

func (ds *Dataset) Column(name string) (ColumnMeta, bool) {
	i := ds.ColumnIndex(name)
	if i < 0 {
		return ColumnMeta{}, false
	}
	return ds.Columns[i], true
}

// AddColumn registers a column if its name is new and returns its index.
func (ds *Dataset) AddColumn(meta ColumnMeta) int {
	if i := ds.ColumnIndex(meta.Name); i >= 0 {
		return i
	}
	ds.Columns = append(ds.Columns, meta)
	return len(ds.Columns) - 1
}

// CanonicalName maps any casing of a column name to the declared spelling.
func (ds *Dataset) CanonicalName(name string) string {
	if i := ds.ColumnIndex(name); i >= 0 {
		return ds.Columns[i].Name
	}
	return name
}

// Value reads a cell, substituting the column's typed missing value when
// the row has no entry.
func (ds *Dataset) Value(row Row, name string) Value {
	i := ds.ColumnIndex(name)
	if i < 0 {
		return MissingNum()
	}
	if v, ok := row[ds.Columns[i].Name]; ok {
		return v
	}
	return MissingFor(ds.Columns[i].Numeric)
}

// Clear drops all rows and columns; a DATA step recreates its output
// dataset from scratch.
func (ds *Dataset) Clear() {
	ds.Columns = nil
	ds.Rows = nil
}

type Library struct {
	Ref       string
	Path      string
	Access    AccessMode
	CreatedAt time.Time

	datasets map[string]*Dataset
	order    []string
}

func newLibrary(ref, path string, access AccessMode) *Library {
	return &Library{
		Ref:       strings.ToUpper(ref),
		Path:      path,
		Access:    access,
		CreatedAt: time.Now(),
		datasets:  map[string]*Dataset{},
	}
}

func (lib *Library) Dataset(name string) (*Dataset, bool) {
	ds, ok := lib.datasets[strings.ToUpper(name)]
	return ds, ok
}

func (lib *Library) GetOrCreate(name string) *Dataset {
	key := strings.ToUpper(name)
	if ds, ok := lib.datasets[key]; ok {
		return ds
	}
	// The map key is uppercased; Name keeps the first-declared spelling
	// for display, the way ColumnMeta.Name does for variables.
	ds := &Dataset{Name: lib.Ref + "." + name}
	lib.datasets[key] = ds
	lib.order = append(lib.order, key)
	return ds
}

// DatasetNames returns member names in creation order.
func (lib *Library) DatasetNames() []string {
	names := make([]string, len(lib.order))
	copy(names, lib.order)
	return names
}

// Catalog owns all libraries. A WORK library with temporary access exists
// from startup.
type Catalog struct {
	libs  map[string]*Library
	order []string
}

func NewCatalog() *Catalog {
	c := &Catalog{libs: map[string]*Library{}}
	c.DefineLibrary("WORK", "", AccessTemp)
	return c
}

func (c *Catalog) DefineLibrary(ref, path string, access AccessMode) *Library {
	key := strings.ToUpper(ref)
	if lib, ok := c.libs[key]; ok {
		lib.Path = path
		lib.Access = access
		return lib
	}
	lib := newLibrary(key, path, access)
	c.libs[key] = lib
	c.order = append(c.order, key)
	return lib
}

func (c *Catalog) Library(ref string) (*Library, bool) {
	lib, ok := c.libs[strings.ToUpper(ref)]
	return lib, ok
}

func (c *Catalog) LibraryNames() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// splitDatasetName splits "LIBREF.NAME" into its parts; a bare name
// defaults to WORK.
func splitDatasetName(qualified string) (libref, name string) {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	return "WORK", qualified
}

// GetOrCreateDataset resolves "NAME" or "LIBREF.NAME", creating the
// dataset on first use. Referencing an undefined libref is an error.
func (c *Catalog) GetOrCreateDataset(qualified string) (*Dataset, error) {
	libref, name := splitDatasetName(qualified)
	lib, ok := c.Library(libref)
	if !ok {
		return nil, fmt.Errorf("libref %s is not assigned", strings.ToUpper(libref))
	}
	return lib.GetOrCreate(name), nil
}

// Dataset looks up an existing dataset without creating it.
func (c *Catalog) Dataset(qualified string) (*Dataset, bool) {
	libref, name := splitDatasetName(qualified)
	lib, ok := c.Library(libref)
	if !ok {
		return nil, false
	}
	return lib.Dataset(name)
}
