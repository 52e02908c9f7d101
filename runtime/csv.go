package sruntime

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DatasetCodec reads and writes datasets stored in a library directory.
// The CSV codec below is the in-tree implementation; a SAS7BDAT codec
// would satisfy the same interface.
type DatasetCodec interface {
	Ext() string
	Read(path string, ds *Dataset) error
	Write(path string, ds *Dataset) error
}

type CSVCodec struct{}

func (CSVCodec) Ext() string { return ".csv" }

func (CSVCodec) Read(path string, ds *Dataset) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("read %s: empty file", path)
	}

	header := records[0]
	body := records[1:]

	// A column is numeric when every non-empty cell parses as a number.
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = true
	}
	for _, rec := range body {
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[i] = false
			}
		}
	}

	ds.Clear()
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("VAR%d", i+1)
		}
		ds.AddColumn(ColumnMeta{Name: name, Numeric: numeric[i], Length: 8})
	}
	for _, rec := range body {
		row := Row{}
		for i, col := range ds.Columns {
			if i >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			if col.Numeric {
				if cell == "" {
					row[col.Name] = MissingNum()
					continue
				}
				f, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					row[col.Name] = MissingNum()
					continue
				}
				row[col.Name] = Num(f)
				continue
			}
			row[col.Name] = Str(cell)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return nil
}

func (CSVCodec) Write(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			v := ds.Value(row, col.Name)
			if v.IsMissing() {
				record[i] = ""
				continue
			}
			record[i] = v.Format()
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// loadLibraryDatasets reads every codec-recognized file in the library
// directory into the catalog. Called when LIBNAME attaches a path.
func loadLibraryDatasets(lib *Library, codec DatasetCodec, log *logger) {
	if lib.Path == "" {
		return
	}
	entries, err := os.ReadDir(lib.Path)
	if err != nil {
		log.Warnf("library %s: cannot read %s: %v", lib.Ref, lib.Path, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), codec.Ext()) {
			continue
		}
		member := strings.TrimSuffix(name, filepath.Ext(name))
		ds := lib.GetOrCreate(member)
		if err := codec.Read(filepath.Join(lib.Path, name), ds); err != nil {
			log.Warnf("library %s: %v", lib.Ref, err)
			continue
		}
		log.Infof("Loaded dataset %s (%d observations).", ds.Name, len(ds.Rows))
	}
}

// persistDataset writes a dataset back to its library directory when the
// library was attached read-write.
func persistDataset(lib *Library, ds *Dataset, codec DatasetCodec, log *logger) {
	if lib.Access != AccessReadWrite || lib.Path == "" {
		return
	}
	_, member := splitDatasetName(ds.Name)
	path := filepath.Join(lib.Path, strings.ToLower(member)+codec.Ext())
	if err := codec.Write(path, ds); err != nil {
		log.Warnf("library %s: cannot persist %s: %v", lib.Ref, ds.Name, err)
		return
	}
	log.Infof("Dataset %s saved to %s.", ds.Name, path)
}
