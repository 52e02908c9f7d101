package sruntime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")

	ds := &Dataset{Name: "WORK.SCORES"}
	ds.AddColumn(ColumnMeta{Name: "name", Numeric: false})
	ds.AddColumn(ColumnMeta{Name: "score", Numeric: true})
	ds.Rows = []Row{
		{"name": Str("ann"), "score": Num(91.5)},
		{"name": Str("ben"), "score": MissingNum()},
	}

	codec := CSVCodec{}
	if err := codec.Write(path, ds); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded := &Dataset{Name: "WORK.LOADED"}
	if err := codec.Read(path, loaded); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded.Columns) != 2 || len(loaded.Rows) != 2 {
		t.Fatalf("shape %d cols %d rows", len(loaded.Columns), len(loaded.Rows))
	}
	if loaded.Columns[0].Numeric || !loaded.Columns[1].Numeric {
		t.Fatalf("type inference wrong: %#v", loaded.Columns)
	}
	if got := loaded.Value(loaded.Rows[0], "name").String(); got != "ann" {
		t.Fatalf("name = %q", got)
	}
	if f, _ := loaded.Value(loaded.Rows[0], "score").Number(); f != 91.5 {
		t.Fatalf("score = %v", f)
	}
	if !loaded.Value(loaded.Rows[1], "score").IsMissing() {
		t.Fatalf("empty cell should read as missing")
	}
}

func TestLibnameAutoloadsCSVDatasets(t *testing.T) {
	dir := t.TempDir()
	content := "id,region\n1,west\n2,east\n"
	if err := os.WriteFile(filepath.Join(dir, "sales.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	vm, logSink, _ := execSource(t, "libname ext '"+dir+"';\n")
	ds := dataset(t, vm, "ext.sales")
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
	if got := ds.Value(ds.Rows[1], "region").String(); got != "east" {
		t.Fatalf("region = %q", got)
	}
	joined := strings.Join(logSink.Lines(), "\n")
	if !strings.Contains(joined, "Loaded dataset EXT.sales") {
		t.Fatalf("autoload note missing:\n%s", joined)
	}
}

func TestDataStepPersistsToReadWriteLibrary(t *testing.T) {
	dir := t.TempDir()
	vm, _, _ := execSource(t, "libname outlib '"+dir+"';\ndata outlib.result; x = 7; output; run;")
	if vm.Errors() != 0 {
		t.Fatalf("unexpected errors")
	}
	raw, err := os.ReadFile(filepath.Join(dir, "result.csv"))
	if err != nil {
		t.Fatalf("persisted file missing: %v", err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "x\n") || !strings.Contains(text, "7") {
		t.Fatalf("persisted content wrong: %q", text)
	}
}

func TestWorkLibraryIsNotPersisted(t *testing.T) {
	vm, _, _ := execSource(t, "data w; x = 1; output; run;")
	lib, _ := vm.Catalog().Library("WORK")
	if lib.Access != AccessTemp {
		t.Fatalf("WORK must stay temporary")
	}
}
