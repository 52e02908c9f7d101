package sruntime

import "testing"

func sampleDataset() *Dataset {
	ds := &Dataset{Name: "WORK.S"}
	ds.AddColumn(ColumnMeta{Name: "id", Numeric: true})
	ds.AddColumn(ColumnMeta{Name: "seq", Numeric: true})
	rows := [][2]float64{{3, 1}, {1, 2}, {2, 3}, {1, 4}, {3, 5}}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, Row{"id": Num(r[0]), "seq": Num(r[1])})
	}
	return ds
}

func ids(ds *Dataset) []float64 {
	out := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		out[i], _ = row["id"].Number()
	}
	return out
}

func TestSortAscendingStable(t *testing.T) {
	ds := sampleDataset()
	SortDataset(ds, []string{"id"})
	want := []float64{1, 1, 2, 3, 3}
	for i, id := range ids(ds) {
		if id != want[i] {
			t.Fatalf("row %d id = %v, want %v", i, id, want[i])
		}
	}
	// Stability: equal keys keep input order (seq 2 before 4, 1 before 5).
	if f, _ := ds.Rows[0]["seq"].Number(); f != 2 {
		t.Fatalf("stability broken for id=1: seq %v", f)
	}
	if f, _ := ds.Rows[3]["seq"].Number(); f != 1 {
		t.Fatalf("stability broken for id=3: seq %v", f)
	}
}

func TestSortIdempotent(t *testing.T) {
	ds := sampleDataset()
	SortDataset(ds, []string{"id"})
	first := append([]Row(nil), ds.Rows...)
	SortDataset(ds, []string{"id"})
	for i := range first {
		a, _ := first[i]["seq"].Number()
		b, _ := ds.Rows[i]["seq"].Number()
		if a != b {
			t.Fatalf("second sort changed row %d", i)
		}
	}
}

func TestIsSorted(t *testing.T) {
	ds := sampleDataset()
	if IsSorted(ds, []string{"id"}) {
		t.Fatalf("unsorted dataset reported sorted")
	}
	SortDataset(ds, []string{"id"})
	if !IsSorted(ds, []string{"id"}) {
		t.Fatalf("sorted dataset reported unsorted")
	}
}

func TestMissingSortsFirst(t *testing.T) {
	ds := &Dataset{Name: "WORK.M"}
	ds.AddColumn(ColumnMeta{Name: "k", Numeric: true})
	ds.Rows = []Row{{"k": Num(1)}, {"k": MissingNum()}, {"k": Num(-5)}}
	SortDataset(ds, []string{"k"})
	if !ds.Rows[0]["k"].IsMissing() {
		t.Fatalf("missing should sort first, got %v", ds.Rows[0]["k"])
	}
}

func TestDedupKeepsFirstOfGroup(t *testing.T) {
	ds := sampleDataset()
	SortDataset(ds, []string{"id"})
	removed := Dedup(ds, []string{"id"})
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(ds.Rows))
	}
	// The survivor of id=1 is the earlier row (seq 2).
	if f, _ := ds.Rows[0]["seq"].Number(); f != 2 {
		t.Fatalf("dedup kept wrong row: seq %v", f)
	}
}
