package sruntime

import "testing"

const mergeFixture = `data ds1; input id v a; datalines;
1 10 100
2 20 200
4 40 400
;
run;
data ds2; input id v b; datalines;
1 11 111
3 33 333
4 44 444
;
run;
`

func TestMergeLaterDatasetWinsOnConflict(t *testing.T) {
	vm, _, _ := execSource(t, mergeFixture+`data out; merge ds1 ds2; by id; run;`)
	out := dataset(t, vm, "out")
	// id=1 appears in both; v must come from ds2.
	if got := cellNum(t, out, 0, "v"); got != 11 {
		t.Fatalf("v = %v, want 11 (later dataset wins)", got)
	}
	// Non-conflicting variables survive from both sides.
	if got := cellNum(t, out, 0, "a"); got != 100 {
		t.Fatalf("a = %v, want 100", got)
	}
	if got := cellNum(t, out, 0, "b"); got != 111 {
		t.Fatalf("b = %v, want 111", got)
	}
}

func TestMergeRowCountIsKeyUnion(t *testing.T) {
	vm, _, _ := execSource(t, mergeFixture+`data out; merge ds1 ds2; by id; run;`)
	out := dataset(t, vm, "out")
	// Keys: 1,2,3,4 -> four rows, one per key.
	if len(out.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(out.Rows))
	}
	wantIDs := []float64{1, 2, 3, 4}
	for i, want := range wantIDs {
		if got := cellNum(t, out, i, "id"); got != want {
			t.Fatalf("row %d id = %v, want %v", i, got, want)
		}
	}
}

func TestMergeSingletonRowsKeepOwnValues(t *testing.T) {
	vm, _, _ := execSource(t, mergeFixture+`data out; merge ds1 ds2; by id; run;`)
	out := dataset(t, vm, "out")
	// id=2 exists only in ds1: b must be missing.
	if !out.Value(out.Rows[1], "b").IsMissing() {
		t.Fatalf("b should be missing for a ds1-only key")
	}
	if got := cellNum(t, out, 1, "v"); got != 20 {
		t.Fatalf("v = %v, want 20", got)
	}
	// id=3 exists only in ds2: a must be missing.
	if !out.Value(out.Rows[2], "a").IsMissing() {
		t.Fatalf("a should be missing for a ds2-only key")
	}
}

func TestMergeSortsUnsortedInputs(t *testing.T) {
	vm, _, _ := execSource(t, `data u1; input id x; datalines;
3 30
1 10
;
run;
data u2; input id y; datalines;
1 100
3 300
;
run;
data out; merge u1 u2; by id; run;`)
	out := dataset(t, vm, "out")
	if len(out.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(out.Rows))
	}
	if got := cellNum(t, out, 0, "id"); got != 1 {
		t.Fatalf("first id = %v, want 1", got)
	}
	if got := cellNum(t, out, 0, "x"); got != 10 {
		t.Fatalf("x = %v, want 10", got)
	}
	// The source dataset keeps its original order.
	u1 := dataset(t, vm, "u1")
	if got := cellNum(t, u1, 0, "id"); got != 3 {
		t.Fatalf("merge must not reorder its inputs, u1 starts with id %v", got)
	}
}

func TestMergeWithoutByFails(t *testing.T) {
	vm, _, _ := execSource(t, mergeFixture+`data out; merge ds1 ds2; run;`)
	if vm.Errors() == 0 {
		t.Fatalf("merge without by must raise an error")
	}
}

func TestMergeMissingDatasetFails(t *testing.T) {
	vm, _, _ := execSource(t, mergeFixture+`data out; merge ds1 nosuch; by id; run;`)
	if vm.Errors() == 0 {
		t.Fatalf("merge with unknown dataset must raise an error")
	}
}
