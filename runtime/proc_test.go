package sruntime

import (
	"strings"
	"testing"
)

const classFixture = `data class; input name $ sex $ age height; datalines;
alice f 13 56.5
bob m 14 64.3
carol f 14 62.8
dave m 12 57.3
erin f 12 59.1
;
run;
`

func TestProcSortOrdersAndWritesOut(t *testing.T) {
	vm, _, _ := execSource(t, classFixture+`proc sort data=class out=byage; by age name; run;`)
	out := dataset(t, vm, "byage")
	if len(out.Rows) != 5 {
		t.Fatalf("rows = %d", len(out.Rows))
	}
	wantNames := []string{"dave", "erin", "alice", "bob", "carol"}
	for i, want := range wantNames {
		if got := out.Value(out.Rows[i], "name").String(); got != want {
			t.Fatalf("row %d name = %q, want %q", i, got, want)
		}
	}
	// The input dataset keeps its order when out= is given.
	in := dataset(t, vm, "class")
	if got := in.Value(in.Rows[0], "name").String(); got != "alice" {
		t.Fatalf("input reordered: %q", got)
	}
}

func TestProcSortOverwritesInputWithoutOut(t *testing.T) {
	vm, _, _ := execSource(t, classFixture+`proc sort data=class; by age name; run;`)
	in := dataset(t, vm, "class")
	if got := in.Value(in.Rows[0], "name").String(); got != "dave" {
		t.Fatalf("in-place sort missing: first name %q", got)
	}
}

func TestProcSortNodupkey(t *testing.T) {
	vm, logSink, _ := execSource(t, classFixture+`proc sort data=class out=uniq nodupkey; by age; run;`)
	out := dataset(t, vm, "uniq")
	if len(out.Rows) != 3 {
		t.Fatalf("rows = %d, want 3 (ages 12,13,14)", len(out.Rows))
	}
	joined := strings.Join(logSink.Lines(), "\n")
	if !strings.Contains(joined, "2 observations with duplicate key values were deleted") {
		t.Fatalf("dedup count missing from log:\n%s", joined)
	}
}

func TestProcSortWhere(t *testing.T) {
	vm, _, _ := execSource(t, classFixture+`proc sort data=class out=teens; by name; where age >= 14; run;`)
	out := dataset(t, vm, "teens")
	if len(out.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(out.Rows))
	}
	if got := out.Value(out.Rows[0], "name").String(); got != "bob" {
		t.Fatalf("first row %q", got)
	}
}

func TestProcPrintListing(t *testing.T) {
	_, _, lstSink := execSource(t, classFixture+`title 'Class Roster';
proc print data=class obs=2; var name age; run;`)
	lines := lstSink.Lines()
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Title: Class Roster") {
		t.Fatalf("title missing:\n%s", joined)
	}
	if !strings.Contains(joined, "Obs\tname\tage") {
		t.Fatalf("header missing:\n%s", joined)
	}
	if !strings.Contains(joined, "1\talice\t13") || !strings.Contains(joined, "2\tbob\t14") {
		t.Fatalf("rows missing:\n%s", joined)
	}
	if strings.Contains(joined, "carol") {
		t.Fatalf("obs=2 limit ignored:\n%s", joined)
	}
}

func TestProcPrintNoObs(t *testing.T) {
	_, _, lstSink := execSource(t, classFixture+`proc print data=class noobs; var name; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	if strings.Contains(joined, "Obs\t") {
		t.Fatalf("noobs should suppress the Obs column:\n%s", joined)
	}
	if !strings.Contains(joined, "alice") {
		t.Fatalf("rows missing:\n%s", joined)
	}
}

func TestProcMeansStatistics(t *testing.T) {
	_, _, lstSink := execSource(t, `data nums; input x; datalines;
2
4
6
8
;
run;
proc means data=nums n mean min max std; var x; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	if !strings.Contains(joined, "Variable\tN\tMean\tMin\tMax\tStd") {
		t.Fatalf("header missing:\n%s", joined)
	}
	// n=4 mean=5 min=2 max=8 std=sqrt((9+1+1+9)/3)=2.581989
	if !strings.Contains(joined, "x\t4\t5\t2\t8\t2.581989") {
		t.Fatalf("stats row wrong:\n%s", joined)
	}
}

func TestProcMeansDefaultsToNumericColumns(t *testing.T) {
	_, _, lstSink := execSource(t, classFixture+`proc means data=class; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	if !strings.Contains(joined, "age\t") || !strings.Contains(joined, "height\t") {
		t.Fatalf("numeric columns missing:\n%s", joined)
	}
	if strings.Contains(joined, "\nname\t") {
		t.Fatalf("character column included:\n%s", joined)
	}
}

func TestProcMeansSkipsMissing(t *testing.T) {
	_, _, lstSink := execSource(t, `data nums; input x; datalines;
1
.
3
;
run;
proc means data=nums n mean; var x; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	if !strings.Contains(joined, "x\t2\t2") {
		t.Fatalf("missing values must not count:\n%s", joined)
	}
}

func TestProcFreqCountsAndOrder(t *testing.T) {
	_, _, lstSink := execSource(t, classFixture+`proc freq data=class; tables sex; run;`)
	lines := lstSink.Lines()
	var rows []string
	for _, line := range lines {
		if strings.HasPrefix(line, "f\t") || strings.HasPrefix(line, "m\t") {
			rows = append(rows, line)
		}
	}
	if len(rows) != 2 {
		t.Fatalf("frequency rows = %v", rows)
	}
	if rows[0] != "f\t3" || rows[1] != "m\t2" {
		t.Fatalf("descending count order broken: %v", rows)
	}
}

func TestProcFreqTiesBreakOnValueOrder(t *testing.T) {
	_, _, lstSink := execSource(t, `data v; input g $; datalines;
b
a
b
a
;
run;
proc freq data=v; tables g; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	aIdx := strings.Index(joined, "a\t2")
	bIdx := strings.Index(joined, "b\t2")
	if aIdx < 0 || bIdx < 0 || aIdx > bIdx {
		t.Fatalf("tie order wrong:\n%s", joined)
	}
}

func TestProcFreqExcludesMissing(t *testing.T) {
	_, _, lstSink := execSource(t, `data v; input x; datalines;
1
.
1
2
;
run;
proc freq data=v; tables x; run;`)
	joined := strings.Join(lstSink.Lines(), "\n")
	if !strings.Contains(joined, "1\t2") || !strings.Contains(joined, "2\t1") {
		t.Fatalf("counts wrong:\n%s", joined)
	}
	if strings.Contains(joined, ".\t") {
		t.Fatalf("missing must not be tabled:\n%s", joined)
	}
}

func TestProcOnMissingDatasetFails(t *testing.T) {
	vm, _, _ := execSource(t, `proc print data=ghost; run;`)
	if vm.Errors() == 0 {
		t.Fatalf("missing dataset should raise an error")
	}
}
