// Command debug_ast parses a SAS source file and dumps the statement
// structure, for debugging the parser without running the interpreter.
package main

import (
	"fmt"
	"os"

	"github.com/gosas/gosas/ast"
	"github.com/gosas/gosas/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: debug_ast <file.sas>")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	prog, diags := parser.Parse(string(raw))
	for _, d := range diags {
		fmt.Printf("diag %s\n", d)
	}
	fmt.Printf("statements=%d\n", len(prog.Statements))
	for i, stmt := range prog.Statements {
		dump(i, stmt, 0)
	}
}

func dump(i int, stmt ast.Statement, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch s := stmt.(type) {
	case ast.DataStep:
		fmt.Printf("%s%d DataStep out=%s in=%s body=%d\n", indent, i, s.Output, s.Input, len(s.Body))
		for j, inner := range s.Body {
			dump(j, inner, depth+1)
		}
	case ast.Assignment:
		fmt.Printf("%s%d Assign %s idx=%v\n", indent, i, s.Name, s.Index != nil)
	case ast.IfThenElse:
		fmt.Printf("%s%d If then=%d elseifs=%d else=%d\n", indent, i, len(s.Then), len(s.ElseIfs), len(s.Else))
	case ast.DoLoop:
		fmt.Printf("%s%d Do var=%s while=%v until=%v body=%d\n", indent, i, s.Var, s.While != nil, s.Until != nil, len(s.Body))
	case ast.Merge:
		fmt.Printf("%s%d Merge %v\n", indent, i, s.Datasets)
	case ast.ProcSort:
		fmt.Printf("%s%d ProcSort data=%s out=%s by=%v nodupkey=%v\n", indent, i, s.Data, s.Out, s.By, s.NoDupKey)
	case ast.ProcPrint:
		fmt.Printf("%s%d ProcPrint data=%s obs=%d noobs=%v\n", indent, i, s.Data, s.Obs, s.NoObs)
	case ast.ProcMeans:
		fmt.Printf("%s%d ProcMeans data=%s stats=%v vars=%v\n", indent, i, s.Data, s.Stats, s.Vars)
	case ast.ProcFreq:
		fmt.Printf("%s%d ProcFreq data=%s tables=%v\n", indent, i, s.Data, s.Tables)
	default:
		fmt.Printf("%s%d %T\n", indent, i, stmt)
	}
}
