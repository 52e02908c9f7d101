package gosas

import (
	"github.com/google/uuid"

	"github.com/gosas/gosas/ast"
	"github.com/gosas/gosas/parser"
	sruntime "github.com/gosas/gosas/runtime"
)

// ExitStatus summarizes a program run.
type ExitStatus int

const (
	ExitClean        ExitStatus = 0
	ExitWarnings     ExitStatus = 1
	ExitErrors       ExitStatus = 2
	ExitParseFailure ExitStatus = 3
)

// Session holds a catalog and interpreter shared across Execute calls, so
// a REPL accumulates libraries and datasets the way batch mode does
// within one source file.
type Session struct {
	catalog *sruntime.Catalog
	vm      *sruntime.VM
	log     sruntime.Sink
}

func NewSession(logSink, lstSink sruntime.Sink, opts ...sruntime.VMOption) *Session {
	catalog := sruntime.NewCatalog()
	s := &Session{
		catalog: catalog,
		vm:      sruntime.NewVM(catalog, logSink, lstSink, opts...),
		log:     logSink,
	}
	s.log.Write(sruntime.LevelInfo, "NOTE: gosas session "+uuid.NewString()+" started.")
	return s
}

// Catalog exposes the session's datasets for tests and tooling. It returns
// the live catalog, not a read-only view: callers can define libraries and
// create datasets through it.
func (s *Session) Catalog() *sruntime.Catalog {
	return s.catalog
}

// VM exposes the interpreter, so frontends can attach configured libraries
// and read the title and options state.
func (s *Session) VM() *sruntime.VM {
	return s.vm
}

// Execute lexes, parses and runs one source unit against the session.
func (s *Session) Execute(source string) ExitStatus {
	prog, diags := parser.Parse(source)

	parseErrors := 0
	for _, d := range diags {
		level := sruntime.LevelWarn
		if d.Severity == parser.Error {
			level = sruntime.LevelError
			parseErrors++
		}
		s.log.Write(level, d.String())
	}
	if len(prog.Statements) == 0 && parseErrors > 0 {
		return ExitParseFailure
	}

	s.vm.ExecProgram(prog)

	switch {
	case s.vm.Errors() > 0 || parseErrors > 0:
		return ExitErrors
	case s.vm.Warnings() > 0 || len(diags) > 0:
		return ExitWarnings
	}
	return ExitClean
}

// Execute runs a complete program in a fresh session.
func Execute(source string, logSink, lstSink sruntime.Sink, opts ...sruntime.VMOption) ExitStatus {
	return NewSession(logSink, lstSink, opts...).Execute(source)
}

// Parse returns the AST and diagnostics without executing, for tooling.
func Parse(source string) (*ast.Program, []parser.Diagnostic) {
	return parser.Parse(source)
}
