package parser

import (
	"fmt"
	"strings"

	"github.com/gosas/gosas/ast"
)

// Parser turns a token stream into an ast.Program. Syntax errors are
// collected as diagnostics; the parser resynchronizes at the next ";" and,
// inside a step, at the next "run;".
type Parser struct {
	tokens []Token
	pos    int
	diags  []Diagnostic
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses source in one call.
func Parse(source string) (*ast.Program, []Diagnostic) {
	tokens, lexDiags := NewLexer(source).Tokenize()
	p := NewParser(tokens)
	prog := p.ParseProgram()
	return prog, append(lexDiags, p.diags...)
}

func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.peek().Kind != EOF {
		if p.peek().Kind == Semicolon {
			p.next()
			continue
		}
		stmt, err := p.parseTopLevel()
		if err != nil {
			p.report(err)
			p.syncToRun()
			continue
		}
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog
}

func (p *Parser) Diagnostics() []Diagnostic {
	return p.diags
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorf(tok, "expected %s, got %q", what, tok.Text)
	}
	return p.next(), nil
}

type parseError struct {
	Line, Col int
	Message   string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("line %d col %d: %s", e.Line, e.Col, e.Message)
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return &parseError{Line: tok.Line, Col: tok.Col, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) report(err error) {
	if pe, ok := err.(*parseError); ok {
		p.diags = append(p.diags, Diagnostic{Severity: Error, Line: pe.Line, Col: pe.Col, Message: pe.Message})
		return
	}
	p.diags = append(p.diags, Diagnostic{Severity: Error, Message: err.Error()})
}

// syncToSemicolon advances past the next ";".
func (p *Parser) syncToSemicolon() {
	for {
		tok := p.next()
		if tok.Kind == Semicolon || tok.Kind == EOF {
			return
		}
	}
}

// syncToRun advances past the next ";" and then past the next "run;".
func (p *Parser) syncToRun() {
	p.syncToSemicolon()
	for {
		tok := p.next()
		if tok.Kind == EOF {
			return
		}
		if tok.Kind == KwRun {
			if p.peek().Kind == Semicolon {
				p.next()
			}
			return
		}
	}
}

func (p *Parser) parseTopLevel() (ast.Statement, error) {
	tok := p.peek()
	switch tok.Kind {
	case KwData:
		return p.parseDataStep()
	case KwProc:
		return p.parseProc()
	case KwLibname:
		return p.parseLibname()
	case KwOptions:
		return p.parseOptions()
	case KwTitle:
		return p.parseTitle()
	}
	return nil, p.errorf(tok, "unexpected token %q at start of statement", tok.Text)
}

// parseDatasetName parses NAME or LIBREF.NAME and returns the dotted text.
func (p *Parser) parseDatasetName() (string, error) {
	tok := p.peek()
	name, ok := identLike(tok)
	if !ok {
		return "", p.errorf(tok, "expected dataset name, got %q", tok.Text)
	}
	p.next()
	if p.peek().Kind != Dot {
		return name, nil
	}
	p.next()
	tok = p.peek()
	member, ok := identLike(tok)
	if !ok {
		return "", p.errorf(tok, "expected dataset name after %q., got %q", name, tok.Text)
	}
	p.next()
	return name + "." + member, nil
}

func (p *Parser) parseDataStep() (ast.Statement, error) {
	p.next() // data
	output, err := p.parseDatasetName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}

	step := ast.DataStep{Output: output}
	for {
		tok := p.peek()
		if tok.Kind == EOF {
			return nil, p.errorf(tok, "data step %q not terminated by run", output)
		}
		if tok.Kind == KwRun {
			p.next()
			if _, err := p.expect(Semicolon, `";" after run`); err != nil {
				p.report(err)
			}
			return step, nil
		}
		if tok.Kind == Semicolon {
			p.next()
			continue
		}
		stmt, err := p.parseStepStatement()
		if err != nil {
			p.report(err)
			p.syncToSemicolon()
			continue
		}
		if set, ok := stmt.(ast.Set); ok {
			step.Input = set.Dataset
			continue
		}
		step.Body = append(step.Body, stmt)
	}
}

// parseStepStatement parses one statement of a DATA step body.
func (p *Parser) parseStepStatement() (ast.Statement, error) {
	tok := p.peek()
	switch tok.Kind {
	case KwSet:
		p.next()
		name, err := p.parseDatasetName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		return ast.Set{Dataset: name}, nil
	case KwMerge:
		return p.parseMerge()
	case KwBy:
		p.next()
		vars, err := p.parseVarList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		return ast.By{Vars: vars}, nil
	case KwIf:
		return p.parseIf()
	case KwDo:
		return p.parseDo()
	case KwOutput:
		p.next()
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		return ast.Output{}, nil
	case KwDrop:
		p.next()
		vars, err := p.parseVarList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		return ast.Drop{Vars: vars}, nil
	case KwKeep:
		p.next()
		vars, err := p.parseVarList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		return ast.Keep{Vars: vars}, nil
	case KwRetain:
		return p.parseRetain()
	case KwArray:
		return p.parseArray()
	case KwInput:
		return p.parseInput()
	case KwDatalines:
		return p.parseDatalines()
	case KwEnd:
		return nil, p.errorf(tok, "end without a matching do")
	}
	if _, ok := identLike(tok); ok {
		return p.parseAssignment()
	}
	return nil, p.errorf(tok, "unexpected token %q in data step", tok.Text)
}

func (p *Parser) parseAssignment() (ast.Statement, error) {
	tok := p.next()
	name, _ := identLike(tok)
	stmt := ast.Assignment{Name: name}
	if p.peek().Kind == LBracket {
		p.next()
		index, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBracket, "]"); err != nil {
			return nil, err
		}
		stmt.Index = index
	}
	if _, err := p.expect(Equal, `"="`); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	stmt.Expr = expr
	return stmt, nil
}

func (p *Parser) parseMerge() (ast.Statement, error) {
	p.next() // merge
	var datasets []string
	for {
		name, err := p.parseDatasetName()
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, name)
		if _, ok := identLike(p.peek()); !ok {
			break
		}
	}
	if len(datasets) < 2 {
		return nil, p.errorf(p.peek(), "merge requires at least two datasets")
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return ast.Merge{Datasets: datasets}, nil
}

// parseBranchBody parses the target of THEN or ELSE: either a single
// statement or a do-block.
func (p *Parser) parseBranchBody() ([]ast.Statement, error) {
	if p.peek().Kind == KwDo {
		block, err := p.parseDo()
		if err != nil {
			return nil, err
		}
		loop := block.(ast.DoLoop)
		if loop.Var == "" && loop.While == nil && loop.Until == nil {
			return loop.Body, nil
		}
		return []ast.Statement{block}, nil
	}
	stmt, err := p.parseStepStatement()
	if err != nil {
		return nil, err
	}
	return []ast.Statement{stmt}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	p.next() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwThen, "then"); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBranchBody()
	if err != nil {
		return nil, err
	}
	stmt := ast.IfThenElse{Cond: cond, Then: thenBody}
	for p.peek().Kind == KwElse {
		p.next()
		if p.peek().Kind == KwIf {
			p.next()
			elseIfCond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(KwThen, "then"); err != nil {
				return nil, err
			}
			body, err := p.parseBranchBody()
			if err != nil {
				return nil, err
			}
			stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Cond: elseIfCond, Body: body})
			continue
		}
		elseBody, err := p.parseBranchBody()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
		break
	}
	return stmt, nil
}

// parseDo parses "do;", "do var = a to b by c;", "do while(cond);" and
// "do until(cond);", each terminated by "end;".
func (p *Parser) parseDo() (ast.Statement, error) {
	p.next() // do
	loop := ast.DoLoop{}
	switch p.peek().Kind {
	case Semicolon:
		p.next()
	case KwWhile, KwUntil:
		kind := p.next().Kind
		if _, err := p.expect(LParen, "("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen, ")"); err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
		if kind == KwWhile {
			loop.While = cond
		} else {
			loop.Until = cond
		}
	default:
		tok := p.peek()
		name, ok := identLike(tok)
		if !ok {
			return nil, p.errorf(tok, "expected loop variable after do, got %q", tok.Text)
		}
		p.next()
		if _, err := p.expect(Equal, `"="`); err != nil {
			return nil, err
		}
		start, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(KwTo, "to"); err != nil {
			return nil, err
		}
		end, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		loop.Var = name
		loop.Start = start
		loop.End = end
		if p.peek().Kind == KwBy {
			p.next()
			step, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			loop.By = step
		}
		if _, err := p.expect(Semicolon, `";"`); err != nil {
			return nil, err
		}
	}

	for {
		tok := p.peek()
		if tok.Kind == EOF || tok.Kind == KwRun {
			return nil, p.errorf(tok, "do block not terminated by end")
		}
		if tok.Kind == Semicolon {
			p.next()
			continue
		}
		if tok.Kind == KwEnd {
			p.next()
			if _, err := p.expect(Semicolon, `";" after end`); err != nil {
				return nil, err
			}
			return loop, nil
		}
		stmt, err := p.parseStepStatement()
		if err != nil {
			return nil, err
		}
		loop.Body = append(loop.Body, stmt)
	}
}

func (p *Parser) parseRetain() (ast.Statement, error) {
	p.next() // retain
	stmt := ast.Retain{}
	for {
		tok := p.peek()
		name, ok := identLike(tok)
		if !ok {
			break
		}
		p.next()
		stmt.Vars = append(stmt.Vars, name)
		switch p.peek().Kind {
		case Number, String, Minus:
			init, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			stmt.Inits = append(stmt.Inits, init)
		default:
			stmt.Inits = append(stmt.Inits, nil)
		}
	}
	if len(stmt.Vars) == 0 {
		return nil, p.errorf(p.peek(), "retain requires at least one variable")
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseArray() (ast.Statement, error) {
	p.next() // array
	tok := p.peek()
	name, ok := identLike(tok)
	if !ok {
		return nil, p.errorf(tok, "expected array name, got %q", tok.Text)
	}
	p.next()
	if _, err := p.expect(LBracket, "["); err != nil {
		return nil, err
	}
	sizeTok, err := p.expect(Number, "array size")
	if err != nil {
		return nil, err
	}
	size := 0
	for _, r := range sizeTok.Text {
		if r < '0' || r > '9' {
			return nil, p.errorf(sizeTok, "array size must be an integer")
		}
		size = size*10 + int(r-'0')
	}
	if _, err := p.expect(RBracket, "]"); err != nil {
		return nil, err
	}
	vars, err := p.parseVarList()
	if err != nil {
		return nil, err
	}
	if size != len(vars) {
		return nil, p.errorf(sizeTok, "array %s declares %d elements but lists %d variables", name, size, len(vars))
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return ast.ArrayDecl{Name: name, Size: size, Vars: vars}, nil
}

func (p *Parser) parseInput() (ast.Statement, error) {
	p.next() // input
	stmt := ast.Input{}
	for {
		tok := p.peek()
		name, ok := identLike(tok)
		if !ok {
			break
		}
		p.next()
		v := ast.InputVar{Name: name}
		if p.peek().Kind == Dollar {
			p.next()
			v.Char = true
		}
		stmt.Vars = append(stmt.Vars, v)
	}
	if len(stmt.Vars) == 0 {
		return nil, p.errorf(p.peek(), "input requires at least one variable")
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseDatalines() (ast.Statement, error) {
	p.next() // datalines
	if _, err := p.expect(Semicolon, `";" after datalines`); err != nil {
		return nil, err
	}
	stmt := ast.Datalines{}
	for p.peek().Kind == DataLine {
		stmt.Lines = append(stmt.Lines, p.next().Text)
	}
	if _, err := p.expect(Semicolon, "terminating ';' line"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseVarList() ([]string, error) {
	var vars []string
	for {
		tok := p.peek()
		name, ok := identLike(tok)
		if !ok {
			break
		}
		p.next()
		vars = append(vars, name)
	}
	if len(vars) == 0 {
		return nil, p.errorf(p.peek(), "expected at least one variable name")
	}
	return vars, nil
}

func (p *Parser) parseLibname() (ast.Statement, error) {
	p.next() // libname
	tok := p.peek()
	libref, ok := identLike(tok)
	if !ok {
		return nil, p.errorf(tok, "expected libref, got %q", tok.Text)
	}
	p.next()
	pathTok, err := p.expect(String, "quoted library path")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return ast.Libname{Libref: libref, Path: pathTok.Text}, nil
}

func (p *Parser) parseOptions() (ast.Statement, error) {
	p.next() // options
	stmt := ast.Options{}
	for {
		tok := p.peek()
		key, ok := identLike(tok)
		if !ok {
			break
		}
		p.next()
		pair := ast.OptionPair{Key: strings.ToLower(key)}
		if p.peek().Kind == Equal {
			p.next()
			val := p.next()
			if _, ok := identLike(val); ok || val.Kind == Number || val.Kind == String {
				pair.Value = val.Text
			} else {
				return nil, p.errorf(val, "invalid option value %q", val.Text)
			}
		}
		stmt.Pairs = append(stmt.Pairs, pair)
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseTitle() (ast.Statement, error) {
	p.next() // title
	tok, err := p.expect(String, "quoted title text")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	return ast.Title{Text: tok.Text}, nil
}

func (p *Parser) parseProc() (ast.Statement, error) {
	procTok := p.next() // proc
	switch p.peek().Kind {
	case KwSort:
		p.next()
		return p.parseProcSort()
	case KwPrint:
		p.next()
		return p.parseProcPrint()
	case KwMeans:
		p.next()
		return p.parseProcMeans()
	case KwFreq:
		p.next()
		return p.parseProcFreq()
	}
	return nil, p.errorf(procTok, "unsupported procedure %q", p.peek().Text)
}

// expectRun consumes the "run;" that closes a PROC step.
func (p *Parser) expectRun() error {
	if _, err := p.expect(KwRun, "run"); err != nil {
		return err
	}
	if _, err := p.expect(Semicolon, `";" after run`); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseProcDataOption() (string, error) {
	if _, err := p.expect(Equal, `"=" after data`); err != nil {
		return "", err
	}
	return p.parseDatasetName()
}

func (p *Parser) parseProcSort() (ast.Statement, error) {
	stmt := ast.ProcSort{}
opts:
	for {
		switch p.peek().Kind {
		case KwData:
			p.next()
			name, err := p.parseProcDataOption()
			if err != nil {
				return nil, err
			}
			stmt.Data = name
		case KwOut:
			p.next()
			if _, err := p.expect(Equal, `"=" after out`); err != nil {
				return nil, err
			}
			name, err := p.parseDatasetName()
			if err != nil {
				return nil, err
			}
			stmt.Out = name
		case KwNoDupKey:
			p.next()
			stmt.NoDupKey = true
		case KwDuplicates:
			p.next()
			stmt.Duplicates = true
		default:
			break opts
		}
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case KwBy:
			p.next()
			vars, err := p.parseVarList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(Semicolon, `";"`); err != nil {
				return nil, err
			}
			stmt.By = vars
		case KwWhere:
			p.next()
			cond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(Semicolon, `";"`); err != nil {
				return nil, err
			}
			stmt.Where = cond
		default:
			if len(stmt.By) == 0 {
				return nil, p.errorf(p.peek(), "proc sort requires a by statement")
			}
			return stmt, p.expectRun()
		}
	}
}

func (p *Parser) parseProcPrint() (ast.Statement, error) {
	stmt := ast.ProcPrint{}
opts:
	for {
		switch p.peek().Kind {
		case KwData:
			p.next()
			name, err := p.parseProcDataOption()
			if err != nil {
				return nil, err
			}
			stmt.Data = name
		case KwObs:
			p.next()
			if _, err := p.expect(Equal, `"=" after obs`); err != nil {
				return nil, err
			}
			tok, err := p.expect(Number, "observation limit")
			if err != nil {
				return nil, err
			}
			n := 0
			for _, r := range tok.Text {
				if r < '0' || r > '9' {
					return nil, p.errorf(tok, "obs= must be an integer")
				}
				n = n*10 + int(r-'0')
			}
			stmt.Obs = n
		case KwNoObs:
			p.next()
			stmt.NoObs = true
		case KwLabel:
			p.next()
			stmt.Label = true
		default:
			break opts
		}
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	for {
		if p.peek().Kind == KwVar {
			p.next()
			vars, err := p.parseVarList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(Semicolon, `";"`); err != nil {
				return nil, err
			}
			stmt.Vars = vars
			continue
		}
		return stmt, p.expectRun()
	}
}

func (p *Parser) parseProcMeans() (ast.Statement, error) {
	stmt := ast.ProcMeans{}
opts:
	for {
		switch p.peek().Kind {
		case KwData:
			p.next()
			name, err := p.parseProcDataOption()
			if err != nil {
				return nil, err
			}
			stmt.Data = name
		case KwN, KwMean, KwStd, KwMin, KwMax, KwMedian:
			stmt.Stats = append(stmt.Stats, strings.ToLower(p.next().Text))
		case KwNoMissing, KwNoPrint:
			// Accepted and ignored; the original reserves these keywords.
			p.next()
		default:
			break opts
		}
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	for {
		if p.peek().Kind == KwVar {
			p.next()
			vars, err := p.parseVarList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(Semicolon, `";"`); err != nil {
				return nil, err
			}
			stmt.Vars = vars
			continue
		}
		return stmt, p.expectRun()
	}
}

func (p *Parser) parseProcFreq() (ast.Statement, error) {
	stmt := ast.ProcFreq{}
	for p.peek().Kind == KwData {
		p.next()
		name, err := p.parseProcDataOption()
		if err != nil {
			return nil, err
		}
		stmt.Data = name
	}
	if _, err := p.expect(Semicolon, `";"`); err != nil {
		return nil, err
	}
	for {
		if p.peek().Kind == KwTables {
			p.next()
			vars, err := p.parseVarList()
			if err != nil {
				return nil, err
			}
			// "/ nocum nopercent" style option tails are accepted and skipped.
			if p.peek().Kind == Slash {
				for p.peek().Kind != Semicolon && p.peek().Kind != EOF {
					p.next()
				}
			}
			if _, err := p.expect(Semicolon, `";"`); err != nil {
				return nil, err
			}
			stmt.Tables = append(stmt.Tables, vars...)
			continue
		}
		return stmt, p.expectRun()
	}
}
