package sruntime

import (
	"math"
	"strings"
	"time"

	"github.com/gosas/gosas/ast"
)

func (sc *stepContext) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case ast.NumberLit:
		return Num(e.Value), nil
	case ast.StringLit:
		return Str(e.Value), nil
	case ast.VarRef:
		return sc.evalVarRef(e.Name), nil
	case ast.ArrayElem:
		varName, err := sc.resolveArrayElem(e.Name, e.Index)
		if err != nil {
			return Value{}, err
		}
		return sc.evalVarRef(varName), nil
	case ast.CallExpr:
		return sc.evalCall(e)
	case ast.UnaryExpr:
		return sc.evalUnary(e)
	case ast.BinaryExpr:
		return sc.evalBinary(e)
	}
	return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported expression %T", expr)
}

// evalVarRef reads a PDV variable. An unknown name warns once, joins the
// PDV as numeric missing, and reads as missing.
func (sc *stepContext) evalVarRef(name string) Value {
	if i := sc.pdv.Find(name); i >= 0 {
		return sc.pdv.Get(i)
	}
	sc.vm.warnf("variable %s is uninitialized, missing value used", name)
	sc.pdv.Add(ColumnMeta{Name: name, Numeric: true, Length: 8}, false)
	return MissingNum()
}

func (sc *stepContext) evalUnary(e ast.UnaryExpr) (Value, error) {
	v, err := sc.evalExpr(e.Expr)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "-":
		f, ok := v.Number()
		if !ok {
			if v.IsStr() {
				sc.vm.warnf("character value %q cannot be converted to a number", v.String())
			}
			return MissingNum(), nil
		}
		return Num(-f), nil
	case "not":
		if v.Truthy() {
			return Num(0), nil
		}
		return Num(1), nil
	}
	return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported unary operator %q", e.Op)
}

func boolValue(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}

func (sc *stepContext) evalBinary(e ast.BinaryExpr) (Value, error) {
	left, err := sc.evalExpr(e.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := sc.evalExpr(e.Right)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case "and":
		return boolValue(left.Truthy() && right.Truthy()), nil
	case "or":
		return boolValue(left.Truthy() || right.Truthy()), nil
	}

	if isComparison(e.Op) {
		return sc.compare(e.Op, left, right), nil
	}

	lf, lok := left.Number()
	rf, rok := right.Number()
	if !lok || !rok {
		// Missing propagates through arithmetic. A string that fails to
		// convert additionally warns.
		if !lok && left.IsStr() {
			sc.vm.warnf("character value %q cannot be converted to a number", left.String())
		}
		if !rok && right.IsStr() {
			sc.vm.warnf("character value %q cannot be converted to a number", right.String())
		}
		return MissingNum(), nil
	}
	switch e.Op {
	case "+":
		return Num(lf + rf), nil
	case "-":
		return Num(lf - rf), nil
	case "*":
		return Num(lf * rf), nil
	case "/":
		if rf == 0 {
			sc.vm.warnf("division by zero, missing value assigned")
			return MissingNum(), nil
		}
		return Num(lf / rf), nil
	case "**":
		return Num(math.Pow(lf, rf)), nil
	}
	return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported binary operator %q", e.Op)
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// compare yields 1.0 or 0.0. Two strings compare lexically. Numeric
// comparisons against a missing operand are false, except that two
// missing values compare equal.
func (sc *stepContext) compare(op string, left, right Value) Value {
	if left.IsStr() && right.IsStr() {
		return boolValue(compareSatisfies(op, strings.Compare(left.String(), right.String())))
	}
	lf, lok := left.Number()
	rf, rok := right.Number()
	if !lok || !rok {
		if !lok && !rok {
			return boolValue(compareSatisfies(op, 0))
		}
		return Num(0)
	}
	switch {
	case lf < rf:
		return boolValue(compareSatisfies(op, -1))
	case lf > rf:
		return boolValue(compareSatisfies(op, 1))
	}
	return boolValue(compareSatisfies(op, 0))
}

func compareSatisfies(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func (sc *stepContext) evalCall(e ast.CallExpr) (Value, error) {
	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := sc.evalExpr(arg)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	name := strings.ToLower(e.Name)
	switch name {
	case "sqrt", "abs", "log", "log10", "exp", "ceil", "floor":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "%s expects 1 argument, got %d", name, len(args))
		}
		return sc.evalMath1(name, args[0]), nil
	case "round":
		return sc.evalRound(args)
	case "substr":
		return sc.evalSubstr(args)
	case "trim", "right":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "%s expects 1 argument, got %d", name, len(args))
		}
		return Str(strings.TrimRight(args[0].String(), " \t\r\n")), nil
	case "left":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "left expects 1 argument, got %d", len(args))
		}
		return Str(strings.TrimLeft(args[0].String(), " \t\r\n")), nil
	case "upcase":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "upcase expects 1 argument, got %d", len(args))
		}
		return Str(strings.ToUpper(args[0].String())), nil
	case "lowcase":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "lowcase expects 1 argument, got %d", len(args))
		}
		return Str(strings.ToLower(args[0].String())), nil
	case "today":
		if len(args) != 0 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "today expects no arguments")
		}
		now := time.Now()
		return Num(float64(now.Year()*10000 + int(now.Month())*100 + now.Day())), nil
	case "intck":
		return sc.evalIntck(args)
	case "intnx":
		return sc.evalIntnx(args)
	case "datepart", "timepart":
		if len(args) != 1 {
			return Value{}, stepErrorf(ErrRuntimeFatal, "%s expects 1 argument, got %d", name, len(args))
		}
		f, ok := args[0].Number()
		if !ok {
			return MissingNum(), nil
		}
		return Num(f), nil
	}
	return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported function %s", name)
}

func (sc *stepContext) evalMath1(name string, arg Value) Value {
	f, ok := arg.Number()
	if !ok {
		return MissingNum()
	}
	switch name {
	case "sqrt":
		if f < 0 {
			sc.vm.warnf("sqrt of a negative value, missing value assigned")
			return MissingNum()
		}
		return Num(math.Sqrt(f))
	case "abs":
		return Num(math.Abs(f))
	case "log":
		if f <= 0 {
			sc.vm.warnf("log of a non-positive value, missing value assigned")
			return MissingNum()
		}
		return Num(math.Log(f))
	case "log10":
		if f <= 0 {
			sc.vm.warnf("log10 of a non-positive value, missing value assigned")
			return MissingNum()
		}
		return Num(math.Log10(f))
	case "exp":
		return Num(math.Exp(f))
	case "ceil":
		return Num(math.Ceil(f))
	case "floor":
		return Num(math.Floor(f))
	}
	return MissingNum()
}

func (sc *stepContext) evalRound(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Value{}, stepErrorf(ErrRuntimeFatal, "round expects 1 or 2 arguments, got %d", len(args))
	}
	f, ok := args[0].Number()
	if !ok {
		return MissingNum(), nil
	}
	decimals := 0.0
	if len(args) == 2 {
		d, ok := args[1].Number()
		if !ok {
			return MissingNum(), nil
		}
		decimals = d
	}
	factor := math.Pow(10, decimals)
	return Num(math.Round(f*factor) / factor), nil
}

// evalSubstr implements 1-based substr; out-of-range positions yield an
// empty string rather than an error.
func (sc *stepContext) evalSubstr(args []Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return Value{}, stepErrorf(ErrRuntimeFatal, "substr expects 2 or 3 arguments, got %d", len(args))
	}
	s := args[0].String()
	posF, ok := args[1].Number()
	if !ok {
		return Str(""), nil
	}
	pos := int(posF) - 1
	if pos < 0 || pos >= len(s) {
		return Str(""), nil
	}
	length := len(s) - pos
	if len(args) == 3 {
		lenF, ok := args[2].Number()
		if !ok {
			return Str(""), nil
		}
		length = int(lenF)
	}
	if length < 0 {
		length = 0
	}
	if pos+length > len(s) {
		length = len(s) - pos
	}
	return Str(s[pos : pos+length]), nil
}

func (sc *stepContext) evalIntck(args []Value) (Value, error) {
	if len(args) != 3 {
		return Value{}, stepErrorf(ErrRuntimeFatal, "intck expects 3 arguments, got %d", len(args))
	}
	interval := strings.ToLower(args[0].String())
	if interval != "day" {
		return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported intck interval %q", interval)
	}
	start, sok := args[1].Number()
	end, eok := args[2].Number()
	if !sok || !eok {
		return MissingNum(), nil
	}
	return Num(float64(int(end - start))), nil
}

func (sc *stepContext) evalIntnx(args []Value) (Value, error) {
	if len(args) < 3 || len(args) > 4 {
		return Value{}, stepErrorf(ErrRuntimeFatal, "intnx expects 3 or 4 arguments, got %d", len(args))
	}
	interval := strings.ToLower(args[0].String())
	if interval != "day" {
		return Value{}, stepErrorf(ErrRuntimeFatal, "unsupported intnx interval %q", interval)
	}
	start, sok := args[1].Number()
	incr, iok := args[2].Number()
	if !sok || !iok {
		return MissingNum(), nil
	}
	return Num(start + incr), nil
}
