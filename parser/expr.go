package parser

import (
	"strconv"
	"strings"

	"github.com/gosas/gosas/ast"
)

func binaryPrecedence(kind TokenKind) (string, int) {
	switch kind {
	case KwOr:
		return "or", 1
	case KwAnd:
		return "and", 2
	case EqualEqual:
		return "==", 3
	case NotEqual:
		return "!=", 3
	case Less:
		return "<", 4
	case LessEq:
		return "<=", 4
	case Greater:
		return ">", 4
	case GreaterEq:
		return ">=", 4
	case Plus:
		return "+", 5
	case Minus:
		return "-", 5
	case Star:
		return "*", 6
	case Slash:
		return "/", 6
	}
	return "", 0
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec := binaryPrecedence(p.peek().Kind)
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.peek().Kind {
	case Minus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "-", Expr: operand}, nil
	case KwNot:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "not", Expr: operand}, nil
	}
	return p.parsePower()
}

// parsePower handles "**", right-associative.
func (p *Parser) parsePower() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != Power {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return ast.BinaryExpr{Op: "**", Left: base, Right: exp}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case Number:
		p.next()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.Text)
		}
		return ast.NumberLit{Value: v}, nil
	case String:
		p.next()
		return ast.StringLit{Value: tok.Text}, nil
	case LParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if name, ok := identLike(tok); ok {
		p.next()
		switch p.peek().Kind {
		case LParen:
			p.next()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return ast.CallExpr{Name: strings.ToLower(name), Args: args}, nil
		case LBracket:
			p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBracket, "]"); err != nil {
				return nil, err
			}
			return ast.ArrayElem{Name: name, Index: index}, nil
		}
		return ast.VarRef{Name: name}, nil
	}
	return nil, p.errorf(tok, "unexpected token %q in expression", tok.Text)
}

func (p *Parser) parseCallArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.peek().Kind == RParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Kind == Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(RParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

// identLike accepts identifiers plus the soft keywords that remain legal
// variable names (n, mean, min, ...).
func identLike(tok Token) (string, bool) {
	switch tok.Kind {
	case Identifier:
		return tok.Text, true
	case KwN, KwMean, KwStd, KwMin, KwMax, KwMedian, KwObs, KwLabel, KwOut, KwOrder, KwVar, KwTables:
		return tok.Text, true
	}
	return "", false
}
