// Package parser implements a recursive descent parser for textual RTL
// statements, the inverse of the exp printer
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-dc/pkg/exp"
	"github.com/raymyers/ralph-dc/pkg/lexer"
)

// Parser parses RTL text into expression trees
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseStatements parses "stmt; stmt; ..." up to the end of input
func (p *Parser) ParseStatements() []exp.Exp {
	var stmts []exp.Exp
	for !p.curTokenIs(lexer.TokenEOF) {
		s := p.ParseStatement()
		if s == nil {
			return stmts
		}
		stmts = append(stmts, s)
		if p.curTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(lexer.TokenEOF) {
			p.addError(fmt.Sprintf("expected ; or end of input, got %s", p.curToken.Type))
			return stmts
		}
	}
	return stmts
}

// ParseStatement parses one statement:
//
//	['*' INT '*'] dest ':=' expr
//	NAME '(' args ')'
//	FPUSH | FPOP
func (p *Parser) ParseStatement() exp.Exp {
	switch p.curToken.Type {
	case lexer.TokenFpush:
		p.nextToken()
		return exp.Push()
	case lexer.TokenFpop:
		p.nextToken()
		return exp.Pop()
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenLParen) {
			return p.parseFlagCall()
		}
	}

	size := 0
	if p.curTokenIs(lexer.TokenStar) {
		p.nextToken()
		if !p.curTokenIs(lexer.TokenInt) {
			p.addError(fmt.Sprintf("expected size, got %s", p.curToken.Type))
			return nil
		}
		n, err := strconv.ParseInt(p.curToken.Literal, 0, 32)
		if err != nil {
			p.addError(fmt.Sprintf("bad size %q", p.curToken.Literal))
			return nil
		}
		size = int(n)
		p.nextToken()
		if !p.expect(lexer.TokenStar) {
			return nil
		}
	}

	lhs := p.parseUnary()
	if lhs == nil {
		return nil
	}
	if !p.expect(lexer.TokenDefine) {
		return nil
	}
	rhs := p.ParseExpression()
	if rhs == nil {
		return nil
	}
	return exp.NewAssign(size, lhs, rhs)
}

func (p *Parser) parseFlagCall() exp.Exp {
	name := p.curToken.Literal
	p.nextToken() // name
	p.nextToken() // (
	args := p.parseArgs()
	if args == nil && len(p.errors) > 0 {
		return nil
	}
	return exp.NewFlagCall(name, args...)
}

// parseArgs parses "a, b, c)" with the opening parenthesis already consumed
func (p *Parser) parseArgs() []exp.Exp {
	args := []exp.Exp{}
	if p.curTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return args
	}
	for {
		a := p.ParseExpression()
		if a == nil {
			return nil
		}
		args = append(args, a)
		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
			continue
		}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		return args
	}
}

// ParseExpression parses an expression, lowest precedence first
func (p *Parser) ParseExpression() exp.Exp {
	return p.parseTernary()
}

func (p *Parser) parseTernary() exp.Exp {
	cond := p.parseBinary(0)
	if cond == nil || !p.curTokenIs(lexer.TokenQuestion) {
		return cond
	}
	p.nextToken() // ?
	a := p.parseTernary()
	if a == nil || !p.expect(lexer.TokenColon) {
		return nil
	}
	b := p.parseTernary()
	if b == nil {
		return nil
	}
	return exp.Tern(cond, a, b)
}

// binaryLevels lists the binary operators from loosest to tightest
var binaryLevels = []map[lexer.TokenType]exp.Oper{
	{lexer.TokenOr: exp.OpLOr},
	{lexer.TokenAnd: exp.OpLAnd},
	{lexer.TokenPipe: exp.OpBitOr},
	{lexer.TokenCaret: exp.OpBitXor},
	{lexer.TokenAmpersand: exp.OpBitAnd},
	{lexer.TokenShl: exp.OpShiftL, lexer.TokenShr: exp.OpShiftR},
	{lexer.TokenPlus: exp.OpPlus, lexer.TokenMinus: exp.OpMinus},
}

func (p *Parser) parseBinary(level int) exp.Exp {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for left != nil {
		op, ok := binaryLevels[level][p.curToken.Type]
		if !ok {
			break
		}
		p.nextToken()
		right := p.parseBinary(level + 1)
		if right == nil {
			return nil
		}
		left = exp.Bin(op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() exp.Exp {
	switch p.curToken.Type {
	case lexer.TokenNot:
		p.nextToken()
		if x := p.parseUnary(); x != nil {
			return exp.LNot(x)
		}
		return nil
	case lexer.TokenTilde:
		p.nextToken()
		if x := p.parseUnary(); x != nil {
			return exp.Un(exp.OpNot, x)
		}
		return nil
	case lexer.TokenMinus:
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		// -5 is the constant -5, not a negation
		if v, ok := exp.IntValue(x); ok {
			return exp.Int(-v)
		}
		return exp.Un(exp.OpNeg, x)
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by an optional bit range "@hi:lo"
func (p *Parser) parsePostfix() exp.Exp {
	x := p.parsePrimary()
	if x == nil || !p.curTokenIs(lexer.TokenAt) {
		return x
	}
	p.nextToken() // @
	hi, ok := p.parseIntLiteral()
	if !ok || !p.expect(lexer.TokenColon) {
		return nil
	}
	lo, ok := p.parseIntLiteral()
	if !ok {
		return nil
	}
	return exp.At(x, hi, lo)
}

func (p *Parser) parseIntLiteral() (int64, bool) {
	if !p.curTokenIs(lexer.TokenInt) {
		p.addError(fmt.Sprintf("expected integer, got %s", p.curToken.Type))
		return 0, false
	}
	v, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.addError(fmt.Sprintf("bad integer %q", p.curToken.Literal))
		return 0, false
	}
	p.nextToken()
	return v, true
}

var flagOpers = map[string]exp.Oper{
	"%ZF":  exp.OpZF,
	"%CF":  exp.OpCF,
	"%PF":  exp.OpPF,
	"%SF":  exp.OpSF,
	"%OF":  exp.OpOF,
	"%FZF": exp.OpFZF,
	"%FGF": exp.OpFGF,
	"%FLF": exp.OpFLF,
}

func (p *Parser) parsePrimary() exp.Exp {
	switch p.curToken.Type {
	case lexer.TokenInt:
		v, ok := p.parseIntLiteral()
		if !ok {
			return nil
		}
		return exp.Int(v)

	case lexer.TokenString:
		s := p.curToken.Literal
		p.nextToken()
		return exp.Str(s)

	case lexer.TokenFlag:
		op, ok := flagOpers[p.curToken.Literal]
		if !ok {
			p.addError(fmt.Sprintf("unknown flag %s", p.curToken.Literal))
			return nil
		}
		p.nextToken()
		return exp.Flag(op)

	case lexer.TokenIdent:
		name := p.curToken.Literal
		if (name == "r" || name == "m") && p.peekTokenIs(lexer.TokenLBracket) {
			p.nextToken() // r or m
			p.nextToken() // [
			x := p.ParseExpression()
			if x == nil || !p.expect(lexer.TokenRBracket) {
				return nil
			}
			if name == "r" {
				return exp.Un(exp.OpRegOf, x)
			}
			return exp.Mem(x)
		}
		p.nextToken()
		if name == "_" {
			return exp.Wild()
		}
		return exp.Temp(name)

	case lexer.TokenFtoi, lexer.TokenTruncs:
		op := exp.OpFtoi
		if p.curTokenIs(lexer.TokenTruncs) {
			op = exp.OpTruncs
		}
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return nil
		}
		args := p.parseArgs()
		if args == nil {
			return nil
		}
		if len(args) != 3 {
			p.addError(fmt.Sprintf("%s takes 3 arguments, got %d", op, len(args)))
			return nil
		}
		from, ok1 := exp.IntValue(args[0])
		to, ok2 := exp.IntValue(args[1])
		if !ok1 || !ok2 {
			p.addError(fmt.Sprintf("%s sizes must be integers", op))
			return nil
		}
		if op == exp.OpFtoi {
			return exp.Ftoi(from, to, args[2])
		}
		return exp.Truncs(from, to, args[2])

	case lexer.TokenSar:
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return nil
		}
		args := p.parseArgs()
		if args == nil {
			return nil
		}
		if len(args) != 2 {
			p.addError(fmt.Sprintf("sar takes 2 arguments, got %d", len(args)))
			return nil
		}
		return exp.Bin(exp.OpShiftRA, args[0], args[1])

	case lexer.TokenLParen:
		p.nextToken()
		x := p.ParseExpression()
		if x == nil || !p.expect(lexer.TokenRParen) {
			return nil
		}
		return x
	}

	p.addError(fmt.Sprintf("expected expression, got %s", p.curToken.Type))
	return nil
}

// ErrSyntax wraps every error returned by the string helpers
var ErrSyntax = errors.New("rtl syntax error")

func syntaxError(errs []string) error {
	return fmt.Errorf("%w: %s", ErrSyntax, strings.Join(errs, "; "))
}

// ParseRTL parses the statements of one record
func ParseRTL(src string) ([]exp.Exp, error) {
	p := New(lexer.New(src))
	stmts := p.ParseStatements()
	if len(p.Errors()) > 0 {
		return nil, syntaxError(p.Errors())
	}
	return stmts, nil
}

// ParseExpr parses a single expression
func ParseExpr(src string) (exp.Exp, error) {
	p := New(lexer.New(src))
	e := p.ParseExpression()
	if len(p.Errors()) == 0 && !p.curTokenIs(lexer.TokenEOF) {
		p.addError(fmt.Sprintf("unexpected %s after expression", p.curToken.Type))
	}
	if len(p.Errors()) > 0 {
		return nil, syntaxError(p.Errors())
	}
	return e, nil
}
