// Package parse implements a small recursive-descent parser over the token
// stream produced by internal/lex, yielding an internal/ast.Module (spec
// §6.1). The parser is a thin collaborator: it is specified entirely by the
// AST it produces, not by any particular grammar-engine machinery.
package parse

import (
	"github.com/relang/refal/internal/ast"
	"github.com/relang/refal/internal/lex"
	"github.com/relang/refal/internal/rerr"
)

// Parse tokenizes and parses a complete module from source text.
func Parse(source string) (ast.Module, error) {
	toks, err := lex.Tokenize(source)
	if err != nil {
		return ast.Module{}, err
	}
	p := &parser{toks: toks}
	m, err := p.parseModule()
	if err != nil {
		return ast.Module{}, err
	}
	if !p.at(lex.TokEOF) {
		return ast.Module{}, p.errorf("unexpected trailing input")
	}
	return m, nil
}

type parser struct {
	toks []lex.Token
	pos  int
}

func (p *parser) cur() lex.Token { return p.toks[p.pos] }

func (p *parser) at(c lex.TokenClass) bool { return p.cur().Class == c }

func (p *parser) advance() lex.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(c lex.TokenClass) (lex.Token, error) {
	if !p.at(c) {
		return lex.Token{}, p.errorf("expected %s, found %s", c, p.cur().Class)
	}
	return p.advance(), nil
}

func (p *parser) errorf(format string, a ...interface{}) error {
	return rerr.New(rerr.Parsing, format+" (line %d col %d)", append(a, p.cur().Line, p.cur().Col)...)
}

func (p *parser) parseModule() (ast.Module, error) {
	if _, err := p.expect(lex.TokModule); err != nil {
		return ast.Module{}, err
	}
	name, err := p.expect(lex.TokSymbol)
	if err != nil {
		return ast.Module{}, err
	}
	if _, err := p.expect(lex.TokSemi); err != nil {
		return ast.Module{}, err
	}

	var funcs []ast.Function
	for !p.at(lex.TokEOF) {
		f, err := p.parseFunction()
		if err != nil {
			return ast.Module{}, err
		}
		funcs = append(funcs, f)
	}

	return ast.Module{Name: name.Value, Functions: funcs}, nil
}

func (p *parser) parseFunction() (ast.Function, error) {
	name, err := p.expect(lex.TokSymbol)
	if err != nil {
		return ast.Function{}, err
	}
	if _, err := p.expect(lex.TokCurlyL); err != nil {
		return ast.Function{}, err
	}

	var sentences []ast.Sentence
	for !p.at(lex.TokCurlyR) {
		sent, err := p.parseSentence()
		if err != nil {
			return ast.Function{}, err
		}
		sentences = append(sentences, sent)
	}
	if _, err := p.expect(lex.TokCurlyR); err != nil {
		return ast.Function{}, err
	}

	return ast.Function{Name: name.Value, Sentences: sentences}, nil
}

func (p *parser) parseSentence() (ast.Sentence, error) {
	pattern := p.parseObjects()
	if _, err := p.expect(lex.TokEq); err != nil {
		return ast.Sentence{}, err
	}
	rewrite := p.parseObjects()
	if _, err := p.expect(lex.TokSemi); err != nil {
		return ast.Sentence{}, err
	}
	return ast.Sentence{Pattern: pattern, Rewrite: rewrite}, nil
}

// parseObjects consumes a (possibly empty) run of Objects up to the next
// "=" or ";" or "}", whichever terminates the current construct.
func (p *parser) parseObjects() []ast.Object {
	var objs []ast.Object
	for {
		switch p.cur().Class {
		case lex.TokSymbol:
			objs = append(objs, ast.Symbol(p.advance().Value))
		case lex.TokEVar:
			objs = append(objs, ast.EVar(p.advance().Value))
		case lex.TokSVar:
			objs = append(objs, ast.SVar(p.advance().Value))
		case lex.TokTVar:
			objs = append(objs, ast.TVar(p.advance().Value))
		case lex.TokParenL:
			p.advance()
			objs = append(objs, ast.StrL)
		case lex.TokParenR:
			p.advance()
			objs = append(objs, ast.StrR)
		case lex.TokAngleL:
			p.advance()
			objs = append(objs, ast.FunL)
		case lex.TokAngleR:
			p.advance()
			objs = append(objs, ast.FunR)
		default:
			return objs
		}
	}
}
