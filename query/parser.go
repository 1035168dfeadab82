// Copyright 2024 The strime Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"fmt"

	"github.com/jsonproj/strime/selection"
)

// Parse compiles a selection query (spec.md §6.2) into a selection.Tree.
// On any grammar violation it returns a *ParseError before any JSON byte
// would ever be processed, matching spec.md §7's "fail hard before any
// byte processed" treatment of invalid queries.
func Parse(query string) (*selection.Tree, error) {
	p := &parser{lex: newLexer(query)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	fields, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, &ParseError{Pos: p.cur.pos, Message: fmt.Sprintf("unexpected %s after query", p.cur.kind)}
	}
	return selection.New(fields), nil
}

type parser struct {
	lex *lexer
	cur tok
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) expect(k kind) (tok, error) {
	if p.cur.kind != k {
		return tok{}, &ParseError{Pos: p.cur.pos, Message: fmt.Sprintf("expected %s, got %s", k, p.cur.kind)}
	}
	t := p.cur
	return t, p.advance()
}

// query := '{' field_list '}' | field_list
func (p *parser) parseQuery() (map[string]selection.Node, error) {
	if p.cur.kind == tokLBrace {
		if _, err := p.expect(tokLBrace); err != nil {
			return nil, err
		}
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBrace); err != nil {
			return nil, err
		}
		return fields, nil
	}
	return p.parseFieldList()
}

// field_list := field ( ',' field )*
func (p *parser) parseFieldList() (map[string]selection.Node, error) {
	fields := map[string]selection.Node{}

	key, node, err := p.parseField()
	if err != nil {
		return nil, err
	}
	fields[key] = node

	for p.cur.kind == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		key, node, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields[key] = node
	}
	return fields, nil
}

// field := [ alias_name ':' ] source_key ( '@' directive )* [ '{' field_list '}' ]
func (p *parser) parseField() (string, selection.Node, error) {
	first, err := p.expect(tokIdent)
	if err != nil {
		return "", selection.Node{}, err
	}

	alias := ""
	sourceKey := first.text
	if p.cur.kind == tokColon {
		if err := p.advance(); err != nil {
			return "", selection.Node{}, err
		}
		second, err := p.expect(tokIdent)
		if err != nil {
			return "", selection.Node{}, err
		}
		alias = first.text
		sourceKey = second.text
	}

	var directives []selection.Directive
	for p.cur.kind == tokAt {
		if err := p.advance(); err != nil {
			return "", selection.Node{}, err
		}
		d, err := p.parseDirective()
		if err != nil {
			return "", selection.Node{}, err
		}
		directives = append(directives, d)
	}

	var children *selection.Tree
	if p.cur.kind == tokLBrace {
		if err := p.advance(); err != nil {
			return "", selection.Node{}, err
		}
		nested, err := p.parseFieldList()
		if err != nil {
			return "", selection.Node{}, err
		}
		if _, err := p.expect(tokRBrace); err != nil {
			return "", selection.Node{}, err
		}
		children = selection.New(nested)
	}

	if alias == "" && children == nil && len(directives) == 0 {
		return sourceKey, selection.Node{Leaf: true}, nil
	}
	return sourceKey, selection.Node{Alias: alias, Children: children, Directives: directives}, nil
}

// directive := name [ '(' arg_list ')' ]
func (p *parser) parseDirective() (selection.Directive, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return selection.Directive{}, err
	}

	var args map[string]any
	if p.cur.kind == tokLParen {
		if err := p.advance(); err != nil {
			return selection.Directive{}, err
		}
		args, err = p.parseArgList()
		if err != nil {
			return selection.Directive{}, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return selection.Directive{}, err
		}
	}
	return selection.Directive{Name: name.text, Args: args}, nil
}

// arg_list := arg ( ',' arg )*
func (p *parser) parseArgList() (map[string]any, error) {
	args := map[string]any{}

	name, value, err := p.parseArg()
	if err != nil {
		return nil, err
	}
	args[name] = value

	for p.cur.kind == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, value, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args[name] = value
	}
	return args, nil
}

// arg := name ':' ( string | number | true | false | identifier )
func (p *parser) parseArg() (string, any, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return "", nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return "", nil, err
	}

	switch p.cur.kind {
	case tokString:
		v := p.cur.text
		return name.text, v, p.advance()
	case tokNumber:
		v := p.cur.num
		return name.text, v, p.advance()
	case tokTrue:
		return name.text, true, p.advance()
	case tokFalse:
		return name.text, false, p.advance()
	case tokIdent:
		v := p.cur.text
		return name.text, v, p.advance()
	default:
		return "", nil, &ParseError{Pos: p.cur.pos, Message: fmt.Sprintf("expected argument value, got %s", p.cur.kind)}
	}
}
