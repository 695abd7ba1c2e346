// Package aql implements the awareness query language, a tiny expression
// language tooling uses to select entities by component makeup, e.g.
// "CONTAINS(position) & !CONTAINS(dormancy)". Expressions parse into the
// same ComponentFilter values code-level searches use.
package aql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/types"
)

// ComponentLookup resolves a component name appearing in an expression to
// its registered metadata.
type ComponentLookup func(name string) (types.ComponentMetadata, error)

type aqlOperator int

const (
	opAnd aqlOperator = iota
	opOr
)

var operatorMap = map[string]aqlOperator{"&": opAnd, "|": opOr}

// Capture is the hook participle calls to turn a matched operator token into
// the enum value.
func (o *aqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("empty operator token")
	}
	op, ok := operatorMap[s[0]]
	if !ok {
		return eris.Errorf("unknown operator %q", s[0])
	}
	*o = op
	return nil
}

type aqlComponent struct {
	Name string `@Ident`
}

type aqlAll struct{}

func (a *aqlAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = aqlAll{}
	}
	return nil
}

type aqlNot struct {
	SubExpression *aqlValue `"!" @@`
}

type aqlExact struct {
	Components []*aqlComponent `"EXACT""(" (@@",")* @@ ")"`
}

type aqlContains struct {
	Components []*aqlComponent `"CONTAINS" "(" (@@",")* @@ ")"`
}

type aqlValue struct {
	All           *aqlAll      `@("ALL" "(" ")")`
	Exact         *aqlExact    `| @@`
	Contains      *aqlContains `| @@`
	Not           *aqlNot      `| @@`
	Subexpression *aqlTerm     `| "(" @@ ")"`
}

type aqlFactor struct {
	Base *aqlValue `@@`
}

type aqlOpFactor struct {
	Operator aqlOperator `@("&" | "|")`
	Factor   *aqlFactor  `@@`
}

type aqlTerm struct {
	Left  *aqlFactor     `@@`
	Right []*aqlOpFactor `@@*`
}

func (o aqlOperator) String() string {
	switch o {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	default:
		panic(fmt.Sprintf("aql: operator %d has no symbol", int(o)))
	}
}

func joinComponentNames(comps []*aqlComponent) string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func (a *aqlAll) String() string {
	return "ALL()"
}

func (e *aqlExact) String() string {
	return "EXACT(" + joinComponentNames(e.Components) + ")"
}

func (c *aqlContains) String() string {
	return "CONTAINS(" + joinComponentNames(c.Components) + ")"
}

func (v *aqlValue) String() string {
	switch {
	case v.All != nil:
		return v.All.String()
	case v.Exact != nil:
		return v.Exact.String()
	case v.Contains != nil:
		return v.Contains.String()
	case v.Not != nil:
		return "!(" + v.Not.SubExpression.String() + ")"
	case v.Subexpression != nil:
		return "(" + v.Subexpression.String() + ")"
	default:
		panic("aql: value node with no alternative set")
	}
}

func (f *aqlFactor) String() string {
	return f.Base.String()
}

func (o *aqlOpFactor) String() string {
	return o.Operator.String() + " " + o.Factor.String()
}

func (t *aqlTerm) String() string {
	parts := []string{t.Left.String()}
	for _, opf := range t.Right {
		parts = append(parts, opf.String())
	}
	return strings.Join(parts, " ")
}

var grammar = participle.MustBuild[aqlTerm]()

// filterBuilder walks a parsed expression tree and assembles the matching
// ComponentFilter, resolving names as it goes.
type filterBuilder struct {
	lookup ComponentLookup
}

func (b filterBuilder) resolveAll(comps []*aqlComponent) ([]filter.ComponentWrapper, error) {
	if len(comps) == 0 {
		return nil, eris.New("component list is empty")
	}
	out := make([]filter.ComponentWrapper, 0, len(comps))
	for _, c := range comps {
		meta, err := b.lookup(c.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "cannot resolve component %q", c.Name)
		}
		out = append(out, filter.ComponentWrapper{Component: meta})
	}
	return out, nil
}

func (b filterBuilder) fromValue(v *aqlValue) (filter.ComponentFilter, error) {
	switch {
	case v.All != nil:
		return filter.All(), nil
	case v.Exact != nil:
		comps, err := b.resolveAll(v.Exact.Components)
		if err != nil {
			return nil, err
		}
		return filter.Exact(comps...), nil
	case v.Contains != nil:
		comps, err := b.resolveAll(v.Contains.Components)
		if err != nil {
			return nil, err
		}
		return filter.Contains(comps...), nil
	case v.Not != nil:
		inner, err := b.fromValue(v.Not.SubExpression)
		if err != nil {
			return nil, err
		}
		return filter.Not(inner), nil
	case v.Subexpression != nil:
		return b.fromTerm(v.Subexpression)
	default:
		return nil, eris.New("value node has no alternative set")
	}
}

func (b filterBuilder) fromFactor(f *aqlFactor) (filter.ComponentFilter, error) {
	return b.fromValue(f.Base)
}

// fromTerm folds a chain of &/| operations left to right. The language has
// no precedence between the two, parentheses decide grouping.
func (b filterBuilder) fromTerm(term *aqlTerm) (filter.ComponentFilter, error) {
	if term.Left == nil {
		return nil, eris.New("expression has no operands")
	}
	acc, err := b.fromFactor(term.Left)
	if err != nil {
		return nil, err
	}
	for _, opf := range term.Right {
		next, err := b.fromFactor(opf.Factor)
		if err != nil {
			return nil, err
		}
		switch opf.Operator {
		case opAnd:
			acc = filter.And(acc, next)
		case opOr:
			acc = filter.Or(acc, next)
		default:
			return nil, eris.Errorf("operator %d has no filter", int(opf.Operator))
		}
	}
	return acc, nil
}

// Parse turns an AQL expression into a ComponentFilter, resolving component
// names through lookup.
func Parse(expression string, lookup ComponentLookup) (filter.ComponentFilter, error) {
	term, err := grammar.ParseString("", expression)
	if err != nil {
		return nil, eris.Wrap(err, "malformed AQL expression")
	}
	return filterBuilder{lookup: lookup}.fromTerm(term)
}

// QueryRequest is the wire shape tools submit an AQL expression in.
type QueryRequest struct {
	AQL string
}

// QueryResponse is one matched entity with its component values marshaled to
// JSON.
type QueryResponse struct {
	ID   types.EntityID    `json:"id"`
	Data []json.RawMessage `json:"data"`
}
