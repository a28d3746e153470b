// Package compiler turns a parsed query AST (§6.1's tagged association-list
// shape) into a CompiledQuery the rest of the planning core consumes. The
// SPARQL text parser itself is an external collaborator (§1); this package
// only validates and normalizes the tree it hands us.
package compiler

import (
	"fmt"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/errs"
)

// QueryType is the SPARQL query form.
type QueryType uint8

const (
	Select QueryType = iota
	Construct
	Ask
	Describe
)

func (t QueryType) String() string {
	switch t {
	case Select:
		return "select"
	case Construct:
		return "construct"
	case Ask:
		return "ask"
	case Describe:
		return "describe"
	default:
		return "unknown"
	}
}

// Dataset is the optional FROM / FROM NAMED descriptor. Its contents are
// opaque to the planning core beyond being carried through compilation.
type Dataset struct {
	Default []algebra.Term
	Named   []algebra.Term
}

// AST is the parser-emitted shape: a query type tag plus an association
// list of properties. Only "pattern" is required; "template", "dataset",
// and "base" are optional.
type AST struct {
	Type       QueryType
	Properties map[string]interface{}
}

// CompiledQuery is the output of compilation (§3.4).
type CompiledQuery struct {
	Type     QueryType
	Pattern  algebra.Node
	Template []algebra.TriplePattern // CONSTRUCT only
	Dataset  *Dataset                // optional
	BaseIRI  string                  // optional
}

// Compile extracts, normalizes, and validates ast's fields, producing a
// CompiledQuery or a KindCompilation error whose message contains the
// phrase "AST compilation failed".
func Compile(ast AST) (*CompiledQuery, error) {
	raw, ok := ast.Properties["pattern"]
	if !ok || raw == nil {
		return nil, errs.Compilation("AST compilation failed: missing required \"pattern\" property")
	}
	pattern, ok := raw.(algebra.Node)
	if !ok {
		return nil, errs.Compilation("AST compilation failed: \"pattern\" property has shape %T, want algebra.Node", raw)
	}
	if err := algebra.Validate(pattern); err != nil {
		return nil, errs.Compilation("AST compilation failed: invalid pattern: %v", err)
	}

	cq := &CompiledQuery{Type: ast.Type, Pattern: pattern}

	if raw, ok := ast.Properties["template"]; ok && raw != nil {
		template, ok := raw.([]algebra.TriplePattern)
		if !ok {
			return nil, errs.Compilation("AST compilation failed: \"template\" property has shape %T, want []algebra.TriplePattern", raw)
		}
		cq.Template = template
	} else if ast.Type == Construct {
		return nil, errs.Compilation("AST compilation failed: CONSTRUCT query missing required \"template\" property")
	}

	if raw, ok := ast.Properties["dataset"]; ok && raw != nil {
		dataset, ok := raw.(*Dataset)
		if !ok {
			return nil, errs.Compilation("AST compilation failed: \"dataset\" property has shape %T, want *Dataset", raw)
		}
		cq.Dataset = dataset
	}

	if raw, ok := ast.Properties["base"]; ok && raw != nil {
		base, ok := raw.(string)
		if !ok {
			return nil, errs.Compilation("AST compilation failed: \"base\" property has shape %T, want string", raw)
		}
		cq.BaseIRI = base
	}

	if err := validateScope(cq); err != nil {
		return nil, err
	}

	return cq, nil
}

// validateScope checks the §3.2 scoping invariant for project/group/
// order_by variable references against the pattern's in-scope variables.
func validateScope(cq *CompiledQuery) error {
	scope := algebra.InScope(cq.Pattern)
	var missing []string
	algebra.FoldPre(cq.Pattern, struct{}{}, func(n algebra.Node, acc interface{}) interface{} {
		switch t := n.(type) {
		case *algebra.Project:
			for _, v := range t.Vars {
				if !scope[v.Name] {
					missing = append(missing, v.Name)
				}
			}
		case *algebra.Group:
			for _, v := range t.GroupVars {
				if !scope[v.Name] {
					missing = append(missing, v.Name)
				}
			}
		case *algebra.OrderBy:
			// order_by conditions reference expressions, not bare variables;
			// free-variable checking is the evaluator's concern once
			// expressions are bound to concrete terms.
		}
		return acc
	})
	if len(missing) > 0 {
		return errs.Compilation("AST compilation failed: out-of-scope variable(s): %v", missing)
	}
	return nil
}

// ExtractPattern accepts either a raw AST or an already-compiled query and
// yields its pattern field; it fails for any other input shape.
func ExtractPattern(input interface{}) (algebra.Node, error) {
	switch v := input.(type) {
	case AST:
		raw, ok := v.Properties["pattern"]
		if !ok {
			return nil, errs.Compilation("AST compilation failed: missing required \"pattern\" property")
		}
		pattern, ok := raw.(algebra.Node)
		if !ok {
			return nil, errs.Compilation("AST compilation failed: \"pattern\" property has shape %T, want algebra.Node", raw)
		}
		return pattern, nil
	case *CompiledQuery:
		return v.Pattern, nil
	case CompiledQuery:
		return v.Pattern, nil
	default:
		return nil, errs.Compilation("AST compilation failed: cannot extract pattern from %s", describeType(input))
	}
}

func describeType(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
