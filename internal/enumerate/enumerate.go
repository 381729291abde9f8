// Package enumerate walks an AST pre-order, producing every path the
// reducer should attempt a reduction step at.
package enumerate

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/nnaka2992/sqlreduce/internal/ast"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

// ErrUnknownClass marks an AST node class the rule table doesn't know
// about — the "please file a bug report" diagnostic the Python original
// prints from enumerate_paths/reduce_step when it meets a node it has no
// rule for.
var ErrUnknownClass = fmt.Errorf("enumerate: unknown AST node class")

// Paths returns, in pre-order, every path starting at root that the
// reducer should try reducing at. Each visited node contributes its own
// path first, then the paths of whichever of its fields/elements the rule
// table (or the CaseExpr special case) says are worth descending into.
func Paths(table rules.Table, root any) ([]ast.Path, error) {
	var out []ast.Path
	if err := collect(table, root, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collect(table rules.Table, node any, path ast.Path, out *[]ast.Path) error {
	if isNodeNil(node) {
		return nil
	}
	*out = append(*out, path)

	if items, _, isTuple := ast.AsTuple(node); isTuple {
		for i, item := range items {
			if err := collect(table, item, path.Append(ast.IndexStep(i)), out); err != nil {
				return err
			}
		}
		return nil
	}

	class, ok := ast.Classify(node)
	if !ok {
		return nil // nil-shaped leaf (e.g. an absent optional field); nothing to enumerate
	}

	if rule, known := table.Lookup(class); known {
		for _, field := range rule.Descend {
			sub, err := ast.GetField(node, field)
			if err != nil {
				return fmt.Errorf("enumerate: %s.%s: %w", class, field, err)
			}
			if isNodeNil(sub) {
				continue
			}
			if err := collect(table, sub, path.Append(ast.FieldStep(field)), out); err != nil {
				return err
			}
		}
		for _, field := range rule.Pullup {
			sub, err := ast.GetField(node, field)
			if err != nil {
				return fmt.Errorf("enumerate: %s.%s: %w", class, field, err)
			}
			if isNodeNil(sub) {
				continue
			}
			if err := collect(table, sub, path.Append(ast.FieldStep(field)), out); err != nil {
				return err
			}
		}
		for _, field := range rule.PullupTupleElements {
			if err := collectTupleField(table, node, class, field, path, out); err != nil {
				return err
			}
		}
		for _, field := range rule.ReduceNonemptyTuple {
			if err := collectTupleField(table, node, class, field, path, out); err != nil {
				return err
			}
		}
		return nil
	}

	if class == "CaseExpr" {
		return collectCaseExpr(table, node, path, out)
	}

	return fmt.Errorf("%w: %s at %s", ErrUnknownClass, class, path)
}

// collectTupleField handles the pullup_tuple_elements/reduce_nonempty_tuple
// descend case: recurse straight into each element of a tuple-valued field,
// without also yielding a path to the field itself — matching the Python
// original's "assert len(subnode) > 0; for i in range(len(subnode))" loop,
// which never yields path+[attr] on its own, only path+[attr, i].
func collectTupleField(table rules.Table, node any, class, field string, path ast.Path, out *[]ast.Path) error {
	sub, err := ast.GetField(node, field)
	if err != nil {
		return fmt.Errorf("enumerate: %s.%s: %w", class, field, err)
	}
	items, _, isTuple := ast.AsTuple(sub)
	if !isTuple || len(items) == 0 {
		return nil
	}
	for i, item := range items {
		if err := collect(table, item, path.Append(ast.FieldStep(field)).Append(ast.IndexStep(i)), out); err != nil {
			return err
		}
	}
	return nil
}

// collectCaseExpr is CaseExpr's own non-table-driven traversal: its
// reduction targets (each WHEN's condition/result, the ELSE) aren't
// node-valued fields of CaseExpr itself, so there's no rule-table entry —
// see internal/rules/rules.yaml's header comment.
func collectCaseExpr(table rules.Table, node any, path ast.Path, out *[]ast.Path) error {
	args, err := ast.GetField(node, "args")
	if err != nil {
		return fmt.Errorf("enumerate: CaseExpr.args: %w", err)
	}
	if !isNodeNil(args) {
		if err := collect(table, args, path.Append(ast.FieldStep("args")), out); err != nil {
			return err
		}
	}
	defresult, err := ast.GetField(node, "defresult")
	if err != nil {
		return fmt.Errorf("enumerate: CaseExpr.defresult: %w", err)
	}
	if !isNodeNil(defresult) {
		if err := collect(table, defresult, path.Append(ast.FieldStep("defresult")), out); err != nil {
			return err
		}
	}
	return nil
}

// isNodeNil reports whether a field's value is the "absent" zero value for
// its shape: a nil *pg_query.Node, a nil/empty []*pg_query.Node, or a Go
// nil interface. A nil pointer to a concrete node struct (an unset
// SelectStmt.WithClause, say) is not caught here: collect yields its path
// and then stops at the Classify check.
func isNodeNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *pg_query.Node:
		return x == nil
	case []*pg_query.Node:
		return len(x) == 0
	default:
		return false
	}
}
