package ast

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Get resolves path against root, returning whatever value sits at that
// address — a *pg_query.Node, a concrete node pointer, a tuple
// ([]*pg_query.Node), or a scalar (string, bool, int32, ...).
func Get(root any, path Path) (any, error) {
	cur := root
	for i, step := range path {
		next, err := step1(cur, step)
		if err != nil {
			return nil, fmt.Errorf("ast: get %s: %w", path[:i+1], err)
		}
		cur = next
	}
	return cur, nil
}

func step1(cur any, step Step) (any, error) {
	if step.IsIndex {
		items, _, ok := AsTuple(cur)
		if !ok {
			return nil, fmt.Errorf("%T is not indexable", cur)
		}
		if step.Index < 0 || step.Index >= len(items) {
			return nil, fmt.Errorf("index %d out of range (len %d)", step.Index, len(items))
		}
		return items[step.Index], nil
	}
	return GetField(cur, step.Field)
}

// Set returns a new tree identical to root except that the node at path is
// replaced by value. Every node on the path is cloned; every subtree off
// the path is shared unchanged with the original. Set never mutates root.
func Set(root any, path Path, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	step := path[0]
	rest := path[1:]
	if step.IsIndex {
		items, rewrap, ok := AsTuple(root)
		if !ok {
			return nil, fmt.Errorf("ast: set %s: %T is not indexable", path, root)
		}
		if step.Index < 0 || step.Index >= len(items) {
			return nil, fmt.Errorf("ast: set %s: index %d out of range (len %d)", path, step.Index, len(items))
		}
		clone := make([]*pg_query.Node, len(items))
		copy(clone, items)
		updated, err := Set(items[step.Index], rest, value)
		if err != nil {
			return nil, err
		}
		wrapped, err := WrapAsNode(updated)
		if err != nil {
			return nil, fmt.Errorf("ast: set %s: %w", path, err)
		}
		clone[step.Index] = wrapped
		return rewrap(clone), nil
	}

	child, err := GetField(root, step.Field)
	if err != nil {
		return nil, fmt.Errorf("ast: set %s: %w", path, err)
	}
	updated, err := Set(child, rest, value)
	if err != nil {
		return nil, err
	}
	replaced, err := setField(root, step.Field, promoteForField(updated))
	if err != nil {
		return nil, fmt.Errorf("ast: set %s: %w", path, err)
	}
	return replaced, nil
}

// promoteForField wraps updated into a *pg_query.Node when it's an
// already-concrete node pointer reached through a direct-typed field (e.g.
// SelectStmt.Larg/Rarg), mirroring the promotion the index-step branch above
// always applies to tuple elements. Destinations that are never
// generic-Node-shaped — nil, a tuple slice, or a field whose Go type is
// itself concrete (InsertStmt.OnConflictClause, and the like) — fall
// through unwrapped, since WrapAsNode has no class entry for them and
// setField already accepts a matching concrete type directly.
func promoteForField(updated any) any {
	if updated == nil {
		return updated
	}
	if _, isTuple := updated.([]*pg_query.Node); isTuple {
		return updated
	}
	wrapped, err := WrapAsNode(updated)
	if err != nil {
		return updated
	}
	return wrapped
}

// FromParseResult flattens a parsed script into the uniform root tuple this
// package's path model needs: one *pg_query.Node per top-level statement,
// each a RawStmt, so "delete the whole statement" is an ordinary tuple
// removal rather than a special case. pg_query.ParseResult.Stmts is
// []*pg_query.RawStmt rather than []*pg_query.Node, so each entry is boxed
// here and unboxed again by ToParseResult, which reuses the source
// ParseResult's Version field rather than a hardcoded one.
func FromParseResult(pr *pg_query.ParseResult) []*pg_query.Node {
	out := make([]*pg_query.Node, len(pr.Stmts))
	for i, s := range pr.Stmts {
		out[i] = &pg_query.Node{Node: &pg_query.Node_RawStmt{RawStmt: s}}
	}
	return out
}

// ToParseResult is the inverse of FromParseResult, ready for pg_query.Deparse.
func ToParseResult(tree []*pg_query.Node, version int32) (*pg_query.ParseResult, error) {
	stmts := make([]*pg_query.RawStmt, len(tree))
	for i, n := range tree {
		raw, ok := n.Node.(*pg_query.Node_RawStmt)
		if !ok {
			return nil, fmt.Errorf("ast: root element %d is %T, not a RawStmt", i, n.Node)
		}
		stmts[i] = raw.RawStmt
	}
	return &pg_query.ParseResult{
		Version: version,
		Stmts:   stmts,
	}, nil
}
