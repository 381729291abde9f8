package reduce

import (
	"context"
	"fmt"
	"reflect"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/nnaka2992/sqlreduce/internal/ast"
	"github.com/nnaka2992/sqlreduce/internal/logx"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

// ErrUnknownClass marks an AST node class the rule table doesn't know
// about, mirroring internal/enumerate's sentinel of the same name — the
// "please file a bug report" diagnostic path of the Python original's
// reduce_step.
var ErrUnknownClass = fmt.Errorf("reduce: unknown AST node class")

// sqlNull is the NULL literal value try_null installs: pg_query_go has no
// dedicated Null node class (unlike pglast.ast.Null), so NULL is
// represented as an A_Const with Isnull set.
func sqlNull() *pg_query.Node {
	return &pg_query.Node{Node: &pg_query.Node_AConst{AConst: &pg_query.A_Const{Isnull: true}}}
}

// TryReduce replaces the node at path with value in state's current tree,
// deparses the result, and probes it against the oracle. On a match it
// installs the candidate as state's new tree and returns true. Candidates
// whose deparsed SQL has already been tried are skipped without a probe.
func TryReduce(ctx context.Context, state *State, path ast.Path, value any) (bool, error) {
	candidate, err := ast.Set(state.Tree, path, value)
	if err != nil {
		return false, fmt.Errorf("reduce: installing candidate at %s: %w", path, err)
	}
	tree, ok := candidate.([]*pg_query.Node)
	if !ok {
		return false, fmt.Errorf("reduce: candidate root is %T, not a tree", candidate)
	}

	query, err := state.Parser.Deparse(tree)
	if err != nil {
		return false, fmt.Errorf("reduce: deparsing candidate: %w", err)
	}

	state.Called++
	if _, seen := state.Seen[query]; seen {
		logx.Detailf("query %q was seen before, skipping", query)
		return false, nil
	}
	state.Seen[query] = struct{}{}

	outcome, err := state.Oracle.Run(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		// a probe failure that isn't a Postgres error back (broken
		// connection mid-run, driver bug): not an outcome to compare
		// against, so the candidate is rejected and the search continues,
		// same as the Python original's bare "except Exception" branch.
		logx.Checkf(false, query, "probe error: %v", err)
		return false, nil
	}

	match := outcome == state.ExpectedError
	logx.Checkf(match, query, "%s", outcome)
	logx.Detailf("%v", tree)
	if !match {
		return false, nil
	}

	state.Tree = tree
	return true, nil
}

// ReduceStep attempts every reduction strategy applicable to the node at
// path, in the fixed priority order of the Python original's reduce_step,
// returning true as soon as one succeeds.
func ReduceStep(ctx context.Context, state *State, path ast.Path) (bool, error) {
	node, err := ast.Get(state.Tree, path)
	if err != nil {
		return false, fmt.Errorf("reduce: %w", err)
	}

	if items, _, isTuple := ast.AsTuple(node); isTuple {
		ok, err := reduceTuple(ctx, state, path, items)
		if err != nil || ok {
			return ok, err
		}
		return reduceOnConflictAction(ctx, state, path, node)
	}

	class, known := ast.Classify(node)
	if !known {
		return false, nil
	}

	rule, hasRule := state.Table.Lookup(class)
	switch {
	case hasRule:
		ok, err := reduceByRule(ctx, state, path, node, class, rule)
		if err != nil || ok {
			return ok, err
		}
	case class == "CaseExpr":
		ok, err := reduceCaseExpr(ctx, state, path, node)
		if err != nil || ok {
			return ok, err
		}
	default:
		return false, fmt.Errorf("%w: %s at %s", ErrUnknownClass, class, path)
	}

	return reduceOnConflictAction(ctx, state, path, node)
}

// reduceTuple is reduce_step's "we are looking at a tuple" branch: try
// dropping the tuple entirely (unless its parent is itself a tuple), then
// try dropping each element in turn.
func reduceTuple(ctx context.Context, state *State, path ast.Path, items []*pg_query.Node) (bool, error) {
	parentIsTuple := len(path) == 0
	if last, ok := path.Last(); ok {
		parentIsTuple = last.IsIndex
	}
	if !parentIsTuple {
		if ok, err := TryReduce(ctx, state, path, nil); err != nil || ok {
			return ok, err
		}
	}

	if len(items) > 1 {
		for i := range items {
			without := removeAt(items, i)
			if ok, err := TryReduce(ctx, state, path, without); err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// reduceByRule is reduce_step's "classname in rules" branch.
func reduceByRule(ctx context.Context, state *State, path ast.Path, node any, class string, rule rules.Rule) (bool, error) {
	if len(rule.Replace) > 0 {
		if len(path) < 2 || !path[0].IsIndex || path[1].IsIndex || path[1].Field != "stmt" {
			return false, fmt.Errorf("reduce: %s.replace used off a non-statement path %s", class, path)
		}
		for _, field := range rule.Replace {
			sub, err := ast.GetField(node, field)
			if err != nil {
				return false, fmt.Errorf("reduce: %s.%s: %w", class, field, err)
			}
			if isAbsent(sub) {
				continue
			}
			// leave the top-level statement tuple in place: replace only
			// the statement slot (path[:2], i.e. root index + "stmt").
			if ok, err := TryReduce(ctx, state, path[:2], sub); err != nil || ok {
				return ok, err
			}
		}
	}

	if rule.TryNull {
		if ok, err := TryReduce(ctx, state, path, sqlNull()); err != nil || ok {
			return ok, err
		}
	}

	for _, field := range rule.Remove {
		cur, err := ast.GetField(node, field)
		if err != nil {
			return false, fmt.Errorf("reduce: %s.%s: %w", class, field, err)
		}
		if isAbsent(cur) {
			continue
		}
		if ok, err := TryReduce(ctx, state, path.Append(ast.FieldStep(field)), nil); err != nil || ok {
			return ok, err
		}
	}

	for _, field := range rule.Pullup {
		sub, err := ast.GetField(node, field)
		if err != nil {
			return false, fmt.Errorf("reduce: %s.%s: %w", class, field, err)
		}
		if isAbsent(sub) {
			continue
		}
		if ok, err := TryReduce(ctx, state, path, sub); err != nil || ok {
			return ok, err
		}
	}

	for _, field := range rule.PullupTupleElements {
		items, err := tupleField(node, class, field)
		if err != nil {
			return false, err
		}
		for _, sub := range items {
			if ok, err := TryReduce(ctx, state, path, sub); err != nil || ok {
				return ok, err
			}
		}
	}

	for _, field := range rule.ReduceNonemptyTuple {
		items, err := tupleField(node, class, field)
		if err != nil {
			return false, err
		}
		if len(items) <= 1 {
			continue
		}
		for i := range items {
			without := removeAt(items, i)
			if ok, err := TryReduce(ctx, state, path.Append(ast.FieldStep(field)), without); err != nil || ok {
				return ok, err
			}
		}
	}

	return false, nil
}

// reduceCaseExpr is reduce_step's non-table-driven CaseExpr branch: try
// NULL, then each WHEN arm's condition and result, then the ELSE.
func reduceCaseExpr(ctx context.Context, state *State, path ast.Path, node any) (bool, error) {
	if ok, err := TryReduce(ctx, state, path, sqlNull()); err != nil || ok {
		return ok, err
	}

	argsVal, err := ast.GetField(node, "args")
	if err != nil {
		return false, fmt.Errorf("reduce: CaseExpr.args: %w", err)
	}
	items, _, _ := ast.AsTuple(argsVal)
	for _, argNode := range items {
		when, ok := argNode.Node.(*pg_query.Node_CaseWhen)
		if !ok {
			continue
		}
		if when.CaseWhen.Expr != nil {
			if ok, err := TryReduce(ctx, state, path, when.CaseWhen.Expr); err != nil || ok {
				return ok, err
			}
		}
		if when.CaseWhen.Result != nil {
			if ok, err := TryReduce(ctx, state, path, when.CaseWhen.Result); err != nil || ok {
				return ok, err
			}
		}
	}

	defresult, err := ast.GetField(node, "defresult")
	if err != nil {
		return false, fmt.Errorf("reduce: CaseExpr.defresult: %w", err)
	}
	if !isAbsent(defresult) {
		if ok, err := TryReduce(ctx, state, path, defresult); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// reduceOnConflictAction is reduce_step's supplementary "additional
// actions" move: an ON CONFLICT DO UPDATE can always be weakened to DO
// NOTHING. node may reach an OnConflictClause either wrapped in a generic
// *pg_query.Node or, as InsertStmt.OnConflictClause actually stores it, as
// a direct concrete pointer.
func reduceOnConflictAction(ctx context.Context, state *State, path ast.Path, node any) (bool, error) {
	var occ *pg_query.OnConflictClause
	switch v := node.(type) {
	case *pg_query.Node:
		if v == nil {
			return false, nil
		}
		w, ok := v.Node.(*pg_query.Node_OnConflictClause)
		if !ok {
			return false, nil
		}
		occ = w.OnConflictClause
	case *pg_query.OnConflictClause:
		occ = v
	default:
		return false, nil
	}
	if occ == nil || occ.Action != pg_query.OnConflictAction_ONCONFLICT_UPDATE {
		return false, nil
	}
	return TryReduce(ctx, state, path.Append(ast.FieldStep("action")), int32(pg_query.OnConflictAction_ONCONFLICT_NOTHING))
}

func tupleField(node any, class, field string) ([]*pg_query.Node, error) {
	v, err := ast.GetField(node, field)
	if err != nil {
		return nil, fmt.Errorf("reduce: %s.%s: %w", class, field, err)
	}
	items, _, ok := ast.AsTuple(v)
	if !ok {
		return nil, nil
	}
	return items, nil
}

func removeAt(items []*pg_query.Node, i int) []*pg_query.Node {
	out := make([]*pg_query.Node, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	return out
}

// isAbsent reports whether a field's current value counts as "not there"
// for the purposes of a replace/remove/pullup guard — a nil node, an empty
// tuple, a nil pointer to a concrete node struct (an unset
// SelectStmt.Larg, SelectStmt.WithClause, FuncCall.Over, ...), or a Go nil
// interface.
func isAbsent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *pg_query.Node:
		return x == nil
	case []*pg_query.Node:
		return len(x) == 0
	default:
		rv := reflect.ValueOf(x)
		return rv.Kind() == reflect.Ptr && rv.IsNil()
	}
}
