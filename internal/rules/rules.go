// Package rules holds the reduction rule table: a static, declarative
// mapping from AST node class name to the reduction strategies that apply
// to it, embedded from rules.yaml at build time.
package rules

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nnaka2992/sqlreduce/internal/ast"
)

//go:embed rules.yaml
var rulesYAML []byte

// TestCase is one (input, expected) pair bundled with a rule, carried over
// unchanged as a correctness check on the rule and its reduction strategy.
type TestCase struct {
	Input    string
	Expected string
}

// Rule is every reduction strategy configured for one AST node class. A
// zero-value field means that strategy doesn't apply; a class can be
// present in the table with every field empty (CreateStmt, DropStmt,
// RangeVar, ...) purely to mark it as "known, do nothing" rather than
// triggering the enumerator's "unknown node class" diagnostic.
type Rule struct {
	// TryNull marks that the whole node may be replaced with NULL.
	TryNull bool
	// Descend names fields to recurse into during enumeration without any
	// reduction strategy of their own (SelectStmt.fromClause, and so on).
	Descend []string
	// Remove names fields that may be replaced with nil outright.
	Remove []string
	// Pullup names fields whose value may replace the whole node.
	Pullup []string
	// PullupTupleElements names tuple-valued fields any of whose elements
	// may replace the whole node.
	PullupTupleElements []string
	// ReduceNonemptyTuple names tuple-valued fields that may have one
	// element removed, so long as at least one element remains.
	ReduceNonemptyTuple []string
	// Replace names fields that may replace the enclosing top-level
	// statement: the value is installed at the statement slot (path[:2],
	// root index + "stmt"), whatever depth the node itself sits at.
	Replace []string
	Tests   []TestCase
}

// Table maps AST class name to its Rule, as loaded from rules.yaml.
type Table map[string]Rule

// Load parses the embedded rule table and validates every field name it
// names against the AST class it's attached to. Unlike the teacher's
// suggester package, which panics in init() on a malformed embed, Load
// returns an error: a broken rule table should fail at the CLI boundary
// where main() can report it, not crash package initialization.
//
// Each rule is decoded into a map[string]interface{} rather than a typed
// struct because rules.yaml's "try_null:" key (a present key with no
// value) only needs to be distinguished from an absent key — a generic map
// keeps that distinction (key present, value nil) without a dedicated
// yaml.Node field.
func Load() (Table, error) {
	var raw map[string]map[string]interface{}
	if err := yaml.Unmarshal(rulesYAML, &raw); err != nil {
		return nil, fmt.Errorf("rules: failed to parse rules.yaml: %w", err)
	}

	table := make(Table, len(raw))
	for class, fields := range raw {
		_, tryNull := fields["try_null"]
		tests, err := pairTests(stringList(fields["tests"]))
		if err != nil {
			return nil, fmt.Errorf("rules: class %q: %w", class, err)
		}
		rule := Rule{
			TryNull:             tryNull,
			Descend:             stringList(fields["descend"]),
			Remove:              stringList(fields["remove"]),
			Pullup:              stringList(fields["pullup"]),
			PullupTupleElements: stringList(fields["pullup_tuple_elements"]),
			ReduceNonemptyTuple: stringList(fields["reduce_nonempty_tuple"]),
			Replace:             stringList(fields["replace"]),
			Tests:               tests,
		}
		if err := validateFields(class, rule); err != nil {
			return nil, err
		}
		table[class] = rule
	}
	return table, nil
}

// validateFields checks that every field name a rule mentions actually
// exists on the pg_query_go struct backing class, catching a typo'd field
// name in rules.yaml at load time rather than as a confusing reflect panic
// deep in the reducer.
func validateFields(class string, r Rule) error {
	all := append([]string{}, r.Descend...)
	all = append(all, r.Remove...)
	all = append(all, r.Pullup...)
	all = append(all, r.PullupTupleElements...)
	all = append(all, r.ReduceNonemptyTuple...)
	all = append(all, r.Replace...)
	for _, field := range all {
		if !ast.HasField(class, field) {
			return fmt.Errorf("rules: class %q: field %q does not exist", class, field)
		}
	}
	return nil
}

// stringList coerces a decoded YAML sequence (or absent key) to a []string.
func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// pairTests turns the flat (query, expected, query, expected, ...) list
// rules.yaml stores tests as into TestCase pairs.
func pairTests(flat []string) ([]TestCase, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("tests list has an odd number of entries (%d)", len(flat))
	}
	out := make([]TestCase, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		out = append(out, TestCase{Input: flat[i], Expected: flat[i+1]})
	}
	return out, nil
}

// Lookup returns the rule for class and whether it was found.
func (t Table) Lookup(class string) (Rule, bool) {
	r, ok := t[class]
	return r, ok
}
