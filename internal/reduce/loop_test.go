package reduce

import (
	"context"
	"strings"
	"testing"

	"github.com/nnaka2992/sqlreduce/internal/oracle"
	"github.com/nnaka2992/sqlreduce/internal/parser"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

// errorOnSubstring is a fakeOracle outcome function: any query mentioning
// needle classifies as an "undefined column" error, everything else as no
// error at all — enough to drive a real reduction search without a
// database, and modeling the rules.yaml A_Expr test pair ("select
// 1+moo" reduces to something that still mentions moo, the undefined
// column the original error came from).
func errorOnSubstring(needle string) func(string) (string, error) {
	return func(query string) (string, error) {
		if strings.Contains(query, needle) {
			return "undefined_column", nil
		}
		return oracle.NoErrorOutcome, nil
	}
}

func TestLoopConvergesToMinimalErrorReproducer(t *testing.T) {
	p := parser.NewParser()
	tree, err := p.Parse("select 1+moo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := rules.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fo := &fakeOracle{run: errorOnSubstring("moo")}
	st := New(tree, table, fo, p)
	st.ExpectedError = "undefined_column"

	if err := Loop(context.Background(), st); err != nil {
		t.Fatalf("Loop: %v", err)
	}

	out, err := p.Deparse(st.Tree)
	if err != nil {
		t.Fatalf("Deparse: %v", err)
	}
	if !strings.Contains(out, "moo") {
		t.Errorf("reduced query = %q, want it to still mention moo (the only thing producing the error)", out)
	}
	if strings.Contains(out, "1+") || strings.Contains(out, "1 +") {
		t.Errorf("reduced query = %q, the 1+ operand should have been pulled away", out)
	}
	if st.Called == 0 {
		t.Error("Loop should have probed at least once")
	}
}

func TestLoopKeepsOneStatementWithNoTargetListWhenErrorIsContentIndependent(t *testing.T) {
	p := parser.NewParser()
	tree, err := p.Parse("select 1, 2, 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := rules.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// a lone top-level statement's root tuple is never removed wholesale
	// (see reduceTuple's parent-is-tuple guard), so the smallest reachable
	// form keeps one statement, not an empty script; its targetList, reached
	// through a field step, is dropped whole ("SELECT ").
	fo := &fakeOracle{run: func(string) (string, error) { return oracle.NoErrorOutcome, nil }}
	st := New(tree, table, fo, p)
	st.ExpectedError = oracle.NoErrorOutcome

	if err := Loop(context.Background(), st); err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if len(st.Tree) != 1 {
		t.Fatalf("len(Tree) = %d, want 1 (the single statement stays)", len(st.Tree))
	}
	out, err := p.Deparse(st.Tree)
	if err != nil {
		t.Fatalf("Deparse: %v", err)
	}
	if strings.Contains(out, ",") {
		t.Errorf("reduced query = %q, want no target list (no comma)", out)
	}
}

func TestVerifyRoundTripSetsExpectedError(t *testing.T) {
	p := parser.NewParser()
	tree, err := p.Parse("select 1+moo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	fo := &fakeOracle{run: errorOnSubstring("moo")}
	st := New(tree, rules.Table{}, fo, p)

	if err := VerifyRoundTrip(context.Background(), st, "select 1+moo"); err != nil {
		t.Fatalf("VerifyRoundTrip: %v", err)
	}
	if st.ExpectedError != "undefined_column" {
		t.Errorf("ExpectedError = %q, want %q", st.ExpectedError, "undefined_column")
	}
}

func TestVerifyRoundTripDetectsMismatch(t *testing.T) {
	p := parser.NewParser()
	tree, err := p.Parse("select 1+moo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	calls := 0
	fo := &fakeOracle{run: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "first outcome", nil
		}
		return "second outcome", nil
	}}
	st := New(tree, rules.Table{}, fo, p)

	if err := VerifyRoundTrip(context.Background(), st, "select 1+moo"); err == nil {
		t.Fatal("VerifyRoundTrip should fail when the regenerated query's outcome differs from the original's")
	}
}
