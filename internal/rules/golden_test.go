package rules_test

// This file drives every (input, expected) pair rules.yaml carries inline
// through the real parser and reduce.Loop, rather than just checking that
// Load() parsed the pairs into Tests — see the package rules_test file for
// that shape check. There's no database here, so a fakeOracle stands in
// for the real oracle.Oracle: it classifies a candidate query by whether
// every "payload" token (rules.yaml:tests' own documented minimal output)
// is still present in it. pg_query_go's deparser always renders SQL
// keywords in uppercase and otherwise keeps a query's own identifiers,
// type names, and literals verbatim, so "does this candidate still
// contain every lowercase/digit token the documented answer has" is
// exactly "does this candidate still reproduce the same outcome" without
// needing a live Postgres to ask.

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"unicode"

	"github.com/nnaka2992/sqlreduce/internal/parser"
	"github.com/nnaka2992/sqlreduce/internal/reduce"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

type fakeOracle struct {
	tokens []string
}

func (f *fakeOracle) Run(_ context.Context, query string) (string, error) {
	for _, tok := range f.tokens {
		if !containsToken(query, tok) {
			return "missing:" + tok, nil
		}
	}
	return "has-all-tokens", nil
}

func containsToken(query, tok string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`).MatchString(query)
}

var wordRe = regexp.MustCompile(`\w+`)

// payloadTokens picks out expected's own words that aren't a bare deparsed
// keyword (SELECT, FROM, NULL, ...) — a token carrying a digit or a
// lowercase letter is something the original query supplied (an
// identifier, a type name, a literal), not something Deparse synthesized.
func payloadTokens(expected string) []string {
	var out []string
	for _, tok := range wordRe.FindAllString(expected, -1) {
		if isPayload(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isPayload(tok string) bool {
	for _, r := range tok {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func TestRuleTestsReduceToDocumentedExpected(t *testing.T) {
	table, err := rules.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for class, rule := range table {
		class, rule := class, rule
		for i, tc := range rule.Tests {
			tc := tc
			t.Run(fmt.Sprintf("%s/%d", class, i), func(t *testing.T) {
				p := parser.NewParser()
				tree, err := p.Parse(tc.Input)
				if err != nil {
					t.Fatalf("Parse(%q): %v", tc.Input, err)
				}

				fo := &fakeOracle{tokens: payloadTokens(tc.Expected)}
				st := reduce.New(tree, table, fo, p)
				if err := reduce.VerifyRoundTrip(context.Background(), st, tc.Input); err != nil {
					t.Fatalf("VerifyRoundTrip(%q): %v", tc.Input, err)
				}

				if err := reduce.Loop(context.Background(), st); err != nil {
					t.Fatalf("Loop(%q): %v", tc.Input, err)
				}

				got, err := p.Deparse(st.Tree)
				if err != nil {
					t.Fatalf("Deparse: %v", err)
				}
				if got != tc.Expected {
					t.Errorf("reducing %q = %q, want %q", tc.Input, got, tc.Expected)
				}
			})
		}
	}
}
