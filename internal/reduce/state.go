package reduce

import (
	"context"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/nnaka2992/sqlreduce/internal/parser"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

// Oracle is the probing dependency Loop/TryReduce need: run a candidate
// query, get back its outcome tag. *oracle.Oracle satisfies this directly;
// the interface exists so reduce's own tests can swap in a fake instead of
// dialing a real Postgres.
type Oracle interface {
	Run(ctx context.Context, query string) (string, error)
}

// State is everything one reduction run threads through enumeration,
// reduction attempts, and the outer loop — the Go shape of the Python
// original's plain state dict.
type State struct {
	// Tree is the current best (smallest known-equivalent) parse tree.
	Tree []*pg_query.Node
	// ExpectedError is the outcome tag the original query produced; every
	// candidate must reproduce it to be accepted.
	ExpectedError string
	// Called counts every candidate TryReduce considered, including the
	// ones skipped as already seen (which make no oracle call).
	Called int
	// Seen holds the deparsed SQL text of every candidate already probed,
	// so equivalent candidates reached by different paths are never
	// re-run against the database.
	Seen map[string]struct{}

	Table  rules.Table
	Oracle Oracle
	Parser parser.Parser
}

// New returns a State ready to run VerifyRoundTrip and then Loop.
func New(tree []*pg_query.Node, table rules.Table, o Oracle, p parser.Parser) *State {
	return &State{
		Tree:   tree,
		Seen:   make(map[string]struct{}),
		Table:  table,
		Oracle: o,
		Parser: p,
	}
}
