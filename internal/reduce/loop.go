package reduce

import (
	"context"
	"errors"
	"fmt"

	"github.com/nnaka2992/sqlreduce/internal/enumerate"
	"github.com/nnaka2992/sqlreduce/internal/logx"
)

// Loop repeatedly enumerates state's current tree and attempts a reduction
// step at every path, installing the first one that succeeds and restarting
// enumeration from the root — mirroring the Python original's reduce_loop,
// which always starts a fresh pass over the (possibly now smaller) tree
// after any successful reduction rather than resuming where it left off.
// Loop returns once a full pass finds nothing left to reduce.
func Loop(ctx context.Context, state *State) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		paths, err := enumerate.Paths(state.Table, state.Tree)
		if err != nil {
			if errors.Is(err, enumerate.ErrUnknownClass) {
				logx.Warnf("%v; stopping here rather than aborting the run", err)
				logx.Infof("reduction complete: %d candidates tried", state.Called)
				return nil
			}
			return fmt.Errorf("reduce: enumerating paths: %w", err)
		}

		reduced := false
		for _, path := range paths {
			ok, err := ReduceStep(ctx, state, path)
			if err != nil {
				if errors.Is(err, ErrUnknownClass) {
					logx.Warnf("%v; skipping this path", err)
					continue
				}
				return err
			}
			if ok {
				reduced = true
				break
			}
		}

		if !reduced {
			logx.Infof("reduction complete: %d candidates tried", state.Called)
			return nil
		}
	}
}

// VerifyRoundTrip establishes ExpectedError by running the original query
// once, then deparses the parsed tree straight back to SQL and asserts
// that regenerated text reproduces the same outcome — the Python
// original's run_reduce sanity check, which catches a parser/deparser
// mismatch before wasting a whole reduction run on it.
func VerifyRoundTrip(ctx context.Context, state *State, originalQuery string) error {
	outcome, err := state.Oracle.Run(ctx, originalQuery)
	if err != nil {
		return fmt.Errorf("reduce: probing original query: %w", err)
	}
	state.ExpectedError = outcome

	regenerated, err := state.Parser.Deparse(state.Tree)
	if err != nil {
		return fmt.Errorf("reduce: deparsing parsed query: %w", err)
	}

	roundTrip, err := state.Oracle.Run(ctx, regenerated)
	if err != nil {
		return fmt.Errorf("reduce: probing regenerated query: %w", err)
	}
	if roundTrip != state.ExpectedError {
		return fmt.Errorf("reduce: regenerated query produced outcome %q, want %q (parser/deparser round-trip mismatch)", roundTrip, state.ExpectedError)
	}
	return nil
}
