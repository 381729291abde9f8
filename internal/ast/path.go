// Package ast addresses and rewrites a pg_query_go parse tree by path.
//
// The tree is treated as immutable: Get never mutates, and Set returns a new
// tree that shares every subtree not on the given path. See classify.go for
// how a path step resolves against a pg_query_go node.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one segment of a Path: either a named field of a node, or an
// integer index into a tuple (a Go slice, or a List node treated
// transparently as a slice — see AsTuple).
type Step struct {
	Field   string
	Index   int
	IsIndex bool
}

// FieldStep addresses a named field.
func FieldStep(name string) Step {
	return Step{Field: name}
}

// IndexStep addresses a tuple element.
func IndexStep(i int) Step {
	return Step{Index: i, IsIndex: true}
}

func (s Step) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return "." + s.Field
}

// Path is an ordered sequence of Steps from the root. The empty Path
// denotes the root itself.
type Path []Step

// Append returns a new Path with step appended, leaving p untouched.
func (p Path) Append(step Step) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = step
	return out
}

// Last reports the Path's final step, if any.
func (p Path) Last() (Step, bool) {
	if len(p) == 0 {
		return Step{}, false
	}
	return p[len(p)-1], true
}

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	var b strings.Builder
	for _, s := range p {
		fmt.Fprint(&b, s)
	}
	return b.String()
}
