// Package parser wraps pg_query_go's Parse/Deparse for the whole-script
// shape this module's reduction engine needs: one tree for the entire
// input, not a per-statement list with line-number tracking (the teacher's
// internal/parser exists to report which statement triggered which lock
// severity; this domain reduces the whole script as a single tuple of
// statements instead, so the per-statement splitting and line tracking
// that machinery needed is dropped here).
package parser

import (
	"bytes"
	"fmt"
	"os"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/nnaka2992/sqlreduce/internal/ast"
)

// bomSize is the size of the UTF-8 byte order mark in bytes.
const bomSize = 3

// utf8BOM represents the UTF-8 byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser parses and deparses whole SQL scripts.
type Parser interface {
	// Parse parses sql into a tree rooted at a tuple of top-level
	// statements (see internal/ast.FromParseResult).
	Parse(sql string) ([]*pg_query.Node, error)

	// ParseFile reads a file from disk and parses it.
	ParseFile(filepath string) ([]*pg_query.Node, error)

	// Deparse renders tree back into SQL text, using the parse result
	// version recorded by the most recent Parse/ParseFile call.
	Deparse(tree []*pg_query.Node) (string, error)
}

// parser implements the Parser interface.
type parser struct {
	version int32
}

// NewParser creates a new parser instance.
func NewParser() Parser {
	return &parser{}
}

// Parse parses SQL text, stripping a leading BOM if present.
func (p *parser) Parse(sql string) ([]*pg_query.Node, error) {
	cleaned := cleanSQL(sql)

	result, err := pg_query.Parse(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	p.version = result.Version
	return ast.FromParseResult(result), nil
}

// ParseFile reads and parses SQL from a file.
func (p *parser) ParseFile(filepath string) ([]*pg_query.Node, error) {
	if filepath == "" {
		return nil, fmt.Errorf("filepath cannot be empty")
	}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filepath, err)
	}

	return p.Parse(string(content))
}

// Deparse renders tree back into SQL.
func (p *parser) Deparse(tree []*pg_query.Node) (string, error) {
	result, err := ast.ToParseResult(tree, p.version)
	if err != nil {
		return "", fmt.Errorf("deparse: %w", err)
	}
	out, err := pg_query.Deparse(result)
	if err != nil {
		return "", fmt.Errorf("deparse: %w", err)
	}
	return out, nil
}

// cleanSQL removes a leading BOM, if present.
func cleanSQL(sql string) string {
	return string(stripBOM([]byte(sql)))
}

// stripBOM removes the UTF-8 BOM if present.
func stripBOM(content []byte) []byte {
	if len(content) >= bomSize && bytes.HasPrefix(content, utf8BOM) {
		return content[bomSize:]
	}
	return content
}
