// Package compiler assembles the full front-end pipeline: parse,
// analyze, normalize, re-analyze, lower, validate. It is the only
// package a host embedding the compiler needs to import.
package compiler

import (
	"github.com/zeebo/xxh3"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/lower"
	"github.com/roach88/cypherc/internal/parser"
	"github.com/roach88/cypherc/internal/planir"
	"github.com/roach88/cypherc/internal/rewrite"
	"github.com/roach88/cypherc/internal/semantic"
)

// Result is a successful compilation.
type Result struct {
	// Statement is the normalized syntax tree the IR was built from.
	Statement *ast.Statement

	// IR is the planner-facing representation.
	IR planir.Query

	// Types carries the annotations of the post-normalization analysis
	// pass, keyed by the nodes of Statement.
	Types *semantic.Result

	// Notifications are non-fatal findings, such as labels the catalog
	// has never seen.
	Notifications []semantic.Notification

	// Snapshot is the canonical JSON rendering of IR, and Hash its
	// structural hash. Two statements that normalize to the same IR
	// share both.
	Snapshot []byte
	Hash     uint64
}

// Catalog is the existence oracle hosts supply via WithCatalog.
type Catalog = semantic.Catalog

// Option configures a compilation.
type Option func(*config)

type config struct {
	catalog semantic.Catalog
	params  map[string]semantic.TypeCategory
}

// WithCatalog supplies the read-only existence oracle. Without it,
// every label, relationship type and property key is assumed to exist.
func WithCatalog(c semantic.Catalog) Option {
	return func(cfg *config) { cfg.catalog = c }
}

// WithParameters declares the statement's parameters and their type
// categories. Parameters not declared here analyze as unknown.
func WithParameters(params map[string]semantic.TypeCategory) Option {
	return func(cfg *config) { cfg.params = params }
}

// Compile runs the whole pipeline on one statement. On failure the
// returned error is always a *CompileError.
func Compile(src string, opts ...Option) (*Result, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	stmt, err := parser.Parse(src)
	if err != nil {
		return nil, syntaxError(err)
	}

	if _, errs := semantic.Analyze(stmt, cfg.params, cfg.catalog); len(errs) > 0 {
		return nil, semanticError(errs)
	}

	normalized := rewrite.Normalize(stmt)

	// The rewriter reshapes the tree, so the annotations are rebuilt
	// against the normalized statement. This pass cannot fail on a
	// statement the first one accepted.
	types, errs := semantic.Analyze(normalized, cfg.params, cfg.catalog)
	if len(errs) > 0 {
		return nil, internalError(semanticError(errs))
	}

	ir, lowerErrs := lower.Build(normalized)
	if len(lowerErrs) > 0 {
		return nil, semanticError(lowerErrs)
	}

	if err := planir.Validate(ir); err != nil {
		return nil, internalError(err)
	}

	snapshot, err := planir.Snapshot(ir)
	if err != nil {
		return nil, internalError(err)
	}

	return &Result{
		Statement:     normalized,
		IR:            ir,
		Types:         types,
		Notifications: types.Notifications,
		Snapshot:      snapshot,
		Hash:          xxh3.Hash(snapshot),
	}, nil
}
