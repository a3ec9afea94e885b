// Package postprocess implements the AST-to-AST transform FLASH runs
// before evaluation: lowering flash blocks/rules into plain array
// constructors, flattening chained `.`/`[`/`{`/`^`/`@`/`#` operators
// into path nodes with steps and stages, resolving ancestor references,
// and collecting the structure/element reference tables a flash-aware
// tree carries.
package postprocess

import (
	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// Options configures one Run.
type Options struct {
	Navigator navigator.Navigator // required when the tree contains flash
	Policy    *policy.Policy      // nil defaults to a fresh default-config Policy
	Recover   bool                // collect S-code faults instead of raising
}

type state struct {
	tracker *ast.AncestryTracker
	refs    *ast.RefTables
	nav     navigator.Navigator
	pol     *policy.Policy
	fac     diag.Factory
	recover bool
	errs    []*diag.Diagnostic
}

func newState(opt Options) *state {
	pol := opt.Policy
	if pol == nil {
		pol = policy.New(policy.DefaultConfig(), nil)
	}
	return &state{
		tracker: ast.NewAncestryTracker(),
		refs:    ast.NewRefTables(),
		nav:     opt.Navigator,
		pol:     pol,
		fac:     diag.NewFactory(),
		recover: opt.Recover,
	}
}

// raiseS records an S-code fault. Under Recover it is appended to errs
// and an error sentinel node is returned for the caller to splice in
// place of the offending subtree; otherwise the diagnostic is returned
// as an error so the caller aborts immediately (S-codes always bypass
// Policy: diag.IsSCode is true for all of them).
func (s *state) raiseS(code diag.Code, pos ast.Position, opts ...diag.Option) (*ast.Node, error) {
	d := s.fac.New(code, diagPos(pos), opts...)
	if !s.recover {
		return nil, d
	}
	s.errs = append(s.errs, d)
	return &ast.Node{Type: ast.ErrorNode, Position: pos, Err: d}, nil
}

// attachErrors copies the recover-mode fault list onto the returned
// root so a caller that asked for recovery can read everything that was
// substituted with an error sentinel.
func (s *state) attachErrors(root *ast.Node) {
	if root == nil || len(s.errs) == 0 {
		return
	}
	errs := make([]error, len(s.errs))
	for i, d := range s.errs {
		errs[i] = d
	}
	root.Errors = errs
}

func diagPos(p ast.Position) diag.Position {
	return diag.Position{Position: p.Position, Start: p.Start, Line: p.Line}
}
