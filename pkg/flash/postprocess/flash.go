package postprocess

import (
	"context"

	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
)

// raiseF raises a policy-governed flash fault (F1xxx/F3xxx), unlike
// raiseS's S-codes which always bypass Policy. When Enforce says don't
// throw, an error sentinel is still handed back so the caller has a
// node to use in place of the unresolved construct.
func (s *state) raiseF(code diag.Code, pos ast.Position, opts ...diag.Option) (*ast.Node, error) {
	d := s.fac.New(code, diagPos(pos), opts...)
	if s.pol.Enforce(d) {
		if !s.recover {
			return nil, d
		}
		s.errs = append(s.errs, d)
	}
	return &ast.Node{Type: ast.ErrorNode, Position: pos, Err: d}, nil
}

func (s *state) transformFlashBlock(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	invalid := n.InstanceOf == "" ||
		(s.nav != nil && !s.nav.ValidInstanceOf(context.Background(), n.InstanceOf))
	if invalid {
		sentinel, err := s.raiseF(diag.F1026, n.Position, diag.WithInstanceOf(n.InstanceOf))
		if err != nil {
			return nil, nil, err
		}
		return sentinel, nil, nil
	}
	s.refs.AddStructureDefinitionRef(n.InstanceOf, n.Position)

	var pending []ast.AncestrySlot
	var children []*ast.Node
	for _, c := range n.Expressions {
		child, childPending, err := s.transformFlashRule(c, n.InstanceOf, nil)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
		pending = ast.Merge(pending, childPending)
	}

	return &ast.Node{
		Type:         ast.Unary,
		Value:        "[",
		Position:     n.Position,
		IsFlashBlock: true,
		InstanceOf:   n.InstanceOf,
		Expressions:  children,
	}, pending, nil
}

// transformFlashRule resolves n's single flash path step against
// instanceOf+pathPrefix, records the element-definition reference, and
// recurses into nested child rules with the extended path prefix.
func (s *state) transformFlashRule(n *ast.Node, instanceOf string, pathPrefix []*ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	if len(n.FlashSteps) != 1 {
		sentinel, err := s.raiseF(diag.F1026, n.Position)
		if err != nil {
			return nil, nil, err
		}
		return sentinel, nil, nil
	}

	step, pending, err := s.transform(n.FlashSteps[0])
	if err != nil {
		return nil, nil, err
	}
	// A name step comes back wrapped as a one-step path; the flash path
	// wants the bare step.
	if step != nil && step.Type == ast.Path && len(step.Steps) == 1 {
		step = step.Steps[0]
	}

	fullSteps := append(append([]*ast.Node{}, pathPrefix...), step)
	key := ast.ElementDefinitionKey(instanceOf, fullSteps)
	s.refs.AddElementDefinitionRef(key, ast.ElementDefinitionRef{
		InstanceOf: instanceOf,
		FullPath:   ast.DottedPath(fullSteps),
		Steps:      fullSteps,
	})

	inline, iePending, err := s.transform(n.InlineExpression)
	if err != nil {
		return nil, nil, err
	}
	pending = ast.Merge(pending, iePending)

	var children []*ast.Node
	for _, c := range n.Expressions {
		var child *ast.Node
		var childPending []ast.AncestrySlot
		if c.IsFlashRule {
			child, childPending, err = s.transformFlashRule(c, instanceOf, fullSteps)
		} else {
			child, childPending, err = s.transform(c)
		}
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
		pending = ast.Merge(pending, childPending)
	}
	pending = ast.Resolve(step, pending)

	rule := &ast.Node{
		Type:               ast.Unary,
		Value:              "[",
		Position:           n.Position,
		IsFlashRule:        true,
		InstanceOf:         instanceOf,
		FlashSteps:         []*ast.Node{step},
		FlashPathRefKey:    key,
		InlineExpression:   inline,
		IsInlineExpression: n.IsInlineExpression,
		Expressions:        children,
	}

	if n.Context == nil {
		return rule, pending, nil
	}

	// A `(context) * path = expr` rule evaluates the rule once per
	// context item: the pair becomes a two-step path of blocks so
	// parent-seeking inherits the correct scope on both sides.
	ctxExpr, ctxPending, err := s.transform(n.Context)
	if err != nil {
		return nil, nil, err
	}
	ctxBlock := &ast.Node{Type: ast.Block, Position: ctxExpr.Position, Expressions: []*ast.Node{ctxExpr}}
	ctxPending = ast.Resolve(ctxBlock, ctxPending)
	ruleBlock := &ast.Node{Type: ast.Block, Position: rule.Position, Expressions: []*ast.Node{rule}}

	return &ast.Node{
		Type:     ast.Path,
		Position: n.Position,
		Steps:    []*ast.Node{ctxBlock, ruleBlock},
	}, ast.Merge(ctxPending, pending), nil
}
