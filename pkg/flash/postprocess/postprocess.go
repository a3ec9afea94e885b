package postprocess

import (
	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
)

// Run lowers and flattens root, returning the transformed tree with its
// reference tables attached. Under Options.Recover, raised faults are
// collected and spliced in as error-sentinel nodes instead of aborting;
// the collected faults are attached to the returned root as Node.Errors.
// Policy-governed F-code diagnostics are additionally collected in the
// bag of the Policy passed in Options.Policy; S-codes never reach it.
func Run(root *ast.Node, opt Options) (*ast.Node, error) {
	s := newState(opt)
	if root == nil {
		sentinel, err := s.raiseS(diag.S0207, ast.Position{})
		if err != nil {
			return nil, err
		}
		s.attachErrors(sentinel)
		return sentinel, nil
	}
	lowered := lowerTree(root)
	out, pending, err := s.transform(lowered)
	if err != nil {
		return nil, err
	}
	if out != nil {
		ast.Resolve(out, pending)
		s.refs.AttachTo(out)
		s.attachErrors(out)
	}
	return out, nil
}

// transform is the main-pass dispatcher: every node reachable from the
// lowered tree passes through here exactly once. Chain operators are
// routed to flattenPath; everything else recurses structurally,
// threading pending ancestry slots upward for the nearest enclosing
// step/path to bind.
func (s *state) transform(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	if n == nil {
		return nil, nil, nil
	}
	if isChainOperator(n) {
		return s.flattenPath(n)
	}

	switch n.Type {
	case ast.Unary:
		switch {
		case n.IsFlashBlock:
			return s.transformFlashBlock(n)
		case n.IsFlashRule:
			out, err := s.transformFlashRuleErr(n)
			return out, nil, err
		case n.Value == "-":
			return s.transformUnaryMinus(n)
		case n.Value == "[":
			return s.transformArray(n)
		case n.Value == "{":
			return s.transformObject(n)
		}
		return s.transformGenericUnary(n)

	case ast.Binary:
		return s.transformBinary(n)

	case ast.Function, ast.Partial:
		return s.transformCall(n)

	case ast.Lambda:
		return s.transformLambda(n)

	case ast.Condition:
		return s.transformCondition(n)

	case ast.Coalesce, ast.Elvis:
		return s.transformLHSRHS(n)

	case ast.Transform:
		return s.transformTransform(n)

	case ast.Block:
		return s.transformBlock(n)

	case ast.Parent:
		slot := s.tracker.NewSlot(n)
		return n, []ast.AncestrySlot{slot}, nil

	case ast.Name:
		step := n
		if n.KeepArray {
			step = n.Clone()
			step.KeepSingletonArray = true
		}
		return &ast.Node{
			Type:               ast.Path,
			Position:           n.Position,
			Steps:              []*ast.Node{step},
			KeepSingletonArray: step.KeepSingletonArray,
		}, nil, nil

	case ast.Operator:
		switch n.Value {
		case "and", "or", "in":
			// Operator words in name position: retag and reprocess.
			renamed := n.Clone()
			renamed.Type = ast.Name
			return s.transform(renamed)
		case "?":
			// Partial-application placeholder survives unchanged.
			return n, nil, nil
		default:
			tok, _ := n.Value.(string)
			return s.raiseSAsTriple(diag.S0201, n.Position, diag.WithToken(tok))
		}

	case ast.StringLit, ast.NumberLit, ast.ValueLit, ast.Wildcard,
		ast.Descendant, ast.Variable, ast.RegexLit, ast.ErrorNode:
		return n, nil, nil

	default:
		return s.raiseSAsTriple(diag.S0206, n.Position)
	}
}

func (s *state) raiseSAsTriple(code diag.Code, pos ast.Position, opts ...diag.Option) (*ast.Node, []ast.AncestrySlot, error) {
	n, err := s.raiseS(code, pos, opts...)
	return n, nil, err
}

// transformFlashRuleErr adapts transformFlashRule's (node,pending,error)
// into the two-value form transform's flash-rule branch needs, since a
// lone flash rule reached outside of a block still carries its own
// pending ancestry that the caller (collectSteps, an array element)
// expects back via the first return slot's ignored pending — flash
// rules never participate in a path chain so any pending slots inside
// one are resolved by the rule's own boundary instead of bubbled.
func (s *state) transformFlashRuleErr(n *ast.Node) (*ast.Node, error) {
	out, pending, err := s.transformFlashRule(n, "", nil)
	if err != nil {
		return nil, err
	}
	if out != nil {
		ast.Resolve(out, pending)
	}
	return out, nil
}

func (s *state) transformUnaryMinus(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	if len(n.Expressions) == 1 && n.Expressions[0].Type == ast.NumberLit {
		lit := n.Expressions[0]
		negated, ok := negate(lit.Value)
		if !ok {
			return s.raiseSAsTriple(diag.S0213, n.Position)
		}
		return &ast.Node{Type: ast.NumberLit, Position: n.Position, Value: negated}, nil, nil
	}
	var pending []ast.AncestrySlot
	var exprs []*ast.Node
	for _, e := range n.Expressions {
		te, tp, err := s.transform(e)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, te)
		pending = ast.Merge(pending, tp)
	}
	return &ast.Node{Type: ast.Unary, Value: "-", Position: n.Position, Expressions: exprs}, pending, nil
}

func negate(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case float64:
		return -x, true
	case int:
		return -x, true
	case int64:
		return -x, true
	default:
		return nil, false
	}
}

func (s *state) transformArray(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	var pending []ast.AncestrySlot
	var exprs []*ast.Node
	for _, e := range n.Expressions {
		te, tp, err := s.transform(e)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, te)
		pending = ast.Merge(pending, tp)
	}
	return &ast.Node{
		Type:               ast.Unary,
		Value:              "[",
		Position:           n.Position,
		Expressions:        exprs,
		KeepSingletonArray: n.KeepSingletonArray,
		ConsArray:          n.ConsArray,
	}, pending, nil
}

func (s *state) transformObject(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	var pending []ast.AncestrySlot
	var pairs []ast.KVPair
	for _, kv := range n.Pairs {
		key, keyPending, err := s.transform(kv.Key)
		if err != nil {
			return nil, nil, err
		}
		value, valPending, err := s.transform(kv.Value)
		if err != nil {
			return nil, nil, err
		}
		pairs = append(pairs, ast.KVPair{Key: key, Value: value})
		pending = ast.Merge(pending, keyPending, valPending)
	}
	return &ast.Node{Type: ast.Unary, Value: "{", Position: n.Position, Pairs: pairs}, pending, nil
}

func (s *state) transformGenericUnary(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	var pending []ast.AncestrySlot
	var exprs []*ast.Node
	for _, e := range n.Expressions {
		te, tp, err := s.transform(e)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, te)
		pending = ast.Merge(pending, tp)
	}
	out := n.Clone()
	out.Expressions = exprs
	return out, pending, nil
}

func (s *state) transformBinary(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	switch n.Value {
	case ":=":
		lhs, lp, err := s.transform(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		rhs, rp, err := s.transform(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		return &ast.Node{Type: ast.Bind, Position: n.Position, LHS: lhs, RHS: rhs}, ast.Merge(lp, rp), nil

	case "~>":
		lhs, lp, err := s.transform(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		rhs, rp, err := s.transform(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		return &ast.Node{Type: ast.Apply, Position: n.Position, LHS: lhs, RHS: rhs, KeepArray: n.KeepArray}, ast.Merge(lp, rp), nil

	default:
		return s.transformLHSRHS(n)
	}
}

func (s *state) transformLHSRHS(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	lhs, lp, err := s.transform(n.LHS)
	if err != nil {
		return nil, nil, err
	}
	rhs, rp, err := s.transform(n.RHS)
	if err != nil {
		return nil, nil, err
	}
	out := n.Clone()
	out.LHS, out.RHS = lhs, rhs
	return out, ast.Merge(lp, rp), nil
}

func (s *state) transformCall(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	proc, pending, err := s.transform(n.Procedure)
	if err != nil {
		return nil, nil, err
	}
	var args []*ast.Node
	for _, a := range n.Arguments {
		ta, ap, err := s.transform(a)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, ta)
		pending = ast.Merge(pending, ap)
	}
	out := n.Clone()
	out.Procedure = proc
	out.Arguments = args
	return out, pending, nil
}

// transformLambda transforms a lambda's body and, when its final
// expression is itself a call whose procedure is a lambda or a path,
// wraps that call in a Thunk so the evaluator can trampoline it instead
// of growing its own call stack (tail-call optimization).
func (s *state) transformLambda(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	body, pending, err := s.transform(n.Body)
	if err != nil {
		return nil, nil, err
	}
	body = wrapTailCall(body)
	out := n.Clone()
	out.Body = body
	return out, pending, nil
}

func wrapTailCall(body *ast.Node) *ast.Node {
	if body == nil {
		return body
	}
	tail := body
	if body.Type == ast.Block && len(body.Expressions) > 0 {
		tail = body.Expressions[len(body.Expressions)-1]
	}
	if tail.Type != ast.Function || tail.Procedure == nil {
		return body
	}
	if tail.Procedure.Type != ast.Lambda && tail.Procedure.Type != ast.Path {
		return body
	}
	thunk := &ast.Node{Type: ast.Thunk, Position: tail.Position, ThunkOf: tail}
	if body.Type == ast.Block {
		body.Expressions[len(body.Expressions)-1] = thunk
		return body
	}
	return thunk
}

func (s *state) transformCondition(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	cond, cp, err := s.transform(n.Condition)
	if err != nil {
		return nil, nil, err
	}
	then, tp, err := s.transform(n.Then)
	if err != nil {
		return nil, nil, err
	}
	els, ep, err := s.transform(n.Else)
	if err != nil {
		return nil, nil, err
	}
	out := n.Clone()
	out.Condition, out.Then, out.Else = cond, then, els
	return out, ast.Merge(cp, tp, ep), nil
}

func (s *state) transformTransform(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	pattern, pp, err := s.transform(n.Pattern)
	if err != nil {
		return nil, nil, err
	}
	update, up, err := s.transform(n.Update)
	if err != nil {
		return nil, nil, err
	}
	del, dp, err := s.transform(n.Delete)
	if err != nil {
		return nil, nil, err
	}
	out := n.Clone()
	out.Pattern, out.Update, out.Delete = pattern, update, del
	return out, ast.Merge(pp, up, dp), nil
}

// transformBlock transforms each statement in sequence. Pending ancestry
// slots surfacing from one statement are not a later statement's
// concern, so they are merged and bubbled up to whatever boundary
// encloses the block as a whole rather than resolved here.
func (s *state) transformBlock(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	var pending []ast.AncestrySlot
	var exprs []*ast.Node
	consArray := false
	for _, e := range n.Expressions {
		te, tp, err := s.transform(e)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, te)
		pending = ast.Merge(pending, tp)
		if te != nil {
			if te.ConsArray || (te.Type == ast.Path && len(te.Steps) > 0 && isUnaryArray(te.Steps[0])) {
				consArray = true
			}
		}
	}
	return &ast.Node{Type: ast.Block, Position: n.Position, Expressions: exprs, ConsArray: consArray}, pending, nil
}
