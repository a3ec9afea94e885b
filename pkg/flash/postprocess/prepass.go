package postprocess

import "github.com/flashlang/flash-core/pkg/flash/ast"

// lowerTree walks n and every reachable child, lowering each flash
// block/rule it finds into a plain unary `[` array-constructor node so
// the main pass can transform flash and non-flash trees the same way.
// It also unchains a multi-step flash rule path into nested
// single-step rules, since the main pass only ever resolves one step
// per flash rule.
func lowerTree(n *ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	n = lowerFlash(n)
	lowerChildren(n)
	return n
}

// lowerFlash rewrites n itself if it is a flash block or flash rule.
// Raw parser output tags these by node type; the pre-pass may also see
// nodes it already rewrote (flag set, type unary), so both spellings
// are recognized.
func lowerFlash(n *ast.Node) *ast.Node {
	switch {
	case n.Type == ast.FlashBlock || n.IsFlashBlock:
		exprs := n.Expressions
		if n.InstanceExpr != nil {
			exprs = append([]*ast.Node{instanceExprRule(n.InstanceExpr)}, exprs...)
		}
		return &ast.Node{
			Type:         ast.Unary,
			Value:        "[",
			Position:     n.Position,
			Expressions:  exprs,
			IsFlashBlock: true,
			InstanceOf:   n.InstanceOf,
		}
	case n.Type == ast.FlashRule || n.IsFlashRule:
		return unchainFlashRule(n)
	default:
		return n
	}
}

// instanceExprRule synthesizes the top-of-block flash rule an
// `Instance: <expr>` header implies: a single-step `id` rule whose sole
// expression is the instance expression itself.
func instanceExprRule(instanceExpr *ast.Node) *ast.Node {
	return &ast.Node{
		Type:               ast.FlashRule,
		Position:           instanceExpr.Position,
		IsFlashRule:        true,
		FlashSteps:         []*ast.Node{{Type: ast.Name, Value: "id", Position: instanceExpr.Position}},
		InlineExpression:   instanceExpr,
		IsInlineExpression: true,
	}
}

// unchainFlashRule turns a flash rule authored with a dotted multi-step
// path ("* name.given = expr") into a single-step rule whose sole child
// is a synthetic rule for the remaining steps, recursively. The inline
// expression sinks to the innermost (leaf) rule; a context stays on the
// outermost rule so the whole chain repeats per context item.
func unchainFlashRule(n *ast.Node) *ast.Node {
	if len(n.FlashSteps) > 1 {
		inner := &ast.Node{
			Type:               ast.FlashRule,
			Position:           n.FlashSteps[1].Position,
			IsFlashRule:        true,
			FlashSteps:         n.FlashSteps[1:],
			InlineExpression:   n.InlineExpression,
			IsInlineExpression: n.IsInlineExpression,
			Expressions:        n.Expressions,
		}
		n = &ast.Node{
			Type:        ast.FlashRule,
			Position:    n.Position,
			IsFlashRule: true,
			FlashSteps:  n.FlashSteps[:1],
			Context:     n.Context,
			Expressions: []*ast.Node{inner},
		}
	}
	return &ast.Node{
		Type:               ast.Unary,
		Value:              "[",
		Position:           n.Position,
		Expressions:        n.Expressions,
		IsFlashRule:        true,
		FlashSteps:         n.FlashSteps,
		InlineExpression:   n.InlineExpression,
		IsInlineExpression: n.IsInlineExpression,
		Context:            n.Context,
	}
}

// lowerChildren recurses into every child field of n in place.
func lowerChildren(n *ast.Node) {
	n.LHS = lowerOpt(n.LHS)
	n.RHS = lowerOpt(n.RHS)
	for i, e := range n.Expressions {
		n.Expressions[i] = lowerTree(e)
	}
	for i := range n.Pairs {
		n.Pairs[i].Key = lowerOpt(n.Pairs[i].Key)
		n.Pairs[i].Value = lowerOpt(n.Pairs[i].Value)
	}
	n.Procedure = lowerOpt(n.Procedure)
	for i, a := range n.Arguments {
		n.Arguments[i] = lowerTree(a)
	}
	n.Body = lowerOpt(n.Body)
	n.Condition = lowerOpt(n.Condition)
	n.Then = lowerOpt(n.Then)
	n.Else = lowerOpt(n.Else)
	n.Pattern = lowerOpt(n.Pattern)
	n.Update = lowerOpt(n.Update)
	n.Delete = lowerOpt(n.Delete)
	n.InlineExpression = lowerOpt(n.InlineExpression)
	n.Context = lowerOpt(n.Context)
	for i, s := range n.FlashSteps {
		n.FlashSteps[i] = lowerOpt(s)
	}
}

func lowerOpt(n *ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	return lowerTree(n)
}
