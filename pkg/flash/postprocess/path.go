package postprocess

import (
	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
)

// isChainOperator reports whether n is one of the binary operators that,
// chained left to right, describe one path: a dotted step sequence with
// bracketed filter stages, sort stages, group-by, and context/index label
// bindings.
func isChainOperator(n *ast.Node) bool {
	if n == nil || n.Type != ast.Binary {
		return false
	}
	switch n.Value {
	case ".", "[", "{", "^", "@", "#":
		return true
	}
	return false
}

// flattenPath converts a chain of `.`/`[`/`{`/`^`/`@`/`#` binary nodes
// rooted at n into a single Path node. Any pending ancestor references
// introduced within the chain (and not yet bound to an enclosing step)
// are returned for the caller to merge upward.
func (s *state) flattenPath(n *ast.Node) (*ast.Node, []ast.AncestrySlot, error) {
	steps, pending, err := s.collectSteps(n)
	if err != nil {
		return nil, nil, err
	}
	if len(steps) == 0 {
		return nil, nil, nil
	}
	return &ast.Node{
		Type:               ast.Path,
		Position:           n.Position,
		Steps:              steps,
		KeepSingletonArray: anyStepKeepsArray(steps),
		ConsArray:          isUnaryArray(steps[0]) || isUnaryArray(steps[len(steps)-1]),
	}, pending, nil
}

// anyStepKeepsArray reports whether any step in the path carries a
// keepArray marking, which propagates onto the path's own
// keepSingletonArray so a singleton result still renders as an array.
func anyStepKeepsArray(steps []*ast.Node) bool {
	for _, st := range steps {
		if st.KeepSingletonArray || st.KeepArray {
			return true
		}
	}
	return false
}

// isUnaryArray reports whether step is itself a unary array-constructor
// node, the consarray hint for a leading or trailing `[...]` step.
func isUnaryArray(step *ast.Node) bool {
	return step != nil && step.Type == ast.Unary && step.Value == "["
}

// markNextFunction records the next-in-chain hint: when trailing is a
// function call whead its procedure is a one-step path-of-name, leading
// (when itself also a function call) is told what immediately follows
// it, so an evaluator chaining `a().b()` can recognize the pattern
// without re-walking the path.
func markNextFunction(leading, trailing *ast.Node) {
	if leading.Type != ast.Function || trailing.Type != ast.Function {
		return
	}
	proc := trailing.Procedure
	if proc == nil || proc.Type != ast.Path || len(proc.Steps) != 1 || proc.Steps[0].Type != ast.Name {
		return
	}
	leading.NextFunction = trailing
}

// collectSteps recursively decomposes n into an ordered step list plus
// any ancestry slots still awaiting a boundary.
func (s *state) collectSteps(n *ast.Node) ([]*ast.Node, []ast.AncestrySlot, error) {
	if !isChainOperator(n) {
		step, pending, err := s.transform(n)
		if err != nil {
			return nil, nil, err
		}
		if step == nil {
			return nil, pending, nil
		}
		if step.Type == ast.Path {
			// An operand that is already a path contributes its steps
			// directly instead of nesting a path inside a path.
			steps := step.Steps
			if len(steps) > 0 {
				pending = ast.Resolve(steps[len(steps)-1], pending)
			}
			return steps, pending, nil
		}
		switch step.Type {
		case ast.NumberLit, ast.ValueLit:
			sentinel, err := s.raiseS(diag.S0213, step.Position, diag.WithValue(step.Value))
			if err != nil {
				return nil, nil, err
			}
			step = sentinel
		case ast.StringLit:
			step = step.Clone()
			step.Type = ast.Name
		}
		bubbled := ast.Resolve(step, pending)
		return []*ast.Node{step}, bubbled, nil
	}

	switch n.Value {
	case ".":
		leftSteps, leftPending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		rightSteps, rightPending, err := s.collectSteps(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		if len(leftSteps) > 0 && len(rightSteps) > 0 {
			markNextFunction(leftSteps[len(leftSteps)-1], rightSteps[0])
		}
		return append(leftSteps, rightSteps...), ast.Merge(leftPending, rightPending), nil

	case "[":
		baseSteps, pending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		if len(baseSteps) == 0 {
			return nil, nil, nil
		}
		last := baseSteps[len(baseSteps)-1]
		if last.Group != nil {
			_, err := s.raiseS(diag.S0209, n.Position)
			return nil, nil, err
		}
		if n.RHS == nil {
			last.KeepSingletonArray = true
			return baseSteps, pending, nil
		}
		predicate, predPending, err := s.transform(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		last.Stages = append(last.Stages, ast.Stage{Kind: ast.StageFilter, Expr: predicate})
		bubbled := ast.Resolve(last, predPending)
		return baseSteps, ast.Merge(pending, bubbled), nil

	case "^":
		baseSteps, pending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		if len(baseSteps) == 0 {
			return nil, nil, nil
		}
		last := baseSteps[len(baseSteps)-1]
		if n.RHS == nil {
			_, err := s.raiseS(diag.S0207, n.Position)
			return nil, nil, err
		}
		terms, termPending, err := s.transformSortTerms(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		last.Stages = append(last.Stages, ast.Stage{Kind: ast.StageSort, Terms: terms})
		bubbled := ast.Resolve(last, termPending)
		return baseSteps, ast.Merge(pending, bubbled), nil

	case "{":
		baseSteps, pending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		if len(baseSteps) == 0 {
			return nil, nil, nil
		}
		last := baseSteps[len(baseSteps)-1]
		if last.Group != nil {
			_, err := s.raiseS(diag.S0210, n.Position)
			return nil, nil, err
		}
		if n.RHS == nil {
			_, err := s.raiseS(diag.S0207, n.Position)
			return nil, nil, err
		}
		group, groupPending, err := s.transformGroup(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		last.Group = group
		bubbled := ast.Resolve(last, groupPending)
		return baseSteps, ast.Merge(pending, bubbled), nil

	case "@":
		baseSteps, pending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		if len(baseSteps) == 0 {
			return nil, nil, nil
		}
		last := baseSteps[len(baseSteps)-1]
		if violatesLabelOrder(last) {
			_, err := s.raiseContextOrderError(last, n.Position)
			if err != nil {
				return nil, nil, err
			}
		}
		if n.RHS == nil {
			_, err := s.raiseS(diag.S0207, n.Position)
			return nil, nil, err
		}
		focus, focusPending, err := s.transform(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		if focus != nil && focus.Type == ast.Variable {
			// The binding is the variable's name, not the node.
			last.Focus = focus.Value
		} else {
			last.Focus = focus
		}
		last.Tuple = true
		if n.KeepArray {
			last.KeepArray = true
		}
		bubbled := ast.Resolve(last, focusPending)
		return baseSteps, ast.Merge(pending, bubbled), nil

	case "#":
		baseSteps, pending, err := s.collectSteps(n.LHS)
		if err != nil {
			return nil, nil, err
		}
		if len(baseSteps) == 0 {
			return nil, nil, nil
		}
		last := baseSteps[len(baseSteps)-1]
		if n.RHS == nil {
			_, err := s.raiseS(diag.S0207, n.Position)
			return nil, nil, err
		}
		idx, idxPending, err := s.transform(n.RHS)
		if err != nil {
			return nil, nil, err
		}
		last.IndexVar = idx
		last.Tuple = true
		last.IndexSet = true
		if len(last.Stages) > 0 {
			// A filter/sort already ran on this step: the binding has to
			// capture the index at this point in the pipeline, not the
			// step's raw position, so it is recorded as its own stage
			// rather than directly on the step.
			last.Index = len(last.Stages)
			last.Stages = append(last.Stages, ast.Stage{Kind: ast.StageIndex, Index: last.Index})
		} else {
			last.Index = 0
		}
		bubbled := ast.Resolve(last, idxPending)
		return baseSteps, ast.Merge(pending, bubbled), nil
	}

	step, pending, err := s.transform(n)
	if err != nil {
		return nil, nil, err
	}
	return []*ast.Node{step}, pending, nil
}

// violatesLabelOrder reports whether a context-variable label (`@`) is
// being attached to a step that already carries a predicate or sort
// stage, which the grammar requires to come after any label.
func violatesLabelOrder(step *ast.Node) bool {
	return len(step.Stages) > 0
}

func (s *state) raiseContextOrderError(step *ast.Node, pos ast.Position) (*ast.Node, error) {
	last := step.Stages[len(step.Stages)-1]
	if last.Kind == ast.StageSort {
		return s.raiseS(diag.S0216, pos)
	}
	return s.raiseS(diag.S0215, pos)
}

func (s *state) transformSortTerms(n *ast.Node) ([]ast.SortTerm, []ast.AncestrySlot, error) {
	if n == nil {
		return nil, nil, nil
	}
	var terms []ast.SortTerm
	var pending []ast.AncestrySlot
	exprs := []*ast.Node{n}
	if n.Type == ast.Block {
		exprs = n.Expressions
	}
	for _, e := range exprs {
		descending := false
		expr := e
		if e.Type == ast.Unary && e.Value == "-" {
			descending = true
			if len(e.Expressions) == 1 {
				expr = e.Expressions[0]
			}
		}
		tExpr, tPending, err := s.transform(expr)
		if err != nil {
			return nil, nil, err
		}
		terms = append(terms, ast.SortTerm{Descending: descending, Expression: tExpr})
		pending = ast.Merge(pending, tPending)
	}
	return terms, pending, nil
}

func (s *state) transformGroup(n *ast.Node) (*ast.GroupClause, []ast.AncestrySlot, error) {
	if n == nil {
		return nil, nil, nil
	}
	var pairs []ast.KVPair
	var pending []ast.AncestrySlot
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
	return &ast.GroupClause{Position: n.Position, Pairs: pairs}, pending, nil
}
