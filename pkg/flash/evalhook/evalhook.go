// Package evalhook declares the general evaluator FLASH consumes as an
// external collaborator, along with the one synthesis helper the
// child-value assembler needs from it: building a virtual flash rule to
// auto-evaluate a mandatory child with no authored value.
package evalhook

import (
	"context"

	"github.com/flashlang/flash-core/pkg/flash/ast"
)

// Environment is the opaque evaluation scope (variables, `%resource`,
// bindings) the evaluator threads through a call; FLASH never inspects
// it, only forwards it.
type Environment interface{}

// Evaluator executes one post-processed AST node against env and
// returns its value. For a flash-rule node, a successful evaluation is
// expected to return a recognizable flash-rule result (assemble.
// FlashRuleResult) as the dynamic value inside the returned interface;
// the child-value assembler is responsible for recognizing it.
type Evaluator interface {
	Evaluate(ctx context.Context, node *ast.Node, env Environment) (interface{}, error)
}

// VirtualRule synthesizes the empty flash rule used to compute a
// mandatory child's default value when no explicit rule produced one.
// refKey is the node's already-registered
// elementDefinitionRefs key (Node.FlashPathRefKey).
func VirtualRule(instanceOf, refKey string, pos ast.Position) *ast.Node {
	return &ast.Node{
		Type:            ast.FlashRule,
		Position:        pos,
		IsFlashRule:     true,
		IsVirtualRule:   true,
		InstanceOf:      instanceOf,
		FlashPathRefKey: refKey,
		Expressions:     nil,
	}
}
