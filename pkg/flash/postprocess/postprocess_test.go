package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
)

func name(s string) *ast.Node { return &ast.Node{Type: ast.Name, Value: s} }

func dot(lhs, rhs *ast.Node) *ast.Node {
	return &ast.Node{Type: ast.Binary, Value: ".", LHS: lhs, RHS: rhs}
}

func TestFlattenPathNoResidualOperators(t *testing.T) {
	// name.given.family
	tree := dot(dot(name("name"), name("given")), name("family"))
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Equal(t, ast.Path, out.Type)
	require.Len(t, out.Steps, 3)
	assert.Equal(t, "name", out.Steps[0].Value)
	assert.Equal(t, "given", out.Steps[1].Value)
	assert.Equal(t, "family", out.Steps[2].Value)
}

func TestFilterStageAttachesToLastStep(t *testing.T) {
	// name[use = 'official']
	predicate := &ast.Node{Type: ast.Binary, Value: "="}
	tree := &ast.Node{Type: ast.Binary, Value: "[", LHS: name("name"), RHS: predicate}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 1)
	require.Len(t, out.Steps[0].Stages, 1)
	assert.Equal(t, ast.StageFilter, out.Steps[0].Stages[0].Kind)
}

func TestKeepSingletonArrayOnEmptyBracket(t *testing.T) {
	tree := &ast.Node{Type: ast.Binary, Value: "[", LHS: name("name"), RHS: nil}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 1)
	assert.True(t, out.Steps[0].KeepSingletonArray)
}

func TestSortStageDescending(t *testing.T) {
	minus := &ast.Node{Type: ast.Unary, Value: "-", Expressions: []*ast.Node{name("birthDate")}}
	tree := &ast.Node{Type: ast.Binary, Value: "^", LHS: name("Patient"), RHS: minus}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps[0].Stages, 1)
	require.Len(t, out.Steps[0].Stages[0].Terms, 1)
	assert.True(t, out.Steps[0].Stages[0].Terms[0].Descending)
}

func TestContextAfterPredicateIsRejected(t *testing.T) {
	predicate := &ast.Node{Type: ast.Binary, Value: "="}
	withFilter := &ast.Node{Type: ast.Binary, Value: "[", LHS: name("name"), RHS: predicate}
	tree := &ast.Node{Type: ast.Binary, Value: "@", LHS: withFilter, RHS: name("n")}
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diag.S0215, d.Code)
}

func TestContextAfterSortIsRejected(t *testing.T) {
	tree := &ast.Node{Type: ast.Binary, Value: "@",
		LHS: &ast.Node{Type: ast.Binary, Value: "^", LHS: name("name"), RHS: name("given")},
		RHS: name("n"),
	}
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0216, d.Code)
}

func TestDuplicateGroupRejected(t *testing.T) {
	firstGroup := &ast.Node{Pairs: []ast.KVPair{{Key: name("k"), Value: name("v")}}}
	firstLevel := &ast.Node{Type: ast.Binary, Value: "{", LHS: name("name"), RHS: firstGroup}
	secondGroup := &ast.Node{Pairs: []ast.KVPair{{Key: name("k2"), Value: name("v2")}}}
	tree := &ast.Node{Type: ast.Binary, Value: "{", LHS: firstLevel, RHS: secondGroup}
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0210, d.Code)
}

func TestUnaryMinusFoldsNumberLiteral(t *testing.T) {
	lit := &ast.Node{Type: ast.NumberLit, Value: float64(5)}
	tree := &ast.Node{Type: ast.Unary, Value: "-", Expressions: []*ast.Node{lit}}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	assert.Equal(t, ast.NumberLit, out.Type)
	assert.Equal(t, -5.0, out.Value)
}

func TestPartialPlaceholderSurvivesUnchanged(t *testing.T) {
	placeholder := &ast.Node{Type: ast.Operator, Value: "?"}
	tree := &ast.Node{Type: ast.Function, Procedure: name("$substring"), Arguments: []*ast.Node{placeholder, name("start")}}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Arguments, 2)
	assert.Same(t, placeholder, out.Arguments[0])
}

func TestAncestryResolvesAtEnclosingStep(t *testing.T) {
	// name[$.use = $$.target]  -- a predicate referencing a `parent` node
	parentRef := &ast.Node{Type: ast.Parent}
	predicate := &ast.Node{Type: ast.Binary, Value: "=", LHS: name("use"), RHS: parentRef}
	tree := &ast.Node{Type: ast.Binary, Value: "[", LHS: name("name"), RHS: predicate}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 1)
	require.Len(t, out.Steps[0].SeekingParent, 1)
	assert.Equal(t, 1, out.Steps[0].SeekingParent[0].Level)
}

func TestFlashBlockAssemblesRefTables(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{"Patient": true})
	block := &ast.Node{
		Type:       ast.FlashBlock,
		InstanceOf: "Patient",
		Expressions: []*ast.Node{
			{
				Type:             ast.FlashRule,
				IsFlashRule:      true,
				FlashSteps:       []*ast.Node{name("id")},
				InlineExpression: name("value"),
			},
		},
	}
	out, err := Run(block, Options{Navigator: nav})
	require.NoError(t, err)
	require.True(t, out.ContainsFlash)
	require.Contains(t, out.StructureDefinitionRefs, "Patient")
	require.Contains(t, out.ElementDefinitionRefs, "Patient::id")
	require.Len(t, out.Expressions, 1)
	assert.Equal(t, "Patient::id", out.Expressions[0].FlashPathRefKey)
}

func TestFlashBlockRejectsUnknownInstanceOf(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{})
	block := &ast.Node{Type: ast.FlashBlock, InstanceOf: "NotAType"}
	_, err := Run(block, Options{Navigator: nav})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.F1026, d.Code)
}

func TestFlashBlockRecoverModeCollectsSentinel(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{})
	block := &ast.Node{Type: ast.FlashBlock, InstanceOf: "NotAType"}
	out, err := Run(block, Options{Navigator: nav, Recover: true})
	require.NoError(t, err)
	assert.Equal(t, ast.ErrorNode, out.Type)
}

func TestMultiStepFlashRuleUnchains(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{"Patient": true})
	block := &ast.Node{
		Type:       ast.FlashBlock,
		InstanceOf: "Patient",
		Expressions: []*ast.Node{
			{
				Type:             ast.FlashRule,
				IsFlashRule:      true,
				FlashSteps:       []*ast.Node{name("name"), name("given")},
				InlineExpression: name("value"),
			},
		},
	}
	out, err := Run(block, Options{Navigator: nav})
	require.NoError(t, err)
	require.Len(t, out.Expressions, 1)
	outer := out.Expressions[0]
	assert.Equal(t, "Patient::name", outer.FlashPathRefKey)
	require.Len(t, outer.Expressions, 1)
	inner := outer.Expressions[0]
	assert.Equal(t, "Patient::name.given", inner.FlashPathRefKey)
}

func TestUnknownNodeRaisesS0206(t *testing.T) {
	tree := &ast.Node{Type: ast.Type("bogus")}
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0206, d.Code)
}

func TestNilRootRaisesS0207(t *testing.T) {
	_, err := Run(nil, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0207, d.Code)
}

func TestStandaloneNameBecomesOneStepPath(t *testing.T) {
	out, err := Run(name("given"), Options{})
	require.NoError(t, err)
	require.Equal(t, ast.Path, out.Type)
	require.Len(t, out.Steps, 1)
	assert.Equal(t, "given", out.Steps[0].Value)
}

func TestNumberStepRaisesS0213(t *testing.T) {
	tree := dot(name("a"), &ast.Node{Type: ast.NumberLit, Value: float64(1)})
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0213, d.Code)
}

func TestStringLiteralStepRetaggedAsName(t *testing.T) {
	tree := dot(name("a"), &ast.Node{Type: ast.StringLit, Value: "b"})
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 2)
	assert.Equal(t, ast.Name, out.Steps[1].Type)
	assert.Equal(t, "b", out.Steps[1].Value)
}

func TestOperatorWordReprocessedAsName(t *testing.T) {
	tree := dot(name("a"), &ast.Node{Type: ast.Operator, Value: "in"})
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 2)
	assert.Equal(t, ast.Name, out.Steps[1].Type)
	assert.Equal(t, "in", out.Steps[1].Value)
}

func TestUnknownOperatorRaisesS0201(t *testing.T) {
	tree := &ast.Node{Type: ast.Operator, Value: "!!"}
	_, err := Run(tree, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.S0201, d.Code)
	assert.Equal(t, "!!", d.Token)
}

func TestRecoverModeAttachesErrorsToRoot(t *testing.T) {
	tree := &ast.Node{Type: ast.Block, Expressions: []*ast.Node{
		{Type: ast.Operator, Value: "!!"},
		name("ok"),
	}}
	out, err := Run(tree, Options{Recover: true})
	require.NoError(t, err)
	require.Len(t, out.Errors, 1)
	d := out.Errors[0].(*diag.Diagnostic)
	assert.Equal(t, diag.S0201, d.Code)
	assert.Equal(t, ast.ErrorNode, out.Expressions[0].Type)
}

func TestBlockConsArrayFromArrayConstructorChild(t *testing.T) {
	arr := &ast.Node{Type: ast.Unary, Value: "[", Expressions: []*ast.Node{name("a")}}
	tree := &ast.Node{Type: ast.Block, Expressions: []*ast.Node{dot(arr, name("b"))}}
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	assert.True(t, out.ConsArray)
}

func TestFlashRuleContextWrappedIntoPathOfBlocks(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{"Patient": true})
	block := &ast.Node{
		Type:       ast.FlashBlock,
		InstanceOf: "Patient",
		Expressions: []*ast.Node{
			{
				Type:             ast.FlashRule,
				IsFlashRule:      true,
				FlashSteps:       []*ast.Node{name("given")},
				InlineExpression: name("value"),
				Context:          name("names"),
			},
		},
	}
	out, err := Run(block, Options{Navigator: nav})
	require.NoError(t, err)
	require.Len(t, out.Expressions, 1)
	wrapped := out.Expressions[0]
	require.Equal(t, ast.Path, wrapped.Type)
	require.Len(t, wrapped.Steps, 2)
	assert.Equal(t, ast.Block, wrapped.Steps[0].Type)
	assert.Equal(t, ast.Block, wrapped.Steps[1].Type)
	rule := wrapped.Steps[1].Expressions[0]
	assert.True(t, rule.IsFlashRule)
	assert.Equal(t, "Patient::given", rule.FlashPathRefKey)
}

func TestMultiStepRuleContextStaysOnOutermost(t *testing.T) {
	nav := navigator.NewStaticNavigator(nil, map[string]bool{"Patient": true})
	block := &ast.Node{
		Type:       ast.FlashBlock,
		InstanceOf: "Patient",
		Expressions: []*ast.Node{
			{
				Type:             ast.FlashRule,
				IsFlashRule:      true,
				FlashSteps:       []*ast.Node{name("name"), name("given")},
				InlineExpression: name("value"),
				Context:          name("names"),
			},
		},
	}
	out, err := Run(block, Options{Navigator: nav})
	require.NoError(t, err)
	require.Len(t, out.Expressions, 1)

	// The context wrap encloses the whole unchained rule chain, so every
	// step repeats per context item, not just the leaf.
	wrapped := out.Expressions[0]
	require.Equal(t, ast.Path, wrapped.Type)
	require.Len(t, wrapped.Steps, 2)
	outer := wrapped.Steps[1].Expressions[0]
	assert.Equal(t, "Patient::name", outer.FlashPathRefKey)
	assert.Nil(t, outer.InlineExpression)
	require.Len(t, outer.Expressions, 1)
	inner := outer.Expressions[0]
	assert.Equal(t, "Patient::name.given", inner.FlashPathRefKey)
	assert.NotNil(t, inner.InlineExpression)
}

func TestFlashBlockEmptyInstanceOfRejected(t *testing.T) {
	block := &ast.Node{Type: ast.FlashBlock}
	_, err := Run(block, Options{})
	require.Error(t, err)
	d := err.(*diag.Diagnostic)
	assert.Equal(t, diag.F1026, d.Code)
}

func TestChainedFunctionCallsRecordNextFunction(t *testing.T) {
	call := func(procName string) *ast.Node {
		return &ast.Node{Type: ast.Function, Procedure: name(procName)}
	}
	tree := dot(call("first"), call("second"))
	out, err := Run(tree, Options{})
	require.NoError(t, err)
	require.Len(t, out.Steps, 2)
	assert.Same(t, out.Steps[1], out.Steps[0].NextFunction)
}
