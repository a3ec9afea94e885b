package assemble

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/evalhook"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// UUIDSeedEvaluator is the default virtual-rule evaluator for the one
// case FLASH knows how to fill without delegating to the real
// expression evaluator: a resource's own top-level `id`, left
// unauthored. Every other virtual rule is refused (nil, nil) so the
// caller's real evaluator, if any, is the only source of a fallback
// value for everything else.
//
// When Seed is empty, each call returns a fresh random id. When Seed is
// set, ids are derived deterministically from it plus the rule's own
// reference key, so repeated runs over the same input produce the same
// resource id (useful for fixture/golden-file tests). When
// RequireDeterministic is set but Seed is empty, F3015 is raised
// instead of silently falling back to a random id.
type UUIDSeedEvaluator struct {
	pol                  *policy.Policy
	fac                  diag.Factory
	Seed                 string
	RequireDeterministic bool
}

// NewUUIDSeedEvaluator builds an evaluator over pol, used to enforce
// F3015 when RequireDeterministic is set without a Seed.
func NewUUIDSeedEvaluator(pol *policy.Policy) *UUIDSeedEvaluator {
	return &UUIDSeedEvaluator{pol: pol, fac: diag.NewFactory()}
}

// Evaluate implements evalhook.Evaluator.
func (e *UUIDSeedEvaluator) Evaluate(_ context.Context, node *ast.Node, _ evalhook.Environment) (interface{}, error) {
	if !node.IsVirtualRule || !isTopLevelID(node.FlashPathRefKey) {
		return nil, nil
	}
	if e.Seed == "" {
		if e.RequireDeterministic {
			d := e.fac.New(diag.F3015, diag.Position{Position: node.Position.Position, Start: node.Position.Start, Line: node.Position.Line},
				diag.WithInstanceOf(node.InstanceOf))
			if e.pol.Enforce(d) {
				return nil, d
			}
		}
		return NewFlashRuleResult("id", navigator.KindSystem, uuid.NewString()), nil
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(e.Seed+"::"+node.FlashPathRefKey))
	return NewFlashRuleResult("id", navigator.KindSystem, id.String()), nil
}

func isTopLevelID(refKey string) bool {
	parts := strings.SplitN(refKey, "::", 2)
	return len(parts) == 2 && parts[1] == "id"
}
