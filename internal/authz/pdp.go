package authz

import (
	"github.com/rs/zerolog"
)

// PDP is the policy decision point. It combines the time rule, the
// department attribute rule and discretionary grants into one allow/deny
// decision per (subject, resource, action).
//
// Decide is a pure read over the grant store; it is safe to evaluate with
// unbounded parallelism.
type PDP struct {
	grants *GrantStore

	// departmentScoping enforces the cross-department boundary. When
	// disabled, the attribute rule is skipped for this deployment.
	departmentScoping bool

	logger zerolog.Logger
}

// NewPDP creates a decision point over the given grant store.
func NewPDP(grants *GrantStore, departmentScoping bool, logger zerolog.Logger) *PDP {
	return &PDP{
		grants:            grants,
		departmentScoping: departmentScoping,
		logger:            logger.With().Str("component", "pdp").Logger(),
	}
}

// Decide evaluates the rules in strict precedence; the first applicable rule
// wins and every decision is attributable to exactly one reason code.
//
// The ordering is deliberate: the time lockout is a blanket override that no
// grant may bypass, the department boundary is checked before resource-level
// grants are consulted at all, and discretionary grants are the finest
// grained, last-checked layer.
func (p *PDP) Decide(subject Subject, resource Resource, action Action, ctx EvaluationContext) Decision {
	d := p.evaluate(subject, resource, action, ctx)

	p.logger.Info().
		Str("subject_id", subject.ID).
		Str("resource_id", resource.ID).
		Str("action", string(action)).
		Bool("after_hours", ctx.AfterHours).
		Bool("allow", d.Allow).
		Str("reason", string(d.Reason)).
		Msg("decision")

	return d
}

func (p *PDP) evaluate(subject Subject, resource Resource, action Action, ctx EvaluationContext) Decision {
	// Rule 1 (RuBAC): after-hours lockout. Reads are never blocked here.
	if ctx.AfterHours && action.Mutating() {
		return Decision{Allow: false, Reason: ReasonAfterHoursReadonly}
	}

	// Rule 2 (ABAC): organizational boundary. Public resources stay
	// readable across departments.
	if p.departmentScoping && subject.Department != resource.Department {
		if !(action == ActionRead && resource.Sensitivity == SensitivityPublic) {
			return Decision{Allow: false, Reason: ReasonDepartmentMismatch}
		}
	}

	// Rule 3 (DAC): discretionary grant sufficiency.
	required := action.requiredPermission()
	held, ok := p.grants.PermissionOf(resource.ID, subject.ID)
	if !ok || !held.Covers(required) {
		return Decision{Allow: false, Reason: ReasonInsufficientGrant}
	}

	return Decision{Allow: true, Reason: ReasonOK}
}
