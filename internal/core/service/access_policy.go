package service

import (
	"github.com/medcore/hospital-gateway/internal/core/domain"
)

var staffRoles = []domain.Role{domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse, domain.RoleReceptionist}

// DefaultAccessRules returns the rule table for the auth API and the record
// resources. Resources listed in anonymousRead may be read without a token.
func DefaultAccessRules(anonymousRead []string) map[domain.Operation]domain.AccessRule {
	admin := domain.RequireRoles(domain.RoleAdmin)
	clinical := domain.RequireRoles(domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse)

	rules := map[domain.Operation]domain.AccessRule{
		domain.OpLogin:          domain.AllowAnonymous(),
		domain.OpValidate:       domain.AllowAnonymous(),
		domain.OpRegister:       admin,
		domain.OpListUsers:      admin,
		domain.OpListActive:     admin,
		domain.OpListByRole:     admin,
		domain.OpFetchUser:      domain.RequireAuthenticated(),
		domain.OpReadUser:       domain.RequireOwnerOrAdmin(),
		domain.OpUpdateUser:     admin,
		domain.OpDeactivateUser: admin,
		domain.OpUnclassified:   domain.RequireAuthenticated(),
	}

	records := map[string][3]domain.AccessRule{
		domain.ResourcePatients: {
			domain.RequireRoles(staffRoles...),
			domain.RequireRoles(domain.RoleAdmin, domain.RoleDoctor, domain.RoleReceptionist),
			admin,
		},
		domain.ResourceAppointments: {
			domain.RequireRoles(domain.AllRoles...),
			domain.RequireRoles(domain.AllRoles...),
			domain.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist),
		},
		domain.ResourceDepartments: {
			domain.RequireRoles(staffRoles...),
			admin,
			admin,
		},
		domain.ResourceBeds: {
			domain.RequireRoles(staffRoles...),
			domain.RequireRoles(domain.RoleAdmin, domain.RoleNurse),
			admin,
		},
		domain.ResourceMedicalRecords: {clinical, domain.RequireRoles(domain.RoleAdmin, domain.RoleDoctor), admin},
		domain.ResourcePrescriptions:  {clinical, domain.RequireRoles(domain.RoleAdmin, domain.RoleDoctor), admin},
		domain.ResourceLabTests:       {clinical, clinical, admin},
	}
	for resource, r := range records {
		rules[domain.RecordOperation(resource, domain.VerbRead)] = r[0]
		rules[domain.RecordOperation(resource, domain.VerbWrite)] = r[1]
		rules[domain.RecordOperation(resource, domain.VerbDelete)] = r[2]
	}

	for _, resource := range anonymousRead {
		op := domain.RecordOperation(resource, domain.VerbRead)
		if _, ok := rules[op]; ok {
			rules[op] = domain.AllowAnonymous()
		}
	}

	return rules
}

// AccessPolicy evaluates an explicit operation → rule table. It is built once
// and never mutated, so concurrent Evaluate calls need no locking.
type AccessPolicy struct {
	rules map[domain.Operation]domain.AccessRule
}

func NewAccessPolicy(rules map[domain.Operation]domain.AccessRule) *AccessPolicy {
	copied := make(map[domain.Operation]domain.AccessRule, len(rules))
	for op, r := range rules {
		copied[op] = r
	}
	return &AccessPolicy{rules: copied}
}

// Rule reports the rule bound to op.
func (p *AccessPolicy) Rule(op domain.Operation) (domain.AccessRule, bool) {
	r, ok := p.rules[op]
	return r, ok
}

// Evaluate decides whether identity may perform op. Unknown operations are
// denied.
func (p *AccessPolicy) Evaluate(identity domain.Identity, op domain.Operation, owner string) domain.Decision {
	rule, ok := p.rules[op]
	if !ok {
		return deny(identity)
	}

	switch rule.Kind {
	case domain.RuleAnonymous:
		return domain.Decision{Allowed: true}
	case domain.RuleAuthenticated:
		if !identity.IsAnonymous() {
			return domain.Decision{Allowed: true}
		}
	case domain.RuleRoles:
		if !identity.IsAnonymous() && hasRole(rule.Roles, identity.Role) {
			return domain.Decision{Allowed: true}
		}
	case domain.RuleOwnerOrAdmin:
		if identity.Role == domain.RoleAdmin && !identity.IsAnonymous() {
			return domain.Decision{Allowed: true}
		}
		if owner != "" && identity.Username == owner {
			return domain.Decision{Allowed: true}
		}
	}
	return deny(identity)
}

func deny(identity domain.Identity) domain.Decision {
	if identity.IsAnonymous() {
		return domain.Decision{Reason: domain.ReasonUnauthenticated}
	}
	return domain.Decision{Reason: domain.ReasonForbidden}
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
