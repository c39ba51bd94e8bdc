package service

import (
	"testing"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

func identity(username string, role domain.Role) domain.Identity {
	return domain.Identity{Username: username, Role: role}
}

func TestAccessPolicy_Evaluate(t *testing.T) {
	policy := NewAccessPolicy(DefaultAccessRules([]string{domain.ResourceDepartments, domain.ResourceBeds}))

	admin := identity("root", domain.RoleAdmin)
	doctor := identity("dr_smith", domain.RoleDoctor)
	nurse := identity("nurse_joy", domain.RoleNurse)
	patient := identity("pat", domain.RolePatient)

	cases := []struct {
		name    string
		who     domain.Identity
		op      domain.Operation
		owner   string
		allowed bool
		reason  domain.DenyReason
	}{
		{"anonymous login", domain.Anonymous, domain.OpLogin, "", true, ""},
		{"anonymous validate", domain.Anonymous, domain.OpValidate, "", true, ""},
		{"anonymous list users", domain.Anonymous, domain.OpListUsers, "", false, domain.ReasonUnauthenticated},
		{"doctor list users", doctor, domain.OpListUsers, "", false, domain.ReasonForbidden},
		{"admin list users", admin, domain.OpListUsers, "", true, ""},
		{"admin register", admin, domain.OpRegister, "", true, ""},
		{"nurse register", nurse, domain.OpRegister, "", false, domain.ReasonForbidden},
		{"owner reads self", doctor, domain.OpReadUser, "dr_smith", true, ""},
		{"doctor reads other", doctor, domain.OpReadUser, "nurse_joy", false, domain.ReasonForbidden},
		{"admin reads other", admin, domain.OpReadUser, "nurse_joy", true, ""},
		{"anonymous with empty owner", domain.Anonymous, domain.OpReadUser, "", false, domain.ReasonUnauthenticated},
		{"fetch needs token", domain.Anonymous, domain.OpFetchUser, "", false, domain.ReasonUnauthenticated},
		{"fetch with token", patient, domain.OpFetchUser, "", true, ""},
		{"anonymous department read", domain.Anonymous, domain.RecordOperation(domain.ResourceDepartments, domain.VerbRead), "", true, ""},
		{"anonymous bed write", domain.Anonymous, domain.RecordOperation(domain.ResourceBeds, domain.VerbWrite), "", false, domain.ReasonUnauthenticated},
		{"nurse bed write", nurse, domain.RecordOperation(domain.ResourceBeds, domain.VerbWrite), "", true, ""},
		{"patient reads medical records", patient, domain.RecordOperation(domain.ResourceMedicalRecords, domain.VerbRead), "", false, domain.ReasonForbidden},
		{"doctor writes prescription", doctor, domain.RecordOperation(domain.ResourcePrescriptions, domain.VerbWrite), "", true, ""},
		{"nurse writes prescription", nurse, domain.RecordOperation(domain.ResourcePrescriptions, domain.VerbWrite), "", false, domain.ReasonForbidden},
		{"patient books appointment", patient, domain.RecordOperation(domain.ResourceAppointments, domain.VerbWrite), "", true, ""},
		{"doctor deletes patient", doctor, domain.RecordOperation(domain.ResourcePatients, domain.VerbDelete), "", false, domain.ReasonForbidden},
		{"unclassified anonymous", domain.Anonymous, domain.OpUnclassified, "", false, domain.ReasonUnauthenticated},
		{"unknown operation", admin, domain.Operation("reactor.meltdown"), "", false, domain.ReasonForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := policy.Evaluate(tc.who, tc.op, tc.owner)
			if d.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tc.allowed, d)
			}
			if d.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}

func TestAccessPolicy_AnonymousReadIsConfigured(t *testing.T) {
	policy := NewAccessPolicy(DefaultAccessRules(nil))
	op := domain.RecordOperation(domain.ResourceDepartments, domain.VerbRead)

	if d := policy.Evaluate(domain.Anonymous, op, ""); d.Allowed || d.Err() != domain.ErrUnauthenticated {
		t.Fatalf("expected unauthenticated denial, got %+v", d)
	}
	if d := policy.Evaluate(identity("pat", domain.RolePatient), op, ""); d.Err() != domain.ErrForbidden {
		t.Fatalf("expected forbidden for patient, got %+v", d)
	}
	if d := policy.Evaluate(identity("dr_smith", domain.RoleDoctor), op, ""); !d.Allowed {
		t.Fatalf("expected doctor allowed, got %+v", d)
	}
}

func TestAccessPolicy_UnknownAnonymousResourceIgnored(t *testing.T) {
	rules := DefaultAccessRules([]string{"morgue"})
	if _, ok := rules[domain.RecordOperation("morgue", domain.VerbRead)]; ok {
		t.Fatalf("unknown resource must not gain a rule")
	}
}

func TestAccessPolicy_RulesAreCopied(t *testing.T) {
	rules := DefaultAccessRules(nil)
	policy := NewAccessPolicy(rules)

	rules[domain.OpListUsers] = domain.AllowAnonymous()

	if d := policy.Evaluate(domain.Anonymous, domain.OpListUsers, ""); d.Allowed {
		t.Fatalf("policy changed after construction")
	}
}
