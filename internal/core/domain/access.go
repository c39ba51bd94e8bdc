package domain

// Operation names a protected action. Record operations are built with
// RecordOperation.
type Operation string

const (
	OpLogin          Operation = "auth.login"
	OpValidate       Operation = "auth.validate"
	OpRegister       Operation = "auth.register"
	OpListUsers      Operation = "users.list"
	OpListActive     Operation = "users.list_active"
	OpListByRole     Operation = "users.list_by_role"
	OpFetchUser      Operation = "users.fetch"
	OpReadUser       Operation = "users.read"
	OpUpdateUser     Operation = "users.update"
	OpDeactivateUser Operation = "users.deactivate"
	OpUnclassified   Operation = "gateway.unclassified"
)

// Record resources served behind the gateway.
const (
	ResourcePatients       = "patients"
	ResourceAppointments   = "appointments"
	ResourceDepartments    = "departments"
	ResourceBeds           = "beds"
	ResourceMedicalRecords = "medical-records"
	ResourcePrescriptions  = "prescriptions"
	ResourceLabTests       = "lab-tests"
)

// RecordResources lists every record resource in a stable order.
var RecordResources = []string{
	ResourcePatients,
	ResourceAppointments,
	ResourceDepartments,
	ResourceBeds,
	ResourceMedicalRecords,
	ResourcePrescriptions,
	ResourceLabTests,
}

// Access verbs for record resources.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbWrite  Verb = "write"
	VerbDelete Verb = "delete"
)

func RecordOperation(resource string, verb Verb) Operation {
	return Operation(resource + "." + string(verb))
}

// RuleKind is the tag of an AccessRule.
type RuleKind int

const (
	RuleAnonymous RuleKind = iota + 1
	RuleAuthenticated
	RuleRoles
	RuleOwnerOrAdmin
)

func (k RuleKind) String() string {
	switch k {
	case RuleAnonymous:
		return "anonymous"
	case RuleAuthenticated:
		return "authenticated"
	case RuleRoles:
		return "roles"
	case RuleOwnerOrAdmin:
		return "owner_or_admin"
	default:
		return "unknown"
	}
}

// AccessRule is a tagged variant; Roles is only read for RuleRoles.
type AccessRule struct {
	Kind  RuleKind
	Roles []Role
}

func AllowAnonymous() AccessRule       { return AccessRule{Kind: RuleAnonymous} }
func RequireAuthenticated() AccessRule { return AccessRule{Kind: RuleAuthenticated} }
func RequireOwnerOrAdmin() AccessRule  { return AccessRule{Kind: RuleOwnerOrAdmin} }

func RequireRoles(roles ...Role) AccessRule {
	return AccessRule{Kind: RuleRoles, Roles: roles}
}

// DenyReason is the only detail a denial discloses.
type DenyReason string

const (
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonForbidden       DenyReason = "forbidden"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Err maps a denial onto ErrUnauthenticated or ErrForbidden; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return ErrUnauthenticated
	}
	return ErrForbidden
}
