package domain

import "time"

type AuditEventType string

const (
	AuditLoginSucceeded  AuditEventType = "login_succeeded"
	AuditLoginFailed     AuditEventType = "login_failed"
	AuditLoginThrottled  AuditEventType = "login_throttled"
	AuditUserRegistered  AuditEventType = "user_registered"
	AuditUserUpdated     AuditEventType = "user_updated"
	AuditUserDeactivated AuditEventType = "user_deactivated"
)

// AuditEvent records an authentication or user-administration outcome.
// Actor is empty for self-service actions such as login.
type AuditEvent struct {
	ID       string
	Type     AuditEventType
	Username string
	Actor    string
	At       time.Time
}
