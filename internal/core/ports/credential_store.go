package ports

import (
	"context"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

// CredentialStore persists users. Lookups return domain.ErrUserNotFound when
// nothing matches; Create returns domain.ErrDuplicateUsername or
// domain.ErrDuplicateEmail when a unique key is already taken.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	ListActive(ctx context.Context) ([]*domain.User, error)
	ListActiveByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
}

// LoginThrottle counts failed logins per username within a lockout window.
type LoginThrottle interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) (int64, error)
	Reset(ctx context.Context, username string) error
}

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}

// AuditSink is the durable destination audit workers write to.
type AuditSink interface {
	InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error
}
