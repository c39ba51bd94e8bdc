package ports

import (
	"context"
	"time"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	Role      string
	FirstName string
	LastName  string
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
	Active    *bool
	Password  *string
}

type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	User      domain.UserView
}

type ValidationResult struct {
	Valid    bool        `json:"valid"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, actor domain.Identity, in RegisterInput) (*domain.User, error)
	Validate(token string) ValidationResult
	Identify(token string) domain.Identity

	GetUser(ctx context.Context, caller domain.Identity, id string) (*domain.User, error)
	LookupByUsername(ctx context.Context, caller domain.Identity, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ListActive(ctx context.Context) ([]*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]*domain.User, error)
	UpdateUser(ctx context.Context, actor domain.Identity, id string, in UpdateInput) (*domain.User, error)
	DeactivateUser(ctx context.Context, actor domain.Identity, id string) error
}

// AccessPolicy decides whether an identity may perform an operation. owner is
// the username that owns the target resource, or empty when not applicable.
type AccessPolicy interface {
	Evaluate(identity domain.Identity, op domain.Operation, owner string) domain.Decision
}
