package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcore/hospital-gateway/internal/core/domain"
	"github.com/medcore/hospital-gateway/internal/core/ports"
)

const tokenType = "Bearer"

var (
	timingHashOnce sync.Once
	timingHash     []byte
)

// missingUserHash is compared against when the username does not exist so
// that a failed login costs one bcrypt comparison either way.
func missingUserHash() []byte {
	timingHashOnce.Do(func() {
		timingHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user"), bcrypt.DefaultCost)
	})
	return timingHash
}

// AuthService implements login, registration, token validation and user
// administration on top of a CredentialStore.
type AuthService struct {
	store    ports.CredentialStore
	codec    *TokenCodec
	policy   ports.AccessPolicy
	throttle ports.LoginThrottle
	audit    ports.AuditRecorder
	log      zerolog.Logger
}

// NewAuthService wires the service. throttle and audit may be nil.
func NewAuthService(
	store ports.CredentialStore,
	codec *TokenCodec,
	policy ports.AccessPolicy,
	throttle ports.LoginThrottle,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	if throttle == nil {
		throttle = noThrottle{}
	}
	if audit == nil {
		audit = noAudit{}
	}
	return &AuthService{
		store:    store,
		codec:    codec,
		policy:   policy,
		throttle: throttle,
		audit:    audit,
		log:      log,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	blocked, err := s.throttle.Blocked(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login throttle check failed, continuing")
	} else if blocked {
		s.record(domain.AuditLoginThrottled, username, "")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(missingUserHash(), []byte(password))
			return nil, s.loginFailed(ctx, username)
		}
		return nil, storeError("login", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.Active {
		return nil, s.loginFailed(ctx, username)
	}

	token, expiresAt, err := s.codec.Issue(user.Username, user.Role, s.codec.Now())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.throttle.Reset(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login throttle reset failed")
	}
	s.record(domain.AuditLoginSucceeded, username, "")

	return &ports.LoginResult{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: expiresAt,
		User:      user.View(),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string) error {
	if _, err := s.throttle.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login throttle record failed")
	}
	s.record(domain.AuditLoginFailed, username, "")
	return domain.ErrInvalidCredentials
}

// Register creates an active user. Uniqueness is checked before anything is
// hashed or written, so a rejected registration leaves the store untouched.
func (s *AuthService) Register(ctx context.Context, actor domain.Identity, in ports.RegisterInput) (*domain.User, error) {
	user, err := s.newUser(in)
	if err != nil {
		return nil, err
	}

	if taken, err := s.store.ExistsByUsername(ctx, user.Username); err != nil {
		return nil, storeError("register", err)
	} else if taken {
		return nil, domain.ErrDuplicateUsername
	}
	if taken, err := s.store.ExistsByEmail(ctx, user.Email); err != nil {
		return nil, storeError("register", err)
	} else if taken {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	created, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, storeError("register", err)
	}

	s.log.Info().Str("username", created.Username).Str("role", created.Role.String()).Str("actor", actor.Username).Msg("user registered")
	s.record(domain.AuditUserRegistered, created.Username, actor.Username)
	return created, nil
}

func (s *AuthService) newUser(in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || in.Password == "" || email == "" {
		return nil, domain.ErrInvalidInput
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	now := s.codec.Now().UTC()
	return &domain.User{
		Username:  username,
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	if username == "" || password == "" || email == "" {
		return false, nil
	}
	_, err := s.Register(ctx, domain.Anonymous, ports.RegisterInput{
		Username: username,
		Password: password,
		Email:    email,
		Role:     string(domain.RoleAdmin),
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrDuplicateUsername):
		return false, nil
	default:
		return false, err
	}
}

// Validate never fails: any rejected token is reported as not valid.
func (s *AuthService) Validate(token string) ports.ValidationResult {
	id, err := s.codec.Decode(token, s.codec.Now())
	if err != nil {
		return ports.ValidationResult{Valid: false}
	}
	return ports.ValidationResult{Valid: true, Username: id.Username, Role: id.Role}
}

func (s *AuthService) Identify(token string) domain.Identity {
	return s.codec.Identify(token)
}

// GetUser returns the user with id if caller is that user or an admin.
// Callers without admin rights cannot tell a missing id from someone else's.
func (s *AuthService) GetUser(ctx context.Context, caller domain.Identity, id string) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if d := s.policy.Evaluate(caller, domain.OpReadUser, ""); !d.Allowed {
				return nil, d.Err()
			}
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}

	if d := s.policy.Evaluate(caller, domain.OpReadUser, user.Username); !d.Allowed {
		return nil, d.Err()
	}
	return user, nil
}

// LookupByUsername is GetUser keyed by username. Deactivated users are
// reported as not found.
func (s *AuthService) LookupByUsername(ctx context.Context, caller domain.Identity, username string) (*domain.User, error) {
	if d := s.policy.Evaluate(caller, domain.OpReadUser, username); !d.Allowed {
		return nil, d.Err()
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, storeError("lookup user", err)
	}
	if !user.Active {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return users, nil
}

func (s *AuthService) ListActive(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, storeError("list active users", err)
	}
	return users, nil
}

// ListByRole returns active users holding role. role is case-insensitive.
func (s *AuthService) ListByRole(ctx context.Context, role string) ([]*domain.User, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListActiveByRole(ctx, r)
	if err != nil {
		return nil, storeError("list users by role", err)
	}
	return users, nil
}

func (s *AuthService) UpdateUser(ctx context.Context, actor domain.Identity, id string, in ports.UpdateInput) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("update user", err)
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, domain.ErrInvalidInput
		}
		if email != user.Email {
			taken, err := s.store.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, storeError("update user", err)
			}
			if taken {
				return nil, domain.ErrDuplicateEmail
			}
			user.Email = email
		}
	}
	if in.Role != nil {
		role, err := domain.ParseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, domain.ErrInvalidInput
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = s.codec.Now().UTC()

	updated, err := s.store.Update(ctx, user)
	if err != nil {
		return nil, storeError("update user", err)
	}
	s.record(domain.AuditUserUpdated, updated.Username, actor.Username)
	return updated, nil
}

// DeactivateUser marks the user inactive. The record is kept.
func (s *AuthService) DeactivateUser(ctx context.Context, actor domain.Identity, id string) error {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return storeError("deactivate user", err)
	}
	user.Active = false
	user.UpdatedAt = s.codec.Now().UTC()

	if _, err := s.store.Update(ctx, user); err != nil {
		return storeError("deactivate user", err)
	}
	s.log.Info().Str("username", user.Username).Str("actor", actor.Username).Msg("user deactivated")
	s.record(domain.AuditUserDeactivated, user.Username, actor.Username)
	return nil
}

func (s *AuthService) record(t domain.AuditEventType, username, actor string) {
	s.audit.Record(domain.AuditEvent{
		ID:       uuid.NewString(),
		Type:     t,
		Username: username,
		Actor:    actor,
		At:       s.codec.Now().UTC(),
	})
}

// storeError passes domain errors through and folds everything else into
// ErrStoreUnavailable.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateEmail):
		return err
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
}

type noThrottle struct{}

func (noThrottle) Blocked(context.Context, string) (bool, error)        { return false, nil }
func (noThrottle) RecordFailure(context.Context, string) (int64, error) { return 0, nil }
func (noThrottle) Reset(context.Context, string) error                  { return nil }

type noAudit struct{}

func (noAudit) Record(domain.AuditEvent) {}
