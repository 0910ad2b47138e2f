package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// RoleRegistry maps external identities onto internal User records.
type RoleRegistry struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewRoleRegistry builds the registry.
func NewRoleRegistry(users repository.UserRepository, logger *zap.Logger) *RoleRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleRegistry{users: users, logger: logger}
}

// Sync records identity in the registry and returns its role. A record found
// by email with a different subject id is re-linked to identity, which is how
// pre-provisioned accounts are claimed on first login.
//
// Degraded identities are resolved read-only: unverified claims never create
// or re-link accounts.
func (r *RoleRegistry) Sync(ctx context.Context, identity domain.Identity) (domain.Role, error) {
	if identity.Degraded() {
		return r.Resolve(ctx, identity)
	}

	role, err := r.sync(ctx, identity)
	if errors.Is(err, repository.ErrConflict) {
		// A concurrent first sync for the same email won the insert.
		role, err = r.sync(ctx, identity)
	}
	if errors.Is(err, repository.ErrConflict) {
		r.logger.Warn("subject already linked to another account",
			zap.String("subject_id", identity.SubjectID),
			zap.String("email", identity.Email))
		return "", apperrors.NewConflict("identity is linked to a different account", nil)
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return role, nil
}

func (r *RoleRegistry) sync(ctx context.Context, identity domain.Identity) (domain.Role, error) {
	email := normalizeEmail(identity.Email)
	user, err := r.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &domain.User{
			Email:     email,
			Role:      domain.RoleUser,
			SubjectID: identity.SubjectID,
		}
		if err := r.users.Create(ctx, user); err != nil {
			return "", err
		}
		r.logger.Info("account created", zap.String("user_id", user.ID), zap.String("subject_id", user.SubjectID))
		return user.Role, nil
	}
	if err != nil {
		return "", err
	}

	if user.SubjectID != identity.SubjectID {
		previous := user.SubjectID
		user.SubjectID = identity.SubjectID
		if err := r.users.Update(ctx, user); err != nil {
			return "", err
		}
		r.logger.Info("account linked",
			zap.String("user_id", user.ID),
			zap.String("subject_id", user.SubjectID),
			zap.Bool("was_pending", strings.HasPrefix(previous, domain.PendingSubjectPrefix)))
	}
	return user.Role, nil
}

// Resolve returns the role stored for identity's subject id without writing.
// Identities with no record are treated as plain users.
func (r *RoleRegistry) Resolve(ctx context.Context, identity domain.Identity) (domain.Role, error) {
	user, err := r.users.GetBySubjectID(ctx, identity.SubjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.RoleUser, nil
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if !user.Role.Valid() {
		return "", apperrors.NewInternalError(errors.New("stored role is not recognized: " + string(user.Role)))
	}
	return user.Role, nil
}

// Provision creates or updates an account by email ahead of its owner's first
// login. New accounts get a placeholder subject id until Sync links them.
func (r *RoleRegistry) Provision(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}

	user, err := r.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &domain.User{
			Email:     email,
			Role:      role,
			SubjectID: domain.PendingSubjectPrefix + uuid.NewString(),
		}
		if err := r.users.Create(ctx, user); err != nil {
			return nil, r.writeError(err)
		}
		r.logger.Info("account provisioned", zap.String("email", email), zap.String("role", string(role)))
		return user, nil
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}

	if user.Role != role {
		user.Role = role
		if err := r.users.Update(ctx, user); err != nil {
			return nil, r.writeError(err)
		}
		r.logger.Info("account role updated", zap.String("email", email), zap.String("role", string(role)))
	}
	return user, nil
}

// normalizeEmail lower-cases addresses so stores can match them exactly.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *RoleRegistry) writeError(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict("account already exists", nil)
	}
	return apperrors.NewInternalError(err)
}
