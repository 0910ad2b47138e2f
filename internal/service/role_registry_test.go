package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

func verifiedIdentity(sub, email string) domain.Identity {
	return domain.Identity{SubjectID: sub, Email: email, Assurance: domain.AssuranceVerified}
}

type failingUserRepo struct {
	repository.UserRepository
	err error
}

func (f failingUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func (f failingUserRepo) GetBySubjectID(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func TestRoleRegistry_SyncCreatesOnce(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)
	identity := verifiedIdentity("sub-1", "ana@example.com")

	first, err := registry.Sync(context.Background(), identity)
	require.NoError(t, err)
	second, err := registry.Sync(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Count())
}

func TestRoleRegistry_SyncRelinksProvisionedAccount(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)

	provisioned, err := registry.Provision(context.Background(), "staff@example.com", domain.RoleEmployee)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(provisioned.SubjectID, domain.PendingSubjectPrefix))

	role, err := registry.Sync(context.Background(), verifiedIdentity("sub-staff", "staff@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, role)
	assert.Equal(t, 1, store.Count())

	linked, err := store.GetByEmail(context.Background(), "staff@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-staff", linked.SubjectID)
	assert.Equal(t, provisioned.ID, linked.ID)

	resolved, err := registry.Resolve(context.Background(), verifiedIdentity("sub-staff", "staff@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, resolved)
}

func TestRoleRegistry_DegradedSyncDoesNotWrite(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)
	_, err := registry.Provision(context.Background(), "admin@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	forged := domain.Identity{SubjectID: "attacker", Email: "admin@example.com", Assurance: domain.AssuranceDegraded}
	role, err := registry.Sync(context.Background(), forged)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	admin, err := store.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(admin.SubjectID, domain.PendingSubjectPrefix))
}

func TestRoleRegistry_SubjectLinkedElsewhereIsConflict(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)
	_, err := registry.Sync(context.Background(), verifiedIdentity("sub-1", "old@example.com"))
	require.NoError(t, err)

	_, err = registry.Sync(context.Background(), verifiedIdentity("sub-1", "new@example.com"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 1, store.Count())
}

func TestRoleRegistry_PersistenceFailureIsInternal(t *testing.T) {
	registry := NewRoleRegistry(failingUserRepo{err: errors.New("connection refused")}, nil)

	_, err := registry.Sync(context.Background(), verifiedIdentity("sub-1", "ana@example.com"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	_, err = registry.Resolve(context.Background(), verifiedIdentity("sub-1", "ana@example.com"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestRoleRegistry_ResolveUnknownIsUser(t *testing.T) {
	registry := NewRoleRegistry(repository.NewInMemoryUserStore(), nil)
	role, err := registry.Resolve(context.Background(), verifiedIdentity("nobody", "nobody@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)
}

func TestRoleRegistry_Provision(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)

	_, err := registry.Provision(context.Background(), "not-an-email", domain.RoleAdmin)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = registry.Provision(context.Background(), "boss@example.com", domain.Role("owner"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = registry.Sync(context.Background(), verifiedIdentity("sub-boss", "boss@example.com"))
	require.NoError(t, err)

	promoted, err := registry.Provision(context.Background(), "boss@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
	assert.Equal(t, "sub-boss", promoted.SubjectID)
	assert.Equal(t, 1, store.Count())
}

func TestRoleRegistry_EmailMatchingIgnoresCase(t *testing.T) {
	store := repository.NewInMemoryUserStore()
	registry := NewRoleRegistry(store, nil)

	provisioned, err := registry.Provision(context.Background(), " Staff@Example.COM ", domain.RoleEmployee)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", provisioned.Email)

	role, err := registry.Sync(context.Background(), verifiedIdentity("sub-staff", "STAFF@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, role)
	assert.Equal(t, 1, store.Count())

	linked, err := store.GetByEmail(context.Background(), "staff@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-staff", linked.SubjectID)
}
