package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/authz"
	"cesde/internal/models"
	"cesde/internal/repositories"
)

func newAdminService(t *testing.T) (*UserAdminService, *repositories.MemoryUserRepository) {
	t.Helper()
	repo := repositories.NewMemoryUserRepository()
	return NewUserAdminService(repo, bcrypt.MinCost, nil), repo
}

func actorWith(id int, role authz.Role) *models.Identity {
	return &models.Identity{ID: id, Identification: "actor", Role: role}
}

func input(id, email, role string) models.UserInput {
	return models.UserInput{FullName: " Sara Ruiz ", Identification: id, Email: email, Password: "secret1", Role: role}
}

func TestUserAdmin_CreateAndList(t *testing.T) {
	svc, repo := newAdminService(t)
	ctx := context.Background()
	admin := actorWith(100, authz.RoleAdmin)

	u, err := svc.Create(ctx, admin, input("7001", "sara@cesde.edu.co", "admin"))
	require.NoError(t, err)
	assert.Equal(t, "Sara Ruiz", u.FullName)
	assert.Equal(t, authz.RoleAdmin, u.Role)
	assert.True(t, u.Active)
	assert.Empty(t, u.PasswordHash)

	stored, err := repo.GetByIdentification(ctx, "7001")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	_, err = svc.Create(ctx, admin, input("7002", "b@cesde.edu.co", ""))
	require.NoError(t, err)

	list, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "7001", list[0].Identification)
	for _, u := range list {
		assert.Empty(t, u.PasswordHash)
	}

	page, err := svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "7002", page[0].Identification)
}

func TestUserAdmin_CreateValidation(t *testing.T) {
	svc, _ := newAdminService(t)
	ctx := context.Background()
	admin := actorWith(100, authz.RoleAdmin)
	_, err := svc.Create(ctx, admin, input("7001", "sara@cesde.edu.co", ""))
	require.NoError(t, err)

	noPassword := input("7003", "c@cesde.edu.co", "")
	noPassword.Password = ""
	short := input("7003", "c@cesde.edu.co", "")
	short.Password = "abc"

	cases := []struct {
		name string
		in   models.UserInput
		want error
	}{
		{"missing password", noPassword, ErrPasswordRequired},
		{"short password", short, ErrPasswordTooShort},
		{"bad email", input("7003", "nope", ""), ErrInvalidEmail},
		{"unknown role", input("7003", "c@cesde.edu.co", "root"), ErrRoleNotAllowed},
		{"superadmin by admin", input("7003", "c@cesde.edu.co", "superadmin"), ErrRoleNotAllowed},
		{"duplicate identification", input("7001", "c@cesde.edu.co", ""), ErrIdentityExists},
		{"duplicate email", input("7003", "SARA@cesde.edu.co", ""), ErrEmailExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = svc.Create(ctx, actorWith(1, authz.RoleSuperAdmin), input("7004", "d@cesde.edu.co", "superadmin"))
	assert.NoError(t, err)
}

func TestUserAdmin_Update(t *testing.T) {
	svc, repo := newAdminService(t)
	ctx := context.Background()
	admin := actorWith(100, authz.RoleAdmin)

	u, err := svc.Create(ctx, admin, input("7001", "sara@cesde.edu.co", ""))
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)

	inactive := false
	in := input("7001-B", "sara@cesde.edu.co", "admin")
	in.Password = ""
	in.Active = &inactive
	updated, err := svc.Update(ctx, admin, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "7001-B", updated.Identification)
	assert.False(t, updated.Active)
	assert.Equal(t, authz.RoleAdmin, updated.Role)

	after, err := repo.GetByIdentification(ctx, "7001-B")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "empty password keeps the hash")
	_, err = repo.GetByIdentification(ctx, "7001")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = svc.Update(ctx, admin, 999, input("x", "x@cesde.edu.co", ""))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserAdmin_SuperadminAccountsNeedSuperadmin(t *testing.T) {
	svc, _ := newAdminService(t)
	ctx := context.Background()
	super := actorWith(1, authz.RoleSuperAdmin)

	u, err := svc.Create(ctx, super, input("8001", "boss@cesde.edu.co", "superadmin"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, actorWith(100, authz.RoleAdmin), u.ID, input("8001", "boss@cesde.edu.co", "normal"))
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = svc.Update(ctx, super, u.ID, input("8001", "boss@cesde.edu.co", "admin"))
	assert.NoError(t, err)
}

func TestUserAdmin_Delete(t *testing.T) {
	svc, repo := newAdminService(t)
	ctx := context.Background()
	super := actorWith(1, authz.RoleSuperAdmin)

	u, err := svc.Create(ctx, super, input("9001", "x@cesde.edu.co", ""))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, actorWith(u.ID, authz.RoleSuperAdmin), u.ID), ErrSelfDelete)
	require.NoError(t, svc.Delete(ctx, super, u.ID))
	assert.ErrorIs(t, svc.Delete(ctx, super, u.ID), ErrUserNotFound)

	exists, err := repo.ExistsByIdentification(ctx, "9001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserAdmin_StoreError(t *testing.T) {
	svc := NewUserAdminService(listFailingRepo{repositories.NewMemoryUserRepository()}, bcrypt.MinCost, nil)
	_, err := svc.List(context.Background(), 10, 0)
	assert.ErrorIs(t, err, ErrStore)
}

type listFailingRepo struct {
	*repositories.MemoryUserRepository
}

func (listFailingRepo) List(context.Context, int, int) ([]*models.Identity, error) {
	return nil, assert.AnError
}
