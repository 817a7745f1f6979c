package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGrants(t *testing.T) {
	reg := NewRegistry()

	t.Run("admin has every permission", func(t *testing.T) {
		for _, p := range []Permission{
			PermManageUsers, PermManageProjects, PermManageTasks,
			PermAssignTasks, PermUpdateAssignedTasks,
		} {
			assert.True(t, reg.HasPermission(RoleAdmin, p), "admin should have %q", p)
		}
	})

	t.Run("manager cannot manage users", func(t *testing.T) {
		assert.False(t, reg.HasPermission(RoleManager, PermManageUsers))
	})

	t.Run("manager grants", func(t *testing.T) {
		assert.Equal(t, []Permission{
			PermAssignTasks,
			PermManageProjects,
			PermManageTasks,
		}, reg.PermissionsOf(RoleManager))
	})

	t.Run("member only updates assigned tasks", func(t *testing.T) {
		assert.Equal(t, []Permission{PermUpdateAssignedTasks}, reg.PermissionsOf(RoleMember))
	})

	t.Run("unknown role has nothing", func(t *testing.T) {
		assert.Empty(t, reg.PermissionsOf(Role("Intern")))
		assert.False(t, reg.HasPermission(Role("Intern"), PermManageTasks))
	})
}

func TestParseRole(t *testing.T) {
	for _, name := range []string{"Admin", "Manager", "Member"} {
		role, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, Role(name), role)
	}

	_, err := ParseRole("admin")
	require.ErrorIs(t, err, ErrUnknownRole)
}
