package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, RoleAgent, NormalizeRole(" agent "))
	assert.Equal(t,
		[]Role{RoleEmployee, RoleHRSpecialist},
		NormalizeRoles([]string{"employee", "  ", "hr_specialist"}),
	)
}

func TestIsAdminRole(t *testing.T) {
	assert.True(t, IsAdminRole(RoleAdmin))
	assert.True(t, IsAdminRole(RoleSuperAdmin))
	assert.False(t, IsAdminRole(RoleAgent))
	assert.False(t, IsAdminRole(RoleHRManager))
}

func TestUserRoleChecks(t *testing.T) {
	agent := User{Roles: []Role{RoleAgent}}
	assert.True(t, agent.HasRole(RoleAgent))
	assert.False(t, agent.HasRole(RoleAdmin))
	assert.False(t, agent.IsAdmin())

	admin := User{Roles: []Role{RoleEmployee, RoleSuperAdmin}}
	assert.True(t, admin.IsAdmin())
}
