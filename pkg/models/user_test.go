package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleIsStaff(t *testing.T) {
	for _, r := range StaffRoles {
		assert.True(t, r.IsStaff(), r)
	}
	assert.False(t, RoleGuard.IsStaff())
	assert.False(t, RoleClient.IsStaff())
	assert.False(t, Role("").IsStaff())
	assert.True(t, ParseRole(" Dispatch ").IsStaff())
}
