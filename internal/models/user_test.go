package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	for _, bad := range []string{"", "admin", "Root", "Admin "} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrInvalidRole, "role %q", bad)
	}
}

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleEmployee, true},
		{RoleAdmin, RoleUser, true},
		{RoleEmployee, RoleEmployee, true},
		{RoleEmployee, RoleAdmin, false},
		{RoleUser, RoleEmployee, false},
		{RoleUser, RoleUser, true},
		{Role(""), RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"->"+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Satisfies(tt.required))
		})
	}
}
