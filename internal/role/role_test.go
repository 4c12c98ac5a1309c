// Copyright (c) 2026 Blood Bridge. All rights reserved.

package role_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/role"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    role.Role
		wantErr bool
	}{
		{"donor", role.Donor, false},
		{"Admin", role.Admin, false},
		{" volunteer ", role.Volunteer, false},
		{"", role.None, false},
		{"superuser", role.None, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := role.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_Contains(t *testing.T) {
	staff := role.Set{role.Admin, role.Volunteer}

	assert.True(t, staff.Contains(role.Admin))
	assert.False(t, staff.Contains(role.Donor))
	assert.False(t, staff.Contains(role.None))
	assert.False(t, role.Set{role.None}.Contains(role.None))
	assert.Equal(t, "[admin,volunteer]", staff.String())
}

func TestKey_FoldsEmail(t *testing.T) {
	assert.Equal(t, "userRole:donor@example.com", role.Key(" Donor@Example.COM "))
	assert.Equal(t, role.Key("straße@example.com"), role.Key("STRASSE@example.com"))
}
