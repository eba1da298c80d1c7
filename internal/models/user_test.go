// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "testing"

// TestUserRole verifies that only staff users get the staff token role.
func TestUserRole(t *testing.T) {
	tests := []struct {
		name    string
		isStaff bool
		want    string
	}{
		{name: "staff", isStaff: true, want: RoleStaff},
		{name: "regular user", isStaff: false, want: RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{IsStaff: tt.isStaff}
			if got := u.Role(); got != tt.want {
				t.Errorf("User{IsStaff: %v}.Role() = %q, want %q", tt.isStaff, got, tt.want)
			}
		})
	}
}
