// role_test.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("dealer")
	assert.True(t, ok)
	assert.Equal(t, RoleDealer, r)

	_, ok = ParseRole("")
	assert.False(t, ok)
	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestLandingRoute(t *testing.T) {
	assert.Equal(t, "/admin", RoleSuperAdmin.LandingRoute())
	assert.Equal(t, "/dealer", RoleDealer.LandingRoute())
	assert.Equal(t, "/dashboard", RoleCustomer.LandingRoute())
	assert.Equal(t, "/dashboard", Role("").LandingRoute())
}

func TestRoleIn(t *testing.T) {
	assert.True(t, RoleCustomer.In(nil))
	assert.True(t, RoleDealer.In([]Role{RoleDealer, RoleSuperAdmin}))
	assert.False(t, RoleCustomer.In([]Role{RoleDealer}))
}
