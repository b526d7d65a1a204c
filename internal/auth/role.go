// role.go
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

// Package auth resolves who the caller is and what they may reach.
package auth

// Role gates route access. It is the single authorization signal.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleDealer     Role = "dealer"
	RoleSuperAdmin Role = "super_admin"
)

// Landing and login routes of the web client
const (
	LoginRoute     = "/login"
	AdminRoute     = "/admin"
	DealerRoute    = "/dealer"
	DashboardRoute = "/dashboard"
)

// ParseRole accepts only the three known roles
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleDealer, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// LandingRoute is where an actor with this role is sent when they reach a
// screen they may not see
func (r Role) LandingRoute() string {
	switch r {
	case RoleSuperAdmin:
		return AdminRoute
	case RoleDealer:
		return DealerRoute
	}
	return DashboardRoute
}

// In reports whether r is a member of allow. An empty allow-list admits
// every role.
func (r Role) In(allow []Role) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if a == r {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
