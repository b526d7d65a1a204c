// change.go
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

// Package realtime fans data change events out to connected clients.
package realtime

import (
	"context"

	"github.com/localnerve/autofin/internal/auth"
)

// Tables that emit changes
const (
	TableApplications  = "applications"
	TableNotifications = "notifications"
)

// Change reports rows of one table that changed. UserIDs and DealerIDs
// name the owners allowed to see it.
type Change struct {
	Table     string   `json:"table"`
	Op        string   `json:"op"`
	IDs       []string `json:"ids"`
	UserIDs   []string `json:"user_ids,omitempty"`
	DealerIDs []string `json:"dealer_ids,omitempty"`
}

// Publisher accepts changes for delivery
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Audience is the identity of a subscriber
type Audience struct {
	Role     auth.Role
	UserID   string
	DealerID string
}

// Sees reports whether a may receive c. Staff see every application
// change; notifications are only ever shown to their recipient.
func (a Audience) Sees(c Change) bool {
	if c.Table == TableApplications && a.Role == auth.RoleSuperAdmin {
		return true
	}
	if c.Table == TableApplications && a.Role == auth.RoleDealer {
		return a.DealerID != "" && contains(c.DealerIDs, a.DealerID)
	}
	return a.UserID != "" && contains(c.UserIDs, a.UserID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// merge folds c into dst keeping each id once
func merge(dst *Change, c Change) {
	if dst.Op != c.Op {
		dst.Op = "mixed"
	}
	dst.IDs = union(dst.IDs, c.IDs)
	dst.UserIDs = union(dst.UserIDs, c.UserIDs)
	dst.DealerIDs = union(dst.DealerIDs, c.DealerIDs)
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			a = append(a, s)
		}
	}
	return a
}
