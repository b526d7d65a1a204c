// resolver.go
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
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Session is an authenticated identity as reported by the identity provider
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"-"`
}

// MetadataStore persists the role claim attached to an identity
type MetadataStore interface {
	// GetRole returns the stored claim, or "" when the identity has none
	GetRole(ctx context.Context, userID string) (string, error)
	SetRole(ctx context.Context, userID, email string, role Role) error
}

// State is the confirmation state of a resolution
type State int

const (
	StatePending State = iota
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "pending"
}

// MarshalText renders State by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolution is the outcome of resolving a session's role.
// A failed resolution still carries RoleCustomer, the least privileged role.
type Resolution struct {
	Role  Role  `json:"role"`
	State State `json:"state"`
	Err   error `json:"-"`
}

// Actor is a resolved caller
type Actor struct {
	Session
	Resolution
}

// Resolver derives the role of a session from its stored metadata
type Resolver struct {
	store  MetadataStore
	logger *zap.Logger
}

// NewResolver creates a resolver over store
func NewResolver(store MetadataStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the caller's role. A missing or unknown claim is replaced
// with RoleCustomer by writing the metadata; if that write fails the
// resolution is StateFailed and the next request retries it.
func (r *Resolver) Resolve(ctx context.Context, s Session) (Resolution, error) {
	if s.UserID == "" {
		return Resolution{}, fmt.Errorf("resolve role: empty session subject")
	}

	claim, err := r.store.GetRole(ctx, s.UserID)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve role: %w", err)
	}

	if role, ok := ParseRole(claim); ok {
		return Resolution{Role: role, State: StateConfirmed}, nil
	}

	if err := r.store.SetRole(ctx, s.UserID, s.Email, RoleCustomer); err != nil {
		r.logger.Warn("default role assignment failed",
			zap.String("userID", s.UserID),
			zap.String("claim", claim),
			zap.Error(err))
		return Resolution{Role: RoleCustomer, State: StateFailed, Err: err}, nil
	}

	r.logger.Info("assigned default role",
		zap.String("userID", s.UserID),
		zap.String("previousClaim", claim))

	return Resolution{Role: RoleCustomer, State: StateConfirmed}, nil
}
