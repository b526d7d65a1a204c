// authenticator.go
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
	"errors"
)

var (
	// ErrNoCredentials means the request carried neither a session cookie nor a bearer token
	ErrNoCredentials = errors.New("no session credentials")
	// ErrInvalidSession means the credentials were present but rejected
	ErrInvalidSession = errors.New("invalid session")
)

// Credentials are the raw session inputs of a request
type Credentials struct {
	Cookie string
	Bearer string
}

// Authenticator turns credentials into a Session
type Authenticator interface {
	Authenticate(ctx context.Context, cred Credentials) (Session, error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(ctx context.Context, cred Credentials) (Session, error)

// Authenticate calls f
func (f AuthenticatorFunc) Authenticate(ctx context.Context, cred Credentials) (Session, error) {
	return f(ctx, cred)
}

// Chain routes bearer tokens to Bearer and session cookies to Cookie.
// Either may be nil when that credential kind is not accepted.
type Chain struct {
	Cookie Authenticator
	Bearer Authenticator
}

// Authenticate implements Authenticator
func (c Chain) Authenticate(ctx context.Context, cred Credentials) (Session, error) {
	if cred.Bearer != "" && c.Bearer != nil {
		return c.Bearer.Authenticate(ctx, cred)
	}
	if cred.Cookie != "" && c.Cookie != nil {
		return c.Cookie.Authenticate(ctx, cred)
	}
	return Session{}, ErrNoCredentials
}
