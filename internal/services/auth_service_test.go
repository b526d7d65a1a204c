// auth_service_test.go
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

package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthorizer struct {
	validate  *authorizer.ValidateSessionResponse
	token     *authorizer.AuthTokenResponse
	err       error
	logoutHdr map[string]string
}

func (f *fakeAuthorizer) ValidateSession(req *authorizer.ValidateSessionInput) (*authorizer.ValidateSessionResponse, error) {
	return f.validate, f.err
}

func (f *fakeAuthorizer) SignUp(req *authorizer.SignUpInput) (*authorizer.AuthTokenResponse, error) {
	return f.token, f.err
}

func (f *fakeAuthorizer) Login(req *authorizer.LoginInput) (*authorizer.AuthTokenResponse, error) {
	return f.token, f.err
}

func (f *fakeAuthorizer) Logout(headers map[string]string) (*authorizer.Response, error) {
	f.logoutHdr = headers
	return &authorizer.Response{}, f.err
}

func TestSessionFrom(t *testing.T) {
	session, err := sessionFrom(map[string]interface{}{"id": "user-1", "email": "ana@example.com", "roles": []string{"user"}})
	require.NoError(t, err)
	assert.Equal(t, auth.Session{UserID: "user-1", Email: "ana@example.com"}, session)

	_, err = sessionFrom(map[string]interface{}{"email": "ana@example.com"})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestAuthorizerAuthenticate(t *testing.T) {
	fake := &fakeAuthorizer{validate: &authorizer.ValidateSessionResponse{IsValid: false}}
	client := &AuthorizerClient{client: fake}

	_, err := client.Authenticate(ctx, auth.Credentials{})
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	_, err = client.Authenticate(ctx, auth.Credentials{Cookie: "c"})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	fake.validate = nil
	fake.err = errors.New("unauthorized")
	_, err = client.Authenticate(ctx, auth.Credentials{Cookie: "c"})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestAuthorizerSignInReturnsToken(t *testing.T) {
	token := "access-1"
	fake := &fakeAuthorizer{token: &authorizer.AuthTokenResponse{AccessToken: &token}}
	client := &AuthorizerClient{client: fake}

	res, err := client.SignIn(ctx, "Ana@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "access-1", res.AccessToken)

	fake.err = errors.New("bad user credentials")
	_, err = client.SignIn(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrValidation)

	fake.err = errors.New("connection refused")
	_, err = client.SignUp(ctx, "ana@example.com", "secret")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestAuthorizerSignOut(t *testing.T) {
	fake := &fakeAuthorizer{}
	client := &AuthorizerClient{client: fake}

	assert.ErrorIs(t, client.SignOut(ctx, auth.Credentials{}), ErrSessionNotFound)

	require.NoError(t, client.SignOut(ctx, auth.Credentials{Cookie: "abc", Bearer: "tok"}))
	assert.Equal(t, "cookie_session=abc", fake.logoutHdr["Cookie"])
	assert.Equal(t, "Bearer tok", fake.logoutHdr["Authorization"])

	fake.err = errors.New("session not found")
	assert.ErrorIs(t, client.SignOut(ctx, auth.Credentials{Cookie: "abc"}), ErrSessionNotFound)
}

// issueToken signs a token the way the Authorizer does for a shared secret
func issueToken(j *JWTAuthenticator, session auth.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func TestJWTAuthenticator(t *testing.T) {
	assert.Nil(t, NewJWTAuthenticator(""))
	var disabled *JWTAuthenticator
	_, err := disabled.Authenticate(ctx, auth.Credentials{Bearer: "x"})
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	j := NewJWTAuthenticator("shh")
	token, err := issueToken(j, auth.Session{UserID: "user-1", Email: "ana@example.com"}, time.Minute)
	require.NoError(t, err)

	session, err := j.Authenticate(ctx, auth.Credentials{Bearer: token})
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "ana@example.com", session.Email)
	assert.Equal(t, token, session.Token)

	expired, err := issueToken(j, auth.Session{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = j.Authenticate(ctx, auth.Credentials{Bearer: expired})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	forged, err := issueToken(NewJWTAuthenticator("other"), auth.Session{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)
	_, err = j.Authenticate(ctx, auth.Credentials{Bearer: forged})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = j.Authenticate(ctx, auth.Credentials{Bearer: none})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}
