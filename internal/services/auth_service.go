// auth_service.go
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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// ErrSessionNotFound is the provider's answer for an unknown or expired session
var ErrSessionNotFound = errors.New("session not found")

// SignInResult is an established session
type SignInResult struct {
	Session     auth.Session `json:"user"`
	AccessToken string       `json:"access_token,omitempty"`
}

// IdentityProvider is the session provider behind the auth endpoints
type IdentityProvider interface {
	auth.Authenticator
	SignUp(ctx context.Context, email, password string) (*SignInResult, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context, cred auth.Credentials) error
}

// authorizerAPI is the subset of the Authorizer client used here
type authorizerAPI interface {
	ValidateSession(req *authorizer.ValidateSessionInput) (*authorizer.ValidateSessionResponse, error)
	SignUp(req *authorizer.SignUpInput) (*authorizer.AuthTokenResponse, error)
	Login(req *authorizer.LoginInput) (*authorizer.AuthTokenResponse, error)
	Logout(headers map[string]string) (*authorizer.Response, error)
}

// AuthorizerClient is the IdentityProvider backed by an Authorizer service.
// Session cookies are validated by the service itself.
type AuthorizerClient struct {
	client authorizerAPI
	logger *zap.Logger
}

var _ IdentityProvider = (*AuthorizerClient)(nil)

// NewAuthorizerClient pings the Authorizer service and creates a client
func NewAuthorizerClient(cfg *config.Config, logger *zap.Logger) (*AuthorizerClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		return nil, fmt.Errorf("authorizer ping failed: %w", err)
	}

	logger.Info("initializing authorizer",
		zap.String("authorizerURL", cfg.AuthzURL),
		zap.String("clientID", cfg.AuthzClientID),
		zap.String("redirectURL", cfg.PublicURL))

	client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, cfg.PublicURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer client: %w", err)
	}
	return &AuthorizerClient{client: client, logger: logger}, nil
}

// sessionFrom reads the subject and email of an Authorizer user
func sessionFrom(user interface{}) (auth.Session, error) {
	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	data, err := json.Marshal(user)
	if err != nil {
		return auth.Session{}, err
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return auth.Session{}, err
	}
	if u.ID == "" {
		return auth.Session{}, fmt.Errorf("%w: user has no id", auth.ErrInvalidSession)
	}
	return auth.Session{UserID: u.ID, Email: u.Email}, nil
}

// Authenticate implements auth.Authenticator for session cookies
func (a *AuthorizerClient) Authenticate(ctx context.Context, cred auth.Credentials) (auth.Session, error) {
	if cred.Cookie == "" {
		return auth.Session{}, auth.ErrNoCredentials
	}

	res, err := a.client.ValidateSession(&authorizer.ValidateSessionInput{Cookie: cred.Cookie})
	if err != nil {
		return auth.Session{}, fmt.Errorf("%w: %v", auth.ErrInvalidSession, err)
	}
	if res == nil || !res.IsValid {
		return auth.Session{}, auth.ErrInvalidSession
	}
	return sessionFrom(res.User)
}

func (a *AuthorizerClient) result(res *authorizer.AuthTokenResponse) (*SignInResult, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}
	out := &SignInResult{}
	if res.User != nil {
		session, err := sessionFrom(res.User)
		if err != nil {
			return nil, err
		}
		out.Session = session
	}
	if res.AccessToken != nil {
		out.AccessToken = *res.AccessToken
		out.Session.Token = out.AccessToken
	}
	return out, nil
}

// SignUp registers a new identity
func (a *AuthorizerClient) SignUp(ctx context.Context, email, password string) (*SignInResult, error) {
	email = normalizeEmail(email)
	res, err := a.client.SignUp(&authorizer.SignUpInput{
		Email:           &email,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", providerError(err))
	}
	return a.result(res)
}

// SignIn authenticates with email and password
func (a *AuthorizerClient) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = normalizeEmail(email)
	res, err := a.client.Login(&authorizer.LoginInput{
		Email:    &email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", providerError(err))
	}
	return a.result(res)
}

// SignOut ends the provider session carried by cred
func (a *AuthorizerClient) SignOut(ctx context.Context, cred auth.Credentials) error {
	headers := map[string]string{}
	if cred.Cookie != "" {
		headers["Cookie"] = "cookie_session=" + cred.Cookie
	}
	if cred.Bearer != "" {
		headers["Authorization"] = "Bearer " + cred.Bearer
	}
	if len(headers) == 0 {
		return ErrSessionNotFound
	}
	if _, err := a.client.Logout(headers); err != nil {
		return fmt.Errorf("sign out: %w", providerError(err))
	}
	return nil
}

// providerError classifies an Authorizer failure
func providerError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "session not found"), strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	case strings.Contains(msg, "bad user credentials"), strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "already signed up"), strings.Contains(msg, "password"):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// SessionClaims are the bearer token claims
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256 bearer tokens signed with the shared secret
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates a JWTAuthenticator. It returns nil for an
// empty secret so bearer tokens stay disabled.
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	if secret == "" {
		return nil
	}
	return &JWTAuthenticator{secret: []byte(secret)}
}

// Authenticate implements auth.Authenticator for bearer tokens
func (j *JWTAuthenticator) Authenticate(ctx context.Context, cred auth.Credentials) (auth.Session, error) {
	if j == nil || cred.Bearer == "" {
		return auth.Session{}, auth.ErrNoCredentials
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(cred.Bearer, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return auth.Session{}, fmt.Errorf("%w: %v", auth.ErrInvalidSession, err)
	}
	if !token.Valid || claims.Subject == "" {
		return auth.Session{}, auth.ErrInvalidSession
	}

	return auth.Session{UserID: claims.Subject, Email: claims.Email, Token: cred.Bearer}, nil
}
