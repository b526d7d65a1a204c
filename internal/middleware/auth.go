// auth.go
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

package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// SessionCookie is the Authorizer session cookie name
const SessionCookie = "cookie_session"

const localsActor = "actor"

// Guard gates routes on authentication and role membership
type Guard struct {
	authn    auth.Authenticator
	resolver *auth.Resolver
	logger   *zap.Logger
}

// NewGuard creates a Guard
func NewGuard(authn auth.Authenticator, resolver *auth.Resolver, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{authn: authn, resolver: resolver, logger: logger}
}

// Authenticated admits any signed-in actor
func (g *Guard) Authenticated() fiber.Handler {
	return g.Require()
}

// AuthCustomer admits customers
func (g *Guard) AuthCustomer() fiber.Handler {
	return g.Require(auth.RoleCustomer)
}

// AuthDealer admits dealers
func (g *Guard) AuthDealer() fiber.Handler {
	return g.Require(auth.RoleDealer)
}

// AuthAdmin admits super admins
func (g *Guard) AuthAdmin() fiber.Handler {
	return g.Require(auth.RoleSuperAdmin)
}

// Require admits actors whose role is in allow; an empty allow-list admits
// every authenticated actor. The role is fully resolved before the next
// handler runs.
func (g *Guard) Require(allow ...auth.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.authorize(c, allow)
	}
}

// authorize performs the authorization check
func (g *Guard) authorize(c *fiber.Ctx, allow []auth.Role) error {
	cred := CredentialsFrom(c)

	session, err := g.authn.Authenticate(c.UserContext(), cred)
	if err != nil {
		message := fmt.Sprintf("Invalid session: %v", err)
		if errors.Is(err, auth.ErrNoCredentials) {
			message = fmt.Sprintf("Authorizer cookie %q not found", SessionCookie)
		}
		return utils.RedirectResponse(c, fiber.StatusUnauthorized, message, "authorization.session", auth.LoginRoute, "Please sign in to continue.")
	}

	resolution, err := g.resolver.Resolve(c.UserContext(), session)
	if err != nil {
		g.logger.Error("role resolution failed", zap.String("userID", session.UserID), zap.Error(err))
		return utils.ErrorResponse(c, "Unable to resolve role", fiber.StatusServiceUnavailable, "authorization.role")
	}

	if !resolution.Role.In(allow) {
		landing := resolution.Role.LandingRoute()
		g.logger.Info("unauthorized route access",
			zap.String("userID", session.UserID),
			zap.String("role", resolution.Role.String()),
			zap.String("path", c.Path()),
			zap.String("redirect", landing))
		c.Set(fiber.HeaderLocation, landing)
		return utils.RedirectResponse(c, fiber.StatusForbidden,
			fmt.Sprintf("Role %q may not access this resource", resolution.Role),
			"authorization.role", landing, "You don't have permission to access that page.")
	}

	c.Locals(localsActor, auth.Actor{Session: session, Resolution: resolution})

	return c.Next()
}

// Optional stores the actor when the request carries a valid session and
// continues either way. Anonymous callers reach the handler without one.
func (g *Guard) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cred := CredentialsFrom(c)
		if cred.Cookie == "" && cred.Bearer == "" {
			return c.Next()
		}

		session, err := g.authn.Authenticate(c.UserContext(), cred)
		if err != nil {
			g.logger.Debug("ignoring invalid optional session", zap.Error(err))
			return c.Next()
		}
		resolution, err := g.resolver.Resolve(c.UserContext(), session)
		if err != nil {
			g.logger.Error("role resolution failed", zap.String("userID", session.UserID), zap.Error(err))
			return c.Next()
		}

		c.Locals(localsActor, auth.Actor{Session: session, Resolution: resolution})
		return c.Next()
	}
}

// CredentialsFrom extracts the session cookie and bearer token
func CredentialsFrom(c *fiber.Ctx) auth.Credentials {
	cred := auth.Credentials{Cookie: c.Cookies(SessionCookie)}

	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		cred.Bearer = strings.TrimSpace(header[7:])
	}

	return cred
}

// ActorFrom returns the actor stored by the guard
func ActorFrom(c *fiber.Ctx) (auth.Actor, bool) {
	actor, ok := c.Locals(localsActor).(auth.Actor)
	return actor, ok
}
