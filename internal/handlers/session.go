// session.go
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

package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/middleware"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// SessionHandler handles sign-up, sign-in, sign-out and the session check
type SessionHandler struct {
	Identity services.IdentityProvider
	Resolver *auth.Resolver
	Apps     *services.ApplicationService
	Logger   *zap.Logger
}

type credentialsInput struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=256"`
}

type sessionResponse struct {
	OK          bool         `json:"ok"`
	User        auth.Session `json:"user"`
	Role        auth.Role    `json:"role,omitempty"`
	State       auth.State   `json:"state"`
	Redirect    string       `json:"redirect,omitempty"`
	AccessToken string       `json:"access_token,omitempty"`
	Claimed     int          `json:"claimed,omitempty"`
}

// establish resolves the role of a new session and claims its applications
func (h *SessionHandler) establish(c *fiber.Ctx, res *services.SignInResult) error {
	out := sessionResponse{OK: true, User: res.Session, AccessToken: res.AccessToken}
	if res.Session.UserID == "" {
		// sign-up awaiting email verification
		return c.Status(fiber.StatusOK).JSON(out)
	}

	resolution, err := h.Resolver.Resolve(c.UserContext(), res.Session)
	if err != nil {
		return serviceError(c, err, "session")
	}
	out.Role = resolution.Role
	out.State = resolution.State
	out.Redirect = resolution.Role.LandingRoute()

	if resolution.Role == auth.RoleCustomer && h.Apps != nil {
		claimed, err := h.Apps.Claim(c.UserContext(), res.Session)
		if err != nil {
			h.Logger.Warn("claim on sign-in failed", zap.String("userID", res.Session.UserID), zap.Error(err))
		}
		out.Claimed = len(claimed)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

// SignUp handles POST /api/auth/signup
// @Summary Sign up
// @Description Register an identity with email and password
// @Tags Session
// @Accept json
// @Produce json
// @Param body body credentialsInput true "Credentials"
// @Success 200 {object} sessionResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /auth/signup [post]
func (h *SessionHandler) SignUp(c *fiber.Ctx) error {
	var in credentialsInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "signup")
	}
	if err := services.Validate(in); err != nil {
		return serviceError(c, err, "signup")
	}

	res, err := h.Identity.SignUp(c.UserContext(), in.Email, in.Password)
	if err != nil {
		h.Logger.Info("sign-up rejected", zap.Error(err))
		return serviceError(c, err, "signup")
	}
	return h.establish(c, res)
}

// SignIn handles POST /api/auth/signin
// @Summary Sign in
// @Description Authenticate with email and password. Unclaimed applications submitted with the same email are attached to the account.
// @Tags Session
// @Accept json
// @Produce json
// @Param body body credentialsInput true "Credentials"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/signin [post]
func (h *SessionHandler) SignIn(c *fiber.Ctx) error {
	var in credentialsInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "signin")
	}
	if err := services.Validate(in); err != nil {
		return serviceError(c, err, "signin")
	}

	res, err := h.Identity.SignIn(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrSessionNotFound) {
			return utils.RedirectResponse(c, fiber.StatusUnauthorized, "Invalid email or password",
				"authorization.credentials", auth.LoginRoute, "Invalid email or password.")
		}
		return serviceError(c, err, "signin")
	}
	return h.establish(c, res)
}

// SignOut handles POST /api/auth/signout. The local session is cleared even
// when the provider no longer knows it.
// @Summary Sign out
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/signout [post]
func (h *SessionHandler) SignOut(c *fiber.Ctx) error {
	cred := middleware.CredentialsFrom(c)

	if err := h.Identity.SignOut(c.UserContext(), cred); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			h.Logger.Info("sign-out of unknown session", zap.Error(err))
		} else {
			h.Logger.Warn("sign-out provider call failed", zap.Error(err))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"redirect": auth.LoginRoute,
	})
}

// Current handles GET /api/session
// @Summary Current session
// @Description The caller's identity, resolved role and landing route
// @Tags Session
// @Produce json
// @Success 200 {object} sessionResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /session [get]
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(sessionResponse{
		OK:       true,
		User:     actor.Session,
		Role:     actor.Role,
		State:    actor.State,
		Redirect: actor.Role.LandingRoute(),
	})
}
