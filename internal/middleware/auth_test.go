// auth_test.go
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
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleStore struct {
	mu    sync.Mutex
	roles map[string]string
	sets  int
}

func (s *roleStore) GetRole(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles[userID], nil
}

func (s *roleStore) SetRole(_ context.Context, userID, _ string, role auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.roles[userID] = string(role)
	return nil
}

// cookieAuth accepts any cookie value as the user id
var cookieAuth = auth.AuthenticatorFunc(func(_ context.Context, cred auth.Credentials) (auth.Session, error) {
	if cred.Cookie == "" {
		return auth.Session{}, auth.ErrNoCredentials
	}
	return auth.Session{UserID: cred.Cookie, Email: cred.Cookie + "@example.com"}, nil
})

func newGuardApp(store *roleStore, allow ...auth.Role) (*fiber.App, *bool) {
	guard := NewGuard(cookieAuth, auth.NewResolver(store, nil), nil)
	rendered := false

	app := fiber.New()
	app.Get("/screen", guard.Require(allow...), func(c *fiber.Ctx) error {
		rendered = true
		actor, ok := ActorFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(actor.Resolution)
	})
	return app, &rendered
}

func request(t *testing.T, app *fiber.App, cookie string) (int, map[string]interface{}, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/screen", nil)
	if cookie != "" {
		req.Header.Set("Cookie", SessionCookie+"="+cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body, resp.Header.Get("Location")
}

func TestGuardUnauthenticated(t *testing.T) {
	app, rendered := newGuardApp(&roleStore{roles: map[string]string{}})

	status, body, _ := request(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "/login", body["redirect"])
	assert.False(t, *rendered)
}

func TestGuardEmptyAllowListAdmitsAnyRole(t *testing.T) {
	store := &roleStore{roles: map[string]string{"d1": "dealer", "a1": "super_admin", "c1": "customer"}}
	app, rendered := newGuardApp(store)

	for _, user := range []string{"d1", "a1", "c1"} {
		status, _, _ := request(t, app, user)
		assert.Equal(t, fiber.StatusOK, status, user)
	}
	assert.True(t, *rendered)
}

func TestGuardCustomerOnDealerRouteRedirects(t *testing.T) {
	store := &roleStore{roles: map[string]string{"c1": "customer"}}
	app, rendered := newGuardApp(store, auth.RoleDealer)

	status, body, location := request(t, app, "c1")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "/dashboard", body["redirect"])
	assert.Equal(t, "/dashboard", location)
	assert.NotEmpty(t, body["toast"])
	assert.False(t, *rendered)
}

func TestGuardLandingRoutes(t *testing.T) {
	store := &roleStore{roles: map[string]string{"a1": "super_admin", "d1": "dealer"}}
	app, _ := newGuardApp(store, auth.RoleCustomer)

	_, body, _ := request(t, app, "a1")
	assert.Equal(t, "/admin", body["redirect"])

	_, body, _ = request(t, app, "d1")
	assert.Equal(t, "/dealer", body["redirect"])
}

func TestGuardMissingClaimAdmitsCustomerRoute(t *testing.T) {
	store := &roleStore{roles: map[string]string{}}
	app, rendered := newGuardApp(store, auth.RoleCustomer)

	status, body, _ := request(t, app, "new-user")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "customer", body["role"])
	assert.Equal(t, "confirmed", body["state"])
	assert.True(t, *rendered)
	assert.Equal(t, 1, store.sets)
}

func TestCredentialsFromBearer(t *testing.T) {
	app := fiber.New()
	var got auth.Credentials
	app.Get("/", func(c *fiber.Ctx) error {
		got = CredentialsFrom(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got.Bearer)
	assert.Empty(t, got.Cookie)
}

func TestOptionalSession(t *testing.T) {
	store := &roleStore{roles: map[string]string{"d1": "dealer"}}
	guard := NewGuard(cookieAuth, auth.NewResolver(store, nil), nil)

	app := fiber.New()
	app.Get("/intake", guard.Optional(), func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(actor.UserID + ":" + actor.Role.String())
	})

	body := func(cookie string) string {
		req := httptest.NewRequest("GET", "/intake", nil)
		if cookie != "" {
			req.Header.Set("Cookie", SessionCookie+"="+cookie)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, "anonymous", body(""))
	assert.Equal(t, "d1:dealer", body("d1"))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Get("/", Timeout(time.Second), func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
