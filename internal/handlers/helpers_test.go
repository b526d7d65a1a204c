// helpers_test.go
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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/middleware"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/realtime"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ctx = context.Background()

// bearerAuth treats the bearer token as the user id
var bearerAuth = auth.AuthenticatorFunc(func(_ context.Context, cred auth.Credentials) (auth.Session, error) {
	if cred.Bearer == "" {
		return auth.Session{}, auth.ErrNoCredentials
	}
	return auth.Session{UserID: cred.Bearer, Email: cred.Bearer + "@example.com"}, nil
})

// fakeIdentity is a scripted identity provider
type fakeIdentity struct {
	signIn     *services.SignInResult
	signInErr  error
	signOutErr error
	signOuts   int
}

func (f *fakeIdentity) Authenticate(ctx context.Context, cred auth.Credentials) (auth.Session, error) {
	return bearerAuth(ctx, cred)
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string) (*services.SignInResult, error) {
	return &services.SignInResult{}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*services.SignInResult, error) {
	return f.signIn, f.signInErr
}

func (f *fakeIdentity) SignOut(_ context.Context, _ auth.Credentials) error {
	f.signOuts++
	return f.signOutErr
}

// memoryStore is an ObjectStore kept in memory
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return "https://objects.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

type fixture struct {
	app      *fiber.App
	db       *gorm.DB
	hub      *realtime.Hub
	identity *fakeIdentity
	objects  *memoryStore
	accounts *services.AccountService
	apps     *services.ApplicationService
	dealers  *services.DealerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	accounts := services.NewAccountService(db, log)
	resolver := auth.NewResolver(accounts, log)
	guard := middleware.NewGuard(bearerAuth, resolver, log)

	settings := services.NewSettingsService(db, log)
	objects := &memoryStore{}
	apps := services.NewApplicationService(db, log, services.WithSettings(settings), services.WithObjectStore(objects))
	dealers := services.NewDealerService(db, "https://autofin.test", log)
	hub := realtime.NewHub(0, log)
	t.Cleanup(hub.Close)
	identity := &fakeIdentity{}

	h := &Handlers{
		Session: &SessionHandler{Identity: identity, Resolver: resolver, Apps: apps, Logger: log},
		Customer: &CustomerHandler{
			Apps:          apps,
			Documents:     services.NewDocumentService(db, objects, log),
			Notifications: services.NewNotificationService(db),
			Activity:      services.NewActivityService(db),
			Messages:      services.NewMessageService(db, nil),
			Logger:        log,
		},
		Dealer: &DealerHandler{Dealers: dealers, Apps: apps, Logger: log},
		Admin: &AdminHandler{
			Apps:      apps,
			Flags:     services.NewFlagService(db, log),
			Messages:  services.NewMessageService(db, nil),
			Activity:  services.NewActivityService(db),
			Documents: services.NewDocumentService(db, objects, log),
			Settings:  settings,
			Logger:    log,
		},
		Privileged: &PrivilegedHandler{Accounts: accounts, Dealers: dealers},
		Chat:       &ChatHandler{Relay: services.NewChatRelay("", "", 0, log)},
		Changes:    &ChangesHandler{Hub: hub, Dealers: dealers, Logger: log},
	}

	app := fiber.New()
	h.Mount(app.Group("/api"), guard)

	return &fixture{
		app:      app,
		db:       db,
		hub:      hub,
		identity: identity,
		objects:  objects,
		accounts: accounts,
		apps:     apps,
		dealers:  dealers,
	}
}

// user stores role for userID
func (f *fixture) user(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	require.NoError(t, f.accounts.SetRole(ctx, userID, userID+"@example.com", role))
	return userID
}

// submit creates an application through the service
func (f *fixture) submit(t *testing.T, userID *string, email string) *models.Application {
	t.Helper()
	app, err := f.apps.Submit(ctx, userID, services.ApplicationInput{
		FirstName:    "Ana",
		LastName:     "Diaz",
		Email:        email,
		Phone:        "555-0100",
		AnnualIncome: 40000,
		CreditScore:  650,
	})
	require.NoError(t, err)
	return app
}

// do sends a JSON request as token and returns the status and body
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header
}

func decodeMap(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m), string(data))
	return m
}

func decodeInto(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v), string(data))
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}
