// changes_test.go
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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStreamDeliversVisibleChanges(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = f.hub.Publish(ctx, realtime.Change{Table: realtime.TableNotifications, Op: "insert", IDs: []string{"9"}, UserIDs: []string{"user-2"}})
		_ = f.hub.Publish(ctx, realtime.Change{Table: realtime.TableNotifications, Op: "insert", IDs: []string{"7"}, UserIDs: []string{"user-1"}})
		time.Sleep(100 * time.Millisecond)
		f.hub.Close()
	}()

	req := httptest.NewRequest("GET", "/api/changes", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := string(readAll(t, resp))
	assert.Contains(t, stream, "retry: 3000")
	assert.Equal(t, 1, strings.Count(stream, "event: change"))
	assert.Contains(t, stream, `"ids":["7"]`)
	assert.NotContains(t, stream, `"ids":["9"]`)
}

func TestChangeStreamRequiresSession(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "GET", "/api/changes", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestChatUnavailableWithoutEndpoint(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)

	status, _, _ := f.do(t, "POST", "/api/chat", "user-1", map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "What rate can I get?"}},
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}
