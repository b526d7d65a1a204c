// customer_test.go
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
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submission(email string) map[string]interface{} {
	return map[string]interface{}{
		"first_name":    "Ana",
		"last_name":     "Diaz",
		"email":         email,
		"annual_income": 52000,
		"credit_score":  690,
	}
}

func TestSubmitAnonymousAndSignedIn(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)

	status, data, _ := f.do(t, "POST", "/api/applications", "", submission("anon@example.com"))
	require.Equal(t, fiber.StatusCreated, status, string(data))
	var anon models.Application
	decodeInto(t, data, &anon)
	assert.Nil(t, anon.UserID)
	assert.Equal(t, "submitted", anon.Status)
	assert.Equal(t, 1, anon.CurrentStage)

	status, data, _ = f.do(t, "POST", "/api/applications", "user-1", submission("user-1@example.com"))
	require.Equal(t, fiber.StatusCreated, status, string(data))
	var owned models.Application
	decodeInto(t, data, &owned)
	require.NotNil(t, owned.UserID)
	assert.Equal(t, "user-1", *owned.UserID)

	status, data, _ = f.do(t, "POST", "/api/applications", "", map[string]interface{}{"email": "bad"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, decodeMap(t, data)["fields"], "first_name")
}

func TestCustomerSeesOnlyOwnApplications(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	f.user(t, "user-2", auth.RoleCustomer)
	mine := f.submit(t, ptrTo("user-1"), "user-1@example.com")
	theirs := f.submit(t, ptrTo("user-2"), "user-2@example.com")

	status, data, _ := f.do(t, "GET", "/api/me/applications", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	var apps []models.Application
	decodeInto(t, data, &apps)
	require.Len(t, apps, 1)
	assert.Equal(t, mine.ID, apps[0].ID)

	status, _, _ = f.do(t, "GET", "/api/me/applications/"+theirs.ID, "user-1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = f.do(t, "GET", "/api/me/applications/"+theirs.ID+"/activity", "user-1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCustomerRoutesRejectOtherRoles(t *testing.T) {
	f := newFixture(t)
	f.user(t, "dealer-1", auth.RoleDealer)

	status, data, headers := f.do(t, "GET", "/api/me/applications", "dealer-1", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, auth.DealerRoute, headers.Get("Location"))
	assert.Equal(t, auth.DealerRoute, decodeMap(t, data)["redirect"])
}

func TestPatchCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	app := f.submit(t, ptrTo("user-1"), "user-1@example.com")

	status, data, _ := f.do(t, "PATCH", "/api/me/applications/"+app.ID, "user-1", map[string]interface{}{
		"first_name":    "Bea",
		"status":        "finalized",
		"current_stage": 7,
	})
	require.Equal(t, fiber.StatusOK, status, string(data))

	var updated models.Application
	decodeInto(t, data, &updated)
	assert.Equal(t, "Bea", updated.FirstName)
	assert.Equal(t, "submitted", updated.Status)
	assert.Equal(t, 1, updated.CurrentStage)
}

func TestClaimEndpoint(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	f.submit(t, nil, "user-1@example.com")
	f.submit(t, nil, "someone-else@example.com")

	status, data, _ := f.do(t, "POST", "/api/me/applications/claim", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, decodeMap(t, data)["claimed"])
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	app := f.submit(t, ptrTo("user-1"), "user-1@example.com")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("document_type", "pay_stub"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="stub.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/me/applications/"+app.ID+"/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer user-1")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	data := readAll(t, resp)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))

	var doc models.Document
	decodeInto(t, data, &doc)
	assert.Equal(t, "pay_stub", doc.DocumentType)
	assert.Len(t, f.objects.objects, 1)

	status, data, _ := f.do(t, "GET", "/api/me/applications/"+app.ID+"/documents", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	var docs []models.Document
	decodeInto(t, data, &docs)
	assert.Len(t, docs, 1)
}

func TestUploadRequiresFile(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	app := f.submit(t, ptrTo("user-1"), "user-1@example.com")

	status, data, _ := f.do(t, "POST", "/api/me/applications/"+app.ID+"/documents", "user-1", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, decodeMap(t, data)["fields"], "file")
}

func TestMessagesAndNotifications(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user-1", auth.RoleCustomer)
	f.user(t, "admin-1", auth.RoleSuperAdmin)
	app := f.submit(t, ptrTo("user-1"), "user-1@example.com")

	status, data, _ := f.do(t, "POST", "/api/admin/applications/"+app.ID+"/messages", "admin-1",
		map[string]string{"body": "Please upload a pay stub"})
	require.Equal(t, fiber.StatusCreated, status, string(data))

	// the submission receipt and the staff message
	status, data, _ = f.do(t, "GET", "/api/me/notifications/unread", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, decodeMap(t, data)["unread"])

	status, data, _ = f.do(t, "GET", "/api/me/applications/"+app.ID+"/messages", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	var msgs []models.Message
	decodeInto(t, data, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Please upload a pay stub", msgs[0].Body)

	status, _, _ = f.do(t, "POST", "/api/me/applications/"+app.ID+"/messages", "user-1",
		map[string]string{"body": "Uploaded"})
	assert.Equal(t, fiber.StatusCreated, status)

	status, data, _ = f.do(t, "GET", "/api/me/notifications?unread=true", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	var notes []models.Notification
	decodeInto(t, data, &notes)
	require.Len(t, notes, 2)

	status, _, _ = f.do(t, "POST", "/api/me/notifications/999/read", "user-1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, data, _ = f.do(t, "POST", "/api/me/notifications/read-all", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, decodeMap(t, data)["affectedRows"])

	status, data, _ = f.do(t, "GET", "/api/me/notifications/unread", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, decodeMap(t, data)["unread"])
}

func ptrTo(s string) *string {
	return &s
}
