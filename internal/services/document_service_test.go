// document_service_test.go
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
	"strings"
	"testing"
	"time"

	"github.com/localnerve/autofin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(name string) UploadInput {
	return UploadInput{
		DocumentType: "pay_stub",
		FileName:     name,
		ContentType:  "application/pdf",
		Size:         4,
		Body:         strings.NewReader("%PDF"),
	}
}

func TestUploadDocument(t *testing.T) {
	_, db := newAppService(t)
	store := &fakeObjectStore{}
	svc := NewDocumentService(db, store, nil)
	app := seedApp(t, db, models.Application{UserID: ptr("user-1")})

	doc, err := svc.Upload(ctx, "user-1", app.ID, upload("stub.pdf"))
	require.NoError(t, err)
	assert.Contains(t, store.objects, doc.StorageKey)
	assert.Equal(t, "https://objects.test/"+doc.StorageKey, doc.PublicURL)
	assert.Equal(t, int64(1), countRows(t, db, &models.ActivityLog{}, "action = ? AND is_visible_to_user = ?", "document_uploaded", true))

	docs, err := svc.List(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	activity, err := NewActivityService(db).List(ctx, app.ID, true)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "document_uploaded", activity[0].Action)
}

func TestUploadRejects(t *testing.T) {
	_, db := newAppService(t)
	app := seedApp(t, db, models.Application{UserID: ptr("user-1")})

	_, err := NewDocumentService(db, nil, nil).Upload(ctx, "user-1", app.ID, upload("a.pdf"))
	assert.ErrorIs(t, err, ErrUnavailable)

	svc := NewDocumentService(db, &fakeObjectStore{}, nil)
	_, err = svc.Upload(ctx, "user-2", app.ID, upload("a.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)

	exe := upload("a.exe")
	exe.ContentType = "application/x-msdownload"
	_, err = svc.Upload(ctx, "user-1", app.ID, exe)
	assert.ErrorIs(t, err, ErrValidation)

	big := upload("big.pdf")
	big.Size = MaxDocumentSize + 1
	_, err = svc.Upload(ctx, "user-1", app.ID, big)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewDocumentService(db, &fakeObjectStore{putErr: errBoom}, nil).Upload(ctx, "user-1", app.ID, upload("a.pdf"))
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, countRows(t, db, &models.Document{}, ""))
}

func TestPurgeExpiredDocuments(t *testing.T) {
	_, db := newAppService(t)
	store := &fakeObjectStore{}
	svc := NewDocumentService(db, store, nil)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	old := models.Document{ApplicationID: "a", UserID: "u", FileName: "old.pdf", StorageKey: "a/u/old.pdf", CreatedAt: now.AddDate(0, 0, -40)}
	fresh := models.Document{ApplicationID: "a", UserID: "u", FileName: "new.pdf", StorageKey: "a/u/new.pdf", CreatedAt: now.AddDate(0, 0, -5)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	n, err := svc.PurgeExpired(ctx, 0, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.PurgeExpired(ctx, 30, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a/u/old.pdf"}, store.deleted)
	assert.Equal(t, int64(1), countRows(t, db, &models.Document{}, "id = ?", fresh.ID))
}
