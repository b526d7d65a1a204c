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

package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingKicker struct {
	mu sync.Mutex
	n  int
}

func (k *countingKicker) Kick() {
	k.mu.Lock()
	k.n++
	k.mu.Unlock()
}

func (k *countingKicker) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.n
}

// seedApp inserts an application directly, bypassing Submit
func seedApp(t *testing.T, db *gorm.DB, app models.Application) models.Application {
	t.Helper()
	if app.FirstName == "" {
		app.FirstName = "Ana"
	}
	if app.LastName == "" {
		app.LastName = "Diaz"
	}
	if app.Email == "" {
		app.Email = "ana@example.com"
	}
	if app.Status == "" {
		lifecycle.Initialize(&app)
	} else {
		app.CurrentStage = lifecycle.Status(app.Status).Stage()
	}
	require.NoError(t, db.Create(&app).Error)
	return app
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func newAppService(t *testing.T, opts ...ApplicationOption) (*ApplicationService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewApplicationService(db, nil, opts...), db
}

func ptr[T any](v T) *T {
	return testutil.Ptr(v)
}

var ctx = context.Background()

// fixedClock returns a clock that advances one second per call
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func (f *fakeObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return "https://objects.test/" + key, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

var errBoom = errors.New("boom")
