// delivery_service_test.go
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
	"sync"
	"testing"

	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/notify"
	"github.com/localnerve/autofin/internal/realtime"
	"github.com/localnerve/autofin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, c realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, c)
	return nil
}

type recordingMailer struct {
	sent []notify.Email
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg notify.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func outboxEvent(t *testing.T, eventType string, payload interface{}) *models.OutboxEvent {
	t.Helper()
	body, err := models.NewJSON(payload)
	require.NoError(t, err)
	return &models.OutboxEvent{EventType: eventType, Payload: body}
}

func TestDeliverStatusChange(t *testing.T) {
	pub := &recordingPublisher{}
	mailer := &recordingMailer{}
	d := NewDeliveryService(pub, mailer, nil, "https://autofin.test/", nil)

	event := outboxEvent(t, models.EventApplicationStatusChanged, StatusChangedPayload{
		ApplicationID: "app-1",
		From:          "submitted",
		To:            "pre_approved",
		Stage:         4,
		UserID:        ptr("user-1"),
		DealerID:      ptr("dealer-1"),
		Email:         "ana@example.com",
		FirstName:     "Ana",
	})
	require.NoError(t, d.Handlers()[event.EventType](ctx, event))

	require.Len(t, pub.changes, 2)
	assert.Equal(t, realtime.TableApplications, pub.changes[0].Table)
	assert.Equal(t, []string{"user-1"}, pub.changes[0].UserIDs)
	assert.Equal(t, []string{"dealer-1"}, pub.changes[0].DealerIDs)
	assert.Equal(t, realtime.TableNotifications, pub.changes[1].Table)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Text, "https://autofin.test/dashboard")
}

func TestDeliverHonorsEmailSettings(t *testing.T) {
	db := testutil.NewDB(t)
	settings := NewSettingsService(db, nil)
	cfg := DefaultSettings()
	cfg.Notifications = NotificationSettings{EmailOnStatusChange: false, EmailOnNewApplication: true}
	_, err := settings.Save(ctx, "admin-1", cfg)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	mailer := &recordingMailer{}
	d := NewDeliveryService(pub, mailer, settings, "", nil)
	handlers := d.Handlers()

	status := outboxEvent(t, models.EventApplicationStatusChanged, StatusChangedPayload{ApplicationID: "a", To: "finalized", Email: "a@example.com"})
	require.NoError(t, handlers[status.EventType](ctx, status))
	assert.Empty(t, mailer.sent)

	inserted := outboxEvent(t, models.EventApplicationsChanged, ApplicationsChangedPayload{Op: "insert", IDs: []string{"a"}, Email: "a@example.com", FirstName: "Ana"})
	require.NoError(t, handlers[inserted.EventType](ctx, inserted))
	require.Len(t, mailer.sent, 1)

	updated := outboxEvent(t, models.EventApplicationsChanged, ApplicationsChangedPayload{Op: "update", IDs: []string{"a"}})
	require.NoError(t, handlers[updated.EventType](ctx, updated))
	assert.Len(t, mailer.sent, 1)
	assert.Len(t, pub.changes, 3)
}

func TestDeliverReportsMailFailure(t *testing.T) {
	d := NewDeliveryService(nil, &recordingMailer{err: errBoom}, nil, "", nil)
	event := outboxEvent(t, models.EventApplicationStatusChanged, StatusChangedPayload{ApplicationID: "a", To: "finalized", Email: "a@example.com"})

	assert.ErrorIs(t, d.Handlers()[event.EventType](ctx, event), errBoom)
}

func TestDeliverEmailsWhenPublishFails(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDeliveryService(&recordingPublisher{err: errBoom}, mailer, nil, "", nil)
	handlers := d.Handlers()

	status := outboxEvent(t, models.EventApplicationStatusChanged, StatusChangedPayload{ApplicationID: "a", To: "finalized", Email: "a@example.com"})
	require.NoError(t, handlers[status.EventType](ctx, status))
	require.Len(t, mailer.sent, 1)

	// nothing to email, so the event is retried for the publish alone
	updated := outboxEvent(t, models.EventApplicationsChanged, ApplicationsChangedPayload{Op: "update", IDs: []string{"a"}})
	assert.ErrorIs(t, handlers[updated.EventType](ctx, updated), errBoom)
	assert.Len(t, mailer.sent, 1)
}

func TestDeliverNotificationCreated(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDeliveryService(pub, nil, nil, "", nil)
	handler := d.Handlers()[models.EventNotificationCreated]

	require.NoError(t, handler(ctx, outboxEvent(t, models.EventNotificationCreated, NotificationsCreatedPayload{})))
	assert.Empty(t, pub.changes)

	require.NoError(t, handler(ctx, outboxEvent(t, models.EventNotificationCreated, NotificationsCreatedPayload{UserIDs: []string{"u1", "u2"}})))
	require.Len(t, pub.changes, 1)
	assert.Equal(t, []string{"u1", "u2"}, pub.changes[0].UserIDs)

	bad := &models.OutboxEvent{EventType: models.EventNotificationCreated, Payload: models.JSON{JSON: []byte("{")}}
	assert.Error(t, handler(ctx, bad))
}
