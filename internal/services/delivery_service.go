// delivery_service.go
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
	"fmt"
	"strings"

	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/notify"
	"github.com/localnerve/autofin/internal/outbox"
	"github.com/localnerve/autofin/internal/realtime"
	"go.uber.org/zap"
)

// DeliveryService performs the side effects of outbox events: change feed
// publication and applicant email
type DeliveryService struct {
	publisher realtime.Publisher
	mailer    notify.Mailer
	settings  *SettingsService
	publicURL string
	logger    *zap.Logger
}

// NewDeliveryService creates a DeliveryService. settings may be nil, in
// which case the defaults apply.
func NewDeliveryService(publisher realtime.Publisher, mailer notify.Mailer, settings *SettingsService, publicURL string, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = notify.NewLogMailer(logger)
	}
	return &DeliveryService{
		publisher: publisher,
		mailer:    mailer,
		settings:  settings,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

// Handlers maps each event type to its delivery
func (d *DeliveryService) Handlers() map[string]outbox.Handler {
	return map[string]outbox.Handler{
		models.EventApplicationStatusChanged: d.statusChanged,
		models.EventApplicationsChanged:      d.applicationsChanged,
		models.EventNotificationCreated:      d.notificationCreated,
	}
}

func decode(event *models.OutboxEvent, v interface{}) error {
	if err := json.Unmarshal(event.Payload.JSON, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return nil
}

func (d *DeliveryService) loadSettings(ctx context.Context) Settings {
	if d.settings == nil {
		return DefaultSettings()
	}
	settings, err := d.settings.Load(ctx)
	if err != nil {
		d.logger.Warn("using default settings", zap.Error(err))
	}
	return settings
}

func (d *DeliveryService) publish(ctx context.Context, changes ...realtime.Change) error {
	if d.publisher == nil {
		return nil
	}
	for _, c := range changes {
		if err := d.publisher.Publish(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// published publishes changes and logs a failure. The email step of an event
// still runs, and the error is only returned when no email follows, so a
// retry never sends the same email twice.
func (d *DeliveryService) published(ctx context.Context, event *models.OutboxEvent, changes ...realtime.Change) error {
	err := d.publish(ctx, changes...)
	if err != nil {
		d.logger.Warn("failed to publish change",
			zap.String("event", event.EventType),
			zap.String("aggregate", event.AggregateID),
			zap.Error(err))
	}
	return err
}

func (d *DeliveryService) dashboardURL() string {
	return d.publicURL + auth.DashboardRoute
}

func (d *DeliveryService) statusChanged(ctx context.Context, event *models.OutboxEvent) error {
	var p StatusChangedPayload
	if err := decode(event, &p); err != nil {
		return err
	}

	change := realtime.Change{Table: realtime.TableApplications, Op: "update", IDs: []string{p.ApplicationID}}
	changes := []realtime.Change{change}
	if p.UserID != nil {
		changes[0].UserIDs = []string{*p.UserID}
		changes = append(changes, realtime.Change{Table: realtime.TableNotifications, Op: "insert", UserIDs: []string{*p.UserID}})
	}
	if p.DealerID != nil {
		changes[0].DealerIDs = []string{*p.DealerID}
	}
	pubErr := d.published(ctx, event, changes...)

	if p.Email == "" || !d.loadSettings(ctx).Notifications.EmailOnStatusChange {
		return pubErr
	}
	to := lifecycle.Status(p.To)
	msg, err := notify.StatusChangeEmail(p.Email, notify.StatusChange{
		FirstName:    p.FirstName,
		Label:        to.Label(),
		Stage:        to.Stage(),
		DashboardURL: d.dashboardURL(),
	})
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg)
}

func (d *DeliveryService) applicationsChanged(ctx context.Context, event *models.OutboxEvent) error {
	var p ApplicationsChangedPayload
	if err := decode(event, &p); err != nil {
		return err
	}

	pubErr := d.published(ctx, event, realtime.Change{
		Table:     realtime.TableApplications,
		Op:        p.Op,
		IDs:       p.IDs,
		UserIDs:   p.UserIDs,
		DealerIDs: p.DealerIDs,
	})

	if p.Op != "insert" || p.Email == "" || !d.loadSettings(ctx).Notifications.EmailOnNewApplication {
		return pubErr
	}
	msg, err := notify.ReceivedEmail(p.Email, notify.Received{FirstName: p.FirstName, DashboardURL: d.dashboardURL()})
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg)
}

func (d *DeliveryService) notificationCreated(ctx context.Context, event *models.OutboxEvent) error {
	var p NotificationsCreatedPayload
	if err := decode(event, &p); err != nil {
		return err
	}
	if len(p.UserIDs) == 0 {
		return nil
	}
	return d.publish(ctx, realtime.Change{Table: realtime.TableNotifications, Op: "insert", UserIDs: p.UserIDs})
}
