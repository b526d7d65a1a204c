// customer.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/middleware"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// CustomerHandler serves the customer dashboard. Every lookup is scoped to
// the caller's own applications.
type CustomerHandler struct {
	Apps          *services.ApplicationService
	Documents     *services.DocumentService
	Notifications *services.NotificationService
	Activity      *services.ActivityService
	Messages      *services.MessageService
	Logger        *zap.Logger
}

// Submit handles POST /api/applications
// @Summary Submit an application
// @Description Anonymous submissions are claimed later by signing in with the same email
// @Tags Customer
// @Accept json
// @Produce json
// @Param body body services.ApplicationInput true "Application"
// @Success 201 {object} models.Application
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /applications [post]
func (h *CustomerHandler) Submit(c *fiber.Ctx) error {
	var in services.ApplicationInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "submit")
	}

	var userID *string
	if actor, ok := middleware.ActorFrom(c); ok && actor.Role == auth.RoleCustomer {
		userID = &actor.UserID
	}

	app, err := h.Apps.Submit(c.UserContext(), userID, in)
	if err != nil {
		return serviceError(c, err, "submit")
	}

	h.Logger.Info("application submitted",
		zap.String("applicationID", app.ID),
		zap.Bool("claimed", userID != nil),
		zap.String("status", app.Status))

	return c.Status(fiber.StatusCreated).JSON(app)
}

// List handles GET /api/me/applications
// @Summary My applications
// @Tags Customer
// @Produce json
// @Success 200 {array} models.Application
// @Security CookieAuth
// @Router /me/applications [get]
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	apps, err := h.Apps.ListForUser(c.UserContext(), actor.UserID)
	if err != nil {
		return serviceError(c, err, "applications")
	}
	return c.Status(fiber.StatusOK).JSON(apps)
}

// Claim handles POST /api/me/applications/claim
// @Summary Claim applications
// @Description Attach unclaimed applications submitted with the session email
// @Tags Customer
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /me/applications/claim [post]
func (h *CustomerHandler) Claim(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	claimed, err := h.Apps.Claim(c.UserContext(), actor.Session)
	if err != nil {
		return serviceError(c, err, "claim")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":           true,
		"claimed":      len(claimed),
		"applications": claimed,
	})
}

// Get handles GET /api/me/applications/:id
// @Summary One of my applications
// @Tags Customer
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /me/applications/{id} [get]
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	app, err := h.Apps.GetForUser(c.UserContext(), actor.UserID, c.Params("id"))
	if err != nil {
		return serviceError(c, err, "applications")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// Update handles PATCH /api/me/applications/:id
// @Summary Edit my application
// @Description Profile fields only. Status and stage are never changed here.
// @Tags Customer
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body services.ProfileUpdate true "Changed fields"
// @Success 200 {object} models.Application
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /me/applications/{id} [patch]
func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var upd services.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return invalidInput(c, "applications")
	}
	app, err := h.Apps.UpdateProfile(c.UserContext(), actor.UserID, c.Params("id"), upd)
	if err != nil {
		return serviceError(c, err, "applications")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// owned confirms the caller owns the application named by the id param
func (h *CustomerHandler) owned(c *fiber.Ctx) (auth.Actor, string, error) {
	actor, err := actorOf(c)
	if err != nil {
		return actor, "", err
	}
	id := c.Params("id")
	if _, err := h.Apps.GetForUser(c.UserContext(), actor.UserID, id); err != nil {
		return actor, "", err
	}
	return actor, id, nil
}

// ListDocuments handles GET /api/me/applications/:id/documents
// @Summary My documents
// @Tags Customer
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.Document
// @Security CookieAuth
// @Router /me/applications/{id}/documents [get]
func (h *CustomerHandler) ListDocuments(c *fiber.Ctx) error {
	_, id, err := h.owned(c)
	if err != nil {
		return serviceError(c, err, "documents")
	}
	docs, err := h.Documents.List(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "documents")
	}
	return c.Status(fiber.StatusOK).JSON(docs)
}

// UploadDocument handles POST /api/me/applications/:id/documents (multipart "file")
// @Summary Upload a document
// @Tags Customer
// @Accept mpfd
// @Produce json
// @Param id path string true "Application ID"
// @Param file formData file true "Document"
// @Param document_type formData string false "Document type"
// @Success 201 {object} models.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /me/applications/{id}/documents [post]
func (h *CustomerHandler) UploadDocument(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return utils.ValidationErrorResponse(c, map[string]string{"file": "is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return invalidInput(c, "documents")
	}
	defer file.Close()

	doc, err := h.Documents.Upload(c.UserContext(), actor.UserID, c.Params("id"), services.UploadInput{
		DocumentType: c.FormValue("document_type", "other"),
		FileName:     fh.Filename,
		ContentType:  fh.Header.Get(fiber.HeaderContentType),
		Size:         fh.Size,
		Body:         file,
	})
	if err != nil {
		return serviceError(c, err, "documents")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// ListActivity handles GET /api/me/applications/:id/activity
// @Summary My application history
// @Description Entries marked visible to the applicant
// @Tags Customer
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.ActivityLog
// @Security CookieAuth
// @Router /me/applications/{id}/activity [get]
func (h *CustomerHandler) ListActivity(c *fiber.Ctx) error {
	_, id, err := h.owned(c)
	if err != nil {
		return serviceError(c, err, "activity")
	}
	logs, err := h.Activity.List(c.UserContext(), id, true)
	if err != nil {
		return serviceError(c, err, "activity")
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}

// Thread handles GET /api/me/applications/:id/messages
// @Summary Message thread
// @Tags Customer
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.Message
// @Security CookieAuth
// @Router /me/applications/{id}/messages [get]
func (h *CustomerHandler) Thread(c *fiber.Ctx) error {
	actor, id, err := h.owned(c)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	msgs, err := h.Messages.Thread(c.UserContext(), id, actor.Role)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	return c.Status(fiber.StatusOK).JSON(msgs)
}

// Send handles POST /api/me/applications/:id/messages
// @Summary Message staff
// @Tags Customer
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body services.MessageInput true "Message"
// @Success 201 {object} models.Message
// @Security CookieAuth
// @Router /me/applications/{id}/messages [post]
func (h *CustomerHandler) Send(c *fiber.Ctx) error {
	actor, id, err := h.owned(c)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	var in services.MessageInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "messages")
	}
	msg, err := h.Messages.Send(c.UserContext(), actor.UserID, actor.Role, id, in)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListNotifications handles GET /api/me/notifications?unread=true&limit=50
// @Summary My notifications
// @Tags Customer
// @Produce json
// @Param unread query bool false "Unread only"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Notification
// @Security CookieAuth
// @Router /me/notifications [get]
func (h *CustomerHandler) ListNotifications(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	unread := c.QueryBool("unread", false)
	items, err := h.Notifications.List(c.UserContext(), actor.UserID, unread, queryInt(c, "limit", 50))
	if err != nil {
		return serviceError(c, err, "notifications")
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

// UnreadCount handles GET /api/me/notifications/unread
// @Summary Unread notification count
// @Tags Customer
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /me/notifications/unread [get]
func (h *CustomerHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	n, err := h.Notifications.UnreadCount(c.UserContext(), actor.UserID)
	if err != nil {
		return serviceError(c, err, "notifications")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"unread": n})
}

// MarkRead handles POST /api/me/notifications/:id/read
// @Summary Mark a notification read
// @Tags Customer
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.Notification
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /me/notifications/{id}/read [post]
func (h *CustomerHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathUint64(c, "id")
	if err != nil {
		return serviceError(c, err, "notifications")
	}
	n, err := h.Notifications.MarkRead(c.UserContext(), actor.UserID, id)
	if err != nil {
		return serviceError(c, err, "notifications")
	}
	return c.Status(fiber.StatusOK).JSON(n)
}

// MarkAllRead handles POST /api/me/notifications/read-all
// @Summary Mark all notifications read
// @Tags Customer
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Security CookieAuth
// @Router /me/notifications/read-all [post]
func (h *CustomerHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	n, err := h.Notifications.MarkAllRead(c.UserContext(), actor.UserID)
	if err != nil {
		return serviceError(c, err, "notifications")
	}
	h.Logger.Debug("notifications read", zap.String("userID", actor.UserID), zap.Int64("count", n))
	return utils.MutationSuccessResponse(c, 0, n)
}
