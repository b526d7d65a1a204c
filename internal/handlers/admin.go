// admin.go
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
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/types"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// AdminHandler serves the admin console over every application
type AdminHandler struct {
	Apps      *services.ApplicationService
	Flags     *services.FlagService
	Messages  *services.MessageService
	Activity  *services.ActivityService
	Documents *services.DocumentService
	Settings  *services.SettingsService
	Logger    *zap.Logger
}

// adminUpdateBody accepts the version as a number or numeric string
type adminUpdateBody struct {
	services.AdminUpdate
	Version *types.FlexUint64 `json:"version"`
}

type statusBody struct {
	Status  string            `json:"status"`
	Note    string            `json:"note"`
	Version *types.FlexUint64 `json:"version"`
}

type dealerBody struct {
	DealerID string `json:"dealer_id"`
}

// searchFilters reads the admin list filters from the query string
func searchFilters(c *fiber.Ctx) (services.SearchFilters, error) {
	f := services.SearchFilters{
		Query:            c.Query("q"),
		Status:           c.Query("status"),
		EmploymentStatus: c.Query("employment_status"),
		Page:             queryInt(c, "page", 1),
	}
	var err error
	if f.CreatedFrom, err = queryTime(c, "created_from", false); err != nil {
		return f, err
	}
	if f.CreatedTo, err = queryTime(c, "created_to", true); err != nil {
		return f, err
	}
	if f.MinCreditScore, err = queryIntPtr(c, "min_credit_score"); err != nil {
		return f, err
	}
	if f.MaxCreditScore, err = queryIntPtr(c, "max_credit_score"); err != nil {
		return f, err
	}
	return f, nil
}

// Search handles GET /api/admin/applications
// @Summary Search applications
// @Description Text search over name, email and phone, an exact id match for canonical UUIDs, AND-ed filters, newest first
// @Tags Admin
// @Produce json
// @Param q query string false "Search text or application ID"
// @Param status query string false "Status"
// @Param employment_status query string false "Employment status"
// @Param created_from query string false "Created on or after (YYYY-MM-DD or RFC 3339)"
// @Param created_to query string false "Created on or before (YYYY-MM-DD or RFC 3339)"
// @Param min_credit_score query int false "Minimum credit score"
// @Param max_credit_score query int false "Maximum credit score"
// @Param page query int false "Page number"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications [get]
func (h *AdminHandler) Search(c *fiber.Ctx) error {
	f, err := searchFilters(c)
	if err != nil {
		return serviceError(c, err, "search")
	}
	page, err := h.Apps.Search(c.UserContext(), f)
	if err != nil {
		return serviceError(c, err, "search")
	}
	return utils.PageResponse(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /api/admin/applications/:id
// @Summary Get an application
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id} [get]
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	app, err := h.Apps.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "applications")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// Update handles PUT /api/admin/applications/:id
// @Summary Edit an application
// @Description Any field. A status change runs the lifecycle transition with its side effects.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body adminUpdateBody true "Changed fields"
// @Success 200 {object} models.Application
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id} [put]
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body adminUpdateBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "applications")
	}
	upd := body.AdminUpdate
	upd.Version = versionPtr(body.Version)

	app, err := h.Apps.AdminUpdate(c.UserContext(), actor.UserID, c.Params("id"), upd)
	if err != nil {
		return serviceError(c, err, "applications")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// Delete handles DELETE /api/admin/applications/:id
// @Summary Delete an application
// @Description Removes the application with its documents, flags, messages and history
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id} [delete]
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if err := h.Apps.Delete(c.UserContext(), actor.UserID, c.Params("id")); err != nil {
		return serviceError(c, err, "applications")
	}
	return utils.MutationSuccessResponse(c, 0, 1)
}

// UpdateStatus handles POST /api/admin/applications/:id/status
// @Summary Change status
// @Description Moves the application to status and its stage. Writes the activity entry, the applicant notification and the email event together.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body statusBody true "Target status"
// @Success 200 {object} models.Application
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id}/status [post]
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body statusBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "status")
	}

	app, err := h.Apps.UpdateStatus(c.UserContext(), actor.UserID, c.Params("id"), body.Status, body.Note, versionPtr(body.Version))
	if err != nil {
		return serviceError(c, err, "status")
	}

	h.Logger.Info("application status changed",
		zap.String("applicationID", app.ID),
		zap.String("status", app.Status),
		zap.String("actorID", actor.UserID))

	return c.Status(fiber.StatusOK).JSON(app)
}

// AssignDealer handles POST /api/admin/applications/:id/dealer
// @Summary Assign a dealer
// @Description An empty dealer_id unassigns
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body dealerBody true "Dealer"
// @Success 200 {object} models.Application
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id}/dealer [post]
func (h *AdminHandler) AssignDealer(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body dealerBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "dealer")
	}
	app, err := h.Apps.AssignDealer(c.UserContext(), actor.UserID, c.Params("id"), body.DealerID)
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// ListActivity handles GET /api/admin/applications/:id/activity
// @Summary Full application history
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.ActivityLog
// @Security CookieAuth
// @Router /admin/applications/{id}/activity [get]
func (h *AdminHandler) ListActivity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.Apps.Get(c.UserContext(), id); err != nil {
		return serviceError(c, err, "activity")
	}
	logs, err := h.Activity.List(c.UserContext(), id, false)
	if err != nil {
		return serviceError(c, err, "activity")
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}

// ListDocuments handles GET /api/admin/applications/:id/documents
// @Summary Uploaded documents of any application
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.Document
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id}/documents [get]
func (h *AdminHandler) ListDocuments(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.Apps.Get(c.UserContext(), id); err != nil {
		return serviceError(c, err, "documents")
	}
	docs, err := h.Documents.List(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "documents")
	}
	return c.Status(fiber.StatusOK).JSON(docs)
}

// Thread handles GET /api/admin/applications/:id/messages
// @Summary Message thread
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.Message
// @Security CookieAuth
// @Router /admin/applications/{id}/messages [get]
func (h *AdminHandler) Thread(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if _, err := h.Apps.Get(c.UserContext(), id); err != nil {
		return serviceError(c, err, "messages")
	}
	msgs, err := h.Messages.Thread(c.UserContext(), id, actor.Role)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	return c.Status(fiber.StatusOK).JSON(msgs)
}

// Send handles POST /api/admin/applications/:id/messages
// @Summary Message the applicant
// @Description The applicant is notified when the application is claimed
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body services.MessageInput true "Message"
// @Success 201 {object} models.Message
// @Security CookieAuth
// @Router /admin/applications/{id}/messages [post]
func (h *AdminHandler) Send(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var in services.MessageInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "messages")
	}
	msg, err := h.Messages.Send(c.UserContext(), actor.UserID, actor.Role, c.Params("id"), in)
	if err != nil {
		return serviceError(c, err, "messages")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListFlags handles GET /api/admin/applications/:id/flags
// @Summary Flags on an application
// @Tags Admin
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.ApplicationFlag
// @Security CookieAuth
// @Router /admin/applications/{id}/flags [get]
func (h *AdminHandler) ListFlags(c *fiber.Ctx) error {
	flags, err := h.Flags.ListForApplication(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "flags")
	}
	return c.Status(fiber.StatusOK).JSON(flags)
}

// CreateFlag handles POST /api/admin/applications/:id/flags
// @Summary Raise a flag
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body services.FlagInput true "Flag"
// @Success 201 {object} models.ApplicationFlag
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/{id}/flags [post]
func (h *AdminHandler) CreateFlag(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var in services.FlagInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "flags")
	}
	flag, err := h.Flags.Create(c.UserContext(), actor.UserID, c.Params("id"), in)
	if err != nil {
		return serviceError(c, err, "flags")
	}
	return c.Status(fiber.StatusCreated).JSON(flag)
}

// TriageQueue handles GET /api/admin/flags?severity=&open=true&page=
// @Summary Triage queue
// @Tags Admin
// @Produce json
// @Param severity query string false "Severity"
// @Param open query bool false "Open flags only"
// @Param page query int false "Page number"
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /admin/flags [get]
func (h *AdminHandler) TriageQueue(c *fiber.Ctx) error {
	page, err := h.Flags.List(c.UserContext(), services.FlagFilters{
		Severity: c.Query("severity"),
		OpenOnly: c.QueryBool("open", false),
		Page:     queryInt(c, "page", 1),
	})
	if err != nil {
		return serviceError(c, err, "flags")
	}
	return utils.PageResponse(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ResolveFlag handles POST /api/admin/flags/:id/resolve
// @Summary Resolve a flag
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Flag ID"
// @Param body body services.FlagResolution false "Resolution note"
// @Success 200 {object} models.ApplicationFlag
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/flags/{id}/resolve [post]
func (h *AdminHandler) ResolveFlag(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathUint64(c, "id")
	if err != nil {
		return serviceError(c, err, "flags")
	}
	var in services.FlagResolution
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidInput(c, "flags")
		}
	}
	flag, err := h.Flags.Resolve(c.UserContext(), actor.UserID, id, in)
	if err != nil {
		return serviceError(c, err, "flags")
	}
	return c.Status(fiber.StatusOK).JSON(flag)
}

// GetSettings handles GET /api/admin/settings
// @Summary Settings panel
// @Tags Admin
// @Produce json
// @Success 200 {object} services.Settings
// @Security CookieAuth
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.Load(c.UserContext())
	if err != nil {
		return serviceError(c, err, "settings")
	}
	return c.Status(fiber.StatusOK).JSON(settings)
}

// PutSettings handles PUT /api/admin/settings
// @Summary Save the settings panel
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body services.Settings true "Settings"
// @Success 200 {object} services.Settings
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/settings [put]
func (h *AdminHandler) PutSettings(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var in services.Settings
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "settings")
	}
	saved, err := h.Settings.Save(c.UserContext(), actor.UserID, in)
	if err != nil {
		return serviceError(c, err, "settings")
	}
	h.Logger.Info("settings saved", zap.String("actorID", actor.UserID))
	return c.Status(fiber.StatusOK).JSON(saved)
}
