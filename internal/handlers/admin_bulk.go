// admin_bulk.go
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
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/services"
	"go.uber.org/zap"
)

type bulkStatusBody struct {
	idList
	Status string `json:"status"`
}

type bulkNotifyBody struct {
	idList
	services.BulkNotice
}

// bulkResponse reports a bulk action
func bulkResponse(c *fiber.Ctx, res services.BulkResult) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"updated":  res.Updated,
		"notified": res.Notified,
		"deleted":  res.Deleted,
		"missing":  res.Missing,
	})
}

// BulkDelete handles POST /api/admin/applications/bulk/delete
// @Summary Delete applications
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body idList true "Selected application IDs"
// @Success 200 {object} services.BulkResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/bulk/delete [post]
func (h *AdminHandler) BulkDelete(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body idList
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "bulk")
	}
	res, err := h.Apps.BulkDelete(c.UserContext(), actor.UserID, body.IDs.Slice())
	if err != nil {
		return serviceError(c, err, "bulk")
	}
	h.Logger.Info("bulk delete", zap.String("actorID", actor.UserID), zap.Int("deleted", res.Deleted))
	return bulkResponse(c, res)
}

// BulkStatus handles POST /api/admin/applications/bulk/status
// @Summary Change status of applications
// @Description One activity entry and one applicant notification per application
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body bulkStatusBody true "Selection and target status"
// @Success 200 {object} services.BulkResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/bulk/status [post]
func (h *AdminHandler) BulkStatus(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body bulkStatusBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "bulk")
	}
	res, err := h.Apps.BulkUpdateStatus(c.UserContext(), actor.UserID, body.IDs.Slice(), body.Status)
	if err != nil {
		return serviceError(c, err, "bulk")
	}
	h.Logger.Info("bulk status change",
		zap.String("actorID", actor.UserID),
		zap.String("status", body.Status),
		zap.Int("updated", res.Updated))
	return bulkResponse(c, res)
}

// BulkNotify handles POST /api/admin/applications/bulk/notify
// @Summary Notify applicants
// @Description Unclaimed applications are skipped
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body bulkNotifyBody true "Selection and notice"
// @Success 200 {object} services.BulkResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/bulk/notify [post]
func (h *AdminHandler) BulkNotify(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body bulkNotifyBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "bulk")
	}
	res, err := h.Apps.BulkNotify(c.UserContext(), actor.UserID, body.IDs.Slice(), body.BulkNotice)
	if err != nil {
		return serviceError(c, err, "bulk")
	}
	return bulkResponse(c, res)
}

// BulkExport handles POST /api/admin/applications/bulk/export
// @Summary Export applications as CSV
// @Tags Admin
// @Accept json
// @Produce text/csv
// @Param body body idList true "Selected application IDs"
// @Success 200 {file} file
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/applications/bulk/export [post]
func (h *AdminHandler) BulkExport(c *fiber.Ctx) error {
	var body idList
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "bulk")
	}

	var buf bytes.Buffer
	n, err := h.Apps.Export(c.UserContext(), body.IDs.Slice(), &buf)
	if err != nil {
		return serviceError(c, err, "bulk")
	}

	name := fmt.Sprintf("applications-%s.csv", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Set("X-Export-Count", fmt.Sprintf("%d", n))
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
