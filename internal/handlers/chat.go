// chat.go
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
)

// ChatHandler relays assistant conversations
type ChatHandler struct {
	Relay *services.ChatRelay
}

// Chat handles POST /api/chat
// @Summary Ask the assistant
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body services.ChatRequest true "Conversation"
// @Success 200 {object} services.ChatReply
// @Failure 502 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req services.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidInput(c, "chat")
	}
	reply, err := h.Relay.Relay(c.UserContext(), actor, req)
	if err != nil {
		return serviceError(c, err, "chat")
	}
	return c.Status(fiber.StatusOK).JSON(reply)
}
