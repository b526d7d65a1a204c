// chat_relay.go
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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/localnerve/autofin/internal/auth"
	"go.uber.org/zap"
)

// ErrUpstream means a remote collaborator answered with an error
var ErrUpstream = errors.New("upstream error")

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=8000"`
}

// ChatRequest is the conversation forwarded to the completion endpoint
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

// ChatReply is the assistant's answer
type ChatReply struct {
	Reply string `json:"reply"`
}

// ChatRelay forwards conversations to the configured completion endpoint
type ChatRelay struct {
	client *http.Client
	url    string
	apiKey string
	logger *zap.Logger
}

// NewChatRelay creates a ChatRelay. An empty url disables the relay.
func NewChatRelay(url, apiKey string, timeout time.Duration, logger *zap.Logger) *ChatRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatRelay{
		client: &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
		logger: logger,
	}
}

type completionRequest struct {
	Messages []ChatMessage `json:"messages"`
	UserID   string        `json:"user"`
	UserRole string        `json:"user_role"`
}

// completionResponse accepts both a plain reply and the choices shape of
// chat completion APIs
type completionResponse struct {
	Reply   string `json:"reply"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Relay sends the conversation and returns the assistant's reply
func (r *ChatRelay) Relay(ctx context.Context, actor auth.Actor, req ChatRequest) (*ChatReply, error) {
	if r.url == "" {
		return nil, fmt.Errorf("chat relay: %w", ErrUnavailable)
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(completionRequest{
		Messages: req.Messages,
		UserID:   actor.UserID,
		UserRole: actor.Role.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat relay: %w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("chat endpoint error",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("chat relay: %w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("chat relay: %w: %v", ErrUpstream, err)
	}

	reply := out.Reply
	if reply == "" && len(out.Choices) > 0 {
		reply = out.Choices[0].Message.Content
	}
	if reply == "" {
		return nil, fmt.Errorf("chat relay: %w: empty reply", ErrUpstream)
	}

	r.logger.Debug("chat relayed",
		zap.String("userID", actor.UserID),
		zap.Int("turns", len(req.Messages)),
		zap.Duration("elapsed", time.Since(start)))

	return &ChatReply{Reply: reply}, nil
}
