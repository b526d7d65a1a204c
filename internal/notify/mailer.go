// mailer.go
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

// Package notify sends applicant email.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Email is one outbound message
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SESService is the subset of the SES client used here
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES
type SESMailer struct {
	client SESService
	from   string
}

// NewSESMailer loads the default AWS configuration for region
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	if from == "" {
		return nil, errors.New("ses sender address is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESMailerWithClient(ses.NewFromConfig(cfg), from), nil
}

// NewSESMailerWithClient wraps an existing client
func NewSESMailerWithClient(client SESService, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

// Send implements Mailer
func (m *SESMailer) Send(ctx context.Context, msg Email) error {
	if msg.To == "" {
		return errors.New("email recipient is required")
	}

	body := &types.Body{Text: &types.Content{Data: aws.String(msg.Text)}}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML)}
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer writes email to the log. It stands in when SES is not configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer
func (m *LogMailer) Send(ctx context.Context, msg Email) error {
	m.logger.Info("email not sent, no mailer configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
