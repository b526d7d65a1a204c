// templates.go
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

package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var statusHTML = template.Must(template.New("status").Parse(
	`<p>Hi {{.FirstName}},</p>
<p>Your auto financing application is now <strong>{{.Label}}</strong> (step {{.Stage}} of 7).</p>
<p><a href="{{.DashboardURL}}">View your application</a></p>`))

// StatusChange is the data of a status change email
type StatusChange struct {
	FirstName    string
	Label        string
	Stage        int
	DashboardURL string
}

// StatusChangeEmail renders the status change message to to
func StatusChangeEmail(to string, data StatusChange) (Email, error) {
	if data.FirstName == "" {
		data.FirstName = "there"
	}

	var html bytes.Buffer
	if err := statusHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render status email: %w", err)
	}

	return Email{
		To:      to,
		Subject: "Application Status Updated",
		Text: fmt.Sprintf("Hi %s,\n\nYour auto financing application is now %s (step %d of 7).\n\nView it at %s\n",
			data.FirstName, data.Label, data.Stage, data.DashboardURL),
		HTML: html.String(),
	}, nil
}

// Received is the data of an application confirmation email
type Received struct {
	FirstName    string
	DashboardURL string
}

var receivedHTML = template.Must(template.New("received").Parse(
	`<p>Hi {{.FirstName}},</p>
<p>We received your auto financing application. Sign in with this email address to follow its progress.</p>
<p><a href="{{.DashboardURL}}">Go to your dashboard</a></p>`))

// ReceivedEmail renders the confirmation sent after a submission
func ReceivedEmail(to string, data Received) (Email, error) {
	if data.FirstName == "" {
		data.FirstName = "there"
	}

	var html bytes.Buffer
	if err := receivedHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render received email: %w", err)
	}

	return Email{
		To:      to,
		Subject: "Application Received",
		Text: fmt.Sprintf("Hi %s,\n\nWe received your auto financing application. Sign in with this email address to follow its progress at %s\n",
			data.FirstName, data.DashboardURL),
		HTML: html.String(),
	}, nil
}
