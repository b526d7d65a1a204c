// sql.go
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

package devstack

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// executeSQL runs each statement of script in order
func executeSQL(ctx context.Context, db *sql.DB, script string) error {
	for _, q := range splitStatements(script) {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, q)
		}
	}
	return nil
}

// splitStatements drops line comments and splits script on semicolons.
// Lines are joined with a space so statements may span lines.
func splitStatements(script string) []string {
	lines := strings.Split(script, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		kept = append(kept, excludeComment(l))
	}

	var out []string
	for _, q := range strings.Split(strings.Join(kept, " "), ";") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// excludeComment strips a trailing -- comment that is not inside quotes
func excludeComment(line string) string {
	var kept strings.Builder
	rest := line

	for len(rest) > 0 {
		di := indexOr(rest, `"`)
		si := indexOr(rest, "'")
		ci := indexOr(rest, "--")

		switch {
		case ci < di && ci < si:
			return kept.String() + rest[:ci]
		case di < si && di < ci:
			kept.WriteString(rest[:di+1])
			rest = rest[di+1:]
			end := strings.Index(rest, `"`)
			if end < 0 {
				return kept.String() + rest
			}
			kept.WriteString(rest[:end+1])
			rest = rest[end+1:]
		case si < di && si < ci:
			kept.WriteString(rest[:si+1])
			rest = rest[si+1:]
			end := strings.Index(rest, "'")
			if end < 0 {
				return kept.String() + rest
			}
			kept.WriteString(rest[:end+1])
			rest = rest[end+1:]
		default:
			return kept.String() + rest
		}
	}
	return kept.String()
}

func indexOr(s, sub string) int {
	if i := strings.Index(s, sub); i >= 0 {
		return i
	}
	return len(s) + 1
}
