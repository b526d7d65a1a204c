// embed.go
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

// Package data embeds the database bootstrap scripts used by the dev stack.
package data

import (
	_ "embed"
)

//go:embed initdb/mariadb/001-ddl-users.sql
var InitdbMariaDBUsers string

//go:embed initdb/mariadb/002-ddl-privileges.sql
var InitdbMariaDBPrivileges string

//go:embed initdb/postgres/001-ddl-users.sql
var InitdbPostgresUsers string

//go:embed initdb/postgres/002-ddl-privileges.sql
var InitdbPostgresPrivileges string
