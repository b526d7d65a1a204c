// main.go
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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/database"
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/logger"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/services"
)

// listapps prints every application record. Diagnostic only.
func main() {
	format := flag.String("format", "table", "output format: table or json")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New("warn", cfg.LogFormat)
	defer zlog.Sync()

	appDB, err := database.Connect(cfg, zlog)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(appDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	apps, err := services.NewApplicationService(appDB, zlog).All(ctx)
	if err != nil {
		log.Fatalf("Failed to list applications: %v", err)
	}

	if err := write(os.Stdout, *format, apps); err != nil {
		log.Fatalf("Failed to print applications: %v", err)
	}
}

func write(w io.Writer, format string, apps []models.Application) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(apps)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS\tSTAGE\tCREDIT\tCREATED")
		drifted := 0
		for i := range apps {
			a := &apps[i]
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%d\t%s\n",
				a.ID, a.FirstName, a.LastName, a.Email, a.Status, stage(a),
				a.CreditScore, a.CreatedAt.UTC().Format(time.RFC3339))
			if !lifecycle.Consistent(a) {
				drifted++
			}
		}
		fmt.Fprintf(tw, "\n%d applications\n", len(apps))
		if drifted > 0 {
			fmt.Fprintf(tw, "%d with stage out of step with status\n", drifted)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q", format)
}

// stage renders the pipeline position, flagging rows whose stage disagrees with status
func stage(a *models.Application) string {
	pos := fmt.Sprintf("%d/%d", a.CurrentStage, len(lifecycle.Pipeline))
	if lifecycle.Consistent(a) {
		return pos
	}
	if implied, ok := lifecycle.StatusForStage(a.CurrentStage); ok {
		return fmt.Sprintf("%s !%s", pos, implied)
	}
	return pos + " !"
}
