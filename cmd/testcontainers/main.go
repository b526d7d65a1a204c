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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/autofin/internal/devstack"
	"github.com/localnerve/autofin/internal/logger"
	"go.uber.org/zap"
)

const usage = `
Run the autofin dev stack with the environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	if showHelp {
		fmt.Print(usage)
		return
	}

	zlog := logger.New(os.Getenv("LOG_LEVEL"), "console")
	defer zlog.Sync()

	if envFilename != "" {
		zlog.Info("loading environment", zap.String("file", envFilename))
		if err := godotenv.Load(envFilename); err != nil {
			zlog.Fatal("failed to load environment variables", zap.Error(err))
		}
	} else {
		zlog.Info("no environment file specified, using current environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	stack, err := devstack.Start(ctx, devstack.OptionsFromEnv(), zlog)
	if err != nil {
		zlog.Fatal("failed to start dev stack", zap.Error(err))
	}
	fmt.Printf("BASE_URL=%s\nAUTHZ_URL=%s\n", stack.BaseURL, stack.AuthzURL)

	<-ctx.Done()
	zlog.Info("terminating dev stack")
	if err := stack.Terminate(context.Background()); err != nil {
		zlog.Error("terminate dev stack", zap.Error(err))
		os.Exit(1)
	}
}
