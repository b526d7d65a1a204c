// connection.go
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

package database

import (
	"fmt"
	"time"

	mysqlcfg "github.com/go-sql-driver/mysql"
	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// credentials select one of the two database identities
type credentials struct {
	pool     string
	user     string
	password string
	limit    int
}

// Connect opens the service pool. It owns migrations, staff operations
// and the outbox worker.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return open(cfg, log, credentials{
		pool:     "service",
		user:     cfg.DBAppUser,
		password: cfg.DBAppPassword,
		limit:    cfg.DBAppConnectionLimit,
	})
}

// ConnectUser opens the restricted pool serving customer and dealer requests
func ConnectUser(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return open(cfg, log, credentials{
		pool:     "user",
		user:     cfg.DBUser,
		password: cfg.DBPassword,
		limit:    cfg.DBConnectionLimit,
	})
}

// Dialector builds the gorm dialector for the configured DB_TYPE
func Dialector(cfg *config.Config, user, password string) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := mysqlcfg.NewConfig()
		dsn.User = user
		dsn.Passwd = password
		dsn.Net = "tcp"
		dsn.Addr = cfg.DBHost + ":" + cfg.DBPort
		dsn.DBName = cfg.DBDatabase
		dsn.ParseTime = true
		dsn.Loc = time.UTC
		dsn.Params = map[string]string{"charset": "utf8mb4"}
		return mysql.Open(dsn.FormatDSN()), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			user,
			password,
			cfg.DBDatabase,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// DBDatabase is the file path; both pools share it
		return sqlite.Open(cfg.DBDatabase), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			user,
			password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBDatabase,
		)
		return sqlserver.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
}

func open(cfg *config.Config, log *zap.Logger, cred credentials) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dialector, err := Dialector(cfg, cred.user, cred.password)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cred.pool, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	limit := cred.limit
	if cfg.IsSQLite() || limit <= 0 {
		limit = 1
	}
	sqlDB.SetMaxOpenConns(limit)
	sqlDB.SetMaxIdleConns((limit + 1) / 2)

	log.Info("connected to database",
		zap.String("pool", cred.pool),
		zap.String("type", cfg.DBType),
		zap.String("database", cfg.DBDatabase),
		zap.Int("maxOpenConns", limit))

	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
