// config.go
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           string
	PublicURL      string
	RequestTimeout time.Duration
	PageSize       int

	// Logging
	LogLevel  string
	LogFormat string

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlserver
	DBHost               string
	DBPort               string
	DBDatabase           string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int
	DBUser               string
	DBPassword           string
	DBConnectionLimit    int

	// Authorizer configuration (service base URL and public client key)
	AuthzURL      string
	AuthzClientID string

	// Bearer tokens on privileged endpoints
	JWTSecret string

	// Realtime change feed
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RealtimeCoalesce time.Duration

	// AWS
	AWSRegion string
	S3Bucket  string
	SESFrom   string

	// Outbox worker
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// Chatbot relay
	ChatbotURL     string
	ChatbotAPIKey  string
	ChatbotTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		PublicURL:            strings.TrimSuffix(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		PageSize:             getEnvAsInt("PAGE_SIZE", 20),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		DBType:               getEnv("DB_TYPE", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBDatabase:           getEnv("DB_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		RealtimeCoalesce:     getEnvAsDuration("REALTIME_COALESCE", 250*time.Millisecond),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		SESFrom:              getEnv("SES_FROM", ""),
		OutboxPollInterval:   getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:      getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		ChatbotURL:           getEnv("CHATBOT_URL", ""),
		ChatbotAPIKey:        getEnv("CHATBOT_API_KEY", ""),
		ChatbotTimeout:       getEnvAsDuration("CHATBOT_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required fields
func (cfg *Config) Validate() error {
	if cfg.AuthzURL == "" {
		return fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	// sign-in hands back the Authorizer access token, which the server
	// verifies as a bearer token with this shared secret
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	if cfg.IsSQLite() {
		return nil
	}
	if cfg.DBAppUser == "" {
		return fmt.Errorf("DB_APP_USER is required")
	}
	if cfg.DBUser == "" {
		return fmt.Errorf("DB_USER is required")
	}
	return nil
}

// IsSQLite reports whether the configured database is a SQLite file
func (cfg *Config) IsSQLite() bool {
	return cfg.DBType == "sqlite"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("250ms", "10s")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
