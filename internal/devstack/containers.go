// containers.go
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

// Package devstack runs the service and its dependencies in containers for
// local development and end to end runs. Settings come from the environment,
// usually loaded from a .env file.
package devstack

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/localnerve/autofin/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const (
	authzAlias = "authorizer"
	redisAlias = "redis"
	imageName  = "autofin-dev:latest"
)

// Options are the stack settings
type Options struct {
	DBType          string
	DBImage         string
	DBHost          string
	DBPort          string
	DBRootPassword  string
	Database        string
	AppUser         string
	AppPassword     string
	User            string
	Password        string
	AuthzImage      string
	AuthzPort       string
	AuthzDatabase   string
	AuthzClientID   string
	AuthzAdminKey   string
	RedisImage      string
	JWTSecret       string
	Port            string
	BuildContext    string
	Debug           bool
	StartupDeadline time.Duration
}

// OptionsFromEnv reads Options from the environment
func OptionsFromEnv() Options {
	return Options{
		DBType:          envOr("DB_TYPE", "postgres"),
		DBImage:         os.Getenv("DB_IMAGE"),
		DBHost:          envOr("DB_HOST", "db"),
		DBPort:          envOr("DB_PORT", "5432"),
		DBRootPassword:  os.Getenv("DB_ROOT_PASSWORD"),
		Database:        envOr("DB_DATABASE", "autofin"),
		AppUser:         os.Getenv("DB_APP_USER"),
		AppPassword:     os.Getenv("DB_APP_PASSWORD"),
		User:            os.Getenv("DB_USER"),
		Password:        os.Getenv("DB_PASSWORD"),
		AuthzImage:      os.Getenv("AUTHZ_IMAGE"),
		AuthzPort:       envOr("AUTHZ_PORT", "8080"),
		AuthzDatabase:   envOr("AUTHZ_DATABASE", "authorizer"),
		AuthzClientID:   os.Getenv("AUTHZ_CLIENT_ID"),
		AuthzAdminKey:   os.Getenv("AUTHZ_ADMIN_SECRET"),
		RedisImage:      os.Getenv("REDIS_IMAGE"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Port:            envOr("PORT", "3000"),
		BuildContext:    envOr("TESTCONTAINERS_BUILD_CONTEXT", "."),
		Debug:           os.Getenv("DEBUG_CONTAINER") == "true",
		StartupDeadline: 60 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Stack holds the running containers
type Stack struct {
	Network    *testcontainers.DockerNetwork
	DB         testcontainers.Container
	Authorizer testcontainers.Container
	Redis      testcontainers.Container
	App        testcontainers.Container
	Builder    testcontainers.Container

	// BaseURL is the host reachable address of the app
	BaseURL string
	// AuthzURL is the host reachable address of the Authorizer
	AuthzURL string

	logger *zap.Logger
}

// Terminate stops every started container and removes the network
func (s *Stack) Terminate(ctx context.Context) error {
	var errs []error
	for _, c := range []struct {
		name string
		c    testcontainers.Container
	}{
		{"app", s.App},
		{"app builder", s.Builder},
		{"redis", s.Redis},
		{"authorizer", s.Authorizer},
		{"database", s.DB},
	} {
		if c.c == nil {
			continue
		}
		if err := c.c.Terminate(ctx); err != nil {
			s.logger.Warn("terminate container", zap.String("container", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("terminate %s: %w", c.name, err))
		}
	}
	if s.Network != nil {
		if err := s.Network.Remove(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remove network: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start brings up the database, Authorizer, optional Redis and the app.
// On failure everything already started is terminated.
func Start(ctx context.Context, opts Options, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stack{logger: logger}

	fail := func(err error, msg string) (*Stack, error) {
		s.Terminate(context.Background())
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	nw, err := network.New(ctx)
	if err != nil {
		return fail(err, "create network")
	}
	s.Network = nw

	if err := s.startDB(ctx, opts); err != nil {
		return fail(err, "start database")
	}
	if err := s.startAuthorizer(ctx, opts); err != nil {
		return fail(err, "start authorizer")
	}
	if opts.RedisImage != "" {
		if err := s.startRedis(ctx, opts); err != nil {
			return fail(err, "start redis")
		}
	}
	if err := s.startApp(ctx, opts); err != nil {
		return fail(err, "start app")
	}

	logger.Info("dev stack started", zap.String("base_url", s.BaseURL), zap.String("authz_url", s.AuthzURL))
	return s, nil
}

func (s *Stack) startDB(ctx context.Context, opts Options) error {
	port, err := nat.NewPort("tcp", opts.DBPort)
	if err != nil {
		return err
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.DBImage,
			ExposedPorts: []string{string(port)},
			Env:          dbInitEnv(opts),
			WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(opts.StartupDeadline),
			Networks:     []string{s.Network.Name},
			NetworkAliases: map[string][]string{
				s.Network.Name: {opts.DBHost},
			},
		},
		Started: true,
	})
	if err != nil {
		return err
	}
	s.DB = c

	host, err := c.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return err
	}

	switch opts.DBType {
	case "postgres":
		return initPostgres(ctx, opts, host, mapped.Port())
	case "mysql", "mariadb":
		return initMySQL(ctx, opts, host, mapped.Port())
	}
	return fmt.Errorf("unsupported DB_TYPE %q", opts.DBType)
}

func dbInitEnv(opts Options) map[string]string {
	switch opts.DBType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": opts.AppPassword,
			"POSTGRES_USER":     opts.AppUser,
			"POSTGRES_DB":       opts.Database,
		}
	case "mariadb", "mysql":
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": opts.DBRootPassword,
			"MYSQL_DATABASE":      opts.Database,
		}
	}
	return nil
}

func initMySQL(ctx context.Context, opts Options, host, port string) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", opts.DBRootPassword, host, port))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := waitReady(ctx, db); err != nil {
		return err
	}
	for _, script := range []string{data.InitdbMariaDBUsers, data.InitdbMariaDBPrivileges} {
		if err := runScript(ctx, db, script, opts); err != nil {
			return err
		}
	}
	return nil
}

func initPostgres(ctx context.Context, opts Options, host, port string) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		opts.AppUser, opts.AppPassword, host, port, opts.Database)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := waitReady(ctx, db); err != nil {
		return err
	}
	for _, script := range []string{data.InitdbPostgresUsers, data.InitdbPostgresPrivileges} {
		if err := runScript(ctx, db, script, opts); err != nil {
			return err
		}
	}
	return nil
}

// waitReady pings until the server accepts connections, for up to 30s
func waitReady(ctx context.Context, db *sql.DB) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database not ready after 30 seconds: %w", err)
}

func runScript(ctx context.Context, db *sql.DB, script string, opts Options) error {
	rendered, err := render(script, opts)
	if err != nil {
		return err
	}
	return executeSQL(ctx, db, rendered)
}

// render fills the names and passwords of opts into a bootstrap script
func render(script string, opts Options) (string, error) {
	tmpl, err := template.New("initdb").Option("missingkey=error").Parse(script)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Stack) startAuthorizer(ctx context.Context, opts Options) error {
	port, err := nat.NewPort("tcp", opts.AuthzPort)
	if err != nil {
		return err
	}

	logLevel := "info"
	if opts.Debug {
		logLevel = "debug"
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.AuthzImage,
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     opts.AuthzClientID,
				"PORT":          opts.AuthzPort,
				"DATABASE_TYPE": opts.DBType,
				"DATABASE_NAME": opts.AuthzDatabase,
				"DATABASE_URL":  authzDatabaseURL(opts),
				"ADMIN_SECRET":  opts.AuthzAdminKey,
				"ROLES":         "admin,dealer,customer",
				"DEFAULT_ROLES": "customer",
				"JWT_SECRET":    opts.JWTSecret,
				"JWT_TYPE":      "HS256",
				"LOG_LEVEL":     logLevel,
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(opts.StartupDeadline),
			Networks:   []string{s.Network.Name},
			NetworkAliases: map[string][]string{
				s.Network.Name: {authzAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		return err
	}
	s.Authorizer = c

	host, _ := c.Host(ctx)
	mapped, _ := c.MappedPort(ctx, port)
	s.AuthzURL = fmt.Sprintf("http://%s:%s", host, mapped.Port())
	return nil
}

func authzDatabaseURL(opts Options) string {
	if opts.DBType == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			opts.AppUser, opts.AppPassword, opts.DBHost, opts.DBPort, opts.AuthzDatabase)
	}
	return fmt.Sprintf("root:%s@tcp(%s:%s)/%s", opts.DBRootPassword, opts.DBHost, opts.DBPort, opts.AuthzDatabase)
}

func (s *Stack) startRedis(ctx context.Context, opts Options) error {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(opts.StartupDeadline),
			Networks:     []string{s.Network.Name},
			NetworkAliases: map[string][]string{
				s.Network.Name: {redisAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		return err
	}
	s.Redis = c
	return nil
}

// appEnv is the environment of the app container
func appEnv(opts Options, withRedis bool) map[string]string {
	env := map[string]string{
		"DB_TYPE":         opts.DBType,
		"DB_HOST":         opts.DBHost,
		"DB_PORT":         opts.DBPort,
		"DB_DATABASE":     opts.Database,
		"DB_APP_USER":     opts.AppUser,
		"DB_APP_PASSWORD": opts.AppPassword,
		"DB_USER":         opts.User,
		"DB_PASSWORD":     opts.Password,
		"AUTHZ_URL":       fmt.Sprintf("http://%s:%s", authzAlias, opts.AuthzPort),
		"AUTHZ_CLIENT_ID": opts.AuthzClientID,
		"JWT_SECRET":      opts.JWTSecret,
		"PORT":            opts.Port,
		"LOG_FORMAT":      "json",
	}
	if withRedis {
		env["REDIS_ADDR"] = redisAlias + ":6379"
	}
	if opts.Debug {
		env["LOG_LEVEL"] = "debug"
	}
	return env
}

func (s *Stack) startApp(ctx context.Context, opts Options) error {
	port, err := nat.NewPort("tcp", opts.Port)
	if err != nil {
		return err
	}

	exposed := []string{string(port)}
	if opts.Debug {
		exposed = append(exposed, "2345/tcp")
	}

	var waitFor wait.Strategy = wait.ForHTTP("/health").WithPort(port).WithStartupTimeout(30 * time.Second)
	if opts.Debug {
		waitFor = wait.ForLog("API server listening at: [::]:2345").WithStartupTimeout(5 * time.Minute)
	}

	req := testcontainers.ContainerRequest{
		ExposedPorts: exposed,
		Env:          appEnv(opts, s.Redis != nil),
		HostConfigModifier: func(hc *container.HostConfig) {
			if !opts.Debug {
				return
			}
			hc.PortBindings = nat.PortMap{
				"2345/tcp": []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "2345"}},
			}
			hc.CapAdd = []string{"SYS_PTRACE"}
			hc.SecurityOpt = []string{"apparmor:unconfined"}
		},
		WaitingFor: waitFor,
		Networks:   []string{s.Network.Name},
	}
	if opts.Debug {
		req.Entrypoint = []string{
			"/usr/local/bin/dlv", "--listen=:2345", "--headless=true",
			"--api-version=2", "--accept-multiclient", "exec", "./autofin",
		}
	}

	exists, err := imageExists(ctx, imageName)
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	if exists {
		s.logger.Info("reusing image", zap.String("image", imageName))
		req.Image = imageName
	} else {
		s.logger.Info("building image", zap.String("image", imageName))
		if err := s.buildApp(ctx, opts, &req); err != nil {
			return err
		}
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}
	s.App = c

	host, _ := c.Host(ctx)
	mapped, _ := c.MappedPort(ctx, port)
	s.BaseURL = fmt.Sprintf("http://%s:%s", host, mapped.Port())
	return nil
}

// buildApp builds the builder stage, then points req at the runtime stage
func (s *Stack) buildApp(ctx context.Context, opts Options, req *testcontainers.ContainerRequest) error {
	session := uuid.New().String()
	args := map[string]*string{"RESOURCE_REAPER_SESSION_ID": &session}
	if opts.Debug {
		debug := "true"
		args["DEBUG"] = &debug
	}

	builder, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    opts.BuildContext,
				Dockerfile: "Dockerfile",
				Repo:       "autofin-dev-builder",
				Tag:        "latest",
				BuildArgs:  args,
				BuildOptionsModifier: func(o *build.ImageBuildOptions) {
					o.Target = "builder"
				},
				PrintBuildLog: opts.Debug,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("build builder stage: %w", err)
	}
	s.Builder = builder

	repo, tag, _ := strings.Cut(imageName, ":")
	req.FromDockerfile = testcontainers.FromDockerfile{
		Context:    opts.BuildContext,
		Dockerfile: "Dockerfile",
		Repo:       repo,
		Tag:        tag,
		KeepImage:  true,
		BuildArgs:  args,
		BuildOptionsModifier: func(o *build.ImageBuildOptions) {
			o.Target = "runtime"
		},
		PrintBuildLog: opts.Debug,
	}
	return nil
}

func imageExists(ctx context.Context, name string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == name {
				return true, nil
			}
		}
	}
	return false, nil
}
