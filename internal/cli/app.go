package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/migrate"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository/postgres"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/deploy"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/logicfile"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/project"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/release"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/tag"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/version"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/config"
)

// app bundles a database connection and every catalogue service a
// subcommand might need. Every command constructs its own app, uses it,
// and closes it — pandauractl is a one-shot tool, not a long-lived
// process, so there is no benefit to a shared connection pool across
// commands.
type app struct {
	pool *pgxpool.Pool

	projects  project.Service
	versions  version.Service
	tags      tag.Service
	logicFiles logicfile.Service
	releases  release.Service
	deploys   deploy.Service
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	if opts.DatabaseURL == "" {
		return nil, NewExitError(ExitCommandError, "no database URL configured: set --database-url or DATABASE_URL")
	}

	pool, err := pgxpool.New(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, WrapExitError(ExitCommandError, "ping database", err)
	}

	repo := postgres.New(pool)
	logger := slog.Default()

	tagSvc, err := tag.New(repo, repo, logger)
	if err != nil {
		pool.Close()
		return nil, WrapExitError(ExitCommandError, "construct tag service", err)
	}

	versionSvc := version.New(repo, repo, repo, logger, config.Load())
	logicFileSvc := logicfile.New(repo, logger)
	releaseSvc := release.New(repo, repo, repo, repo, versionSvc, logger)
	deploySvc := deploy.New(repo, repo, repo, repo, versionSvc, logger)

	return &app{
		pool:       pool,
		projects:   project.New(repo, repo, logger),
		versions:   versionSvc,
		tags:       tagSvc,
		logicFiles: logicFileSvc,
		releases:   releaseSvc,
		deploys:    deploySvc,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func runApp(opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func requireArg(name, value string) error {
	if value == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is required", name))
	}
	return nil
}

// migrateRunner constructs a standalone migration runner, independent of
// the catalogue services app() builds, since migrate up/down/status needs
// no service wiring at all.
func migrateRunner(ctx context.Context, opts *RootOptions) (migrate.Runner, func(), error) {
	if opts.DatabaseURL == "" {
		return migrate.Runner{}, nil, NewExitError(ExitCommandError, "no database URL configured: set --database-url or DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, opts.DatabaseURL)
	if err != nil {
		return migrate.Runner{}, nil, WrapExitError(ExitCommandError, "connect to database", err)
	}
	runner, err := migrate.New(pool, opts.DatabaseURL, opts.MigrationsDir, slog.Default())
	if err != nil {
		pool.Close()
		return migrate.Runner{}, nil, WrapExitError(ExitCommandError, "configure migration runner", err)
	}
	return runner, runner.Close, nil
}
