package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/memflow/config"
	"github.com/BaSui01/memflow/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

// runMigrate 解析连接参数后将剩余参数交给 migration.CLI
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { printMigrateUsage(out) }
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite, sqlite3)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	verbose := fs.Bool("verbose", false, "Log migration progress")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = initLogger(migrateLogConfig())
	}

	m, err := newMigrator(*configPath, *dbType, *dbURL, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	cli := migration.NewCLI(m)
	cli.SetOutput(out)
	if err := cli.Run(ctx, fs.Args()); err != nil {
		if errors.Is(err, migration.ErrUnknownCommand) {
			printMigrateUsage(out)
		}
		return err
	}
	return nil
}

// newMigrator --db-type 与 --db-url 同时给出时直接使用，否则读取配置文件
func newMigrator(configPath, dbType, dbURL string, logger *zap.Logger) (*migration.DefaultMigrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL, logger)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.NewMigratorFromConfig(cfg, logger)
}

func migrateLogConfig() config.LogConfig {
	return config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}}
}

func printMigrateUsage(out io.Writer) {
	fmt.Fprintln(out, `Database Migration Commands

Usage:
  memflow migrate [options] <subcommand> [arg]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration
  down-all    Rollback all migrations
  steps <n>   Apply (n>0) or rollback (n<0) n migrations
  goto <v>    Migrate to a specific version
  force <v>   Force set migration version (use with caution)
  version     Show current migration version
  status      Show migration status (default)
  info        Show migration summary

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite, sqlite3
  --db-url <url>      Database connection URL
  --verbose           Log migration progress to stderr

Examples:
  memflow migrate up
  memflow migrate --config /etc/memflow/config.yaml status
  memflow migrate --db-type sqlite --db-url "file:memflow.db?mode=rwc" up
  memflow migrate steps -1`)
}
