// Command migrate applies the job ledger schema.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/orator/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "ORATOR_DB_DSN"

var errUsage = errors.New("usage: migrate [-dsn postgres://...] -up | -down | -steps N | -version | -force N")

type options struct {
	dsn     string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	forced  bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.dsn, "dsn", "", "database URL (defaults to "+envDSN+" or config.toml)")
	fs.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	fs.BoolVar(&opts.down, "down", false, "revert all migrations")
	fs.IntVar(&opts.steps, "steps", 0, "apply N migrations, negative reverts")
	fs.BoolVar(&opts.version, "version", false, "print the applied version")
	fs.IntVar(&opts.force, "force", -1, "mark version N applied without running it")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			opts.forced = true
		}
	})

	if !opts.up && !opts.down && opts.steps == 0 && !opts.version && !opts.forced {
		return opts, errUsage
	}
	return opts, nil
}

// resolveDSN prefers the flag, then ORATOR_DB_DSN, then the database section
// of the service configuration.
func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Database.URL(), nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	url, err := resolveDSN(opts.dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer m.Close()

	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(stdout, "no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		fmt.Fprintf(stdout, "version %d (dirty: %v)\n", v, dirty)
		return nil
	case opts.forced:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force %d: %w", opts.force, err)
		}
		fmt.Fprintf(stdout, "forced to version %d\n", opts.force)
		return nil
	case opts.up:
		return report(stdout, "up", m.Up())
	case opts.down:
		return report(stdout, "down", m.Down())
	default:
		return report(stdout, fmt.Sprintf("steps %d", opts.steps), m.Steps(opts.steps))
	}
}

func report(stdout io.Writer, op string, err error) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Fprintf(stdout, "%s: schema already current\n", op)
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}
	fmt.Fprintf(stdout, "%s: done\n", op)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
