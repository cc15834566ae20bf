// Package maintreqcli implements the maintreq command: setup, run, migrate
// and import.
package maintreqcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phillip-england/maintreq/internal/envutil"
	"github.com/phillip-england/maintreq/internal/importer"
	"github.com/phillip-england/maintreq/internal/security"
	"github.com/phillip-england/maintreq/internal/store"
	"github.com/phillip-england/maintreq/internal/webapp"
)

var ErrUsage = errors.New("usage")

const defaultSQLiteDSN = "file:data/maintreq.db?_busy_timeout=5000"

func Execute(args []string) error {
	return execute(args, os.Stdout)
}

func execute(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], out)
	case "run":
		return runCommand(args[1:])
	case "migrate":
		return runMigrate(args[1:], out)
	case "import":
		return runImport(args[1:], out)
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: maintreq <setup|run|migrate|import> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: maintreq setup --master-password <password> [--no-gate] [--db-driver sqlite|postgres] [--db-dsn <dsn>] [--env-file .env] [--force]")
	fmt.Fprintln(w, "       maintreq run [--env-file .env]")
	fmt.Fprintln(w, "       maintreq migrate [--env-file .env]")
	fmt.Fprintln(w, "       maintreq import [--env-file .env] [--dry-run] <planilha.xlsx|planilha.xls>")
}

func runSetup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	masterPass := fs.String("master-password", "", "master password for the access gate")
	noGate := fs.Bool("no-gate", false, "start sessions at the name step without a password")
	driver := fs.String("db-driver", string(store.SQLite), "database driver: sqlite or postgres")
	dsn := fs.String("db-dsn", defaultSQLiteDSN, "database connection string")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}

	dialect, err := store.ParseDialect(*driver)
	if err != nil {
		return err
	}
	gate := !*noGate
	if gate {
		if *masterPass == "" {
			return errors.New("--master-password is required unless --no-gate is set")
		}
		if err := security.ValidateSecret(*masterPass); err != nil {
			return fmt.Errorf("invalid master password: %w", err)
		}
	}

	values := map[string]string{
		"APP_ADDR":              ":8080",
		"APP_ENV":               "development",
		"LOG_LEVEL":             "info",
		"DB_DRIVER":             string(dialect),
		"DB_DSN":                *dsn,
		"PASSWORD_GATE":         "on",
		"MASTER_PASSWORD":       *masterPass,
		"MEDIA_BACKEND":         "cloudinary",
		"CLOUDINARY_CLOUD_NAME": "",
		"CLOUDINARY_API_KEY":    "",
		"CLOUDINARY_API_SECRET": "",
		"TIMEZONE":              "America/Sao_Paulo",
		"LOGO_PATH":             "assets/logo.png",
	}
	if !gate {
		values["PASSWORD_GATE"] = "off"
		delete(values, "MASTER_PASSWORD")
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envPath := fs.String("env-file", ".env", "path to .env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	if err := envutil.LoadDotEnv(*envPath); err != nil {
		return fmt.Errorf("load %s: %w", *envPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := webapp.DefaultConfigFromEnv()
	for _, key := range runtimeMissing(cfg) {
		fmt.Fprintf(os.Stderr, "warning: %s is not set\n", key)
	}
	if cfg.DBDriver == store.SQLite {
		if err := ensureParentDirs(sqliteFilePath(cfg.DBDSN)); err != nil {
			return err
		}
	}
	if err := webapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runtimeMissing lists the settings whose absence disables a screen: the
// database, and the master password while the gate is on.
func runtimeMissing(cfg webapp.Config) []string {
	keys := []string{"DB_DSN"}
	if cfg.PasswordGate {
		keys = append(keys, "MASTER_PASSWORD")
	}
	return envutil.Missing(keys...)
}

// loadGateway reads the env file and returns a gateway for the configured
// database. It fails when DB_DSN is unset.
func loadGateway(envPath string) (*store.Gateway, webapp.Config, error) {
	if err := envutil.LoadDotEnv(envPath); err != nil {
		return nil, webapp.Config{}, fmt.Errorf("load %s: %w", envPath, err)
	}
	cfg := webapp.DefaultConfigFromEnv()
	if missing := envutil.Missing("DB_DSN"); len(missing) > 0 {
		return nil, cfg, fmt.Errorf("%s not set: %w", strings.Join(missing, ", "), store.ErrNotConfigured)
	}
	if cfg.DBDriver == store.SQLite {
		if err := ensureParentDirs(sqliteFilePath(cfg.DBDSN)); err != nil {
			return nil, cfg, err
		}
	}
	return store.NewGateway(cfg.StoreConfig()), cfg, nil
}

func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envPath := fs.String("env-file", ".env", "path to .env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	gateway, _, err := loadGateway(*envPath)
	if err != nil {
		return err
	}
	if err := gateway.Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(out, "migrated %s database\n", gateway.Dialect())
	return nil
}

// runImport loads a spreadsheet exported from the history screen (or kept by
// hand in the same columns) and inserts every row in one transaction.
func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envPath := fs.String("env-file", ".env", "path to .env file")
	dryRun := fs.Bool("dry-run", false, "validate the file without writing")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: maintreq import [--dry-run] <planilha.xlsx|planilha.xls>", ErrUsage)
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := importer.ReadRows(f, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if *dryRun {
		if err := envutil.LoadDotEnv(*envPath); err != nil {
			return fmt.Errorf("load %s: %w", *envPath, err)
		}
		parsed, err := importer.Parse(rows, webapp.DefaultConfigFromEnv().Location)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d requests are valid (dry run)\n", len(parsed))
		return nil
	}

	gateway, cfg, err := loadGateway(*envPath)
	if err != nil {
		return err
	}
	parsed, err := importer.Parse(rows, cfg.Location)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := gateway.Migrate(ctx); err != nil {
		return err
	}
	n, err := gateway.InsertRequests(ctx, parsed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d requests\n", n)
	return nil
}

// sqliteFilePath extracts the database file from a sqlite DSN, or "" for an
// in-memory database.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
