// Package store is the persistence gateway for maintenance requests. Every
// operation opens its own short-lived connection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/store/migrations"
)

type Config struct {
	Dialect  Dialect
	DSN      string
	Location *time.Location
}

type Gateway struct {
	cfg Config
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Dialect == "" {
		cfg.Dialect = SQLite
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	return &Gateway{cfg: cfg}
}

func (g *Gateway) Dialect() Dialect { return g.cfg.Dialect }

// Conn is one open connection plus the repository bound to it. Callers must
// Close it.
type Conn struct {
	*Repository
	db *sql.DB
}

func (c *Conn) Close() error { return c.db.Close() }

// Open connects and pings. The pool is capped at a single connection.
func (g *Gateway) Open(ctx context.Context) (*Conn, error) {
	if g.cfg.DSN == "" {
		return nil, ErrNotConfigured
	}
	db, err := sql.Open(g.cfg.Dialect.driverName(), g.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", g.cfg.Dialect, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", g.cfg.Dialect, err)
	}
	return &Conn{Repository: NewRepository(db, g.cfg.Dialect, g.cfg.Location), db: db}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	conn, err := g.Open(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (g *Gateway) Migrate(ctx context.Context) error {
	conn, err := g.Open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return runMigrations(ctx, conn.db, g.cfg.Dialect)
}

func (g *Gateway) InsertRequest(ctx context.Context, req requests.Request) (int64, error) {
	conn, err := g.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return conn.Insert(ctx, req)
}

func (g *Gateway) InsertRequests(ctx context.Context, rows []requests.Request) (int, error) {
	conn, err := g.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return conn.InsertAll(ctx, rows)
}

func (g *Gateway) FetchAllRequests(ctx context.Context) ([]requests.Request, error) {
	conn, err := g.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.FetchAll(ctx)
}

func (g *Gateway) DeleteRequest(ctx context.Context, id int64) error {
	conn, err := g.Open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Delete(ctx, id)
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func runMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dialect.migrationsDir()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
