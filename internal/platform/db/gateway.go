package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/moka/gel2moka/internal/config"
)

var sqlOpen = sql.Open

// Gateway is the single connection to the Moka database. Every statement
// is auto-committed on its own; there is no transaction spanning calls.
type Gateway struct {
	db     *sql.DB
	driver string
	schema string
}

// Open connects using the driver named in cfg and pings the server,
// retrying with exponential backoff up to cfg.Moka.ConnectAttempts times or
// until ctx is done. Callers must Close the returned Gateway.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Gateway, error) {
	driver := cfg.Moka.Driver
	sqlDB, err := sqlOpen(driver, cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	attempt := 0
	ping := func() error {
		attempt++
		err := sqlDB.PingContext(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Str("driver", driver).Msg("moka ping failed")
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(connectBackOff(cfg.Moka.ConnectAttempts), ctx)); err != nil {
		sqlDB.Close()
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	logger.Info().Str("driver", driver).Str("schema", cfg.Moka.Schema).Int("attempts", attempt).Msg("connected to moka")
	return &Gateway{db: sqlDB, driver: driver, schema: cfg.Moka.Schema}, nil
}

func connectBackOff(attempts int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

// Close releases the connection.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Ident returns name ready to embed in a statement. Postgres folds
// unquoted identifiers to lower case, so under pgx names are double-quoted
// to keep Moka's mixed-case table and column names. SQL Server and SQLite
// compare identifiers case-insensitively and take them as written.
func (g *Gateway) Ident(name string) string {
	if g.driver != config.DriverPgx {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Columns returns names as a comma-separated identifier list.
func (g *Gateway) Columns(names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = g.Ident(n)
	}
	return strings.Join(quoted, ", ")
}

// Table qualifies a table name with the configured schema.
func (g *Gateway) Table(name string) string {
	if g.schema == "" {
		return g.Ident(name)
	}
	return g.Ident(g.schema) + "." + g.Ident(name)
}

// Query runs a statement written with ? placeholders and returns its rows.
func (g *Gateway) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return g.db.QueryContext(ctx, Rebind(g.driver, query), args...)
}

func (g *Gateway) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return g.db.QueryRowContext(ctx, Rebind(g.driver, query), args...)
}

// Exec runs a statement that returns no rows.
func (g *Gateway) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return g.db.ExecContext(ctx, Rebind(g.driver, query), args...)
}

// Rebind rewrites ? placeholders into the positional $n form pgx expects.
// ODBC and SQLite take ? as written. Queries must not contain literal '?'.
func Rebind(driver, query string) string {
	if driver != config.DriverPgx || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Placeholders returns n comma-separated ? markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
