package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// DB implements ports.Database for PostgreSQL
type DB struct {
	conn    *sqlx.DB
	logger  ports.Logger
	metrics ports.Metrics
}

// DSN renders the lib/pq connection string for cfg
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// NewPostgresAdapter connects and pings the catalog database
func NewPostgresAdapter(ctx context.Context, cfg *config.DatabaseConfig, obs ports.Observability) (*DB, error) {
	logger, metrics, err := obs.ComponentsScoped("database.postgres")
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to PostgreSQL database", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := sqlx.ConnectContext(pingCtx, "postgres", DSN(cfg))
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	metrics.IncrementCounter("database.connection.success", nil)
	return &DB{conn: conn, logger: logger, metrics: metrics}, nil
}

func (d *DB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := d.conn.ExecContext(ctx, query, args...)
	d.record("execute", start, err)
	if err != nil {
		d.logger.Error("Failed to execute query", "error", err)
		return nil, err
	}
	return result, nil
}

func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := d.conn.SelectContext(ctx, dest, query, args...)
	d.record("select", start, err)
	if err != nil {
		d.logger.Error("Failed to select rows", "error", err, "query", query)
	}
	return err
}

func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := d.conn.GetContext(ctx, dest, query, args...)
	d.record("get", start, err)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		d.logger.Error("Failed to get row", "error", err, "query", query)
	}
	return err
}

func (d *DB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) (err error) {
	start := time.Now()

	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback", "error", rbErr)
		}
		return err
	}

	err = tx.Commit()
	d.record("transaction", start, err)
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Close() error {
	d.logger.Info("Closing database connection")
	return d.conn.Close()
}

func (d *DB) record(operation string, start time.Time, err error) {
	d.metrics.RecordHistogram("database."+operation+".duration_ms", float64(time.Since(start).Milliseconds()), nil)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		d.metrics.IncrementCounter("database."+operation+".errors", nil)
		return
	}
	d.metrics.IncrementCounter("database."+operation+".success", nil)
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *pgTx) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(ctx, dest, query, args...)
}
