package deliverylog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pgIdentRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresRecorder persists delivery-log entries into <schema>.delivery_log.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresRecorder behavior.
type PostgresOption func(*PostgresRecorder) error

// WithSchema sets the DB schema used by the recorder (default: "beacon").
func WithSchema(schema string) PostgresOption {
	return func(r *PostgresRecorder) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("deliverylog: empty schema")
		}
		if !pgIdentRE.MatchString(schema) {
			return errors.New("deliverylog: invalid schema identifier")
		}
		r.schema = schema
		return nil
	}
}

// NewPostgresRecorder constructs a recorder backed by PostgreSQL.
// The pool is owned by the caller.
func NewPostgresRecorder(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresRecorder, error) {
	r := &PostgresRecorder{
		pool:   pool,
		schema: "beacon",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.pool == nil {
		return nil, errors.New("deliverylog: nil pool")
	}
	return r, nil
}

// EnsureSchema creates the schema and table when missing.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx,
		`CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{r.schema}.Sanitize(),
	); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	table := pgIdent(r.schema, "delivery_log")
	if _, err := r.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS `+table+` (
			id            BIGSERIAL PRIMARY KEY,
			from_user     TEXT        NOT NULL,
			to_user       TEXT        NOT NULL,
			client_msg_id TEXT        NOT NULL,
			outcome       TEXT        NOT NULL,
			relayed_at    TIMESTAMPTZ NOT NULL,
			recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Record inserts one delivery-log entry.
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	if r == nil || r.pool == nil {
		return errors.New("deliverylog: nil recorder")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	table := pgIdent(r.schema, "delivery_log")
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+table+` (from_user, to_user, client_msg_id, outcome, relayed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.From, e.To, e.ClientMsgID, e.Outcome, e.RelayedAt,
	)
	return err
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
