package deliverylog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests require a reachable PostgreSQL instance:
//
//	BEACON_TEST_DATABASE_URL=postgres://... go test ./cmd/internal/deliverylog/
func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("BEACON_TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("BEACON_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	return pool
}

func TestPostgresRecorderRoundTrip(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := fmt.Sprintf("beacon_test_%d", time.Now().UnixNano())

	rec, err := NewPostgresRecorder(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := rec.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_, _ = pool.Exec(cctx, `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	})

	relayedAt := time.Now().UTC().Truncate(time.Microsecond)
	if err := rec.Record(ctx, Entry{
		From:        "u-alice",
		To:          "u-bob",
		ClientMsgID: "m1",
		Outcome:     "delivered",
		RelayedAt:   relayedAt,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	var (
		from, to, outcome string
		gotTS             time.Time
	)
	err = pool.QueryRow(ctx,
		`SELECT from_user, to_user, outcome, relayed_at FROM `+pgIdent(schema, "delivery_log")+` WHERE client_msg_id = $1`,
		"m1",
	).Scan(&from, &to, &outcome, &gotTS)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if from != "u-alice" || to != "u-bob" || outcome != "delivered" {
		t.Fatalf("row mismatch: from=%q to=%q outcome=%q", from, to, outcome)
	}
	if !gotTS.Equal(relayedAt) {
		t.Fatalf("relayed_at=%v want=%v", gotTS, relayedAt)
	}
}

func TestWithSchemaValidation(t *testing.T) {
	t.Parallel()

	pool := &pgxpool.Pool{}

	if _, err := NewPostgresRecorder(pool, WithSchema("")); err == nil {
		t.Fatalf("expected error for empty schema")
	}
	if _, err := NewPostgresRecorder(pool, WithSchema(`x"; DROP TABLE users; --`)); err == nil {
		t.Fatalf("expected error for invalid identifier")
	}
	if _, err := NewPostgresRecorder(nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
