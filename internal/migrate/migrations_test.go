package migrate

import (
	"context"
	"testing"

	"taskdesk/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Path: db.Memory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if v, err := Current(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh version = %d, %v", v, err)
	}
	migrations, err := List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("unexpected migrations: %+v", migrations)
	}
	latest := migrations[len(migrations)-1].Version

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, conn); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
		v, err := Current(ctx, conn)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if v != latest {
			t.Fatalf("version after run %d = %d, want %d", i+1, v, latest)
		}
	}

	for _, table := range []string{"tasks", "users", "comments", "events"} {
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestEventsCarryActorColumn(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Path: db.Memory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,payload_json,actor) VALUES ('t','x','task','{}','console')`); err != nil {
		t.Fatalf("insert with actor: %v", err)
	}
}
