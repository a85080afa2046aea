package sqlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := Open(ctx, Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "data", "stations.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, WithDialect(dialect))
}

func TestSQLiteStore_StationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	id, err := store.CreateStation(ctx, &stations.Station{IDName: "A1", Name: "Alpha", Latitude: 0, Longitude: 8.5, City: "Zurich", Address: "Main 1"})
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id 1, got %d", id)
	}

	got, err := store.GetStation(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get station: %v %v", got, err)
	}
	if got.Name != "Alpha" || got.Latitude != 0 || got.Longitude != 8.5 {
		t.Fatalf("unexpected station %+v", got)
	}

	got.Name = "Beta"
	changed, err := store.UpdateStation(ctx, got)
	if err != nil || !changed {
		t.Fatalf("update station: changed=%v err=%v", changed, err)
	}
	changed, err = store.UpdateStation(ctx, &stations.Station{ID: 99, Name: "ghost"})
	if err != nil || changed {
		t.Fatalf("expected no change for missing row, changed=%v err=%v", changed, err)
	}

	list, err := store.ListStations(ctx)
	if err != nil || len(list) != 1 || list[0].Name != "Beta" {
		t.Fatalf("list stations: %+v %v", list, err)
	}

	if err := store.DeleteStation(ctx, id); err != nil {
		t.Fatalf("delete station: %v", err)
	}
	got, err = store.GetStation(ctx, id)
	if err != nil || got != nil {
		t.Fatalf("expected missing station, got %+v %v", got, err)
	}
}

func TestSQLiteStore_PumpsSurviveStationDelete(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	stationID, err := store.CreateStation(ctx, &stations.Station{IDName: "A1", Name: "Alpha", Latitude: 1, Longitude: 1, City: "X", Address: "Y"})
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	pumpID, err := store.CreatePump(ctx, &stations.Pump{FuelType: "DIESEL", Price: 1.5, Available: true, StationID: stationID})
	if err != nil {
		t.Fatalf("create pump: %v", err)
	}
	if _, err := store.CreatePump(ctx, &stations.Pump{FuelType: "E10", Price: 1.7, StationID: stationID}); err != nil {
		t.Fatalf("create pump: %v", err)
	}

	pumps, err := store.ListPumpsByStation(ctx, stationID)
	if err != nil || len(pumps) != 2 {
		t.Fatalf("list pumps: %+v %v", pumps, err)
	}
	if !pumps[0].Available || pumps[1].Available {
		t.Fatalf("available flags not preserved: %+v", pumps)
	}

	if err := store.UpdatePumpPrice(ctx, pumpID, 1.99); err != nil {
		t.Fatalf("update price: %v", err)
	}
	if err := store.DeleteStation(ctx, stationID); err != nil {
		t.Fatalf("delete station: %v", err)
	}
	pump, err := store.GetPump(ctx, pumpID)
	if err != nil || pump == nil {
		t.Fatalf("expected orphaned pump, got %+v %v", pump, err)
	}
	if pump.Price != 1.99 || pump.StationID != stationID {
		t.Fatalf("unexpected pump %+v", pump)
	}

	stationCount, pumpCount, err := store.CountRows(ctx)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if stationCount != 0 || pumpCount != 2 {
		t.Fatalf("unexpected counts stations=%d pumps=%d", stationCount, pumpCount)
	}
}

func TestSQLiteStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx stations.Store) error {
		if _, err := tx.CreateStation(ctx, &stations.Station{IDName: "A1", Name: "Alpha", City: "X", Address: "Y"}); err != nil {
			return err
		}
		return tx.WithinTx(ctx, func(inner stations.Store) error {
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	list, err := store.ListStations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected rollback, got %+v", list)
	}

	err = store.WithinTx(ctx, func(tx stations.Store) error {
		_, err := tx.CreateStation(ctx, &stations.Station{IDName: "B1", Name: "Beta", City: "X", Address: "Y"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ = store.ListStations(ctx)
	if len(list) != 1 {
		t.Fatalf("expected committed station, got %+v", list)
	}
}

func TestDialectRebind(t *testing.T) {
	got := DialectPostgres.rebind("UPDATE pumps SET price = ? WHERE id = ?")
	if got != "UPDATE pumps SET price = $1 WHERE id = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	if DialectSQLite.rebind("a = ?") != "a = ?" {
		t.Fatalf("sqlite must keep placeholders")
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, dialect, err := Open(ctx, Options{Driver: "pgx", DSN: dsn})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `TRUNCATE stations, pumps RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	store := New(db, WithDialect(dialect))

	stationID, err := store.CreateStation(ctx, &stations.Station{IDName: "P1", Name: "Pg", Latitude: 47.3, Longitude: 8.5, City: "Zurich", Address: "Bahnhofstrasse"})
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	pumpID, err := store.CreatePump(ctx, &stations.Pump{FuelType: "DIESEL", Price: 1.5, Available: true, StationID: stationID})
	if err != nil {
		t.Fatalf("create pump: %v", err)
	}
	if err := store.DeleteStation(ctx, stationID); err != nil {
		t.Fatalf("delete station: %v", err)
	}
	pump, err := store.GetPump(ctx, pumpID)
	if err != nil || pump == nil || !pump.Available {
		t.Fatalf("expected orphaned pump, got %+v %v", pump, err)
	}
}
