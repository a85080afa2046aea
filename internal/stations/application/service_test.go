package application

import (
	"context"
	"errors"
	"strconv"
	"testing"

	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
	"github.com/fmanana/autosense-backend/internal/stations/infrastructure/memory"
)

func newService(t *testing.T) (*StationService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc, err := NewStationService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func createTwoPumpStation(t *testing.T, svc *StationService) int64 {
	t.Helper()
	req, err := stations.ParseCreateStationRequest([]byte(`{
		"id_name":"A1","name":"Station A","latitude":47.37,"longitude":8.54,"city":"Zurich","address":"Main 1",
		"pumps":[{"fuel_type":"DIESEL","price":1.5,"available":true},{"fuel_type":"E10","price":1.7,"available":false}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestNewStationService_NilStore(t *testing.T) {
	if _, err := NewStationService(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestStationService_CreateAndGet(t *testing.T) {
	svc, _ := newService(t)
	id := createTwoPumpStation(t, svc)

	got, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Station A" || len(got.Pumps) != 2 {
		t.Fatalf("unexpected station %+v", got)
	}
	if got.Pumps[0].ID == 0 || got.Pumps[1].ID == 0 || got.Pumps[0].ID == got.Pumps[1].ID {
		t.Fatalf("expected distinct pump ids, got %+v", got.Pumps)
	}
	if got.Pumps[0].FuelType != "DIESEL" || got.Pumps[1].FuelType != "E10" {
		t.Fatalf("pump order not preserved: %+v", got.Pumps)
	}
	for _, pump := range got.Pumps {
		if pump.StationID != id {
			t.Fatalf("pump bound to wrong station: %+v", pump)
		}
	}
}

func TestStationService_ListIncludesPumps(t *testing.T) {
	svc, _ := newService(t)
	createTwoPumpStation(t, svc)
	req, _ := stations.ParseCreateStationRequest([]byte(`{"id_name":"B","name":"B","latitude":1,"longitude":1,"city":"X","address":"Y"}`))
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(list))
	}
	if len(list[0].Pumps) != 2 {
		t.Fatalf("expected pumps on first station")
	}
	if list[1].Pumps == nil || len(list[1].Pumps) != 0 {
		t.Fatalf("expected empty pump list on second station, got %#v", list[1].Pumps)
	}
}

func TestStationService_GetNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Get(context.Background(), 42)
	var nf *stations.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != stations.ResourceStation || nf.ID != 42 {
		t.Fatalf("expected station not found, got %v", err)
	}
}

func TestStationService_UpdateTruthyMerge(t *testing.T) {
	svc, _ := newService(t)
	id := createTwoPumpStation(t, svc)
	ctx := context.Background()

	empty := ""
	got, err := svc.Update(ctx, id, stations.UpdateStationRequest{Name: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Station A" {
		t.Fatalf("empty name must keep old value, got %q", got.Name)
	}

	name := "New"
	got, err = svc.Update(ctx, id, stations.UpdateStationRequest{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "New" {
		t.Fatalf("expected New, got %q", got.Name)
	}
	stored, _ := svc.Get(ctx, id)
	if stored.Name != "New" {
		t.Fatalf("update not persisted: %+v", stored)
	}
}

func TestStationService_UpdatePumpUpsert(t *testing.T) {
	svc, _ := newService(t)
	id := createTwoPumpStation(t, svc)
	ctx := context.Background()
	before, _ := svc.Get(ctx, id)
	firstPump := before.Pumps[0]

	req, err := stations.ParseUpdateStationRequest([]byte(`{"pumps":[
		{"id":` + itoa(firstPump.ID) + `,"price":1.99,"fuel_type":"IGNORED"},
		{"fuel_type":"E5","price":1.8,"available":true}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := svc.Update(ctx, id, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Pumps) != 3 {
		t.Fatalf("expected 3 pumps, got %+v", got.Pumps)
	}
	if got.Pumps[0].Price != 1.99 || got.Pumps[0].FuelType != "DIESEL" {
		t.Fatalf("expected price-only update, got %+v", got.Pumps[0])
	}
	if got.Pumps[2].FuelType != "E5" || got.Pumps[2].ID == 0 || !got.Pumps[2].Available {
		t.Fatalf("expected inserted pump, got %+v", got.Pumps[2])
	}
}

func TestStationService_UpdateUnknownPumpPersistsNothing(t *testing.T) {
	svc, _ := newService(t)
	id := createTwoPumpStation(t, svc)
	ctx := context.Background()

	name := "Changed"
	price := 9.99
	fuel := "E5"
	req := stations.UpdateStationRequest{
		Name: &name,
		Pumps: []stations.PumpPatch{
			{FuelType: &fuel, Price: &price},
			{ID: 999, Price: &price},
		},
	}
	_, err := svc.Update(ctx, id, req)
	var nf *stations.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != stations.ResourcePump || nf.ID != 999 {
		t.Fatalf("expected pump 999 not found, got %v", err)
	}

	stored, _ := svc.Get(ctx, id)
	if stored.Name != "Station A" {
		t.Fatalf("station change leaked: %+v", stored)
	}
	if len(stored.Pumps) != 2 {
		t.Fatalf("pump insert leaked: %+v", stored.Pumps)
	}
}

func TestStationService_UpdateMissingStation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), 7, stations.UpdateStationRequest{})
	if !errors.Is(err, stations.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStationService_DeleteLeavesPumps(t *testing.T) {
	svc, _ := newService(t)
	id := createTwoPumpStation(t, svc)
	ctx := context.Background()
	before, _ := svc.Get(ctx, id)

	if err := svc.Delete(ctx, 999); !errors.Is(err, stations.ErrNotFound) {
		t.Fatalf("expected not found for unknown station, got %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, stations.ErrNotFound) {
		t.Fatalf("expected deleted station to be gone, got %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
	pump, err := svc.GetPump(ctx, before.Pumps[0].ID)
	if err != nil {
		t.Fatalf("expected orphaned pump, got %v", err)
	}
	if pump.StationID != id {
		t.Fatalf("unexpected orphan %+v", pump)
	}
}

func TestStationService_GetPumpNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetPump(context.Background(), 5)
	var nf *stations.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != stations.ResourcePump {
		t.Fatalf("expected pump not found, got %v", err)
	}
}

func TestStationService_StoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	svc, err := NewStationService(failingStore{err: boom})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.List(context.Background())
	if !errors.Is(err, stations.ErrStore) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	_, err = svc.Create(context.Background(), stations.CreateStationRequest{IDName: "A"})
	var serr *stations.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

type failingStore struct {
	stations.Store
	err error
}

func (f failingStore) ListStations(context.Context) ([]stations.Station, error) {
	return nil, f.err
}

func (f failingStore) CreateStation(context.Context, *stations.Station) (int64, error) {
	return 0, f.err
}

func (f failingStore) WithinTx(ctx context.Context, fn func(stations.Store) error) error {
	return fn(f)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
