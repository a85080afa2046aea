package memory

import (
	"context"
	"sort"
	"sync"

	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

// Store is an in-memory station store for demo/testing.
type Store struct {
	txMu sync.Mutex

	mu            sync.RWMutex
	stations      map[int64]stations.Station
	pumps         map[int64]stations.Pump
	nextStationID int64
	nextPumpID    int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		stations:      make(map[int64]stations.Station),
		pumps:         make(map[int64]stations.Pump),
		nextStationID: 1,
		nextPumpID:    1,
	}
}

// ListStations returns stations ordered by id.
func (s *Store) ListStations(ctx context.Context) ([]stations.Station, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]stations.Station, 0, len(s.stations))
	for _, station := range s.stations {
		out = append(out, station)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStation loads a station by id.
func (s *Store) GetStation(ctx context.Context, id int64) (*stations.Station, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	station, ok := s.stations[id]
	if !ok {
		return nil, nil
	}
	return &station, nil
}

// CreateStation inserts a station and assigns its id.
func (s *Store) CreateStation(ctx context.Context, station *stations.Station) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextStationID
	s.nextStationID++
	row := *station
	row.ID = id
	row.Pumps = nil
	s.stations[id] = row
	return id, nil
}

// UpdateStation overwrites the mutable station columns.
func (s *Store) UpdateStation(ctx context.Context, station *stations.Station) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stations[station.ID]; !ok {
		return false, nil
	}
	row := *station
	row.Pumps = nil
	s.stations[station.ID] = row
	return true, nil
}

// DeleteStation removes the station row. Pumps are left untouched.
func (s *Store) DeleteStation(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stations, id)
	return nil
}

// ListPumpsByStation returns the pumps of a station ordered by id.
func (s *Store) ListPumpsByStation(ctx context.Context, stationID int64) ([]stations.Pump, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []stations.Pump{}
	for _, pump := range s.pumps {
		if pump.StationID == stationID {
			out = append(out, pump)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPump loads a pump by id.
func (s *Store) GetPump(ctx context.Context, id int64) (*stations.Pump, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	pump, ok := s.pumps[id]
	if !ok {
		return nil, nil
	}
	return &pump, nil
}

// CreatePump inserts a pump and assigns its id.
func (s *Store) CreatePump(ctx context.Context, pump *stations.Pump) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPumpID
	s.nextPumpID++
	row := *pump
	row.ID = id
	s.pumps[id] = row
	return id, nil
}

// UpdatePumpPrice sets the price of a pump.
func (s *Store) UpdatePumpPrice(ctx context.Context, id int64, price float64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if pump, ok := s.pumps[id]; ok {
		pump.Price = price
		s.pumps[id] = pump
	}
	return nil
}

// WithinTx snapshots the store, runs fn and restores the snapshot when fn
// fails. Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(stations.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(txStore{Store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type txStore struct {
	*Store
}

// WithinTx joins the running transaction.
func (t txStore) WithinTx(ctx context.Context, fn func(stations.Store) error) error {
	return fn(t)
}

type snapshot struct {
	stations      map[int64]stations.Station
	pumps         map[int64]stations.Pump
	nextStationID int64
	nextPumpID    int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshot{
		stations:      make(map[int64]stations.Station, len(s.stations)),
		pumps:         make(map[int64]stations.Pump, len(s.pumps)),
		nextStationID: s.nextStationID,
		nextPumpID:    s.nextPumpID,
	}
	for id, station := range s.stations {
		snap.stations[id] = station
	}
	for id, pump := range s.pumps {
		snap.pumps[id] = pump
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = snap.stations
	s.pumps = snap.pumps
	s.nextStationID = snap.nextStationID
	s.nextPumpID = snap.nextPumpID
}
