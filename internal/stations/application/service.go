package application

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/fmanana/autosense-backend/internal/observability/metrics"
	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

const (
	opCreate  = "create"
	opList    = "list"
	opGet     = "get"
	opUpdate  = "update"
	opDelete  = "delete"
	opGetPump = "get_pump"
)

// StationService owns the station/pump aggregate rules on top of a store.
type StationService struct {
	store  stations.Store
	logger hclog.Logger
	now    func() time.Time
}

// Option configures the service.
type Option func(*StationService)

// WithLogger sets the service logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *StationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for operation timing.
func WithClock(now func() time.Time) Option {
	return func(s *StationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStationService constructs a station service.
func NewStationService(store stations.Store, opts ...Option) (*StationService, error) {
	if store == nil {
		return nil, errors.New("station service: nil store")
	}
	s := &StationService{
		store:  store,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a station and its pumps and returns the new station id.
func (s *StationService) Create(ctx context.Context, req stations.CreateStationRequest) (id int64, err error) {
	defer s.observe(opCreate, s.now(), &err)

	station := req.Station()
	err = s.store.WithinTx(ctx, func(store stations.Store) error {
		created, err := store.CreateStation(ctx, &station)
		if err != nil {
			return stations.WrapStoreError("create station", err)
		}
		for _, p := range req.Pumps {
			pump := stations.Pump{
				FuelType:  p.FuelType,
				Price:     p.Price,
				Available: p.Available,
				StationID: created,
			}
			if _, err := store.CreatePump(ctx, &pump); err != nil {
				return stations.WrapStoreError("create pump", err)
			}
		}
		id = created
		return nil
	})
	if err != nil {
		return 0, stations.WrapStoreError("create station", err)
	}
	s.logger.Debug("station created", "station_id", id, "pumps", len(req.Pumps))
	return id, nil
}

// List returns every station with its pumps.
func (s *StationService) List(ctx context.Context) (out []stations.Station, err error) {
	defer s.observe(opList, s.now(), &err)

	rows, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, stations.WrapStoreError("list stations", err)
	}
	out = make([]stations.Station, 0, len(rows))
	for _, row := range rows {
		pumps, err := s.store.ListPumpsByStation(ctx, row.ID)
		if err != nil {
			return nil, stations.WrapStoreError("list pumps", err)
		}
		out = append(out, row.WithPumps(pumps))
	}
	return out, nil
}

// Get returns one station with its pumps.
func (s *StationService) Get(ctx context.Context, id int64) (station *stations.Station, err error) {
	defer s.observe(opGet, s.now(), &err)
	return s.load(ctx, s.store, id)
}

// Update applies a partial update to a station and upserts its pumps.
//
// Station fields are merged with truthy-override semantics. Pump entries
// carrying an id update the price of that pump; entries without an id are
// inserted for this station. An unknown pump id aborts the update and
// nothing of the request is persisted.
func (s *StationService) Update(ctx context.Context, id int64, req stations.UpdateStationRequest) (updated *stations.Station, err error) {
	defer s.observe(opUpdate, s.now(), &err)

	err = s.store.WithinTx(ctx, func(store stations.Store) error {
		current, err := store.GetStation(ctx, id)
		if err != nil {
			return stations.WrapStoreError("get station", err)
		}
		if current == nil {
			return &stations.NotFoundError{Resource: stations.ResourceStation, ID: id}
		}

		merged := current.Merge(req)
		if _, err := store.UpdateStation(ctx, &merged); err != nil {
			return stations.WrapStoreError("update station", err)
		}
		if err := upsertPumps(ctx, store, id, req.Pumps); err != nil {
			return err
		}

		updated, err = s.load(ctx, store, id)
		return err
	})
	if err != nil {
		return nil, stations.WrapStoreError("update station", err)
	}
	s.logger.Debug("station updated", "station_id", id, "pumps", len(req.Pumps))
	return updated, nil
}

// Delete removes a station. Its pumps stay in the store.
func (s *StationService) Delete(ctx context.Context, id int64) (err error) {
	defer s.observe(opDelete, s.now(), &err)

	current, err := s.store.GetStation(ctx, id)
	if err != nil {
		return stations.WrapStoreError("get station", err)
	}
	if current == nil {
		return &stations.NotFoundError{Resource: stations.ResourceStation, ID: id}
	}
	if err := s.store.DeleteStation(ctx, id); err != nil {
		return stations.WrapStoreError("delete station", err)
	}
	s.logger.Debug("station deleted", "station_id", id)
	return nil
}

// GetPump returns a pump by id, whether or not its station still exists.
func (s *StationService) GetPump(ctx context.Context, id int64) (pump *stations.Pump, err error) {
	defer s.observe(opGetPump, s.now(), &err)

	pump, err = s.store.GetPump(ctx, id)
	if err != nil {
		return nil, stations.WrapStoreError("get pump", err)
	}
	if pump == nil {
		return nil, &stations.NotFoundError{Resource: stations.ResourcePump, ID: id}
	}
	return pump, nil
}

func (s *StationService) load(ctx context.Context, store stations.Store, id int64) (*stations.Station, error) {
	station, err := store.GetStation(ctx, id)
	if err != nil {
		return nil, stations.WrapStoreError("get station", err)
	}
	if station == nil {
		return nil, &stations.NotFoundError{Resource: stations.ResourceStation, ID: id}
	}
	pumps, err := store.ListPumpsByStation(ctx, id)
	if err != nil {
		return nil, stations.WrapStoreError("list pumps", err)
	}
	out := station.WithPumps(pumps)
	return &out, nil
}

func upsertPumps(ctx context.Context, store stations.Store, stationID int64, patches []stations.PumpPatch) error {
	for _, patch := range patches {
		if patch.ID != 0 {
			existing, err := store.GetPump(ctx, patch.ID)
			if err != nil {
				return stations.WrapStoreError("get pump", err)
			}
			if existing == nil {
				return &stations.NotFoundError{Resource: stations.ResourcePump, ID: patch.ID}
			}
			if patch.Price == nil {
				continue
			}
			if err := store.UpdatePumpPrice(ctx, patch.ID, *patch.Price); err != nil {
				return stations.WrapStoreError("update pump price", err)
			}
			continue
		}

		pump := stations.Pump{StationID: stationID}
		if patch.FuelType != nil {
			pump.FuelType = *patch.FuelType
		}
		if patch.Price != nil {
			pump.Price = *patch.Price
		}
		if patch.Available != nil {
			pump.Available = *patch.Available
		}
		if _, err := store.CreatePump(ctx, &pump); err != nil {
			return stations.WrapStoreError("create pump", err)
		}
	}
	return nil
}

func (s *StationService) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	if errp != nil && *errp != nil {
		switch {
		case errors.Is(*errp, stations.ErrNotFound):
			result = metrics.ResultNotFound
		case errors.Is(*errp, stations.ErrValidation):
			result = metrics.ResultInvalid
		default:
			result = metrics.ResultError
			s.logger.Error("station operation failed", "op", op, "error", *errp)
		}
	}
	metrics.ObserveStationOp(op, result, s.now().Sub(start))
}
