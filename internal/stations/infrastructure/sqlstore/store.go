package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

const (
	defaultStationsTable = "stations"
	defaultPumpsTable    = "pumps"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQL implementation of the station store.
type Store struct {
	conn     *sql.DB
	db       DBTX
	inTx     bool
	dialect  Dialect
	logger   hclog.Logger
	stations string
	pumps    string
}

// Option configures the store.
type Option func(*Store)

// WithDialect sets the SQL dialect (sqlite by default).
func WithDialect(dialect Dialect) Option {
	return func(s *Store) {
		if dialect != "" {
			s.dialect = dialect
		}
	}
}

// WithLogger enables statement trace logging.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTables overrides the default table names.
func WithTables(stationsTable, pumpsTable string) Option {
	return func(s *Store) {
		if stationsTable != "" {
			s.stations = stationsTable
		}
		if pumpsTable != "" {
			s.pumps = pumpsTable
		}
	}
}

// New constructs a store on top of an open database.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		conn:     db,
		db:       db,
		dialect:  DialectSQLite,
		logger:   hclog.NewNullLogger(),
		stations: defaultStationsTable,
		pumps:    defaultPumpsTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListStations returns all stations in table order.
func (s *Store) ListStations(ctx context.Context) ([]stations.Station, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, fmt.Sprintf(`
SELECT id, id_name, name, latitude, longitude, city, address
FROM %s
ORDER BY id`, s.stations))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []stations.Station{}
	for rows.Next() {
		var station stations.Station
		if err := rows.Scan(
			&station.ID,
			&station.IDName,
			&station.Name,
			&station.Latitude,
			&station.Longitude,
			&station.City,
			&station.Address,
		); err != nil {
			return nil, err
		}
		out = append(out, station)
	}
	return out, rows.Err()
}

// GetStation loads a station by id.
func (s *Store) GetStation(ctx context.Context, id int64) (*stations.Station, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var station stations.Station
	err := s.queryRow(ctx, fmt.Sprintf(`
SELECT id, id_name, name, latitude, longitude, city, address
FROM %s
WHERE id = ?`, s.stations), id).Scan(
		&station.ID,
		&station.IDName,
		&station.Name,
		&station.Latitude,
		&station.Longitude,
		&station.City,
		&station.Address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &station, nil
}

// CreateStation inserts a station and returns the assigned id.
func (s *Store) CreateStation(ctx context.Context, station *stations.Station) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if station == nil {
		return 0, errors.New("station store: nil station")
	}
	var id int64
	err := s.queryRow(ctx, fmt.Sprintf(`
INSERT INTO %s (id_name, name, latitude, longitude, city, address)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`, s.stations),
		station.IDName,
		station.Name,
		station.Latitude,
		station.Longitude,
		station.City,
		station.Address,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateStation overwrites the mutable columns and reports whether a row changed.
func (s *Store) UpdateStation(ctx context.Context, station *stations.Station) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if station == nil {
		return false, errors.New("station store: nil station")
	}
	res, err := s.exec(ctx, fmt.Sprintf(`
UPDATE %s
SET id_name = ?,
	name = ?,
	latitude = ?,
	longitude = ?,
	city = ?,
	address = ?
WHERE id = ?`, s.stations),
		station.IDName,
		station.Name,
		station.Latitude,
		station.Longitude,
		station.City,
		station.Address,
		station.ID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteStation removes the station row only.
func (s *Store) DeleteStation(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.stations), id)
	return err
}

// ListPumpsByStation returns the pumps bound to a station.
func (s *Store) ListPumpsByStation(ctx context.Context, stationID int64) ([]stations.Pump, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, fmt.Sprintf(`
SELECT id, fuel_type, price, available, station_id
FROM %s
WHERE station_id = ?
ORDER BY id`, s.pumps), stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []stations.Pump{}
	for rows.Next() {
		pump, err := scanPump(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pump)
	}
	return out, rows.Err()
}

// GetPump loads a pump by id.
func (s *Store) GetPump(ctx context.Context, id int64) (*stations.Pump, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	pump, err := scanPump(s.queryRow(ctx, fmt.Sprintf(`
SELECT id, fuel_type, price, available, station_id
FROM %s
WHERE id = ?`, s.pumps), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pump, nil
}

// CreatePump inserts a pump and returns the assigned id.
func (s *Store) CreatePump(ctx context.Context, pump *stations.Pump) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if pump == nil {
		return 0, errors.New("station store: nil pump")
	}
	var id int64
	err := s.queryRow(ctx, fmt.Sprintf(`
INSERT INTO %s (fuel_type, price, available, station_id)
VALUES (?, ?, ?, ?)
RETURNING id`, s.pumps),
		pump.FuelType,
		pump.Price,
		boolToInt(pump.Available),
		pump.StationID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePumpPrice sets the price of a pump.
func (s *Store) UpdatePumpPrice(ctx context.Context, id int64, price float64) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.exec(ctx, fmt.Sprintf(`UPDATE %s SET price = ? WHERE id = ?`, s.pumps), price, id)
	return err
}

// WithinTx runs fn inside a database transaction. Calls made on a store
// that is already transactional join the running transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(stations.Store) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.inTx {
		return fn(s)
	}
	if s.conn == nil {
		return errors.New("station store: nil connection")
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txStore := *s
	txStore.db = tx
	txStore.inTx = true
	if err := fn(&txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// CountRows returns the number of stations and pumps.
func (s *Store) CountRows(ctx context.Context) (stationCount, pumpCount int64, err error) {
	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	if err := s.queryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.stations)).Scan(&stationCount); err != nil {
		return 0, 0, err
	}
	if err := s.queryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.pumps)).Scan(&pumpCount); err != nil {
		return 0, 0, err
	}
	return stationCount, pumpCount, nil
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("station store: nil db")
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = s.dialect.rebind(query)
	s.logger.Trace("exec", "query", query, "args", args)
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = s.dialect.rebind(query)
	s.logger.Trace("query", "query", query, "args", args)
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query = s.dialect.rebind(query)
	s.logger.Trace("query", "query", query, "args", args)
	return s.db.QueryRowContext(ctx, query, args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPump(row rowScanner) (stations.Pump, error) {
	var (
		pump      stations.Pump
		available int64
	)
	if err := row.Scan(&pump.ID, &pump.FuelType, &pump.Price, &available, &pump.StationID); err != nil {
		return stations.Pump{}, err
	}
	pump.Available = available != 0
	return pump, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
