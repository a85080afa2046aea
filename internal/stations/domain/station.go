package stations

import "context"

// Station represents a fuel station together with its pumps.
type Station struct {
	ID        int64   `json:"id"`
	IDName    string  `json:"id_name"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Address   string  `json:"address"`
	Pumps     []Pump  `json:"pumps"`
}

// Pump represents a single fuel pump owned by a station.
type Pump struct {
	ID        int64   `json:"id"`
	FuelType  string  `json:"fuel_type"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	StationID int64   `json:"station_id"`
}

// Store persists stations and pumps. It performs no validation.
//
// Get methods return nil, nil when the row does not exist.
type Store interface {
	ListStations(ctx context.Context) ([]Station, error)
	GetStation(ctx context.Context, id int64) (*Station, error)
	CreateStation(ctx context.Context, station *Station) (int64, error)
	UpdateStation(ctx context.Context, station *Station) (bool, error)
	DeleteStation(ctx context.Context, id int64) error

	ListPumpsByStation(ctx context.Context, stationID int64) ([]Pump, error)
	GetPump(ctx context.Context, id int64) (*Pump, error)
	CreatePump(ctx context.Context, pump *Pump) (int64, error)
	UpdatePumpPrice(ctx context.Context, id int64, price float64) error

	// WithinTx runs fn against a store bound to a single transaction.
	// The transaction is rolled back when fn returns an error.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// WithPumps returns a copy of the station with pumps attached. A nil slice
// is replaced by an empty one so the JSON form is always an array.
func (s Station) WithPumps(pumps []Pump) Station {
	if pumps == nil {
		pumps = []Pump{}
	}
	s.Pumps = pumps
	return s
}
