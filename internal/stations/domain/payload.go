package stations

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	scopeStation = "station"
	scopePump    = "pump"
)

// Required fields, in the order they are checked.
var (
	stationRequiredFields = []string{"id_name", "name", "latitude", "longitude", "city", "address"}
	pumpRequiredFields    = []string{"fuel_type", "price", "available"}
)

// CreateStationRequest is the validated body of a station create call.
type CreateStationRequest struct {
	IDName    string
	Name      string
	Latitude  float64
	Longitude float64
	City      string
	Address   string
	Pumps     []NewPump
}

// NewPump is a pump supplied at station creation time.
type NewPump struct {
	FuelType  string
	Price     float64
	Available bool
}

// UpdateStationRequest is the body of a partial station update. Nil fields
// were absent (or null) in the request.
type UpdateStationRequest struct {
	IDName    *string
	Name      *string
	Latitude  *float64
	Longitude *float64
	City      *string
	Address   *string
	Pumps     []PumpPatch
}

// PumpPatch is one entry of the pumps list of an update. ID is zero when
// the entry refers to a new pump.
type PumpPatch struct {
	ID        int64
	FuelType  *string
	Price     *float64
	Available *bool
}

// Station returns the station described by the request, without an id.
func (r CreateStationRequest) Station() Station {
	return Station{
		IDName:    r.IDName,
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		City:      r.City,
		Address:   r.Address,
	}
}

// ParseCreateStationRequest decodes and validates a create payload.
func ParseCreateStationRequest(data []byte) (CreateStationRequest, error) {
	var req CreateStationRequest
	obj, err := parseObject(data, scopeStation)
	if err != nil {
		return req, err
	}
	for _, field := range stationRequiredFields {
		if !obj.has(field) {
			return req, &ValidationError{Kind: MissingField, Field: field, Scope: scopeStation}
		}
	}
	pumps, err := obj.pumps()
	if err != nil {
		return req, err
	}
	for _, pump := range pumps {
		for _, field := range pumpRequiredFields {
			if !pump.has(field) {
				return req, &ValidationError{Kind: MissingField, Field: field, Scope: scopePump}
			}
		}
	}

	if err := decodeField(obj, "id_name", scopeStation, &req.IDName); err != nil {
		return req, err
	}
	if err := decodeField(obj, "name", scopeStation, &req.Name); err != nil {
		return req, err
	}
	if err := decodeField(obj, "latitude", scopeStation, &req.Latitude); err != nil {
		return req, err
	}
	if err := decodeField(obj, "longitude", scopeStation, &req.Longitude); err != nil {
		return req, err
	}
	if err := decodeField(obj, "city", scopeStation, &req.City); err != nil {
		return req, err
	}
	if err := decodeField(obj, "address", scopeStation, &req.Address); err != nil {
		return req, err
	}

	req.Pumps = make([]NewPump, 0, len(pumps))
	for _, pump := range pumps {
		var p NewPump
		if err := decodeField(pump, "fuel_type", scopePump, &p.FuelType); err != nil {
			return req, err
		}
		if err := decodeField(pump, "price", scopePump, &p.Price); err != nil {
			return req, err
		}
		if err := decodeField(pump, "available", scopePump, &p.Available); err != nil {
			return req, err
		}
		req.Pumps = append(req.Pumps, p)
	}
	return req, nil
}

// ParseUpdateStationRequest decodes a partial update payload. Every field is
// optional; only types are checked.
func ParseUpdateStationRequest(data []byte) (UpdateStationRequest, error) {
	var req UpdateStationRequest
	obj, err := parseObject(data, scopeStation)
	if err != nil {
		return req, err
	}
	if req.IDName, err = decodeOptional[string](obj, "id_name", scopeStation); err != nil {
		return req, err
	}
	if req.Name, err = decodeOptional[string](obj, "name", scopeStation); err != nil {
		return req, err
	}
	if req.Latitude, err = decodeOptional[float64](obj, "latitude", scopeStation); err != nil {
		return req, err
	}
	if req.Longitude, err = decodeOptional[float64](obj, "longitude", scopeStation); err != nil {
		return req, err
	}
	if req.City, err = decodeOptional[string](obj, "city", scopeStation); err != nil {
		return req, err
	}
	if req.Address, err = decodeOptional[string](obj, "address", scopeStation); err != nil {
		return req, err
	}

	pumps, err := obj.pumps()
	if err != nil {
		return req, err
	}
	for _, pump := range pumps {
		var patch PumpPatch
		id, err := decodeOptional[int64](pump, "id", scopePump)
		if err != nil {
			return req, err
		}
		if id != nil {
			patch.ID = *id
		}
		if patch.FuelType, err = decodeOptional[string](pump, "fuel_type", scopePump); err != nil {
			return req, err
		}
		if patch.Price, err = decodeOptional[float64](pump, "price", scopePump); err != nil {
			return req, err
		}
		if patch.Available, err = decodeOptional[bool](pump, "available", scopePump); err != nil {
			return req, err
		}
		req.Pumps = append(req.Pumps, patch)
	}
	return req, nil
}

type object map[string]json.RawMessage

func parseObject(data []byte, scope string) (object, error) {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, &ValidationError{Kind: Malformed, Scope: scope}
	}
	return obj, nil
}

// has reports whether key is present with a non-null value.
func (o object) has(key string) bool {
	raw, ok := o[key]
	return ok && !isNull(raw)
}

// pumps returns the entries of the optional pumps array. An absent or null
// array is an empty list.
func (o object) pumps() ([]object, error) {
	if !o.has("pumps") {
		return nil, nil
	}
	raw := bytes.TrimSpace(o["pumps"])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ValidationError{Kind: WrongType, Field: "pumps", Scope: scopeStation}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ValidationError{Kind: WrongType, Field: "pumps", Scope: scopeStation}
	}
	out := make([]object, 0, len(items))
	for i, item := range items {
		var entry object
		if err := json.Unmarshal(item, &entry); err != nil || entry == nil {
			return nil, &ValidationError{Kind: WrongType, Field: fmt.Sprintf("pumps[%d]", i), Scope: scopeStation}
		}
		out = append(out, entry)
	}
	return out, nil
}

func decodeField[T any](o object, key, scope string, dst *T) error {
	if err := json.Unmarshal(o[key], dst); err != nil {
		return &ValidationError{Kind: WrongType, Field: key, Scope: scope}
	}
	return nil
}

func decodeOptional[T any](o object, key, scope string) (*T, error) {
	if !o.has(key) {
		return nil, nil
	}
	value := new(T)
	if err := decodeField(o, key, scope, value); err != nil {
		return nil, err
	}
	return value, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Message renders the error the way it is reported to API clients.
func (e *ValidationError) Message() string {
	switch {
	case e.Kind == MissingField && e.Scope == scopePump:
		return fmt.Sprintf("The pumps property must contain a %s property", e.Field)
	case e.Kind == MissingField:
		return fmt.Sprintf("The request body must contain a %s property", e.Field)
	case e.Kind == WrongType && e.Field == "pumps":
		return "The pumps property must be an array"
	case e.Kind == WrongType:
		return fmt.Sprintf("The %s property has an invalid type", e.Field)
	default:
		return "The request body must be a JSON object"
	}
}
