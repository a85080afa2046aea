package stations

// Merge applies a partial update to the station and returns the result.
//
// A supplied value only replaces the stored one when it is truthy: empty
// strings and zero coordinates are treated like absent fields and keep the
// stored value. Clients cannot move a station to latitude or longitude 0
// through an update.
func (s Station) Merge(req UpdateStationRequest) Station {
	s.IDName = truthyString(req.IDName, s.IDName)
	s.Name = truthyString(req.Name, s.Name)
	s.Latitude = truthyFloat(req.Latitude, s.Latitude)
	s.Longitude = truthyFloat(req.Longitude, s.Longitude)
	s.City = truthyString(req.City, s.City)
	s.Address = truthyString(req.Address, s.Address)
	return s
}

func truthyString(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func truthyFloat(value *float64, fallback float64) float64 {
	if value == nil || *value == 0 {
		return fallback
	}
	return *value
}
