package trip

import (
	"encoding/json"

	"ride-pool/internal/domain/geo"
)

// RoutePlan is the sequenced visit order committed with a trip: pickups
// first, dropoffs second. It serializes as pair arrays,
// {"pickup":[[lat,lon],...],"dropoff":[[lat,lon],...]}.
type RoutePlan struct {
	Pickup  []geo.Coordinate
	Dropoff []geo.Coordinate
}

type routePlanWire struct {
	Pickup  [][2]float64 `json:"pickup"`
	Dropoff [][2]float64 `json:"dropoff"`
}

// MarshalJSON renders the wire pair-array form.
func (plan RoutePlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(routePlanWire{
		Pickup:  toPairs(plan.Pickup),
		Dropoff: toPairs(plan.Dropoff),
	})
}

// UnmarshalJSON parses the wire pair-array form.
func (plan *RoutePlan) UnmarshalJSON(data []byte) error {
	var wire routePlanWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	plan.Pickup = fromPairs(wire.Pickup)
	plan.Dropoff = fromPairs(wire.Dropoff)
	return nil
}

// Encode returns the serialized form stored in `trips.route_coordinates`.
func (plan RoutePlan) Encode() (string, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeRoutePlan parses a stored route_coordinates value. An empty value
// decodes to an empty plan.
func DecodeRoutePlan(raw string) (RoutePlan, error) {
	if raw == "" {
		return RoutePlan{}, nil
	}
	var plan RoutePlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return RoutePlan{}, err
	}
	return plan, nil
}

func toPairs(points []geo.Coordinate) [][2]float64 {
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.Latitude, p.Longitude}
	}
	return pairs
}

func fromPairs(pairs [][2]float64) []geo.Coordinate {
	if len(pairs) == 0 {
		return nil
	}
	points := make([]geo.Coordinate, len(pairs))
	for i, pair := range pairs {
		points[i] = geo.Coordinate{Latitude: pair[0], Longitude: pair[1]}
	}
	return points
}
