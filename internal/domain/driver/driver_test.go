package driver

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	ok := &Driver{Rating: 4.8, TotalTrips: 120, Vehicles: []Vehicle{{ID: "v1", Capacity: 4}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid driver rejected: %v", err)
	}

	cases := []struct {
		name string
		d    Driver
		want error
	}{
		{"rating too high", Driver{Rating: 5.1}, ErrInvalidRating},
		{"rating negative", Driver{Rating: -0.1}, ErrInvalidRating},
		{"negative trips", Driver{Rating: 4, TotalTrips: -1}, ErrNegativeTrips},
		{"zero capacity vehicle", Driver{Rating: 4, Vehicles: []Vehicle{{Capacity: 0}}}, ErrInvalidCapacity},
	}
	for _, tc := range cases {
		if err := tc.d.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestPrimaryVehicle(t *testing.T) {
	d := &Driver{Vehicles: []Vehicle{{ID: "first", Capacity: 4}, {ID: "second", Capacity: 7}}}
	v, err := d.PrimaryVehicle()
	if err != nil {
		t.Fatalf("PrimaryVehicle: %v", err)
	}
	if v.ID != "first" {
		t.Errorf("primary vehicle = %s, want first of the ordered set", v.ID)
	}

	if _, err := (&Driver{}).PrimaryVehicle(); !errors.Is(err, ErrNoVehicle) {
		t.Errorf("no vehicles: error = %v, want ErrNoVehicle", err)
	}
}

func TestLocation(t *testing.T) {
	d := &Driver{LocationRaw: "24.71,46.67"}
	loc, err := d.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Latitude != 24.71 || loc.Longitude != 46.67 {
		t.Errorf("location = %v, want 24.71,46.67", loc)
	}

	if _, err := (&Driver{LocationRaw: "broken"}).Location(); err == nil {
		t.Error("malformed location should fail to parse")
	}
}
