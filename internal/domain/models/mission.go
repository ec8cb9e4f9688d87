package models

import "time"

// MissionPending is the only status this service ever writes. Every later
// transition belongs to dispatch.
const MissionPending = "PENDING"

// Mission is the operational counterpart of a quote line. QuoteLineID is nil
// for internal (non-billable) missions. DayIndex pairs with QuoteLineID in
// the table's unique key: 0 for single-shot missions, 1..N for a range
// group's expanded days. SourceData holds the resolved snapshot JSON and is
// never re-derived after creation.
type Mission struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	OrderID        int64      `json:"order_id"`
	QuoteID        int64      `json:"quote_id"`
	QuoteLineID    *int64     `json:"quote_line_id,omitempty"`
	DayIndex       int        `json:"day_index"`
	Ref            string     `json:"ref"`
	Status         string     `json:"status"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	IsInternal     bool       `json:"is_internal"`
	SourceData     []byte     `json:"source_data,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MissionSnapshot is the immutable operational copy written into
// missions.source_data. Later edits to the quote or line never touch it.
type MissionSnapshot struct {
	Label               string   `json:"label,omitempty"`
	TripType            string   `json:"trip_type,omitempty"`
	PickupAddress       string   `json:"pickup_address,omitempty"`
	PickupLat           *float64 `json:"pickup_lat,omitempty"`
	PickupLng           *float64 `json:"pickup_lng,omitempty"`
	DropoffAddress      string   `json:"dropoff_address,omitempty"`
	DropoffLat          *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng          *float64 `json:"dropoff_lng,omitempty"`
	PassengerCount      int      `json:"passenger_count"`
	LuggageCount        int      `json:"luggage_count"`
	VehicleCategoryID   *int64   `json:"vehicle_category_id,omitempty"`
	VehicleCategoryName string   `json:"vehicle_category_name,omitempty"`
	PricingMode         string   `json:"pricing_mode,omitempty"`
	IsRoundTrip         bool     `json:"is_round_trip"`
	DayIndex            int      `json:"day_index,omitempty"`
	TotalDays           int      `json:"total_days,omitempty"`
	ManualSpawn         bool     `json:"manual_spawn,omitempty"`
}
