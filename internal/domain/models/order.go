package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Trip types carried on quotes. The spawning engine only materializes
// TRANSFER and DISPO quotes; EXCURSION and STAY stay commercial-only.
const (
	TripTransfer  = "TRANSFER"
	TripDispo     = "DISPO"
	TripExcursion = "EXCURSION"
	TripStay      = "STAY"
)

// Quote line kinds. Only CALCULATED leaves and date-range GROUP nodes ever
// become missions; MANUAL lines never do.
const (
	LineCalculated = "CALCULATED"
	LineGroup      = "GROUP"
	LineManual     = "MANUAL"
)

// Order aggregates the quotes sold to one client. The reference string is
// the prefix of every mission ref spawned from it.
type Order struct {
	ID             int64   `json:"id"`
	OrganizationID int64   `json:"organization_id"`
	Reference      string  `json:"reference"`
	Status         string  `json:"status"`
	Quotes         []Quote `json:"quotes,omitempty"`
}

// Quote is the commercial header and the default data source for every
// line beneath it.
type Quote struct {
	ID                  int64       `json:"id"`
	OrderID             int64       `json:"order_id"`
	TripType            string      `json:"trip_type"`
	PickupAt            *time.Time  `json:"pickup_at,omitempty"`
	EstimatedEndAt      *time.Time  `json:"estimated_end_at,omitempty"`
	PickupAddress       string      `json:"pickup_address"`
	PickupLat           *float64    `json:"pickup_lat,omitempty"`
	PickupLng           *float64    `json:"pickup_lng,omitempty"`
	DropoffAddress      string      `json:"dropoff_address"`
	DropoffLat          *float64    `json:"dropoff_lat,omitempty"`
	DropoffLng          *float64    `json:"dropoff_lng,omitempty"`
	PassengerCount      int         `json:"passenger_count"`
	LuggageCount        int         `json:"luggage_count"`
	VehicleCategoryID   *int64      `json:"vehicle_category_id,omitempty"`
	VehicleCategoryName string      `json:"vehicle_category_name,omitempty"`
	IsRoundTrip         bool        `json:"is_round_trip"`
	PricingMode         string      `json:"pricing_mode"`
	Lines               []QuoteLine `json:"lines,omitempty"`
}

// QuoteLine is a node in the commercial line tree. SourceData holds the raw
// per-line override JSON; parse it with Overrides().
type QuoteLine struct {
	ID           int64       `json:"id"`
	QuoteID      int64       `json:"quote_id"`
	ParentID     *int64      `json:"parent_id,omitempty"`
	Type         string      `json:"type"`
	Dispatchable bool        `json:"dispatchable"`
	SortOrder    int         `json:"sort_order"`
	Label        string      `json:"label"`
	TotalPrice   int64       `json:"total_price"`
	SourceData   []byte      `json:"-"`
	Children     []QuoteLine `json:"children,omitempty"`
}

// LineOverrides is the typed view of quote_lines.source_data. Every field is
// optional; a nil field means "inherit from the quote". Times use the
// "2006-01-02 15:04:05" layout, dates "2006-01-02".
type LineOverrides struct {
	PickupAt            *string  `json:"pickup_at,omitempty"`
	EndAt               *string  `json:"end_at,omitempty"`
	PickupAddress       *string  `json:"pickup_address,omitempty"`
	PickupLat           *float64 `json:"pickup_lat,omitempty"`
	PickupLng           *float64 `json:"pickup_lng,omitempty"`
	DropoffAddress      *string  `json:"dropoff_address,omitempty"`
	DropoffLat          *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng          *float64 `json:"dropoff_lng,omitempty"`
	PassengerCount      *int     `json:"passenger_count,omitempty"`
	LuggageCount        *int     `json:"luggage_count,omitempty"`
	VehicleCategoryID   *int64   `json:"vehicle_category_id,omitempty"`
	VehicleCategoryName *string  `json:"vehicle_category_name,omitempty"`
	StartDate           *string  `json:"start_date,omitempty"`
	EndDate             *string  `json:"end_date,omitempty"`
}

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

// Overrides parses the line's source_data bag. Empty or NULL data yields a
// zero value without error.
func (l QuoteLine) Overrides() (LineOverrides, error) {
	var o LineOverrides
	raw := strings.TrimSpace(string(l.SourceData))
	if raw == "" || raw == "null" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return LineOverrides{}, fmt.Errorf("quote line %d: bad source_data: %w", l.ID, err)
	}
	return o, nil
}

// PickupTime parses the line-level pickup override when present.
func (o LineOverrides) PickupTime() (*time.Time, error) {
	return parseOptional(o.PickupAt, layoutDateTime)
}

// EndTime parses the line-level end override when present.
func (o LineOverrides) EndTime() (*time.Time, error) {
	return parseOptional(o.EndAt, layoutDateTime)
}

// DateRange returns the inclusive calendar range of a date-range GROUP.
// ok is false when either bound is absent; an error means the bag carries a
// range that cannot be used (unparseable or end before start).
func (o LineOverrides) DateRange() (start, end time.Time, ok bool, err error) {
	if o.StartDate == nil || o.EndDate == nil {
		return time.Time{}, time.Time{}, false, nil
	}
	start, err = time.ParseInLocation(layoutDate, strings.TrimSpace(*o.StartDate), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("start_date: %w", err)
	}
	end, err = time.ParseInLocation(layoutDate, strings.TrimSpace(*o.EndDate), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("end_date %s before start_date %s", *o.EndDate, *o.StartDate)
	}
	return start, end, true, nil
}

func parseOptional(s *string, layout string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(*s), time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
