package services

import (
	"encoding/json"
	"time"

	"backoffice/internal/domain/models"
)

// resolveSnapshot builds the operational copy for one candidate with the
// precedence line override -> quote default -> zero. The snapshot is written
// once into missions.source_data and never re-derived, so later edits to the
// quote or line cannot leak into an already-created mission.
func resolveSnapshot(q models.Quote, l models.QuoteLine, o models.LineOverrides) models.MissionSnapshot {
	return models.MissionSnapshot{
		Label:               l.Label,
		TripType:            q.TripType,
		PickupAddress:       strOver(o.PickupAddress, q.PickupAddress),
		PickupLat:           floatOver(o.PickupLat, q.PickupLat),
		PickupLng:           floatOver(o.PickupLng, q.PickupLng),
		DropoffAddress:      strOver(o.DropoffAddress, q.DropoffAddress),
		DropoffLat:          floatOver(o.DropoffLat, q.DropoffLat),
		DropoffLng:          floatOver(o.DropoffLng, q.DropoffLng),
		PassengerCount:      intOver(o.PassengerCount, q.PassengerCount),
		LuggageCount:        intOver(o.LuggageCount, q.LuggageCount),
		VehicleCategoryID:   int64Over(o.VehicleCategoryID, q.VehicleCategoryID),
		VehicleCategoryName: strOver(o.VehicleCategoryName, q.VehicleCategoryName),
		PricingMode:         q.PricingMode,
		IsRoundTrip:         q.IsRoundTrip,
	}
}

// buildMission turns a sorted, referenced candidate into the row the writer
// persists. Start time is the extracted pickup; end time follows the same
// override direction and stays nil for expanded range days.
func buildMission(order models.Order, c spawnCandidate, ref string) (models.Mission, error) {
	snap := resolveSnapshot(c.quote, c.line, c.overrides)
	snap.DayIndex = c.dayIndex
	snap.TotalDays = c.totalDays

	raw, err := json.Marshal(snap)
	if err != nil {
		return models.Mission{}, err
	}

	var endAt *time.Time
	if c.rangeDay == nil {
		if t, err := c.overrides.EndTime(); err == nil && t != nil {
			endAt = t
		} else if c.quote.EstimatedEndAt != nil {
			endAt = c.quote.EstimatedEndAt
		}
	}

	lineID := c.dedupeLineID
	return models.Mission{
		OrganizationID: order.OrganizationID,
		OrderID:        order.ID,
		QuoteID:        c.quote.ID,
		QuoteLineID:    &lineID,
		DayIndex:       c.dayIndex,
		Ref:            ref,
		Status:         models.MissionPending,
		StartAt:        c.pickupAt,
		EndAt:          endAt,
		IsInternal:     false,
		SourceData:     raw,
	}, nil
}

func strOver(over *string, def string) string {
	if over != nil && *over != "" {
		return *over
	}
	return def
}

func intOver(over *int, def int) int {
	if over != nil {
		return *over
	}
	return def
}

func int64Over(over, def *int64) *int64 {
	if over != nil {
		return over
	}
	return def
}

func floatOver(over, def *float64) *float64 {
	if over != nil {
		return over
	}
	return def
}
