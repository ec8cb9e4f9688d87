package services

import (
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
	"backoffice/internal/utils"
)

// ManualService covers the two narrow spawn paths that bypass the batch
// engine: spawning one deliberately-excluded line, and creating an internal
// (non-billable) mission with no line at all. Both reuse the batch
// resolver's snapshot logic.
type ManualService struct {
	Orders    repositories.OrderRepo
	Missions  repositories.MissionRepo
	Vehicles  repositories.VehicleCategoryRepo
	RequestID string
}

type ManualSpawnInput struct {
	QuoteLineID       int64
	OrderID           int64
	OrganizationID    int64
	StartAt           time.Time
	VehicleCategoryID int64
	Notes             string
}

type InternalMissionInput struct {
	OrderID           int64
	OrganizationID    int64
	Label             string
	StartAt           time.Time
	VehicleCategoryID *int64
	Notes             string
}

// SpawnManual creates exactly one mission for a line the batch engine never
// touches (MANUAL type or dispatchable=false). Hard-fails when the line
// already has a mission, belongs to another order, or the vehicle category
// is unknown for the tenant.
func (s ManualService) SpawnManual(in ManualSpawnInput) (models.Mission, error) {
	if in.StartAt.IsZero() {
		return models.Mission{}, domain.ValidationError{Field: "start_at", Msg: "is required"}
	}

	line, quote, order, err := s.Orders.LineWithQuote(in.QuoteLineID, in.OrganizationID)
	if err != nil {
		return models.Mission{}, err
	}
	if order.ID != in.OrderID {
		return models.Mission{}, domain.ValidationError{Field: "quote_line_id", Msg: "line belongs to another order"}
	}

	exists, err := s.Missions.ExistsForLine(line.ID)
	if err != nil {
		return models.Mission{}, err
	}
	if exists {
		return models.Mission{}, domain.ConflictError{Resource: "mission", Msg: "line already has a mission"}
	}

	vc, err := s.Vehicles.GetByID(in.VehicleCategoryID, in.OrganizationID)
	if err != nil {
		return models.Mission{}, err
	}

	overrides, oerr := line.Overrides()
	if oerr != nil {
		utils.LogEvent(s.RequestID, "spawn", "line_overrides_invalid",
			fmt.Sprintf("line_id=%d err=%v", line.ID, oerr))
		overrides = models.LineOverrides{}
	}

	snap := resolveSnapshot(quote, line, overrides)
	snap.ManualSpawn = true
	snap.VehicleCategoryID = &vc.ID
	snap.VehicleCategoryName = vc.Name

	raw, err := json.Marshal(snap)
	if err != nil {
		return models.Mission{}, domain.InternalError{Msg: "failed to build mission snapshot", Err: err}
	}

	ref, err := s.nextRef(order)
	if err != nil {
		return models.Mission{}, err
	}

	lineID := line.ID
	created, err := s.Missions.InsertOne(models.Mission{
		OrganizationID: order.OrganizationID,
		OrderID:        order.ID,
		QuoteID:        quote.ID,
		QuoteLineID:    &lineID,
		Ref:            ref,
		Status:         models.MissionPending,
		StartAt:        in.StartAt,
		IsInternal:     false,
		SourceData:     raw,
		Notes:          utils.TrimOrEmpty(in.Notes),
	})
	if err != nil {
		return models.Mission{}, err
	}
	utils.LogEvent(s.RequestID, "spawn", "manual_mission_created",
		fmt.Sprintf("order_id=%d ref=%s line_id=%d", order.ID, created.Ref, lineID))
	return created, nil
}

// CreateInternal creates a non-billable mission with no quote line. The
// order must have at least one quote to satisfy the mission's quote
// relation; invoicing excludes these rows via is_internal.
func (s ManualService) CreateInternal(in InternalMissionInput) (models.Mission, error) {
	if utils.TrimOrEmpty(in.Label) == "" {
		return models.Mission{}, domain.ValidationError{Field: "label", Msg: "is required"}
	}
	if in.StartAt.IsZero() {
		return models.Mission{}, domain.ValidationError{Field: "start_at", Msg: "is required"}
	}

	order, err := s.Orders.HeaderByID(in.OrderID, in.OrganizationID)
	if err != nil {
		return models.Mission{}, err
	}

	quote, err := s.Orders.FirstQuote(order.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.Mission{}, domain.ValidationError{Field: "order_id", Msg: "order has no quotes"}
		}
		return models.Mission{}, err
	}

	snap := models.MissionSnapshot{Label: utils.NormalizeSpace(in.Label)}
	if in.VehicleCategoryID != nil {
		vc, err := s.Vehicles.GetByID(*in.VehicleCategoryID, in.OrganizationID)
		if err != nil {
			return models.Mission{}, err
		}
		snap.VehicleCategoryID = &vc.ID
		snap.VehicleCategoryName = vc.Name
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return models.Mission{}, domain.InternalError{Msg: "failed to build mission snapshot", Err: err}
	}

	ref, err := s.nextRef(order)
	if err != nil {
		return models.Mission{}, err
	}

	created, err := s.Missions.InsertOne(models.Mission{
		OrganizationID: order.OrganizationID,
		OrderID:        order.ID,
		QuoteID:        quote.ID,
		QuoteLineID:    nil,
		Ref:            ref,
		Status:         models.MissionPending,
		StartAt:        in.StartAt,
		IsInternal:     true,
		SourceData:     raw,
		Notes:          utils.TrimOrEmpty(in.Notes),
	})
	if err != nil {
		return models.Mission{}, err
	}
	utils.LogEvent(s.RequestID, "spawn", "internal_mission_created",
		fmt.Sprintf("order_id=%d ref=%s", order.ID, created.Ref))
	return created, nil
}

// nextRef sequences single-shot missions after whatever the order already
// has. The batch engine numbers purely by position instead.
func (s ManualService) nextRef(order models.Order) (string, error) {
	count, err := s.Missions.CountByOrder(order.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%02d", order.Reference, count+1), nil
}
