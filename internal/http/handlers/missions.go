package handlers

import (
	"fmt"
	"net/http"

	"backoffice/internal/http/middleware"
	"backoffice/internal/repositories"
	"backoffice/internal/services"
	"backoffice/internal/utils"

	"github.com/gin-gonic/gin"
)

func manualService(c *gin.Context) services.ManualService {
	return services.ManualService{
		Orders:    repositories.OrderRepo{},
		Missions:  repositories.MissionRepo{},
		Vehicles:  repositories.VehicleCategoryRepo{},
		RequestID: middleware.GetRequestID(c),
	}
}

type manualSpawnRequest struct {
	QuoteLineID       int64  `json:"quote_line_id" binding:"required"`
	OrderID           int64  `json:"order_id" binding:"required"`
	StartAt           string `json:"start_at" binding:"required"`
	VehicleCategoryID int64  `json:"vehicle_category_id" binding:"required"`
	Notes             string `json:"notes"`
}

// POST /api/missions/manual
// Spawns one mission for a line the batch engine skips on purpose (MANUAL
// type or dispatchable=false).
func SpawnManualMission(c *gin.Context) {
	var req manualSpawnRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	startAt, err := utils.ParseDateTime(req.StartAt)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid start_at, expected YYYY-MM-DD HH:MM:SS", err)
		return
	}

	svc := manualService(c)
	mission, err := svc.SpawnManual(services.ManualSpawnInput{
		QuoteLineID:       req.QuoteLineID,
		OrderID:           req.OrderID,
		OrganizationID:    middleware.GetOrgID(c),
		StartAt:           startAt,
		VehicleCategoryID: req.VehicleCategoryID,
		Notes:             req.Notes,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mission": mission})
}

type internalMissionRequest struct {
	OrderID           int64  `json:"order_id" binding:"required"`
	Label             string `json:"label" binding:"required"`
	StartAt           string `json:"start_at" binding:"required"`
	VehicleCategoryID *int64 `json:"vehicle_category_id"`
	Notes             string `json:"notes"`
}

// POST /api/missions/internal
// Creates a non-billable mission with no quote line. Invoicing excludes
// these via is_internal.
func CreateInternalMission(c *gin.Context) {
	var req internalMissionRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	startAt, err := utils.ParseDateTime(req.StartAt)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid start_at, expected YYYY-MM-DD HH:MM:SS", err)
		return
	}

	svc := manualService(c)
	mission, err := svc.CreateInternal(services.InternalMissionInput{
		OrderID:           req.OrderID,
		OrganizationID:    middleware.GetOrgID(c),
		Label:             req.Label,
		StartAt:           startAt,
		VehicleCategoryID: req.VehicleCategoryID,
		Notes:             req.Notes,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mission": mission})
}

// GET /api/missions?from=YYYY-MM-DD&to=YYYY-MM-DD
// Dispatch window read: tenant missions starting inside the range, ordered
// by start time. Bounds are inclusive; the to-day runs to end of day.
func GetMissionsWindow(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	// Older dispatch screens still send start/end.
	fromRaw := utils.FirstNonEmpty(c.Query("from"), c.Query("start"))
	toRaw := utils.FirstNonEmpty(c.Query("to"), c.Query("end"))
	if fromRaw == "" || toRaw == "" {
		RespondError(c, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)", nil)
		return
	}
	from, err := utils.ParseDate(fromRaw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid from date", err)
		return
	}
	to, err := utils.ParseDate(toRaw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid to date", err)
		return
	}
	if to.Before(from) {
		RespondError(c, http.StatusBadRequest, "to must not be before from", nil)
		return
	}
	toEnd := to.AddDate(0, 0, 1).Add(-1)

	missions, err := (repositories.MissionRepo{}).ListWindow(orgID, from, toEnd)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "missions", "window_read",
		fmt.Sprintf("from=%s to=%s count=%d", utils.FormatDate(from), utils.FormatDate(to), len(missions)))
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}
