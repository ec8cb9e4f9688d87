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

func spawnService(c *gin.Context) services.SpawnService {
	return services.SpawnService{
		Orders:    repositories.OrderRepo{},
		Missions:  repositories.MissionRepo{},
		RequestID: middleware.GetRequestID(c),
	}
}

// POST /api/orders/:id/confirm
// Confirms the order and spawns its missions in one step. A hard engine
// failure blocks the confirm transition; the status is only written after
// the spawn succeeds.
func ConfirmOrder(c *gin.Context) {
	orderID, ok := PathID(c, "id")
	if !ok {
		return
	}
	orgID := middleware.GetOrgID(c)

	svc := spawnService(c)
	created, err := svc.Execute(orderID, orgID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	if err := (repositories.OrderRepo{}).MarkConfirmed(orderID, orgID); err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "orders", "confirmed",
		fmt.Sprintf("order_id=%d user_id=%d missions=%d", orderID, middleware.GetUserID(c), len(created)))

	c.JSON(http.StatusOK, gin.H{
		"status":   "confirmed",
		"missions": created,
	})
}

// POST /api/orders/:id/missions/spawn
// Manual re-trigger of the batch spawn. Safe to call repeatedly: an order
// with nothing left to spawn returns an empty creation set.
func SpawnOrderMissions(c *gin.Context) {
	orderID, ok := PathID(c, "id")
	if !ok {
		return
	}
	orgID := middleware.GetOrgID(c)

	svc := spawnService(c)
	created, err := svc.Execute(orderID, orgID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"missions": created})
}

// GET /api/orders/:id/missions
func GetOrderMissions(c *gin.Context) {
	orderID, ok := PathID(c, "id")
	if !ok {
		return
	}
	orgID := middleware.GetOrgID(c)

	if _, err := (repositories.OrderRepo{}).HeaderByID(orderID, orgID); err != nil {
		RespondDomainError(c, err)
		return
	}

	missions, err := (repositories.MissionRepo{}).ListByOrder(orderID, orgID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}
