package handlers

import (
	"net/http"

	"backoffice/internal/http/middleware"
	"backoffice/internal/repositories"

	"github.com/gin-gonic/gin"
)

// GET /api/vehicle-categories
func GetVehicleCategories(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	categories, err := (repositories.VehicleCategoryRepo{}).List(orgID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_categories": categories})
}
