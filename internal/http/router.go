package api

import (
	"log"
	stdhttp "net/http"

	intconfig "backoffice/internal/config"
	h "backoffice/internal/http/handlers"
	"backoffice/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	h.SetJWTSecret(env.JWTSecret)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)

		// Everything tenant-scoped sits behind the token.
		secured := api.Group("")
		secured.Use(middleware.Auth(env.JWTSecret))

		// Orders: confirm transition + spawn trigger + mission reads
		orders := secured.Group("/orders")
		orders.POST("/:id/confirm", h.ConfirmOrder)
		orders.POST("/:id/missions/spawn", h.SpawnOrderMissions)
		orders.GET("/:id/missions", h.GetOrderMissions)

		// Missions: manual/internal entry points + dispatch window read
		missions := secured.Group("/missions")
		missions.GET("", h.GetMissionsWindow)
		missions.POST("/manual", h.SpawnManualMission)
		missions.POST("/internal", h.CreateInternalMission)

		// Vehicle categories
		secured.GET("/vehicle-categories", h.GetVehicleCategories)
	}

	h.SetRouter(r)
	return r
}
