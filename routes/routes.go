package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/controllers"
	"github.com/weak-excuse/api-go/middleware"
	"github.com/weak-excuse/api-go/services"
)

func SetupRoutes(r *gin.Engine, incidents *services.IncidentService, jwtSecret string) {
	// Initialize controllers
	incidentController := controllers.NewIncidentController(incidents)
	voteController := controllers.NewVoteController(incidents)
	leaderboardController := controllers.NewLeaderboardController(incidents)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtSecret))
	{
		SetupIncidentRoutes(protected, incidentController)
		SetupVoteRoutes(protected, voteController)
		SetupLeaderboardRoutes(protected, leaderboardController)
	}
}
