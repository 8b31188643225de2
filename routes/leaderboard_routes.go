package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/controllers"
)

func SetupLeaderboardRoutes(protected *gin.RouterGroup, leaderboardController *controllers.LeaderboardController) {
	groups := protected.Group("/groups")
	{
		groups.GET("/:id/leaderboard", leaderboardController.GetLeaderboard)
	}
}
