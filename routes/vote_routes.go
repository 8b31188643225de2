package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/controllers"
)

func SetupVoteRoutes(protected *gin.RouterGroup, voteController *controllers.VoteController) {
	incidents := protected.Group("/incidents")
	{
		incidents.POST("/:id/votes", voteController.CastVote)
		incidents.GET("/:id/votes", voteController.ListVotes)
	}
}
