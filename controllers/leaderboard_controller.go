package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/services"
	"github.com/weak-excuse/api-go/types"
	"github.com/weak-excuse/api-go/utils"
)

type LeaderboardController struct {
	Incidents *services.IncidentService
}

func NewLeaderboardController(incidents *services.IncidentService) *LeaderboardController {
	return &LeaderboardController{Incidents: incidents}
}

// GetLeaderboard godoc
// @Summary Group leaderboard
// @Description Ranks active members by points from accepted and confirmed incidents
// @Tags leaderboard
// @Produce json
// @Param id path string true "Group ID"
// @Param window query integer false "Trailing days 1..365 (default: 30); anything else is career"
// @Success 200 {object} map[string]interface{}
// @Router /groups/{id}/leaderboard [get]
func (lc *LeaderboardController) GetLeaderboard(c *gin.Context) {
	user := utils.GetUser(c)
	groupID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	var query types.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := lc.Incidents.Leaderboard(c.Request.Context(), groupID, user.UserID, query.Window)
	if err != nil {
		respondError(c, err)
		return
	}

	window := "career"
	if query.Window > 0 && query.Window <= 365 {
		window = "trailing"
	}
	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"filter": gin.H{
			"window":      query.Window,
			"window_type": window,
		},
	})
}
