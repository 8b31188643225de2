package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/services"
	"github.com/weak-excuse/api-go/types"
	"github.com/weak-excuse/api-go/utils"
)

type VoteController struct {
	Incidents *services.IncidentService
}

func NewVoteController(incidents *services.IncidentService) *VoteController {
	return &VoteController{Incidents: incidents}
}

// CastVote godoc
// @Summary Vote on a disputed incident
// @Description Records or replaces the caller's ballot and resolves the incident on a majority
// @Tags votes
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param vote body types.CastVoteRequest true "Ballot"
// @Success 200 {object} services.VoteResult
// @Failure 403,404,409 {object} map[string]interface{}
// @Router /incidents/{id}/votes [post]
func (vc *VoteController) CastVote(c *gin.Context) {
	user := utils.GetUser(c)
	incidentID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}
	var req types.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := vc.Incidents.CastVote(c.Request.Context(), incidentID, user.UserID, *req.Confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListVotes godoc
// @Summary List ballots
// @Description Returns the incident's ballots in the order they were cast
// @Tags votes
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {array} models.Vote
// @Router /incidents/{id}/votes [get]
func (vc *VoteController) ListVotes(c *gin.Context) {
	user := utils.GetUser(c)
	incidentID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	votes, err := vc.Incidents.ListVotes(c.Request.Context(), incidentID, user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}
