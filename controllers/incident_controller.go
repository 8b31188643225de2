package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/services"
	"github.com/weak-excuse/api-go/types"
	"github.com/weak-excuse/api-go/utils"
)

type IncidentController struct {
	Incidents *services.IncidentService
}

func NewIncidentController(incidents *services.IncidentService) *IncidentController {
	return &IncidentController{Incidents: incidents}
}

// CreateIncident godoc
// @Summary File an incident
// @Description Accuses a group member, or self-reports when accused_id is the caller
// @Tags incidents
// @Accept json
// @Produce json
// @Param incident body types.CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} models.Incident
// @Failure 403,429 {object} map[string]interface{}
// @Router /incidents [post]
func (ic *IncidentController) CreateIncident(c *gin.Context) {
	user := utils.GetUser(c)
	var req types.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	groupID, ok := utils.ParseUUID(req.GroupID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group_id"})
		return
	}
	accusedID, ok := utils.ParseUUID(req.AccusedID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid accused_id"})
		return
	}

	incident, err := ic.Incidents.CreateIncident(c.Request.Context(), services.CreateIncidentInput{
		GroupID:   groupID,
		AccuserID: user.UserID,
		AccusedID: accusedID,
		Type:      req.Type,
		Severity:  req.Severity,
		Note:      req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, incident)
}

// ListIncidents godoc
// @Summary Group incident feed
// @Description Returns the group's incidents newest first with live vote counts
// @Tags incidents
// @Produce json
// @Param group_id query string true "Group ID"
// @Param limit query integer false "Page size (default: 20, max: 100)"
// @Param offset query integer false "Offset (default: 0)"
// @Success 200 {object} StandardResponse
// @Router /incidents [get]
func (ic *IncidentController) ListIncidents(c *gin.Context) {
	user := utils.GetUser(c)
	var query types.ListIncidentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	groupID, ok := utils.ParseUUID(query.GroupID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group_id"})
		return
	}

	views, err := ic.Incidents.ListIncidents(c.Request.Context(), groupID, user.UserID, query.Limit, query.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    views,
		Meta:    PageMeta{Limit: query.Limit, Offset: query.Offset, Count: len(views)},
	})
}

// GetIncident godoc
// @Summary Get an incident
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} services.IncidentView
// @Router /incidents/{id} [get]
func (ic *IncidentController) GetIncident(c *gin.Context) {
	user := utils.GetUser(c)
	incidentID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	view, err := ic.Incidents.GetIncident(c.Request.Context(), incidentID, user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AcceptIncident godoc
// @Summary Accept an incident
// @Description The accused takes the points of a pending incident
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} models.Incident
// @Failure 403,404,409 {object} map[string]interface{}
// @Router /incidents/{id}/accept [post]
func (ic *IncidentController) AcceptIncident(c *gin.Context) {
	user := utils.GetUser(c)
	incidentID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	incident, err := ic.Incidents.AcceptIncident(c.Request.Context(), incidentID, user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// DenyIncident godoc
// @Summary Deny an incident
// @Description The accused disputes a pending incident and the group votes on it
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} models.Incident
// @Failure 403,404,409 {object} map[string]interface{}
// @Router /incidents/{id}/deny [post]
func (ic *IncidentController) DenyIncident(c *gin.Context) {
	user := utils.GetUser(c)
	incidentID, ok := utils.ParamUUID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	incident, err := ic.Incidents.DenyIncident(c.Request.Context(), incidentID, user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}
