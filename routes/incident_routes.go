package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/controllers"
)

func SetupIncidentRoutes(protected *gin.RouterGroup, incidentController *controllers.IncidentController) {
	incidents := protected.Group("/incidents")
	{
		incidents.POST("", incidentController.CreateIncident)
		incidents.GET("", incidentController.ListIncidents)
		incidents.GET("/:id", incidentController.GetIncident)
		incidents.POST("/:id/accept", incidentController.AcceptIncident)
		incidents.POST("/:id/deny", incidentController.DenyIncident)
	}
}
