package api

import (
	"net/http"

	"github.com/deweiiss/sportMe-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	activityService service.ActivityService,
) {
	planHandler := NewPlanHandler(planService)
	activityHandler := NewActivityHandler(activityService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	protected := router.Group("/api/v1")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			athleteID, err := getAthleteIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get athlete ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"athleteId": athleteID})
		})

		// --- Training Plans ---
		plans := protected.Group("/plans")
		{
			// POST /api/v1/plans - body is the raw generator payload
			plans.POST("", planHandler.ImportPlan)
			plans.GET("", planHandler.ListPlans)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.GET("/:planId/raw", planHandler.GetRawPayload)
			plans.GET("/:planId/compliance", planHandler.GetCompliance)
			// Week and day are 1-based schedule positions
			plans.PATCH("/:planId/weeks/:week/days/:day", planHandler.UpdateDayStatus)
		}

		// --- Activities ---
		activities := protected.Group("/activities")
		{
			activities.POST("", activityHandler.SaveActivities)
			activities.GET("/:activityId/classification", activityHandler.ClassifyActivity)
		}
		protected.GET("/classifications/recent", activityHandler.ClassifyRecent)
	}
}
