package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// ActivityHandler serves synced activities and their classification.
type ActivityHandler struct {
	activityService service.ActivityService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// SaveActivitiesResponse reports how many activities were written.
type SaveActivitiesResponse struct {
	Saved int `json:"saved"`
}

// SaveActivities godoc
// @Summary Store synced activities
// @Description Accepts activity records as delivered by the fitness-provider sync. Existing records are replaced.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activities body []domain.Activity true "Activities"
// @Success 200 {object} SaveActivitiesResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /activities [post]
func (h *ActivityHandler) SaveActivities(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	var activities []domain.Activity
	if err := c.ShouldBindJSON(&activities); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	saved, err := h.activityService.SaveActivities(c.Request.Context(), athleteID, activities)
	if err != nil {
		if errors.Is(err, service.ErrInvalidActivity) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR: SaveActivities failed for athlete %s: %v", athleteID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to store activities.")
		return
	}
	c.JSON(http.StatusOK, SaveActivitiesResponse{Saved: saved})
}

// ClassifyActivity godoc
// @Summary Classify one activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "Activity ID"
// @Success 200 {object} service.ActivityClassification
// @Failure 404 {object} gin.H "Activity not found"
// @Router /activities/{activityId}/classification [get]
func (h *ActivityHandler) ClassifyActivity(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	activityID, err := strconv.ParseInt(c.Param("activityId"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format.")
		return
	}

	result, err := h.activityService.ClassifyActivity(c.Request.Context(), athleteID, activityID)
	if err != nil {
		if errors.Is(err, service.ErrActivityNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("ERROR: ClassifyActivity %d failed for athlete %s: %v", activityID, athleteID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to classify activity.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClassifyRecent godoc
// @Summary Classify recent activities
// @Description Classifies every activity inside the baseline window against the same baseline.
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.ActivityClassification
// @Router /classifications/recent [get]
func (h *ActivityHandler) ClassifyRecent(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	results, err := h.activityService.ClassifyRecent(c.Request.Context(), athleteID)
	if err != nil {
		log.Printf("ERROR: ClassifyRecent failed for athlete %s: %v", athleteID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to classify activities.")
		return
	}
	c.JSON(http.StatusOK, results)
}
