package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
	"github.com/deweiiss/sportMe-sub001/internal/service"
	"github.com/deweiiss/sportMe-sub001/internal/storage"
	"github.com/gin-gonic/gin"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// PlanSummaryResponse is the list view of a stored plan.
type PlanSummaryResponse struct {
	PlanID             string              `json:"planId"`
	PlanName           string              `json:"planName"`
	PlanType           domain.PlanType     `json:"planType"`
	AthleteLevel       domain.AthleteLevel `json:"athleteLevel"`
	StartDate          string              `json:"startDate"`
	TotalDurationWeeks int                 `json:"totalDurationWeeks"`
	ImportedAt         time.Time           `json:"importedAt"`
}

// UpdateDayStatusRequest sets any subset of a day's completion fields.
type UpdateDayStatusRequest struct {
	IsCompleted       *bool               `json:"is_completed"`
	IsMissed          *bool               `json:"is_missed"`
	MatchedActivityID *domain.ActivityRef `json:"matched_activity_id"`
}

// RawPayloadResponse carries a temporary link to the archived generator output.
type RawPayloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func mapPlanToSummary(p *domain.Plan) PlanSummaryResponse {
	return PlanSummaryResponse{
		PlanID:             p.Meta.PlanID,
		PlanName:           p.Meta.PlanName,
		PlanType:           p.Meta.PlanType,
		AthleteLevel:       p.Meta.AthleteLevel,
		StartDate:          p.Meta.StartDate,
		TotalDurationWeeks: p.Meta.TotalDurationWeeks,
		ImportedAt:         p.ImportedAt,
	}
}

// --- Handler Methods ---

// ImportPlan godoc
// @Summary Import a generated training plan
// @Description Decodes the raw generator payload (flattened or object days), stores it and returns decoding warnings.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} service.ImportResult
// @Failure 400 {object} gin.H "Empty body or invalid JSON"
// @Failure 409 {object} gin.H "Plan already imported"
// @Failure 422 {object} gin.H "Required sections missing"
// @Router /plans [post]
func (h *PlanHandler) ImportPlan(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	payload, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	result, err := h.planService.ImportPlan(c.Request.Context(), athleteID, payload)
	if err != nil {
		var malformed *service.MalformedPlanError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &malformed):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "missing": malformed.Missing})
		case errors.Is(err, service.ErrEmptyPayload):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			abortWithError(c, http.StatusBadRequest, "Invalid plan JSON: "+err.Error())
		case errors.Is(err, service.ErrPlanAlreadyExists):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			log.Printf("ERROR: ImportPlan failed for athlete %s: %v", athleteID, err)
			abortWithError(c, http.StatusInternalServerError, "Failed to import training plan.")
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListPlans godoc
// @Summary List the athlete's plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanSummaryResponse
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	plans, err := h.planService.ListPlans(c.Request.Context(), athleteID)
	if err != nil {
		log.Printf("ERROR: ListPlans failed for athlete %s: %v", athleteID, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve training plans.")
		return
	}
	responses := make([]PlanSummaryResponse, len(plans))
	for i := range plans {
		responses[i] = mapPlanToSummary(&plans[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetPlan godoc
// @Summary Get a plan with its full schedule
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} domain.Plan
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), athleteID, c.Param("planId"))
	if err != nil {
		h.abortPlanError(c, "GetPlan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdateDayStatus godoc
// @Summary Mark a plan day completed or missed
// @Description Week and day are 1-based positions in the schedule.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param week path int true "Week position"
// @Param day path int true "Day position"
// @Param status body UpdateDayStatusRequest true "Fields to set"
// @Success 200 {object} domain.Plan
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Plan or day not found"
// @Router /plans/{planId}/weeks/{week}/days/{day} [patch]
func (h *PlanHandler) UpdateDayStatus(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	weekPos, err := strconv.Atoi(c.Param("week"))
	if err != nil || weekPos < 1 {
		abortWithError(c, http.StatusBadRequest, "Week must be a positive integer.")
		return
	}
	dayPos, err := strconv.Atoi(c.Param("day"))
	if err != nil || dayPos < 1 {
		abortWithError(c, http.StatusBadRequest, "Day must be a positive integer.")
		return
	}

	var req UpdateDayStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.IsCompleted == nil && req.IsMissed == nil && req.MatchedActivityID == nil {
		abortWithError(c, http.StatusBadRequest, "At least one of is_completed, is_missed or matched_activity_id is required.")
		return
	}

	update := repository.DayStatusUpdate{
		IsCompleted:       req.IsCompleted,
		IsMissed:          req.IsMissed,
		MatchedActivityID: req.MatchedActivityID,
	}
	plan, err := h.planService.UpdateDayStatus(c.Request.Context(), athleteID, c.Param("planId"), weekPos-1, dayPos-1, update)
	if err != nil {
		h.abortPlanError(c, "UpdateDayStatus", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetCompliance godoc
// @Summary Compliance report, suggestions and pending check-ins
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param date query string false "Evaluate as of this date (YYYY-MM-DD)"
// @Success 200 {object} service.ComplianceOverview
// @Failure 400 {object} gin.H "Invalid date"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId}/compliance [get]
func (h *PlanHandler) GetCompliance(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	var overview *service.ComplianceOverview
	if date := c.Query("date"); date != "" {
		overview, err = h.planService.AnalyzeComplianceOnDate(c.Request.Context(), athleteID, c.Param("planId"), date)
	} else {
		overview, err = h.planService.AnalyzeCompliance(c.Request.Context(), athleteID, c.Param("planId"), time.Time{})
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			abortWithError(c, http.StatusBadRequest, "date must use the YYYY-MM-DD format.")
			return
		}
		h.abortPlanError(c, "GetCompliance", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetRawPayload godoc
// @Summary Download link for the archived generator payload
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} RawPayloadResponse
// @Failure 404 {object} gin.H "Plan not found or payload not archived"
// @Router /plans/{planId}/raw [get]
func (h *PlanHandler) GetRawPayload(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	url, err := h.planService.GetRawPayloadURL(c.Request.Context(), athleteID, c.Param("planId"))
	if err != nil {
		h.abortPlanError(c, "GetRawPayload", err)
		return
	}
	c.JSON(http.StatusOK, RawPayloadResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(storage.DefaultPresignedURLExpiry),
	})
}

func (h *PlanHandler) abortPlanError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrDayNotFound),
		errors.Is(err, service.ErrRawPayloadUnavailable):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAthleteRequired):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("ERROR: %s failed: %v", op, err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}
