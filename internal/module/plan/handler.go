package plan

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sflix/server/internal/shared/response"
)

// Handler handles HTTP requests for the plan catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new plan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the public catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
}

// RegisterAdminRoutes registers catalog administration routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	plans := r.Group("/plans")
	{
		plans.GET("", h.ListAllPlans)
		plans.POST("", h.CreatePlan)
		plans.PUT("/:id", h.UpdatePlan)
		plans.POST("/:id/toggle", h.TogglePlan)
		plans.DELETE("/:id", h.DeletePlan)
	}
}

// ListPlans returns the plans currently offered.
//
//	@Summary		List plans
//	@Description	List active subscription plans
//	@Tags			Plans
//	@Produce		json
//	@Success		200	{object}	PlansResponse
//	@Router			/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PlansResponse{Plans: plans})
}

// ListAllPlans returns every plan including inactive ones.
//
//	@Summary		List all plans
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	PlansResponse
//	@Router			/admin/plans [get]
func (h *Handler) ListAllPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PlansResponse{Plans: plans})
}

// CreatePlan adds a plan.
//
//	@Summary		Create plan
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		PlanRequest	true	"Plan"
//	@Success		201		{object}	PlanResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Router			/admin/plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, PlanResponse{Plan: p})
}

// UpdatePlan replaces a plan's fields.
//
//	@Summary		Update plan
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string		true	"Plan ID"
//	@Param			request	body		PlanRequest	true	"Plan"
//	@Success		200		{object}	PlanResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Router			/admin/plans/{id} [put]
func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PlanResponse{Plan: p})
}

// TogglePlan flips a plan's visibility.
//
//	@Summary		Toggle plan status
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Plan ID"
//	@Success		200	{object}	PlanResponse
//	@Router			/admin/plans/{id}/toggle [post]
func (h *Handler) TogglePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.Toggle(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PlanResponse{Plan: p})
}

// DeletePlan removes a plan.
//
//	@Summary		Delete plan
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Plan ID"
//	@Success		204
//	@Router			/admin/plans/{id} [delete]
func (h *Handler) DeletePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid plan id")
		return uuid.Nil, false
	}
	return id, true
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrPlanNotFound, Status: http.StatusNotFound, Code: "PLAN_NOT_FOUND"},
	{Err: ErrPlanAmbiguous, Status: http.StatusBadRequest, Code: "PLAN_AMBIGUOUS"},
	{Err: ErrInvalidPlan, Status: http.StatusBadRequest, Code: "INVALID_PLAN"},
	{Err: ErrInvalidDuration, Status: http.StatusBadRequest, Code: "INVALID_DURATION"},
}

func handleError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, errorMappings)
}
