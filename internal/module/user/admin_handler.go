package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/shared/response"
	"github.com/sflix/server/internal/utils/middleware"
	"github.com/sflix/server/internal/utils/pagination"
)

// AdminHandler handles admin HTTP requests for user management.
type AdminHandler struct {
	service *Service
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers the admin routes. The group is expected to be
// guarded by middleware.RequireAdmin.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/users")
	{
		admin.GET("", h.ListUsers)
		admin.GET("/:id", h.GetUser)
		admin.POST("/:id/disable", h.DisableUser)
		admin.POST("/:id/enable", h.EnableUser)
	}
}

// ListUsers returns a paginated list of users.
//
//	@Summary		List users
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			email		query		string	false	"Email contains"
//	@Param			disabled	query		bool	false	"Disabled flag"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	UserListResponse
//	@Failure		400			{object}	response.ErrorResponse
//	@Router			/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filter UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page := pagination.New()
	if err := c.ShouldBindQuery(page); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	users, total, err := h.service.ListUsers(c.Request.Context(), &filter, page)
	if err != nil {
		handleError(c, err)
		return
	}

	responses := make([]*UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users:    responses,
		PageInfo: page.Info(total),
	})
}

// GetUser returns a user by ID.
//
//	@Summary		Get user
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	UserResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// DisableUser blocks a user from signing in and from entitled content.
//
//	@Summary		Disable user
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	UserResponse
//	@Failure		400	{object}	response.ErrorResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/admin/users/{id}/disable [post]
func (h *AdminHandler) DisableUser(c *gin.Context) {
	h.setDisabled(c, true)
}

// EnableUser restores access for a disabled user.
//
//	@Summary		Enable user
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	UserResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/admin/users/{id}/enable [post]
func (h *AdminHandler) EnableUser(c *gin.Context) {
	h.setDisabled(c, false)
}

func (h *AdminHandler) setDisabled(c *gin.Context, disabled bool) {
	user, err := h.service.SetDisabled(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), disabled)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}
