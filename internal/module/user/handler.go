package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/shared/response"
	"github.com/sflix/server/internal/utils/middleware"
)

// Handler handles HTTP requests for the caller's own profile.
type Handler struct {
	service *Service
}

// NewHandler creates a new user handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/me", h.GetCurrentUser)
		users.PUT("/me", h.UpdateProfile)
	}
}

// GetCurrentUser returns the current authenticated user.
//
//	@Summary		Get current user profile
//	@Description	Get the profile and subscription of the currently authenticated user
//	@Tags			User
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	UserResponse
//	@Failure		401	{object}	response.ErrorResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/users/me [get]
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.ErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateProfile handles profile updates.
//
//	@Summary		Update user profile
//	@Description	Change the current user's display name
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		UpdateProfileRequest	true	"Update request"
//	@Success		200		{object}	UserResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		401		{object}	response.ErrorResponse
//	@Router			/users/me [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.ErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// --- Helpers ---

var errorMappings = []response.ErrorMapping{
	{Err: ErrUserNotFound, Status: http.StatusNotFound, Code: "USER_NOT_FOUND", Message: "user not found"},
	{Err: ErrEmailAlreadyExists, Status: http.StatusConflict, Code: "EMAIL_ALREADY_REGISTERED"},
	{Err: ErrInvalidUsername, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: ErrCannotDisableSelf, Status: http.StatusBadRequest, Code: "CANNOT_DISABLE_SELF"},
}

func handleError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, errorMappings)
}
