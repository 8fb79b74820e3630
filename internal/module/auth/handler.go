package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/module/user"
	"github.com/sflix/server/internal/shared/response"
	apperrors "github.com/sflix/server/internal/utils/errors"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers auth routes behind the given middleware, typically
// a rate limiter.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, extra ...gin.HandlerFunc) {
	auth := r.Group("/auth")
	auth.Use(extra...)
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// Register handles user registration.
//
//	@Summary		Register new user
//	@Description	Create an account with email and password and return an identity token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration request"
//	@Success		201		{object}	AuthResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles email and password sign-in.
//
//	@Summary		Sign in
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	AuthResponse
//	@Failure		401		{object}	response.ErrorResponse
//	@Failure		403		{object}	response.ErrorResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS"},
	{Err: apperrors.ErrAccountDisabled, Status: http.StatusForbidden, Code: "ACCOUNT_DISABLED", Message: "account disabled"},
	{Err: ErrInvalidEmail, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: ErrPasswordTooShort, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: user.ErrInvalidUsername, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: user.ErrEmailAlreadyExists, Status: http.StatusConflict, Code: "EMAIL_ALREADY_REGISTERED"},
}

func handleError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, errorMappings)
}
