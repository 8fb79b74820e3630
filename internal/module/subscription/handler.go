package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/module/plan"
	"github.com/sflix/server/internal/shared/response"
	"github.com/sflix/server/internal/utils/middleware"
)

// Handler handles HTTP requests for the subscription lifecycle.
type Handler struct {
	service *Service
}

// NewHandler creates a new subscription handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the checkout and verification routes. They accept
// anonymous callers; a bearer token, when present, must match the user in
// the body.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, extra ...gin.HandlerFunc) {
	checkout := append(append([]gin.HandlerFunc{}, extra...), h.CreateCheckoutSession)
	r.POST("/checkout-session", checkout...)
	r.POST("/create-subscription-checkout-session", checkout...)
	r.POST("/payment-success", h.PaymentSuccess)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/subscription", h.GetSubscription)
}

// RegisterAdminRoutes registers subscription administration routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	subs := r.Group("/subscriptions")
	{
		subs.GET("", h.ListSubscriptions)
		subs.PUT("/:userId", h.UpdateSubscription)
		subs.POST("/:userId/deactivate", h.DeactivateSubscription)
	}
}

// CreateCheckoutSession starts a hosted checkout for a plan.
//
//	@Summary		Create checkout session
//	@Description	Open a payment-provider checkout session and record a pending subscription
//	@Tags			Subscription
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckoutRequest	true	"Plan selection"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/checkout-session [post]
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	if !h.callerMayActFor(c, req.CustomerID) {
		return
	}

	result, err := h.service.StartCheckout(c.Request.Context(), &CheckoutInput{
		Plan:       req.Plan.String(),
		PlanID:     req.PlanID,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		response.HandleErrorWithDefault(c, err, checkoutErrorMappings)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		Session: SessionResponse{ID: result.SessionID, URL: result.URL},
	})
}

// PaymentSuccess verifies a completed checkout and activates the subscription.
//
//	@Summary		Verify payment
//	@Description	Confirm a paid checkout session and activate the subscription
//	@Tags			Subscription
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PaymentSuccessRequest	true	"Session and user"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/payment-success [post]
func (h *Handler) PaymentSuccess(c *gin.Context) {
	var req PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	if !h.callerMayActFor(c, req.UserID) {
		return
	}

	if _, err := h.service.VerifyAndActivate(c.Request.Context(), req.SessionID, req.UserID); err != nil {
		response.HandleErrorWithDefault(c, err, verifyErrorMappings)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Payment verified successfully"})
}

// GetSubscription returns the caller's subscription and entitlement.
//
//	@Summary		Current subscription
//	@Tags			Subscription
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	View
//	@Router			/subscription [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	view, err := h.service.CurrentSubscription(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleErrorWithDefault(c, err, adminErrorMappings)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListSubscriptions lists every user holding a subscription.
//
//	@Summary		List subscriptions
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	SubscriptionsResponse
//	@Router			/admin/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	views, err := h.service.ListSubscriptions(c.Request.Context())
	if err != nil {
		response.HandleErrorWithDefault(c, err, adminErrorMappings)
		return
	}
	c.JSON(http.StatusOK, SubscriptionsResponse{Subscriptions: views})
}

// UpdateSubscription edits a user's grant.
//
//	@Summary		Edit subscription
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			userId	path		string				true	"User ID"
//	@Param			request	body		AdminUpdateRequest	true	"Grant"
//	@Success		200		{object}	Subscription
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/admin/subscriptions/{userId} [put]
func (h *Handler) UpdateSubscription(c *gin.Context) {
	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	sub, err := h.service.AdminUpdate(c.Request.Context(), c.Param("userId"), &AdminUpdateInput{
		PlanID:        req.PlanID,
		DurationType:  req.DurationType,
		CustomDays:    req.CustomDays,
		PlanStartDate: req.PlanStartDate,
		Status:        Status(req.Status),
	})
	if err != nil {
		response.HandleErrorWithDefault(c, err, adminErrorMappings)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeactivateSubscription ends a user's grant.
//
//	@Summary		Deactivate subscription
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			userId	path		string	true	"User ID"
//	@Success		200		{object}	MessageResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Router			/admin/subscriptions/{userId}/deactivate [post]
func (h *Handler) DeactivateSubscription(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("userId")); err != nil {
		response.HandleErrorWithDefault(c, err, adminErrorMappings)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Subscription deactivated"})
}

// callerMayActFor rejects an authenticated caller naming another user.
func (h *Handler) callerMayActFor(c *gin.Context, userID string) bool {
	caller := middleware.GetUserID(c)
	if caller == "" || caller == userID || middleware.IsAdmin(c) {
		return true
	}
	response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "cannot act for another user")
	return false
}

var checkoutErrorMappings = []response.ErrorMapping{
	{Err: ErrInvalidInput, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: plan.ErrPlanNotFound, Status: http.StatusBadRequest, Code: "PLAN_NOT_FOUND"},
	{Err: plan.ErrPlanAmbiguous, Status: http.StatusBadRequest, Code: "PLAN_AMBIGUOUS"},
	{Err: ErrConcurrentUpdate, Status: http.StatusConflict, Code: "CONCURRENT_UPDATE"},
	{Err: ErrPaymentProvider, Status: http.StatusInternalServerError, Code: "PAYMENT_PROVIDER_ERROR"},
	{Err: ErrStore, Status: http.StatusInternalServerError, Code: "STORE_ERROR"},
}

var verifyErrorMappings = []response.ErrorMapping{
	{Err: ErrInvalidInput, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: ErrSessionNotFound, Status: http.StatusInternalServerError, Code: "SESSION_NOT_FOUND"},
	{Err: ErrPaymentNotCompleted, Status: http.StatusInternalServerError, Code: "PAYMENT_NOT_COMPLETED"},
	{Err: ErrSessionUserMismatch, Status: http.StatusInternalServerError, Code: "SESSION_USER_MISMATCH"},
	{Err: ErrInvalidStatusTransition, Status: http.StatusInternalServerError, Code: "INVALID_STATUS_TRANSITION"},
	{Err: ErrConcurrentUpdate, Status: http.StatusInternalServerError, Code: "CONCURRENT_UPDATE"},
	{Err: ErrPaymentProvider, Status: http.StatusInternalServerError, Code: "PAYMENT_PROVIDER_ERROR"},
	{Err: ErrStore, Status: http.StatusInternalServerError, Code: "STORE_ERROR"},
}

var adminErrorMappings = []response.ErrorMapping{
	{Err: ErrInvalidInput, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Err: plan.ErrPlanNotFound, Status: http.StatusBadRequest, Code: "PLAN_NOT_FOUND"},
	{Err: ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: ErrInvalidStatusTransition, Status: http.StatusConflict, Code: "INVALID_STATUS_TRANSITION"},
	{Err: ErrConcurrentUpdate, Status: http.StatusConflict, Code: "CONCURRENT_UPDATE"},
	{Err: ErrStore, Status: http.StatusInternalServerError, Code: "STORE_ERROR"},
}
