package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sflix/server/internal/module/payment/provider"
	"github.com/sflix/server/internal/module/plan"
	"github.com/sflix/server/internal/utils/metrics"
	"github.com/sflix/server/internal/utils/requestctx"
	"go.uber.org/zap"
)

// Config holds lifecycle configuration.
type Config struct {
	// FrontendURL is the base of the checkout success and cancel redirects.
	FrontendURL string
}

// Service manages the subscription lifecycle.
type Service struct {
	store    Store
	plans    PlanCatalog
	provider provider.CheckoutProvider
	config   *Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new subscription service.
func NewService(
	store Store,
	plans PlanCatalog,
	prov provider.CheckoutProvider,
	config *Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		plans:    plans,
		provider: prov,
		config:   config,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// --- Checkout ---

// CheckoutInput selects a plan for a user. PlanID, when set, takes
// precedence over the price in Plan.
type CheckoutInput struct {
	Plan       string
	PlanID     string
	CustomerID string
}

// CheckoutResult is the session the client is redirected to.
type CheckoutResult struct {
	SessionID string
	URL       string
}

// StartCheckout opens a provider checkout session for the selected plan and
// records a pending subscription. Nothing is written unless the session
// was created. A currently entitled grant is left in force: only the new
// session id is recorded, and the verifier replaces the grant once paid.
func (s *Service) StartCheckout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	selected, err := s.resolveSelection(ctx, in)
	if err != nil {
		s.metrics.RecordCheckout("rejected")
		return nil, err
	}
	customerID := strings.TrimSpace(in.CustomerID)

	current, err := s.store.GetSubscription(ctx, customerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.RecordCheckout("store_error")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, &provider.CheckoutRequest{
		PriceRef:        selected.ExternalPriceRef,
		ClientReference: customerID,
		SuccessURL:      s.successURL(),
		CancelURL:       s.cancelURL(),
	})
	if err != nil {
		s.metrics.RecordCheckout("provider_error")
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	now := s.now()
	patch, entitled := checkoutPatch(current, session.ID, selected, now)
	if err := s.store.MergeSubscription(ctx, customerID, patch); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			s.metrics.RecordCheckout("conflict")
			return nil, err
		}
		s.metrics.RecordCheckout("store_error")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.metrics.RecordCheckout("created")
	requestctx.Logger(ctx, s.logger).Info("checkout session created",
		zap.String("user_id", customerID),
		zap.String("session_id", session.ID),
		zap.String("plan_id", selected.ID.String()),
		zap.String("price_ref", selected.ExternalPriceRef),
		zap.Bool("grant_kept", entitled),
	)

	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// checkoutPatch builds the write for a new checkout session. Over an
// entitled grant it records the session only; otherwise the record becomes
// pending for the selected plan. Writes over an existing record are
// conditional on the version that was read.
func checkoutPatch(current *Subscription, sessionID string, selected *plan.Plan, now time.Time) (*Patch, bool) {
	if current != nil && IsEntitled(*current, now) {
		return &Patch{
			SessionID: ptr(sessionID),
			UpdatedAt: &now,
			IfVersion: ptr(current.Version),
		}, true
	}

	patch := &Patch{
		SessionID: ptr(sessionID),
		PriceRef:  ptr(selected.ExternalPriceRef),
		PlanType:  ptr(selected.PriceKey()),
		Status:    ptr(StatusPending),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if current != nil {
		patch.IfVersion = ptr(current.Version)
	}
	return patch, false
}

func (s *Service) resolveSelection(ctx context.Context, in *CheckoutInput) (*plan.Plan, error) {
	if in == nil || strings.TrimSpace(in.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customerId is required", ErrInvalidInput)
	}

	if id := strings.TrimSpace(in.PlanID); id != "" {
		planID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: planId is malformed", ErrInvalidInput)
		}
		p, err := s.plans.Get(ctx, planID)
		if err != nil {
			return nil, catalogError(err)
		}
		if !p.IsActive() {
			return nil, plan.ErrPlanNotFound
		}
		return p, nil
	}

	raw := strings.TrimSpace(in.Plan)
	if raw == "" {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("%w: plan must be a positive price", ErrInvalidInput)
	}
	p, err := s.plans.FindByPrice(ctx, price)
	if err != nil {
		return nil, catalogError(err)
	}
	return p, nil
}

func (s *Service) successURL() string {
	return strings.TrimRight(s.config.FrontendURL, "/") + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s *Service) cancelURL() string {
	return strings.TrimRight(s.config.FrontendURL, "/") + "/cancel"
}

// --- Verification ---

// VerifyAndActivate confirms a paid checkout session belongs to userID and
// commits the active subscription derived from the provider's billing
// period. Each step gates the next; the store write is last and is not
// retried.
func (s *Service) VerifyAndActivate(ctx context.Context, sessionID, userID string) (*Subscription, error) {
	sub, err := s.verifyAndActivate(ctx, strings.TrimSpace(sessionID), strings.TrimSpace(userID))
	if err != nil {
		s.metrics.RecordActivation(activationOutcome(err))
		requestctx.Logger(ctx, s.logger).Warn("payment verification failed",
			zap.String("user_id", userID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.RecordActivation("activated")
	return sub, nil
}

func (s *Service) verifyAndActivate(ctx context.Context, sessionID, userID string) (*Subscription, error) {
	if sessionID == "" || userID == "" {
		return nil, fmt.Errorf("%w: sessionId and user id are required", ErrInvalidInput)
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, provider.ErrResourceMissing) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	if !session.IsPaid() {
		return nil, ErrPaymentNotCompleted
	}
	if session.ClientReference != userID {
		return nil, ErrSessionUserMismatch
	}
	if session.SubscriptionRef == "" {
		return nil, fmt.Errorf("%w: session %s has no subscription", ErrPaymentProvider, sessionID)
	}

	billing, err := s.provider.GetSubscription(ctx, session.SubscriptionRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	start := time.Unix(billing.PeriodStart, 0).UTC()
	end := time.Unix(billing.PeriodEnd, 0).UTC()
	if end.Before(start) {
		return nil, fmt.Errorf("%w: billing period ends before it starts", ErrPaymentProvider)
	}

	matched, err := s.matchPlan(ctx, billing)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := s.now()
	patch := &Patch{
		SessionID:       ptr(sessionID),
		PlanID:          ptr(billing.PlanID),
		PlanType:        ptr(UnknownPlanType),
		SubscriptionRef: ptr(billing.ID),
		Status:          ptr(StatusActive),
		PlanStartDate:   &start,
		PlanEndDate:     &end,
		DurationType:    ptr(""),
		Duration:        ptr(WholeDays(start, end)),
		UpdatedAt:       &now,
	}
	if billing.PriceID != "" {
		patch.PriceRef = ptr(billing.PriceID)
	}
	if matched != nil {
		patch.PlanType = ptr(matched.PriceKey())
		patch.DurationType = ptr(string(matched.DurationType))
	}

	var base Subscription
	if current != nil {
		if !CanTransition(current.Status, StatusActive) {
			return nil, ErrInvalidStatusTransition
		}
		base = *current
		patch.IfVersion = ptr(current.Version)
	}

	if err := s.store.MergeSubscription(ctx, userID, patch); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	patch.Apply(&base)
	requestctx.Logger(ctx, s.logger).Info("subscription activated",
		zap.String("user_id", userID),
		zap.String("subscription_ref", billing.ID),
		zap.String("plan_type", base.PlanType),
		zap.Time("plan_end_date", end),
	)
	return &base, nil
}

// matchPlan resolves the billed plan by provider price id, then by amount.
// A nil plan means the billing matched nothing in the catalog.
func (s *Service) matchPlan(ctx context.Context, billing *provider.Subscription) (*plan.Plan, error) {
	if billing.PriceID != "" {
		p, err := s.plans.FindByExternalRef(ctx, billing.PriceID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, plan.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
	}

	p, err := s.plans.FindByPrice(ctx, float64(billing.AmountMinor)/100)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, plan.ErrPlanNotFound):
		return nil, nil
	case errors.Is(err, plan.ErrPlanAmbiguous):
		requestctx.Logger(ctx, s.logger).Warn("billed amount matches several plans",
			zap.String("subscription_ref", billing.ID),
			zap.Int64("amount_minor", billing.AmountMinor),
		)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
}

// WholeDays returns the number of complete days between start and end.
func WholeDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}

func activationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrPaymentNotCompleted):
		return "not_paid"
	case errors.Is(err, ErrSessionUserMismatch):
		return "user_mismatch"
	case errors.Is(err, ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPaymentProvider):
		return "provider_error"
	default:
		return "store_error"
	}
}

// --- Entitlement ---

// View is a subscription reconciled against the current time.
type View struct {
	Subscription Subscription `json:"subscription"`
	Entitled     bool         `json:"entitled"`
}

// CurrentSubscription returns the user's subscription reconciled against
// now. An expired grant is demoted in the store on a best-effort basis.
func (s *Service) CurrentSubscription(ctx context.Context, userID string) (*View, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &View{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := s.now()
	reconciled := Reconcile([]Record{{UserID: userID, Subscription: *sub}}, now)[0].Subscription
	if reconciled.Status != sub.Status {
		if _, err := s.store.DemoteExpired(ctx, userID, now); err != nil {
			requestctx.Logger(ctx, s.logger).Warn("read-time demotion failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return &View{
		Subscription: reconciled,
		Entitled:     IsEntitled(reconciled, now),
	}, nil
}

// IsEntitled reports whether the user currently has access to gated content.
func (s *Service) IsEntitled(ctx context.Context, userID string) (bool, error) {
	view, err := s.CurrentSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	return view.Entitled, nil
}

// --- Administration ---

// AdminView is a subscription listed for administrators.
type AdminView struct {
	UserID       string       `json:"userId"`
	Email        string       `json:"email"`
	Username     string       `json:"username,omitempty"`
	PlanTitle    string       `json:"planTitle,omitempty"`
	Entitled     bool         `json:"entitled"`
	Subscription Subscription `json:"subscription"`
}

// ListSubscriptions returns every user holding a subscription, labelled with
// the catalog plan their price reference points at.
func (s *Service) ListSubscriptions(ctx context.Context) ([]*AdminView, error) {
	records, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := s.now()
	titles := make(map[string]string)
	views := make([]*AdminView, 0, len(records))
	for _, r := range Reconcile(records, now) {
		view := &AdminView{
			UserID:       r.UserID,
			Email:        r.Email,
			Username:     r.Username,
			Entitled:     IsEntitled(r.Subscription, now),
			Subscription: r.Subscription,
		}
		if ref := r.Subscription.PriceRef; ref != "" {
			title, ok := titles[ref]
			if !ok {
				if p, err := s.plans.FindByExternalRef(ctx, ref); err == nil {
					title = p.Title
				}
				titles[ref] = title
			}
			view.PlanTitle = title
		}
		views = append(views, view)
	}
	return views, nil
}

// AdminUpdateInput edits a user's grant directly.
type AdminUpdateInput struct {
	PlanID        string
	DurationType  string
	CustomDays    int
	PlanStartDate time.Time
	Status        Status
}

// AdminUpdate replaces a user's grant with one computed from a catalog plan.
// The end date is always derived from the start date and duration policy.
func (s *Service) AdminUpdate(ctx context.Context, userID string, in *AdminUpdateInput) (*Subscription, error) {
	if userID == "" || in == nil || in.PlanStartDate.IsZero() {
		return nil, fmt.Errorf("%w: user id and planStartDate are required", ErrInvalidInput)
	}
	planID, err := uuid.Parse(in.PlanID)
	if err != nil {
		return nil, fmt.Errorf("%w: planId is malformed", ErrInvalidInput)
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if status != StatusActive && status != StatusInactive {
		return nil, fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}

	p, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, catalogError(err)
	}
	policy := p.Policy()
	if in.DurationType != "" {
		policy = plan.DurationPolicy{
			Type:       plan.DurationType(strings.ToUpper(in.DurationType)),
			CustomDays: in.CustomDays,
		}
	}
	start := in.PlanStartDate.UTC()
	end, err := plan.ComputeEndDate(start, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	current, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if !CanTransition(current.Status, status) {
		return nil, ErrInvalidStatusTransition
	}

	now := s.now()
	patch := &Patch{
		PriceRef:      ptr(p.ExternalPriceRef),
		PlanType:      ptr(p.PriceKey()),
		Status:        ptr(status),
		PlanStartDate: &start,
		PlanEndDate:   &end,
		DurationType:  ptr(string(policy.Type)),
		Duration:      ptr(policy.Days()),
		UpdatedAt:     &now,
		IfVersion:     ptr(current.Version),
	}
	if err := s.store.MergeSubscription(ctx, userID, patch); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	updated := *current
	patch.Apply(&updated)
	requestctx.Logger(ctx, s.logger).Info("subscription edited by admin",
		zap.String("user_id", userID),
		zap.String("plan_id", p.ID.String()),
		zap.String("status", string(status)),
	)
	return &updated, nil
}

// Deactivate ends a user's grant immediately.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	current, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if current.IsZero() {
		return ErrNotFound
	}

	now := s.now()
	patch := &Patch{Status: ptr(StatusInactive), UpdatedAt: &now}
	if err := s.store.MergeSubscription(ctx, userID, patch); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	requestctx.Logger(ctx, s.logger).Info("subscription deactivated", zap.String("user_id", userID))
	return nil
}

// DeactivateBySubscriptionRef ends the grant backed by a provider subscription.
func (s *Service) DeactivateBySubscriptionRef(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: subscription reference is required", ErrInvalidInput)
	}
	rec, err := s.store.FindBySubscriptionRef(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return s.Deactivate(ctx, rec.UserID)
}

func catalogError(err error) error {
	if errors.Is(err, plan.ErrPlanNotFound) || errors.Is(err, plan.ErrPlanAmbiguous) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}
