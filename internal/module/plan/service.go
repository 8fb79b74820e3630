package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sflix/server/internal/utils/metrics"
	"github.com/sflix/server/internal/utils/retry"
	"github.com/sflix/server/internal/utils/sanitize"
	"go.uber.org/zap"
)

// Catalog is the read contract other modules depend on.
type Catalog interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	Get(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindByPrice(ctx context.Context, price float64) (*Plan, error)
	FindByExternalRef(ctx context.Context, ref string) (*Plan, error)
}

// Input carries the editable fields of a plan.
type Input struct {
	Title            string
	Description      string
	Price            float64
	ExternalPriceRef string
	DurationType     DurationType
	CustomDays       int
	Features         []string
	Status           Status
}

// Service serves the plan catalog and its administration.
type Service struct {
	repo    Repository
	cache   Cache
	retry   retry.Policy
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new plan service. cache and m may be nil.
func NewService(repo Repository, cache Cache, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		retry:   retry.DefaultPolicy(),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// --- Catalog reads ---

// ListPlans returns every plan; an empty catalog yields an empty slice.
func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	if s.cache != nil {
		plans, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("plan cache read failed", zap.Error(err))
		}
		if ok {
			s.metrics.RecordCacheHit("plans")
			return plans, nil
		}
		s.metrics.RecordCacheMiss("plans")
	}

	var plans []*Plan
	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		var err error
		plans, err = s.repo.List(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, plans); err != nil {
			s.logger.Warn("plan cache write failed", zap.Error(err))
		}
	}
	return plans, nil
}

// ListActive returns the plans currently offered to viewers.
func (s *Service) ListActive(ctx context.Context) ([]*Plan, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return active, nil
}

// Get returns a plan by its stable id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Plan, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPlanNotFound
}

// FindByPrice resolves an active plan by price. Two active plans sharing a
// price make the lookup ambiguous.
func (s *Service) FindByPrice(ctx context.Context, price float64) (*Plan, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var found *Plan
	for _, p := range active {
		if p.Price != price {
			continue
		}
		if found != nil {
			return nil, ErrPlanAmbiguous
		}
		found = p
	}
	if found == nil {
		return nil, ErrPlanNotFound
	}
	return found, nil
}

// FindByExternalRef resolves a plan by the payment provider's price reference.
// Inactive plans still match so that existing grants can be labelled.
func (s *Service) FindByExternalRef(ctx context.Context, ref string) (*Plan, error) {
	if ref == "" {
		return nil, ErrPlanNotFound
	}
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.ExternalPriceRef == ref {
			return p, nil
		}
	}
	return nil, ErrPlanNotFound
}

// --- Administration ---

// Create adds a plan to the catalog.
func (s *Service) Create(ctx context.Context, in *Input) (*Plan, error) {
	in = normalizeInput(in)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Plan{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(p, in)
	if p.Status == "" {
		p.Status = StatusActive
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("plan created",
		zap.String("plan_id", p.ID.String()),
		zap.Float64("price", p.Price),
		zap.String("duration_type", string(p.DurationType)),
	)
	return p, nil
}

// Update replaces the editable fields of a plan.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in *Input) (*Plan, error) {
	in = normalizeInput(in)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := p.Status
	applyInput(p, in)
	if p.Status == "" {
		p.Status = status
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Toggle flips a plan between active and inactive.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsActive() {
		p.Status = StatusInactive
	} else {
		p.Status = StatusActive
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("plan toggled", zap.String("plan_id", id.String()), zap.String("status", string(p.Status)))
	return p, nil
}

// Delete removes a plan. Grants already made from it keep their snapshot.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error("plan cache invalidation failed", zap.Error(err))
	}
}

func normalizeInput(in *Input) *Input {
	if in == nil {
		return &Input{}
	}
	out := *in
	out.Title = sanitize.Text(in.Title)
	out.Description = sanitize.Text(in.Description)
	out.ExternalPriceRef = strings.TrimSpace(in.ExternalPriceRef)
	out.DurationType = DurationType(strings.ToUpper(strings.TrimSpace(string(in.DurationType))))
	out.Features = sanitize.Strings(append([]string(nil), in.Features...))
	if out.DurationType != DurationCustom {
		out.CustomDays = 0
	}
	return &out
}

func validateInput(in *Input) error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPlan)
	case in.ExternalPriceRef == "":
		return fmt.Errorf("%w: externalPriceRef is required", ErrInvalidPlan)
	case in.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidPlan)
	case in.Status != "" && in.Status != StatusActive && in.Status != StatusInactive:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPlan, in.Status)
	}
	if err := (DurationPolicy{Type: in.DurationType, CustomDays: in.CustomDays}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return nil
}

func applyInput(p *Plan, in *Input) {
	p.Title = in.Title
	p.Description = in.Description
	p.Price = in.Price
	p.ExternalPriceRef = in.ExternalPriceRef
	p.DurationType = in.DurationType
	p.CustomDays = in.CustomDays
	p.Features = in.Features
	if in.Status != "" {
		p.Status = in.Status
	}
}

var _ Catalog = (*Service)(nil)
