package plan

// PlanRequest is the admin create/update body.
type PlanRequest struct {
	Title            string   `json:"title" binding:"required"`
	Description      string   `json:"description"`
	Price            float64  `json:"price" binding:"required,gt=0"`
	ExternalPriceRef string   `json:"externalPriceRef" binding:"required"`
	DurationType     string   `json:"durationType" binding:"required"`
	CustomDays       int      `json:"customDays"`
	Features         []string `json:"features"`
	Status           string   `json:"status"`
}

// ToInput converts the request into service input.
func (r *PlanRequest) ToInput() *Input {
	return &Input{
		Title:            r.Title,
		Description:      r.Description,
		Price:            r.Price,
		ExternalPriceRef: r.ExternalPriceRef,
		DurationType:     DurationType(r.DurationType),
		CustomDays:       r.CustomDays,
		Features:         r.Features,
		Status:           Status(r.Status),
	}
}

// PlansResponse wraps a plan listing.
type PlansResponse struct {
	Plans []*Plan `json:"plans"`
}

// PlanResponse wraps a single plan.
type PlanResponse struct {
	Plan *Plan `json:"plan"`
}
