package plan

import "errors"

var (
	ErrPlanNotFound    = errors.New("plan not found")
	ErrPlanAmbiguous   = errors.New("more than one active plan has this price")
	ErrInvalidDuration = errors.New("invalid duration policy")
	ErrInvalidPlan     = errors.New("invalid plan")
)
