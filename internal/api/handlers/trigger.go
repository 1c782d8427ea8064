package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// Checker runs a stock check.
type Checker interface {
	RunCheck(ctx context.Context) (*domain.RunResult, error)
}

// CheckHandler handles manual check trigger requests. Requests beyond the
// limiter's budget are rejected so the storefront is not hammered.
type CheckHandler struct {
	checker Checker
	limiter *rate.Limiter
}

// NewCheckHandler creates a new CheckHandler. A nil limiter means no limit.
func NewCheckHandler(c Checker, limiter *rate.Limiter) *CheckHandler {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &CheckHandler{checker: c, limiter: limiter}
}

// CheckOutput is the response body for the check endpoint.
type CheckOutput struct {
	Body *domain.RunResult
}

// Check runs one stock check synchronously.
func (h *CheckHandler) Check(ctx context.Context, _ *struct{}) (*CheckOutput, error) {
	if !h.limiter.Allow() {
		metrics.TriggerThrottledTotal.Inc()
		return nil, huma.Error429TooManyRequests("a check ran recently, try again later")
	}

	// A run that has started finishes even if the caller goes away.
	res, err := h.checker.RunCheck(context.WithoutCancel(ctx))
	if err != nil {
		return nil, huma.Error502BadGateway("check failed: " + err.Error())
	}

	return &CheckOutput{Body: res}, nil
}

// RegisterCheckRoutes registers the trigger endpoint with the Huma API.
func RegisterCheckRoutes(api huma.API, h *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-check",
		Method:      http.MethodPost,
		Path:        "/api/v1/check",
		Summary:     "Trigger a stock check",
		Description: "Fetches the catalog, updates the status map and sends alerts for " +
			"products that came back in stock.",
		Tags:   []string{"check"},
		Errors: []int{http.StatusTooManyRequests, http.StatusBadGateway},
	}, h.Check)
}
