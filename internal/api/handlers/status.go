package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/amul-stock-tracker/pkg/picker"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// StateLoader reads the persisted status map.
type StateLoader interface {
	Load(ctx context.Context) (domain.StatusMap, error)
}

// RunReporter exposes the monitor settings and the last completed run.
type RunReporter interface {
	Pincode() string
	Targets() domain.TargetSet
	LastResult() *domain.RunResult
}

// ProductStatus is one entry of the status map with its display label.
type ProductStatus struct {
	ID       string        `json:"id" example:"paneer-400g" doc:"Product identifier"`
	Label    string        `json:"label" example:"Paneer 400g" doc:"Display name"`
	Status   domain.Status `json:"status" enum:"available,unavailable" doc:"Last-known availability"`
	Targeted bool          `json:"targeted" doc:"Whether alerts fire for this product"`
}

// StatusBody is the response body for GET /api/v1/status.
type StatusBody struct {
	Pincode   string            `json:"pincode" example:"411001" doc:"Monitored delivery pincode"`
	Targets   []string          `json:"targets" doc:"Targeted identifiers; empty means all"`
	Total     int               `json:"total" doc:"Number of known products"`
	Available int               `json:"available" doc:"Number of products currently available"`
	Products  []ProductStatus   `json:"products" doc:"Known products, sorted by identifier"`
	LastRun   *domain.RunResult `json:"last_run,omitempty" doc:"Most recent completed check in this process"`
}

// StatusOutput is the response for GET /api/v1/status.
type StatusOutput struct {
	Body StatusBody
}

// StatusHandler serves the current status map.
type StatusHandler struct {
	state  StateLoader
	runner RunReporter
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(s StateLoader, r RunReporter) *StatusHandler {
	return &StatusHandler{state: s, runner: r}
}

// GetStatus returns the persisted status map annotated with labels and
// targeting.
func (h *StatusHandler) GetStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	statuses, err := h.state.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load state")
	}

	body := NewStatusBody(statuses, h.runner.Pincode(), h.runner.Targets())
	body.LastRun = h.runner.LastResult()
	return &StatusOutput{Body: body}, nil
}

// NewStatusBody annotates a status map with labels and targeting.
func NewStatusBody(statuses domain.StatusMap, pincode string, targets domain.TargetSet) StatusBody {
	body := StatusBody{
		Pincode:   pincode,
		Targets:   targets.IDs(),
		Total:     len(statuses),
		Available: statuses.CountAvailable(),
		Products:  make([]ProductStatus, 0, len(statuses)),
	}
	if body.Targets == nil {
		body.Targets = []string{}
	}
	for _, id := range statuses.Keys() {
		body.Products = append(body.Products, ProductStatus{
			ID:       id,
			Label:    picker.Label(id),
			Status:   statuses[id],
			Targeted: targets.Includes(id),
		})
	}
	return body
}

// RegisterStatusRoutes registers the status route on the Huma API.
func RegisterStatusRoutes(api huma.API, h *StatusHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Get stock status",
		Description: "Returns the persisted availability of every known product and the last check result.",
		Tags:        []string{"status"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetStatus)
}
