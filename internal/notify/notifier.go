// Package notify delivers back-in-stock alerts to a push relay.
package notify

import (
	"context"
	"fmt"
	"strconv"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// AlertPayload contains the data needed to send a back-in-stock notification.
type AlertPayload struct {
	ProductID   string
	DisplayName string
	URL         string
	Price       float64
	Quantity    int
}

// NewAlertPayload builds the payload for a transition found by the engine.
func NewAlertPayload(a *domain.Alert) *AlertPayload {
	return &AlertPayload{
		ProductID:   a.Product.ID,
		DisplayName: a.Product.DisplayName(),
		URL:         a.Product.URL,
		Price:       a.Product.Price,
		Quantity:    a.Product.InventoryQuantity,
	}
}

// Title is the notification headline.
func (p *AlertPayload) Title() string {
	return fmt.Sprintf("Stock Alert: %s is available!", p.DisplayName)
}

// Message is the notification body.
func (p *AlertPayload) Message() string {
	return fmt.Sprintf("%s is back in stock\nPrice: ₹%s\nStock: %d",
		p.DisplayName,
		strconv.FormatFloat(p.Price, 'f', -1, 64),
		p.Quantity,
	)
}

// Notifier defines the interface for sending back-in-stock notifications.
// Each alert is delivered independently.
type Notifier interface {
	SendAlert(ctx context.Context, alert *AlertPayload) error
}
