// Package domain defines the core business types for the stock tracker.
package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Status is the last-known availability of a product.
type Status string

// Status constants.
const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Valid reports whether s is one of the two recognized statuses.
func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusUnavailable
}

// StatusMap maps a product identifier to its last-known status. Keys are
// never removed by the tracker; values are overwritten on every run.
type StatusMap map[string]Status

// Clone returns a shallow copy of m. A nil map clones to an empty map.
func (m StatusMap) Clone() StatusMap {
	out := make(StatusMap, len(m))
	maps.Copy(out, m)
	return out
}

// Keys returns the identifiers in m, sorted.
func (m StatusMap) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// CountAvailable returns the number of products currently marked available.
func (m StatusMap) CountAvailable() int {
	n := 0
	for _, s := range m {
		if s == StatusAvailable {
			n++
		}
	}
	return n
}

// Product is a single catalog entry observed in a fetch.
type Product struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Alias             string  `json:"alias,omitempty"`
	Price             float64 `json:"price"`
	InventoryQuantity int     `json:"inventory_quantity"`
	URL               string  `json:"url,omitempty"`
}

// Available reports whether the product has stock.
func (p *Product) Available() bool {
	return p.InventoryQuantity > 0
}

// DisplayName returns the human-readable name derived from the identifier.
func (p *Product) DisplayName() string {
	return DisplayName(p.ID)
}

// Snapshot is the result of one catalog fetch for a pincode.
type Snapshot struct {
	Pincode   string    `json:"pincode"`
	Substore  string    `json:"substore"`
	Category  string    `json:"category"`
	FetchedAt time.Time `json:"fetched_at"`
	Products  []Product `json:"products"`
}

// Available returns the set of identifiers whose in-stock quantity is above zero.
func (s *Snapshot) Available() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Products))
	for i := range s.Products {
		if s.Products[i].Available() {
			out[s.Products[i].ID] = struct{}{}
		}
	}
	return out
}

// Lookup returns the product with the given identifier, if it was listed.
func (s *Snapshot) Lookup(id string) (*Product, bool) {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i], true
		}
	}
	return nil, false
}

// Alert is a product that moved from unavailable (or unknown) to available.
type Alert struct {
	Product  Product `json:"product"`
	Previous Status  `json:"previous,omitempty"`
}

// NotificationFailure records a notification that could not be delivered.
type NotificationFailure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// RunResult summarizes one stock check.
type RunResult struct {
	RunID         string                `json:"run_id"`
	Pincode       string                `json:"pincode"`
	Substore      string                `json:"substore"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Listed        int                   `json:"listed"`
	Available     int                   `json:"available"`
	Statuses      StatusMap             `json:"statuses"`
	Alerts        []Alert               `json:"alerts"`
	Notified      int                   `json:"notified"`
	NotifyFailure []NotificationFailure `json:"notify_failures,omitempty"`
}

// NormalizeID converts a raw product key into the canonical identifier form.
func NormalizeID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// DisplayName turns an identifier such as "paneer-400g" into "Paneer 400g".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
