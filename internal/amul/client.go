// Package amul fetches the protein catalog for a pincode from the Amul
// storefront, either through its JSON API or by driving a headless browser.
package amul

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

var tracer = otel.Tracer("github.com/donaldgifford/amul-stock-tracker/internal/amul")

var (
	// ErrInvalidPincode is returned before any request is made when the
	// pincode is not exactly six digits.
	ErrInvalidPincode = errors.New("pincode must be exactly 6 digits")

	// ErrSubstoreNotFound is returned when the location API has no substore
	// serving the pincode.
	ErrSubstoreNotFound = errors.New("no substore serves this pincode")

	// ErrInvalidResponse is returned when a response body does not match the
	// expected schema.
	ErrInvalidResponse = errors.New("unexpected response from storefront")
)

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// StatusError is returned when the storefront answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("storefront %s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("storefront %s returned %d: %s", e.Endpoint, e.StatusCode, body)
}

// Catalog fetches the current listing for a pincode.
type Catalog interface {
	Fetch(ctx context.Context, pincode string) (*domain.Snapshot, error)
}

// ValidatePincode checks the pincode shape.
func ValidatePincode(pincode string) error {
	if !pincodePattern.MatchString(pincode) {
		return fmt.Errorf("%w (got %q)", ErrInvalidPincode, pincode)
	}
	return nil
}

// ProductURL returns the storefront page for a product alias.
func ProductURL(baseURL, alias string) string {
	if alias == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/en/product/" + alias
}
