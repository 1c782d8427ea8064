package amul

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// pincodeResponse is the location API body. Records is a pointer so that a
// missing key can be told apart from an empty result.
type pincodeResponse struct {
	Records *[]pincodeRecord `json:"records"`
}

type pincodeRecord struct {
	ID       string `json:"_id"`
	Pincode  string `json:"pincode"`
	Substore string `json:"substore"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// productsResponse is the ms.products listing body.
type productsResponse struct {
	Data *[]productRecord `json:"data"`
}

type productRecord struct {
	ID                string   `json:"_id"`
	Name              string   `json:"name"`
	Alias             string   `json:"alias"`
	Price             float64  `json:"price"`
	InventoryQuantity *float64 `json:"inventory_quantity"`
}

// decodeSubstore picks the substore for an exact pincode match. The location
// API matches by regex, so a prefix such as "11000" can return neighbors.
func decodeSubstore(body []byte, pincode string) (string, error) {
	var resp pincodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding pincode response: %v", ErrInvalidResponse, err)
	}
	if resp.Records == nil {
		return "", fmt.Errorf("%w: pincode response has no records field", ErrInvalidResponse)
	}

	for _, r := range *resp.Records {
		if strings.TrimSpace(r.Pincode) != pincode {
			continue
		}
		if sub := strings.TrimSpace(r.Substore); sub != "" {
			return sub, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrSubstoreNotFound, pincode)
}

// decodeProducts validates a listing body and converts it to domain products.
func decodeProducts(body []byte, baseURL string) ([]domain.Product, error) {
	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding products response: %v", ErrInvalidResponse, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: products response has no data field", ErrInvalidResponse)
	}

	products := make([]domain.Product, 0, len(*resp.Data))
	seen := make(map[string]struct{}, len(*resp.Data))

	for i, r := range *resp.Data {
		p, err := r.toProduct(baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", ErrInvalidResponse, i, err)
		}
		// The listing occasionally repeats an entry across facets.
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}

	return products, nil
}

func (r *productRecord) toProduct(baseURL string) (domain.Product, error) {
	id := domain.NormalizeID(r.Alias)
	if id == "" {
		id = domain.NormalizeID(r.Name)
	}
	if id == "" {
		return domain.Product{}, fmt.Errorf("entry has neither alias nor name")
	}
	if r.InventoryQuantity == nil {
		return domain.Product{}, fmt.Errorf("%s: missing inventory_quantity", id)
	}

	return domain.Product{
		ID:                id,
		Name:              strings.TrimSpace(r.Name),
		Alias:             strings.TrimSpace(r.Alias),
		Price:             r.Price,
		InventoryQuantity: quantity(*r.InventoryQuantity),
		URL:               ProductURL(baseURL, strings.TrimSpace(r.Alias)),
	}, nil
}

// maxQuantity caps absurd inventory values from the listing.
const maxQuantity = math.MaxInt32

// quantity converts the listing's float inventory to a whole count. Any
// positive amount, however small, stays in stock.
func quantity(q float64) int {
	switch {
	case math.IsNaN(q) || q <= 0:
		return 0
	case q >= maxQuantity:
		return maxQuantity
	case q < 1:
		return 1
	default:
		return int(math.Floor(q))
	}
}
