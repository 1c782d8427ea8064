package engine

import (
	"slices"
	"strings"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// DiffResult is the outcome of comparing a fetch against the previous map.
type DiffResult struct {
	// Statuses is the full map to persist.
	Statuses domain.StatusMap
	// Alerts are the targeted products that became available, sorted by id.
	Alerts []domain.Alert
	// Added lists identifiers seen for the first time.
	Added []string
	// SoldOut lists identifiers that went from available to unavailable.
	SoldOut []string
}

// Diff computes the next status map and the alerts it implies. It does not
// modify prev.
//
// Every available product becomes available. Every previously known product
// that is not available becomes unavailable. Listed products with no stock
// that were never seen are recorded as unavailable. An alert fires only for a
// targeted product moving from unavailable or unknown to available.
func Diff(prev domain.StatusMap, snap *domain.Snapshot, targets domain.TargetSet) DiffResult {
	next := prev.Clone()
	available := snap.Available()

	var res DiffResult

	for id, status := range prev {
		if _, ok := available[id]; ok {
			continue
		}
		next[id] = domain.StatusUnavailable
		if status == domain.StatusAvailable {
			res.SoldOut = append(res.SoldOut, id)
		}
	}

	for i := range snap.Products {
		p := &snap.Products[i]
		before, known := prev[p.ID]
		if !known {
			res.Added = append(res.Added, p.ID)
		}

		if !p.Available() {
			if !known {
				next[p.ID] = domain.StatusUnavailable
			}
			continue
		}

		next[p.ID] = domain.StatusAvailable
		if before == domain.StatusAvailable || !targets.Includes(p.ID) {
			continue
		}
		res.Alerts = append(res.Alerts, domain.Alert{
			Product:  *p,
			Previous: before,
		})
	}

	slices.SortFunc(res.Alerts, func(a, b domain.Alert) int {
		return strings.Compare(a.Product.ID, b.Product.ID)
	})
	slices.Sort(res.Added)
	slices.Sort(res.SoldOut)

	res.Statuses = next
	return res
}
