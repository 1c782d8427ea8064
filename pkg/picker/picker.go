// Package picker models the target selection page: one checkbox per known
// product, a substring filter, bulk select over the visible items, and the
// comma-joined output pasted into TARGET_PRODUCTS.
package picker

import (
	"slices"
	"strings"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// Item is one checkbox.
type Item struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Status  domain.Status `json:"status"`
	Checked bool          `json:"checked"`
}

// Picker holds the selection state. Items are ordered by key.
type Picker struct {
	items  []Item
	index  map[string]int
	filter string
	// pending holds preselected keys with no status yet. They stay selected
	// until toggled off.
	pending []string
}

// Label turns a raw key into its display label.
func Label(key string) string {
	return domain.DisplayName(key)
}

// New builds a picker over every key in statuses, with the keys in preselect
// already checked. Preselected keys missing from statuses are kept as
// pending selections.
func New(statuses domain.StatusMap, preselect domain.TargetSet) *Picker {
	keys := statuses.Keys()
	p := &Picker{
		items: make([]Item, 0, len(keys)),
		index: make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		_, checked := preselect[k]
		p.index[k] = len(p.items)
		p.items = append(p.items, Item{
			Key:     k,
			Label:   Label(k),
			Status:  statuses[k],
			Checked: checked,
		})
	}
	for _, k := range preselect.IDs() {
		if _, known := statuses[k]; !known {
			p.pending = append(p.pending, k)
		}
	}
	return p
}

// Pending returns the preselected keys that have no status yet.
func (p *Picker) Pending() []string {
	return slices.Clone(p.pending)
}

// Filter sets the case-insensitive substring filter over labels. An empty
// query shows everything.
func (p *Picker) Filter(query string) {
	p.filter = strings.ToLower(strings.TrimSpace(query))
}

// Items returns every item regardless of the filter.
func (p *Picker) Items() []Item {
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}

// Visible returns the items matching the current filter.
func (p *Picker) Visible() []Item {
	var out []Item
	for i := range p.items {
		if p.visible(i) {
			out = append(out, p.items[i])
		}
	}
	return out
}

// SelectAllVisible checks every visible item. Hidden items keep their state.
func (p *Picker) SelectAllVisible() {
	p.setVisible(true)
}

// DeselectAllVisible unchecks every visible item. Hidden items keep their
// state.
func (p *Picker) DeselectAllVisible() {
	p.setVisible(false)
}

// Toggle flips one item and reports whether the key exists. Toggling a
// pending key drops it.
func (p *Picker) Toggle(key string) bool {
	i, ok := p.index[key]
	if !ok {
		if j := slices.Index(p.pending, key); j >= 0 {
			p.pending = slices.Delete(p.pending, j, j+1)
			return true
		}
		return false
	}
	p.items[i].Checked = !p.items[i].Checked
	return true
}

// Generate returns the raw keys of every checked item, visible or not, plus
// the pending keys, sorted and joined with commas.
func (p *Picker) Generate() string {
	keys := slices.Clone(p.pending)
	for i := range p.items {
		if p.items[i].Checked {
			keys = append(keys, p.items[i].Key)
		}
	}
	slices.Sort(keys)
	return strings.Join(keys, ",")
}

func (p *Picker) setVisible(checked bool) {
	for i := range p.items {
		if p.visible(i) {
			p.items[i].Checked = checked
		}
	}
}

func (p *Picker) visible(i int) bool {
	if p.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.items[i].Label), p.filter)
}
