package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "hyphenated", id: "paneer-400g", want: "Paneer 400g"},
		{name: "underscores", id: "whey_protein_1kg", want: "Whey Protein 1kg"},
		{name: "mixed separators", id: "high-protein_milk 250ml", want: "High Protein Milk 250ml"},
		{name: "repeated separators", id: "lassi--200", want: "Lassi 200"},
		{name: "empty", id: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DisplayName(tt.id))
		})
	}
}

func TestParseTargets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantIDs []string
		wantAll bool
	}{
		{name: "empty string selects all", raw: "", wantIDs: nil, wantAll: true},
		{name: "only separators", raw: " , ,", wantIDs: nil, wantAll: true},
		{
			name:    "trims and lowercases",
			raw:     " Paneer-400G ,lassi-200ml",
			wantIDs: []string{"lassi-200ml", "paneer-400g"},
		},
		{
			name:    "duplicates collapse",
			raw:     "a,A,a",
			wantIDs: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTargets(tt.raw)
			assert.Equal(t, tt.wantAll, got.All())
			assert.Equal(t, tt.wantIDs, got.IDs())
		})
	}
}

func TestTargetSet_Includes(t *testing.T) {
	t.Parallel()

	all := ParseTargets("")
	assert.True(t, all.Includes("anything"))

	some := ParseTargets("x,y")
	assert.True(t, some.Includes("x"))
	assert.False(t, some.Includes("z"))
	assert.Equal(t, "x,y", some.String())
}

func TestSnapshot_Available(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Products: []Product{
		{ID: "a", InventoryQuantity: 3},
		{ID: "b", InventoryQuantity: 0},
		{ID: "c", InventoryQuantity: -1},
	}}

	got := snap.Available()
	assert.Len(t, got, 1)
	assert.Contains(t, got, "a")

	p, ok := snap.Lookup("b")
	assert.True(t, ok)
	assert.False(t, p.Available())

	_, ok = snap.Lookup("missing")
	assert.False(t, ok)
}

func TestStatusMap(t *testing.T) {
	t.Parallel()

	var nilMap StatusMap
	clone := nilMap.Clone()
	assert.NotNil(t, clone)
	assert.Empty(t, clone)

	m := StatusMap{"b": StatusAvailable, "a": StatusUnavailable, "c": StatusAvailable}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assert.Equal(t, 2, m.CountAvailable())

	c := m.Clone()
	c["a"] = StatusAvailable
	assert.Equal(t, StatusUnavailable, m["a"])

	assert.True(t, StatusAvailable.Valid())
	assert.False(t, Status("in_stock").Valid())
}
