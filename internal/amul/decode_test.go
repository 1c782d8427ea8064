package amul

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubstore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		pincode string
		want    string
		wantErr error
	}{
		{
			name:    "exact match",
			body:    `{"records":[{"_id":"1","pincode":"110001","substore":"sub-delhi"}]}`,
			pincode: "110001",
			want:    "sub-delhi",
		},
		{
			name: "regex neighbors skipped",
			body: `{"records":[
				{"pincode":"1100011","substore":"wrong"},
				{"pincode":"110001","substore":"right"}
			]}`,
			pincode: "110001",
			want:    "right",
		},
		{
			name: "record without substore skipped",
			body: `{"records":[
				{"pincode":"110001","substore":""},
				{"pincode":"110001","substore":"second"}
			]}`,
			pincode: "110001",
			want:    "second",
		},
		{
			name:    "no records",
			body:    `{"records":[]}`,
			pincode: "110001",
			wantErr: ErrSubstoreNotFound,
		},
		{
			name:    "records missing",
			body:    `{"paging":{}}`,
			pincode: "110001",
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "records wrong type",
			body:    `{"records":"nope"}`,
			pincode: "110001",
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "not json",
			body:    `<html>blocked</html>`,
			pincode: "110001",
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeSubstore([]byte(tt.body), tt.pincode)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeProducts(t *testing.T) {
	t.Parallel()

	body := `{"data":[
		{"_id":"p1","name":"Amul High Protein Paneer, 400 g","alias":"Paneer-400G","price":450,"inventory_quantity":12},
		{"_id":"p2","name":"Amul High Protein Lassi","alias":"","price":25.5,"inventory_quantity":0},
		{"_id":"p3","name":"dup","alias":"paneer-400g","price":450,"inventory_quantity":1},
		{"_id":"p4","name":"Whey","alias":"whey-1kg","price":999,"inventory_quantity":2.9}
	]}`

	products, err := decodeProducts([]byte(body), "https://shop.example.com")
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, "paneer-400g", products[0].ID)
	assert.Equal(t, "Amul High Protein Paneer, 400 g", products[0].Name)
	assert.Equal(t, 12, products[0].InventoryQuantity)
	assert.Equal(t, "https://shop.example.com/en/product/Paneer-400G", products[0].URL)

	assert.Equal(t, "amul high protein lassi", products[1].ID, "falls back to the name")
	assert.Empty(t, products[1].URL)
	assert.False(t, products[1].Available())

	assert.Equal(t, 2, products[2].InventoryQuantity)
}

func TestDecodeProducts_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "data missing", body: `{"records":[]}`, wantMsg: "no data field"},
		{name: "data wrong type", body: `{"data":{}}`, wantMsg: "decoding products response"},
		{
			name:    "entry without identity",
			body:    `{"data":[{"price":1,"inventory_quantity":1}]}`,
			wantMsg: "neither alias nor name",
		},
		{
			name:    "entry without quantity",
			body:    `{"data":[{"alias":"x","price":1}]}`,
			wantMsg: "missing inventory_quantity",
		},
		{
			name:    "quantity wrong type",
			body:    `{"data":[{"alias":"x","inventory_quantity":"lots"}]}`,
			wantMsg: "decoding products response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodeProducts([]byte(tt.body), "")
			require.ErrorIs(t, err, ErrInvalidResponse)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDecodeProducts_EmptyListing(t *testing.T) {
	t.Parallel()

	products, err := decodeProducts([]byte(`{"data":[]}`), "")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestDecodeProducts_FractionalQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		qty       string
		wantQty   int
		wantStock bool
	}{
		{name: "half unit is in stock", qty: "0.5", wantQty: 1, wantStock: true},
		{name: "tiny positive is in stock", qty: "0.0001", wantQty: 1, wantStock: true},
		{name: "zero", qty: "0", wantQty: 0},
		{name: "negative", qty: "-3", wantQty: 0},
		{name: "fraction above one floors", qty: "7.8", wantQty: 7, wantStock: true},
		{name: "huge value clamped", qty: "1e30", wantQty: math.MaxInt32, wantStock: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := `{"data":[{"alias":"whey-1kg","name":"Whey","inventory_quantity":` + tt.qty + `}]}`
			products, err := decodeProducts([]byte(body), "")
			require.NoError(t, err)
			require.Len(t, products, 1)

			assert.Equal(t, tt.wantQty, products[0].InventoryQuantity)
			assert.Equal(t, tt.wantStock, products[0].Available())
		})
	}
}
