package models

import "strings"

// LineKey identifies a cart line. A nil Variant means the product has no variant selected.
type LineKey struct {
	ProductID string
	Variant   *string
}

// NewLineKey trims the inputs; an empty variant is treated as no variant.
func NewLineKey(productID string, variant *string) LineKey {
	key := LineKey{ProductID: strings.TrimSpace(productID)}
	if variant != nil {
		if v := strings.TrimSpace(*variant); v != "" {
			key.Variant = &v
		}
	}
	return key
}

// VariantValue returns the variant or "" when none is selected.
func (k LineKey) VariantValue() string {
	if k.Variant == nil {
		return ""
	}
	return *k.Variant
}

// Equal compares product and variant by value.
func (k LineKey) Equal(other LineKey) bool {
	if k.ProductID != other.ProductID {
		return false
	}
	if (k.Variant == nil) != (other.Variant == nil) {
		return false
	}
	return k.Variant == nil || *k.Variant == *other.Variant
}

// String is the map key form: "productId|variant", or "productId|-" without a variant.
func (k LineKey) String() string {
	if k.Variant == nil {
		return k.ProductID + "|-"
	}
	return k.ProductID + "|" + *k.Variant
}

// ProductSnapshot is the part of a product the cart needs for rendering.
type ProductSnapshot struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	Category string `json:"category"`
}

// CartLine is one reserved line item.
type CartLine struct {
	ProductID       string          `json:"product_id"`
	SelectedVariant *string         `json:"selected_variant"` // nil when the product has no variants
	UnitPrice       Money           `json:"unit_price"`
	Quantity        int             `json:"quantity"` // always > 0 while the line exists
	Product         ProductSnapshot `json:"product"`
}

// Key returns the line's uniqueness key.
func (l CartLine) Key() LineKey {
	return NewLineKey(l.ProductID, l.SelectedVariant)
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Clone copies the line, including the variant pointer.
func (l CartLine) Clone() CartLine {
	out := l
	if l.SelectedVariant != nil {
		v := *l.SelectedVariant
		out.SelectedVariant = &v
	}
	return out
}
