package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// RawProduct is the format-agnostic unit consumed by the import pipeline.
// Both older feeds (no specialType) and newer feeds must decode into the
// same shape; every field except name and price is optional, and absence
// of a field is never treated as malformed input.
//
// JSON field matching is case-insensitive, so "ProductID" and "productID"
// feeds parse identically.
type RawProduct struct {
	ProductID     string `json:"productID,omitempty"`
	ProductName   string `json:"productName" validate:"required,max=500"`
	Category      string `json:"category,omitempty" validate:"max=200"`
	Brand         string `json:"brand,omitempty" validate:"max=200"`
	Description   string `json:"description,omitempty"`
	Price         string `json:"price" validate:"required"`
	OriginalPrice string `json:"originalPrice,omitempty"`
	Savings       string `json:"savings,omitempty"`
	UnitPrice     string `json:"unitPrice,omitempty"`
	SpecialType   string `json:"specialType,omitempty"`
}

// EffectiveID returns the record's external identifier, deriving a
// deterministic one when the source feed did not supply any.
func (p *RawProduct) EffectiveID() string {
	if p.ProductID != "" {
		return p.ProductID
	}
	return DeriveProductID(p.ProductName, p.Brand)
}

// DeriveProductID hashes a lowercase brand+name composite so the same
// physical product seen in different feeds or runs converges to the same
// logical key.
func DeriveProductID(name, brand string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(brand)))
	h.Write([]byte("_"))
	h.Write([]byte(strings.ToLower(name)))
	return fmt.Sprintf("gen-%016x", h.Sum64())
}
