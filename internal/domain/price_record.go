package domain

import "time"

// PriceRecord is one immutable price observation for an item at a place.
// A price change never mutates an existing record; it appends a new one.
type PriceRecord struct {
	ID              string     `json:"id"`
	ItemID          string     `json:"itemId"`
	PlaceID         string     `json:"placeId"`
	Price           float64    `json:"price"`
	OriginalPrice   *float64   `json:"originalPrice,omitempty"`
	IsOnSale        bool       `json:"isOnSale"`
	SaleDescription string     `json:"saleDescription,omitempty"`
	DateRecorded    time.Time  `json:"dateRecorded"`
	ValidFrom       *time.Time `json:"validFrom,omitempty"`
	ValidTo         *time.Time `json:"validTo,omitempty"`
	Source          string     `json:"source,omitempty"`
	CatalogueDate   *time.Time `json:"catalogueDate,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// SourceCatalogue tags price records produced by the catalogue import pipeline.
const SourceCatalogue = "Catalogue"
