package domain

import "time"

// Item is the canonical, deduplicated catalogue product. Incoming raw
// records are reconciled against active items by case-insensitive name
// plus exact brand before anything is persisted.
type Item struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Brand            string            `json:"brand,omitempty"`
	Category         string            `json:"category,omitempty"`
	SubCategory      string            `json:"subCategory,omitempty"`
	Description      string            `json:"description,omitempty"`
	PackageSize      string            `json:"packageSize,omitempty"`
	Unit             string            `json:"unit,omitempty"`
	Barcode          string            `json:"barcode,omitempty"`
	IsActive         bool              `json:"isActive"`
	ExtraInformation map[string]string `json:"extraInformation,omitempty"`
	DateAdded        time.Time         `json:"dateAdded"`
	LastUpdated      time.Time         `json:"lastUpdated"`
}

// ExtraInformation keys retained from the import source.
const (
	ExtraKeyProductID = "ProductID"
	ExtraKeyStore     = "Store"
	ExtraKeyUnitPrice = "UnitPrice"
)
