package domain

import (
	"fmt"
	"time"
)

// ExportVersion is the wire version tag written into every export document.
const ExportVersion = "1.0"

// ExportOptions is a conjunction of optional filter predicates applied to
// the catalogue before export. Nil/zero predicates are inactive.
type ExportOptions struct {
	Category          string     `json:"category,omitempty"`
	Brand             string     `json:"brand,omitempty"`
	StoreIDs          []string   `json:"storeIds,omitempty"`
	ValidFrom         *time.Time `json:"validFrom,omitempty"`
	ValidTo           *time.Time `json:"validTo,omitempty"`
	LastUpdatedAfter  *time.Time `json:"lastUpdatedAfter,omitempty"`
	LastUpdatedBefore *time.Time `json:"lastUpdatedBefore,omitempty"`
	MinPrice          *float64   `json:"minPrice,omitempty"`
	MaxPrice          *float64   `json:"maxPrice,omitempty"`
	OnlyOnSale        bool       `json:"onlyOnSale"`
	ActiveOnly        bool       `json:"activeOnly"`
}

// DefaultExportOptions returns options with no filters except active-only.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{ActiveOnly: true}
}

// ExportLocation describes where the exported data was collected.
type ExportLocation struct {
	Suburb  string `json:"suburb"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// ExportOptionsSummary is the applied-filter summary embedded in the document.
type ExportOptionsSummary struct {
	Category   string   `json:"category,omitempty"`
	StoreIDs   []string `json:"storeIds,omitempty"`
	DateRange  string   `json:"dateRange"`
	OnlyOnSale bool     `json:"onlyOnSale"`
}

// ExportStatistics aggregates the final exported line set.
type ExportStatistics struct {
	TotalItems        int      `json:"totalItems"`
	TotalPriceRecords int      `json:"totalPriceRecords"`
	UniqueStores      int      `json:"uniqueStores"`
	Categories        []string `json:"categories"`
	DateRange         string   `json:"dateRange"`
}

// ExportLine is one denormalized (item, price record) pair.
type ExportLine struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Brand           string     `json:"brand,omitempty"`
	Category        string     `json:"category,omitempty"`
	SubCategory     string     `json:"subCategory,omitempty"`
	Barcode         string     `json:"barcode,omitempty"`
	PackageSize     string     `json:"packageSize,omitempty"`
	Unit            string     `json:"unit,omitempty"`
	Price           float64    `json:"price"`
	OriginalPrice   *float64   `json:"originalPrice,omitempty"`
	PriceUnit       string     `json:"priceUnit"`
	IsOnSale        bool       `json:"isOnSale"`
	SaleDescription string     `json:"saleDescription,omitempty"`
	ValidFrom       *time.Time `json:"validFrom,omitempty"`
	ValidTo         *time.Time `json:"validTo,omitempty"`
	Store           string     `json:"store"`
	StoreID         string     `json:"storeId"`
	StoreChain      string     `json:"storeChain,omitempty"`
	DateRecorded    time.Time  `json:"dateRecorded"`
	Source          string     `json:"source,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// ToRawProduct converts an export line back into the import record shape,
// so a full export can be re-imported losslessly for the fields both carry.
func (l ExportLine) ToRawProduct() RawProduct {
	p := RawProduct{
		ProductID:   l.ID,
		ProductName: l.Name,
		Brand:       l.Brand,
		Category:    l.Category,
		Price:       fmt.Sprintf("$%.2f", l.Price),
		SpecialType: l.SaleDescription,
	}
	if l.OriginalPrice != nil {
		p.OriginalPrice = fmt.Sprintf("$%.2f", *l.OriginalPrice)
		if savings := *l.OriginalPrice - l.Price; savings > 0 {
			p.Savings = fmt.Sprintf("$%.2f", savings)
		}
	}
	return p
}

// ExportData is the root export document.
type ExportData struct {
	ExportVersion string               `json:"exportVersion"`
	ExportDate    time.Time            `json:"exportDate"`
	Source        string               `json:"source"`
	Location      ExportLocation       `json:"location"`
	ExportOptions ExportOptionsSummary `json:"exportOptions"`
	Statistics    ExportStatistics     `json:"statistics"`
	Items         []ExportLine         `json:"items"`
}

// ExportResult summarizes one export operation.
type ExportResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message,omitempty"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	ItemsExported    int     `json:"itemsExported"`
	FilePath         string  `json:"filePath,omitempty"`
	FileSizeBytes    int64   `json:"fileSizeBytes"`
	CompressionRatio float64 `json:"compressionRatio"`
}

// ExportProgress reports export completion to an optional sink.
type ExportProgress struct {
	Percentage int    `json:"percentage"`
	Status     string `json:"status"`
}
