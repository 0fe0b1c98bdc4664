package usecase

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// ExportService builds filtered, denormalized export documents from the
// catalogue and writes them as JSON or gzipped JSON. The gzip variant
// compresses the exact bytes the plain variant writes.
type ExportService struct {
	items  domain.ItemRepository
	places domain.PlaceRepository
	prices domain.PriceRecordRepository

	location domain.ExportLocation

	// OnProgress receives coarse completion updates during BuildExport.
	OnProgress func(domain.ExportProgress)

	enableDebugLogging bool
}

// NewExportService creates an export service stamping documents with the
// given collection location.
func NewExportService(
	items domain.ItemRepository,
	places domain.PlaceRepository,
	prices domain.PriceRecordRepository,
	location domain.ExportLocation,
	enableDebugLogging bool,
) *ExportService {
	return &ExportService{
		items:              items,
		places:             places,
		prices:             prices,
		location:           location,
		enableDebugLogging: enableDebugLogging,
	}
}

// BuildExport assembles the export document for the given options. Lines
// are ordered by category then name so repeated exports of the same data
// are byte-identical.
func (s *ExportService) BuildExport(ctx context.Context, opts domain.ExportOptions) (*domain.ExportData, error) {
	s.progress(0, "loading catalogue")

	items, err := s.items.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	places, err := s.places.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	placesByID := make(map[string]*domain.Place, len(places))
	for _, place := range places {
		placesByID[place.ID] = place
	}

	storeFilter := make(map[string]bool, len(opts.StoreIDs))
	for _, id := range opts.StoreIDs {
		storeFilter[id] = true
	}

	s.progress(25, "filtering items")

	var lines []domain.ExportLine
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.itemMatches(item, opts) {
			continue
		}

		records, err := s.prices.GetByItem(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("load prices for item %s: %w", item.ID, err)
		}
		for _, record := range records {
			if !recordMatches(record, opts, storeFilter) {
				continue
			}
			lines = append(lines, buildLine(item, record, placesByID[record.PlaceID]))
		}

		if len(items) > 0 && i%100 == 0 {
			s.progress(25+i*50/len(items), "filtering items")
		}
	}

	s.progress(75, "assembling document")

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Category != lines[j].Category {
			return lines[i].Category < lines[j].Category
		}
		return lines[i].Name < lines[j].Name
	})

	doc := &domain.ExportData{
		ExportVersion: domain.ExportVersion,
		ExportDate:    time.Now().UTC(),
		Source:        "PriceLens",
		Location:      s.location,
		ExportOptions: summarizeOptions(opts),
		Statistics:    buildStatistics(lines),
		Items:         lines,
	}

	s.progress(100, "done")
	if s.enableDebugLogging {
		log.Printf("[EXPORT] Built document with %d lines from %d items", len(lines), len(items))
	}
	return doc, nil
}

// ExportToFile writes the export document as indented JSON.
func (s *ExportService) ExportToFile(ctx context.Context, path string, opts domain.ExportOptions) *domain.ExportResult {
	doc, err := s.BuildExport(ctx, opts)
	if err != nil {
		return &domain.ExportResult{ErrorMessage: err.Error()}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("encode export: %v", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("write export: %v", err)}
	}

	return &domain.ExportResult{
		Success:       true,
		Message:       fmt.Sprintf("Exported %d items to %s", len(doc.Items), path),
		ItemsExported: len(doc.Items),
		FilePath:      path,
		FileSizeBytes: int64(len(data)),
	}
}

// ExportToFileGz writes the export document as gzipped JSON. The
// compressed stream decompresses to exactly the bytes ExportToFile writes.
func (s *ExportService) ExportToFileGz(ctx context.Context, path string, opts domain.ExportOptions) *domain.ExportResult {
	doc, err := s.BuildExport(ctx, opts)
	if err != nil {
		return &domain.ExportResult{ErrorMessage: err.Error()}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("encode export: %v", err)}
	}

	f, err := os.Create(path)
	if err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("create export file: %v", err)}
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("compress export: %v", err)}
	}
	if err := gz.Close(); err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("finalize export: %v", err)}
	}

	info, err := f.Stat()
	if err != nil {
		return &domain.ExportResult{ErrorMessage: fmt.Sprintf("stat export file: %v", err)}
	}

	result := &domain.ExportResult{
		Success:       true,
		Message:       fmt.Sprintf("Exported %d items to %s (compressed)", len(doc.Items), path),
		ItemsExported: len(doc.Items),
		FilePath:      path,
		FileSizeBytes: info.Size(),
	}
	if info.Size() > 0 {
		result.CompressionRatio = float64(len(data)) / float64(info.Size())
	}
	return result
}

// IncrementalExport builds a document restricted to items updated since
// the given time, on top of whatever other filters are set.
func (s *ExportService) IncrementalExport(ctx context.Context, since time.Time, opts domain.ExportOptions) (*domain.ExportData, error) {
	opts.LastUpdatedAfter = &since
	return s.BuildExport(ctx, opts)
}

// itemMatches applies the item-level filter predicates.
func (s *ExportService) itemMatches(item *domain.Item, opts domain.ExportOptions) bool {
	if opts.ActiveOnly && !item.IsActive {
		return false
	}
	if opts.Category != "" && !strings.EqualFold(item.Category, opts.Category) {
		return false
	}
	if opts.Brand != "" && !strings.EqualFold(item.Brand, opts.Brand) {
		return false
	}
	if opts.LastUpdatedAfter != nil && item.LastUpdated.Before(*opts.LastUpdatedAfter) {
		return false
	}
	if opts.LastUpdatedBefore != nil && item.LastUpdated.After(*opts.LastUpdatedBefore) {
		return false
	}
	return true
}

// recordMatches applies the price-record-level filter predicates. The
// validity window accepts a record whose ValidFrom or DateRecorded falls
// on or after the lower bound.
func recordMatches(record *domain.PriceRecord, opts domain.ExportOptions, storeFilter map[string]bool) bool {
	if len(storeFilter) > 0 && !storeFilter[record.PlaceID] {
		return false
	}
	if opts.ValidFrom != nil {
		afterFrom := !record.DateRecorded.Before(*opts.ValidFrom)
		if record.ValidFrom != nil {
			afterFrom = afterFrom || !record.ValidFrom.Before(*opts.ValidFrom)
		}
		if !afterFrom {
			return false
		}
	}
	if opts.ValidTo != nil && record.DateRecorded.After(*opts.ValidTo) {
		return false
	}
	if opts.MinPrice != nil && record.Price < *opts.MinPrice {
		return false
	}
	if opts.MaxPrice != nil && record.Price > *opts.MaxPrice {
		return false
	}
	if opts.OnlyOnSale && !record.IsOnSale {
		return false
	}
	return true
}

// buildLine denormalizes one (item, record) pair. A record whose store is
// unknown still exports, with blank store fields.
func buildLine(item *domain.Item, record *domain.PriceRecord, place *domain.Place) domain.ExportLine {
	line := domain.ExportLine{
		ID:              item.ID,
		Name:            item.Name,
		Brand:           item.Brand,
		Category:        item.Category,
		SubCategory:     item.SubCategory,
		Barcode:         item.Barcode,
		PackageSize:     item.PackageSize,
		Unit:            item.Unit,
		Price:           record.Price,
		OriginalPrice:   record.OriginalPrice,
		PriceUnit:       "AUD",
		IsOnSale:        record.IsOnSale,
		SaleDescription: record.SaleDescription,
		ValidFrom:       record.ValidFrom,
		ValidTo:         record.ValidTo,
		StoreID:         record.PlaceID,
		DateRecorded:    record.DateRecorded,
		Source:          record.Source,
		Notes:           record.Notes,
	}
	if place != nil {
		line.Store = place.Name
		line.StoreChain = place.Chain
	}
	return line
}

// summarizeOptions renders the applied filters for the document header.
func summarizeOptions(opts domain.ExportOptions) domain.ExportOptionsSummary {
	summary := domain.ExportOptionsSummary{
		Category:   opts.Category,
		StoreIDs:   opts.StoreIDs,
		DateRange:  "all",
		OnlyOnSale: opts.OnlyOnSale,
	}
	if opts.ValidFrom != nil || opts.ValidTo != nil {
		summary.DateRange = fmt.Sprintf("%s to %s", formatBound(opts.ValidFrom), formatBound(opts.ValidTo))
	}
	return summary
}

// buildStatistics aggregates the final line set.
func buildStatistics(lines []domain.ExportLine) domain.ExportStatistics {
	itemIDs := make(map[string]bool)
	storeIDs := make(map[string]bool)
	categorySet := make(map[string]bool)
	var categories []string
	var earliest, latest time.Time

	for _, line := range lines {
		itemIDs[line.ID] = true
		storeIDs[line.StoreID] = true
		if line.Category != "" && !categorySet[line.Category] {
			categorySet[line.Category] = true
			categories = append(categories, line.Category)
		}
		if earliest.IsZero() || line.DateRecorded.Before(earliest) {
			earliest = line.DateRecorded
		}
		if latest.IsZero() || line.DateRecorded.After(latest) {
			latest = line.DateRecorded
		}
	}
	sort.Strings(categories)

	stats := domain.ExportStatistics{
		TotalItems:        len(itemIDs),
		TotalPriceRecords: len(lines),
		UniqueStores:      len(storeIDs),
		Categories:        categories,
		DateRange:         "empty",
	}
	if !earliest.IsZero() {
		stats.DateRange = fmt.Sprintf("%s to %s", earliest.Format("2006-01-02"), latest.Format("2006-01-02"))
	}
	return stats
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format("2006-01-02")
}

func (s *ExportService) progress(pct int, status string) {
	if s.OnProgress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.OnProgress(domain.ExportProgress{Percentage: pct, Status: status})
}
