package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// saleValidityDays is the validity window applied when a catalogue does
// not declare its own expiry.
const saleValidityDays = 7

// Chains recognized during file import. Detection checks the filename
// first and falls back to scanning the content.
var knownChains = []string{"Coles", "Woolworths", "ALDI", "IGA", "Drakes", "Foodland"}

// ImportBatchOptions carries the optional knobs for one batch run.
type ImportBatchOptions struct {
	// ExistingMappings maps an external product identifier directly onto a
	// catalogue item id. Mapped records skip reconciliation and only append
	// a price record.
	ExistingMappings map[string]string

	// Progress is invoked once per processed record. It must not block;
	// a panicking sink is recovered and ignored.
	Progress func(domain.ImportProgress)

	// ExpiryDate overrides the default catalogue validity window.
	ExpiryDate *time.Time
}

// ImportService orchestrates catalogue imports end to end: validation,
// reconciliation, price recording and event publication.
type ImportService struct {
	items     domain.ItemRepository
	places    domain.PlaceRepository
	prices    domain.PriceRecordRepository
	publisher domain.PricePublisher

	validator  *ImportValidator
	reconciler *ItemReconciler
	markdown   *CatalogueMarkdownParser

	// Optional message sinks for surfacing progress to an operator UI.
	OnInfo    func(string)
	OnWarning func(string)
	OnError   func(string)

	// storeLocks serializes imports per destination store. Batches for
	// different stores run concurrently.
	storeLocks sync.Map

	enableDebugLogging bool
}

// NewImportService wires an import service. publisher may be nil, in
// which case no events are emitted.
func NewImportService(
	items domain.ItemRepository,
	places domain.PlaceRepository,
	prices domain.PriceRecordRepository,
	publisher domain.PricePublisher,
	validator *ImportValidator,
	reconciler *ItemReconciler,
	markdown *CatalogueMarkdownParser,
	enableDebugLogging bool,
) *ImportService {
	return &ImportService{
		items:              items,
		places:             places,
		prices:             prices,
		publisher:          publisher,
		validator:          validator,
		reconciler:         reconciler,
		markdown:           markdown,
		enableDebugLogging: enableDebugLogging,
	}
}

// ImportBatch imports a batch of raw records against one store. Records
// are processed sequentially in input order; record-level failures are
// accumulated and never abort the rest of the batch. Only a bad
// destination store or catalogue date fails the whole batch.
func (s *ImportService) ImportBatch(ctx context.Context, products []domain.RawProduct, storeID string, catalogueDate time.Time, opts *ImportBatchOptions) *domain.ImportResult {
	if opts == nil {
		opts = &ImportBatchOptions{}
	}
	result := &domain.ImportResult{}

	if len(products) == 0 {
		result.ErrorMessage = "no products to import"
		return result
	}

	if de := s.validator.ValidateCatalogueDate(catalogueDate); de != nil {
		result.ErrorMessage = de.Message
		result.Errors = append(result.Errors, *de)
		return result
	}

	lock := s.lockFor(storeID)
	lock.Lock()
	defer lock.Unlock()

	place, err := s.places.GetByID(ctx, storeID)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("store %s not found", storeID)
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeStore,
			Message:     result.ErrorMessage,
			RecordIndex: -1,
		})
		s.fail(result.ErrorMessage)
		return result
	}

	validTo := catalogueDate.AddDate(0, 0, saleValidityDays)
	if opts.ExpiryDate != nil {
		validTo = *opts.ExpiryDate
	}

	s.info(fmt.Sprintf("Importing %d products into %s", len(products), place.Name))

	for i := range products {
		if err := ctx.Err(); err != nil {
			result.ErrorMessage = fmt.Sprintf("import cancelled: %v", err)
			return result
		}

		product := &products[i]
		s.importRecord(ctx, product, i, place, catalogueDate, validTo, opts, result)
		s.reportProgress(opts.Progress, domain.ImportProgress{
			TotalItems:     len(products),
			ProcessedItems: i + 1,
			CurrentItem:    product.ProductName,
		})
	}

	result.Success = len(result.Errors) == 0 || result.ItemsProcessed > 0 || result.PriceRecordsCreated > 0
	result.Message = fmt.Sprintf("Processed %d items (%d updated), created %d price records, %d failed",
		result.ItemsProcessed, result.ItemsUpdated, result.PriceRecordsCreated, result.ItemsFailed)
	s.info(result.Message)
	return result
}

// importRecord handles one record: validate, reconcile, record the price,
// publish. Any failure converts to an accumulated error on the result.
func (s *ImportService) importRecord(ctx context.Context, p *domain.RawProduct, index int, place *domain.Place, catalogueDate, validTo time.Time, opts *ImportBatchOptions, result *domain.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			result.ItemsFailed++
			result.Errors = append(result.Errors, domain.ImportError{
				Type:        domain.ErrorTypeUnknown,
				Message:     fmt.Sprintf("unexpected failure: %v", r),
				ProductName: p.ProductName,
				RecordIndex: index,
			})
		}
	}()

	if errs := s.validator.ValidateProduct(p, index); len(errs) > 0 {
		result.ItemsFailed++
		result.Errors = append(result.Errors, errs...)
		s.warn(fmt.Sprintf("Skipping %q: %s", p.ProductName, errs[0].Message))
		return
	}

	// Explicit mapping bypasses reconciliation: the record only
	// contributes a price observation against the mapped item.
	var item *domain.Item
	mapped, err := s.reconciler.ResolveMapping(ctx, p, opts.ExistingMappings)
	if err != nil {
		result.ItemsFailed++
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeStore,
			Message:     err.Error(),
			ProductName: p.ProductName,
			RecordIndex: index,
		})
		return
	}
	if mapped != nil {
		item = mapped
	} else {
		reconciled, created, err := s.reconciler.CreateOrUpdateItem(ctx, p, place.Chain)
		if err != nil {
			result.ItemsFailed++
			result.Errors = append(result.Errors, domain.ImportError{
				Type:        domain.ErrorTypeStore,
				Message:     err.Error(),
				ProductName: p.ProductName,
				RecordIndex: index,
			})
			return
		}
		item = reconciled
		result.ItemsProcessed++
		if !created {
			result.ItemsUpdated++
		}
	}

	record, err := s.buildPriceRecord(p, item.ID, place.ID, catalogueDate, validTo)
	if err != nil {
		result.ItemsFailed++
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeInvalidData,
			Message:     err.Error(),
			ProductName: p.ProductName,
			RecordIndex: index,
			RawText:     p.Price,
		})
		return
	}

	if _, err := s.prices.Add(ctx, record); err != nil {
		result.ItemsFailed++
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeStore,
			Message:     fmt.Sprintf("save price record: %v", err),
			ProductName: p.ProductName,
			RecordIndex: index,
		})
		return
	}
	result.PriceRecordsCreated++

	s.publishPriceRecorded(ctx, p, record)
}

// buildPriceRecord assembles the price observation for one validated record.
func (s *ImportService) buildPriceRecord(p *domain.RawProduct, itemID, placeID string, catalogueDate, validTo time.Time) (*domain.PriceRecord, error) {
	price, ok := ParseMoney(p.Price)
	if !ok {
		return nil, fmt.Errorf("price %q is not a valid amount", p.Price)
	}

	record := &domain.PriceRecord{
		ItemID:        itemID,
		PlaceID:       placeID,
		Price:         price,
		DateRecorded:  catalogueDate,
		ValidFrom:     &catalogueDate,
		ValidTo:       &validTo,
		Source:        domain.SourceCatalogue,
		CatalogueDate: &catalogueDate,
	}

	if p.OriginalPrice != "" {
		if orig, ok := ParseMoney(p.OriginalPrice); ok && orig > 0 {
			record.OriginalPrice = &orig
		}
	}

	savings := ParseSavings(p.Savings)
	record.IsOnSale = savings > 0 || p.SpecialType != ""
	switch {
	case p.SpecialType != "":
		record.SaleDescription = p.SpecialType
	case savings > 0:
		record.SaleDescription = fmt.Sprintf("Save $%.2f", savings)
	}
	return record, nil
}

// publishPriceRecorded emits a best-effort price event. Publish failures
// are logged and never fail the record.
func (s *ImportService) publishPriceRecorded(ctx context.Context, p *domain.RawProduct, record *domain.PriceRecord) {
	if s.publisher == nil {
		return
	}
	event := &domain.PriceEvent{
		EventType:     domain.EventTypePriceRecorded,
		ItemID:        record.ItemID,
		PlaceID:       record.PlaceID,
		ProductName:   p.ProductName,
		Price:         record.Price,
		OriginalPrice: record.OriginalPrice,
		IsOnSale:      record.IsOnSale,
		Source:        record.Source,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.publisher.PublishPriceRecorded(ctx, event); err != nil {
		log.Printf("[IMPORT] Failed to publish price event for %s: %v", record.ItemID, err)
	}
}

// ImportFile imports a JSON catalogue file. The store is resolved from
// the detected chain, created on first sight.
func (s *ImportService) ImportFile(ctx context.Context, path string, catalogueDate time.Time) *domain.ImportResult {
	result := &domain.ImportResult{}

	if errs := s.validator.ValidateFile(path); len(errs) > 0 {
		result.ErrorMessage = errs[0].Message
		result.Errors = errs
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("cannot read file: %v", err)
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeFileNotFound,
			Message:     result.ErrorMessage,
			RecordIndex: -1,
		})
		return result
	}

	if errs := s.validator.ValidateJSONContent(data); len(errs) > 0 {
		result.ErrorMessage = errs[0].Message
		result.Errors = errs
		return result
	}

	products, err := decodeProducts(data)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeInvalidJSON,
			Message:     err.Error(),
			RecordIndex: -1,
		})
		return result
	}

	chain := DetectChain(path, data)
	place, err := s.getOrCreateStore(ctx, chain)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("resolve store for chain %s: %v", chain, err)
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeStore,
			Message:     result.ErrorMessage,
			RecordIndex: -1,
		})
		return result
	}

	return s.ImportBatch(ctx, products, place.ID, catalogueDate, nil)
}

// ImportMarkdownFile parses and imports a markdown catalogue file against
// the named store, creating the store on first sight. The parsed sale
// period supplies both the catalogue date and the expiry.
func (s *ImportService) ImportMarkdownFile(ctx context.Context, path, storeName string) *domain.ImportResult {
	result := &domain.ImportResult{}

	parsed := s.markdown.ParseFile(path)
	if parsed.ErrorMessage != "" {
		result.ErrorMessage = parsed.ErrorMessage
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeParse,
			Message:     parsed.ErrorMessage,
			RecordIndex: -1,
		})
		return result
	}
	if !parsed.Success {
		result.ErrorMessage = "no products found in catalogue"
		return result
	}

	chain := storeName
	if chain == "" {
		chain = DetectChain(path, nil)
	}
	place, err := s.getOrCreateStore(ctx, chain)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("resolve store %s: %v", chain, err)
		result.Errors = append(result.Errors, domain.ImportError{
			Type:        domain.ErrorTypeStore,
			Message:     result.ErrorMessage,
			RecordIndex: -1,
		})
		return result
	}

	validTo := parsed.ValidTo
	return s.ImportBatch(ctx, parsed.Products, place.ID, parsed.ValidFrom, &ImportBatchOptions{
		ExpiryDate: &validTo,
	})
}

// PreviewFile validates and decodes a JSON catalogue file without writing
// anything. It returns the records that would import and the errors for
// those that would not.
func (s *ImportService) PreviewFile(ctx context.Context, path string) ([]domain.RawProduct, []domain.ImportError) {
	if err := ctx.Err(); err != nil {
		return nil, []domain.ImportError{{
			Type:        domain.ErrorTypeUnknown,
			Message:     fmt.Sprintf("preview cancelled: %v", err),
			RecordIndex: -1,
		}}
	}

	if errs := s.validator.ValidateFile(path); len(errs) > 0 {
		return nil, errs
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []domain.ImportError{{
			Type:        domain.ErrorTypeFileNotFound,
			Message:     fmt.Sprintf("cannot read file: %v", err),
			RecordIndex: -1,
		}}
	}
	if errs := s.validator.ValidateJSONContent(data); len(errs) > 0 {
		return nil, errs
	}
	products, err := decodeProducts(data)
	if err != nil {
		return nil, []domain.ImportError{{
			Type:        domain.ErrorTypeInvalidJSON,
			Message:     err.Error(),
			RecordIndex: -1,
		}}
	}

	var valid []domain.RawProduct
	var errs []domain.ImportError
	for i := range products {
		if recordErrs := s.validator.ValidateProduct(&products[i], i); len(recordErrs) > 0 {
			errs = append(errs, recordErrs...)
			continue
		}
		valid = append(valid, products[i])
	}
	return valid, errs
}

// ImportBatchAsync runs ImportBatch on its own goroutine and delivers the
// result on the returned channel. The per-store lock inside ImportBatch
// still serializes concurrent batches against the same store.
func (s *ImportService) ImportBatchAsync(ctx context.Context, products []domain.RawProduct, storeID string, catalogueDate time.Time, opts *ImportBatchOptions) <-chan *domain.ImportResult {
	out := make(chan *domain.ImportResult, 1)
	go func() {
		defer close(out)
		out <- s.ImportBatch(ctx, products, storeID, catalogueDate, opts)
	}()
	return out
}

// getOrCreateStore finds the store for a chain by name, creating a
// minimal record when the chain has not been seen before.
func (s *ImportService) getOrCreateStore(ctx context.Context, chain string) (*domain.Place, error) {
	matches, err := s.places.SearchByName(ctx, chain)
	if err != nil {
		return nil, err
	}
	for _, place := range matches {
		if strings.EqualFold(place.Name, chain) {
			return place, nil
		}
	}

	place := &domain.Place{
		Name:      chain,
		Chain:     chain,
		IsActive:  true,
		DateAdded: time.Now().UTC(),
	}
	id, err := s.places.Add(ctx, place)
	if err != nil {
		return nil, err
	}
	place.ID = id
	s.info(fmt.Sprintf("Created store %q (%s)", chain, id))
	return place, nil
}

// lockFor returns the mutex serializing imports for one store.
func (s *ImportService) lockFor(storeID string) *sync.Mutex {
	lock, _ := s.storeLocks.LoadOrStore(storeID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// reportProgress invokes the sink, swallowing panics so a broken sink
// cannot abort the batch.
func (s *ImportService) reportProgress(sink func(domain.ImportProgress), progress domain.ImportProgress) {
	if sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	sink(progress)
}

func (s *ImportService) info(msg string) {
	if s.enableDebugLogging {
		log.Printf("[IMPORT] %s", msg)
	}
	if s.OnInfo != nil {
		s.OnInfo(msg)
	}
}

func (s *ImportService) warn(msg string) {
	if s.enableDebugLogging {
		log.Printf("[IMPORT] WARN %s", msg)
	}
	if s.OnWarning != nil {
		s.OnWarning(msg)
	}
}

func (s *ImportService) fail(msg string) {
	log.Printf("[IMPORT] ERROR %s", msg)
	if s.OnError != nil {
		s.OnError(msg)
	}
}

// decodeProducts decodes either a bare product array or an object
// wrapping one under an items/products/data key.
func decodeProducts(data []byte) ([]domain.RawProduct, error) {
	var products []domain.RawProduct
	if err := json.Unmarshal(data, &products); err == nil {
		return products, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for _, key := range []string{"items", "products", "data"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &products); err != nil {
			return nil, fmt.Errorf("decode products under %q: %w", key, err)
		}
		return products, nil
	}
	return nil, fmt.Errorf("no product array found under items, products or data")
}

// DetectChain infers the supermarket chain from the filename, falling
// back to scanning the content. Unknown sources map to "Unknown".
func DetectChain(path string, content []byte) string {
	base := strings.ToLower(filepath.Base(path))
	for _, chain := range knownChains {
		if strings.Contains(base, strings.ToLower(chain)) {
			return chain
		}
	}
	if len(content) > 0 {
		lower := strings.ToLower(string(content))
		for _, chain := range knownChains {
			if strings.Contains(lower, strings.ToLower(chain)) {
				return chain
			}
		}
	}
	return "Unknown"
}
