package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pricelens/backend/internal/domain"
)

// Validation bounds applied to incoming records and files
const (
	defaultMaxFileSizeMiB = 50
	defaultMaxPrice       = 10000.0
	maxFutureCatalogue    = 365 * 24 * time.Hour // 1 year ahead
	maxPastCatalogueYears = 5
)

// ValidatorConfig holds configuration for the import validator
type ValidatorConfig struct {
	MaxFileSizeMiB int64
	MaxPrice       float64
}

// ImportValidator checks structural and semantic constraints on files and
// records. Every surface accumulates ImportErrors instead of failing fast;
// the two fail-fast paths (destination store, catalogue date) live in the
// import service where the store contract is available.
type ImportValidator struct {
	validate    *validator.Validate
	maxFileSize int64
	maxPrice    float64
}

// NewImportValidator creates a validator with the given bounds, falling
// back to the defaults for zero values.
func NewImportValidator(cfg ValidatorConfig) *ImportValidator {
	maxMiB := cfg.MaxFileSizeMiB
	if maxMiB <= 0 {
		maxMiB = defaultMaxFileSizeMiB
	}
	maxPrice := cfg.MaxPrice
	if maxPrice <= 0 {
		maxPrice = defaultMaxPrice
	}
	return &ImportValidator{
		validate:    validator.New(),
		maxFileSize: maxMiB * 1024 * 1024,
		maxPrice:    maxPrice,
	}
}

// ValidateFile checks that a path points at a readable, non-empty file
// within the size limit.
func (v *ImportValidator) ValidateFile(path string) []domain.ImportError {
	var errs []domain.ImportError

	if path == "" {
		return append(errs, domain.ImportError{
			Type:        domain.ErrorTypeValidation,
			Message:     "file path is empty",
			RecordIndex: -1,
		})
	}

	info, err := os.Stat(path)
	if err != nil {
		return append(errs, domain.ImportError{
			Type:        domain.ErrorTypeFileNotFound,
			Message:     fmt.Sprintf("file not found: %s", path),
			RecordIndex: -1,
		})
	}

	if info.Size() == 0 {
		errs = append(errs, domain.ImportError{
			Type:        domain.ErrorTypeValidation,
			Message:     "file is empty",
			RecordIndex: -1,
		})
	}
	if info.Size() > v.maxFileSize {
		errs = append(errs, domain.ImportError{
			Type:        domain.ErrorTypeValidation,
			Message:     fmt.Sprintf("file exceeds maximum size of %d MiB", v.maxFileSize/(1024*1024)),
			RecordIndex: -1,
		})
	}
	return errs
}

// ValidateJSONContent checks that data decodes as JSON with an array or
// object root.
func (v *ImportValidator) ValidateJSONContent(data []byte) []domain.ImportError {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return []domain.ImportError{{
			Type:        domain.ErrorTypeInvalidJSON,
			Message:     fmt.Sprintf("invalid JSON: %v", err),
			RecordIndex: -1,
		}}
	}
	switch root.(type) {
	case []any, map[string]any:
		return nil
	default:
		return []domain.ImportError{{
			Type:        domain.ErrorTypeInvalidJSON,
			Message:     "JSON root must be an array or object",
			RecordIndex: -1,
		}}
	}
}

// ValidateProduct checks one raw record. The struct tags on RawProduct
// cover required fields and length limits; the numeric price rules are
// layered on top. A record with any violation is excluded from the batch,
// but its errors are still returned for the caller.
func (v *ImportValidator) ValidateProduct(p *domain.RawProduct, index int) []domain.ImportError {
	var errs []domain.ImportError

	if err := v.validate.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, domain.ImportError{
					Type:        domain.ErrorTypeValidation,
					Message:     tagMessage(fe),
					Field:       fe.Field(),
					ProductName: p.ProductName,
					RecordIndex: index,
				})
			}
		} else {
			errs = append(errs, domain.ImportError{
				Type:        domain.ErrorTypeValidation,
				Message:     err.Error(),
				ProductName: p.ProductName,
				RecordIndex: index,
			})
		}
	}

	if p.Price != "" {
		if pe := v.validatePriceText(p.Price, "Price", p.ProductName, index); pe != nil {
			errs = append(errs, *pe)
		}
	}
	if p.OriginalPrice != "" {
		if pe := v.validatePriceText(p.OriginalPrice, "OriginalPrice", p.ProductName, index); pe != nil {
			errs = append(errs, *pe)
		}
	}
	return errs
}

// validatePriceText applies the numeric and bound rules to one price field.
func (v *ImportValidator) validatePriceText(text, field, productName string, index int) *domain.ImportError {
	amount, ok := ParseMoney(text)
	if !ok {
		return &domain.ImportError{
			Type:        domain.ErrorTypeInvalidData,
			Message:     fmt.Sprintf("%s %q is not a valid amount", field, text),
			Field:       field,
			ProductName: productName,
			RecordIndex: index,
			RawText:     text,
		}
	}
	if amount > v.maxPrice {
		return &domain.ImportError{
			Type:        domain.ErrorTypeInvalidData,
			Message:     fmt.Sprintf("%s %.2f exceeds maximum of %.0f", field, amount, v.maxPrice),
			Field:       field,
			ProductName: productName,
			RecordIndex: index,
			RawText:     text,
		}
	}
	return nil
}

// ValidateCatalogueDate rejects dates that would corrupt price history
// ordering: more than a year ahead or more than five years back.
func (v *ImportValidator) ValidateCatalogueDate(date time.Time) *domain.ImportError {
	now := time.Now().UTC()
	if date.After(now.Add(maxFutureCatalogue)) {
		return &domain.ImportError{
			Type:        domain.ErrorTypeValidation,
			Message:     fmt.Sprintf("catalogue date %s is more than 1 year in the future", date.Format("2006-01-02")),
			Field:       "catalogueDate",
			RecordIndex: -1,
		}
	}
	if date.Before(now.AddDate(-maxPastCatalogueYears, 0, 0)) {
		return &domain.ImportError{
			Type:        domain.ErrorTypeValidation,
			Message:     fmt.Sprintf("catalogue date %s is more than %d years in the past", date.Format("2006-01-02"), maxPastCatalogueYears),
			Field:       "catalogueDate",
			RecordIndex: -1,
		}
	}
	return nil
}

// tagMessage converts a validator field error into a human message.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
