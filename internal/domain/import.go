package domain

import "fmt"

// ImportErrorType classifies a single import problem.
type ImportErrorType string

const (
	ErrorTypeValidation   ImportErrorType = "validation"
	ErrorTypeFileNotFound ImportErrorType = "file_not_found"
	ErrorTypeInvalidJSON  ImportErrorType = "invalid_json"
	ErrorTypeInvalidData  ImportErrorType = "invalid_data"
	ErrorTypeStore        ImportErrorType = "store_error"
	ErrorTypeParse        ImportErrorType = "parse_error"
	ErrorTypeUnknown      ImportErrorType = "unknown"
)

// ImportError is a structured, accumulated import problem. Record-level
// errors are collected and returned to the caller; they never abort the
// batch they belong to.
type ImportError struct {
	Type        ImportErrorType `json:"type"`
	Message     string          `json:"message"`
	Field       string          `json:"field,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	RecordIndex int             `json:"recordIndex"` // -1 when not record-scoped
	RawText     string          `json:"rawText,omitempty"`
}

// String renders the error for human-readable result summaries.
func (e ImportError) String() string {
	if e.ProductName != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.ProductName, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// ImportResult summarizes one batch import.
//
// Success conflates "all good" and "some good, some bad" deliberately:
// a batch that made forward progress is successful even with errors, and
// callers inspect Errors to tell the two apart.
type ImportResult struct {
	Success             bool          `json:"success"`
	Message             string        `json:"message,omitempty"`
	ErrorMessage        string        `json:"errorMessage,omitempty"`
	ItemsProcessed      int           `json:"itemsProcessed"`
	ItemsUpdated        int           `json:"itemsUpdated"`
	PriceRecordsCreated int           `json:"priceRecordsCreated"`
	ItemsSkipped        int           `json:"itemsSkipped"`
	ItemsFailed         int           `json:"itemsFailed"`
	Errors              []ImportError `json:"errors,omitempty"`
}

// ErrorStrings flattens the structured errors into display messages.
func (r *ImportResult) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.String())
	}
	return out
}

// ImportProgress is reported once per processed record.
type ImportProgress struct {
	TotalItems     int    `json:"totalItems"`
	ProcessedItems int    `json:"processedItems"`
	CurrentItem    string `json:"currentItem"`
}

// PercentComplete returns completion as 0-100.
func (p ImportProgress) PercentComplete() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / float64(p.TotalItems) * 100
}
