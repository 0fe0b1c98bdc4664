package usecase

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

// Compiled regex patterns for markdown catalogue extraction
var (
	// Matches a sale period line like "Sale Period: 04/02/2026 to 10/02/2026"
	// or "Valid 4/2/2026 - 10/2/2026"
	salePeriodRegex = regexp.MustCompile(`(?i)(?:sale\s+period|valid)[^\d]*(\d{1,2}/\d{1,2}/\d{4})\s*(?:to|-|–)\s*(\d{1,2}/\d{1,2}/\d{4})`)

	// Matches level-2 category headings
	sectionHeadingRegex = regexp.MustCompile(`^##\s+(.+?)\s*$`)

	// Matches half-price savings text in any of its usual spellings
	halfPriceRegex = regexp.MustCompile(`(?i)(?:1/2|half)[\s-]*price`)

	// Matches "SAVE $n" savings text
	saveAmountRegex = regexp.MustCompile(`(?i)save\s*\$(\d+(?:\.\d+)?)`)
)

// CategoryKeyword maps a heading keyword to a standard category.
type CategoryKeyword struct {
	Keyword  string
	Category string
}

// ParserTables carries the replaceable heuristic data the markdown parser
// consults: the known-brand list and the keyword-to-category table. They
// are passed in rather than held as package state so the parser stays a
// pure function of (text, tables). Category keywords are matched in
// order; put broad keywords like "special" after specific ones.
type ParserTables struct {
	KnownBrands      []string
	CategoryKeywords []CategoryKeyword
	DefaultCategory  string
}

// DefaultParserTables returns the tables tuned to the Drakes catalogue
// formatting these feeds come from.
func DefaultParserTables() ParserTables {
	return ParserTables{
		KnownBrands: []string{
			"Coca-Cola", "Pepsi", "Cadbury", "Nestle", "Arnott's", "Kellogg's",
			"Uncle Tobys", "San Remo", "Leggo's", "MasterFoods", "Heinz",
			"Golden Circle", "Bega", "Devondale", "Western Star", "Sanitarium",
			"Streets", "Peters", "Four'N Twenty", "Ingham's", "Steggles",
			"Moccona", "Nescafe", "Twinings", "Schweppes", "Mount Franklin",
			"Smith's", "Doritos", "Red Rock Deli", "Tip Top", "Helga's",
			"Wonder White", "Mission", "Old El Paso", "Continental", "Maggi",
			"Campbell's", "SPC", "Ardmona", "Edgell", "Birds Eye", "McCain",
			"Omo", "Cold Power", "Finish", "Palmolive", "Colgate", "Rexona",
		},
		CategoryKeywords: []CategoryKeyword{
			{"meat", "Meat & Seafood"},
			{"seafood", "Meat & Seafood"},
			{"fruit", "Fruit & Vegetables"},
			{"vegetable", "Fruit & Vegetables"},
			{"produce", "Fruit & Vegetables"},
			{"dairy", "Dairy & Eggs"},
			{"egg", "Dairy & Eggs"},
			{"bakery", "Bakery"},
			{"bread", "Bakery"},
			{"frozen", "Frozen"},
			{"drink", "Beverages"},
			{"beverage", "Beverages"},
			{"snack", "Snacks & Confectionery"},
			{"confect", "Snacks & Confectionery"},
			{"deli", "Deli"},
			{"special", "Specials"},
		},
		DefaultCategory: "Grocery",
	}
}

// CatalogueParseResult is the outcome of parsing one markdown catalogue.
type CatalogueParseResult struct {
	Success      bool
	ValidFrom    time.Time
	ValidTo      time.Time
	Categories   []string
	Products     []domain.RawProduct
	ErrorMessage string
}

// CatalogueMarkdownParser extracts a sale period, category sections and
// tabular product rows from loosely structured markdown catalogue text.
type CatalogueMarkdownParser struct {
	tables             ParserTables
	enableDebugLogging bool
}

// NewCatalogueMarkdownParser creates a parser using the given tables.
func NewCatalogueMarkdownParser(tables ParserTables, enableDebugLogging bool) *CatalogueMarkdownParser {
	return &CatalogueMarkdownParser{
		tables:             tables,
		enableDebugLogging: enableDebugLogging,
	}
}

// ParseFile reads and parses a markdown catalogue file. A missing,
// unreadable or empty file yields a parse failure with no partial output.
func (p *CatalogueMarkdownParser) ParseFile(path string) *CatalogueParseResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CatalogueParseResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("cannot read catalogue file: %v", err),
		}
	}
	if len(data) == 0 {
		return &CatalogueParseResult{
			Success:      false,
			ErrorMessage: "catalogue file is empty",
		}
	}
	return p.Parse(string(data))
}

// Parse runs a single pass over the catalogue text. A readable document
// that yields zero product rows is reported as unsuccessful with zero
// products rather than as an error.
func (p *CatalogueMarkdownParser) Parse(content string) *CatalogueParseResult {
	result := &CatalogueParseResult{}
	result.ValidFrom, result.ValidTo = p.extractSalePeriod(content)

	lines := strings.Split(content, "\n")
	currentCategory := ""
	seenCategories := make(map[string]bool)

	for _, line := range lines {
		if m := sectionHeadingRegex.FindStringSubmatch(line); m != nil {
			currentCategory = p.mapCategory(m[1])
			continue
		}

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}

		product, ok := p.parseTableRow(trimmed, currentCategory)
		if !ok {
			continue
		}
		if !seenCategories[product.Category] {
			seenCategories[product.Category] = true
			result.Categories = append(result.Categories, product.Category)
		}
		result.Products = append(result.Products, product)
	}

	result.Success = len(result.Products) > 0
	if p.enableDebugLogging {
		log.Printf("[CATALOGUE] Parsed %d products across %d categories (valid %s to %s)",
			len(result.Products), len(result.Categories),
			result.ValidFrom.Format("2006-01-02"), result.ValidTo.Format("2006-01-02"))
	}
	return result
}

// extractSalePeriod locates the sale period declaration, defaulting to
// today through today+7 when absent.
func (p *CatalogueMarkdownParser) extractSalePeriod(content string) (time.Time, time.Time) {
	if m := salePeriodRegex.FindStringSubmatch(content); m != nil {
		from, errFrom := time.Parse("2/1/2006", m[1])
		to, errTo := time.Parse("2/1/2006", m[2])
		if errFrom == nil && errTo == nil {
			return from, to
		}
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return today, today.AddDate(0, 0, 7)
}

// parseTableRow extracts one product from a pipe-delimited table row with
// product / price / savings columns. Header and separator rows are
// rejected by the "Product" token guard and the price pattern.
func (p *CatalogueMarkdownParser) parseTableRow(row, category string) (domain.RawProduct, bool) {
	cells := splitTableRow(row)
	if len(cells) < 3 {
		return domain.RawProduct{}, false
	}

	name := cells[0]
	if name == "" || strings.Contains(name, "Product") || strings.HasPrefix(name, "---") {
		return domain.RawProduct{}, false
	}

	priceMatch := dollarAmountRegex.FindString(cells[1])
	if priceMatch == "" {
		return domain.RawProduct{}, false
	}
	price, ok := ParseMoney(priceMatch)
	if !ok {
		return domain.RawProduct{}, false
	}

	product := domain.RawProduct{
		// Markdown sources lack a stable external key, so every row gets
		// a fresh identifier instead of a derived one.
		ProductID:   uuid.NewString(),
		ProductName: name,
		Category:    category,
		Brand:       p.extractBrand(name),
		Price:       priceMatch,
	}
	if product.Category == "" {
		product.Category = p.tables.DefaultCategory
	}

	savings := strings.TrimSpace(cells[2])
	switch {
	case halfPriceRegex.MatchString(savings):
		product.OriginalPrice = fmt.Sprintf("$%.2f", price*2)
		product.Savings = fmt.Sprintf("$%.2f", price)
		product.SpecialType = "1/2 Price"
	case saveAmountRegex.MatchString(savings):
		saved := ParseSavings(savings)
		product.OriginalPrice = fmt.Sprintf("$%.2f", price+saved)
		product.Savings = fmt.Sprintf("$%.2f", saved)
	case savings != "":
		product.SpecialType = savings
	}

	if _, unit, ok := ParsePackageSize(name); ok {
		product.UnitPrice = unit
	}
	return product, true
}

// extractBrand checks the product name against the known-brand list,
// falling back to the first word of at least 3 characters.
func (p *CatalogueMarkdownParser) extractBrand(name string) string {
	lower := strings.ToLower(name)
	for _, brand := range p.tables.KnownBrands {
		if strings.HasPrefix(lower, strings.ToLower(brand)) {
			return brand
		}
	}
	for _, word := range strings.Fields(name) {
		if len(word) >= 3 {
			return word
		}
	}
	return ""
}

// mapCategory maps a section heading onto a standard category through the
// keyword table. First keyword wins.
func (p *CatalogueMarkdownParser) mapCategory(heading string) string {
	lower := strings.ToLower(heading)
	for _, ck := range p.tables.CategoryKeywords {
		if strings.Contains(lower, ck.Keyword) {
			return ck.Category
		}
	}
	return p.tables.DefaultCategory
}

// splitTableRow splits a pipe-delimited row into trimmed logical cells.
func splitTableRow(row string) []string {
	row = strings.Trim(row, "|")
	parts := strings.Split(row, "|")
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}
