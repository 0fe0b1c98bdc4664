package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	importer  *usecase.ImportService
	exporter  *usecase.ExportService
	exportDir string
}

// NewHandler creates a new HTTP handler
func NewHandler(importer *usecase.ImportService, exporter *usecase.ExportService, exportDir string) *Handler {
	return &Handler{
		importer:  importer,
		exporter:  exporter,
		exportDir: exportDir,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// ImportFileRequest is the body for file imports. Markdown catalogues set
// format to "markdown" and name the store; JSON catalogues detect their
// chain from the file.
type ImportFileRequest struct {
	FilePath      string `json:"filePath" binding:"required"`
	CatalogueDate string `json:"catalogueDate"`
	Format        string `json:"format"`
	StoreName     string `json:"storeName"`
}

// ImportFile imports a catalogue file from the server filesystem
func (h *Handler) ImportFile(c *gin.Context) {
	var req ImportFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var result *domain.ImportResult
	if req.Format == "markdown" {
		result = h.importer.ImportMarkdownFile(c.Request.Context(), req.FilePath, req.StoreName)
	} else {
		date, err := parseCatalogueDate(req.CatalogueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result = h.importer.ImportFile(c.Request.Context(), req.FilePath, date)
	}

	c.JSON(importStatus(result), result)
}

// PreviewFile validates a catalogue file without importing it
func (h *Handler) PreviewFile(c *gin.Context) {
	var req struct {
		FilePath string `json:"filePath" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid, errs := h.importer.PreviewFile(c.Request.Context(), req.FilePath)
	c.JSON(http.StatusOK, gin.H{
		"validProducts": valid,
		"errors":        errs,
		"validCount":    len(valid),
		"errorCount":    len(errs),
	})
}

// ImportBatchRequest is the body for direct batch imports
type ImportBatchRequest struct {
	StoreID       string              `json:"storeId" binding:"required"`
	CatalogueDate string              `json:"catalogueDate"`
	Products      []domain.RawProduct `json:"products" binding:"required"`
	Mappings      map[string]string   `json:"mappings"`
}

// ImportBatch imports a batch of products posted in the request body
func (h *Handler) ImportBatch(c *gin.Context) {
	var req ImportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseCatalogueDate(req.CatalogueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := &usecase.ImportBatchOptions{ExistingMappings: req.Mappings}
	result := h.importer.ImportBatch(c.Request.Context(), req.Products, req.StoreID, date, opts)
	c.JSON(importStatus(result), result)
}

// Export builds and returns the export document for the posted options
func (h *Handler) Export(c *gin.Context) {
	var opts domain.ExportOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.exporter.BuildExport(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ExportDownload writes a gzipped export to the export directory and
// streams it back
func (h *Handler) ExportDownload(c *gin.Context) {
	opts := domain.DefaultExportOptions()
	if category := c.Query("category"); category != "" {
		opts.Category = category
	}
	if c.Query("onSale") == "true" {
		opts.OnlyOnSale = true
	}

	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := fmt.Sprintf("export-%s-%s.json.gz", time.Now().UTC().Format("20060102"), uuid.NewString()[:8])
	path := filepath.Join(h.exportDir, name)

	result := h.exporter.ExportToFileGz(c.Request.Context(), path, opts)
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.ErrorMessage})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/gzip")
	c.File(path)
}

// parseCatalogueDate parses an optional RFC 3339 or date-only value,
// defaulting to today.
func parseCatalogueDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid catalogue date %q, want RFC 3339 or YYYY-MM-DD", s)
}

// importStatus maps an import result onto an HTTP status. Partial
// failures are still 200; only a fully failed import is an error.
func importStatus(result *domain.ImportResult) int {
	if result.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
