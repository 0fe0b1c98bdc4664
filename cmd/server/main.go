package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/events"
	"github.com/pricelens/backend/internal/infrastructure/memory"
	"github.com/pricelens/backend/internal/infrastructure/sqlitestore"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Store: %s", cfg.Store.Type)

	// Initialize the catalogue store
	var items domain.ItemRepository
	var places domain.PlaceRepository
	var prices domain.PriceRecordRepository
	switch cfg.Store.Type {
	case "sqlite":
		store, err := sqlitestore.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		defer store.Close()
		items, places, prices = store.Items(), store.Places(), store.Prices()
		log.Printf("Catalogue database: %s", cfg.Store.Path)
	default:
		store := memory.NewStore()
		items, places, prices = store.Items(), store.Places(), store.Prices()
		log.Printf("WARNING: in-memory store selected, data is lost on restart")
	}

	// Initialize event publishing
	var publisher domain.PricePublisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, cfg.Import.DebugLogging)
		if err != nil {
			log.Fatalf("Failed to create kafka publisher: %v", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing price events to %s via %v", cfg.Events.Topic, cfg.Events.Brokers)
	}

	// Enable debug mode in development environment
	debug := cfg.Import.DebugLogging || cfg.Server.Environment == "development"

	// Initialize usecase layer
	validator := usecase.NewImportValidator(usecase.ValidatorConfig{
		MaxFileSizeMiB: cfg.Import.MaxFileSizeMiB,
		MaxPrice:       cfg.Import.MaxPrice,
	})
	reconciler := usecase.NewItemReconciler(items, debug)
	markdown := usecase.NewCatalogueMarkdownParser(usecase.DefaultParserTables(), debug)
	importer := usecase.NewImportService(items, places, prices, publisher, validator, reconciler, markdown, debug)
	exporter := usecase.NewExportService(items, places, prices, domain.ExportLocation{
		Suburb:  cfg.Export.Suburb,
		State:   cfg.Export.State,
		Country: cfg.Export.Country,
	}, debug)

	log.Printf("Import limits: file=%dMiB, price=%.0f", cfg.Import.MaxFileSizeMiB, cfg.Import.MaxPrice)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(importer, exporter, cfg.Export.Dir)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
