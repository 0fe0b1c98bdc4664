package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// ItemReconciler resolves raw import records onto canonical catalogue
// items. Identity is name plus brand: the name comparison is
// case-insensitive, the brand comparison is exact, and only active items
// are candidates. A record that matches nothing creates a new item.
type ItemReconciler struct {
	items              domain.ItemRepository
	enableDebugLogging bool
}

// NewItemReconciler creates a reconciler over the given item store.
func NewItemReconciler(items domain.ItemRepository, enableDebugLogging bool) *ItemReconciler {
	return &ItemReconciler{
		items:              items,
		enableDebugLogging: enableDebugLogging,
	}
}

// ResolveMapping looks up an explicitly mapped item for the record's
// external identifier. A hit bypasses reconciliation entirely: the caller
// records a price against the mapped item and the item itself is left
// untouched. Returns (nil, nil) when no mapping applies.
func (r *ItemReconciler) ResolveMapping(ctx context.Context, p *domain.RawProduct, mappings map[string]string) (*domain.Item, error) {
	if len(mappings) == 0 {
		return nil, nil
	}
	itemID, ok := mappings[p.EffectiveID()]
	if !ok {
		return nil, nil
	}
	item, err := r.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("mapped item %s not found for product %q: %w", itemID, p.ProductName, err)
	}
	return item, nil
}

// CreateOrUpdateItem reconciles one raw record against the catalogue.
// A match refreshes the item's descriptive fields in place; a miss
// creates a new item carrying the source metadata in ExtraInformation.
// Returns the resolved item and whether it was newly created.
func (r *ItemReconciler) CreateOrUpdateItem(ctx context.Context, p *domain.RawProduct, chain string) (*domain.Item, bool, error) {
	existing, err := r.findMatch(ctx, p)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		existing.Name = p.ProductName
		if p.Description != "" {
			existing.Description = p.Description
		}
		if p.Brand != "" {
			existing.Brand = p.Brand
		}
		if p.Category != "" {
			existing.Category = p.Category
		}
		existing.LastUpdated = time.Now().UTC()
		if err := r.items.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("update item %s: %w", existing.ID, err)
		}
		if r.enableDebugLogging {
			log.Printf("[RECONCILE] Matched %q (brand %q) to existing item %s", p.ProductName, p.Brand, existing.ID)
		}
		return existing, false, nil
	}

	now := time.Now().UTC()
	item := &domain.Item{
		Name:        p.ProductName,
		Brand:       p.Brand,
		Category:    p.Category,
		Description: p.Description,
		IsActive:    true,
		ExtraInformation: map[string]string{
			domain.ExtraKeyProductID: p.EffectiveID(),
		},
		DateAdded:   now,
		LastUpdated: now,
	}
	if chain != "" {
		item.ExtraInformation[domain.ExtraKeyStore] = chain
	}
	if p.UnitPrice != "" {
		item.ExtraInformation[domain.ExtraKeyUnitPrice] = p.UnitPrice
	}
	if size, unit, ok := ParsePackageSize(p.ProductName); ok {
		item.PackageSize = fmt.Sprintf("%g%s", size, unit)
		item.Unit = unit
	}

	id, err := r.items.Add(ctx, item)
	if err != nil {
		return nil, false, fmt.Errorf("create item for %q: %w", p.ProductName, err)
	}
	item.ID = id
	if r.enableDebugLogging {
		log.Printf("[RECONCILE] Created item %s for %q (brand %q)", id, p.ProductName, p.Brand)
	}
	return item, true, nil
}

// findMatch scans candidate items sharing the record's name for an
// active item with the same brand.
func (r *ItemReconciler) findMatch(ctx context.Context, p *domain.RawProduct) (*domain.Item, error) {
	candidates, err := r.items.SearchByName(ctx, p.ProductName)
	if err != nil {
		return nil, fmt.Errorf("search items for %q: %w", p.ProductName, err)
	}
	for _, item := range candidates {
		if !item.IsActive {
			continue
		}
		if !strings.EqualFold(item.Name, p.ProductName) {
			continue
		}
		if item.Brand != p.Brand {
			continue
		}
		return item, nil
	}
	return nil, nil
}
