package domain

import "context"

// ItemRepository defines the store contract for catalogue items.
// SearchByName matches a case-insensitive name prefix.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	SearchByName(ctx context.Context, name string) ([]*Item, error)
	GetAll(ctx context.Context) ([]*Item, error)
	Add(ctx context.Context, item *Item) (string, error)
	Update(ctx context.Context, item *Item) error
}

// PlaceRepository defines the store contract for store locations.
type PlaceRepository interface {
	GetByID(ctx context.Context, id string) (*Place, error)
	SearchByName(ctx context.Context, name string) ([]*Place, error)
	GetAll(ctx context.Context) ([]*Place, error)
	Add(ctx context.Context, place *Place) (string, error)
	Update(ctx context.Context, place *Place) error
}

// PriceRecordRepository defines the store contract for price observations.
// Records are append-only; there is no update.
type PriceRecordRepository interface {
	Add(ctx context.Context, record *PriceRecord) (string, error)
	GetAll(ctx context.Context) ([]*PriceRecord, error)
	GetByItem(ctx context.Context, itemID string) ([]*PriceRecord, error)
}
