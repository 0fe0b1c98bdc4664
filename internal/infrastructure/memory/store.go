package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

// Store is a thread-safe in-memory implementation of the item, place and
// price record repositories. Insertion order is preserved so listings and
// exports are deterministic. Intended for tests and single-node use; the
// sqlite store is the persistent counterpart.
type Store struct {
	mutex sync.RWMutex

	items       map[string]*domain.Item
	itemOrder   []string
	places      map[string]*domain.Place
	placeOrder  []string
	prices      map[string]*domain.PriceRecord
	priceOrder  []string
	pricesByItm map[string][]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		items:       make(map[string]*domain.Item),
		places:      make(map[string]*domain.Place),
		prices:      make(map[string]*domain.PriceRecord),
		pricesByItm: make(map[string][]string),
	}
}

// Items returns the item repository view of the store.
func (s *Store) Items() domain.ItemRepository { return (*itemStore)(s) }

// Places returns the place repository view of the store.
func (s *Store) Places() domain.PlaceRepository { return (*placeStore)(s) }

// Prices returns the price record repository view of the store.
func (s *Store) Prices() domain.PriceRecordRepository { return (*priceStore)(s) }

type itemStore Store

func (s *itemStore) GetByID(_ context.Context, id string) (*domain.Item, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *itemStore) SearchByName(_ context.Context, name string) ([]*domain.Item, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	prefix := strings.ToLower(name)
	var out []*domain.Item
	for _, id := range s.itemOrder {
		item := s.items[id]
		if strings.HasPrefix(strings.ToLower(item.Name), prefix) {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *itemStore) GetAll(_ context.Context) ([]*domain.Item, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*domain.Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		copied := *s.items[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *itemStore) Add(_ context.Context, item *domain.Item) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	copied := *item
	s.items[item.ID] = &copied
	s.itemOrder = append(s.itemOrder, item.ID)
	return item.ID, nil
}

func (s *itemStore) Update(_ context.Context, item *domain.Item) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.items[item.ID]; !exists {
		return domain.ErrItemNotFound
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

type placeStore Store

func (s *placeStore) GetByID(_ context.Context, id string) (*domain.Place, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	place, exists := s.places[id]
	if !exists {
		return nil, domain.ErrStoreNotFound
	}
	copied := *place
	return &copied, nil
}

func (s *placeStore) SearchByName(_ context.Context, name string) ([]*domain.Place, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	prefix := strings.ToLower(name)
	var out []*domain.Place
	for _, id := range s.placeOrder {
		place := s.places[id]
		if strings.HasPrefix(strings.ToLower(place.Name), prefix) {
			copied := *place
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *placeStore) GetAll(_ context.Context) ([]*domain.Place, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*domain.Place, 0, len(s.placeOrder))
	for _, id := range s.placeOrder {
		copied := *s.places[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *placeStore) Add(_ context.Context, place *domain.Place) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	copied := *place
	s.places[place.ID] = &copied
	s.placeOrder = append(s.placeOrder, place.ID)
	return place.ID, nil
}

func (s *placeStore) Update(_ context.Context, place *domain.Place) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.places[place.ID]; !exists {
		return domain.ErrStoreNotFound
	}
	copied := *place
	s.places[place.ID] = &copied
	return nil
}

type priceStore Store

func (s *priceStore) Add(_ context.Context, record *domain.PriceRecord) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	copied := *record
	s.prices[record.ID] = &copied
	s.priceOrder = append(s.priceOrder, record.ID)
	s.pricesByItm[record.ItemID] = append(s.pricesByItm[record.ItemID], record.ID)
	return record.ID, nil
}

func (s *priceStore) GetAll(_ context.Context) ([]*domain.PriceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*domain.PriceRecord, 0, len(s.priceOrder))
	for _, id := range s.priceOrder {
		copied := *s.prices[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *priceStore) GetByItem(_ context.Context, itemID string) ([]*domain.PriceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := s.pricesByItm[itemID]
	out := make([]*domain.PriceRecord, 0, len(ids))
	for _, id := range ids {
		copied := *s.prices[id]
		out = append(out, &copied)
	}
	return out, nil
}
