package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// In-memory repository fakes shared by the service tests. They follow the
// repository contracts: SearchByName is a case-insensitive prefix match
// and ids are assigned on Add.

type fakeItemRepo struct {
	items  []*domain.Item
	nextID int
	addErr error
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*domain.Item, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *fakeItemRepo) SearchByName(_ context.Context, name string) ([]*domain.Item, error) {
	var out []*domain.Item
	prefix := strings.ToLower(name)
	for _, item := range r.items {
		if strings.HasPrefix(strings.ToLower(item.Name), prefix) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) GetAll(_ context.Context) ([]*domain.Item, error) {
	return r.items, nil
}

func (r *fakeItemRepo) Add(_ context.Context, item *domain.Item) (string, error) {
	if r.addErr != nil {
		return "", r.addErr
	}
	r.nextID++
	item.ID = fmt.Sprintf("item-%d", r.nextID)
	r.items = append(r.items, item)
	return item.ID, nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *domain.Item) error {
	for i, existing := range r.items {
		if existing.ID == item.ID {
			r.items[i] = item
			return nil
		}
	}
	return domain.ErrItemNotFound
}

type fakePlaceRepo struct {
	places []*domain.Place
	nextID int
}

func (r *fakePlaceRepo) GetByID(_ context.Context, id string) (*domain.Place, error) {
	for _, place := range r.places {
		if place.ID == id {
			return place, nil
		}
	}
	return nil, domain.ErrStoreNotFound
}

func (r *fakePlaceRepo) SearchByName(_ context.Context, name string) ([]*domain.Place, error) {
	var out []*domain.Place
	prefix := strings.ToLower(name)
	for _, place := range r.places {
		if strings.HasPrefix(strings.ToLower(place.Name), prefix) {
			out = append(out, place)
		}
	}
	return out, nil
}

func (r *fakePlaceRepo) GetAll(_ context.Context) ([]*domain.Place, error) {
	return r.places, nil
}

func (r *fakePlaceRepo) Add(_ context.Context, place *domain.Place) (string, error) {
	r.nextID++
	place.ID = fmt.Sprintf("place-%d", r.nextID)
	r.places = append(r.places, place)
	return place.ID, nil
}

func (r *fakePlaceRepo) Update(_ context.Context, place *domain.Place) error {
	for i, existing := range r.places {
		if existing.ID == place.ID {
			r.places[i] = place
			return nil
		}
	}
	return domain.ErrStoreNotFound
}

type fakePriceRepo struct {
	records []*domain.PriceRecord
	nextID  int
}

func (r *fakePriceRepo) Add(_ context.Context, record *domain.PriceRecord) (string, error) {
	r.nextID++
	record.ID = fmt.Sprintf("price-%d", r.nextID)
	r.records = append(r.records, record)
	return record.ID, nil
}

func (r *fakePriceRepo) GetAll(_ context.Context) ([]*domain.PriceRecord, error) {
	return r.records, nil
}

func (r *fakePriceRepo) GetByItem(_ context.Context, itemID string) ([]*domain.PriceRecord, error) {
	var out []*domain.PriceRecord
	for _, record := range r.records {
		if record.ItemID == itemID {
			out = append(out, record)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []*domain.PriceEvent
	err    error
}

func (p *fakePublisher) PublishPriceRecorded(_ context.Context, event *domain.PriceEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// testEnv bundles a wired import service over fresh fakes.
type testEnv struct {
	items     *fakeItemRepo
	places    *fakePlaceRepo
	prices    *fakePriceRepo
	publisher *fakePublisher
	importer  *ImportService
	exporter  *ExportService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		items:     &fakeItemRepo{},
		places:    &fakePlaceRepo{},
		prices:    &fakePriceRepo{},
		publisher: &fakePublisher{},
	}
	validator := NewImportValidator(ValidatorConfig{})
	reconciler := NewItemReconciler(env.items, false)
	markdown := NewCatalogueMarkdownParser(DefaultParserTables(), false)
	env.importer = NewImportService(env.items, env.places, env.prices, env.publisher, validator, reconciler, markdown, false)
	env.exporter = NewExportService(env.items, env.places, env.prices, domain.ExportLocation{
		Suburb:  "Adelaide",
		State:   "SA",
		Country: "Australia",
	}, false)
	return env
}

func (e *testEnv) addStore(name string) *domain.Place {
	place := &domain.Place{Name: name, Chain: name, IsActive: true}
	e.places.Add(context.Background(), place)
	return place
}
