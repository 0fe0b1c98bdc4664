package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	brand         TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	sub_category  TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	package_size  TEXT NOT NULL DEFAULT '',
	unit          TEXT NOT NULL DEFAULT '',
	barcode       TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1,
	extra_info    TEXT NOT NULL DEFAULT '{}',
	date_added    TEXT NOT NULL,
	last_updated  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS places (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	chain      TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	suburb     TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	postcode   TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	is_active  INTEGER NOT NULL DEFAULT 1,
	date_added TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS price_records (
	id               TEXT PRIMARY KEY,
	item_id          TEXT NOT NULL REFERENCES items(id),
	place_id         TEXT NOT NULL,
	price            REAL NOT NULL,
	original_price   REAL,
	is_on_sale       INTEGER NOT NULL DEFAULT 0,
	sale_description TEXT NOT NULL DEFAULT '',
	date_recorded    TEXT NOT NULL,
	valid_from       TEXT,
	valid_to         TEXT,
	source           TEXT NOT NULL DEFAULT '',
	catalogue_date   TEXT,
	notes            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_price_records_item ON price_records(item_id);
`

// Store is the sqlite-backed implementation of the item, place and price
// record repositories. Timestamps are stored as RFC 3339 text and item
// extra information as a JSON object column.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent imports.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Items returns the item repository view of the store.
func (s *Store) Items() domain.ItemRepository { return (*itemStore)(s) }

// Places returns the place repository view of the store.
func (s *Store) Places() domain.PlaceRepository { return (*placeStore)(s) }

// Prices returns the price record repository view of the store.
func (s *Store) Prices() domain.PriceRecordRepository { return (*priceStore)(s) }

type itemStore Store

const itemColumns = `id, name, brand, category, sub_category, description,
	package_size, unit, barcode, is_active, extra_info, date_added, last_updated`

func (s *itemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrItemNotFound
	}
	return item, err
}

func (s *itemStore) SearchByName(ctx context.Context, name string) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name LIKE ? ESCAPE '\' COLLATE NOCASE ORDER BY rowid`,
		escapeLike(name)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *itemStore) GetAll(ctx context.Context) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *itemStore) Add(ctx context.Context, item *domain.Item) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	extra, err := encodeExtra(item.ExtraInformation)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Brand, item.Category, item.SubCategory, item.Description,
		item.PackageSize, item.Unit, item.Barcode, item.IsActive, extra,
		formatTime(item.DateAdded), formatTime(item.LastUpdated))
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}
	return item.ID, nil
}

func (s *itemStore) Update(ctx context.Context, item *domain.Item) error {
	extra, err := encodeExtra(item.ExtraInformation)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, brand = ?, category = ?, sub_category = ?, description = ?,
			package_size = ?, unit = ?, barcode = ?, is_active = ?, extra_info = ?, last_updated = ?
		 WHERE id = ?`,
		item.Name, item.Brand, item.Category, item.SubCategory, item.Description,
		item.PackageSize, item.Unit, item.Barcode, item.IsActive, extra,
		formatTime(item.LastUpdated), item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

type placeStore Store

const placeColumns = `id, name, chain, address, suburb, state, postcode, phone, is_active, date_added`

func (s *placeStore) GetByID(ctx context.Context, id string) (*domain.Place, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ?`, id)
	place, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrStoreNotFound
	}
	return place, err
}

func (s *placeStore) SearchByName(ctx context.Context, name string) ([]*domain.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE name LIKE ? ESCAPE '\' COLLATE NOCASE ORDER BY rowid`,
		escapeLike(name)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaces(rows)
}

func (s *placeStore) GetAll(ctx context.Context) ([]*domain.Place, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM places ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaces(rows)
}

func (s *placeStore) Add(ctx context.Context, place *domain.Place) (string, error) {
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO places (`+placeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		place.ID, place.Name, place.Chain, place.Address, place.Suburb, place.State,
		place.Postcode, place.Phone, place.IsActive, formatTime(place.DateAdded))
	if err != nil {
		return "", fmt.Errorf("insert place: %w", err)
	}
	return place.ID, nil
}

func (s *placeStore) Update(ctx context.Context, place *domain.Place) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE places SET name = ?, chain = ?, address = ?, suburb = ?, state = ?,
			postcode = ?, phone = ?, is_active = ? WHERE id = ?`,
		place.Name, place.Chain, place.Address, place.Suburb, place.State,
		place.Postcode, place.Phone, place.IsActive, place.ID)
	if err != nil {
		return fmt.Errorf("update place: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

type priceStore Store

const priceColumns = `id, item_id, place_id, price, original_price, is_on_sale,
	sale_description, date_recorded, valid_from, valid_to, source, catalogue_date, notes`

func (s *priceStore) Add(ctx context.Context, record *domain.PriceRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_records (`+priceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.ItemID, record.PlaceID, record.Price, record.OriginalPrice,
		record.IsOnSale, record.SaleDescription, formatTime(record.DateRecorded),
		formatTimePtr(record.ValidFrom), formatTimePtr(record.ValidTo),
		record.Source, formatTimePtr(record.CatalogueDate), record.Notes)
	if err != nil {
		return "", fmt.Errorf("insert price record: %w", err)
	}
	return record.ID, nil
}

func (s *priceStore) GetAll(ctx context.Context) ([]*domain.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+priceColumns+` FROM price_records ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

func (s *priceStore) GetByItem(ctx context.Context, itemID string) ([]*domain.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM price_records WHERE item_id = ? ORDER BY rowid`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

// scanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.Item, error) {
	var item domain.Item
	var extra, dateAdded, lastUpdated string
	err := row.Scan(&item.ID, &item.Name, &item.Brand, &item.Category, &item.SubCategory,
		&item.Description, &item.PackageSize, &item.Unit, &item.Barcode, &item.IsActive,
		&extra, &dateAdded, &lastUpdated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(extra), &item.ExtraInformation); err != nil {
		return nil, fmt.Errorf("decode extra info for item %s: %w", item.ID, err)
	}
	if item.DateAdded, err = parseTime(dateAdded); err != nil {
		return nil, err
	}
	if item.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*domain.Item, error) {
	var out []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanPlace(row scanner) (*domain.Place, error) {
	var place domain.Place
	var dateAdded string
	err := row.Scan(&place.ID, &place.Name, &place.Chain, &place.Address, &place.Suburb,
		&place.State, &place.Postcode, &place.Phone, &place.IsActive, &dateAdded)
	if err != nil {
		return nil, err
	}
	if place.DateAdded, err = parseTime(dateAdded); err != nil {
		return nil, err
	}
	return &place, nil
}

func scanPlaces(rows *sql.Rows) ([]*domain.Place, error) {
	var out []*domain.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, place)
	}
	return out, rows.Err()
}

func scanPriceRecords(rows *sql.Rows) ([]*domain.PriceRecord, error) {
	var out []*domain.PriceRecord
	for rows.Next() {
		var record domain.PriceRecord
		var dateRecorded string
		var validFrom, validTo, catalogueDate sql.NullString
		err := rows.Scan(&record.ID, &record.ItemID, &record.PlaceID, &record.Price,
			&record.OriginalPrice, &record.IsOnSale, &record.SaleDescription,
			&dateRecorded, &validFrom, &validTo, &record.Source, &catalogueDate, &record.Notes)
		if err != nil {
			return nil, err
		}
		if record.DateRecorded, err = parseTime(dateRecorded); err != nil {
			return nil, err
		}
		if record.ValidFrom, err = parseTimePtr(validFrom); err != nil {
			return nil, err
		}
		if record.ValidTo, err = parseTimePtr(validTo); err != nil {
			return nil, err
		}
		if record.CatalogueDate, err = parseTimePtr(catalogueDate); err != nil {
			return nil, err
		}
		out = append(out, &record)
	}
	return out, rows.Err()
}

func encodeExtra(extra map[string]string) (string, error) {
	if extra == nil {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encode extra info: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// likeEscaper escapes LIKE wildcards in user-supplied prefixes.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
