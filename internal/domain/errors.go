package domain

import "errors"

var (
	// ErrStoreNotFound is returned when the destination store id does not resolve
	ErrStoreNotFound = errors.New("store not found")

	// ErrItemNotFound is returned when an item id does not resolve
	ErrItemNotFound = errors.New("item not found")

	// ErrNoProducts is returned when an import batch contains no records
	ErrNoProducts = errors.New("no products to import")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnsupportedFormat is returned when a file is neither a recognized JSON feed nor a markdown catalogue
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
