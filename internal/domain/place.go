package domain

import "time"

// Place is a physical store location that price records are attached to.
type Place struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Chain     string    `json:"chain,omitempty"` // Coles, Woolworths, IGA, etc.
	Address   string    `json:"address,omitempty"`
	Suburb    string    `json:"suburb,omitempty"`
	State     string    `json:"state,omitempty"`
	Postcode  string    `json:"postcode,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	DateAdded time.Time `json:"dateAdded"`
}
