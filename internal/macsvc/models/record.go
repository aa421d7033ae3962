package models

import (
	"time"
)

// Record is a contact entry keyed by the canonical MAC address.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mac       string    `json:"mac"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordPatch carries the fields supplied to an update. Nil means untouched.
type RecordPatch struct {
	Name  *string `json:"name,omitempty"`
	Mac   *string `json:"mac,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func (p RecordPatch) Empty() bool {
	return p.Name == nil && p.Mac == nil && p.Phone == nil
}

// RecordFilter narrows a lookup. Name and Phone are case-insensitive
// substrings, Mac is compared against the canonical form.
type RecordFilter struct {
	Name  string
	Mac   string
	Phone string
	Limit int
}

type RecordStats struct {
	Total  int64 `json:"total"`
	Recent int64 `json:"recent"`
	Unique int64 `json:"unique"`
}
