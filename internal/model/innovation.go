// Package model defines the records the portal reads and writes.
//
// The JSON tags match what the browser client sends and expects, so a
// record can be written straight to the response without a separate DTO.
package model

import "time"

// InnovationStatus is the lifecycle stage of an Innovation.
type InnovationStatus string

const (
	StatusPending   InnovationStatus = "pending"
	StatusActive    InnovationStatus = "active"
	StatusCompleted InnovationStatus = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s InnovationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Innovation is a showcased project. Anyone may read it; only privilege
// holders may create, change or delete it.
//
// Tags is never nil once a record has passed through the service layer, so
// it always encodes as a JSON array.
type Innovation struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      InnovationStatus `json:"status"`
	Tags        []string         `json:"tags"`
	Link        string           `json:"link,omitempty"` // site for user testing
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
