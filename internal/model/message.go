package model

import "time"

// MessageType says whether a message is general feedback or about one
// specific Innovation.
type MessageType string

const (
	MessageGeneral    MessageType = "general"
	MessageInnovation MessageType = "innovation"
)

func (t MessageType) Valid() bool {
	return t == MessageGeneral || t == MessageInnovation
}

// Message is feedback submitted by a signed-in participant.
//
// Read is controlled by privilege holders, Archived by the author. Messages
// are never deleted.
type Message struct {
	ID              string      `json:"id"`
	Type            MessageType `json:"type"`
	InnovationID    string      `json:"innovationId,omitempty"`
	InnovationTitle string      `json:"innovationTitle,omitempty"` // copied at creation for display
	Content         string      `json:"content"`
	CreatedBy       string      `json:"createdBy"`
	CreatedByEmail  string      `json:"createdByEmail,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	Read            bool        `json:"read"`
	Archived        bool        `json:"archived"`
}

// MessageFilter narrows the admin message listing.
type MessageFilter string

const (
	FilterAll        MessageFilter = "all"
	FilterGeneral    MessageFilter = "general"
	FilterInnovation MessageFilter = "innovation"
	FilterUnread     MessageFilter = "unread"
)

func (f MessageFilter) Valid() bool {
	switch f {
	case FilterAll, FilterGeneral, FilterInnovation, FilterUnread:
		return true
	}
	return false
}
