package model

import "time"

// ChangeType identifies the kind of mutation carried by a ChangeEvent.
type ChangeType string

// Change event types.
const (
	ChangeTypeCreated ChangeType = "item.created"
	ChangeTypeUpdated ChangeType = "item.updated"
	ChangeTypeDeleted ChangeType = "item.deleted"
)

// ChangeEvent describes a successful mutation of the catalog.
// For deletions only Item.ID is populated.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	Item      Item       `json:"item"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with the current time.
func NewChangeEvent(changeType ChangeType, item Item) ChangeEvent {
	return ChangeEvent{
		Type:      changeType,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}
