package events

import (
	"encoding/json"
	"time"
)

// ChangeType is the kind of write that produced a change.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// Collection names published by the gateway.
const (
	CollectionAccounts          = "accounts"
	CollectionListings          = "services"
	CollectionBookings          = "bookings"
	CollectionReviews           = "reviews"
	CollectionMessages          = "messages"
	CollectionVerificationCodes = "verification_codes"
	CollectionNotifications     = "notifications"
)

// Change describes one insert or update on a collection.
// Fields holds the filterable attributes of the record (ids, status).
type Change struct {
	Collection string            `json:"collection"`
	Type       ChangeType        `json:"type"`
	Key        string            `json:"key"`
	Fields     map[string]string `json:"fields,omitempty"`
	Record     json.RawMessage   `json:"record,omitempty"`
	At         time.Time         `json:"at"`
}

// NewChange builds a Change with a JSON encoded record.
func NewChange(collection string, typ ChangeType, key string, fields map[string]string, record any) (Change, error) {
	var raw json.RawMessage
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return Change{}, err
		}
		raw = data
	}

	return Change{
		Collection: collection,
		Type:       typ,
		Key:        key,
		Fields:     fields,
		Record:     raw,
		At:         time.Now().UTC(),
	}, nil
}

// Decode unmarshals the record into v.
func (c Change) Decode(v any) error {
	return json.Unmarshal(c.Record, v)
}

// Publisher accepts changes produced by writes.
type Publisher interface {
	Publish(change Change)
}
