package domain

// Event types emitted by successful transitions.
const (
	EventItemDispensed     = "item_dispensed"
	EventInventoryRefilled = "inventory_refilled"
	EventAdminAdded        = "admin_added"
	EventAddMembers        = "add_members"
	EventAdminLeft         = "admin_left"
)

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is an observable record attached to a committed command.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

// With returns a copy of e with the attribute appended.
func (e Event) With(key, value string) Event {
	attrs := make([]Attribute, len(e.Attributes), len(e.Attributes)+1)
	copy(attrs, e.Attributes)
	e.Attributes = append(attrs, Attribute{Key: key, Value: value})
	return e
}

// Attr returns the first attribute value stored under key.
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
