package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

// Execute tags.
const (
	TagGetItem    = "get_item"
	TagRefill     = "refill"
	TagAddMembers = "add_members"
	TagLeave      = "leave"
)

// Query tags.
const (
	TagItemsCount = "items_count"
	TagAdminsList = "admins_list"
	TagGreet      = "greet"
)

type GetItemPayload struct {
	Category string `json:"category"`
	Amount   uint64 `json:"amount,omitempty"`
}

type RefillPayload struct {
	Number uint64 `json:"number"`
}

type AddMembersPayload struct {
	Admins []string `json:"admins"`
}

type Empty struct{}

// ExecuteMsg is the externally tagged execute envelope. Exactly one field is set.
type ExecuteMsg struct {
	GetItem    *GetItemPayload    `json:"get_item,omitempty"`
	Refill     *RefillPayload     `json:"refill,omitempty"`
	AddMembers *AddMembersPayload `json:"add_members,omitempty"`
	Leave      *Empty             `json:"leave,omitempty"`
}

func (m ExecuteMsg) Tag() string {
	switch {
	case m.GetItem != nil:
		return TagGetItem
	case m.Refill != nil:
		return TagRefill
	case m.AddMembers != nil:
		return TagAddMembers
	case m.Leave != nil:
		return TagLeave
	}
	return ""
}

func (m *ExecuteMsg) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitEnvelope(data)
	if err != nil {
		return err
	}
	var out ExecuteMsg
	switch tag {
	case TagGetItem:
		out.GetItem = new(GetItemPayload)
		err = decodePayload(tag, payload, out.GetItem)
	case TagRefill:
		out.Refill = new(RefillPayload)
		err = decodePayload(tag, payload, out.Refill)
	case TagAddMembers:
		out.AddMembers = new(AddMembersPayload)
		err = decodePayload(tag, payload, out.AddMembers)
	case TagLeave:
		out.Leave = new(Empty)
		err = decodePayload(tag, payload, out.Leave)
	default:
		return fmt.Errorf("%w: unknown execute message %q", domain.ErrInvalidMessage, tag)
	}
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// QueryMsg is the externally tagged query envelope.
type QueryMsg struct {
	ItemsCount *Empty `json:"items_count,omitempty"`
	AdminsList *Empty `json:"admins_list,omitempty"`
	Greet      *Empty `json:"greet,omitempty"`
}

func (m QueryMsg) Tag() string {
	switch {
	case m.ItemsCount != nil:
		return TagItemsCount
	case m.AdminsList != nil:
		return TagAdminsList
	case m.Greet != nil:
		return TagGreet
	}
	return ""
}

func (m *QueryMsg) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitEnvelope(data)
	if err != nil {
		return err
	}
	var out QueryMsg
	switch tag {
	case TagItemsCount:
		out.ItemsCount = new(Empty)
		err = decodePayload(tag, payload, out.ItemsCount)
	case TagAdminsList:
		out.AdminsList = new(Empty)
		err = decodePayload(tag, payload, out.AdminsList)
	case TagGreet:
		out.Greet = new(Empty)
		err = decodePayload(tag, payload, out.Greet)
	default:
		return fmt.Errorf("%w: unknown query message %q", domain.ErrInvalidMessage, tag)
	}
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// InstantiateMsg carries the initial state. Item counts sit next to owner and
// admins, keyed by category name.
type InstantiateMsg struct {
	Owner  string
	Admins []string
	Counts map[string]uint64
}

func (m InstantiateMsg) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Counts)+2)
	for k, v := range m.Counts {
		out[k] = v
	}
	if m.Owner != "" {
		out["owner"] = m.Owner
	}
	if m.Admins != nil {
		out["admins"] = m.Admins
	}
	return json.Marshal(out)
}

func (m *InstantiateMsg) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: instantiate message must be an object", domain.ErrInvalidMessage)
	}
	out := InstantiateMsg{Counts: make(map[string]uint64)}
	for key, raw := range fields {
		var err error
		switch key {
		case "owner":
			err = json.Unmarshal(raw, &out.Owner)
		case "admins":
			err = json.Unmarshal(raw, &out.Admins)
		default:
			var n uint64
			err = json.Unmarshal(raw, &n)
			out.Counts[key] = n
		}
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", domain.ErrInvalidMessage, key, err)
		}
	}
	*m = out
	return nil
}

func splitEnvelope(data []byte) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if len(fields) != 1 {
		tags := make([]string, 0, len(fields))
		for k := range fields {
			tags = append(tags, k)
		}
		sort.Strings(tags)
		return "", nil, fmt.Errorf("%w: want exactly one operation, got %q", domain.ErrInvalidMessage, tags)
	}
	for tag, payload := range fields {
		return tag, payload, nil
	}
	return "", nil, nil
}

func decodePayload(tag string, payload json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidMessage, tag, err)
	}
	return nil
}
