package service

import (
	"encoding/json"
	"fmt"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

// Well-known keys of the persisted entities.
const (
	KeyInventory = "machine_items"
	KeyOwner     = "owner"
	KeyAdmins    = "admins"
)

type adminsRecord struct {
	Admins []string `json:"admins"`
}

func stateKeys(mode domain.AccessMode) []string {
	if mode == domain.AccessModeOwner {
		return []string{KeyInventory, KeyOwner}
	}
	return []string{KeyInventory, KeyAdmins}
}

func encodeState(st domain.State) (map[string][]byte, error) {
	inventory, err := json.Marshal(st.Inventory.Counts())
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}
	values := map[string][]byte{KeyInventory: inventory}

	switch st.Access.Mode {
	case domain.AccessModeOwner:
		owner, err := json.Marshal(st.Access.Owner.String())
		if err != nil {
			return nil, fmt.Errorf("encode owner: %w", err)
		}
		values[KeyOwner] = owner
	default:
		members := st.Access.Admins.Members()
		record := adminsRecord{Admins: make([]string, 0, len(members))}
		for _, m := range members {
			record.Admins = append(record.Admins, m.String())
		}
		admins, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode admins: %w", err)
		}
		values[KeyAdmins] = admins
	}
	return values, nil
}

func decodeInventory(raw []byte) (domain.Inventory, error) {
	var stored map[string]uint64
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.Inventory{}, fmt.Errorf("decode inventory: %w", err)
	}
	counts := make(map[domain.Category]uint64, len(stored))
	for _, c := range domain.Categories() {
		if n, ok := stored[c.Key()]; ok {
			counts[c] = n
			delete(stored, c.Key())
		}
	}
	for key := range stored {
		return domain.Inventory{}, fmt.Errorf("decode inventory: unexpected key %q", key)
	}
	return domain.NewInventory(counts), nil
}

func decodeAccess(mode domain.AccessMode, values map[string][]byte) (domain.Access, error) {
	access := domain.Access{Mode: mode}
	if mode == domain.AccessModeOwner {
		raw, ok := values[KeyOwner]
		if !ok {
			return access, fmt.Errorf("decode owner: key %q missing", KeyOwner)
		}
		var owner string
		if err := json.Unmarshal(raw, &owner); err != nil {
			return access, fmt.Errorf("decode owner: %w", err)
		}
		access.Owner = domain.Principal(owner)
		return access, nil
	}

	raw, ok := values[KeyAdmins]
	if !ok {
		return access, fmt.Errorf("decode admins: key %q missing", KeyAdmins)
	}
	var record adminsRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return access, fmt.Errorf("decode admins: %w", err)
	}
	members := make([]domain.Principal, 0, len(record.Admins))
	for _, a := range record.Admins {
		members = append(members, domain.Principal(a))
	}
	admins, err := domain.NewAdminSet(members)
	if err != nil {
		return access, fmt.Errorf("decode admins: %v", err)
	}
	access.Admins = admins
	return access, nil
}
