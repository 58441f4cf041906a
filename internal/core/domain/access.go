package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const maxPrincipalLen = 256

// Principal is an authenticated caller identity.
type Principal string

// ParsePrincipal validates an externally supplied identity.
func ParsePrincipal(raw string) (Principal, error) {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrincipal, raw)
	}
	if len(raw) > maxPrincipalLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidPrincipal, maxPrincipalLen)
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPrincipal, raw)
		}
	}
	return Principal(raw), nil
}

// ParsePrincipals validates every entry of raw, keeping order.
func ParsePrincipals(raw []string) ([]Principal, error) {
	out := make([]Principal, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePrincipal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Principal) String() string {
	return string(p)
}

// AccessMode selects the authorization shape of a machine.
type AccessMode string

const (
	AccessModeOwner  AccessMode = "owner"
	AccessModeAdmins AccessMode = "admins"
)

func ParseAccessMode(raw string) (AccessMode, error) {
	switch AccessMode(strings.ToLower(strings.TrimSpace(raw))) {
	case AccessModeOwner:
		return AccessModeOwner, nil
	case AccessModeAdmins:
		return AccessModeAdmins, nil
	}
	return "", fmt.Errorf("unknown access mode %q", raw)
}

// Authorizer decides whether a caller may perform privileged operations.
type Authorizer interface {
	Authorize(caller Principal) error
}

type OwnerAuthorizer struct {
	Owner Principal
}

func (a OwnerAuthorizer) Authorize(caller Principal) error {
	if caller != a.Owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

type AdminListAuthorizer struct {
	Admins AdminSet
}

func (a AdminListAuthorizer) Authorize(caller Principal) error {
	if !a.Admins.Contains(caller) {
		return fmt.Errorf("%w: %s is not an admin", ErrUnauthorized, caller)
	}
	return nil
}

// AdminSet is an ordered list of principals without duplicates.
type AdminSet struct {
	members []Principal
}

// NewAdminSet builds a set from members, rejecting duplicates.
func NewAdminSet(members []Principal) (AdminSet, error) {
	seen := make(map[Principal]struct{}, len(members))
	for _, m := range members {
		if _, dup := seen[m]; dup {
			return AdminSet{}, fmt.Errorf("%w: admin %s is listed twice", ErrAlreadyExists, m)
		}
		seen[m] = struct{}{}
	}
	return AdminSet{members: append([]Principal(nil), members...)}, nil
}

func (s AdminSet) Contains(p Principal) bool {
	for _, m := range s.members {
		if m == p {
			return true
		}
	}
	return false
}

func (s AdminSet) Len() int {
	return len(s.members)
}

// Members returns a copy of the list in insertion order.
func (s AdminSet) Members() []Principal {
	return append([]Principal(nil), s.members...)
}

// Add appends candidates on behalf of caller. The whole call is validated
// before any event is produced.
func (s AdminSet) Add(caller Principal, candidates []Principal) (AdminSet, []Event, error) {
	if err := (AdminListAuthorizer{Admins: s}).Authorize(caller); err != nil {
		return s, nil, err
	}
	pending := make(map[Principal]struct{}, len(candidates))
	for _, c := range candidates {
		if s.Contains(c) {
			return s, nil, fmt.Errorf("%w: admin %s is already in the admin list", ErrAlreadyExists, c)
		}
		if _, dup := pending[c]; dup {
			return s, nil, fmt.Errorf("%w: admin %s is listed twice", ErrAlreadyExists, c)
		}
		pending[c] = struct{}{}
	}

	next := AdminSet{members: make([]Principal, 0, len(s.members)+len(candidates))}
	next.members = append(next.members, s.members...)
	next.members = append(next.members, candidates...)

	events := make([]Event, 0, len(candidates)+1)
	for _, c := range candidates {
		events = append(events, NewEvent(EventAdminAdded).With("addr", c.String()))
	}
	events = append(events, NewEvent(EventAddMembers).With("added_count", strconv.Itoa(len(candidates))))
	return next, events, nil
}

// Leave removes caller from the set. Removing a non-member is a no-op.
func (s AdminSet) Leave(caller Principal) (AdminSet, []Event) {
	if !s.Contains(caller) {
		return s, nil
	}
	next := AdminSet{members: make([]Principal, 0, len(s.members)-1)}
	for _, m := range s.members {
		if m != caller {
			next.members = append(next.members, m)
		}
	}
	return next, []Event{NewEvent(EventAdminLeft).With("addr", caller.String())}
}

// Access is the persisted authorization state of a machine.
type Access struct {
	Mode   AccessMode
	Owner  Principal
	Admins AdminSet
}

// Authorizer returns the strategy matching the configured mode.
func (a Access) Authorizer() Authorizer {
	if a.Mode == AccessModeOwner {
		return OwnerAuthorizer{Owner: a.Owner}
	}
	return AdminListAuthorizer{Admins: a.Admins}
}

// Principals lists who currently holds privileged authority.
func (a Access) Principals() []Principal {
	if a.Mode == AccessModeOwner {
		if a.Owner == "" {
			return []Principal{}
		}
		return []Principal{a.Owner}
	}
	return a.Admins.Members()
}
