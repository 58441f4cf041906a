package domain

import "fmt"

// Greeting is the static response of the greet query.
const Greeting = "Hello, World!"

// State is everything one command reads and may replace.
type State struct {
	Inventory Inventory
	Access    Access
}

// GetItem dispenses amount items of the category named by the caller.
func (s State) GetItem(category string, amount uint64) (State, []Event, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return s, nil, err
	}
	if amount == 0 {
		amount = 1
	}
	inv, _, event, err := s.Inventory.Dispense(c, amount)
	if err != nil {
		return s, nil, err
	}
	next := s
	next.Inventory = inv
	return next, []Event{event}, nil
}

// Refill authorizes caller and adds amount to every category.
func (s State) Refill(caller Principal, amount uint64) (State, []Event, error) {
	if err := s.Access.Authorizer().Authorize(caller); err != nil {
		return s, nil, err
	}
	inv, event, err := s.Inventory.Refill(amount)
	if err != nil {
		return s, nil, err
	}
	next := s
	next.Inventory = inv
	return next, []Event{event}, nil
}

func (s State) AddMembers(caller Principal, candidates []Principal) (State, []Event, error) {
	if s.Access.Mode != AccessModeAdmins {
		return s, nil, fmt.Errorf("%w: add_members needs the admins access mode", ErrUnsupportedCommand)
	}
	admins, events, err := s.Access.Admins.Add(caller, candidates)
	if err != nil {
		return s, nil, err
	}
	next := s
	next.Access.Admins = admins
	return next, events, nil
}

func (s State) Leave(caller Principal) (State, []Event, error) {
	if s.Access.Mode != AccessModeAdmins {
		return s, nil, fmt.Errorf("%w: leave needs the admins access mode", ErrUnsupportedCommand)
	}
	admins, events := s.Access.Admins.Leave(caller)
	next := s
	next.Access.Admins = admins
	return next, events, nil
}
