package command

import (
	"fmt"
	"strings"

	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
)

const (
	TypeInstantiate = "vending.command.instantiate"
	TypeGetItem     = "vending.command.get_item"
	TypeRefill      = "vending.command.refill"
	TypeAddMembers  = "vending.command.add_members"
	TypeLeave       = "vending.command.leave"
)

type InstantiateMessage struct {
	Caller  domain.Principal
	Request service.InitRequest
}

func (InstantiateMessage) Type() string { return TypeInstantiate }

func (m InstantiateMessage) Validate() error {
	return validateCaller(m.Caller)
}

type GetItemMessage struct {
	Caller   domain.Principal
	Category string
	Amount   uint64
}

func (GetItemMessage) Type() string { return TypeGetItem }

func (m GetItemMessage) Validate() error {
	if err := validateCaller(m.Caller); err != nil {
		return err
	}
	if strings.TrimSpace(m.Category) == "" {
		return fmt.Errorf("%w: category is required", domain.ErrInvalidMessage)
	}
	return nil
}

type RefillMessage struct {
	Caller domain.Principal
	Number uint64
}

func (RefillMessage) Type() string { return TypeRefill }

func (m RefillMessage) Validate() error {
	return validateCaller(m.Caller)
}

type AddMembersMessage struct {
	Caller domain.Principal
	Admins []string
}

func (AddMembersMessage) Type() string { return TypeAddMembers }

func (m AddMembersMessage) Validate() error {
	if err := validateCaller(m.Caller); err != nil {
		return err
	}
	_, err := domain.ParsePrincipals(m.Admins)
	return err
}

type LeaveMessage struct {
	Caller domain.Principal
}

func (LeaveMessage) Type() string { return TypeLeave }

func (m LeaveMessage) Validate() error {
	return validateCaller(m.Caller)
}

func validateCaller(caller domain.Principal) error {
	_, err := domain.ParsePrincipal(caller.String())
	return err
}
