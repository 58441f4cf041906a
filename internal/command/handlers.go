package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
)

// MutatingService is the part of the machine that changes state.
type MutatingService interface {
	Init(ctx context.Context, caller domain.Principal, req service.InitRequest) error
	GetItem(ctx context.Context, caller domain.Principal, category string, amount uint64) (service.Result, error)
	Refill(ctx context.Context, caller domain.Principal, number uint64) (service.Result, error)
	AddMembers(ctx context.Context, caller domain.Principal, admins []domain.Principal) (service.Result, error)
	Leave(ctx context.Context, caller domain.Principal) (service.Result, error)
}

type InstantiateCommand struct {
	service MutatingService
}

func NewInstantiateCommand(service MutatingService) *InstantiateCommand {
	return &InstantiateCommand{service: service}
}

func (c *InstantiateCommand) Execute(ctx context.Context, msg InstantiateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: instantiate service is required")
	}
	return c.service.Init(ctx, msg.Caller, msg.Request)
}

type GetItemCommand struct {
	service MutatingService
}

func NewGetItemCommand(service MutatingService) *GetItemCommand {
	return &GetItemCommand{service: service}
}

func (c *GetItemCommand) Execute(ctx context.Context, msg GetItemMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: get item service is required")
	}
	out, err := c.service.GetItem(ctx, msg.Caller, msg.Category, msg.Amount)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefillCommand struct {
	service MutatingService
}

func NewRefillCommand(service MutatingService) *RefillCommand {
	return &RefillCommand{service: service}
}

func (c *RefillCommand) Execute(ctx context.Context, msg RefillMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refill service is required")
	}
	out, err := c.service.Refill(ctx, msg.Caller, msg.Number)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AddMembersCommand struct {
	service MutatingService
}

func NewAddMembersCommand(service MutatingService) *AddMembersCommand {
	return &AddMembersCommand{service: service}
}

func (c *AddMembersCommand) Execute(ctx context.Context, msg AddMembersMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: add members service is required")
	}
	admins, err := domain.ParsePrincipals(msg.Admins)
	if err != nil {
		return err
	}
	out, err := c.service.AddMembers(ctx, msg.Caller, admins)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LeaveCommand struct {
	service MutatingService
}

func NewLeaveCommand(service MutatingService) *LeaveCommand {
	return &LeaveCommand{service: service}
}

func (c *LeaveCommand) Execute(ctx context.Context, msg LeaveMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: leave service is required")
	}
	out, err := c.service.Leave(ctx, msg.Caller)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
