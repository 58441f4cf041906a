package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gocmd "github.com/goliatone/go-command"

	"github.com/rl1809/vending-machine/internal/command"
	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/query"
)

// Service is everything the dispatcher routes to.
type Service interface {
	command.MutatingService
	query.StateReader
	Mode() domain.AccessMode
}

// Dispatcher turns wire envelopes into go-command messages and runs them
// against their handlers.
type Dispatcher struct {
	mode domain.AccessMode

	instantiate gocmd.Commander[command.InstantiateMessage]
	getItem     gocmd.Commander[command.GetItemMessage]
	refill      gocmd.Commander[command.RefillMessage]
	addMembers  gocmd.Commander[command.AddMembersMessage]
	leave       gocmd.Commander[command.LeaveMessage]

	itemsCount gocmd.Querier[query.ItemsCountMessage, query.ItemsCountResponse]
	adminsList gocmd.Querier[query.AdminsListMessage, query.AdminsListResponse]
	greet      gocmd.Querier[query.GreetMessage, query.GreetResponse]
}

func New(svc Service) *Dispatcher {
	return &Dispatcher{
		mode:        svc.Mode(),
		instantiate: command.NewInstantiateCommand(svc),
		getItem:     command.NewGetItemCommand(svc),
		refill:      command.NewRefillCommand(svc),
		addMembers:  command.NewAddMembersCommand(svc),
		leave:       command.NewLeaveCommand(svc),
		itemsCount:  query.NewItemsCountQuery(svc),
		adminsList:  query.NewAdminsListQuery(svc),
		greet:       query.NewGreetQuery(),
	}
}

// Instantiate decodes an init envelope and establishes the initial state.
func (d *Dispatcher) Instantiate(ctx context.Context, caller domain.Principal, data []byte) error {
	var msg InstantiateMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	return d.InstantiateMsg(ctx, caller, msg)
}

func (d *Dispatcher) InstantiateMsg(ctx context.Context, caller domain.Principal, msg InstantiateMsg) error {
	cmd := command.InstantiateMessage{
		Caller: caller,
		Request: service.InitRequest{
			Owner:  msg.Owner,
			Admins: msg.Admins,
			Counts: msg.Counts,
		},
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	return d.instantiate.Execute(ctx, cmd)
}

// Execute decodes an execute envelope and runs the command it names.
func (d *Dispatcher) Execute(ctx context.Context, caller domain.Principal, data []byte) (service.Result, error) {
	var msg ExecuteMsg
	if err := decode(data, &msg); err != nil {
		return service.Result{}, err
	}
	return d.ExecuteMsg(ctx, caller, msg)
}

func (d *Dispatcher) ExecuteMsg(ctx context.Context, caller domain.Principal, msg ExecuteMsg) (service.Result, error) {
	switch tag := msg.Tag(); tag {
	case TagGetItem:
		return execute(ctx, d.getItem, command.GetItemMessage{
			Caller:   caller,
			Category: msg.GetItem.Category,
			Amount:   msg.GetItem.Amount,
		})
	case TagRefill:
		return execute(ctx, d.refill, command.RefillMessage{Caller: caller, Number: msg.Refill.Number})
	case TagAddMembers:
		if err := d.requireAdminsMode(tag); err != nil {
			return service.Result{}, err
		}
		return execute(ctx, d.addMembers, command.AddMembersMessage{Caller: caller, Admins: msg.AddMembers.Admins})
	case TagLeave:
		if err := d.requireAdminsMode(tag); err != nil {
			return service.Result{}, err
		}
		return execute(ctx, d.leave, command.LeaveMessage{Caller: caller})
	default:
		return service.Result{}, fmt.Errorf("%w: empty execute message", domain.ErrInvalidMessage)
	}
}

// Query decodes a query envelope and returns the response value ready for encoding.
func (d *Dispatcher) Query(ctx context.Context, data []byte) (any, error) {
	var msg QueryMsg
	if err := decode(data, &msg); err != nil {
		return nil, err
	}
	return d.QueryMsg(ctx, msg)
}

func (d *Dispatcher) QueryMsg(ctx context.Context, msg QueryMsg) (any, error) {
	switch msg.Tag() {
	case TagItemsCount:
		return runQuery(ctx, d.itemsCount, query.ItemsCountMessage{})
	case TagAdminsList:
		return runQuery(ctx, d.adminsList, query.AdminsListMessage{})
	case TagGreet:
		return runQuery(ctx, d.greet, query.GreetMessage{})
	default:
		return nil, fmt.Errorf("%w: empty query message", domain.ErrInvalidMessage)
	}
}

func (d *Dispatcher) requireAdminsMode(tag string) error {
	if d.mode != domain.AccessModeAdmins {
		return fmt.Errorf("%w: %s is not available in %s mode", domain.ErrUnsupportedCommand, tag, d.mode)
	}
	return nil
}

// decode reports every malformed envelope as ErrInvalidMessage, including
// syntax errors caught before any UnmarshalJSON runs.
func decode(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil || errors.Is(err, domain.ErrInvalidMessage) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
}

type message interface {
	Validate() error
}

func execute[T message](ctx context.Context, cmd gocmd.Commander[T], msg T) (service.Result, error) {
	if err := msg.Validate(); err != nil {
		return service.Result{}, err
	}
	collector := gocmd.NewResult[service.Result]()
	if err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return service.Result{}, err
	}
	result, _ := collector.Load()
	return result, nil
}

func runQuery[T message, R any](ctx context.Context, qry gocmd.Querier[T, R], msg T) (any, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	res, err := qry.Query(ctx, msg)
	if err != nil {
		return nil, err
	}
	return res, nil
}
