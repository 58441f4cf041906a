package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/rl1809/vending-machine/internal/adapter/storage"
	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/query"
)

var errorsByName = map[string]error{
	"UnknownCategory":    domain.ErrUnknownCategory,
	"InsufficientStock":  domain.ErrInsufficientStock,
	"RefillOverflow":     domain.ErrRefillOverflow,
	"Unauthorized":       domain.ErrUnauthorized,
	"AlreadyExists":      domain.ErrAlreadyExists,
	"StorageFailure":     domain.ErrStorageFailure,
	"NotInitialized":     domain.ErrNotInitialized,
	"AlreadyInitialized": domain.ErrAlreadyInitialized,
	"InvalidPrincipal":   domain.ErrInvalidPrincipal,
	"InvalidMessage":     domain.ErrInvalidMessage,
	"UnsupportedCommand": domain.ErrUnsupportedCommand,
}

type machineTestContext struct {
	dispatcher *Dispatcher
	result     service.Result
	err        error
}

func (c *machineTestContext) aVendingMachineInMode(mode string) error {
	m, err := domain.ParseAccessMode(mode)
	if err != nil {
		return err
	}
	c.dispatcher = New(service.NewMachine(storage.NewMemoryAdapter(), m))
	return nil
}

func (c *machineTestContext) itIsInstantiatedByWith(caller string, doc *godog.DocString) error {
	return c.dispatcher.Instantiate(context.Background(), domain.Principal(caller), []byte(doc.Content))
}

func (c *machineTestContext) executes(caller string, doc *godog.DocString) error {
	c.result, c.err = c.dispatcher.Execute(context.Background(), domain.Principal(caller), []byte(doc.Content))
	return nil
}

func (c *machineTestContext) theCommandSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success but got error: %v", c.err)
	}
	if c.result.CommandID == "" {
		return errors.New("expected a command id")
	}
	return nil
}

func (c *machineTestContext) theCommandFailsWith(name string) error {
	want, ok := errorsByName[name]
	if !ok {
		return fmt.Errorf("unknown error kind %q", name)
	}
	if c.err == nil {
		return errors.New("expected command to fail but it succeeded")
	}
	if !errors.Is(c.err, want) {
		return fmt.Errorf("expected %s, got %v", name, c.err)
	}
	return nil
}

func (c *machineTestContext) eventHasEqualTo(eventType, key, value string) error {
	for _, ev := range c.result.Events {
		if ev.Type != eventType {
			continue
		}
		got, ok := ev.Attr(key)
		if !ok {
			return fmt.Errorf("event %s has no attribute %q", eventType, key)
		}
		if got != value {
			return fmt.Errorf("expected %s.%s = %q, got %q", eventType, key, value, got)
		}
		return nil
	}
	return fmt.Errorf("no %s event in %+v", eventType, c.result.Events)
}

func (c *machineTestContext) noEventsWereEmitted() error {
	if len(c.result.Events) != 0 {
		return fmt.Errorf("expected no events, got %+v", c.result.Events)
	}
	return nil
}

func (c *machineTestContext) theItemsCountIs(doc *godog.DocString) error {
	var want map[string]uint64
	if err := json.Unmarshal([]byte(doc.Content), &want); err != nil {
		return err
	}
	resp, err := c.dispatcher.Query(context.Background(), []byte(`{"items_count":{}}`))
	if err != nil {
		return err
	}
	got := map[string]uint64(resp.(query.ItemsCountResponse))
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("expected counts %v, got %v", want, got)
	}
	return nil
}

func (c *machineTestContext) theAdminsListIs(want string) error {
	resp, err := c.dispatcher.Query(context.Background(), []byte(`{"admins_list":{}}`))
	if err != nil {
		return err
	}
	got := strings.Join(resp.(query.AdminsListResponse).Admins, ", ")
	if got != want {
		return fmt.Errorf("expected admins %q, got %q", want, got)
	}
	return nil
}

func (c *machineTestContext) theGreetingIs(want string) error {
	resp, err := c.dispatcher.Query(context.Background(), []byte(`{"greet":{}}`))
	if err != nil {
		return err
	}
	if got := resp.(query.GreetResponse).Message; got != want {
		return fmt.Errorf("expected greeting %q, got %q", want, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &machineTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*tc = machineTestContext{}
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a vending machine in "([^"]*)" mode$`, tc.aVendingMachineInMode)
	ctx.Step(`^it is instantiated by "([^"]*)" with:$`, tc.itIsInstantiatedByWith)

	// When steps
	ctx.Step(`^"([^"]*)" executes:$`, tc.executes)

	// Then steps
	ctx.Step(`^the command succeeds$`, tc.theCommandSucceeds)
	ctx.Step(`^the command fails with "([^"]*)"$`, tc.theCommandFailsWith)
	ctx.Step(`^event "([^"]*)" has "([^"]*)" equal to "([^"]*)"$`, tc.eventHasEqualTo)
	ctx.Step(`^no events were emitted$`, tc.noEventsWereEmitted)
	ctx.Step(`^the items count is:$`, tc.theItemsCountIs)
	ctx.Step(`^the admins list is "([^"]*)"$`, tc.theAdminsListIs)
	ctx.Step(`^the greeting is "([^"]*)"$`, tc.theGreetingIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
