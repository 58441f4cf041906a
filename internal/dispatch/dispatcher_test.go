package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/vending-machine/internal/adapter/storage"
	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/query"
)

func newTestDispatcher(t *testing.T, mode domain.AccessMode) *Dispatcher {
	t.Helper()
	return New(service.NewMachine(storage.NewMemoryAdapter(), mode, service.WithLogger(zaptest.NewLogger(t))))
}

func TestDispatcher_SyntaxErrorsAreInvalidMessages(t *testing.T) {
	d := newTestDispatcher(t, domain.AccessModeOwner)
	ctx := context.Background()

	_, err := d.Execute(ctx, "owner", []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	_, err = d.Query(ctx, []byte(`{`))
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.ErrorIs(t, d.Instantiate(ctx, "owner", []byte(`[1]`)), domain.ErrInvalidMessage)

	_, err = d.ExecuteMsg(ctx, "owner", ExecuteMsg{})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	_, err = d.QueryMsg(ctx, QueryMsg{})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
}

func TestDispatcher_TypedMessages(t *testing.T) {
	d := newTestDispatcher(t, domain.AccessModeAdmins)
	ctx := context.Background()

	require.NoError(t, d.InstantiateMsg(ctx, "deployer", InstantiateMsg{
		Admins: []string{"owner"},
		Counts: map[string]uint64{"chips": 3},
	}))

	res, err := d.ExecuteMsg(ctx, "user", ExecuteMsg{GetItem: &GetItemPayload{Category: "chips", Amount: 3}})
	require.NoError(t, err)
	left, _ := res.Events[0].Attr("left")
	assert.Equal(t, "0", left)

	_, err = d.ExecuteMsg(ctx, "", ExecuteMsg{Leave: &Empty{}})
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)

	_, err = d.ExecuteMsg(ctx, "owner", ExecuteMsg{AddMembers: &AddMembersPayload{Admins: []string{" spaced"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)

	resp, err := d.QueryMsg(ctx, QueryMsg{AdminsList: &Empty{}})
	require.NoError(t, err)
	assert.Equal(t, query.AdminsListResponse{Admins: []string{"owner"}}, resp)
}

func TestDispatcher_GreetBeforeInit(t *testing.T) {
	d := newTestDispatcher(t, domain.AccessModeOwner)

	resp, err := d.Query(context.Background(), []byte(`{"greet":{}}`))
	require.NoError(t, err)
	assert.Equal(t, query.GreetResponse{Message: domain.Greeting}, resp)

	_, err = d.Query(context.Background(), []byte(`{"items_count":{}}`))
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestDispatcher_InitWithAliasedCategories(t *testing.T) {
	d := newTestDispatcher(t, domain.AccessModeOwner)
	ctx := context.Background()

	err := d.Instantiate(ctx, "owner", []byte(`{"chocolates":1,"chocolate_bars":5}`))
	require.ErrorIs(t, err, domain.ErrInvalidMessage)

	_, err = d.Query(ctx, []byte(`{"items_count":{}}`))
	assert.ErrorIs(t, err, domain.ErrNotInitialized, "nothing was stored")

	require.NoError(t, d.Instantiate(ctx, "owner", []byte(`{"chocolate_bars":5}`)))
	resp, err := d.Query(ctx, []byte(`{"items_count":{}}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), resp.(query.ItemsCountResponse)["chocolate_bars"])
}
