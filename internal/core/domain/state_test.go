package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_GetItem(t *testing.T) {
	st := State{Inventory: NewInventory(map[Category]uint64{ChocolateBar: 20, ChipsPacket: 20})}

	next, events, err := st.GetItem("chocolates", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(19), next.Inventory.Count(ChocolateBar))

	_, _, err = next.GetItem("water", 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, _, err = next.GetItem("lollipop", 1)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestState_RefillChecksAuthorizationFirst(t *testing.T) {
	st := State{
		Inventory: NewInventory(map[Category]uint64{ChocolateBar: 1}),
		Access:    Access{Mode: AccessModeOwner, Owner: "owner"},
	}

	next, events, err := st.Refill("admin1", 40)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, events)
	assert.Equal(t, st, next)

	next, events, err = st.Refill("owner", 40)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(41), next.Inventory.Count(ChocolateBar))
}

func TestState_RegistryCommandsNeedAdminsMode(t *testing.T) {
	st := State{Access: Access{Mode: AccessModeOwner, Owner: "owner"}}

	_, _, err := st.AddMembers("owner", []Principal{"user"})
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
	_, _, err = st.Leave("owner")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestState_LeaveByNonMemberIsNoop(t *testing.T) {
	admins, err := NewAdminSet([]Principal{"owner"})
	require.NoError(t, err)
	st := State{Access: Access{Mode: AccessModeAdmins, Admins: admins}}

	next, events, err := st.Leave("stranger")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, []Principal{"owner"}, next.Access.Admins.Members())
}
