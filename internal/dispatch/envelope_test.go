package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

func TestExecuteMsg_Decode(t *testing.T) {
	cases := map[string]string{
		`{"get_item":{"category":"water","amount":2}}`: TagGetItem,
		`{"get_item":{"category":"water"}}`:            TagGetItem,
		`{"refill":{"number":40}}`:                     TagRefill,
		`{"add_members":{"admins":["a","b"]}}`:         TagAddMembers,
		`{"leave":{}}`:                                 TagLeave,
	}
	for raw, tag := range cases {
		var msg ExecuteMsg
		require.NoError(t, json.Unmarshal([]byte(raw), &msg), raw)
		assert.Equal(t, tag, msg.Tag(), raw)
	}

	var msg ExecuteMsg
	require.NoError(t, json.Unmarshal([]byte(`{"get_item":{"category":"water","amount":2}}`), &msg))
	assert.Equal(t, GetItemPayload{Category: "water", Amount: 2}, *msg.GetItem)
}

func TestExecuteMsg_RejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"leave":{},"refill":{"number":1}}`,
		`{"withdraw":{}}`,
		`{"refill":{"number":-1}}`,
		`{"refill":{"number":1,"extra":true}}`,
		`[]`,
	} {
		var msg ExecuteMsg
		err := json.Unmarshal([]byte(raw), &msg)
		assert.ErrorIs(t, err, domain.ErrInvalidMessage, raw)
	}
}

func TestExecuteMsg_RoundTrip(t *testing.T) {
	data, err := json.Marshal(ExecuteMsg{Refill: &RefillPayload{Number: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"refill":{"number":3}}`, string(data))

	data, err = json.Marshal(ExecuteMsg{Leave: &Empty{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"leave":{}}`, string(data))
}

func TestQueryMsg_Decode(t *testing.T) {
	for raw, tag := range map[string]string{
		`{"items_count":{}}`: TagItemsCount,
		`{"admins_list":{}}`: TagAdminsList,
		`{"greet":{}}`:       TagGreet,
	} {
		var msg QueryMsg
		require.NoError(t, json.Unmarshal([]byte(raw), &msg), raw)
		assert.Equal(t, tag, msg.Tag())
	}

	var msg QueryMsg
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"greet":{},"items_count":{}}`), &msg), domain.ErrInvalidMessage)
}

func TestInstantiateMsg_FlattenedCounts(t *testing.T) {
	var msg InstantiateMsg
	raw := `{"owner":"me","admins":["a"],"chocolate_bars":20,"water":3}`
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "me", msg.Owner)
	assert.Equal(t, []string{"a"}, msg.Admins)
	assert.Equal(t, map[string]uint64{"chocolate_bars": 20, "water": 3}, msg.Counts)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"me","admins":["a"],"chocolate_bars":20,"water":3}`, string(data))

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"chips":"many"}`), &msg), domain.ErrInvalidMessage)
}
