package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[InstantiateMessage] = (*InstantiateCommand)(nil)
	_ gocmd.Commander[GetItemMessage]     = (*GetItemCommand)(nil)
	_ gocmd.Commander[RefillMessage]      = (*RefillCommand)(nil)
	_ gocmd.Commander[AddMembersMessage]  = (*AddMembersCommand)(nil)
	_ gocmd.Commander[LeaveMessage]       = (*LeaveCommand)(nil)
)
