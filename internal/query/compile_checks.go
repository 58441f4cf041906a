package query

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Querier[ItemsCountMessage, ItemsCountResponse] = (*ItemsCountQuery)(nil)
	_ gocmd.Querier[AdminsListMessage, AdminsListResponse] = (*AdminsListQuery)(nil)
	_ gocmd.Querier[GreetMessage, GreetResponse]           = (*GreetQuery)(nil)
)
