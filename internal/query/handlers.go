package query

import (
	"context"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

// StateReader reads the last committed machine state.
type StateReader interface {
	ItemsCount(ctx context.Context) (map[string]uint64, error)
	AdminsList(ctx context.Context) ([]string, error)
}

type ItemsCountQuery struct {
	reader StateReader
}

func NewItemsCountQuery(reader StateReader) *ItemsCountQuery {
	return &ItemsCountQuery{reader: reader}
}

func (q *ItemsCountQuery) Query(ctx context.Context, _ ItemsCountMessage) (ItemsCountResponse, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: state reader is required")
	}
	counts, err := q.reader.ItemsCount(ctx)
	if err != nil {
		return nil, err
	}
	return ItemsCountResponse(counts), nil
}

type AdminsListQuery struct {
	reader StateReader
}

func NewAdminsListQuery(reader StateReader) *AdminsListQuery {
	return &AdminsListQuery{reader: reader}
}

func (q *AdminsListQuery) Query(ctx context.Context, _ AdminsListMessage) (AdminsListResponse, error) {
	if q == nil || q.reader == nil {
		return AdminsListResponse{}, queryDependencyError("query: state reader is required")
	}
	admins, err := q.reader.AdminsList(ctx)
	if err != nil {
		return AdminsListResponse{}, err
	}
	return AdminsListResponse{Admins: admins}, nil
}

// GreetQuery answers without touching state.
type GreetQuery struct{}

func NewGreetQuery() *GreetQuery {
	return &GreetQuery{}
}

func (q *GreetQuery) Query(context.Context, GreetMessage) (GreetResponse, error) {
	return GreetResponse{Message: domain.Greeting}, nil
}
