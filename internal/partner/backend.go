package partner

import (
	"context"
	"encoding/json"
)

// Backend abstracts the marketplace backend operations used by the service.
type Backend interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	CreateItem(ctx context.Context, in ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error)
	DeleteItem(ctx context.Context, id string) error
	ListPartnerRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, id string, update StatusUpdate) (*Request, error)
	Me(ctx context.Context) (*User, error)
	Dashboard(ctx context.Context) (json.RawMessage, error)
}
