package partner

import (
	"context"
	"encoding/json"
	"sync"
)

// MockBackend is a test double for Backend.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockBackend struct {
	ListCategoriesFunc      func(ctx context.Context) ([]Category, error)
	GetItemFunc             func(ctx context.Context, id string) (*Item, error)
	CreateItemFunc          func(ctx context.Context, in ItemInput) (*Item, error)
	UpdateItemFunc          func(ctx context.Context, id string, in ItemInput) (*Item, error)
	DeleteItemFunc          func(ctx context.Context, id string) error
	ListPartnerRequestsFunc func(ctx context.Context, filter RequestFilter) ([]Request, error)
	UpdateRequestStatusFunc func(ctx context.Context, id string, update StatusUpdate) (*Request, error)
	MeFunc                  func(ctx context.Context) (*User, error)
	DashboardFunc           func(ctx context.Context) (json.RawMessage, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

var _ Backend = (*MockBackend)(nil)

func (m *MockBackend) record(method string, args ...any) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

// CallsTo returns the recorded calls of one method.
func (m *MockBackend) CallsTo(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, c := range m.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]Category, error) {
	m.record("ListCategories")
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return []Category{{ID: "cat-formal", Name: "Pakaian Formal"}, {ID: "cat-casual", Name: "Pakaian Kasual"}}, nil
}

func (m *MockBackend) GetItem(ctx context.Context, id string) (*Item, error) {
	m.record("GetItem", id)
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, id)
	}
	return &Item{ID: id, Name: "mock item", Type: TypeDonation}, nil
}

func (m *MockBackend) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	m.record("CreateItem", in)
	if m.CreateItemFunc != nil {
		return m.CreateItemFunc(ctx, in)
	}
	return &Item{ID: "mock-item-id", Name: in.Name, Type: in.Type, CategoryID: in.CategoryID}, nil
}

func (m *MockBackend) UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error) {
	m.record("UpdateItem", id, in)
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, id, in)
	}
	return &Item{ID: id, Name: in.Name, Type: in.Type, CategoryID: in.CategoryID}, nil
}

func (m *MockBackend) DeleteItem(ctx context.Context, id string) error {
	m.record("DeleteItem", id)
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, id)
	}
	return nil
}

func (m *MockBackend) ListPartnerRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	m.record("ListPartnerRequests", filter)
	if m.ListPartnerRequestsFunc != nil {
		return m.ListPartnerRequestsFunc(ctx, filter)
	}
	return []Request{}, nil
}

func (m *MockBackend) UpdateRequestStatus(ctx context.Context, id string, update StatusUpdate) (*Request, error) {
	m.record("UpdateRequestStatus", id, update)
	if m.UpdateRequestStatusFunc != nil {
		return m.UpdateRequestStatusFunc(ctx, id, update)
	}
	return &Request{ID: id, Status: update.Status}, nil
}

func (m *MockBackend) Me(ctx context.Context) (*User, error) {
	m.record("Me")
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return &User{ID: "mock-user", Role: "partner"}, nil
}

func (m *MockBackend) Dashboard(ctx context.Context) (json.RawMessage, error) {
	m.record("Dashboard")
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx)
	}
	return json.RawMessage(`{}`), nil
}
