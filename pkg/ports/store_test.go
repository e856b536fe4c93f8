package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/ports"
)

// MockStore is a minimal HistoryStore used to check the contract itself.
type MockStore struct {
	data map[string][]domain.Entry
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]domain.Entry)}
}

func (m *MockStore) Create(ctx context.Context, sessionID string) error {
	if _, ok := m.data[sessionID]; !ok {
		m.data[sessionID] = []domain.Entry{}
	}
	return nil
}

func (m *MockStore) Append(ctx context.Context, sessionID string, entry domain.Entry) error {
	if !entry.Status.Terminal() {
		return domain.ErrEntryPending
	}
	m.data[sessionID] = append(m.data[sessionID], entry)
	return nil
}

func (m *MockStore) List(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	entries, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.Entry(nil), entries...), nil
}

func (m *MockStore) Clear(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) Sessions(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestHistoryStore_Contract(t *testing.T) {
	ports.RunHistoryStoreContract(t, NewMockStore())
}

func TestEvaluatorFunc(t *testing.T) {
	var got string
	var ev ports.Evaluator = ports.EvaluatorFunc(func(_ context.Context, sid, code string) (domain.Output, error) {
		got = sid + ":" + code
		return domain.Failure("Error", "nope"), nil
	})

	out, err := ev.Evaluate(context.Background(), "s1", "1+1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "s1:1+1" || out.Status != domain.StatusError {
		t.Errorf("unexpected call: %q %v", got, out.Status)
	}
}
