package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qoishaidar/uang/internal/models"
)

// mockStore is an in-memory TableStore with switchable failure injection.
type mockStore struct {
	mu           sync.Mutex
	transactions map[int64]models.Transaction
	wallets      map[int64]models.Wallet
	assets       map[int64]models.Asset
	categories   map[string]models.Category

	nextID int64

	// failing makes every write return an error while set.
	failing bool
	// upsertCalls counts UpsertCategories invocations.
	upsertCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		transactions: make(map[int64]models.Transaction),
		wallets:      make(map[int64]models.Wallet),
		assets:       make(map[int64]models.Asset),
		categories:   make(map[string]models.Category),
	}
}

func (m *mockStore) setFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *mockStore) failErr() error {
	if m.failing {
		return fmt.Errorf("store unavailable")
	}
	return nil
}

func (m *mockStore) allocID() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d not found", id)
	}
	return &t, nil
}

func (m *mockStore) InsertTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	row := *t
	id := m.allocID()
	row.ID = &id
	m.transactions[id] = row
	return &row, nil
}

func (m *mockStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if t.ID == nil {
		return fmt.Errorf("missing id")
	}
	m.transactions[*t.ID] = *t
	return nil
}

func (m *mockStore) DeleteTransaction(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	delete(m.transactions, id)
	return nil
}

func (m *mockStore) DeleteTransactionsByWallet(ctx context.Context, walletID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	for id, t := range m.transactions {
		if transactionReferencesWallet(&t, walletID) {
			delete(m.transactions, id)
		}
	}
	return nil
}

func (m *mockStore) DeleteTransactionsByAsset(ctx context.Context, assetID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	for id, t := range m.transactions {
		if transactionReferencesAsset(&t, assetID) {
			delete(m.transactions, id)
		}
	}
	return nil
}

func (m *mockStore) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	out := make([]models.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return sortOrderOf(out[i].SortOrder, *out[i].ID) < sortOrderOf(out[j].SortOrder, *out[j].ID)
	})
	return out, nil
}

func (m *mockStore) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	w, ok := m.wallets[id]
	if !ok {
		return nil, fmt.Errorf("wallet %d not found", id)
	}
	return &w, nil
}

func (m *mockStore) InsertWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	row := *w
	id := m.allocID()
	row.ID = &id
	m.wallets[id] = row
	return &row, nil
}

func (m *mockStore) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if w.ID == nil {
		return fmt.Errorf("missing id")
	}
	m.wallets[*w.ID] = *w
	return nil
}

func (m *mockStore) DeleteWallet(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	delete(m.wallets, id)
	return nil
}

func (m *mockStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	out := make([]models.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return sortOrderOf(out[i].SortOrder, *out[i].ID) < sortOrderOf(out[j].SortOrder, *out[j].ID)
	})
	return out, nil
}

func (m *mockStore) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	a, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %d not found", id)
	}
	return &a, nil
}

func (m *mockStore) InsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	row := *a
	id := m.allocID()
	row.ID = &id
	m.assets[id] = row
	return &row, nil
}

func (m *mockStore) UpdateAsset(ctx context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if a.ID == nil {
		return fmt.Errorf("missing id")
	}
	m.assets[*a.ID] = *a
	return nil
}

func (m *mockStore) DeleteAsset(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	delete(m.assets, id)
	return nil
}

func (m *mockStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := 0, 0
		if out[i].SortOrder != nil {
			oi = *out[i].SortOrder
		}
		if out[j].SortOrder != nil {
			oj = *out[j].SortOrder
		}
		if oi != oj {
			return oi < oj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockStore) InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	row := *c
	m.categories[row.ID] = row
	return &row, nil
}

func (m *mockStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	delete(m.categories, id)
	return nil
}

func (m *mockStore) UpsertCategories(ctx context.Context, categories []models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if err := m.failErr(); err != nil {
		return err
	}
	for _, c := range categories {
		m.categories[c.ID] = c
	}
	return nil
}

func sortOrderOf(order *int, id int64) int {
	if order != nil {
		return *order
	}
	return int(id) + 1<<20
}
