package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/models"
)

type memCache struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

func (c *memCache) Load() (*models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil, fmt.Errorf("snapshot cache not found")
	}
	out := copySnapshot(c.snap)
	return &out, nil
}

func (c *memCache) Save(s *models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	saved := copySnapshot(s)
	c.snap = &saved
	return nil
}

type memPrefs struct {
	mu       sync.Mutex
	pending  bool
	settings models.Settings
}

func (p *memPrefs) PendingCategorySort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *memPrefs) SetPendingCategorySort(pending bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = pending
	return nil
}

func (p *memPrefs) Settings() models.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

func (p *memPrefs) SaveSettings(s models.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
	return nil
}

func newTestService(t *testing.T) (*Service, *mockStore) {
	t.Helper()
	store := newMockStore()
	svc := NewService(common.NewSilentLogger(), store, &memCache{}, &memPrefs{})
	t.Cleanup(func() { svc.Close() })
	return svc, store
}

func seedWallet(t *testing.T, svc *Service, name string, balance float64) int64 {
	t.Helper()
	require.NoError(t, svc.AddWallet(context.Background(), models.Wallet{Name: name, Balance: balance, Type: "bank"}))
	for _, w := range svc.Snapshot().Wallets {
		if w.Name == name {
			return *w.ID
		}
	}
	t.Fatalf("wallet %s not found after add", name)
	return 0
}

func seedAsset(t *testing.T, svc *Service, name string, value float64) int64 {
	t.Helper()
	require.NoError(t, svc.AddAsset(context.Background(), models.Asset{Name: name, Value: value, Type: "stock"}))
	for _, a := range svc.Snapshot().Assets {
		if a.Name == name {
			return *a.ID
		}
	}
	t.Fatalf("asset %s not found after add", name)
	return 0
}

func walletBalance(t *testing.T, svc *Service, id int64) float64 {
	t.Helper()
	for _, w := range svc.Snapshot().Wallets {
		if w.ID != nil && *w.ID == id {
			return w.Balance
		}
	}
	t.Fatalf("wallet %d not found", id)
	return 0
}

func assetValue(t *testing.T, svc *Service, id int64) float64 {
	t.Helper()
	for _, a := range svc.Snapshot().Assets {
		if a.ID != nil && *a.ID == id {
			return a.Value
		}
	}
	t.Fatalf("asset %d not found", id)
	return 0
}

func txnID(t *testing.T, svc *Service, title string) int64 {
	t.Helper()
	for _, tx := range svc.Snapshot().Transactions {
		if tx.Title == title && tx.ID != nil {
			return *tx.ID
		}
	}
	t.Fatalf("transaction %q not found", title)
	return 0
}

func TestBalancePropagationSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 0)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Rent", Amount: 500,
		Type: models.TransactionTypeExpense, Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}))
	assert.Equal(t, float64(-500), walletBalance(t, svc, wid))

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Salary", Amount: 200,
		Type: models.TransactionTypeIncome, Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}))
	assert.Equal(t, float64(-300), walletBalance(t, svc, wid))

	require.NoError(t, svc.DeleteTransaction(ctx, txnID(t, svc, "Rent")))
	assert.Equal(t, float64(200), walletBalance(t, svc, wid))

	salary := txnID(t, svc, "Salary")
	require.NoError(t, svc.UpdateTransaction(ctx, models.Transaction{
		ID: &salary, WalletID: &wid, Title: "Salary", Amount: 1000,
		Type: models.TransactionTypeIncome, Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}))
	assert.Equal(t, float64(1000), walletBalance(t, svc, wid))
}

func TestTransferMovesBetweenWalletAndAsset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 100)
	aid := seedAsset(t, svc, "Gold", 50)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		FromWalletID: &wid, ToAssetID: &aid, Title: "Buy gold", Amount: 50,
		Type: models.TransactionTypeTransfer, Date: time.Now().UTC(),
	}))

	assert.Equal(t, float64(50), walletBalance(t, svc, wid))
	assert.Equal(t, float64(100), assetValue(t, svc, aid))
}

func TestAddThenDeleteRestoresBalances(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 750)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Dinner", Amount: 120,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))
	assert.Equal(t, float64(630), walletBalance(t, svc, wid))

	require.NoError(t, svc.DeleteTransaction(ctx, txnID(t, svc, "Dinner")))
	assert.Equal(t, float64(750), walletBalance(t, svc, wid))
	assert.Empty(t, svc.Snapshot().Transactions)
}

func TestUpdateMovesTransactionBetweenWallets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	widA := seedWallet(t, svc, "A", 0)
	widB := seedWallet(t, svc, "B", 0)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &widA, Title: "Groceries", Amount: 80,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))
	assert.Equal(t, float64(-80), walletBalance(t, svc, widA))
	assert.Equal(t, float64(0), walletBalance(t, svc, widB))

	id := txnID(t, svc, "Groceries")
	require.NoError(t, svc.UpdateTransaction(ctx, models.Transaction{
		ID: &id, WalletID: &widB, Title: "Groceries", Amount: 80,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))

	assert.Equal(t, float64(0), walletBalance(t, svc, widA))
	assert.Equal(t, float64(-80), walletBalance(t, svc, widB))
}

func TestSummaryTracksCollections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 100)
	seedAsset(t, svc, "Gold", 400)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Fee", Amount: 25,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))
	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Refund", Amount: 10,
		Type: models.TransactionTypeIncome, Date: time.Now().UTC(),
	}))

	sum := svc.Summary()
	assert.Equal(t, float64(485), sum.TotalBalance)
	assert.Equal(t, float64(10), sum.TotalIncome)
	assert.Equal(t, float64(25), sum.TotalExpense)

	// The summary must equal a fresh recompute from the snapshot.
	snap := svc.Snapshot()
	assert.Equal(t, snap.ComputeSummary(), sum)
}

func TestAddTransactionRollsBackOnRemoteFailure(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 300)

	store.setFailing(true)
	err := svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Doomed", Amount: 100,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	})
	store.setFailing(false)

	require.Error(t, err)
	assert.Equal(t, float64(300), walletBalance(t, svc, wid))
	assert.Empty(t, svc.Snapshot().Transactions)
}

func TestAddTransactionRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	wid := seedWallet(t, svc, "Checking", 0)

	err := svc.AddTransaction(context.Background(), models.Transaction{
		WalletID: &wid, Title: "Bad", Amount: -5,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	})
	assert.Error(t, err)

	err = svc.AddTransaction(context.Background(), models.Transaction{
		WalletID: &wid, FromWalletID: &wid, Title: "Bad", Amount: 5,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	})
	assert.Error(t, err)
}

func TestDeleteWalletCascadesTransactions(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	widA := seedWallet(t, svc, "A", 0)
	widB := seedWallet(t, svc, "B", 0)

	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &widA, Title: "on-A", Amount: 10,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))
	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &widB, Title: "on-B", Amount: 10,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))

	require.NoError(t, svc.DeleteWallet(ctx, widA))

	snap := svc.Snapshot()
	require.Len(t, snap.Wallets, 1)
	assert.Equal(t, "B", snap.Wallets[0].Name)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "on-B", snap.Transactions[0].Title)

	store.mu.Lock()
	assert.Len(t, store.transactions, 1)
	store.mu.Unlock()
}

func TestDeleteCategoryLeavesTransactionStrings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 0)
	require.NoError(t, svc.AddCategory(ctx, models.Category{ID: "cat-food", Name: "Food", Type: models.CategoryTypeExpense}))
	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Lunch", Category: "Food", Amount: 30,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))

	require.NoError(t, svc.DeleteCategory(ctx, "cat-food"))

	snap := svc.Snapshot()
	assert.Empty(t, snap.Categories)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Food", snap.Transactions[0].Category)
}

func TestReorderWallets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	widA := seedWallet(t, svc, "A", 0)
	widB := seedWallet(t, svc, "B", 0)
	widC := seedWallet(t, svc, "C", 0)

	require.NoError(t, svc.ReorderWallets(ctx, []int64{widC, widA, widB}))

	snap := svc.Snapshot()
	require.Len(t, snap.Wallets, 3)
	assert.Equal(t, "C", snap.Wallets[0].Name)
	assert.Equal(t, "A", snap.Wallets[1].Name)
	assert.Equal(t, "B", snap.Wallets[2].Name)
	assert.Equal(t, 0, *snap.Wallets[0].SortOrder)
	assert.Equal(t, 2, *snap.Wallets[2].SortOrder)
}

func TestReorderCategoriesSurvivesStoreOutage(t *testing.T) {
	store := newMockStore()
	prefs := &memPrefs{}
	svc := NewService(common.NewSilentLogger(), store, &memCache{}, prefs)
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	require.NoError(t, svc.AddCategory(ctx, models.Category{ID: "a", Name: "A", Type: models.CategoryTypeExpense}))
	require.NoError(t, svc.AddCategory(ctx, models.Category{ID: "b", Name: "B", Type: models.CategoryTypeExpense}))

	store.setFailing(true)
	require.NoError(t, svc.ReorderCategories(ctx, []string{"b", "a"}))

	// Local order applied immediately, flag pending while the store is down.
	snap := svc.Snapshot()
	assert.Equal(t, "b", snap.Categories[0].ID)
	assert.Equal(t, "a", snap.Categories[1].ID)
	assert.True(t, prefs.PendingCategorySort())

	// A refresh during the outage window must not clobber the local order.
	store.setFailing(false)
	require.NoError(t, svc.Refresh(ctx))
	snap = svc.Snapshot()
	assert.Equal(t, "b", snap.Categories[0].ID)

	// Once the push lands the flag clears.
	svc.pusher.Trigger()
	require.Eventually(t, func() bool { return !prefs.PendingCategorySort() },
		5*time.Second, 20*time.Millisecond)
}

func TestPendingCategorySortReArmedOnStart(t *testing.T) {
	store := newMockStore()
	zero, one := 0, 1
	store.categories["a"] = models.Category{ID: "a", Name: "A", Type: models.CategoryTypeExpense, SortOrder: &one}
	store.categories["b"] = models.Category{ID: "b", Name: "B", Type: models.CategoryTypeExpense, SortOrder: &zero}

	prefs := &memPrefs{pending: true}
	cache := &memCache{snap: &models.Snapshot{
		Categories: []models.Category{
			{ID: "b", Name: "B", Type: models.CategoryTypeExpense, SortOrder: &zero},
			{ID: "a", Name: "A", Type: models.CategoryTypeExpense, SortOrder: &one},
		},
	}}

	svc := NewService(common.NewSilentLogger(), store, cache, prefs)
	t.Cleanup(func() { svc.Close() })

	require.Eventually(t, func() bool { return !prefs.PendingCategorySort() },
		5*time.Second, 20*time.Millisecond)

	store.mu.Lock()
	calls := store.upsertCalls
	store.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 1)
}

// clearOnListStore simulates the push worker landing while a refresh's
// category fetch is in flight: the flag is cleared during the fetch itself.
// Direct upserts are rejected so the background worker cannot interfere.
type clearOnListStore struct {
	*mockStore
	prefs *memPrefs
}

func (s *clearOnListStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.mockStore.ListCategories(ctx)
	s.prefs.SetPendingCategorySort(false)
	return categories, err
}

func (s *clearOnListStore) UpsertCategories(ctx context.Context, categories []models.Category) error {
	return fmt.Errorf("upsert rejected")
}

func TestRefreshPendingSortClearedMidFetchKeepsLocalOrder(t *testing.T) {
	inner := newMockStore()
	zero, one := 0, 1
	// Server still holds the pre-reorder order, plus a row the local list has
	// never seen and a rename of an existing one.
	inner.categories["a"] = models.Category{ID: "a", Name: "A-renamed", Type: models.CategoryTypeExpense, SortOrder: &zero}
	inner.categories["b"] = models.Category{ID: "b", Name: "B", Type: models.CategoryTypeExpense, SortOrder: &one}
	two := 2
	inner.categories["c"] = models.Category{ID: "c", Name: "C", Type: models.CategoryTypeExpense, SortOrder: &two}

	prefs := &memPrefs{pending: true}
	store := &clearOnListStore{mockStore: inner, prefs: prefs}
	cache := &memCache{snap: &models.Snapshot{
		Categories: []models.Category{
			{ID: "b", Name: "B", Type: models.CategoryTypeExpense, SortOrder: &zero},
			{ID: "a", Name: "A", Type: models.CategoryTypeExpense, SortOrder: &one},
		},
	}}

	svc := NewService(common.NewSilentLogger(), store, cache, prefs)
	t.Cleanup(func() { svc.Close() })

	require.True(t, prefs.PendingCategorySort())
	require.NoError(t, svc.Refresh(context.Background()))

	// The flag was cleared during the fetch, but the refresh began with the
	// reorder pending: the local order stays authoritative, server content is
	// adopted by id, and the unseen server row lands at the tail.
	snap := svc.Snapshot()
	require.Len(t, snap.Categories, 3)
	assert.Equal(t, "b", snap.Categories[0].ID)
	assert.Equal(t, "a", snap.Categories[1].ID)
	assert.Equal(t, "A-renamed", snap.Categories[1].Name)
	assert.Equal(t, "c", snap.Categories[2].ID)
	for i, c := range snap.Categories {
		require.NotNil(t, c.SortOrder)
		assert.Equal(t, i, *c.SortOrder)
	}
}

func TestRefreshKeepsNewerLocalRows(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 100)

	// Server holds a stale copy of the wallet.
	store.mu.Lock()
	stale := store.wallets[wid]
	stale.Balance = 1
	stale.UpdatedAt = time.Now().Add(-time.Hour)
	store.wallets[wid] = stale
	store.mu.Unlock()

	// Touch the local row so it is strictly newer than the server's.
	svc.mu.Lock()
	svc.snapshot.Wallets[0].Balance = 100
	svc.snapshot.Wallets[0].UpdatedAt = time.Now().UTC()
	svc.mu.Unlock()

	require.NoError(t, svc.Refresh(ctx))
	assert.Equal(t, float64(100), walletBalance(t, svc, wid))
}

func TestRefreshDropsLocalOnlyRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ghost := int64(999)
	svc.mu.Lock()
	svc.snapshot.Transactions = append(svc.snapshot.Transactions, models.Transaction{
		ID: &ghost, Title: "ghost", Amount: 1,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	svc.mu.Unlock()

	require.NoError(t, svc.Refresh(ctx))
	assert.Empty(t, svc.Snapshot().Transactions)
}

func TestRefreshJoinsPartialFailures(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	wid := seedWallet(t, svc, "Checking", 40)

	store.setFailing(true)
	err := svc.Refresh(ctx)
	require.Error(t, err)

	// Failed fetches keep the local rows.
	assert.Equal(t, float64(40), walletBalance(t, svc, wid))
}

func TestSubscribeDeliversChangeEvents(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	events, cancel := svc.Subscribe(16)
	defer cancel()

	wid := seedWallet(t, svc, "Checking", 0)
	require.NoError(t, svc.AddTransaction(ctx, models.Transaction{
		WalletID: &wid, Title: "Coffee", Amount: 5,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	}))

	var seen []models.ChangeEvent
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case e := <-events:
			seen = append(seen, e)
		case <-deadline:
			t.Fatalf("expected events, got %v", seen)
		}
	}

	entities := make(map[string]bool)
	for _, e := range seen {
		entities[e.Entity] = true
	}
	assert.True(t, entities["wallets"] || entities["transactions"] || entities["snapshot"])
}

func TestSnapshotReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "Checking", 10)

	snap := svc.Snapshot()
	snap.Wallets[0].Balance = 9999

	assert.Equal(t, float64(10), svc.Snapshot().Wallets[0].Balance)
}
