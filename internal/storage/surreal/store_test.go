package surreal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/models"
)

var (
	surrealOnce    sync.Once
	surrealAddress string
	surrealErr     error
)

// startSurrealDB starts one shared SurrealDB container per test process.
// Tests that need it skip when Docker is unavailable.
func startSurrealDB(t *testing.T) string {
	t.Helper()

	if os.Getenv("UANG_SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled")
	}

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealErr = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealErr = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}
		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealErr = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealAddress = fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port())
	})

	if surrealErr != nil {
		t.Skipf("SurrealDB container unavailable: %v", surrealErr)
	}
	return surrealAddress
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	address := startSurrealDB(t)

	store, err := NewStore(common.NewSilentLogger(), common.SurrealConfig{
		Address:   address,
		Username:  "root",
		Password:  "root",
		Namespace: "uang_test",
		Database:  fmt.Sprintf("db_%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSurrealTransactionCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	walletID := int64(1)
	inserted, err := store.InsertTransaction(ctx, &models.Transaction{
		WalletID: &walletID,
		Title:    "Coffee",
		Category: "Food",
		Amount:   45,
		Type:     models.TransactionTypeExpense,
		Date:     time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, inserted.ID)
	assert.Positive(t, *inserted.ID)

	got, err := store.GetTransaction(ctx, *inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Title)
	assert.Equal(t, models.TransactionTypeExpense, got.Type)

	got.Title = "Espresso"
	require.NoError(t, store.UpdateTransaction(ctx, got))

	rows, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Espresso", rows[0].Title)

	require.NoError(t, store.DeleteTransaction(ctx, *inserted.ID))
	rows, err = store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSurrealListTransactionsOrderedByDateDesc(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	walletID := int64(1)
	for i, day := range []int{5, 20, 12} {
		_, err := store.InsertTransaction(ctx, &models.Transaction{
			WalletID: &walletID,
			Title:    fmt.Sprintf("t%d", i),
			Amount:   10,
			Type:     models.TransactionTypeExpense,
			Date:     time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	rows, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "t1", rows[0].Title)
	assert.Equal(t, "t2", rows[1].Title)
	assert.Equal(t, "t0", rows[2].Title)
}

func TestSurrealDeleteTransactionsByWallet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w1, w2 := int64(1), int64(2)
	_, err := store.InsertTransaction(ctx, &models.Transaction{
		WalletID: &w1, Title: "keep", Amount: 1,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = store.InsertTransaction(ctx, &models.Transaction{
		WalletID: &w2, Title: "drop", Amount: 1,
		Type: models.TransactionTypeExpense, Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = store.InsertTransaction(ctx, &models.Transaction{
		FromWalletID: &w2, ToWalletID: &w1, Title: "drop-transfer", Amount: 1,
		Type: models.TransactionTypeTransfer, Date: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTransactionsByWallet(ctx, w2))

	rows, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].Title)
}

func TestSurrealWalletsOrderedBySortOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"third", "first", "second"} {
		order := map[string]int{"first": 0, "second": 1, "third": 2}[name]
		_, err := store.InsertWallet(ctx, &models.Wallet{
			Name:      name,
			Balance:   float64(i * 100),
			Type:      "bank",
			SortOrder: &order,
		})
		require.NoError(t, err)
	}

	wallets, err := store.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, "first", wallets[0].Name)
	assert.Equal(t, "second", wallets[1].Name)
	assert.Equal(t, "third", wallets[2].Name)
}

func TestSurrealCategoryBatchUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCategory(ctx, &models.Category{
		ID: "cat-food", Name: "Food", Type: models.CategoryTypeExpense, Group: "Daily",
	})
	require.NoError(t, err)

	zero, one := 0, 1
	batch := []models.Category{
		{ID: "cat-rent", Name: "Rent", Type: models.CategoryTypeExpense, SortOrder: &zero},
		{ID: "cat-food", Name: "Food", Type: models.CategoryTypeExpense, Group: "Daily", SortOrder: &one},
	}
	require.NoError(t, store.UpsertCategories(ctx, batch))

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "cat-rent", categories[0].ID)
	assert.Equal(t, "cat-food", categories[1].ID)
	assert.Equal(t, "Daily", categories[1].Group)
}

func TestSurrealIDsAreMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.InsertWallet(ctx, &models.Wallet{Name: "a", Type: "bank"})
	require.NoError(t, err)
	second, err := store.InsertWallet(ctx, &models.Wallet{Name: "b", Type: "bank"})
	require.NoError(t, err)
	assert.Greater(t, *second.ID, *first.ID)
}
