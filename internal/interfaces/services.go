package interfaces

import (
	"context"

	"github.com/qoishaidar/uang/internal/models"
)

// LedgerService is the entity store: sole owner of the in-memory collections
// and derived aggregates, mediating between the UI-facing surface and the
// remote table store.
type LedgerService interface {
	// Refresh re-fetches all four collections, merges, recomputes aggregates,
	// and rewrites the cache. Each fetch is independently guarded; the
	// returned error joins any per-collection failures.
	Refresh(ctx context.Context) error

	// Snapshot returns a copy of the current collections.
	Snapshot() models.Snapshot
	Summary() models.Summary

	AddTransaction(ctx context.Context, t models.Transaction) error
	UpdateTransaction(ctx context.Context, t models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error

	AddWallet(ctx context.Context, w models.Wallet) error
	UpdateWallet(ctx context.Context, w models.Wallet) error
	DeleteWallet(ctx context.Context, id int64) error
	ReorderWallets(ctx context.Context, ids []int64) error

	AddAsset(ctx context.Context, a models.Asset) error
	UpdateAsset(ctx context.Context, a models.Asset) error
	DeleteAsset(ctx context.Context, id int64) error
	ReorderAssets(ctx context.Context, ids []int64) error

	AddCategory(ctx context.Context, c models.Category) error
	UpdateCategory(ctx context.Context, c models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// ReorderCategories applies the order locally and hands the batched
	// upsert to a detached push worker; it does not wait for the remote write.
	ReorderCategories(ctx context.Context, ids []string) error

	// Subscribe returns a channel of change events and a cancel func.
	Subscribe(buffer int) (<-chan models.ChangeEvent, func())

	Close() error
}

// DashboardService aggregates the ledger's collections into read models.
type DashboardService interface {
	Overview() models.DashboardOverview
	// SpendingChart renders the per-category expense chart as PNG bytes.
	SpendingChart() ([]byte, error)
}

// AdvisorService suggests a category for a transaction title.
type AdvisorService interface {
	SuggestCategory(ctx context.Context, title string, txType models.TransactionType) (string, error)
}
