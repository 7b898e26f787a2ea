// Package interfaces defines service contracts for uang
package interfaces

import (
	"context"

	"github.com/qoishaidar/uang/internal/models"
)

// TableStore is the remote table store: four tables with per-row CRUD and
// server-side ordering. Implemented by the Supabase REST client and the
// SurrealDB store.
type TableStore interface {
	// Transactions, ordered by date descending.
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	// InsertTransaction returns the stored row carrying the server-assigned id.
	InsertTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	DeleteTransactionsByWallet(ctx context.Context, walletID int64) error
	DeleteTransactionsByAsset(ctx context.Context, assetID int64) error

	// Wallets, ordered by sort_order ascending.
	ListWallets(ctx context.Context) ([]models.Wallet, error)
	GetWallet(ctx context.Context, id int64) (*models.Wallet, error)
	InsertWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, w *models.Wallet) error
	DeleteWallet(ctx context.Context, id int64) error

	// Assets, ordered by sort_order ascending.
	ListAssets(ctx context.Context) ([]models.Asset, error)
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
	InsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error)
	UpdateAsset(ctx context.Context, a *models.Asset) error
	DeleteAsset(ctx context.Context, id int64) error

	// Categories, ordered by sort_order ascending. IDs are client-generated.
	ListCategories(ctx context.Context) ([]models.Category, error)
	InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// UpsertCategories writes the whole reordered list in one batch.
	UpsertCategories(ctx context.Context, categories []models.Category) error

	Close() error
}

// SnapshotStore persists the local snapshot cache: one JSON document, read
// and written whole.
type SnapshotStore interface {
	Load() (*models.Snapshot, error)
	Save(snapshot *models.Snapshot) error
}

// PrefsStore holds process-wide persistent flags and settings that must
// survive restarts.
type PrefsStore interface {
	PendingCategorySort() bool
	SetPendingCategorySort(pending bool) error
	Settings() models.Settings
	SaveSettings(settings models.Settings) error
}
