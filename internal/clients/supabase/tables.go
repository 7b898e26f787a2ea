package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/qoishaidar/uang/internal/models"
)

// Table names on the remote store.
const (
	tableTransactions = "transactions"
	tableWallets      = "wallets"
	tableAssets       = "assets"
	tableCategories   = "categories"
)

func (c *Client) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "date.desc")
	return selectRows[models.Transaction](ctx, c, tableTransactions, params)
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return selectOne[models.Transaction](ctx, c, tableTransactions, eqFilter("id", id))
}

func (c *Client) InsertTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	return insertRow(ctx, c, tableTransactions, t)
}

func (c *Client) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == nil {
		return &APIError{StatusCode: http.StatusBadRequest, Message: "transaction id is required", Table: tableTransactions}
	}
	return c.do(ctx, http.MethodPatch, tableTransactions, eqFilter("id", *t.ID), "return=minimal", t, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, tableTransactions, eqFilter("id", id), "", nil, nil)
}

// The cascade covers direct references and both transfer sides, so it matches
// what the ledger removes locally and nothing resurfaces on the next refresh.
func (c *Client) DeleteTransactionsByWallet(ctx context.Context, walletID int64) error {
	return c.do(ctx, http.MethodDelete, tableTransactions,
		orEqFilter(walletID, "wallet_id", "from_wallet_id", "to_wallet_id"), "", nil, nil)
}

func (c *Client) DeleteTransactionsByAsset(ctx context.Context, assetID int64) error {
	return c.do(ctx, http.MethodDelete, tableTransactions,
		orEqFilter(assetID, "asset_id", "from_asset_id", "to_asset_id"), "", nil, nil)
}

func (c *Client) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "sort_order.asc")
	return selectRows[models.Wallet](ctx, c, tableWallets, params)
}

func (c *Client) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	return selectOne[models.Wallet](ctx, c, tableWallets, eqFilter("id", id))
}

func (c *Client) InsertWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	return insertRow(ctx, c, tableWallets, w)
}

func (c *Client) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	if w.ID == nil {
		return &APIError{StatusCode: http.StatusBadRequest, Message: "wallet id is required", Table: tableWallets}
	}
	return c.do(ctx, http.MethodPatch, tableWallets, eqFilter("id", *w.ID), "return=minimal", w, nil)
}

func (c *Client) DeleteWallet(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, tableWallets, eqFilter("id", id), "", nil, nil)
}

func (c *Client) ListAssets(ctx context.Context) ([]models.Asset, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "sort_order.asc")
	return selectRows[models.Asset](ctx, c, tableAssets, params)
}

func (c *Client) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	return selectOne[models.Asset](ctx, c, tableAssets, eqFilter("id", id))
}

func (c *Client) InsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	return insertRow(ctx, c, tableAssets, a)
}

func (c *Client) UpdateAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == nil {
		return &APIError{StatusCode: http.StatusBadRequest, Message: "asset id is required", Table: tableAssets}
	}
	return c.do(ctx, http.MethodPatch, tableAssets, eqFilter("id", *a.ID), "return=minimal", a, nil)
}

func (c *Client) DeleteAsset(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, tableAssets, eqFilter("id", id), "", nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "sort_order.asc")
	return selectRows[models.Category](ctx, c, tableCategories, params)
}

func (c *Client) InsertCategory(ctx context.Context, cat *models.Category) (*models.Category, error) {
	return insertRow(ctx, c, tableCategories, cat)
}

func (c *Client) UpdateCategory(ctx context.Context, cat *models.Category) error {
	return c.do(ctx, http.MethodPatch, tableCategories, eqFilter("id", cat.ID), "return=minimal", cat, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, tableCategories, eqFilter("id", id), "", nil, nil)
}

// UpsertCategories writes the whole reordered list in one batched upsert.
func (c *Client) UpsertCategories(ctx context.Context, categories []models.Category) error {
	return c.do(ctx, http.MethodPost, tableCategories,
		nil, "resolution=merge-duplicates,return=minimal", categories, nil)
}

// Close is a no-op; the client holds no persistent connection.
func (c *Client) Close() error {
	return nil
}
