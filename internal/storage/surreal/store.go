// Package surreal implements the remote table store on SurrealDB. It is the
// self-hosted alternative to the Supabase backend and follows the same row
// shapes. Numeric row ids are allocated from a counters table so both backends
// hand out server-assigned integer ids.
package surreal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

// Field lists alias the stored row_id back to id for struct mapping. The
// record id itself is a RecordID value and cannot be decoded into int64.
const (
	transactionFields = `row_id as id, wallet_id, asset_id, from_wallet_id, to_wallet_id,
		from_asset_id, to_asset_id, title, category, date, amount, type, updated_at`
	walletFields   = `row_id as id, name, balance, type, color, last4, sort_order, updated_at`
	assetFields    = `row_id as id, name, symbol, value, change, type, sort_order, updated_at`
	categoryFields = `row_id as id, name, type, icon, category_group, sort_order`
)

// categoryRow is the stored shape of a category. The group field is renamed
// because GROUP is a reserved word in SurrealQL.
type categoryRow struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Type      models.CategoryType `json:"type"`
	Icon      string              `json:"icon"`
	Group     string              `json:"category_group,omitempty"`
	SortOrder *int                `json:"sort_order,omitempty"`
}

func (r categoryRow) toModel() models.Category {
	return models.Category{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Icon:      r.Icon,
		Group:     r.Group,
		SortOrder: r.SortOrder,
	}
}

// Store implements interfaces.TableStore using SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.TableStore = (*Store)(nil)

// NewStore connects, signs in, selects the namespace/database and defines the
// tables (SurrealDB v3 errors on querying tables that do not exist yet).
func NewStore(logger *common.Logger, cfg common.SurrealConfig) (*Store, error) {
	ctx := context.Background()

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	tables := []string{"transactions", "wallets", "assets", "categories", "counters"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB table store initialized")

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	s.db.Close(context.Background())
	return nil
}

type counterRow struct {
	Value int64 `json:"value"`
}

// nextID atomically bumps the per-table counter and returns the new value.
func (s *Store) nextID(ctx context.Context, table string) (int64, error) {
	sql := "UPSERT $rid SET value += 1 RETURN AFTER"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("counters", table),
	}
	results, err := surrealdb.Query[[]counterRow](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("failed to allocate id for %s: empty counter result", table)
	}
	return (*results)[0].Result[0].Value, nil
}

func queryRows[T any](ctx context.Context, s *Store, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, s.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func queryOne[T any](ctx context.Context, s *Store, sql string, vars map[string]any) (*T, error) {
	rows, err := queryRows[T](ctx, s, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("not found")
	}
	return &rows[0], nil
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

// --- Transactions ---

func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	sql := "SELECT " + transactionFields + " FROM transactions ORDER BY date DESC"
	rows, err := queryRows[models.Transaction](ctx, s, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	sql := "SELECT " + transactionFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("transactions", id)}
	row, err := queryOne[models.Transaction](ctx, s, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("transaction %d not found", id)
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return row, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	id, err := s.nextID(ctx, "transactions")
	if err != nil {
		return nil, err
	}
	row := *t
	row.ID = &id
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	if err := s.upsertTransaction(ctx, &row); err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &row, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == nil {
		return fmt.Errorf("transaction update requires an id")
	}
	if err := s.upsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", *t.ID, err)
	}
	return nil
}

func (s *Store) upsertTransaction(ctx context.Context, t *models.Transaction) error {
	sql := `UPSERT $rid SET
		row_id = $row_id, wallet_id = $wallet_id, asset_id = $asset_id,
		from_wallet_id = $from_wallet_id, to_wallet_id = $to_wallet_id,
		from_asset_id = $from_asset_id, to_asset_id = $to_asset_id,
		title = $title, category = $category, date = $date,
		amount = $amount, type = $type, updated_at = $updated_at`
	vars := map[string]any{
		"rid":            surrealmodels.NewRecordID("transactions", *t.ID),
		"row_id":         *t.ID,
		"wallet_id":      t.WalletID,
		"asset_id":       t.AssetID,
		"from_wallet_id": t.FromWalletID,
		"to_wallet_id":   t.ToWalletID,
		"from_asset_id":  t.FromAssetID,
		"to_asset_id":    t.ToAssetID,
		"title":          t.Title,
		"category":       t.Category,
		"date":           t.Date,
		"amount":         t.Amount,
		"type":           t.Type,
		"updated_at":     t.UpdatedAt,
	}
	_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	return err
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := surrealdb.Delete[models.Transaction](ctx, s.db, surrealmodels.NewRecordID("transactions", id))
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteTransactionsByWallet(ctx context.Context, walletID int64) error {
	sql := `DELETE FROM transactions WHERE wallet_id = $id OR from_wallet_id = $id OR to_wallet_id = $id`
	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{"id": walletID}); err != nil {
		return fmt.Errorf("failed to delete transactions for wallet %d: %w", walletID, err)
	}
	return nil
}

func (s *Store) DeleteTransactionsByAsset(ctx context.Context, assetID int64) error {
	sql := `DELETE FROM transactions WHERE asset_id = $id OR from_asset_id = $id OR to_asset_id = $id`
	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{"id": assetID}); err != nil {
		return fmt.Errorf("failed to delete transactions for asset %d: %w", assetID, err)
	}
	return nil
}

// --- Wallets ---

func (s *Store) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	sql := "SELECT " + walletFields + " FROM wallets ORDER BY sort_order ASC"
	rows, err := queryRows[models.Wallet](ctx, s, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return rows, nil
}

func (s *Store) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	sql := "SELECT " + walletFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("wallets", id)}
	row, err := queryOne[models.Wallet](ctx, s, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("wallet %d not found", id)
		}
		return nil, fmt.Errorf("failed to get wallet %d: %w", id, err)
	}
	return row, nil
}

func (s *Store) InsertWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	id, err := s.nextID(ctx, "wallets")
	if err != nil {
		return nil, err
	}
	row := *w
	row.ID = &id
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	if err := s.upsertWallet(ctx, &row); err != nil {
		return nil, fmt.Errorf("failed to insert wallet: %w", err)
	}
	return &row, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	if w.ID == nil {
		return fmt.Errorf("wallet update requires an id")
	}
	if err := s.upsertWallet(ctx, w); err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", *w.ID, err)
	}
	return nil
}

func (s *Store) upsertWallet(ctx context.Context, w *models.Wallet) error {
	sql := `UPSERT $rid SET
		row_id = $row_id, name = $name, balance = $balance, type = $type,
		color = $color, last4 = $last4, sort_order = $sort_order, updated_at = $updated_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("wallets", *w.ID),
		"row_id":     *w.ID,
		"name":       w.Name,
		"balance":    w.Balance,
		"type":       w.Type,
		"color":      w.Color,
		"last4":      w.Last4,
		"sort_order": w.SortOrder,
		"updated_at": w.UpdatedAt,
	}
	_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	return err
}

func (s *Store) DeleteWallet(ctx context.Context, id int64) error {
	_, err := surrealdb.Delete[models.Wallet](ctx, s.db, surrealmodels.NewRecordID("wallets", id))
	if err != nil {
		return fmt.Errorf("failed to delete wallet %d: %w", id, err)
	}
	return nil
}

// --- Assets ---

func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	sql := "SELECT " + assetFields + " FROM assets ORDER BY sort_order ASC"
	rows, err := queryRows[models.Asset](ctx, s, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return rows, nil
}

func (s *Store) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	sql := "SELECT " + assetFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("assets", id)}
	row, err := queryOne[models.Asset](ctx, s, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("asset %d not found", id)
		}
		return nil, fmt.Errorf("failed to get asset %d: %w", id, err)
	}
	return row, nil
}

func (s *Store) InsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	id, err := s.nextID(ctx, "assets")
	if err != nil {
		return nil, err
	}
	row := *a
	row.ID = &id
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	if err := s.upsertAsset(ctx, &row); err != nil {
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}
	return &row, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == nil {
		return fmt.Errorf("asset update requires an id")
	}
	if err := s.upsertAsset(ctx, a); err != nil {
		return fmt.Errorf("failed to update asset %d: %w", *a.ID, err)
	}
	return nil
}

func (s *Store) upsertAsset(ctx context.Context, a *models.Asset) error {
	sql := `UPSERT $rid SET
		row_id = $row_id, name = $name, symbol = $symbol, value = $value,
		change = $change, type = $type,
		sort_order = $sort_order, updated_at = $updated_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("assets", *a.ID),
		"row_id":     *a.ID,
		"name":       a.Name,
		"symbol":     a.Symbol,
		"value":      a.Value,
		"change":     a.Change,
		"type":       a.Type,
		"sort_order": a.SortOrder,
		"updated_at": a.UpdatedAt,
	}
	_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	return err
}

func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	_, err := surrealdb.Delete[models.Asset](ctx, s.db, surrealmodels.NewRecordID("assets", id))
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}
	return nil
}

// --- Categories ---

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	sql := "SELECT " + categoryFields + " FROM categories ORDER BY sort_order ASC"
	rows, err := queryRows[categoryRow](ctx, s, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]models.Category, len(rows))
	for i, r := range rows {
		categories[i] = r.toModel()
	}
	return categories, nil
}

func (s *Store) InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("category insert requires an id")
	}
	row := *c
	if err := s.upsertCategory(ctx, &row); err != nil {
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}
	return &row, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		return fmt.Errorf("category update requires an id")
	}
	if err := s.upsertCategory(ctx, c); err != nil {
		return fmt.Errorf("failed to update category %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) upsertCategory(ctx context.Context, c *models.Category) error {
	sql := `UPSERT $rid SET
		row_id = $row_id, name = $name, type = $type, icon = $icon,
		category_group = $category_group, sort_order = $sort_order`
	vars := map[string]any{
		"rid":            surrealmodels.NewRecordID("categories", c.ID),
		"row_id":         c.ID,
		"name":           c.Name,
		"type":           c.Type,
		"icon":           c.Icon,
		"category_group": c.Group,
		"sort_order":     c.SortOrder,
	}
	_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	return err
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Category](ctx, s.db, surrealmodels.NewRecordID("categories", id))
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	return nil
}

// UpsertCategories writes the whole batch, one upsert per row.
func (s *Store) UpsertCategories(ctx context.Context, categories []models.Category) error {
	for i := range categories {
		if err := s.upsertCategory(ctx, &categories[i]); err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", categories[i].ID, err)
		}
	}
	return nil
}
