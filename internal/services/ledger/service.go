// Package ledger owns the in-memory collections and mediates between the API
// surface, the local snapshot cache and the remote table store. Mutations
// apply locally first and reconcile with the server afterwards, so the UI
// never waits on the network for a balance update.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

// Service implements interfaces.LedgerService.
type Service struct {
	store  interfaces.TableStore
	cache  interfaces.SnapshotStore
	prefs  interfaces.PrefsStore
	logger *common.Logger

	mu       sync.RWMutex
	snapshot models.Snapshot
	summary  models.Summary

	hub    *hub
	pusher *sortPusher
}

var _ interfaces.LedgerService = (*Service)(nil)

// NewService builds the ledger, seeds state from the snapshot cache and
// re-arms the category sort pusher if an order is still awaiting push.
func NewService(logger *common.Logger, store interfaces.TableStore, cache interfaces.SnapshotStore, prefs interfaces.PrefsStore) *Service {
	s := &Service{
		store:  store,
		cache:  cache,
		prefs:  prefs,
		logger: logger,
		hub:    newHub(),
	}

	if cached, err := cache.Load(); err != nil {
		logger.Info().Err(err).Msg("No usable snapshot cache, starting empty")
	} else {
		s.snapshot = *cached
		s.summary = cached.ComputeSummary()
		logger.Info().
			Int("transactions", len(cached.Transactions)).
			Int("wallets", len(cached.Wallets)).
			Int("assets", len(cached.Assets)).
			Int("categories", len(cached.Categories)).
			Msg("Snapshot cache loaded")
	}

	s.pusher = newSortPusher(store, logger, s.orderedCategories, s.clearPendingSort)
	if prefs.PendingCategorySort() {
		logger.Info().Msg("Pending category order found, re-arming push")
		s.pusher.Trigger()
	}

	return s
}

func (s *Service) Close() error {
	s.pusher.Stop()
	s.hub.close()
	return nil
}

// Snapshot returns a copy of the current collections.
func (s *Service) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(&s.snapshot)
}

func (s *Service) Summary() models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Subscribe returns a buffered change-event channel and its cancel func.
func (s *Service) Subscribe(buffer int) (<-chan models.ChangeEvent, func()) {
	return s.hub.subscribe(buffer)
}

// --- Refresh ---

// Refresh re-fetches all four collections. Each fetch is independently
// guarded: a failed collection keeps its local rows and contributes to the
// joined error, the others still land.
func (s *Service) Refresh(ctx context.Context) error {
	var (
		wg                  sync.WaitGroup
		transactions        []models.Transaction
		wallets             []models.Wallet
		assets              []models.Asset
		categories          []models.Category
		errTx, errW, errA   error
		errC                error
	)

	// Read the pending flag before fetching. The push worker can succeed and
	// clear it while the fetches are in flight; a refresh that began with a
	// reorder pending must still treat the local order as authoritative, or it
	// would install the pre-push server order for one cycle.
	pending := s.prefs.PendingCategorySort()

	wg.Add(4)
	go func() { defer wg.Done(); transactions, errTx = s.store.ListTransactions(ctx) }()
	go func() { defer wg.Done(); wallets, errW = s.store.ListWallets(ctx) }()
	go func() { defer wg.Done(); assets, errA = s.store.ListAssets(ctx) }()
	go func() { defer wg.Done(); categories, errC = s.store.ListCategories(ctx) }()
	wg.Wait()

	s.mu.Lock()
	if errTx == nil {
		s.snapshot.Transactions = mergeRows(s.snapshot.Transactions, transactions,
			func(t models.Transaction) (int64, bool) {
				if t.ID == nil {
					return 0, false
				}
				return *t.ID, true
			},
			func(t models.Transaction) time.Time { return t.UpdatedAt })
	}
	if errW == nil {
		s.snapshot.Wallets = mergeRows(s.snapshot.Wallets, wallets,
			func(w models.Wallet) (int64, bool) {
				if w.ID == nil {
					return 0, false
				}
				return *w.ID, true
			},
			func(w models.Wallet) time.Time { return w.UpdatedAt })
	}
	if errA == nil {
		s.snapshot.Assets = mergeRows(s.snapshot.Assets, assets,
			func(a models.Asset) (int64, bool) {
				if a.ID == nil {
					return 0, false
				}
				return *a.ID, true
			},
			func(a models.Asset) time.Time { return a.UpdatedAt })
	}
	pendingSort := false
	if errC == nil {
		s.snapshot.Categories, pendingSort = s.mergeCategoriesLocked(pending, categories)
	}
	s.summary = s.snapshot.ComputeSummary()
	saved := copySnapshot(&s.snapshot)
	s.mu.Unlock()

	if err := s.cache.Save(&saved); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write snapshot cache")
	}
	if pendingSort {
		s.pusher.Trigger()
	}
	s.hub.broadcast("snapshot", "refresh")

	return errors.Join(errTx, errW, errA, errC)
}

// mergeRows reconciles a local slice against freshly fetched server rows.
// The server result is authoritative for membership and order; a local row is
// kept only when it shares an id with a server row and is strictly newer.
// Local rows absent from the server result are dropped, including optimistic
// rows that never got an id.
func mergeRows[T any](local, server []T, id func(T) (int64, bool), updated func(T) time.Time) []T {
	byID := make(map[int64]T, len(local))
	for _, row := range local {
		if key, ok := id(row); ok {
			byID[key] = row
		}
	}

	merged := make([]T, len(server))
	for i, row := range server {
		merged[i] = row
		if key, ok := id(row); ok {
			if localRow, exists := byID[key]; exists && updated(localRow).After(updated(row)) {
				merged[i] = localRow
			}
		}
	}
	return merged
}

// mergeCategoriesLocked reconciles categories. Ordinarily the server list
// wins outright. While a reorder is still awaiting push the local order is
// authoritative: server rows update content by id, server rows the local
// list has never seen are appended, and the push is re-armed so the server
// eventually converges on the local order. pending is the flag as read at the
// start of the refresh, before the fetches.
func (s *Service) mergeCategoriesLocked(pending bool, server []models.Category) ([]models.Category, bool) {
	if !pending {
		return server, false
	}

	serverByID := make(map[string]models.Category, len(server))
	for _, c := range server {
		serverByID[c.ID] = c
	}

	merged := make([]models.Category, 0, len(server))
	seen := make(map[string]bool, len(s.snapshot.Categories))
	for _, local := range s.snapshot.Categories {
		seen[local.ID] = true
		if remote, ok := serverByID[local.ID]; ok {
			remote.SortOrder = local.SortOrder
			merged = append(merged, remote)
		} else {
			merged = append(merged, local)
		}
	}
	for _, c := range server {
		if !seen[c.ID] {
			merged = append(merged, c)
		}
	}
	for i := range merged {
		order := i
		merged[i].SortOrder = &order
	}
	return merged, true
}

// --- Mutation core ---

// mutate is the common optimistic write path: apply locally, persist the
// cache, notify subscribers, then run the remote write. On remote failure the
// inverse restores local state before the error is returned. Either way a
// refresh reconciles against the server afterwards.
func (s *Service) mutate(ctx context.Context, entity, action string,
	local func(*models.Snapshot), inverse func(*models.Snapshot),
	remote func(context.Context) error) error {

	s.applyLocal(local)
	s.hub.broadcast(entity, action)

	if err := remote(ctx); err != nil {
		s.logger.Warn().Err(err).Str("entity", entity).Str("action", action).Msg("Remote write failed, rolling back")
		s.applyLocal(inverse)
		s.hub.broadcast(entity, action)
		if refreshErr := s.Refresh(ctx); refreshErr != nil {
			s.logger.Warn().Err(refreshErr).Msg("Reconciling refresh failed")
		}
		return fmt.Errorf("%s %s failed: %w", action, entity, err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Post-write refresh failed")
	}
	return nil
}

// applyLocal runs fn under the write lock, recomputes aggregates and saves
// the cache.
func (s *Service) applyLocal(fn func(*models.Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.summary = s.snapshot.ComputeSummary()
	saved := copySnapshot(&s.snapshot)
	s.mu.Unlock()

	if err := s.cache.Save(&saved); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write snapshot cache")
	}
}

// applyEffects adjusts wallet balances and asset values in place.
func applyEffects(snapshot *models.Snapshot, effects []models.BalanceEffect) {
	for _, e := range effects {
		switch {
		case e.WalletID != nil:
			for i := range snapshot.Wallets {
				if snapshot.Wallets[i].ID != nil && *snapshot.Wallets[i].ID == *e.WalletID {
					snapshot.Wallets[i].Balance += e.Delta
					snapshot.Wallets[i].UpdatedAt = time.Now().UTC()
				}
			}
		case e.AssetID != nil:
			for i := range snapshot.Assets {
				if snapshot.Assets[i].ID != nil && *snapshot.Assets[i].ID == *e.AssetID {
					snapshot.Assets[i].Value += e.Delta
					snapshot.Assets[i].UpdatedAt = time.Now().UTC()
				}
			}
		}
	}
}

// pushEffectsRemote reads the referenced rows fresh from the server, applies
// the deltas to those values and writes them back. Working from fresh reads
// rather than local balances keeps concurrent writers from clobbering each
// other's totals.
func (s *Service) pushEffectsRemote(ctx context.Context, effects []models.BalanceEffect) error {
	for _, e := range effects {
		switch {
		case e.WalletID != nil:
			w, err := s.store.GetWallet(ctx, *e.WalletID)
			if err != nil {
				return err
			}
			w.Balance += e.Delta
			w.UpdatedAt = time.Now().UTC()
			if err := s.store.UpdateWallet(ctx, w); err != nil {
				return err
			}
		case e.AssetID != nil:
			a, err := s.store.GetAsset(ctx, *e.AssetID)
			if err != nil {
				return err
			}
			a.Value += e.Delta
			a.UpdatedAt = time.Now().UTC()
			if err := s.store.UpdateAsset(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Transactions ---

func (s *Service) AddTransaction(ctx context.Context, t models.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	t.UpdatedAt = time.Now().UTC()

	effects := t.Effects()
	inverse := t.InverseEffects()

	return s.mutate(ctx, "transactions", "add",
		func(snap *models.Snapshot) {
			snap.Transactions = append([]models.Transaction{t}, snap.Transactions...)
			applyEffects(snap, effects)
		},
		func(snap *models.Snapshot) {
			// Remove the optimistic head row (it has no id yet) and undo its
			// balance effects.
			for i := range snap.Transactions {
				if snap.Transactions[i].ID == nil && snap.Transactions[i].Title == t.Title && snap.Transactions[i].Date.Equal(t.Date) {
					snap.Transactions = append(snap.Transactions[:i], snap.Transactions[i+1:]...)
					break
				}
			}
			applyEffects(snap, inverse)
		},
		func(ctx context.Context) error {
			if _, err := s.store.InsertTransaction(ctx, &t); err != nil {
				return err
			}
			return s.pushEffectsRemote(ctx, effects)
		})
}

func (s *Service) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	if t.ID == nil {
		return fmt.Errorf("transaction update requires an id")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	s.mu.RLock()
	var old *models.Transaction
	for i := range s.snapshot.Transactions {
		if s.snapshot.Transactions[i].ID != nil && *s.snapshot.Transactions[i].ID == *t.ID {
			row := s.snapshot.Transactions[i]
			old = &row
			break
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("transaction %d not found", *t.ID)
	}

	// Undo the old row's effects, then apply the new row's. Handles edits
	// that move the transaction between wallets or change its type.
	undoOld := old.InverseEffects()
	applyNew := t.Effects()
	redoOld := old.Effects()
	undoNew := t.InverseEffects()

	return s.mutate(ctx, "transactions", "update",
		func(snap *models.Snapshot) {
			for i := range snap.Transactions {
				if snap.Transactions[i].ID != nil && *snap.Transactions[i].ID == *t.ID {
					snap.Transactions[i] = t
					break
				}
			}
			applyEffects(snap, undoOld)
			applyEffects(snap, applyNew)
		},
		func(snap *models.Snapshot) {
			for i := range snap.Transactions {
				if snap.Transactions[i].ID != nil && *snap.Transactions[i].ID == *t.ID {
					snap.Transactions[i] = *old
					break
				}
			}
			applyEffects(snap, undoNew)
			applyEffects(snap, redoOld)
		},
		func(ctx context.Context) error {
			if err := s.pushEffectsRemote(ctx, undoOld); err != nil {
				return err
			}
			if err := s.pushEffectsRemote(ctx, applyNew); err != nil {
				return err
			}
			return s.store.UpdateTransaction(ctx, &t)
		})
}

func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.RLock()
	var target *models.Transaction
	for i := range s.snapshot.Transactions {
		if s.snapshot.Transactions[i].ID != nil && *s.snapshot.Transactions[i].ID == id {
			row := s.snapshot.Transactions[i]
			target = &row
			break
		}
	}
	s.mu.RUnlock()
	if target == nil {
		return fmt.Errorf("transaction %d not found", id)
	}

	inverse := target.InverseEffects()
	redo := target.Effects()

	return s.mutate(ctx, "transactions", "delete",
		func(snap *models.Snapshot) {
			for i := range snap.Transactions {
				if snap.Transactions[i].ID != nil && *snap.Transactions[i].ID == id {
					snap.Transactions = append(snap.Transactions[:i], snap.Transactions[i+1:]...)
					break
				}
			}
			applyEffects(snap, inverse)
		},
		func(snap *models.Snapshot) {
			snap.Transactions = append([]models.Transaction{*target}, snap.Transactions...)
			applyEffects(snap, redo)
		},
		func(ctx context.Context) error {
			if err := s.pushEffectsRemote(ctx, inverse); err != nil {
				return err
			}
			return s.store.DeleteTransaction(ctx, id)
		})
}

// --- Wallets ---

// AddWallet inserts remotely first. A wallet with no server id cannot anchor
// transactions, so there is no optimistic local add to roll back.
func (s *Service) AddWallet(ctx context.Context, w models.Wallet) error {
	w.UpdatedAt = time.Now().UTC()
	inserted, err := s.store.InsertWallet(ctx, &w)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", w.Name).Msg("Wallet insert failed")
		return fmt.Errorf("add wallet failed: %w", err)
	}

	s.applyLocal(func(snap *models.Snapshot) {
		snap.Wallets = append(snap.Wallets, *inserted)
	})
	s.hub.broadcast("wallets", "add")

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Post-write refresh failed")
	}
	return nil
}

func (s *Service) UpdateWallet(ctx context.Context, w models.Wallet) error {
	if w.ID == nil {
		return fmt.Errorf("wallet update requires an id")
	}
	w.UpdatedAt = time.Now().UTC()

	s.mu.RLock()
	var old *models.Wallet
	for i := range s.snapshot.Wallets {
		if s.snapshot.Wallets[i].ID != nil && *s.snapshot.Wallets[i].ID == *w.ID {
			row := s.snapshot.Wallets[i]
			old = &row
			break
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("wallet %d not found", *w.ID)
	}

	return s.mutate(ctx, "wallets", "update",
		func(snap *models.Snapshot) { replaceWallet(snap, w) },
		func(snap *models.Snapshot) { replaceWallet(snap, *old) },
		func(ctx context.Context) error { return s.store.UpdateWallet(ctx, &w) })
}

// DeleteWallet removes the wallet and every transaction that references it,
// locally then remotely.
func (s *Service) DeleteWallet(ctx context.Context, id int64) error {
	s.mu.RLock()
	var old *models.Wallet
	for i := range s.snapshot.Wallets {
		if s.snapshot.Wallets[i].ID != nil && *s.snapshot.Wallets[i].ID == id {
			row := s.snapshot.Wallets[i]
			old = &row
			break
		}
	}
	removed := make([]models.Transaction, 0)
	for _, t := range s.snapshot.Transactions {
		if transactionReferencesWallet(&t, id) {
			removed = append(removed, t)
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("wallet %d not found", id)
	}

	return s.mutate(ctx, "wallets", "delete",
		func(snap *models.Snapshot) {
			kept := snap.Transactions[:0]
			for _, t := range snap.Transactions {
				if !transactionReferencesWallet(&t, id) {
					kept = append(kept, t)
				}
			}
			snap.Transactions = kept
			for i := range snap.Wallets {
				if snap.Wallets[i].ID != nil && *snap.Wallets[i].ID == id {
					snap.Wallets = append(snap.Wallets[:i], snap.Wallets[i+1:]...)
					break
				}
			}
		},
		func(snap *models.Snapshot) {
			snap.Wallets = append(snap.Wallets, *old)
			snap.Transactions = append(removed, snap.Transactions...)
		},
		func(ctx context.Context) error {
			if err := s.store.DeleteTransactionsByWallet(ctx, id); err != nil {
				return err
			}
			return s.store.DeleteWallet(ctx, id)
		})
}

func (s *Service) ReorderWallets(ctx context.Context, ids []int64) error {
	s.mu.RLock()
	reordered, old, err := reorderByID(s.snapshot.Wallets, ids,
		func(w models.Wallet) (int64, bool) {
			if w.ID == nil {
				return 0, false
			}
			return *w.ID, true
		},
		func(w *models.Wallet, order int) {
			w.SortOrder = &order
			w.UpdatedAt = time.Now().UTC()
		})
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return s.mutate(ctx, "wallets", "reorder",
		func(snap *models.Snapshot) { snap.Wallets = reordered },
		func(snap *models.Snapshot) { snap.Wallets = old },
		func(ctx context.Context) error {
			for i := range reordered {
				if err := s.store.UpdateWallet(ctx, &reordered[i]); err != nil {
					return err
				}
			}
			return nil
		})
}

func replaceWallet(snap *models.Snapshot, w models.Wallet) {
	for i := range snap.Wallets {
		if snap.Wallets[i].ID != nil && w.ID != nil && *snap.Wallets[i].ID == *w.ID {
			snap.Wallets[i] = w
			return
		}
	}
}

func transactionReferencesWallet(t *models.Transaction, id int64) bool {
	for _, ref := range []*int64{t.WalletID, t.FromWalletID, t.ToWalletID} {
		if ref != nil && *ref == id {
			return true
		}
	}
	return false
}

// --- Assets ---

// AddAsset mirrors AddWallet: confirm-first, no optimistic add.
func (s *Service) AddAsset(ctx context.Context, a models.Asset) error {
	a.UpdatedAt = time.Now().UTC()
	inserted, err := s.store.InsertAsset(ctx, &a)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", a.Name).Msg("Asset insert failed")
		return fmt.Errorf("add asset failed: %w", err)
	}

	s.applyLocal(func(snap *models.Snapshot) {
		snap.Assets = append(snap.Assets, *inserted)
	})
	s.hub.broadcast("assets", "add")

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Post-write refresh failed")
	}
	return nil
}

func (s *Service) UpdateAsset(ctx context.Context, a models.Asset) error {
	if a.ID == nil {
		return fmt.Errorf("asset update requires an id")
	}
	a.UpdatedAt = time.Now().UTC()

	s.mu.RLock()
	var old *models.Asset
	for i := range s.snapshot.Assets {
		if s.snapshot.Assets[i].ID != nil && *s.snapshot.Assets[i].ID == *a.ID {
			row := s.snapshot.Assets[i]
			old = &row
			break
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("asset %d not found", *a.ID)
	}

	return s.mutate(ctx, "assets", "update",
		func(snap *models.Snapshot) { replaceAsset(snap, a) },
		func(snap *models.Snapshot) { replaceAsset(snap, *old) },
		func(ctx context.Context) error { return s.store.UpdateAsset(ctx, &a) })
}

func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	s.mu.RLock()
	var old *models.Asset
	for i := range s.snapshot.Assets {
		if s.snapshot.Assets[i].ID != nil && *s.snapshot.Assets[i].ID == id {
			row := s.snapshot.Assets[i]
			old = &row
			break
		}
	}
	removed := make([]models.Transaction, 0)
	for _, t := range s.snapshot.Transactions {
		if transactionReferencesAsset(&t, id) {
			removed = append(removed, t)
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("asset %d not found", id)
	}

	return s.mutate(ctx, "assets", "delete",
		func(snap *models.Snapshot) {
			kept := snap.Transactions[:0]
			for _, t := range snap.Transactions {
				if !transactionReferencesAsset(&t, id) {
					kept = append(kept, t)
				}
			}
			snap.Transactions = kept
			for i := range snap.Assets {
				if snap.Assets[i].ID != nil && *snap.Assets[i].ID == id {
					snap.Assets = append(snap.Assets[:i], snap.Assets[i+1:]...)
					break
				}
			}
		},
		func(snap *models.Snapshot) {
			snap.Assets = append(snap.Assets, *old)
			snap.Transactions = append(removed, snap.Transactions...)
		},
		func(ctx context.Context) error {
			if err := s.store.DeleteTransactionsByAsset(ctx, id); err != nil {
				return err
			}
			return s.store.DeleteAsset(ctx, id)
		})
}

func (s *Service) ReorderAssets(ctx context.Context, ids []int64) error {
	s.mu.RLock()
	reordered, old, err := reorderByID(s.snapshot.Assets, ids,
		func(a models.Asset) (int64, bool) {
			if a.ID == nil {
				return 0, false
			}
			return *a.ID, true
		},
		func(a *models.Asset, order int) {
			a.SortOrder = &order
			a.UpdatedAt = time.Now().UTC()
		})
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return s.mutate(ctx, "assets", "reorder",
		func(snap *models.Snapshot) { snap.Assets = reordered },
		func(snap *models.Snapshot) { snap.Assets = old },
		func(ctx context.Context) error {
			for i := range reordered {
				if err := s.store.UpdateAsset(ctx, &reordered[i]); err != nil {
					return err
				}
			}
			return nil
		})
}

func replaceAsset(snap *models.Snapshot, a models.Asset) {
	for i := range snap.Assets {
		if snap.Assets[i].ID != nil && a.ID != nil && *snap.Assets[i].ID == *a.ID {
			snap.Assets[i] = a
			return
		}
	}
}

func transactionReferencesAsset(t *models.Transaction, id int64) bool {
	for _, ref := range []*int64{t.AssetID, t.FromAssetID, t.ToAssetID} {
		if ref != nil && *ref == id {
			return true
		}
	}
	return false
}

// --- Categories ---

func (s *Service) AddCategory(ctx context.Context, c models.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}

	return s.mutate(ctx, "categories", "add",
		func(snap *models.Snapshot) {
			order := len(snap.Categories)
			if c.SortOrder == nil {
				c.SortOrder = &order
			}
			snap.Categories = append(snap.Categories, c)
		},
		func(snap *models.Snapshot) {
			for i := range snap.Categories {
				if snap.Categories[i].ID == c.ID {
					snap.Categories = append(snap.Categories[:i], snap.Categories[i+1:]...)
					break
				}
			}
		},
		func(ctx context.Context) error {
			_, err := s.store.InsertCategory(ctx, &c)
			return err
		})
}

// UpdateCategory rewrites the category row only. Transactions store the
// category name as a plain string and are deliberately left untouched.
func (s *Service) UpdateCategory(ctx context.Context, c models.Category) error {
	if c.ID == "" {
		return fmt.Errorf("category update requires an id")
	}

	s.mu.RLock()
	var old *models.Category
	for i := range s.snapshot.Categories {
		if s.snapshot.Categories[i].ID == c.ID {
			row := s.snapshot.Categories[i]
			old = &row
			break
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("category %s not found", c.ID)
	}

	return s.mutate(ctx, "categories", "update",
		func(snap *models.Snapshot) { replaceCategory(snap, c) },
		func(snap *models.Snapshot) { replaceCategory(snap, *old) },
		func(ctx context.Context) error { return s.store.UpdateCategory(ctx, &c) })
}

// DeleteCategory removes the category row. Existing transactions keep their
// category string and simply no longer resolve to a row.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	s.mu.RLock()
	var old *models.Category
	for i := range s.snapshot.Categories {
		if s.snapshot.Categories[i].ID == id {
			row := s.snapshot.Categories[i]
			old = &row
			break
		}
	}
	s.mu.RUnlock()
	if old == nil {
		return fmt.Errorf("category %s not found", id)
	}

	return s.mutate(ctx, "categories", "delete",
		func(snap *models.Snapshot) {
			for i := range snap.Categories {
				if snap.Categories[i].ID == id {
					snap.Categories = append(snap.Categories[:i], snap.Categories[i+1:]...)
					break
				}
			}
		},
		func(snap *models.Snapshot) {
			snap.Categories = append(snap.Categories, *old)
		},
		func(ctx context.Context) error { return s.store.DeleteCategory(ctx, id) })
}

// ReorderCategories applies the order locally, marks it pending and hands the
// batched upsert to the push worker. It never blocks on the network and the
// pending flag survives restarts.
func (s *Service) ReorderCategories(ctx context.Context, ids []string) error {
	s.mu.RLock()
	byID := make(map[string]models.Category, len(s.snapshot.Categories))
	for _, c := range s.snapshot.Categories {
		byID[c.ID] = c
	}
	s.mu.RUnlock()

	reordered := make([]models.Category, 0, len(byID))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		c, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown category id %s", id)
		}
		order := i
		c.SortOrder = &order
		reordered = append(reordered, c)
		seen[id] = true
	}
	// Categories missing from the requested order keep their relative
	// position at the tail.
	s.mu.RLock()
	for _, c := range s.snapshot.Categories {
		if !seen[c.ID] {
			order := len(reordered)
			c.SortOrder = &order
			reordered = append(reordered, c)
		}
	}
	s.mu.RUnlock()

	s.applyLocal(func(snap *models.Snapshot) {
		snap.Categories = reordered
	})
	if err := s.prefs.SetPendingCategorySort(true); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist pending category order flag")
	}
	s.hub.broadcast("categories", "reorder")
	s.pusher.Trigger()
	return nil
}

func replaceCategory(snap *models.Snapshot, c models.Category) {
	for i := range snap.Categories {
		if snap.Categories[i].ID == c.ID {
			snap.Categories[i] = c
			return
		}
	}
}

// orderedCategories feeds the push worker the current list.
func (s *Service) orderedCategories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, len(s.snapshot.Categories))
	copy(out, s.snapshot.Categories)
	return out
}

func (s *Service) clearPendingSort() {
	if err := s.prefs.SetPendingCategorySort(false); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear pending category order flag")
	}
	s.hub.broadcast("categories", "reorder")
}

// --- Helpers ---

// reorderByID rebuilds a slice in the requested id order, stamping each row's
// sort position. Rows omitted from ids keep their relative order at the tail.
func reorderByID[T any](rows []T, ids []int64, id func(T) (int64, bool), stamp func(*T, int)) (reordered, old []T, err error) {
	old = make([]T, len(rows))
	copy(old, rows)

	byID := make(map[int64]T, len(rows))
	for _, row := range rows {
		if key, ok := id(row); ok {
			byID[key] = row
		}
	}

	reordered = make([]T, 0, len(rows))
	seen := make(map[int64]bool, len(ids))
	for _, key := range ids {
		row, ok := byID[key]
		if !ok {
			return nil, nil, fmt.Errorf("unknown id %d in reorder", key)
		}
		reordered = append(reordered, row)
		seen[key] = true
	}
	for _, row := range rows {
		if key, ok := id(row); ok && seen[key] {
			continue
		}
		reordered = append(reordered, row)
	}
	for i := range reordered {
		stamp(&reordered[i], i)
	}
	return reordered, old, nil
}

func copySnapshot(s *models.Snapshot) models.Snapshot {
	out := models.Snapshot{
		Transactions: make([]models.Transaction, len(s.Transactions)),
		Wallets:      make([]models.Wallet, len(s.Wallets)),
		Assets:       make([]models.Asset, len(s.Assets)),
		Categories:   make([]models.Category, len(s.Categories)),
	}
	copy(out.Transactions, s.Transactions)
	copy(out.Wallets, s.Wallets)
	copy(out.Assets, s.Assets)
	copy(out.Categories, s.Categories)
	return out
}
