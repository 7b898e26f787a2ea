// Package models defines data structures for uang
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionType tags a transaction as income, expense, or transfer.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// CategoryType is the transaction type a category applies to.
// Categories are never of type transfer.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// UnmarshalJSON decodes a category type, falling back to expense for any
// unrecognized value so a bad server row never fails the whole fetch.
func (c *CategoryType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*c = CategoryTypeExpense
		return nil
	}
	switch CategoryType(s) {
	case CategoryTypeIncome, CategoryTypeExpense:
		*c = CategoryType(s)
	default:
		*c = CategoryTypeExpense
	}
	return nil
}

// Transaction is a single money movement. The id is server-assigned and unset
// until the row is persisted. For income/expense at most one of WalletID and
// AssetID is set; for transfer exactly one from-ref and one to-ref are set.
//
// Category is the category *name*, not a foreign key. It is a historical
// label: renaming or deleting a category never rewrites existing transactions.
type Transaction struct {
	ID           *int64          `json:"id,omitempty" csv:"id"`
	WalletID     *int64          `json:"wallet_id,omitempty" csv:"wallet_id"`
	AssetID      *int64          `json:"asset_id,omitempty" csv:"asset_id"`
	FromWalletID *int64          `json:"from_wallet_id,omitempty" csv:"from_wallet_id"`
	ToWalletID   *int64          `json:"to_wallet_id,omitempty" csv:"to_wallet_id"`
	FromAssetID  *int64          `json:"from_asset_id,omitempty" csv:"from_asset_id"`
	ToAssetID    *int64          `json:"to_asset_id,omitempty" csv:"to_asset_id"`
	Title        string          `json:"title" csv:"title"`
	Category     string          `json:"category" csv:"category"`
	Date         time.Time       `json:"date" csv:"date"`
	Amount       float64         `json:"amount" csv:"amount"`
	Type         TransactionType `json:"type" csv:"type"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty" csv:"-"`
}

// Wallet is a spending account. Balance is a stored running total: it is
// adjusted incrementally on every transaction mutation, never recomputed from
// history on read.
type Wallet struct {
	ID        *int64    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Last4     string    `json:"last4"`
	SortOrder *int      `json:"sort_order,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Asset is a held asset. Value follows the same running-total rules as
// Wallet.Balance.
type Asset struct {
	ID        *int64    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	Change    float64   `json:"change"`
	Type      string    `json:"type"`
	SortOrder *int      `json:"sort_order,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Category describes a transaction category. IDs are client-generated.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      string       `json:"icon"`
	Group     string       `json:"group,omitempty"`
	SortOrder *int         `json:"sort_order,omitempty"`
}

// Snapshot is the full in-memory state, and the shape of the local cache file.
type Snapshot struct {
	Transactions []Transaction `json:"transactions"`
	Wallets      []Wallet      `json:"wallets"`
	Assets       []Asset       `json:"assets"`
	Categories   []Category    `json:"categories"`
}

// Summary holds the derived aggregate totals. Always recomputed in full from
// the current collections, never incrementally adjusted.
type Summary struct {
	TotalBalance float64 `json:"total_balance"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// ComputeSummary recomputes the aggregate totals from the snapshot.
func (s *Snapshot) ComputeSummary() Summary {
	var sum Summary
	for _, w := range s.Wallets {
		sum.TotalBalance += w.Balance
	}
	for _, a := range s.Assets {
		sum.TotalBalance += a.Value
	}
	for _, t := range s.Transactions {
		switch t.Type {
		case TransactionTypeIncome:
			sum.TotalIncome += t.Amount
		case TransactionTypeExpense:
			sum.TotalExpense += t.Amount
		}
	}
	return sum
}

// Settings holds local user preferences, persisted across restarts.
type Settings struct {
	AmountHidden bool   `json:"amount_hidden"`
	Theme        string `json:"theme"`
}

// ChangeEvent notifies subscribers that a collection changed.
type ChangeEvent struct {
	Entity string    `json:"entity"` // transactions, wallets, assets, categories, snapshot
	Action string    `json:"action"` // add, update, delete, reorder, refresh
	At     time.Time `json:"at"`
}

// BalanceEffect is a signed delta against exactly one wallet or asset.
type BalanceEffect struct {
	WalletID *int64
	AssetID  *int64
	Delta    float64
}

// Effects returns the balance deltas this transaction applies to its
// referenced wallets/assets. Amount carries no sign; the type tag does:
// expense subtracts, income adds, transfer subtracts from the from-side and
// adds to the to-side.
func (t *Transaction) Effects() []BalanceEffect {
	var effects []BalanceEffect
	switch t.Type {
	case TransactionTypeExpense:
		if t.WalletID != nil {
			effects = append(effects, BalanceEffect{WalletID: t.WalletID, Delta: -t.Amount})
		}
		if t.AssetID != nil {
			effects = append(effects, BalanceEffect{AssetID: t.AssetID, Delta: -t.Amount})
		}
	case TransactionTypeIncome:
		if t.WalletID != nil {
			effects = append(effects, BalanceEffect{WalletID: t.WalletID, Delta: t.Amount})
		}
		if t.AssetID != nil {
			effects = append(effects, BalanceEffect{AssetID: t.AssetID, Delta: t.Amount})
		}
	case TransactionTypeTransfer:
		switch {
		case t.FromWalletID != nil:
			effects = append(effects, BalanceEffect{WalletID: t.FromWalletID, Delta: -t.Amount})
		case t.FromAssetID != nil:
			effects = append(effects, BalanceEffect{AssetID: t.FromAssetID, Delta: -t.Amount})
		}
		switch {
		case t.ToWalletID != nil:
			effects = append(effects, BalanceEffect{WalletID: t.ToWalletID, Delta: t.Amount})
		case t.ToAssetID != nil:
			effects = append(effects, BalanceEffect{AssetID: t.ToAssetID, Delta: t.Amount})
		}
	}
	return effects
}

// InverseEffects returns the deltas that undo this transaction.
func (t *Transaction) InverseEffects() []BalanceEffect {
	effects := t.Effects()
	inverse := make([]BalanceEffect, len(effects))
	for i, e := range effects {
		inverse[i] = BalanceEffect{WalletID: e.WalletID, AssetID: e.AssetID, Delta: -e.Delta}
	}
	return inverse
}

// Validate checks the transaction's structural invariants.
func (t *Transaction) Validate() error {
	if t.Amount < 0 {
		return fmt.Errorf("amount must be non-negative, got %f", t.Amount)
	}
	switch t.Type {
	case TransactionTypeIncome, TransactionTypeExpense:
		if t.WalletID != nil && t.AssetID != nil {
			return fmt.Errorf("%s transaction may reference a wallet or an asset, not both", t.Type)
		}
		if t.FromWalletID != nil || t.ToWalletID != nil || t.FromAssetID != nil || t.ToAssetID != nil {
			return fmt.Errorf("%s transaction must not carry transfer references", t.Type)
		}
	case TransactionTypeTransfer:
		fromCount := 0
		if t.FromWalletID != nil {
			fromCount++
		}
		if t.FromAssetID != nil {
			fromCount++
		}
		toCount := 0
		if t.ToWalletID != nil {
			toCount++
		}
		if t.ToAssetID != nil {
			toCount++
		}
		if fromCount != 1 || toCount != 1 {
			return fmt.Errorf("transfer requires exactly one from-reference and one to-reference")
		}
		if t.WalletID != nil || t.AssetID != nil {
			return fmt.Errorf("transfer must not carry income/expense references")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return nil
}
