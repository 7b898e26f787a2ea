// Package dashboard aggregates the ledger collections into read models for
// the dashboard screen.
package dashboard

import (
	"sort"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

const recentLimit = 10

// Service implements interfaces.DashboardService on top of the ledger.
type Service struct {
	ledger interfaces.LedgerService
	logger *common.Logger
}

var _ interfaces.DashboardService = (*Service)(nil)

func NewService(logger *common.Logger, ledger interfaces.LedgerService) *Service {
	return &Service{ledger: ledger, logger: logger}
}

// Overview builds the full dashboard read model from the current snapshot.
func (s *Service) Overview() models.DashboardOverview {
	snapshot := s.ledger.Snapshot()

	overview := models.DashboardOverview{
		Summary:       s.ledger.Summary(),
		CategorySpend: categorySpend(snapshot.Transactions),
		Monthly:       monthlyFlow(snapshot.Transactions),
		Recent:        recentTransactions(snapshot.Transactions),
	}
	return overview
}

// categorySpend totals expense amounts per category name, largest first.
// Uncategorized expenses land under "Uncategorized".
func categorySpend(transactions []models.Transaction) []models.CategorySpend {
	totals := make(map[string]float64)
	for _, t := range transactions {
		if t.Type != models.TransactionTypeExpense {
			continue
		}
		name := t.Category
		if name == "" {
			name = "Uncategorized"
		}
		totals[name] += t.Amount
	}

	out := make([]models.CategorySpend, 0, len(totals))
	for name, total := range totals {
		out = append(out, models.CategorySpend{Category: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// monthlyFlow totals income and expense per calendar month, oldest first.
func monthlyFlow(transactions []models.Transaction) []models.MonthlyFlow {
	byMonth := make(map[string]*models.MonthlyFlow)
	for _, t := range transactions {
		month := t.Date.Format("2006-01")
		flow, ok := byMonth[month]
		if !ok {
			flow = &models.MonthlyFlow{Month: month}
			byMonth[month] = flow
		}
		switch t.Type {
		case models.TransactionTypeIncome:
			flow.Income += t.Amount
		case models.TransactionTypeExpense:
			flow.Expense += t.Amount
		}
	}

	out := make([]models.MonthlyFlow, 0, len(byMonth))
	for _, flow := range byMonth {
		out = append(out, *flow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// recentTransactions returns the newest transactions, date descending.
func recentTransactions(transactions []models.Transaction) []models.Transaction {
	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}
	return sorted
}
