// Package advisor suggests a category for a transaction title. Known
// category names are matched directly; otherwise the Gemini client picks one.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

// Service implements interfaces.AdvisorService.
type Service struct {
	ledger interfaces.LedgerService
	gemini interfaces.GeminiClient
	logger *common.Logger
}

var _ interfaces.AdvisorService = (*Service)(nil)

// NewService creates the advisor. The gemini client may be nil, in which case
// suggestions fall back to the first matching category type.
func NewService(logger *common.Logger, ledger interfaces.LedgerService, gemini interfaces.GeminiClient) *Service {
	return &Service{ledger: ledger, gemini: gemini, logger: logger}
}

// SuggestCategory returns a category name for the given transaction title.
func (s *Service) SuggestCategory(ctx context.Context, title string, txType models.TransactionType) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required")
	}

	categories := s.candidates(txType)
	if len(categories) == 0 {
		return "", fmt.Errorf("no categories defined")
	}

	if name, ok := matchByName(title, categories); ok {
		return name, nil
	}

	if s.gemini != nil {
		name, err := s.suggestWithGemini(ctx, title, categories)
		if err == nil {
			return name, nil
		}
		s.logger.Warn().Err(err).Str("title", title).Msg("Gemini suggestion failed, falling back")
	}

	return categories[0].Name, nil
}

// candidates returns the categories whose type matches the transaction type.
// Transfers and unknown types consider everything.
func (s *Service) candidates(txType models.TransactionType) []models.Category {
	all := s.ledger.Snapshot().Categories

	var want models.CategoryType
	switch txType {
	case models.TransactionTypeIncome:
		want = models.CategoryTypeIncome
	case models.TransactionTypeExpense:
		want = models.CategoryTypeExpense
	default:
		return all
	}

	matched := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.Type == want {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return all
	}
	return matched
}

// matchByName looks for a category whose name appears in the title, or the
// other way around for short names.
func matchByName(title string, categories []models.Category) (string, bool) {
	lower := strings.ToLower(title)
	for _, c := range categories {
		name := strings.ToLower(c.Name)
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) {
			return c.Name, true
		}
		for _, word := range strings.Fields(lower) {
			if word == name {
				return c.Name, true
			}
		}
	}
	return "", false
}

func (s *Service) suggestWithGemini(ctx context.Context, title string, categories []models.Category) (string, error) {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	prompt := fmt.Sprintf(`Pick the single best category for the transaction titled %q.
Choose from this list and answer with the category name only, nothing else:
%s`, title, strings.Join(names, ", "))

	answer, err := s.gemini.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	for _, name := range names {
		if strings.EqualFold(answer, name) {
			return name, nil
		}
	}
	// Model sometimes wraps the answer; take the first listed name it mentions.
	lower := strings.ToLower(answer)
	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("suggestion %q is not a known category", answer)
}
