package interfaces

import "context"

// GeminiClient generates AI content; used by the advisor for category
// suggestions when keyword matching comes up empty.
type GeminiClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}
