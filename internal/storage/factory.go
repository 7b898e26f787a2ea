// Package storage constructs the configured table store backend.
package storage

import (
	"fmt"

	"github.com/qoishaidar/uang/internal/clients/supabase"
	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/storage/surreal"
)

// NewTableStore builds the remote table store named by cfg.Storage.Driver.
func NewTableStore(logger *common.Logger, cfg *common.Config) (interfaces.TableStore, error) {
	switch cfg.Storage.Driver {
	case "", "supabase":
		if cfg.Storage.Supabase.URL == "" {
			return nil, fmt.Errorf("supabase storage requires storage.supabase.url")
		}
		return supabase.NewClient(cfg.Storage.Supabase.URL, cfg.Storage.Supabase.APIKey,
			supabase.WithLogger(logger),
			supabase.WithRateLimit(cfg.Storage.Supabase.RateLimit),
			supabase.WithTimeout(cfg.Storage.Supabase.GetTimeout()),
		), nil
	case "surreal":
		return surreal.NewStore(logger, cfg.Storage.Surreal)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
