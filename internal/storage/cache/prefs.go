package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"

	"encoding/json"
)

const prefsFile = "prefs.json"

type prefsDoc struct {
	PendingCategorySort bool   `json:"pending_category_sort"`
	AmountHidden        bool   `json:"amount_hidden"`
	Theme               string `json:"theme"`
}

// Prefs stores small durable flags and user settings in prefs.json, next to
// the snapshot cache. The document is cached in memory and rewritten whole on
// every change.
type Prefs struct {
	mu     sync.Mutex
	dir    string
	doc    prefsDoc
	logger *common.Logger
}

var _ interfaces.PrefsStore = (*Prefs)(nil)

// NewPrefs loads prefs.json if present, otherwise starts with defaults.
func NewPrefs(logger *common.Logger, dir string) (*Prefs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create prefs directory %s: %w", dir, err)
	}

	p := &Prefs{
		dir:    dir,
		doc:    prefsDoc{Theme: "system"},
		logger: logger,
	}

	data, err := os.ReadFile(filepath.Join(dir, prefsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read prefs: %w", err)
		}
		return p, nil
	}
	if err := json.Unmarshal(data, &p.doc); err != nil {
		// A corrupt prefs file is not fatal, fall back to defaults.
		logger.Warn().Err(err).Msg("Failed to parse prefs file, using defaults")
		p.doc = prefsDoc{Theme: "system"}
	}
	return p, nil
}

// PendingCategorySort reports whether a category reorder is still awaiting a
// successful remote push.
func (p *Prefs) PendingCategorySort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.PendingCategorySort
}

// SetPendingCategorySort persists the pending flag.
func (p *Prefs) SetPendingCategorySort(pending bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.PendingCategorySort = pending
	return p.flushLocked()
}

// Settings returns the current user settings.
func (p *Prefs) Settings() models.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.Settings{
		AmountHidden: p.doc.AmountHidden,
		Theme:        p.doc.Theme,
	}
}

// SaveSettings persists updated user settings.
func (p *Prefs) SaveSettings(settings models.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.AmountHidden = settings.AmountHidden
	p.doc.Theme = settings.Theme
	return p.flushLocked()
}

func (p *Prefs) flushLocked() error {
	return writeJSONAtomic(p.dir, prefsFile, p.doc)
}
