package ledger

import (
	"context"
	"time"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

const (
	pushInitialBackoff = 2 * time.Second
	pushMaxBackoff     = 5 * time.Minute
)

// sortPusher pushes the reordered category list to the remote store in the
// background. The pending flag in prefs survives restarts, so an order that
// never reached the server is retried on the next start.
type sortPusher struct {
	store  interfaces.TableStore
	logger *common.Logger

	// categories returns the current ordered list to push.
	categories func() []models.Category
	// done is invoked after a successful push.
	done func()

	trigger chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newSortPusher(store interfaces.TableStore, logger *common.Logger,
	categories func() []models.Category, done func()) *sortPusher {
	p := &sortPusher{
		store:      store,
		logger:     logger,
		categories: categories,
		done:       done,
		trigger:    make(chan struct{}, 1),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Trigger arms a push. Coalesces when one is already pending.
func (p *sortPusher) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *sortPusher) Stop() {
	close(p.stop)
	<-p.stopped
}

func (p *sortPusher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			p.push()
		}
	}
}

// push retries with exponential backoff until the batch lands or the pusher
// is stopped. A new trigger during backoff restarts with the latest order.
func (p *sortPusher) push() {
	backoff := pushInitialBackoff
	for {
		batch := p.categories()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := p.store.UpsertCategories(ctx, batch)
		cancel()

		if err == nil {
			p.logger.Info().Int("count", len(batch)).Msg("Category order pushed")
			p.done()
			return
		}

		p.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("Category order push failed")
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			backoff = pushInitialBackoff
		case <-time.After(backoff):
			backoff *= 2
			if backoff > pushMaxBackoff {
				backoff = pushMaxBackoff
			}
		}
	}
}
