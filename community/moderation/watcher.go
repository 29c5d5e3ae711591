/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/ahub-community/ahub/community/gateway"
	"github.com/chainguard-dev/clog"
)

// DefaultInterval is the polling period of the watch loop.
const DefaultInterval = 60 * time.Second

// Lister lists open proposals.
type Lister interface {
	ListOpenProposals(ctx context.Context) ([]gateway.Proposal, error)
}

// Processor applies moderation to one proposal.
type Processor interface {
	Process(ctx context.Context, p gateway.Proposal) (*Verdict, error)
}

// Watcher polls for open proposals and processes each one once per
// process lifetime.
type Watcher struct {
	lister    Lister
	processor Processor
	interval  time.Duration

	mu        sync.Mutex
	processed map[int]struct{}
}

// NewWatcher returns a Watcher polling every interval.
func NewWatcher(lister Lister, processor Processor, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		lister:    lister,
		processor: processor,
		interval:  interval,
		processed: make(map[int]struct{}),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	clog.FromContext(ctx).With("interval", w.interval).Info("Watching for proposals")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.Poll(ctx)
		select {
		case <-ctx.Done():
			clog.FromContext(ctx).Info("Watcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll processes the proposals not seen before and returns how many it
// attempted. A proposal is marked before processing, so failures are not
// retried by later polls.
func (w *Watcher) Poll(ctx context.Context) int {
	log := clog.FromContext(ctx)

	proposals, err := w.lister.ListOpenProposals(ctx)
	if err != nil {
		log.With("error", err).Error("Listing open proposals failed")
		return 0
	}

	n := 0
	for _, p := range proposals {
		if ctx.Err() != nil {
			break
		}
		if !w.mark(p.Number) {
			continue
		}
		n++
		if _, err := w.processor.Process(ctx, p); err != nil {
			log.With("proposal", p.Number, "error", err).Error("Processing proposal failed")
		}
	}
	return n
}

// Seen reports whether number was already handed to the processor.
func (w *Watcher) Seen(number int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.processed[number]
	return ok
}

func (w *Watcher) mark(number int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.processed[number]; ok {
		return false
	}
	w.processed[number] = struct{}{}
	return true
}
