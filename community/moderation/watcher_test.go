/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahub-community/ahub/community/gateway"
	"github.com/google/go-cmp/cmp"
)

type fakeLister struct {
	mu        sync.Mutex
	proposals []gateway.Proposal
	err       error
	calls     int
}

func (f *fakeLister) ListOpenProposals(context.Context) ([]gateway.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.proposals, f.err
}

func (f *fakeLister) set(numbers ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals = nil
	for _, n := range numbers {
		f.proposals = append(f.proposals, gateway.Proposal{Number: n})
	}
}

type fakeProcessor struct {
	mu     sync.Mutex
	seen   []int
	fail   map[int]bool
	onCall func()
}

func (f *fakeProcessor) Process(_ context.Context, p gateway.Proposal) (*Verdict, error) {
	f.mu.Lock()
	f.seen = append(f.seen, p.Number)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if f.fail[p.Number] {
		return nil, errors.New("model unavailable")
	}
	return &Verdict{Approved: true}, nil
}

func (f *fakeProcessor) Seen() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.seen...)
}

func TestPollProcessesEachProposalOnce(t *testing.T) {
	lister := &fakeLister{}
	proc := &fakeProcessor{fail: map[int]bool{2: true}}
	w := NewWatcher(lister, proc, time.Minute)
	ctx := context.Background()

	lister.set(1, 2)
	if got := w.Poll(ctx); got != 2 {
		t.Errorf("first Poll() = %d, wanted 2", got)
	}

	// #2 failed but stays marked; #3 is new.
	lister.set(1, 2, 3)
	if got := w.Poll(ctx); got != 1 {
		t.Errorf("second Poll() = %d, wanted 1", got)
	}

	if diff := cmp.Diff([]int{1, 2, 3}, proc.Seen()); diff != "" {
		t.Errorf("processed (-want +got):\n%s", diff)
	}
	for _, n := range []int{1, 2, 3} {
		if !w.Seen(n) {
			t.Errorf("Seen(%d) = false, wanted true", n)
		}
	}
	if w.Seen(4) {
		t.Error("Seen(4) = true, wanted false")
	}
}

func TestPollListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("rate limited")}
	proc := &fakeProcessor{}
	w := NewWatcher(lister, proc, time.Minute)

	if got := w.Poll(context.Background()); got != 0 {
		t.Errorf("Poll() = %d, wanted 0", got)
	}
	if got := proc.Seen(); len(got) != 0 {
		t.Errorf("processed = %v, wanted none", got)
	}
}

func TestRunPollsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lister := &fakeLister{}
	lister.set(7)
	proc := &fakeProcessor{onCall: cancel}
	w := NewWatcher(lister, proc, time.Hour)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, wanted nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
	if diff := cmp.Diff([]int{7}, proc.Seen()); diff != "" {
		t.Errorf("processed (-want +got):\n%s", diff)
	}
}

func TestNewWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(&fakeLister{}, &fakeProcessor{}, 0)
	if w.interval != DefaultInterval {
		t.Errorf("interval = %v, wanted %v", w.interval, DefaultInterval)
	}
}
