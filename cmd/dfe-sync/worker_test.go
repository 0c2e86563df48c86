package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/stretchr/testify/assert"
)

type fakeSyncer struct {
	mu      sync.Mutex
	calls   map[string]int
	fail    map[string]error
	active  int32
	maxSeen int32
}

func (f *fakeSyncer) SyncBranch(ctx context.Context, p dfeservice.Partner) (*dfeservice.SyncSummary, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p.BranchID]++
	if err := f.fail[p.BranchID]; err != nil {
		return nil, err
	}
	return &dfeservice.SyncSummary{BranchID: p.BranchID, InSync: true}, nil
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{calls: map[string]int{}, fail: map[string]error{}}
}

func testPartners(ids ...string) []dfeservice.Partner {
	partners := make([]dfeservice.Partner, 0, len(ids))
	for _, id := range ids {
		partners = append(partners, dfeservice.Partner{TenantID: "t1", BranchID: id})
	}
	return partners
}

func TestWorker_RunOnceContinuesAfterFailure(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.fail["b2"] = errors.New("SEFAZ indisponível")
	syncer.fail["b3"] = dfeservice.ErrSyncInProgress

	w := newWorker(syncer, testPartners("b1", "b2", "b3", "b4"), 2, logger.NewNopLogger())
	failures := w.runOnce(context.Background())

	assert.Equal(t, 1, failures)
	for _, id := range []string{"b1", "b2", "b3", "b4"} {
		assert.Equal(t, 1, syncer.calls[id], id)
	}
}

func TestWorker_RespectsConcurrency(t *testing.T) {
	syncer := newFakeSyncer()
	w := newWorker(syncer, testPartners("b1", "b2", "b3", "b4", "b5", "b6"), 2, logger.NewNopLogger())

	w.runOnce(context.Background())
	assert.LessOrEqual(t, atomic.LoadInt32(&syncer.maxSeen), int32(2))
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	syncer := newFakeSyncer()
	w := newWorker(syncer, testPartners("b1"), 1, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx, time.Hour)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		syncer.mu.Lock()
		defer syncer.mu.Unlock()
		return syncer.calls["b1"] == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker não encerrou após o cancelamento")
	}
}

func TestWorker_RunOnceSkipsWhenCancelled(t *testing.T) {
	syncer := newFakeSyncer()
	w := newWorker(syncer, testPartners("b1", "b2"), 2, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Zero(t, w.runOnce(ctx))
	assert.Empty(t, syncer.calls)
}
