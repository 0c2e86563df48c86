package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type branchSyncer interface {
	SyncBranch(ctx context.Context, p dfeservice.Partner) (*dfeservice.SyncSummary, error)
}

// worker sincroniza periodicamente as filiais configuradas
type worker struct {
	syncer      branchSyncer
	partners    []dfeservice.Partner
	concurrency int
	logger      logger.Logger
}

func newWorker(syncer branchSyncer, partners []dfeservice.Partner, concurrency int, log logger.Logger) *worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &worker{syncer: syncer, partners: partners, concurrency: concurrency, logger: log}
}

// run executa uma rodada imediatamente e depois a cada interval, até ctx ser cancelado
func (w *worker) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("worker DF-e encerrado")
			return
		case <-ticker.C:
		}
	}
}

// runOnce sincroniza todas as filiais, no máximo concurrency ao mesmo tempo.
// A falha de uma filial não interrompe as demais.
func (w *worker) runOnce(ctx context.Context) int {
	var (
		g        errgroup.Group
		failures atomic.Int32
	)
	g.SetLimit(w.concurrency)

	for _, p := range w.partners {
		if ctx.Err() != nil {
			break
		}
		p := p
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			summary, err := w.syncer.SyncBranch(ctx, p)
			if err != nil {
				if errors.Is(err, dfeservice.ErrSyncInProgress) {
					w.logger.Info("filial já em sincronização", "branch_id", p.BranchID)
					return nil
				}
				w.logger.Error("falha ao sincronizar filial", "tenant_id", p.TenantID, "branch_id", p.BranchID, "error", err)
				failures.Add(1)
				return nil
			}
			if summary.Skipped {
				w.logger.Debug("filial aguardando janela da SEFAZ", "branch_id", p.BranchID, "blocked_until", summary.BlockedUntil)
			}
			return nil
		})
	}

	g.Wait()
	return int(failures.Load())
}
