package event

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"estore/internal/logger"
	repo "estore/internal/repository"

	"go.uber.org/zap"
)

// outboxのpending行を取得(claim)してから購読者へ配る。少なくとも1回は届く
type Dispatcher struct {
	outbox      repo.OutboxRepository
	subs        []Subscriber
	interval    time.Duration
	batchSize   int
	maxAttempts int
	claimLease  time.Duration

	mu sync.Mutex // RunOnceの同時実行を防ぐ
}

func NewDispatcher(outbox repo.OutboxRepository, interval time.Duration, batchSize, maxAttempts int, subs ...Subscriber) *Dispatcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		outbox:      outbox,
		subs:        subs,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		claimLease:  30 * time.Second,
	}
}

// 取得済みのまま落ちた行を他のdispatcherが取り直すまでの時間
func (d *Dispatcher) WithClaimLease(lease time.Duration) *Dispatcher {
	if lease > 0 {
		d.claimLease = lease
	}
	return d
}

func (d *Dispatcher) Subscribe(s Subscriber) {
	d.mu.Lock()
	d.subs = append(d.subs, s)
	d.mu.Unlock()
}

// 1バッチ分配る。配れた件数を返す
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.outbox.ClaimPending(ctx, d.batchSize, d.claimLease)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, row := range rows {
		ev := FromOutbox(row)

		var errs []string
		for _, s := range d.subs {
			if err := s.Handle(ctx, ev); err != nil {
				errs = append(errs, s.Name()+": "+err.Error())
			}
		}

		if len(errs) > 0 {
			msg := strings.Join(errs, "; ")
			logger.Warn("outbox delivery failed",
				zap.String("event_id", ev.ID),
				zap.String("topic", ev.Topic),
				zap.String("error", msg))
			if err := d.outbox.MarkAttemptFailed(ctx, row.ID, msg, d.maxAttempts); err != nil {
				return delivered, err
			}
			continue
		}

		if err := d.outbox.MarkDone(ctx, row.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// pendingが無くなるまで回す
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := d.RunOnce(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// tickerで回し、止める関数を返す
func (d *Dispatcher) Start(ctx context.Context) func(context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := d.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("outbox dispatch failed", zap.Error(err))
				}
			}
		}
	}()

	return func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}
