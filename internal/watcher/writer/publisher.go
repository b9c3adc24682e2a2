package writer

import (
	"context"

	"eos-watcher/internal/watcher/model"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Publisher 把对账产生的变更分发到所有启用的下游
type Publisher struct {
	sinks []*AsyncBatchWriter[model.BalanceChange]
	tl    *zap.Logger
}

func NewPublisher(tl *zap.Logger, sinks ...*AsyncBatchWriter[model.BalanceChange]) *Publisher {
	return &Publisher{sinks: sinks, tl: tl}
}

func (p *Publisher) Enabled() bool {
	return len(p.sinks) > 0
}

func (p *Publisher) Start(ctx context.Context) {
	for _, s := range p.sinks {
		s.Start(ctx)
	}
}

// Publish 返回被丢弃的条数
func (p *Publisher) Publish(changes []model.BalanceChange) int {
	dropped := 0
	for _, s := range p.sinks {
		for _, c := range changes {
			if !s.Submit(c) {
				dropped++
			}
		}
	}
	if dropped > 0 {
		p.tl.Warn("Balance changes dropped", zap.Int("dropped", dropped), zap.Int("changes", len(changes)))
	}
	return dropped
}

// Close 并发关闭所有下游，等待队列写完
func (p *Publisher) Close() {
	var wg conc.WaitGroup
	for _, s := range p.sinks {
		wg.Go(s.Close)
	}
	wg.Wait()
}
