package job

import (
	"context"
	"fmt"

	"eos-watcher/internal/watcher/model"

	"go.uber.org/zap"
)

type BalanceSource interface {
	ReadAll(ctx context.Context) ([]model.Balance, error)
}

// BalanceReplay 启动时把已持久化余额作为 snapshot 事件推送一次，用于初始化空的下游
type BalanceReplay struct {
	source    BalanceSource
	publisher ChangePublisher
	tl        *zap.Logger
}

func NewBalanceReplay(source BalanceSource, publisher ChangePublisher, logger *zap.Logger) *BalanceReplay {
	return &BalanceReplay{
		source:    source,
		publisher: publisher,
		tl:        logger,
	}
}

func (j *BalanceReplay) Run(ctx context.Context) error {
	balances, err := j.source.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read persisted balances: %w", err)
	}

	changes := make([]model.BalanceChange, 0, len(balances))
	for _, b := range balances {
		changes = append(changes, model.NewBalanceChange(b, nil, model.ChangeSnapshot))
	}
	dropped := j.publisher.Publish(changes)

	j.tl.Info("Replayed persisted balances", zap.Int("balances", len(balances)), zap.Int("dropped", dropped))
	return nil
}
