package job

import (
	"context"
	"fmt"
	"time"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/monitor"
	"eos-watcher/internal/watcher/reconcile"
	"eos-watcher/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "eos-watcher/job"

// ChainReader 读取链上持有人和余额
type ChainReader interface {
	ListHolders(ctx context.Context, symbol string) ([]string, error)
	GetBalances(ctx context.Context, symbol string, holders []string) ([]model.Balance, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, snapshot []model.Balance) (*reconcile.Result, error)
}

// ChangePublisher 返回被丢弃的条数
type ChangePublisher interface {
	Publish(changes []model.BalanceChange) int
}

// BalanceSync 一个周期：读取所有 symbol 的快照，对账，推送变更
type BalanceSync struct {
	symbols   []string
	reader    ChainReader
	engine    Reconciler
	publisher ChangePublisher
	tl        *zap.Logger

	replay   *BalanceReplay
	replayed bool
}

// NewBalanceSync publisher 可以为 nil
func NewBalanceSync(symbols []string, reader ChainReader, engine Reconciler, publisher ChangePublisher, logger *zap.Logger) *BalanceSync {
	return &BalanceSync{
		symbols:   symbols,
		reader:    reader,
		engine:    engine,
		publisher: publisher,
		tl:        logger,
	}
}

// WithReplay 首轮对账前先回放已持久化余额，失败时下一轮重试
func (j *BalanceSync) WithReplay(replay *BalanceReplay) *BalanceSync {
	j.replay = replay
	return j
}

func (j *BalanceSync) Run(ctx context.Context) error {
	ctx, span := logger.StartSpan(ctx, tracerName, "balance_sync")
	defer span.End()
	tl := logger.WithTrace(ctx, j.tl)

	// 回放与对账在同一个 worker 中串行，下游最后收到的总是对账后的值
	if j.replay != nil && !j.replayed {
		if err := j.replay.Run(ctx); err != nil {
			tl.Warn("Replay persisted balances failed, retry next cycle", zap.Error(err))
		} else {
			j.replayed = true
		}
	}

	start := time.Now()
	defer func() {
		monitor.SyncCycleDuration.Observe(time.Since(start).Seconds())
	}()

	snapshot, err := j.snapshot(ctx)
	if err != nil {
		// 快照不完整时跳过本轮对账
		monitor.SyncCycles.WithLabelValues("read_failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read snapshot")
		return fmt.Errorf("read snapshot: %w", err)
	}

	result, err := j.engine.Reconcile(ctx, snapshot)
	if err != nil {
		monitor.SyncCycles.WithLabelValues("reconcile_failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile")
		return fmt.Errorf("reconcile: %w", err)
	}
	monitor.SyncCycles.WithLabelValues("ok").Inc()

	span.SetAttributes(
		attribute.Int("balances", len(snapshot)),
		attribute.Int("updated", result.Updated),
		attribute.Int("inserted", result.Inserted),
	)

	if j.publisher != nil && len(result.Changes) > 0 {
		j.publisher.Publish(result.Changes)
	}

	tl.Info("Balance sync completed",
		zap.Int("balances", len(snapshot)),
		zap.Int("updated", result.Updated),
		zap.Int("inserted", result.Inserted),
		zap.Int("unchanged", result.Unchanged),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (j *BalanceSync) snapshot(ctx context.Context) ([]model.Balance, error) {
	var snapshot []model.Balance
	for _, symbol := range j.symbols {
		holders, err := j.reader.ListHolders(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("list %s holders: %w", symbol, err)
		}
		monitor.SyncHolders.WithLabelValues(symbol).Set(float64(len(holders)))

		balances, err := j.reader.GetBalances(ctx, symbol, holders)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, balances...)
	}
	return snapshot, nil
}
