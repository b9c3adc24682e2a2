// Package reconcile brings the persisted balance table in line with a
// freshly observed chain snapshot.
//
// Every pass is a full diff: the engine keeps no memory between passes, so
// reconciling the same snapshot twice is a no-op the second time and a
// missed or interrupted pass is repaired by the next one.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"eos-watcher/internal/watcher/config"
	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/monitor"

	"go.uber.org/zap"
)

// Store 对账所需的最小存储能力
type Store interface {
	ReadAll(ctx context.Context) ([]model.Balance, error)
	UpdateByKey(ctx context.Context, key model.BalanceKey, record model.Balance) error
	InsertMany(ctx context.Context, records []model.Balance) error
	UpsertMany(ctx context.Context, records []model.Balance) error
}

// Plan 一次对账计划，Updates 与 Inserts 均按快照顺序
type Plan struct {
	Updates   []model.Balance
	Inserts   []model.Balance
	Unchanged int
	previous  map[model.BalanceKey]model.Balance
}

// Empty 没有任何需要写入的记录
func (p *Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Inserts) == 0
}

// Changes 按更新、插入顺序生成变更事件
func (p *Plan) Changes() []model.BalanceChange {
	changes := make([]model.BalanceChange, 0, len(p.Updates)+len(p.Inserts))
	for _, b := range p.Updates {
		prev := p.previous[b.Key()].Amount
		changes = append(changes, model.NewBalanceChange(b, &prev, model.ChangeUpdate))
	}
	for _, b := range p.Inserts {
		changes = append(changes, model.NewBalanceChange(b, nil, model.ChangeInsert))
	}
	return changes
}

// Result 对账结果
type Result struct {
	Updated   int
	Inserted  int
	Unchanged int
	Changes   []model.BalanceChange
	Duration  time.Duration
}

// Diff 纯计算，不访问存储
func Diff(persisted, snapshot []model.Balance) (*Plan, error) {
	incoming := make(map[model.BalanceKey]model.Balance, len(snapshot))
	for _, b := range snapshot {
		if _, ok := incoming[b.Key()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, b.Key())
		}
		incoming[b.Key()] = b
	}

	current := make(map[model.BalanceKey]model.Balance, len(persisted))
	var missing []model.BalanceKey
	for _, b := range persisted {
		current[b.Key()] = b
		if _, ok := incoming[b.Key()]; !ok {
			missing = append(missing, b.Key())
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHolderError{Keys: missing}
	}

	plan := &Plan{previous: current}
	for _, b := range snapshot {
		existing, ok := current[b.Key()]
		switch {
		case !ok:
			plan.Inserts = append(plan.Inserts, b)
		case existing.Equal(b):
			plan.Unchanged++
		default:
			plan.Updates = append(plan.Updates, b)
		}
	}
	return plan, nil
}

type Engine struct {
	store    Store
	strategy string
	tl       *zap.Logger
}

// NewEngine strategy 取 config.StrategyDiff 或 config.StrategyUpsert，其他值按 diff 处理
func NewEngine(store Store, strategy string, logger *zap.Logger) *Engine {
	if strategy != config.StrategyUpsert {
		strategy = config.StrategyDiff
	}
	return &Engine{store: store, strategy: strategy, tl: logger}
}

// Reconcile 读取全部已持久化记录，校验不变量后写入差异。不变量失败时不做任何写入
func (e *Engine) Reconcile(ctx context.Context, snapshot []model.Balance) (*Result, error) {
	start := time.Now()

	persisted, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read persisted balances: %w", err)
	}

	plan, err := Diff(persisted, snapshot)
	if err != nil {
		return nil, err
	}

	if err := e.apply(ctx, plan); err != nil {
		return nil, err
	}

	result := &Result{
		Updated:   len(plan.Updates),
		Inserted:  len(plan.Inserts),
		Unchanged: plan.Unchanged,
		Changes:   plan.Changes(),
		Duration:  time.Since(start),
	}

	monitor.ReconcileRecords.WithLabelValues(model.ChangeUpdate).Add(float64(result.Updated))
	monitor.ReconcileRecords.WithLabelValues(model.ChangeInsert).Add(float64(result.Inserted))
	monitor.ReconcileRecords.WithLabelValues("unchanged").Add(float64(result.Unchanged))

	e.tl.Info("Reconciled balances",
		zap.String("strategy", e.strategy),
		zap.Int("updated", result.Updated),
		zap.Int("inserted", result.Inserted),
		zap.Int("unchanged", result.Unchanged),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (e *Engine) apply(ctx context.Context, plan *Plan) error {
	if plan.Empty() {
		return nil
	}

	if e.strategy == config.StrategyUpsert {
		records := make([]model.Balance, 0, len(plan.Updates)+len(plan.Inserts))
		records = append(records, plan.Updates...)
		records = append(records, plan.Inserts...)
		if err := e.store.UpsertMany(ctx, records); err != nil {
			return fmt.Errorf("upsert %d balances: %w", len(records), err)
		}
		return nil
	}

	for _, b := range plan.Updates {
		if err := e.store.UpdateByKey(ctx, b.Key(), b); err != nil {
			return fmt.Errorf("update balance %s: %w", b.Key(), err)
		}
	}
	if len(plan.Inserts) > 0 {
		if err := e.store.InsertMany(ctx, plan.Inserts); err != nil {
			return fmt.Errorf("insert %d balances: %w", len(plan.Inserts), err)
		}
	}
	return nil
}
