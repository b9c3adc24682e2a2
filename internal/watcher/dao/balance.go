package dao

import (
	"context"

	"eos-watcher/internal/watcher/model"
)

// BalanceDAO 余额表数据访问接口
type BalanceDAO interface {
	// Bootstrap 建表，clear 为 true 时先删表
	Bootstrap(ctx context.Context, clear bool) error

	// ReadAll 读取所有已配置 symbol 的余额记录
	ReadAll(ctx context.Context) ([]model.Balance, error)

	// UpdateByKey 按 (holder, symbol) 更新余额
	UpdateByKey(ctx context.Context, key model.BalanceKey, record model.Balance) error

	// InsertMany 批量插入，主键冲突直接报错
	InsertMany(ctx context.Context, records []model.Balance) error

	// UpsertMany 批量插入，主键冲突时更新 amount
	UpsertMany(ctx context.Context, records []model.Balance) error

	// Holders 查询某个 symbol 的所有持有人
	Holders(ctx context.Context, symbol string) ([]string, error)

	// TopBalances 按余额倒序查询
	TopBalances(ctx context.Context, symbol string, limit int) ([]model.Balance, error)

	// GetByHolder 查询单个持有人余额，不存在返回 nil
	GetByHolder(ctx context.Context, holder, symbol string) (*model.Balance, error)
}
