package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	cacheTTL      = 10 * time.Minute
	emptyCacheTTL = 1 * time.Minute
	insertBatch   = 500
	scanCount     = 500
)

// balanceDAO 实现BalanceDAO接口，rds 为 nil 时只用本地缓存
type balanceDAO struct {
	db         *gorm.DB
	rds        *redis.Client
	localCache *cache.Cache
	table      string
	symbols    []string
}

// NewBalanceDAO 创建BalanceDAO实例
func NewBalanceDAO(db *gorm.DB, rds *redis.Client, table string, symbols []string) BalanceDAO {
	return &balanceDAO{
		db:         db,
		rds:        rds,
		localCache: cache.New(cacheTTL, time.Minute),
		table:      table,
		symbols:    symbols,
	}
}

func (b *balanceDAO) tx(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx).Table(b.table)
}

func (b *balanceDAO) Bootstrap(ctx context.Context, clear bool) error {
	migrator := b.db.WithContext(ctx).Migrator()
	if clear && migrator.HasTable(b.table) {
		if err := migrator.DropTable(b.table); err != nil {
			return fmt.Errorf("drop table %s: %w", b.table, err)
		}
	}
	if err := b.tx(ctx).AutoMigrate(&model.Balance{}); err != nil {
		return fmt.Errorf("migrate table %s: %w", b.table, err)
	}
	if clear {
		b.localCache.Flush()
		if err := b.clearRedisBalances(ctx); err != nil {
			return fmt.Errorf("clear balance cache: %w", err)
		}
	}
	return nil
}

// clearRedisBalances 删除 Redis 中的单条余额缓存，包括空结果
func (b *balanceDAO) clearRedisBalances(ctx context.Context) error {
	if b.rds == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := b.rds.Scan(ctx, cursor, utils.BalanceKeyPattern(), scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := b.rds.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (b *balanceDAO) ReadAll(ctx context.Context) ([]model.Balance, error) {
	var balances []model.Balance
	err := b.tx(ctx).
		Where("symbol IN ?", b.symbols).
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (b *balanceDAO) UpdateByKey(ctx context.Context, key model.BalanceKey, record model.Balance) error {
	err := b.tx(ctx).
		Where("holder = ? AND symbol = ?", key.Holder, key.Symbol).
		Update("amount", record.Amount).Error
	if err == nil {
		// 主动更新缓存
		b.updateBalanceCache(ctx, &record)
	}
	return err
}

func (b *balanceDAO) InsertMany(ctx context.Context, records []model.Balance) error {
	if len(records) == 0 {
		return nil
	}
	err := b.tx(ctx).CreateInBatches(&records, insertBatch).Error
	if err == nil {
		// 清除空结果缓存
		b.clearBalanceCache(ctx, records)
	}
	return err
}

func (b *balanceDAO) UpsertMany(ctx context.Context, records []model.Balance) error {
	if len(records) == 0 {
		return nil
	}
	err := b.tx(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "holder"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount"}),
		}).
		CreateInBatches(&records, insertBatch).Error
	if err == nil {
		b.clearBalanceCache(ctx, records)
	}
	return err
}

func (b *balanceDAO) Holders(ctx context.Context, symbol string) ([]string, error) {
	var holders []string
	err := b.tx(ctx).
		Where("symbol = ?", symbol).
		Order("holder").
		Pluck("holder", &holders).Error
	if err != nil {
		return nil, err
	}
	return holders, nil
}

func (b *balanceDAO) TopBalances(ctx context.Context, symbol string, limit int) ([]model.Balance, error) {
	var balances []model.Balance
	query := b.tx(ctx).
		Where("symbol = ?", symbol).
		Order("amount DESC").
		Order("holder")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (b *balanceDAO) GetByHolder(ctx context.Context, holder, symbol string) (*model.Balance, error) {
	cacheKey := utils.BalanceKey(symbol, holder)

	// 先查本地缓存
	if cached, found := b.localCache.Get(cacheKey); found {
		if balance, ok := cached.(*model.Balance); ok {
			return balance, nil
		}
	}

	// 再查Redis缓存
	if b.rds != nil {
		cached, err := b.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == "null" {
				return nil, nil
			}
			var balance model.Balance
			if sonic.UnmarshalString(cached, &balance) == nil {
				b.localCache.Set(cacheKey, &balance, cache.DefaultExpiration)
				return &balance, nil
			}
		}
	}

	// 查数据库
	var balance model.Balance
	err := b.tx(ctx).
		Where("holder = ? AND symbol = ?", holder, symbol).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 缓存空结果，避免缓存穿透
			b.localCache.Set(cacheKey, (*model.Balance)(nil), emptyCacheTTL)
			if b.rds != nil {
				b.rds.Set(ctx, cacheKey, "null", emptyCacheTTL)
			}
			return nil, nil
		}
		return nil, err
	}

	b.updateBalanceCache(ctx, &balance)
	return &balance, nil
}

func (b *balanceDAO) updateBalanceCache(ctx context.Context, balance *model.Balance) {
	cacheKey := utils.BalanceKey(balance.Symbol, balance.Holder)
	b.localCache.Set(cacheKey, balance, cache.DefaultExpiration)

	if b.rds == nil {
		return
	}
	if data, err := sonic.MarshalString(balance); err == nil {
		b.rds.Set(ctx, cacheKey, data, cacheTTL)
	}
}

func (b *balanceDAO) clearBalanceCache(ctx context.Context, records []model.Balance) {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		key := utils.BalanceKey(r.Symbol, r.Holder)
		b.localCache.Delete(key)
		keys = append(keys, key)
	}
	if b.rds != nil && len(keys) > 0 {
		b.rds.Del(ctx, keys...)
	}
}
