package balance

import (
	"context"
	"time"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/writer"
	"eos-watcher/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisBalanceWriter struct {
	redis *redis.Client
	tl    *zap.Logger
}

// NewRedisBalanceWriter 维护每个 symbol 的 holder->amount hash 和按余额排序的 zset
func NewRedisBalanceWriter(rdb *redis.Client, tl *zap.Logger) writer.BatchWriter[model.BalanceChange] {
	return &RedisBalanceWriter{redis: rdb, tl: tl}
}

func (w *RedisBalanceWriter) BWrite(ctx context.Context, changes []model.BalanceChange) error {
	if len(changes) == 0 {
		return nil
	}

	fields := hashFields(changes)
	members := rankMembers(changes)

	// Exec 之后 pipeline 会清空，每次重试重新组装
	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		pipe := w.redis.Pipeline()
		for symbol, f := range fields {
			pipe.HSet(ctx, utils.BalanceHashKey(symbol), f...)
		}
		for symbol, m := range members {
			pipe.ZAdd(ctx, utils.BalanceRankKey(symbol), m...)
		}
		_, err = pipe.Exec(ctx)
		if err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	w.tl.Warn("Redis pipeline exec failed, exceeded the maximum number of retries", zap.Error(err))
	return err
}

func (w *RedisBalanceWriter) Close() error {
	return nil
}

// hashFields 同一批次内同一 holder 以最后一条为准
func hashFields(changes []model.BalanceChange) map[string][]interface{} {
	latest := latestByKey(changes)
	out := make(map[string][]interface{})
	for _, c := range latest {
		out[c.Symbol] = append(out[c.Symbol], c.Holder, c.Amount.String())
	}
	return out
}

func rankMembers(changes []model.BalanceChange) map[string][]redis.Z {
	latest := latestByKey(changes)
	out := make(map[string][]redis.Z)
	for _, c := range latest {
		out[c.Symbol] = append(out[c.Symbol], redis.Z{
			Score:  c.Amount.InexactFloat64(),
			Member: c.Holder,
		})
	}
	return out
}

func latestByKey(changes []model.BalanceChange) []model.BalanceChange {
	index := make(map[model.BalanceKey]int, len(changes))
	out := make([]model.BalanceChange, 0, len(changes))
	for _, c := range changes {
		if i, ok := index[c.Key()]; ok {
			out[i] = c
			continue
		}
		index[c.Key()] = len(out)
		out = append(out, c)
	}
	return out
}
