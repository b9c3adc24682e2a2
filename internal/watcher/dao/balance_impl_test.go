package dao

import (
	"context"
	"fmt"
	"path"
	"sync"
	"testing"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 只构造缓存层，缓存命中时不会访问数据库
func newCacheOnlyDAO() *balanceDAO {
	return &balanceDAO{
		localCache: cache.New(cacheTTL, cacheTTL),
		table:      "balances",
		symbols:    []string{"DUCAT"},
	}
}

func TestGetByHolderLocalCacheHit(t *testing.T) {
	d := newCacheOnlyDAO()
	want := &model.Balance{Holder: "alice", Symbol: "DUCAT", Amount: decimal.RequireFromString("12.5")}
	d.updateBalanceCache(context.Background(), want)

	got, err := d.GetByHolder(context.Background(), "alice", "DUCAT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(*want))
}

func TestGetByHolderNegativeCache(t *testing.T) {
	d := newCacheOnlyDAO()
	d.localCache.Set(utils.BalanceKey("DUCAT", "ghost"), (*model.Balance)(nil), emptyCacheTTL)

	got, err := d.GetByHolder(context.Background(), "ghost", "DUCAT")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearBalanceCache(t *testing.T) {
	d := newCacheOnlyDAO()
	b := model.Balance{Holder: "alice", Symbol: "DUCAT", Amount: decimal.NewFromInt(1)}
	d.updateBalanceCache(context.Background(), &b)

	d.clearBalanceCache(context.Background(), []model.Balance{b})

	_, found := d.localCache.Get(utils.BalanceKey("DUCAT", "alice"))
	assert.False(t, found)
}

// memRedis 以 hook 拦截命令，只实现 DAO 用到的 GET/SET/SCAN/DEL
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemRedis(data map[string]string) (*redis.Client, *memRedis) {
	m := &memRedis{data: data}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(m)
	return rdb, m
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.ScanCmd:
			pattern := args[3].(string)
			var keys []string
			for k := range m.data {
				if ok, _ := path.Match(pattern, k); ok {
					keys = append(keys, k)
				}
			}
			c.SetVal(keys, 0)
		case *redis.IntCmd:
			var n int64
			for _, a := range args[1:] {
				if _, ok := m.data[a.(string)]; ok {
					delete(m.data, a.(string))
					n++
				}
			}
			c.SetVal(n)
		case *redis.StatusCmd:
			m.data[args[1].(string)] = fmt.Sprint(args[2])
			c.SetVal("OK")
		case *redis.StringCmd:
			v, ok := m.data[args[1].(string)]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		default:
			return fmt.Errorf("unexpected command %v", args)
		}
		return nil
	}
}

func (m *memRedis) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

func TestGetByHolderRedisTier(t *testing.T) {
	rdb, _ := newMemRedis(map[string]string{
		utils.BalanceKey("DUCAT", "alice"): `{"holder":"alice","symbol":"DUCAT","amount":"7.25"}`,
		utils.BalanceKey("DUCAT", "ghost"): "null",
	})
	d := newCacheOnlyDAO()
	d.rds = rdb

	got, err := d.GetByHolder(context.Background(), "alice", "DUCAT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("7.25")))
	_, promoted := d.localCache.Get(utils.BalanceKey("DUCAT", "alice"))
	assert.True(t, promoted)

	got, err = d.GetByHolder(context.Background(), "ghost", "DUCAT")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearRedisBalancesKeepsSinkKeys(t *testing.T) {
	rdb, mem := newMemRedis(map[string]string{
		utils.BalanceKey("DUCAT", "alice"): `{"holder":"alice","symbol":"DUCAT","amount":"1"}`,
		utils.BalanceKey("EOS", "bob"):     `{"holder":"bob","symbol":"EOS","amount":"2"}`,
		utils.BalanceKey("DUCAT", "ghost"): "null",
		utils.BalanceHashKey("DUCAT"):      "hash",
		utils.BalanceRankKey("DUCAT"):      "zset",
	})
	d := newCacheOnlyDAO()
	d.rds = rdb

	require.NoError(t, d.clearRedisBalances(context.Background()))
	assert.ElementsMatch(t, []string{utils.BalanceHashKey("DUCAT"), utils.BalanceRankKey("DUCAT")}, mem.keys())
}
