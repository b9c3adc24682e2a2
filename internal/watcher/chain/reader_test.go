package chain

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"eos-watcher/internal/watcher/config"
	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/eosio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChain 按 table/scope 返回预置的行
type fakeChain struct {
	holders  map[string][]string // symbol -> holder names
	accounts map[string][]eosio.Asset
	more     bool
	down     map[string]bool // scope -> 所有节点失败
	calls    atomic.Int32
}

func (c *fakeChain) handle(t *testing.T) func(ctx context.Context, url string, body, out interface{}) error {
	return func(ctx context.Context, url string, body, out interface{}) error {
		c.calls.Add(1)
		req := body.(eosio.TableRowsRequest)
		assert.Equal(t, "ducaturtoken", req.Code)
		assert.Equal(t, 100, req.Limit)
		if c.down[req.Scope] {
			return errUnreachable
		}

		resp := out.(*eosio.TableRowsResponse)
		switch req.Table {
		case eosio.TableHolders:
			for _, name := range c.holders[req.Scope] {
				resp.Rows = append(resp.Rows, eosio.EncodeName(name))
			}
			resp.More = c.more
		case eosio.TableAccounts:
			for _, a := range c.accounts[req.Scope] {
				row, err := eosio.EncodeAsset(a)
				assert.NoError(t, err)
				resp.Rows = append(resp.Rows, row)
			}
		}
		return nil
	}
}

func newTestReader(t *testing.T, chain *fakeChain, ignore ...string) *Reader {
	cfg := config.ChainConfig{
		Endpoints:          []string{"a:8888", "b:8888"},
		MaxConnections:     1,
		Timeout:            time.Second,
		TokenContract:      "ducaturtoken",
		TableRowsLimit:     100,
		IgnoreHolders:      ignore,
		BalanceConcurrency: 4,
	}
	broker := NewBroker(cfg, &fakeTransport{handle: chain.handle(t)}, zap.NewNop())
	return NewReader(cfg, broker, zap.NewNop())
}

func asset(amount string, symbol string) eosio.Asset {
	return eosio.Asset{Amount: decimal.RequireFromString(amount), Precision: 4, Symbol: symbol}
}

func TestListHolders(t *testing.T) {
	chain := &fakeChain{holders: map[string][]string{
		"DUCAT": {"alice", "ducaturtoken", "bob", "alice"},
	}}
	r := newTestReader(t, chain, "ducaturtoken")

	holders, err := r.ListHolders(context.Background(), "DUCAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, holders)
}

func TestListHoldersMorePagesStillReturnsFirstPage(t *testing.T) {
	chain := &fakeChain{holders: map[string][]string{"DUCAT": {"alice"}}, more: true}
	r := newTestReader(t, chain)

	holders, err := r.ListHolders(context.Background(), "DUCAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, holders)
}

func TestGetBalancesSelectsTargetSymbol(t *testing.T) {
	chain := &fakeChain{accounts: map[string][]eosio.Asset{
		"alice": {asset("5", "EOS"), asset("100.5", "DUCAT")},
		"bob":   {asset("0", "DUCAT")},
	}}
	r := newTestReader(t, chain)

	balances, err := r.GetBalances(context.Background(), "DUCAT", []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, balances, 2)

	byHolder := make(map[string]model.Balance)
	for _, b := range balances {
		byHolder[b.Holder] = b
	}
	assert.True(t, byHolder["alice"].Amount.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, byHolder["bob"].Amount.IsZero())
	assert.Equal(t, "DUCAT", byHolder["bob"].Symbol)
}

func TestGetBalancesAssetNotFound(t *testing.T) {
	chain := &fakeChain{accounts: map[string][]eosio.Asset{
		"alice": {asset("1", "DUCAT")},
		"carol": {asset("7", "EOS")},
		"dave":  {asset("2", "DUCAT")},
	}}
	r := newTestReader(t, chain)

	_, err := r.GetBalances(context.Background(), "DUCAT", []string{"alice", "carol", "dave"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssetNotFound)

	var notFound *AssetNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "carol", notFound.Holder)

	// 其他持有人的请求没有被取消
	assert.Equal(t, int32(3), chain.calls.Load())
}

func TestGetBalancesBrokerFailure(t *testing.T) {
	chain := &fakeChain{
		accounts: map[string][]eosio.Asset{"alice": {asset("1", "DUCAT")}},
		down:     map[string]bool{"bob": true},
	}
	r := newTestReader(t, chain)

	_, err := r.GetBalances(context.Background(), "DUCAT", []string{"alice", "bob"})

	var allFailed *AllEndpointsFailedError
	require.True(t, errors.As(err, &allFailed))
	assert.Contains(t, err.Error(), "holder bob")
}

func TestGetBalancesEmpty(t *testing.T) {
	r := newTestReader(t, &fakeChain{})

	balances, err := r.GetBalances(context.Background(), "DUCAT", nil)
	require.NoError(t, err)
	assert.Empty(t, balances)
}
