package chain

import (
	"context"
	"fmt"

	"eos-watcher/internal/watcher/config"
	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/eosio"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Reader 基于 Broker 读取代币合约的 holders / accounts 表
type Reader struct {
	broker      *Broker
	contract    string
	limit       int
	concurrency int
	ignore      map[string]struct{}
	tl          *zap.Logger
}

func NewReader(cfg config.ChainConfig, broker *Broker, logger *zap.Logger) *Reader {
	ignore := make(map[string]struct{}, len(cfg.IgnoreHolders))
	for _, holder := range cfg.IgnoreHolders {
		ignore[holder] = struct{}{}
	}
	concurrency := cfg.BalanceConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Reader{
		broker:      broker,
		contract:    cfg.TokenContract,
		limit:       cfg.TableRowsLimit,
		concurrency: concurrency,
		ignore:      ignore,
		tl:          logger,
	}
}

// ListHolders 只读取第一页，more=true 时记录告警
func (r *Reader) ListHolders(ctx context.Context, symbol string) ([]string, error) {
	resp, err := Request[eosio.TableRowsResponse](ctx, r.broker, eosio.ActionGetTableRows, eosio.TableRowsRequest{
		Code:  r.contract,
		Scope: symbol,
		Table: eosio.TableHolders,
		Limit: r.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s holders: %w", symbol, err)
	}
	if resp.More {
		r.tl.Warn("Holders table has more rows than table_rows_limit, only the first page is used",
			zap.String("symbol", symbol),
			zap.Int("limit", r.limit))
	}

	holders := make([]string, 0, len(resp.Rows))
	seen := make(map[string]struct{}, len(resp.Rows))
	for _, row := range resp.Rows {
		name, err := eosio.DecodeName(row)
		if err != nil {
			return nil, fmt.Errorf("list %s holders: %w", symbol, err)
		}
		if _, ok := r.ignore[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		holders = append(holders, name)
	}
	return holders, nil
}

// GetBalances 每个持有人一次请求，并发执行；单个失败不会取消其他请求，但整体返回错误
func (r *Reader) GetBalances(ctx context.Context, symbol string, holders []string) ([]model.Balance, error) {
	if len(holders) == 0 {
		return []model.Balance{}, nil
	}

	p := pool.NewWithResults[model.Balance]().
		WithContext(ctx).
		WithMaxGoroutines(r.concurrency)
	for _, holder := range holders {
		p.Go(func(ctx context.Context) (model.Balance, error) {
			r.tl.Debug("balances call", zap.String("holder", holder), zap.String("symbol", symbol))
			b, err := r.GetBalance(ctx, symbol, holder)
			if err != nil {
				return model.Balance{}, fmt.Errorf("holder %s: %w", holder, err)
			}
			return b, nil
		})
	}

	balances, err := p.Wait()
	if err != nil {
		return nil, fmt.Errorf("get %s balances: %w", symbol, err)
	}
	return balances, nil
}

// GetBalance 选取 symbol 完全匹配的资产行
func (r *Reader) GetBalance(ctx context.Context, symbol, holder string) (model.Balance, error) {
	resp, err := Request[eosio.TableRowsResponse](ctx, r.broker, eosio.ActionGetTableRows, eosio.TableRowsRequest{
		Code:  r.contract,
		Scope: holder,
		Table: eosio.TableAccounts,
		Limit: r.limit,
	})
	if err != nil {
		return model.Balance{}, err
	}

	for _, row := range resp.Rows {
		asset, err := eosio.DecodeAsset(row)
		if err != nil {
			return model.Balance{}, err
		}
		if asset.Symbol == symbol {
			return model.Balance{Holder: holder, Symbol: symbol, Amount: asset.Amount}, nil
		}
	}
	return model.Balance{}, &AssetNotFoundError{Holder: holder, Symbol: symbol}
}
