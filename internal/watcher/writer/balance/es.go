package balance

import (
	"context"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/writer"
	"eos-watcher/pkg/elasticsearch"

	"go.uber.org/zap"
)

// BulkWriter *elasticsearch.Client 满足该接口
type BulkWriter interface {
	BulkWrite(ctx context.Context, operations []elasticsearch.BulkOperation) error
}

type ESBalanceWriter struct {
	esClient BulkWriter
	logger   *zap.Logger
	index    string
}

func NewESBalanceWriter(esClient BulkWriter, logger *zap.Logger, index string) writer.BatchWriter[model.BalanceChange] {
	return &ESBalanceWriter{
		esClient: esClient,
		logger:   logger,
		index:    index,
	}
}

func (w *ESBalanceWriter) BWrite(ctx context.Context, changes []model.BalanceChange) error {
	if len(changes) == 0 {
		return nil
	}

	latest := latestByKey(changes)
	operations := make([]elasticsearch.BulkOperation, 0, len(latest))
	for _, c := range latest {
		operations = append(operations, elasticsearch.BulkOperation{
			Action:   "index", // 存在则覆盖
			Index:    w.index,
			ID:       c.Key().String(),
			Document: convertToESDoc(c),
		})
	}

	if err := w.esClient.BulkWrite(ctx, operations); err != nil {
		w.logger.Warn("ES bulk write failed", zap.String("index", w.index), zap.Int("docs", len(operations)), zap.Error(err))
		return err
	}
	return nil
}

func (w *ESBalanceWriter) Close() error {
	return nil
}

func convertToESDoc(c model.BalanceChange) map[string]interface{} {
	return map[string]interface{}{
		"holder":      c.Holder,
		"symbol":      c.Symbol,
		"amount":      c.Amount.String(),
		"op":          c.Op,
		"observed_at": c.ObservedAt,
	}
}
