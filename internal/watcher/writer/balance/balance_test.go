package balance

import (
	"context"
	"errors"
	"testing"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/elasticsearch"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func change(holder, symbol, amount, op string) model.BalanceChange {
	return model.BalanceChange{
		Holder:     holder,
		Symbol:     symbol,
		Amount:     decimal.RequireFromString(amount),
		Op:         op,
		ObservedAt: 1700000000000,
	}
}

type fakeMQ struct {
	failures int
	calls    int
	msgs     []kafka.Message
}

func (f *fakeMQ) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("leader not available")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaBalanceWriter(t *testing.T) {
	mq := &fakeMQ{failures: 1}
	w := NewKafkaBalanceWriter(mq, zap.NewNop(), "eos_watcher_balance")

	err := w.BWrite(context.Background(), []model.BalanceChange{change("alice", "EOS", "1.5", model.ChangeUpdate)})
	require.NoError(t, err)
	assert.Equal(t, 2, mq.calls)
	require.Len(t, mq.msgs, 1)

	msg := mq.msgs[0]
	assert.Equal(t, "eos_watcher_balance", msg.Topic)
	assert.Equal(t, "EOS:alice", string(msg.Key))

	var decoded model.BalanceChange
	require.NoError(t, sonic.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "alice", decoded.Holder)
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("1.5")))
}

func TestKafkaBalanceWriterGivesUp(t *testing.T) {
	mq := &fakeMQ{failures: RETRY_COUNT}
	w := NewKafkaBalanceWriter(mq, zap.NewNop(), "t")

	err := w.BWrite(context.Background(), []model.BalanceChange{change("alice", "EOS", "1", model.ChangeInsert)})
	assert.Error(t, err)
	assert.Equal(t, RETRY_COUNT, mq.calls)
}

type fakeES struct {
	ops []elasticsearch.BulkOperation
}

func (f *fakeES) BulkWrite(ctx context.Context, operations []elasticsearch.BulkOperation) error {
	f.ops = append(f.ops, operations...)
	return nil
}

func TestESBalanceWriterKeepsLatestPerKey(t *testing.T) {
	es := &fakeES{}
	w := NewESBalanceWriter(es, zap.NewNop(), "eos_balances")

	err := w.BWrite(context.Background(), []model.BalanceChange{
		change("alice", "EOS", "1", model.ChangeInsert),
		change("bob", "EOS", "2", model.ChangeInsert),
		change("alice", "EOS", "3", model.ChangeUpdate),
	})
	require.NoError(t, err)
	require.Len(t, es.ops, 2)

	assert.Equal(t, "EOS:alice", es.ops[0].ID)
	assert.Equal(t, "eos_balances", es.ops[0].Index)
	assert.Equal(t, "index", es.ops[0].Action)
	doc := es.ops[0].Document.(map[string]interface{})
	assert.Equal(t, "3", doc["amount"])
	assert.Equal(t, model.ChangeUpdate, doc["op"])
}

func TestRedisFieldsGroupedBySymbol(t *testing.T) {
	changes := []model.BalanceChange{
		change("alice", "EOS", "1", model.ChangeInsert),
		change("alice", "DUCAT", "10", model.ChangeInsert),
		change("bob", "EOS", "2.5", model.ChangeInsert),
		change("alice", "EOS", "4", model.ChangeUpdate),
	}

	fields := hashFields(changes)
	assert.Equal(t, []interface{}{"alice", "4", "bob", "2.5"}, fields["EOS"])
	assert.Equal(t, []interface{}{"alice", "10"}, fields["DUCAT"])

	members := rankMembers(changes)
	assert.Equal(t, []redis.Z{{Score: 4, Member: "alice"}, {Score: 2.5, Member: "bob"}}, members["EOS"])
}
