package balance

import (
	"context"
	"time"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const RETRY_COUNT = 3

// MessageWriter *kafka.Writer 满足该接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaBalanceWriter struct {
	mq    MessageWriter
	tl    *zap.Logger
	topic string
}

func NewKafkaBalanceWriter(mq MessageWriter, tl *zap.Logger, topic string) writer.BatchWriter[model.BalanceChange] {
	return &KafkaBalanceWriter{mq: mq, tl: tl, topic: topic}
}

func (w *KafkaBalanceWriter) BWrite(ctx context.Context, changes []model.BalanceChange) error {
	if len(changes) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(changes))
	for _, c := range changes {
		msg, err := w.marshalToMsg(c)
		if err != nil {
			w.tl.Warn("Skip unmarshalable balance change", zap.String("key", c.Key().String()), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	// 重试机制
	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		newCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = w.mq.WriteMessages(newCtx, msgs...)
		cancel()
		if err == nil {
			return nil
		}
	}
	w.tl.Warn("MQ write failed, exceeded the maximum number of retries", zap.Int("messages", len(msgs)), zap.Error(err))
	return err
}

func (w *KafkaBalanceWriter) Close() error {
	return nil
}

func (w *KafkaBalanceWriter) marshalToMsg(c model.BalanceChange) (kafka.Message, error) {
	jsonData, err := sonic.Marshal(c)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: w.topic,
		Key:   []byte(c.Key().String()),
		Value: jsonData,
	}, nil
}
