package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eos-watcher/internal/watcher/config"
	"eos-watcher/pkg/database"
	"eos-watcher/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	mq     *kafka.Writer
	es     *elasticsearch.Client
}

// New 打开数据库连接，按配置初始化 redis / kafka / es。数据库不可用直接返回错误，其余组件失败只告警
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (Repository, error) {
	r := &repositoryImpl{
		cfg:    cfg,
		logger: logger,
	}
	if err := r.init(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *repositoryImpl) init(ctx context.Context) error {
	var err error
	r.db, err = database.Open(r.cfg.Store.Driver, r.cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open %s store: %w", r.cfg.Store.Driver, err)
	}

	if r.cfg.Redis.Enable {
		r.rdb = redis.NewClient(&redis.Options{
			Addr:     r.cfg.Redis.Address,
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
			PoolSize: 20,
		})
		if err := r.rdb.Ping(ctx).Err(); err != nil {
			r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
		}
	} else {
		r.logger.Info("redis disabled, skip redis initialization")
	}

	if r.cfg.Kafka.Enable {
		brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
		r.mq = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			BatchSize:    1000,
			BatchBytes:   1024 * 1024, // 1MB
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
			MaxAttempts:  5,
			WriteTimeout: 2 * time.Second,
		}
	} else {
		r.logger.Info("kafka disabled, skip kafka initialization")
	}

	if r.cfg.Elasticsearch.Enable {
		r.es, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
			Indexs: map[string]map[string]interface{}{
				r.cfg.Elasticsearch.BalancesIndexName: BalancesIndexMapping,
			},
		}, r.logger)
		if err != nil {
			r.logger.Warn("failed to create elasticsearch client, continue without it", zap.Error(err))
			r.es = nil
		}
	} else {
		r.logger.Info("elasticsearch disabled, skip elasticsearch initialization")
	}
	return nil
}

// BalancesIndexMapping 余额索引 mapping
var BalancesIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"holder":      map[string]interface{}{"type": "keyword"},
			"symbol":      map[string]interface{}{"type": "keyword"},
			"amount":      map[string]interface{}{"type": "scaled_float", "scaling_factor": 10000},
			"observed_at": map[string]interface{}{"type": "date", "format": "epoch_millis"},
		},
	},
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetRDB() *redis.Client {
	return r.rdb
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetES() ESClient {
	return r.es
}

func (r *repositoryImpl) Close() error {
	var errs []error
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if r.rdb != nil {
		errs = append(errs, r.rdb.Close())
	}
	if r.mq != nil {
		errs = append(errs, r.mq.Close())
	}
	return errors.Join(errs...)
}
