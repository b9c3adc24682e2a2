package repository

import (
	"eos-watcher/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer
type ESClient = *elasticsearch.Client

// Repository 持有进程内共享的外部资源，未启用的组件返回 nil
type Repository interface {
	GetDB() DBClient
	GetRDB() RedisClient
	GetMQ() MQClient
	GetES() ESClient
	Close() error
}
