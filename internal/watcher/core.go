package watcher

import (
	"context"
	"fmt"
	"time"

	"eos-watcher/internal/watcher/api"
	"eos-watcher/internal/watcher/chain"
	"eos-watcher/internal/watcher/config"
	"eos-watcher/internal/watcher/dao"
	"eos-watcher/internal/watcher/job"
	"eos-watcher/internal/watcher/model"
	"eos-watcher/internal/watcher/monitor"
	"eos-watcher/internal/watcher/reconcile"
	"eos-watcher/internal/watcher/repository"
	"eos-watcher/internal/watcher/writer"
	"eos-watcher/internal/watcher/writer/balance"
	"eos-watcher/pkg/httpclient"

	"go.uber.org/zap"
)

const (
	sinkBatchSize     = 500
	sinkFlushInterval = time.Second
)

type Core struct {
	cfg          config.Config
	tl           *zap.Logger
	repo         repository.Repository
	balances     dao.BalanceDAO
	transport    *httpclient.HTTPClient
	publisher    *writer.Publisher
	sync         *job.BalanceSync
	scheduler    *job.Scheduler
	metrics      *monitor.MetricsServer
	writerCtx    context.Context
	writerCancel context.CancelFunc
}

// New 组装所有组件，只打开连接，不建表
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Core, error) {
	repo, err := repository.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	balances := dao.NewBalanceDAO(repo.GetDB(), repo.GetRDB(), cfg.Store.Table, cfg.Watcher.Symbols)

	// broker 内部不重试，失败由下一轮补偿
	transport := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:   cfg.Chain.Timeout,
		RateLimit: cfg.Chain.RateLimit,
		UserAgent: "eos-watcher",
	}, logger)
	broker := chain.NewBroker(cfg.Chain, transport, logger)
	reader := chain.NewReader(cfg.Chain, broker, logger)
	engine := reconcile.NewEngine(balances, cfg.Watcher.Strategy, logger)

	publisher := writer.NewPublisher(logger, newSinks(cfg, repo, logger)...)
	var changes job.ChangePublisher
	if publisher.Enabled() {
		changes = publisher
	}
	sync := job.NewBalanceSync(cfg.Watcher.Symbols, reader, engine, changes, logger)
	if cfg.Watcher.ReplayOnStart && publisher.Enabled() {
		sync.WithReplay(job.NewBalanceReplay(balances, publisher, logger))
	}

	scheduler := job.NewScheduler(logger)
	scheduler.RegisterJob("balance_sync", cfg.Watcher.SleepDuration, sync.Run)

	// 下游写入不跟随调度 ctx 取消，由 Close 在排空队列后关闭
	writerCtx, writerCancel := context.WithCancel(context.WithoutCancel(ctx))

	return &Core{
		cfg:       cfg,
		tl:        logger,
		repo:      repo,
		balances:  balances,
		transport: transport,
		publisher: publisher,
		sync:      sync,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, api.NewRouter(balances, logger), logger),

		writerCtx:    writerCtx,
		writerCancel: writerCancel,
	}, nil
}

func newSinks(cfg config.Config, repo repository.Repository, logger *zap.Logger) []*writer.AsyncBatchWriter[model.BalanceChange] {
	var sinks []*writer.AsyncBatchWriter[model.BalanceChange]
	if mq := repo.GetMQ(); mq != nil {
		sinks = append(sinks, writer.NewAsyncBatchWriter(logger,
			balance.NewKafkaBalanceWriter(mq, logger, cfg.Kafka.TopicBalance),
			sinkBatchSize, sinkFlushInterval, "kafka_balance", 1))
	}
	if rdb := repo.GetRDB(); rdb != nil {
		sinks = append(sinks, writer.NewAsyncBatchWriter(logger,
			balance.NewRedisBalanceWriter(rdb, logger),
			sinkBatchSize, sinkFlushInterval, "redis_balance", 1))
	}
	if es := repo.GetES(); es != nil {
		sinks = append(sinks, writer.NewAsyncBatchWriter(logger,
			balance.NewESBalanceWriter(es, logger, cfg.Elasticsearch.BalancesIndexName),
			sinkBatchSize, sinkFlushInterval, "es_balance", 1))
	}
	return sinks
}

// Setup 建表并启动下游写入，store.clear 为 true 时先清空
func (c *Core) Setup(ctx context.Context) error {
	if err := c.balances.Bootstrap(ctx, c.cfg.Store.Clear); err != nil {
		return fmt.Errorf("bootstrap store: %w", err)
	}
	c.publisher.Start(c.writerCtx)
	c.tl.Info("Watcher setup completed",
		zap.String("driver", c.cfg.Store.Driver),
		zap.String("table", c.cfg.Store.Table),
		zap.Bool("clear", c.cfg.Store.Clear),
		zap.Strings("symbols", c.cfg.Watcher.Symbols),
		zap.Int("endpoints", len(c.cfg.Chain.Endpoints)))
	return nil
}

// RunCycle 执行一轮读取与对账，错误原样返回
func (c *Core) RunCycle(ctx context.Context) error {
	return c.sync.Run(ctx)
}

// Start 启动 HTTP 服务和调度器，阻塞到 ctx 结束。需先调用 Setup
func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting watcher core...")
	c.metrics.Run()

	c.scheduler.Start(ctx)
	c.tl.Info("Watcher started successfully")

	<-ctx.Done()
	c.tl.Info("Shutting down watcher due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping watcher core...")

	c.scheduler.Stop(ctx)

	if err := c.metrics.Stop(ctx); err != nil {
		c.tl.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	c.Close()
	c.tl.Info("Watcher core stopped.")
}

// Close 排空下游写入队列，释放网络和存储连接
func (c *Core) Close() {
	c.publisher.Close()
	c.writerCancel()

	if err := c.transport.Close(); err != nil {
		c.tl.Warn("Close chain transport failed", zap.Error(err))
	}
	if err := c.repo.Close(); err != nil {
		c.tl.Warn("Close repository failed", zap.Error(err))
	}
	c.tl.Info("Watcher resources closed")
}
