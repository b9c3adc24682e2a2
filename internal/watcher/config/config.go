package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eos-watcher/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	StrategyDiff   = "diff"
	StrategyUpsert = "upsert"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config 定义整个配置的结构
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Trace         TraceConfig         `mapstructure:"trace"`
	Chain         ChainConfig         `mapstructure:"chain"`
	Watcher       WatcherConfig       `mapstructure:"watcher"`
	Store         StoreConfig         `mapstructure:"store"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
}

// LogConfig Log 日志配置，文件为 <dir>/<服务名>.log
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

func (c LogConfig) Options() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Console:    c.Console,
	}
}

type TraceConfig struct {
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ChainConfig 链节点配置
type ChainConfig struct {
	Endpoints          []string      `mapstructure:"endpoints"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxConnections     int           `mapstructure:"max_connections"`
	TokenContract      string        `mapstructure:"token_contract"`
	TableRowsLimit     int           `mapstructure:"table_rows_limit"`
	IgnoreHolders      []string      `mapstructure:"ignore_holders"`
	BalanceConcurrency int           `mapstructure:"balance_concurrency"`
	RateLimit          int           `mapstructure:"rate_limit"` // 每分钟，0 不限
}

type WatcherConfig struct {
	Symbols       []string      `mapstructure:"symbols"`
	SleepDuration time.Duration `mapstructure:"sleep_duration"`
	Strategy      string        `mapstructure:"strategy"`
	ReplayOnStart bool          `mapstructure:"replay_on_start"` // 启动时把已持久化余额推送到下游
}

// StoreConfig 持久化配置
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
	Clear  bool   `mapstructure:"clear"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enable       bool   `mapstructure:"enable"`
	Brokers      string `mapstructure:"brokers"`
	TopicBalance string `mapstructure:"topic_balance"`
}

type ElasticsearchConfig struct {
	Enable            bool     `mapstructure:"enable"`
	Addresses         []string `mapstructure:"addresses"`
	Username          string   `mapstructure:"username"`
	Password          string   `mapstructure:"password"`
	BalancesIndexName string   `mapstructure:"balances_index_name"`
}

type MonitorConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.max_size_mb", 500)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.console", true)

	v.SetDefault("trace.sample_ratio", 1.0)

	v.SetDefault("chain.endpoints", []string{"localhost:8888"})
	v.SetDefault("chain.timeout", 2*time.Second)
	v.SetDefault("chain.max_connections", 10)
	v.SetDefault("chain.token_contract", "ducaturtoken")
	v.SetDefault("chain.table_rows_limit", 9999)
	v.SetDefault("chain.ignore_holders", []string{})
	v.SetDefault("chain.balance_concurrency", 20)
	v.SetDefault("chain.rate_limit", 0)

	v.SetDefault("watcher.symbols", []string{"DUCAT"})
	v.SetDefault("watcher.sleep_duration", 5*time.Second)
	v.SetDefault("watcher.strategy", StrategyDiff)
	v.SetDefault("watcher.replay_on_start", false)

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.dsn", "host=localhost user=postgres dbname=eos port=5432 sslmode=disable")
	v.SetDefault("store.table", "balances")
	v.SetDefault("store.clear", false)

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic_balance", "eos_watcher_balance")

	v.SetDefault("elasticsearch.enable", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.balances_index_name", "eos_balances")

	v.SetDefault("monitor.enable", true)
	v.SetDefault("monitor.addr", ":9100")
}

func InitConfig() Config {
	config, err := load(viper.GetViper(), "./config/")
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return config
}

// LoadFrom 从指定目录读取 config.watcher.yaml，文件不存在时只用默认值和环境变量
func LoadFrom(dir string) (Config, error) {
	return load(viper.New(), dir)
}

func load(v *viper.Viper, dir string) (Config, error) {
	var config Config

	v.SetConfigName("config.watcher")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)
	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return config, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return config, err
	}

	config.Chain.Endpoints = compact(config.Chain.Endpoints)
	config.Chain.IgnoreHolders = compact(config.Chain.IgnoreHolders)
	config.Watcher.Symbols = compact(config.Watcher.Symbols)

	return config, config.Validate()
}

// Validate 端点列表为空不在这里拦截，由 broker 在请求时报错
func (c Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(c.Watcher.Symbols) == 0 {
		errs = append(errs, errors.New("watcher.symbols is empty"))
	}
	if c.Watcher.Strategy != StrategyDiff && c.Watcher.Strategy != StrategyUpsert {
		errs = append(errs, fmt.Errorf("watcher.strategy %q is not one of %s, %s", c.Watcher.Strategy, StrategyDiff, StrategyUpsert))
	}
	if c.Chain.MaxConnections <= 0 {
		errs = append(errs, errors.New("chain.max_connections must be positive"))
	}
	if c.Chain.TableRowsLimit <= 0 {
		errs = append(errs, errors.New("chain.table_rows_limit must be positive"))
	}
	if c.Chain.Timeout <= 0 {
		errs = append(errs, errors.New("chain.timeout must be positive"))
	}
	if c.Store.Driver != DriverPostgres && c.Store.Driver != DriverMySQL {
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Table == "" {
		errs = append(errs, errors.New("store.table is empty"))
	}
	return errors.Join(errs...)
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := load(viper.GetViper(), "./config/")
		if err != nil {
			return
		}
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
