package chain

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"eos-watcher/internal/watcher/config"
	"eos-watcher/internal/watcher/monitor"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Transport 单次 JSON POST，*httpclient.HTTPClient 满足该接口
type Transport interface {
	PostJSON(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error
}

// Broker 把同一个只读请求并发发给随机选出的若干节点，取第一个成功的响应
type Broker struct {
	endpoints      []string
	maxConnections int
	timeout        time.Duration
	transport      Transport
	tl             *zap.Logger
	shuffle        func(n int, swap func(i, j int))
}

func NewBroker(cfg config.ChainConfig, transport Transport, logger *zap.Logger) *Broker {
	return &Broker{
		endpoints:      slices.Clone(cfg.Endpoints),
		maxConnections: cfg.MaxConnections,
		timeout:        cfg.Timeout,
		transport:      transport,
		tl:             logger,
		shuffle:        rand.Shuffle,
	}
}

// Endpoints 返回节点列表副本
func (b *Broker) Endpoints() []string {
	return slices.Clone(b.endpoints)
}

// Request 发起一次竞速请求，T 为响应体类型
func Request[T any](ctx context.Context, b *Broker, action string, payload any) (*T, error) {
	res, err := b.race(ctx, action, func(ctx context.Context, url string) (any, error) {
		out := new(T)
		if err := b.transport.PostJSON(ctx, url, payload, nil, out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}

type outcome struct {
	endpoint string
	value    any
	err      error
}

func (b *Broker) race(ctx context.Context, action string, call func(ctx context.Context, url string) (any, error)) (any, error) {
	if len(b.endpoints) == 0 {
		return nil, ErrEmptyPool
	}

	selected := b.pick()
	start := time.Now()
	defer func() {
		monitor.ChainRequestDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}()

	// 返回后取消其余仍在进行的请求
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 容量等于节点数，落后的请求发送结果时不会阻塞
	outcomes := make(chan outcome, len(selected))
	for _, endpoint := range selected {
		go func() {
			reqCtx, reqCancel := b.withTimeout(raceCtx)
			defer reqCancel()

			o := outcome{endpoint: endpoint}
			if r := panics.Try(func() { o.value, o.err = call(reqCtx, endpointURL(endpoint, action)) }); r != nil {
				o.err = r.AsError()
			}
			outcomes <- o
		}()
	}

	failures := make([]*EndpointError, 0, len(selected))
	for range selected {
		o := <-outcomes
		if o.err == nil {
			monitor.ChainRequests.WithLabelValues(o.endpoint, "ok").Inc()
			return o.value, nil
		}

		monitor.ChainRequests.WithLabelValues(o.endpoint, "error").Inc()
		b.tl.Warn("Endpoint request failed",
			zap.String("endpoint", o.endpoint),
			zap.String("action", action),
			zap.Error(o.err))
		failures = append(failures, &EndpointError{Endpoint: o.endpoint, Err: o.err})
	}

	monitor.ChainAllEndpointsFailed.WithLabelValues(action).Inc()
	return nil, &AllEndpointsFailedError{Action: action, Failures: failures}
}

// pick 洗牌后取前 min(maxConnections, |pool|) 个
func (b *Broker) pick() []string {
	n := len(b.endpoints)
	if b.maxConnections > 0 && b.maxConnections < n {
		n = b.maxConnections
	}
	shuffled := slices.Clone(b.endpoints)
	b.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

func (b *Broker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func endpointURL(endpoint, action string) string {
	base := endpoint
	if !strings.Contains(endpoint, "://") {
		base = "http://" + endpoint
	}
	return fmt.Sprintf("%s/v1/chain/%s", strings.TrimRight(base, "/"), action)
}
