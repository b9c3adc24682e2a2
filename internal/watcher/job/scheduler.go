package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobFunc 定义作业执行函数
type JobFunc func(ctx context.Context) error

// JobOption 作业可选参数
type JobOption func(*ScheduledJob)

// WithTimeout 单次执行超时，默认不限
func WithTimeout(d time.Duration) JobOption {
	return func(j *ScheduledJob) {
		j.timeout = d
	}
}

// Scheduler 作业调度器
type Scheduler struct {
	jobs    []*ScheduledJob
	running bool
	cancel  context.CancelFunc
	done    sync.WaitGroup
	mu      sync.Mutex
	logger  *zap.Logger
}

// ScheduledJob 表示一个调度的作业
type ScheduledJob struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       JobFunc
}

// NewScheduler 创建调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
	}
}

// RegisterJob 注册周期作业，上一次执行结束后等待 interval 再执行下一次，不会重叠
func (s *Scheduler) RegisterJob(name string, interval time.Duration, fn JobFunc, opts ...JobOption) {
	s.register(&ScheduledJob{
		name:     name,
		interval: interval,
		fn:       fn,
	}, opts)

	s.logger.Info("Registered job", zap.String("job", name), zap.Duration("interval", interval))
}

func (s *Scheduler) register(job *ScheduledJob, opts []JobOption) {
	for _, opt := range opts {
		opt(job)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start 启动调度器
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.done.Add(1)
		go func(j *ScheduledJob) {
			defer s.done.Done()
			s.runJob(ctx, j)
		}(job)
	}
}

// Stop 取消所有作业并等待退出，ctx 到期后不再等待
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.logger.Warn("Stopping scheduler...")

	waitCh := make(chan struct{})
	go func() {
		s.done.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		s.logger.Info("All jobs stopped successfully")
	case <-ctx.Done():
		s.logger.Warn("Context deadline exceeded while waiting for jobs to stop")
	}
}

// runJob 运行周期作业，立即执行一次，之后每次执行完成再计时
func (s *Scheduler) runJob(ctx context.Context, job *ScheduledJob) {
	s.logger.Info("Running job", zap.String("job", job.name))

	timer := time.NewTimer(job.interval)
	defer timer.Stop()

	for {
		s.executeJob(ctx, job)
		if ctx.Err() != nil {
			s.logger.Info("Context cancelled, stopping job", zap.String("job", job.name))
			return
		}

		timer.Reset(job.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping job", zap.String("job", job.name))
			return
		}
	}
}

// executeJob 执行作业并处理错误，错误只记录不中断调度
func (s *Scheduler) executeJob(ctx context.Context, job *ScheduledJob) {
	jobCtx, cancel := ctx, context.CancelFunc(func() {})
	if job.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, job.timeout)
	}
	defer cancel()

	s.logger.Debug("Starting job execution", zap.String("job", job.name))
	startTime := time.Now()

	if err := job.fn(jobCtx); err != nil {
		s.logger.Error("Job execution failed",
			zap.String("job", job.name),
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)))
	} else {
		s.logger.Debug("Job execution completed",
			zap.String("job", job.name),
			zap.Duration("duration", time.Since(startTime)))
	}
}
