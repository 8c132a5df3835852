package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"ticketing-backend/internal/shared"
	"ticketing-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisOpt asynq.RedisClientOpt) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)
	return &Scheduler{scheduler: scheduler}
}

// RegisterPaymentJobs wires the recurring payment maintenance work.
func (s *Scheduler) RegisterPaymentJobs() error {
	if err := s.registerRetryDueJob(); err != nil {
		return err
	}
	return s.registerExpireStaleJob()
}

// Every minute: pick up failed transactions whose backoff elapsed.
func (s *Scheduler) registerRetryDueJob() error {
	task := asynq.NewTask(shared.TypePaymentRetryDue, nil)

	_, err := s.scheduler.Register(
		"* * * * *",
		task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(0),
		asynq.Timeout(55*time.Second),
	)
	if err != nil {
		logger.Error("failed to register payment retry scan", err)
		return err
	}

	logger.Info("registered payment retry scan: every minute", nil)
	return nil
}

// Every 5 minutes: fail transactions stuck in processing beyond the
// stale-payment window.
func (s *Scheduler) registerExpireStaleJob() error {
	task := asynq.NewTask(shared.TypePaymentExpireStale, nil)

	_, err := s.scheduler.Register(
		"*/5 * * * *",
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(0),
		asynq.Timeout(4*time.Minute),
	)
	if err != nil {
		logger.Error("failed to register stale payment expiry", err)
		return err
	}

	logger.Info("registered stale payment expiry: every 5 minutes", nil)
	return nil
}

func (s *Scheduler) Run() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
