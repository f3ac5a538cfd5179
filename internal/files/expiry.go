package files

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiryJob sweeps expired shared files. It satisfies cron.Job.
type ExpiryJob struct {
	svc     *Service
	log     *zap.Logger
	timeout time.Duration
}

func NewExpiryJob(svc *Service, log *zap.Logger) *ExpiryJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpiryJob{svc: svc, log: log.Named("expiry"), timeout: 30 * time.Second}
}

func (j *ExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.svc.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		j.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.log.Info("expired files removed", zap.Int("count", n))
	}
}
