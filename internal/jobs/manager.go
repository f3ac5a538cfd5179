package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Entry is a job with its cron spec ("@every 1h", "0 */5 * * * *", ...).
type Entry struct {
	Name     string
	Schedule string
	Job      cron.Job
}

type Manager struct {
	engine  *cron.Cron
	entries []Entry
	log     *zap.Logger
}

func NewManager(log *zap.Logger, entries ...Entry) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		engine:  cron.New(cron.WithSeconds()),
		entries: entries,
		log:     log.Named("cron"),
	}
}

// RegisterJobs adds every entry to the engine. Panics inside a job are
// recovered and logged by the engine.
func (m *Manager) RegisterJobs() error {
	for _, e := range m.entries {
		job := cron.NewChain(cron.Recover(cron.DiscardLogger)).Then(e.Job)
		if _, err := m.engine.AddJob(e.Schedule, job); err != nil {
			return err
		}
		m.log.Info("job registered", zap.String("job", e.Name), zap.String("schedule", e.Schedule))
	}
	return nil
}

func (m *Manager) Start() {
	m.log.Info("cron engine started")
	m.engine.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (m *Manager) Stop(ctx context.Context) {
	done := m.engine.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	m.log.Info("cron engine stopped")
}
