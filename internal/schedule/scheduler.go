package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs maintenance jobs on cron specs. A job never overlaps with
// itself; a tick that finds the previous run still going is dropped.
type Scheduler struct {
	cron  *cron.Cron
	jobs  map[string]cron.EntryID
	ctx   context.Context
	abort context.CancelFunc
}

func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]cron.EntryID),
		ctx:  context.Background(),
	}
}

func (s *Scheduler) Add(job Job, spec string) error {
	if _, ok := s.jobs[job.Name()]; ok {
		return fmt.Errorf("job %s already scheduled", job.Name())
	}
	id, err := s.cron.AddFunc(spec, s.guard(job))
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}
	s.jobs[job.Name()] = id
	logutil.GetLogger(context.Background()).Info("job scheduled", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.abort = context.WithCancel(ctx)
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.abort != nil {
		s.abort()
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) guard(job Job) func() {
	var busy atomic.Bool
	return func() {
		logger := logutil.GetLogger(s.ctx).With(zap.String("job", job.Name()))
		if !busy.CompareAndSwap(false, true) {
			logger.Warn("job skipped, previous run still active")
			return
		}
		defer busy.Store(false)
		Run(s.ctx, job)
	}
}

// Run executes job once and logs its outcome.
func Run(ctx context.Context, job Job) {
	logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error("job failed", zap.Error(err), zap.Duration("cost", time.Since(start)))
		return
	}
	logger.Debug("job done", zap.Duration("cost", time.Since(start)))
}
