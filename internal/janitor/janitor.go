// Package janitor periodically drops expired sessions and idle rate limiter state.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const taskTimeout = time.Minute

// Task removes stale entries and reports how many it dropped.
type Task struct {
	Run  func(ctx context.Context) (int, error)
	Name string
}

type Janitor struct {
	cron   *cron.Cron
	logger *zap.SugaredLogger
	tasks  []Task
}

// New schedules tasks with a cron spec such as "@every 1h" or "*/10 * * * *".
func New(schedule string, logger *zap.SugaredLogger, tasks ...Task) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		logger: logger,
		tasks:  tasks,
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		j.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("error parsing janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce runs every task now. A failing task does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	for _, t := range j.tasks {
		n, err := t.Run(ctx)
		if err != nil {
			j.logger.Errorf("janitor task %s failed: %v", t.Name, err)
			continue
		}
		if n > 0 {
			j.logger.Infof("janitor task %s dropped %d entries", t.Name, n)
		}
	}
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop prevents new runs and waits for a running one until ctx is done.
func (j *Janitor) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("janitor did not stop in time: %w", ctx.Err())
	}
}
