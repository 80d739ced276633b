package qmps

import (
	"context"
	"time"
)

// Worker runs shots handed to it by the pool.
type Worker struct {
	pool *Pool
	jobs chan Job
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case w.pool.workers <- w.jobs:
		case <-ctx.Done():
			return
		}

		select {
		case job := <-w.jobs:
			result := w.processJob(job)
			select {
			case w.pool.results <- result:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) processJob(job Job) ShotResult {
	outcome, err := job.Fn()
	w.pool.metrics.recordShot(err == nil)

	if err != nil {
		w.pool.log.Warn("shot failed", "shot", job.Shot, "err", err)
	} else {
		w.pool.log.Debug("shot done", "shot", job.Shot, "took", time.Since(job.StartTime))
	}

	return ShotResult{Shot: job.Shot, Outcome: outcome, Err: err}
}
